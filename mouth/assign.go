package mouth

import (
	"github.com/anttex/textex/command"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// --- \def/\edef/\gdef/\xdef ------------------------------------------------

// parseDef implements spec.md §4.2.3's macro-definition grammar. Unlike
// the register/code-table assignments below, the resulting binding is
// installed directly into the environment's control-sequence table rather
// than deferred as a Command: the mouth is the component that owns that
// table's macro entries (the Mouth type doc), and a macro must be visible to Read
// calls the very next time its name is seen.
func (m *Mouth) parseDef(head token.Token, global, long, outer bool) (*command.Command, bool, error) {
	global = global || head.Name == "gdef" || head.Name == "xdef"
	expandBody := head.Name == "edef" || head.Name == "xdef"

	csTok, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	if csTok.Kind != token.KindControlSequence {
		return nil, true, texerr.New(texerr.ErrParse, csTok.Pos, "missing control sequence inserted")
	}

	params, err := m.scanParamText()
	if err != nil {
		return nil, true, err
	}

	body, err := m.ReadGroup(expandBody, outer, true, true)
	if err != nil {
		return nil, true, err
	}

	// The "#{" form (spec.md §4.2.3) leaves the brace unconsumed so ReadGroup
	// treats it as the body's own delimiter; the same brace must also open
	// the stored replacement text, so it is appended to the reverse-ordered
	// Replacement slice (whose last element is the first token in reading
	// order).
	replacement := body.Inner
	if n := len(params); n > 0 && params[n-1].Kind == token.KindCharacter && params[n-1].Category == token.CatBeginGroup {
		replacement = make([]token.Token, len(body.Inner)+1)
		copy(replacement, body.Inner)
		replacement[len(body.Inner)] = params[n-1]
	}

	m.Env.Define(csTok.Name, &token.Def{
		Kind: token.CSMacro, Params: params, Replacement: replacement, Long: long, Outer: outer,
	}, global)
	return nil, true, nil
}

// scanParamText reads the parameter template up to (but not including) the
// body's opening brace, turning "#n" into Parameter(n) tokens and "##"
// into a literal "#" (spec.md §4.2.3). The "#{" form is special-cased: the
// brace is left unconsumed so the following ReadGroup call sees it as the
// body's own opening delimiter, the same physical token serving both
// roles.
func (m *Mouth) scanParamText() ([]token.Token, error) {
	var params []token.Token
	nextParam := 1
	for {
		t, err := m.PeekRaw()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.KindCharacter && t.Category == token.CatBeginGroup {
			return params, nil
		}
		m.swallow()

		if t.Kind == token.KindCharacter && t.Category == token.CatParameter {
			nt, err := m.PeekRaw()
			if err != nil {
				return nil, err
			}
			if nt.Kind == token.KindCharacter && nt.Category == token.CatBeginGroup {
				params = append(params, nt)
				return params, nil
			}
			m.swallow()
			if nt.Kind == token.KindCharacter && nt.Category == token.CatParameter {
				params = append(params, token.NewChar('#', token.CatOther, t.Pos))
				continue
			}
			if nt.Kind != token.KindCharacter || nt.Char != rune('0'+nextParam) {
				return nil, texerr.New(texerr.ErrParse, nt.Pos, "parameters must be numbered consecutively")
			}
			params = append(params, token.NewParam(nextParam, t.Pos))
			nextParam++
			continue
		}

		params = append(params, t)
	}
}

// --- \let/\futurelet ------------------------------------------------------

// parseLet and parseFutureLet only capture the raw tokens involved; per
// spec.md §4.3 they are assignment-starters like any other, so the actual
// binding is applied by the stomach from the emitted Command, not here.
func (m *Mouth) parseLet(head token.Token, global bool) (*command.Command, bool, error) {
	csTok, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	if csTok.Kind != token.KindControlSequence {
		return nil, true, texerr.New(texerr.ErrParse, csTok.Pos, "missing control sequence inserted for \\let")
	}
	if err := m.matchEqualsRaw(); err != nil {
		return nil, true, err
	}
	rhs, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	return &command.Command{Kind: command.KAssignLet, Pos: head.Pos, Global: global, TargetCS: csTok.Name, LetToken: rhs}, true, nil
}

func (m *Mouth) parseFutureLet(head token.Token, global bool) (*command.Command, bool, error) {
	csTok, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	if csTok.Kind != token.KindControlSequence {
		return nil, true, texerr.New(texerr.ErrParse, csTok.Pos, "missing control sequence inserted for \\futurelet")
	}
	t1, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	t2, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	return &command.Command{Kind: command.KAssignFutureLet, Pos: head.Pos, Global: global, TargetCS: csTok.Name, FutureT1: t1, FutureT2: t2}, true, nil
}

// LetDef captures rhs's CURRENT meaning (spec.md §4.2.8 \let: "a copy of
// the token's present meaning, not a live reference to its name"). Exported
// for the stomach, which applies the actual \let/\futurelet binding.
func (m *Mouth) LetDef(rhs token.Token) *token.Def {
	if rhs.Kind == token.KindCharacter {
		return &token.Def{Kind: token.CSCharAlias, Char: rhs}
	}
	if rhs.Kind != token.KindControlSequence {
		return &token.Def{Kind: token.CSPrimitive, PrimitiveName: "relax"}
	}
	if def, ok := m.Env.Lookup(rhs.Name); ok {
		cp := *def
		return &cp
	}
	if IsPrimitive(rhs.Name) {
		return &token.Def{Kind: token.CSPrimitive, PrimitiveName: rhs.Name}
	}
	return &token.Def{Kind: token.CSPrimitive, PrimitiveName: "undefined"}
}

// matchEqualsRaw is matchEquals' raw-token counterpart, used by \let so
// that an expandable macro on the right-hand side is captured rather than
// expanded.
func (m *Mouth) matchEqualsRaw() error {
	for {
		t, err := m.PeekRaw()
		if err != nil {
			return err
		}
		if t.Kind == token.KindCharacter && t.Category == token.CatSpace {
			m.swallow()
			continue
		}
		break
	}
	t, err := m.PeekRaw()
	if err != nil {
		return err
	}
	if t.Kind == token.KindCharacter && t.Char == '=' {
		m.swallow()
	}
	t2, err := m.PeekRaw()
	if err != nil {
		return err
	}
	if t2.Kind == token.KindCharacter && t2.Category == token.CatSpace {
		m.swallow()
	}
	return nil
}

// --- register and code-table assignments -----------------------------------

func (m *Mouth) parseRegisterAssign(head token.Token, kind command.Kind, global bool) (*command.Command, bool, error) {
	n, err := m.scanRegisterIndex()
	if err != nil {
		return nil, true, err
	}
	cmd, err := m.parseRegisterAssignRest(head, kind, global, n)
	return cmd, true, err
}

func (m *Mouth) parseRegisterAssignRest(head token.Token, kind command.Kind, global bool, n byte) (*command.Command, error) {
	if err := m.matchEquals(); err != nil {
		return nil, err
	}
	var v int32
	var err error
	if kind == command.KAssignDimension {
		v, err = m.ScanDimen()
	} else {
		v, err = m.ScanInt()
	}
	if err != nil {
		return nil, err
	}
	return &command.Command{Kind: kind, Pos: head.Pos, Global: global, RegisterIndex: n, Op: command.OpSet, IntValue: v}, nil
}

func (m *Mouth) parseGlueAssign(head token.Token, kind command.Kind, global bool) (*command.Command, bool, error) {
	n, err := m.scanRegisterIndex()
	if err != nil {
		return nil, true, err
	}
	cmd, err := m.parseGlueAssignRest(head, kind, global, n)
	return cmd, true, err
}

func (m *Mouth) parseGlueAssignRest(head token.Token, kind command.Kind, global bool, n byte) (*command.Command, error) {
	if err := m.matchEquals(); err != nil {
		return nil, err
	}
	g, err := m.ScanGlue()
	if err != nil {
		return nil, err
	}
	cmd := &command.Command{Kind: kind, Pos: head.Pos, Global: global, RegisterIndex: n, Op: command.OpSet}
	cmd.GlueValue.Value = g.Value
	cmd.GlueValue.Stretch = g.Stretch.Value
	cmd.GlueValue.StretchOrder = int8(g.Stretch.Order)
	cmd.GlueValue.Shrink = g.Shrink.Value
	cmd.GlueValue.ShrinkOrder = int8(g.Shrink.Order)
	return cmd, nil
}

func (m *Mouth) parseToksAssign(head token.Token, global bool) (*command.Command, bool, error) {
	n, err := m.scanRegisterIndex()
	if err != nil {
		return nil, true, err
	}
	cmd, err := m.parseToksAssignRest(head, global, n)
	return cmd, true, err
}

func (m *Mouth) parseToksAssignRest(head token.Token, global bool, n byte) (*command.Command, error) {
	if err := m.matchEquals(); err != nil {
		return nil, err
	}
	grp, err := m.ReadGroup(false, true, false, false)
	if err != nil {
		return nil, err
	}
	return &command.Command{Kind: command.KAssignTokens, Pos: head.Pos, Global: global, RegisterIndex: n, Tokens: grp.Inner}, nil
}

func (m *Mouth) parseCodeAssign(head token.Token, kind command.Kind, global bool) (*command.Command, bool, error) {
	idx, err := m.scanCodeTableIndex()
	if err != nil {
		return nil, true, err
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	v, err := m.ScanInt()
	if err != nil {
		return nil, true, err
	}
	if kind == command.KAssignCatCode {
		if _, err := CatNumberBound(v, head.Pos); err != nil {
			return nil, true, err
		}
	}
	return &command.Command{Kind: kind, Pos: head.Pos, Global: global, Char1: idx, IntValue: v}, true, nil
}

func (m *Mouth) parseShorthandDef(head token.Token, kind command.Kind, global bool) (*command.Command, bool, error) {
	csTok, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	if csTok.Kind != token.KindControlSequence {
		return nil, true, texerr.New(texerr.ErrParse, csTok.Pos, "missing control sequence inserted")
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	v, err := m.ScanInt()
	if err != nil {
		return nil, true, err
	}
	cmd := &command.Command{Kind: kind, Pos: head.Pos, Global: global, TargetCS: csTok.Name}
	if kind == command.KAssignCharDef {
		cv, err := CharBound(v, head.Pos)
		if err != nil {
			return nil, true, err
		}
		cmd.IntValue = cv
	} else {
		rv, err := Bit8(v, head.Pos)
		if err != nil {
			return nil, true, err
		}
		cmd.RegisterIndex = rv
	}
	return cmd, true, nil
}

// --- \advance/\multiply/\divide --------------------------------------------

func (m *Mouth) parseArith(head token.Token, global bool) (*command.Command, bool, error) {
	op := command.OpAdvance
	switch head.Name {
	case "multiply":
		op = command.OpMultiply
	case "divide":
		op = command.OpDivide
	}
	lhs, err := m.Read()
	if err != nil {
		return nil, true, err
	}
	kind, regIndex, err := m.resolveArithTarget(lhs)
	if err != nil {
		return nil, true, err
	}
	if _, err := m.matchByKeyword(); err != nil {
		return nil, true, err
	}

	cmd := &command.Command{Kind: kind, Pos: head.Pos, Global: global, RegisterIndex: regIndex, Op: op}
	switch kind {
	case command.KAssignDimension:
		v, err := m.ScanDimen()
		if err != nil {
			return nil, true, err
		}
		cmd.IntValue = v
	case command.KAssignGlue, command.KAssignMuGlue:
		g, err := m.ScanGlue()
		if err != nil {
			return nil, true, err
		}
		cmd.GlueValue.Value = g.Value
		cmd.GlueValue.Stretch = g.Stretch.Value
		cmd.GlueValue.StretchOrder = int8(g.Stretch.Order)
		cmd.GlueValue.Shrink = g.Shrink.Value
		cmd.GlueValue.ShrinkOrder = int8(g.Shrink.Order)
	default:
		v, err := m.ScanInt()
		if err != nil {
			return nil, true, err
		}
		cmd.IntValue = v
	}
	return cmd, true, nil
}

func (m *Mouth) resolveArithTarget(t token.Token) (command.Kind, byte, error) {
	if t.Kind == token.KindControlSequence {
		switch t.Name {
		case "count":
			n, err := m.scanRegisterIndex()
			return command.KAssignCounter, n, err
		case "dimen":
			n, err := m.scanRegisterIndex()
			return command.KAssignDimension, n, err
		case "skip":
			n, err := m.scanRegisterIndex()
			return command.KAssignGlue, n, err
		case "muskip":
			n, err := m.scanRegisterIndex()
			return command.KAssignMuGlue, n, err
		}
		if def, ok := m.Env.Lookup(t.Name); ok {
			switch def.Kind {
			case token.CSCounterRef:
				return command.KAssignCounter, def.RegisterIndex, nil
			case token.CSDimensionRef:
				return command.KAssignDimension, def.RegisterIndex, nil
			case token.CSGlueRef:
				return command.KAssignGlue, def.RegisterIndex, nil
			case token.CSMuglueRef:
				return command.KAssignMuGlue, def.RegisterIndex, nil
			}
		}
	}
	return 0, 0, texerr.New(texerr.ErrParse, t.Pos, "you can't use '%s' after \\advance", t.String())
}

// --- fonts ------------------------------------------------------------

// parseFontAssign implements \font\cs=<filename> (spec.md §4.2.8). The "at
// <dimen>" / "scaled <int>" size modifiers original TeX allows here are
// out of scope: there is no font-metrics subsystem behind this binding to
// apply them to (spec.md §1 Non-goals), so only the plain form is parsed.
func (m *Mouth) parseFontAssign(head token.Token, global bool) (*command.Command, bool, error) {
	csTok, err := m.Raw()
	if err != nil {
		return nil, true, err
	}
	if csTok.Kind != token.KindControlSequence {
		return nil, true, texerr.New(texerr.ErrParse, csTok.Pos, "missing control sequence inserted for \\font")
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	fname, err := m.scanFileName()
	if err != nil {
		return nil, true, err
	}
	return &command.Command{Kind: command.KAssignFont, Pos: head.Pos, Global: global, TargetCS: csTok.Name, Name: fname}, true, nil
}

func (m *Mouth) parseFontFamilyAssign(head token.Token, global bool) (*command.Command, bool, error) {
	n, err := m.ScanInt()
	if err != nil {
		return nil, true, err
	}
	idx, err := Bit8(n, head.Pos)
	if err != nil {
		return nil, true, err
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	fname, err := m.scanFontIdent()
	if err != nil {
		return nil, true, err
	}
	return &command.Command{Kind: command.KAssignFontFamily, Pos: head.Pos, Global: global, FontFamilyIndex: int(idx), Name: fname}, true, nil
}

func (m *Mouth) parseFontDimenAssign(head token.Token, global bool) (*command.Command, bool, error) {
	idx, err := m.ScanInt()
	if err != nil {
		return nil, true, err
	}
	fname, err := m.scanFontIdent()
	if err != nil {
		return nil, true, err
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	v, err := m.ScanDimen()
	if err != nil {
		return nil, true, err
	}
	return &command.Command{Kind: command.KAssignFontDimen, Pos: head.Pos, Global: global, Name: fname, FontParamIndex: int(idx), IntValue: v}, true, nil
}

func (m *Mouth) parseFontCharAssign(head token.Token, global bool) (*command.Command, bool, error) {
	fname, err := m.scanFontIdent()
	if err != nil {
		return nil, true, err
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	v, err := m.ScanInt()
	if err != nil {
		return nil, true, err
	}
	kind := command.KAssignHyphenChar
	if head.Name == "skewchar" {
		kind = command.KAssignSkewChar
	}
	return &command.Command{Kind: kind, Pos: head.Pos, Global: global, Name: fname, IntValue: v}, true, nil
}

// parseBoxDimenAssign implements \ht/\wd/\dp k = d (spec.md §4.2.8): which
// of the three box dimensions is recorded in Char1 ('h'/'w'/'d') since
// command.Command has no dedicated field for it.
func (m *Mouth) parseBoxDimenAssign(head token.Token, global bool) (*command.Command, bool, error) {
	n, err := m.scanRegisterIndex()
	if err != nil {
		return nil, true, err
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	v, err := m.ScanDimen()
	if err != nil {
		return nil, true, err
	}
	which := map[string]rune{"ht": 'h', "wd": 'w', "dp": 'd'}[head.Name]
	return &command.Command{Kind: command.KAssignBoxDimen, Pos: head.Pos, Global: global, RegisterIndex: n, Char1: which, IntValue: v}, true, nil
}

func (m *Mouth) parseSetBox(head token.Token, global bool) (*command.Command, bool, error) {
	n, err := m.scanRegisterIndex()
	if err != nil {
		return nil, true, err
	}
	if err := m.matchEquals(); err != nil {
		return nil, true, err
	}
	nt, err := m.Read()
	if err != nil {
		return nil, true, err
	}
	if nt.Kind != token.KindControlSequence || (nt.Name != "hbox" && nt.Name != "vbox" && nt.Name != "vtop") {
		return nil, true, texerr.New(texerr.ErrParse, nt.Pos, "missing \\hbox/\\vbox/\\vtop inserted for \\setbox")
	}
	if _, err := m.ReadGroup(false, false, false, false); err != nil {
		return nil, true, err
	}
	return &command.Command{Kind: command.KSetBox, Pos: head.Pos, Global: global, RegisterIndex: n}, true, nil
}
