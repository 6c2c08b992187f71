package mouth

import (
	"github.com/anttex/textex/command"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// driverPrimitives names every control sequence the command driver itself
// recognizes (as opposed to the expansion-time primitives of mouth.go's
// primitiveExpanders table). \meaning and \ifx treat both as "primitive".
var driverPrimitives = map[string]bool{
	"par": true, "relax": true, "end": true,
	"message": true, "errmessage": true, "showthe": true, "show": true,
	"uppercase": true, "lowercase": true,
	"def": true, "edef": true, "gdef": true, "xdef": true,
	"global": true, "long": true, "outer": true,
	"let": true, "futurelet": true,
	"count": true, "dimen": true, "skip": true, "muskip": true, "toks": true,
	"catcode": true, "mathcode": true, "lccode": true, "uccode": true,
	"sfcode": true, "delcode": true,
	"chardef": true, "countdef": true, "dimendef": true, "skipdef": true,
	"muskipdef": true, "toksdef": true,
	"advance": true, "multiply": true, "divide": true,
	"afterassignment": true, "aftergroup": true,
	"font": true, "textfont": true, "scriptfont": true, "scriptscriptfont": true,
	"fontdimen": true, "hyphenchar": true, "skewchar": true,
	"setbox": true, "hbox": true, "vbox": true, "vtop": true,
	"ht": true, "wd": true, "dp": true,
	"read": true,
}

func isDriverPrimitive(name string) bool {
	return driverPrimitives[name]
}

// NextCommand drives spec.md §4.3: read one expanded token, and either
// dispatch it directly (character, group delimiter, \par/\relax/\end) or
// parse the rest of an assignment/definition/diagnostic construct around
// it, returning the resulting Command for the stomach to execute.
func (m *Mouth) NextCommand() (*command.Command, error) {
	for {
		t, err := m.Read()
		if err != nil {
			return nil, err
		}

		if t.Kind == token.KindCharacter {
			switch t.Category {
			case token.CatBeginGroup:
				m.Env.EnterGroup()
				continue
			case token.CatEndGroup:
				queued := m.Env.LeaveGroup()
				if len(queued) > 0 {
					m.PushBack(queued)
				}
				continue
			default:
				return &command.Command{Kind: command.KTypeset, Pos: t.Pos, Char: t.Char}, nil
			}
		}

		// Opaque control sequence: either a driver primitive, a register/
		// font alias used bare, or a truly undefined name.
		if cmd, handled, err := m.dispatchPrimitive(t, false, false, false); err != nil {
			return nil, err
		} else if handled {
			if cmd == nil {
				continue // \relax and friends: no Command, read the next token
			}
			return cmd, nil
		}

		if def, ok := m.Env.Lookup(t.Name); ok {
			if cmd, err := m.dispatchAlias(t, def); err != nil {
				return nil, err
			} else if cmd != nil {
				return cmd, nil
			}
			continue
		}

		return nil, texerr.New(texerr.ErrExpansion, t.Pos, "undefined control sequence %s%s", string(m.Env.Escape), t.Name)
	}
}

// dispatchPrimitive handles driver primitives, including the \global/
// \long/\outer modifier prefixes which recurse with their flag set.
func (m *Mouth) dispatchPrimitive(t token.Token, global, long, outer bool) (*command.Command, bool, error) {
	if t.Kind != token.KindControlSequence || t.Active || !isDriverPrimitive(t.Name) {
		return nil, false, nil
	}

	switch t.Name {
	case "global":
		nt, err := m.Read()
		if err != nil {
			return nil, true, err
		}
		cmd, handled, err := m.dispatchPrimitive(nt, true, long, outer)
		if err != nil || !handled {
			return nil, true, err
		}
		if cmd != nil {
			cmd.Global = true
		}
		return cmd, true, nil
	case "long":
		nt, err := m.Read()
		if err != nil {
			return nil, true, err
		}
		cmd, handled, err := m.dispatchPrimitive(nt, global, true, outer)
		return cmd, handled, err
	case "outer":
		nt, err := m.Read()
		if err != nil {
			return nil, true, err
		}
		cmd, handled, err := m.dispatchPrimitive(nt, global, long, true)
		return cmd, handled, err

	case "relax":
		return nil, true, nil
	case "par":
		return &command.Command{Kind: command.KPar, Pos: t.Pos, Global: global}, true, nil
	case "end":
		return &command.Command{Kind: command.KEnd, Pos: t.Pos}, true, nil

	case "message", "errmessage":
		grp, err := m.ReadGroup(true, false, false, false)
		if err != nil {
			return nil, true, err
		}
		return &command.Command{Kind: command.KMessage, Pos: t.Pos, Tokens: grp.Inner, IsErr: t.Name == "errmessage"}, true, nil

	case "showthe":
		nt, err := m.Read()
		if err != nil {
			return nil, true, err
		}
		text, isToks, toks, err := m.theText(nt)
		if err != nil {
			return nil, true, err
		}
		out := toks
		if !isToks {
			out = digitsToTokens(text, t.Pos)
		}
		return &command.Command{Kind: command.KShowthe, Pos: t.Pos, Tokens: out}, true, nil

	case "show":
		nt, err := m.Raw()
		if err != nil {
			return nil, true, err
		}
		var s string
		if nt.Kind == token.KindCharacter {
			s = nt.Category.MeaningWord() + " " + string(nt.Char)
		} else if def, ok := m.Env.Lookup(nt.Name); ok {
			s = def.Meaning(m.Env.Escape)
		} else if !nt.Active && IsPrimitive(nt.Name) {
			s = string(m.Env.Escape) + nt.Name
		} else {
			s = "undefined"
		}
		return &command.Command{Kind: command.KShow, Pos: t.Pos, Tokens: digitsToTokens(s, t.Pos)}, true, nil

	case "uppercase", "lowercase":
		grp, err := m.ReadGroup(false, true, false, false)
		if err != nil {
			return nil, true, err
		}
		kind := command.KUppercase
		if t.Name == "lowercase" {
			kind = command.KLowercase
		}
		return &command.Command{Kind: kind, Pos: t.Pos, Tokens: grp.Inner}, true, nil

	case "def", "edef", "gdef", "xdef":
		return m.parseDef(t, global, long, outer)

	case "let":
		return m.parseLet(t, global)
	case "futurelet":
		return m.parseFutureLet(t, global)

	case "count":
		return m.parseRegisterAssign(t, command.KAssignCounter, global)
	case "dimen":
		return m.parseRegisterAssign(t, command.KAssignDimension, global)
	case "skip":
		return m.parseGlueAssign(t, command.KAssignGlue, global)
	case "muskip":
		return m.parseGlueAssign(t, command.KAssignMuGlue, global)
	case "toks":
		return m.parseToksAssign(t, global)

	case "catcode":
		return m.parseCodeAssign(t, command.KAssignCatCode, global)
	case "mathcode":
		return m.parseCodeAssign(t, command.KAssignMathCode, global)
	case "lccode":
		return m.parseCodeAssign(t, command.KAssignLcCode, global)
	case "uccode":
		return m.parseCodeAssign(t, command.KAssignUcCode, global)
	case "sfcode":
		return m.parseCodeAssign(t, command.KAssignSfCode, global)
	case "delcode":
		return m.parseCodeAssign(t, command.KAssignDelCode, global)

	case "chardef":
		return m.parseShorthandDef(t, command.KAssignCharDef, global)
	case "countdef":
		return m.parseShorthandDef(t, command.KAssignCounterDef, global)
	case "dimendef":
		return m.parseShorthandDef(t, command.KAssignDimensionDef, global)
	case "skipdef":
		return m.parseShorthandDef(t, command.KAssignGlueDef, global)
	case "muskipdef":
		return m.parseShorthandDef(t, command.KAssignMuGlueDef, global)
	case "toksdef":
		return m.parseShorthandDef(t, command.KAssignTokensDef, global)

	case "advance", "multiply", "divide":
		return m.parseArith(t, global)

	case "afterassignment":
		nt, err := m.Raw()
		if err != nil {
			return nil, true, err
		}
		m.Env.AfterAssignment = &nt
		return nil, true, nil
	case "aftergroup":
		nt, err := m.Raw()
		if err != nil {
			return nil, true, err
		}
		m.Env.QueueAfterGroup(nt)
		return nil, true, nil

	case "font":
		return m.parseFontAssign(t, global)
	case "textfont", "scriptfont", "scriptscriptfont":
		return m.parseFontFamilyAssign(t, global)
	case "fontdimen":
		return m.parseFontDimenAssign(t, global)
	case "hyphenchar", "skewchar":
		return m.parseFontCharAssign(t, global)

	case "ht", "wd", "dp":
		return m.parseBoxDimenAssign(t, global)

	case "setbox":
		return m.parseSetBox(t, global)
	case "hbox", "vbox", "vtop":
		kind := command.BoxHBox
		if t.Name == "vbox" {
			kind = command.BoxVBox
		} else if t.Name == "vtop" {
			kind = command.BoxVTop
		}
		if _, err := m.ReadGroup(false, false, false, false); err != nil {
			return nil, true, err
		}
		return &command.Command{Kind: command.KStartBox, Pos: t.Pos, BoxKind: kind}, true, nil

	case "read":
		n, err := m.ScanInt()
		if err != nil {
			return nil, true, err
		}
		if ok, err := m.matchKeyword("to"); err != nil {
			return nil, true, err
		} else if !ok {
			return nil, true, texerr.New(texerr.ErrParse, t.Pos, "missing 'to' inserted for \\read")
		}
		nt, err := m.Raw()
		if err != nil {
			return nil, true, err
		}
		return &command.Command{Kind: command.KRead, Pos: t.Pos, RegisterIndex: byte(n), TargetCS: nt.Name, Global: global}, true, nil
	}

	return nil, false, nil
}

// dispatchAlias handles a plain control sequence bound to a register/font
// alias used where an assignment starter was not found — e.g. \let\X=\foo
// then later bare "\X" used as a command is only meaningful for a few
// alias kinds, everything else is reported as unknown per spec.md §4.4.
func (m *Mouth) dispatchAlias(t token.Token, def *token.Def) (*command.Command, error) {
	switch def.Kind {
	case token.CSCharAlias:
		return &command.Command{Kind: command.KTypeset, Pos: t.Pos, Char: def.Char.Char}, nil
	case token.CSCounterRef:
		return m.parseRegisterAssignRest(t, command.KAssignCounter, false, def.RegisterIndex)
	case token.CSDimensionRef:
		return m.parseRegisterAssignRest(t, command.KAssignDimension, false, def.RegisterIndex)
	case token.CSGlueRef:
		return m.parseGlueAssignRest(t, command.KAssignGlue, false, def.RegisterIndex)
	case token.CSMuglueRef:
		return m.parseGlueAssignRest(t, command.KAssignMuGlue, false, def.RegisterIndex)
	case token.CSTokenListRef:
		return m.parseToksAssignRest(t, false, def.RegisterIndex)
	case token.CSPrimitive:
		// \let\a=\relax and similar: re-dispatch under the aliased
		// primitive's own name. Primitives that only make sense at
		// expansion time (\the, \number, ...) are not reachable this way
		// since Read would have expanded them before NextCommand saw \a.
		synthetic := t
		synthetic.Name = def.PrimitiveName
		cmd, handled, err := m.dispatchPrimitive(synthetic, false, false, false)
		if err != nil {
			return nil, err
		}
		if handled {
			return cmd, nil
		}
		return nil, texerr.New(texerr.ErrExpansion, t.Pos, "you can't use %s%s in this context", string(m.Env.Escape), t.Name)
	default:
		return nil, texerr.New(texerr.ErrExpansion, t.Pos, "you can't use %s%s in this context", string(m.Env.Escape), t.Name)
	}
}

// matchEquals implements spec.md §4.2.8's "optional spaces, optional '=',
// optional one more space" assignment-separator grammar.
func (m *Mouth) matchEquals() error {
	if _, err := m.matchKeyword("="); err != nil {
		return err
	}
	t, err := m.Read()
	if err != nil {
		return err
	}
	if !isSpaceTok(t) {
		m.PushOne(t)
	}
	return nil
}
