package mouth

import (
	"fmt"
	"strings"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// expandNumber implements \number<number>, rendering the parsed integer as
// a run of character tokens of category other (with a leading "-" for
// negative values), per spec.md §4.2.6.
func expandNumber(m *Mouth, head token.Token) error {
	m.swallow()
	n, err := m.ScanInt()
	if err != nil {
		return err
	}
	m.PushBack(digitsToTokens(fmt.Sprintf("%d", n), head.Pos))
	return nil
}

// expandRomannumeral implements \romannumeral<number>: a lowercase Roman
// numeral rendering of the parsed integer, empty for non-positive values.
func expandRomannumeral(m *Mouth, head token.Token) error {
	m.swallow()
	n, err := m.ScanInt()
	if err != nil {
		return err
	}
	m.PushBack(digitsToTokens(toRoman(n), head.Pos))
	return nil
}

func toRoman(n int32) string {
	if n <= 0 {
		return ""
	}
	vals := []struct {
		v int32
		s string
	}{
		{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
		{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
		{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
	}
	var sb strings.Builder
	for _, p := range vals {
		for n >= p.v {
			sb.WriteString(p.s)
			n -= p.v
		}
	}
	return sb.String()
}

// digitsToTokens renders s as a sequence of category-other character
// tokens, except for a leading '-' which also gets category other (it is
// not a letter either way).
func digitsToTokens(s string, pos token.Position) []token.Token {
	out := make([]token.Token, 0, len(s))
	for _, c := range s {
		out = append(out, token.NewChar(c, token.CatOther, pos))
	}
	return out
}

// expandString implements \string<token>: the token's printed
// representation, one character-other token per rune (no space is added
// after a control word), with the escape character re-rendered as category other
// rather than escape (spec.md §4.2.6).
func expandString(m *Mouth, head token.Token) error {
	m.swallow()
	t, err := m.Raw()
	if err != nil {
		return err
	}
	var s string
	switch t.Kind {
	case token.KindCharacter:
		s = string(t.Char)
	case token.KindControlSequence:
		if t.Active {
			s = t.Name
		} else {
			s = string(m.Env.Escape) + t.Name
		}
	default:
		s = t.String()
	}
	m.PushBack(digitsToTokens(s, head.Pos))
	return nil
}

// expandMeaning implements \meaning<token>: the §4.2.6 taxonomy text for a
// control sequence's current binding, or the character's category phrase
// for a plain character token.
func expandMeaning(m *Mouth, head token.Token) error {
	m.swallow()
	t, err := m.Raw()
	if err != nil {
		return err
	}
	var s string
	switch t.Kind {
	case token.KindCharacter:
		s = t.Category.MeaningWord() + " " + string(t.Char)
	case token.KindControlSequence:
		if def, ok := m.Env.Lookup(t.Name); ok {
			s = def.Meaning(m.Env.Escape)
		} else if !t.Active && IsPrimitive(t.Name) {
			s = string(m.Env.Escape) + t.Name
		} else {
			s = "undefined"
		}
	default:
		s = "undefined"
	}
	m.PushBack(digitsToTokens(s, head.Pos))
	return nil
}

// expandCsname implements \csname...\endcsname (spec.md §4.2.7): the
// tokens up to the matching \endcsname are expanded and must all be plain
// characters; their concatenated characters form a control sequence name,
// defined as \relax if it has no current meaning.
func expandCsname(m *Mouth, head token.Token) error {
	m.swallow()
	var name []rune
	for {
		t, err := m.Read()
		if err != nil {
			return texerr.New(texerr.ErrExpansion, head.Pos, "input ended inside \\csname")
		}
		if t.IsCS("endcsname") {
			break
		}
		if t.Kind != token.KindCharacter {
			return texerr.New(texerr.ErrExpansion, t.Pos, "missing \\endcsname inserted")
		}
		name = append(name, t.Char)
	}
	csName := string(name)
	if _, ok := m.Env.Lookup(csName); !ok {
		m.Env.Define(csName, &token.Def{Kind: token.CSPrimitive, PrimitiveName: "relax"}, false)
	}
	m.PushOne(token.NewCS(csName, false, head.Pos))
	return nil
}

// expandExpandafter implements \expandafter<t1><t2>: t1 is saved unexpanded,
// t2 is expanded exactly one step, then t1 is reinserted in front of the
// result (spec.md §4.2.2).
func expandExpandafter(m *Mouth, head token.Token) error {
	m.swallow()
	t1, err := m.Raw()
	if err != nil {
		return err
	}
	t2, err := m.Raw()
	if err != nil {
		return err
	}
	if t2.Kind == token.KindControlSequence {
		m.PushOne(t2)
		stop, result, err := m.expandOne(t2)
		if err != nil {
			return err
		}
		if stop {
			m.PushOne(result)
		}
	} else {
		m.PushOne(t2)
	}
	m.PushOne(t1)
	return nil
}

// expandNoexpand implements \noexpand<token>: the next token is read raw
// and reinserted with its NoExpand flag set, making Read treat it as
// unexpandable the one time it is read back (spec.md §4.2.2).
func expandNoexpand(m *Mouth, head token.Token) error {
	m.swallow()
	t, err := m.Raw()
	if err != nil {
		return err
	}
	if t.Kind == token.KindControlSequence {
		t.NoExpand = true
	}
	m.PushOne(t)
	return nil
}

// expandThe implements \the<internal quantity>: the textual rendering
// described in SPEC_FULL.md's "\the textual formatting" supplement — decimal
// for integers, "<sp>pt" (rounded, with only as many fractional digits as
// dimenText needs) for dimensions, dimension-with-"plus ... minus ..." for glue,
// and the stored token list verbatim for \toks.
func expandThe(m *Mouth, head token.Token) error {
	m.swallow()
	t, err := m.Read()
	if err != nil {
		return err
	}
	text, isToks, toks, err := m.theText(t)
	if err != nil {
		return err
	}
	if isToks {
		m.PushBack(toks)
		return nil
	}
	m.PushBack(digitsToTokens(text, head.Pos))
	return nil
}

func (m *Mouth) theText(t token.Token) (text string, isToks bool, toks []token.Token, err error) {
	if t.Kind == token.KindControlSequence {
		switch t.Name {
		case "toks":
			n, e := m.scanRegisterIndex()
			if e != nil {
				return "", false, nil, e
			}
			return "", true, m.Env.Toks(n), nil
		case "skip":
			n, e := m.scanRegisterIndex()
			if e != nil {
				return "", false, nil, e
			}
			return glueText(m.Env.Skip(n)), false, nil, nil
		case "muskip":
			n, e := m.scanRegisterIndex()
			if e != nil {
				return "", false, nil, e
			}
			return glueText(m.Env.MuSkip(n)) + "mu", false, nil, nil
		}
		if def, ok := m.Env.Lookup(t.Name); ok {
			switch def.Kind {
			case token.CSTokenListRef:
				return "", true, m.Env.Toks(def.RegisterIndex), nil
			case token.CSGlueRef, token.CSMuglueRef:
				return glueText(m.Env.Skip(def.RegisterIndex)), false, nil, nil
			case token.CSDimensionRef:
				return dimenText(m.Env.Dimen(def.RegisterIndex)), false, nil, nil
			}
		}
	}
	if v, ok, e := m.tryInternalDimen(t); e != nil {
		return "", false, nil, e
	} else if ok {
		return dimenText(v), false, nil, nil
	}
	if v, ok, e := m.tryInternalInt(t); e != nil {
		return "", false, nil, e
	} else if ok {
		return fmt.Sprintf("%d", v), false, nil, nil
	}
	return "", false, nil, texerr.New(texerr.ErrParse, t.Pos, "you can't use '%s' after \\the", t.String())
}

// dimenText renders sp scaled points the way *The TeX Book* §103's
// print_scaled procedure does: the whole-number part verbatim, then a
// self-terminating, rounding (not truncating) fractional digit loop that
// stops as soon as the remaining error is provably below half a unit.
func dimenText(sp int32) string {
	sign := ""
	if sp < 0 {
		sign = "-"
		sp = -sp
	}
	whole := sp / 65536
	var b strings.Builder
	b.WriteString(sign)
	fmt.Fprintf(&b, "%d.", whole)

	s := int64(sp%65536)*10 + 5
	n := int64(10)
	for {
		if n > 65536 {
			s += 32768 - n/2
		}
		b.WriteByte(byte('0' + s/65536))
		s = 10 * (s % 65536)
		n *= 10
		if s <= n {
			break
		}
	}
	b.WriteString("pt")
	return b.String()
}

func glueText(g environment.Glue) string {
	s := dimenText(g.Value)
	if g.Stretch.Value != 0 {
		s += " plus " + amountText(g.Stretch)
	}
	if g.Shrink.Value != 0 {
		s += " minus " + amountText(g.Shrink)
	}
	return s
}

func amountText(a environment.Amount) string {
	switch a.Order {
	case environment.OrderFil:
		return dimenText(a.Value)[:len(dimenText(a.Value))-2] + "fil"
	case environment.OrderFill:
		return dimenText(a.Value)[:len(dimenText(a.Value))-2] + "fill"
	case environment.OrderFilll:
		return dimenText(a.Value)[:len(dimenText(a.Value))-2] + "filll"
	default:
		return dimenText(a.Value)
	}
}

// expandInput implements \input<filename>: a run of character tokens names
// the file, ended by a space (which is consumed) or by a non-character
// token (which is pushed back onto the mouth), and the opened file is
// pushed as a new input frame (spec.md §4.2.5). This module has no
// embedded filesystem access point of its own, so the caller wires a file
// opener in through the Mouth's Open field before driving the engine —
// here the name is resolved purely as a string and handed to m.Open.
func expandInput(m *Mouth, head token.Token) error {
	m.swallow()
	name, err := m.scanFileName()
	if err != nil {
		return err
	}
	if m.Open == nil {
		return texerr.New(texerr.ErrIO, head.Pos, "no file opener configured for \\input")
	}
	r, closer, err := m.Open(name)
	if err != nil {
		return texerr.New(texerr.ErrIO, head.Pos, "could not open %q: %v", name, err)
	}
	m.Env.PushInput(&environment.InputFrame{Name: name, Reader: r, Closer: closer, Line: 1})
	return nil
}

// expandEndinput implements \endinput: the current input frame is marked
// to close at the next end-of-line, rather than closing immediately, so
// whatever remains on the current line still runs (spec.md §4.2.5).
func expandEndinput(m *Mouth, head token.Token) error {
	m.swallow()
	if f := m.Env.CurrentInput(); f != nil {
		f.CloseAtEOL = true
	}
	return nil
}

func (m *Mouth) scanFileName() (string, error) {
	var name []rune
	for {
		t, err := m.Read()
		if err != nil {
			break
		}
		if t.Kind != token.KindCharacter {
			m.PushOne(t)
			break
		}
		if t.Category == token.CatSpace {
			break
		}
		name = append(name, t.Char)
	}
	if len(name) == 0 {
		return "", texerr.New(texerr.ErrParse, token.Position{}, "missing file name")
	}
	return string(name), nil
}
