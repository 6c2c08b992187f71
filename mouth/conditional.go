package mouth

import (
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// expandIf is the single entry point the primitive table registers for
// every if-family name (spec.md §4.2.4). It swallows the head token,
// evaluates the condition (or, for \ifcase, scans an integer selector),
// then skips to the chosen branch and pushes it back for re-reading.
func expandIf(m *Mouth, head token.Token) error {
	m.swallow()

	if head.Name == "ifcase" {
		n, err := m.ScanInt()
		if err != nil {
			return err
		}
		return m.selectCase(int(n))
	}

	cond, err := m.evaluateCondition(head)
	if err != nil {
		return err
	}
	return m.selectBranch(cond)
}

func (m *Mouth) evaluateCondition(head token.Token) (bool, error) {
	switch head.Name {
	case "ifnum":
		return m.compareNum()
	case "ifdim":
		return m.compareDim()
	case "ifodd":
		n, err := m.ScanInt()
		if err != nil {
			return false, err
		}
		return n%2 != 0, nil
	case "ifvmode":
		return m.Env.Mode.IsVertical(), nil
	case "ifhmode":
		return m.Env.Mode.IsHorizontal(), nil
	case "ifmmode":
		return m.Env.Mode.IsMath(), nil
	case "ifinner":
		return m.Env.Mode.IsInner(), nil
	case "if":
		t1, err := m.Read()
		if err != nil {
			return false, err
		}
		t2, err := m.Read()
		if err != nil {
			return false, err
		}
		return m.charCodeOf(t1) == m.charCodeOf(t2), nil
	case "ifcat":
		t1, err := m.Read()
		if err != nil {
			return false, err
		}
		t2, err := m.Read()
		if err != nil {
			return false, err
		}
		return m.catCodeOf(t1) == m.catCodeOf(t2), nil
	case "ifx":
		t1, err := m.Raw()
		if err != nil {
			return false, err
		}
		t2, err := m.Raw()
		if err != nil {
			return false, err
		}
		return m.meaningEqual(t1, t2), nil
	case "iftrue":
		return true, nil
	case "iffalse":
		return false, nil
	default:
		return false, texerr.New(texerr.ErrInternal, head.Pos, "unhandled conditional %s", head.Name)
	}
}

func (m *Mouth) compareNum() (bool, error) {
	a, err := m.ScanInt()
	if err != nil {
		return false, err
	}
	rel, err := m.scanRelation()
	if err != nil {
		return false, err
	}
	b, err := m.ScanInt()
	if err != nil {
		return false, err
	}
	return applyRelation(rel, int64(a), int64(b)), nil
}

func (m *Mouth) compareDim() (bool, error) {
	a, err := m.ScanDimen()
	if err != nil {
		return false, err
	}
	rel, err := m.scanRelation()
	if err != nil {
		return false, err
	}
	b, err := m.ScanDimen()
	if err != nil {
		return false, err
	}
	return applyRelation(rel, int64(a), int64(b)), nil
}

func (m *Mouth) scanRelation() (rune, error) {
	t, err := m.skipSpacesRead()
	if err != nil {
		return 0, err
	}
	if t.Kind == token.KindCharacter && (t.Char == '<' || t.Char == '=' || t.Char == '>') {
		return t.Char, nil
	}
	return 0, texerr.New(texerr.ErrParse, t.Pos, "missing = inserted for \\ifnum")
}

func applyRelation(rel rune, a, b int64) bool {
	switch rel {
	case '<':
		return a < b
	case '>':
		return a > b
	default:
		return a == b
	}
}

// charCodeOf implements the §4.2.4 \if character-code rule: a control
// sequence compares as the character it is aliased to via \let, or code
// 255 if it names anything else (including "undefined").
func (m *Mouth) charCodeOf(t token.Token) rune {
	switch t.Kind {
	case token.KindCharacter:
		return t.Char
	case token.KindControlSequence:
		if def, ok := m.Env.Lookup(t.Name); ok {
			switch def.Kind {
			case token.CSCharAlias:
				return def.Char.Char
			case token.CSCsAlias:
				if def.Alias.Kind == token.KindCharacter {
					return def.Alias.Char
				}
			}
		}
		return 255
	default:
		return 255
	}
}

func (m *Mouth) catCodeOf(t token.Token) token.Category {
	switch t.Kind {
	case token.KindCharacter:
		return t.Category
	case token.KindControlSequence:
		if def, ok := m.Env.Lookup(t.Name); ok {
			switch def.Kind {
			case token.CSCharAlias:
				return def.Char.Category
			case token.CSCsAlias:
				if def.Alias.Kind == token.KindCharacter {
					return def.Alias.Category
				}
			}
		}
		return 16 // no character has this category; forces inequality
	default:
		return 16
	}
}

// meaningEqual implements \ifx: two raw tokens are equal if they are
// identical characters, or control sequences with the same meaning
// (spec.md §4.2.4).
func (m *Mouth) meaningEqual(t1, t2 token.Token) bool {
	if t1.Kind == token.KindCharacter && t2.Kind == token.KindCharacter {
		return t1.Char == t2.Char && t1.Category == t2.Category
	}
	if t1.Kind != token.KindControlSequence || t2.Kind != token.KindControlSequence {
		return false
	}
	resolve := func(t token.Token) *token.Def {
		if d, ok := m.Env.Lookup(t.Name); ok {
			return d
		}
		if !t.Active && IsPrimitive(t.Name) {
			return &token.Def{Kind: token.CSPrimitive, PrimitiveName: t.Name}
		}
		return nil
	}
	d1, d2 := resolve(t1), resolve(t2)
	if d1 == nil || d2 == nil {
		return d1 == nil && d2 == nil // both undefined
	}
	return defsEqual(d1, d2)
}

func defsEqual(d1, d2 *token.Def) bool {
	if d1.Kind != d2.Kind {
		return false
	}
	switch d1.Kind {
	case token.CSMacro:
		if d1.Long != d2.Long || d1.Outer != d2.Outer {
			return false
		}
		if len(d1.Params) != len(d2.Params) || len(d1.Replacement) != len(d2.Replacement) {
			return false
		}
		for i := range d1.Params {
			if !d1.Params[i].Equal(d2.Params[i]) {
				return false
			}
		}
		for i := range d1.Replacement {
			if !d1.Replacement[i].Equal(d2.Replacement[i]) {
				return false
			}
		}
		return true
	case token.CSPrimitive:
		return d1.PrimitiveName == d2.PrimitiveName
	case token.CSCharAlias:
		return d1.Char.Equal(d2.Char)
	case token.CSCsAlias:
		return d1.Alias.Equal(d2.Alias)
	case token.CSCounterRef, token.CSDimensionRef, token.CSGlueRef, token.CSMuglueRef, token.CSTokenListRef:
		return d1.RegisterIndex == d2.RegisterIndex
	case token.CSFontRef:
		return d1.FontFamily == d2.FontFamily
	default:
		return true
	}
}

// isIfPrimitiveName reports whether name opens a conditional, used by the
// branch-skipping scanner to track nesting level.
func isIfPrimitiveName(name string) bool {
	switch name {
	case "ifnum", "ifdim", "ifodd", "ifvmode", "ifhmode", "ifmmode", "ifinner",
		"if", "ifcat", "ifx", "iftrue", "iffalse", "ifcase":
		return true
	}
	return false
}

// selectBranch scans the then/else branches with expansion suppressed at
// the top level (branch skipping looks only at raw \if.../\else/\fi
// structure, spec.md §4.2.4) and pushes back the chosen one.
func (m *Mouth) selectBranch(cond bool) error {
	var thenList, elseList []token.Token
	level := 0
	inElse := false
	for {
		t, err := m.Raw()
		if err != nil {
			return texerr.New(texerr.ErrExpansion, t.Pos, "input ended inside a conditional")
		}
		if t.Kind == token.KindControlSequence {
			switch {
			case isIfPrimitiveName(t.Name):
				level++
			case t.Name == "fi":
				if level == 0 {
					if cond {
						m.PushBack(thenList)
					} else {
						m.PushBack(elseList)
					}
					return nil
				}
				level--
			case t.Name == "else":
				if level == 0 {
					inElse = true
					continue
				}
			}
		}
		if inElse {
			elseList = append(elseList, t)
		} else {
			thenList = append(thenList, t)
		}
	}
}

// selectCase scans the \or-separated case lists of \ifcase and pushes back
// the n-th (0-indexed), or the \else branch if n is out of range.
func (m *Mouth) selectCase(n int) error {
	var caseLists [][]token.Token
	var elseList []token.Token
	var current []token.Token
	level := 0
	inElse := false
	for {
		t, err := m.Raw()
		if err != nil {
			return texerr.New(texerr.ErrExpansion, t.Pos, "input ended inside \\ifcase")
		}
		if t.Kind == token.KindControlSequence {
			switch {
			case isIfPrimitiveName(t.Name):
				level++
			case t.Name == "fi":
				if level == 0 {
					if inElse {
						elseList = current
					} else {
						caseLists = append(caseLists, current)
					}
					var chosen []token.Token
					if n >= 0 && n < len(caseLists) {
						chosen = caseLists[n]
					} else {
						chosen = elseList
					}
					m.PushBack(chosen)
					return nil
				}
				level--
			case t.Name == "or":
				if level == 0 && !inElse {
					caseLists = append(caseLists, current)
					current = nil
					continue
				}
			case t.Name == "else":
				if level == 0 && !inElse {
					caseLists = append(caseLists, current)
					current = nil
					inElse = true
					continue
				}
			}
		}
		current = append(current, t)
	}
}
