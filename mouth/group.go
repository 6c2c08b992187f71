package mouth

import (
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// ReadGroup implements spec.md §4.3.1 group(reverted?, allowOuter?,
// withParams?). expand selects whether the group body is read through
// Read (expanding) or Raw (not); reverted selects whether Inner is stored
// forward (reverted=false) or reversed (reverted=true, used when the
// caller is about to store it as replacement text, spec.md §3
// ControlSequence "replacement: stored in reverse").
func (m *Mouth) ReadGroup(expand, allowOuter, withParams, reverted bool) (token.Token, error) {
	open, err := m.next(expand)
	if err != nil {
		return token.Token{}, err
	}
	if open.Kind != token.KindCharacter || open.Category != token.CatBeginGroup {
		return token.Token{}, texerr.New(texerr.ErrParse, open.Pos, "expected begin-group character, got %q", open.String())
	}

	var inner []token.Token
	depth := 0
	for {
		t, err := m.next(expand)
		if err != nil {
			return token.Token{}, texerr.New(texerr.ErrExpansion, open.Pos, "input ended inside a group: %v", err)
		}

		if t.Kind == token.KindCharacter && t.Category == token.CatBeginGroup {
			depth++
			inner = append(inner, t)
			continue
		}
		if t.Kind == token.KindCharacter && t.Category == token.CatEndGroup {
			if depth == 0 {
				if reverted {
					inner = reverse(inner)
				}
				return token.NewGroup(open, inner, t), nil
			}
			depth--
			inner = append(inner, t)
			continue
		}

		if !allowOuter && m.isOuterMacro(t) {
			return token.Token{}, texerr.New(texerr.ErrExpansion, t.Pos, "outer macro %s used where forbidden", t.Name)
		}

		if withParams && t.Kind == token.KindCharacter && t.Category == token.CatParameter {
			pt, err := m.parseParamToken(t)
			if err != nil {
				return token.Token{}, err
			}
			inner = append(inner, pt)
			continue
		}

		inner = append(inner, t)
	}
}

// parseParamToken handles a parameter-character token seen while
// withParams is set: "#n" becomes Parameter(n), "##" becomes a literal
// "#" character token, per spec.md §4.3.1.
func (m *Mouth) parseParamToken(hash token.Token) (token.Token, error) {
	nxt, err := m.Raw()
	if err != nil {
		return token.Token{}, texerr.New(texerr.ErrParse, hash.Pos, "input ended after parameter character")
	}
	if nxt.Kind == token.KindCharacter && nxt.Category == token.CatParameter {
		return token.NewChar('#', token.CatOther, hash.Pos), nil
	}
	if nxt.Kind == token.KindCharacter && nxt.Char >= '1' && nxt.Char <= '9' {
		return token.NewParam(int(nxt.Char-'0'), hash.Pos), nil
	}
	return token.Token{}, texerr.New(texerr.ErrParse, nxt.Pos, "parameters must be numbered consecutively 1..9")
}

func (m *Mouth) isOuterMacro(t token.Token) bool {
	if t.Kind != token.KindControlSequence {
		return false
	}
	if def, ok := m.Env.Lookup(t.Name); ok && def.Kind == token.CSMacro {
		return def.Outer
	}
	return false
}

func (m *Mouth) next(expand bool) (token.Token, error) {
	if expand {
		return m.Read()
	}
	return m.Raw()
}

func reverse(ts []token.Token) []token.Token {
	out := make([]token.Token, len(ts))
	for i, t := range ts {
		out[len(ts)-1-i] = t
	}
	return out
}
