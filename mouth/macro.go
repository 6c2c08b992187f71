package mouth

import (
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// expandMacro implements spec.md §4.2.3: swallow the macro name, match its
// parameter template against the input with expansion disabled, then
// substitute the collected arguments into the (reverse-stored) replacement
// text and push the result back in natural order.
func (m *Mouth) expandMacro(head token.Token, def *token.Def) error {
	m.swallow()

	saved := m.Expand
	m.Expand = false
	args, err := m.matchArguments(def)
	m.Expand = saved
	if err != nil {
		return err
	}

	m.PushBack(substitute(def.Replacement, args, head.Pos))
	return nil
}

// matchArguments walks def.Params left to right, splitting it into fixed
// runs (matched literally against the input) and Parameter(i) slots, each
// followed by zero or more fixed tokens that delimit it.
func (m *Mouth) matchArguments(def *token.Def) (map[int][]token.Token, error) {
	args := map[int][]token.Token{}
	params := def.Params
	i := 0
	for i < len(params) {
		p := params[i]
		if p.Kind != token.KindParameter {
			t, err := m.Raw()
			if err != nil {
				return nil, err
			}
			if !t.Equal(p) {
				return nil, texerr.New(texerr.ErrParse, t.Pos, "use of macro doesn't match its definition")
			}
			i++
			continue
		}

		j := i + 1
		var delim []token.Token
		for j < len(params) && params[j].Kind != token.KindParameter {
			delim = append(delim, params[j])
			j++
		}

		var arg []token.Token
		var err error
		if len(delim) == 0 {
			arg, err = m.collectUndelimited(def.Long)
		} else {
			arg, err = m.collectDelimited(delim, def.Long)
		}
		if err != nil {
			return nil, err
		}
		args[p.ParamIndex] = arg
		i = j
	}
	return args, nil
}

// collectUndelimited reads a single argument: the contents of a balanced
// group if one follows immediately, otherwise exactly one token.
func (m *Mouth) collectUndelimited(isLong bool) ([]token.Token, error) {
	t, err := m.PeekRaw()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.KindCharacter && t.Category == token.CatBeginGroup {
		grp, err := m.ReadGroup(false, false, false, false)
		if err != nil {
			return nil, err
		}
		return grp.Inner, nil
	}

	tok, err := m.Raw()
	if err != nil {
		return nil, err
	}
	if err := m.checkArgumentToken(tok, isLong); err != nil {
		return nil, err
	}
	return []token.Token{tok}, nil
}

// collectDelimited reads raw tokens, treating an unmatched-brace span as
// opaque to delimiter matching, until the collected tail matches delim at
// group depth 0. A single "{" delimiter (the "#{" parameter-text rule, §
// 4.2.3) is matched as a terminator rather than as a group-opener.
func (m *Mouth) collectDelimited(delim []token.Token, isLong bool) ([]token.Token, error) {
	delimIsBrace := len(delim) == 1 && delim[0].Kind == token.KindCharacter && delim[0].Category == token.CatBeginGroup

	var collected []token.Token
	depth := 0
	for {
		t, err := m.PeekRaw()
		if err != nil {
			return nil, err
		}
		if depth == 0 && delimIsBrace && t.Kind == token.KindCharacter && t.Category == token.CatBeginGroup {
			return stripSurroundingBraces(collected), nil
		}

		m.swallow()
		if err := m.checkArgumentToken(t, isLong); err != nil {
			return nil, err
		}
		if t.Kind == token.KindCharacter && t.Category == token.CatBeginGroup {
			depth++
		} else if t.Kind == token.KindCharacter && t.Category == token.CatEndGroup {
			if depth == 0 {
				return nil, texerr.New(texerr.ErrParse, t.Pos, "argument of a macro has an extra }")
			}
			depth--
		}
		collected = append(collected, t)

		if depth == 0 && !delimIsBrace && tailMatches(collected, delim) {
			arg := collected[:len(collected)-len(delim)]
			return stripSurroundingBraces(arg), nil
		}
	}
}

func (m *Mouth) checkArgumentToken(t token.Token, isLong bool) error {
	if !isLong && t.IsCS("par") {
		return texerr.New(texerr.ErrExpansion, t.Pos, "paragraph ended before a macro's argument was complete")
	}
	if m.isOuterMacro(t) {
		return texerr.New(texerr.ErrExpansion, t.Pos, "outer macro %s used in a macro argument", t.Name)
	}
	return nil
}

func tailMatches(collected, delim []token.Token) bool {
	if len(collected) < len(delim) {
		return false
	}
	offset := len(collected) - len(delim)
	for i, d := range delim {
		if !collected[offset+i].Equal(d) {
			return false
		}
	}
	return true
}

// stripSurroundingBraces removes one matching pair of outer braces from
// arg when arg's entirety is exactly "{...}" (spec.md §4.2.3: "an argument
// that is a single {...} group has those braces stripped").
func stripSurroundingBraces(arg []token.Token) []token.Token {
	if len(arg) < 2 {
		return arg
	}
	if !(arg[0].Kind == token.KindCharacter && arg[0].Category == token.CatBeginGroup) {
		return arg
	}
	if !(arg[len(arg)-1].Kind == token.KindCharacter && arg[len(arg)-1].Category == token.CatEndGroup) {
		return arg
	}
	depth := 0
	for i, t := range arg {
		if t.Kind == token.KindCharacter && t.Category == token.CatBeginGroup {
			depth++
		} else if t.Kind == token.KindCharacter && t.Category == token.CatEndGroup {
			depth--
			if depth == 0 && i != len(arg)-1 {
				return arg
			}
		}
	}
	return arg[1 : len(arg)-1]
}

// substitute builds the macro's output in natural (forward) order from its
// reverse-stored replacement text, substituting each Parameter(i) with the
// matching collected argument and stacking positions so error messages can
// show the macro-call chain (spec.md §7).
func substitute(replRev []token.Token, args map[int][]token.Token, callPos token.Position) []token.Token {
	var out []token.Token
	for i := len(replRev) - 1; i >= 0; i-- {
		t := replRev[i]
		if t.Kind == token.KindParameter {
			for _, at := range args[t.ParamIndex] {
				at.Pos = at.Pos.Stack(callPos)
				out = append(out, at)
			}
			continue
		}
		t.Pos = t.Pos.Stack(callPos)
		out = append(out, t)
	}
	return out
}
