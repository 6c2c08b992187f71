package mouth

import (
	"strconv"
	"strings"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/internal/lexpat"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// Number/dimension/glue parsing, spec.md §4.3.2. These are called both
// from the assignment grammar (assign.go) and from the \ifnum/\ifdim/
// \number/\romannumeral expansion primitives.

// ScanInt parses <signs><unsigned integer>.
func (m *Mouth) ScanInt() (int32, error) {
	sign, err := m.scanSigns()
	if err != nil {
		return 0, err
	}
	v, err := m.scanUnsignedInt()
	if err != nil {
		return 0, err
	}
	return sign * v, nil
}

func (m *Mouth) scanSigns() (int32, error) {
	sign := int32(1)
	for {
		t, err := m.Read()
		if err != nil {
			return 0, err
		}
		switch {
		case isSpaceTok(t):
			continue
		case t.Kind == token.KindCharacter && t.Char == '+':
			continue
		case t.Kind == token.KindCharacter && t.Char == '-':
			sign = -sign
			continue
		default:
			m.PushOne(t)
			return sign, nil
		}
	}
}

func (m *Mouth) scanUnsignedInt() (int32, error) {
	// consume leading spaces
	t, err := m.skipSpacesRead()
	if err != nil {
		return 0, err
	}
	switch {
	case isDigit(t):
		return m.scanDecimalInt(t)
	case isCharOther(t, '\''):
		return m.scanOctal()
	case isCharOther(t, '"'):
		return m.scanHex()
	case isCharOther(t, '`'):
		return m.scanAlphaConstant()
	default:
		if v, ok, err := m.tryInternalInt(t); err != nil {
			return 0, err
		} else if ok {
			return v, nil
		}
		return 0, texerr.New(texerr.ErrParse, t.Pos, "missing number, treated as zero")
	}
}

func (m *Mouth) scanDecimalInt(first token.Token) (int32, error) {
	digits := []rune{first.Char}
	for {
		t, err := m.Read()
		if err != nil {
			break
		}
		if isDigit(t) {
			digits = append(digits, t.Char)
			continue
		}
		if !isSpaceTok(t) {
			m.PushOne(t)
		}
		break
	}
	n, _ := strconv.ParseInt(string(digits), 10, 64)
	return int32(n), nil
}

func (m *Mouth) scanOctal() (int32, error) {
	var digits []rune
	for {
		t, err := m.Read()
		if err != nil {
			break
		}
		if t.Kind == token.KindCharacter && t.Char >= '0' && t.Char <= '7' {
			digits = append(digits, t.Char)
			continue
		}
		if !isSpaceTok(t) {
			m.PushOne(t)
		}
		break
	}
	if len(digits) == 0 {
		return 0, texerr.New(texerr.ErrParse, token.Position{}, "missing octal digits after '")
	}
	n, _ := strconv.ParseInt(string(digits), 8, 64)
	return int32(n), nil
}

func (m *Mouth) scanHex() (int32, error) {
	var digits []rune
	for {
		t, err := m.Read()
		if err != nil {
			break
		}
		if t.Kind == token.KindCharacter && isHexDigit(t.Char) {
			digits = append(digits, t.Char)
			continue
		}
		if !isSpaceTok(t) {
			m.PushOne(t)
		}
		break
	}
	if len(digits) == 0 {
		return 0, texerr.New(texerr.ErrParse, token.Position{}, `missing hex digits after "`)
	}
	n, _ := strconv.ParseInt(string(digits), 16, 64)
	return int32(n), nil
}

func (m *Mouth) scanAlphaConstant() (int32, error) {
	t, err := m.Raw()
	if err != nil {
		return 0, texerr.New(texerr.ErrParse, t.Pos, "improper alphabetic constant")
	}
	var code int32
	switch {
	case t.Kind == token.KindCharacter:
		code = int32(t.Char)
	case t.Kind == token.KindControlSequence && !t.Active && len([]rune(t.Name)) == 1:
		code = int32([]rune(t.Name)[0])
	default:
		return 0, texerr.New(texerr.ErrParse, t.Pos, "improper alphabetic constant")
	}
	if nxt, err := m.Read(); err == nil && !isSpaceTok(nxt) {
		m.PushOne(nxt)
	}
	return code, nil
}

// tryInternalInt resolves an "internal integer" (spec.md §4.3.2): a
// counter register, a code-table entry, a font char code, a special
// integer, or a \chardef/\countdef-bound control sequence.
func (m *Mouth) tryInternalInt(t token.Token) (int32, bool, error) {
	if t.Kind != token.KindControlSequence {
		return 0, false, nil
	}
	switch t.Name {
	case "count":
		n, err := m.scanRegisterIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.Count(n), true, nil
	case "catcode":
		c, err := m.scanCodeTableIndex()
		if err != nil {
			return 0, false, err
		}
		return int32(m.Env.CatCode(c)), true, nil
	case "mathcode":
		c, err := m.scanCodeTableIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.MathCode(c), true, nil
	case "lccode":
		c, err := m.scanCodeTableIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.LcCode(c), true, nil
	case "uccode":
		c, err := m.scanCodeTableIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.UcCode(c), true, nil
	case "sfcode":
		c, err := m.scanCodeTableIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.SfCode(c), true, nil
	case "delcode":
		c, err := m.scanCodeTableIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.DelCode(c), true, nil
	case "hyphenchar":
		f, err := m.scanFontIdent()
		if err != nil {
			return 0, false, err
		}
		if font := m.Env.Fonts[f]; font != nil {
			return font.HyphenChar, true, nil
		}
		return 0, true, nil
	case "skewchar":
		f, err := m.scanFontIdent()
		if err != nil {
			return 0, false, err
		}
		if font := m.Env.Fonts[f]; font != nil {
			return font.SkewChar, true, nil
		}
		return 0, true, nil
	case "spacefactor":
		return m.Env.SpaceFactor, true, nil
	case "inputlineno":
		if f := m.Env.CurrentInput(); f != nil {
			return int32(f.Line), true, nil
		}
		return 0, true, nil
	case "badness":
		return m.Env.Badness, true, nil
	}
	if def, ok := m.Env.Lookup(t.Name); ok {
		switch def.Kind {
		case token.CSCounterRef:
			return m.Env.Count(def.RegisterIndex), true, nil
		case token.CSCharAlias:
			return int32(def.Char.Char), true, nil
		}
	}
	return 0, false, nil
}

func (m *Mouth) scanRegisterIndex() (byte, error) {
	v, err := m.ScanInt()
	if err != nil {
		return 0, err
	}
	return Bit8(v, token.Position{})
}

func (m *Mouth) scanCodeTableIndex() (rune, error) {
	v, err := m.ScanInt()
	if err != nil {
		return 0, err
	}
	c, err := CharBound(v, token.Position{})
	return rune(c), err
}

func (m *Mouth) scanFontIdent() (string, error) {
	t, err := m.Read()
	if err != nil {
		return "", err
	}
	if t.Kind == token.KindControlSequence {
		if def, ok := m.Env.Lookup(t.Name); ok && def.Kind == token.CSFontRef {
			return def.FontFamily, nil
		}
		if t.Name == "font" {
			return m.Env.CurrentFont, nil
		}
	}
	return "", texerr.New(texerr.ErrParse, t.Pos, "missing font identifier")
}

// --- dimension parsing -------------------------------------------------

// ScanDimen parses <signs><unsigned dimen>, returned in scaled points.
func (m *Mouth) ScanDimen() (int32, error) {
	sign, err := m.scanSigns()
	if err != nil {
		return 0, err
	}
	v, order, err := m.scanUnsignedDimen()
	if err != nil {
		return 0, err
	}
	if order != environment.OrderFinite {
		return 0, texerr.New(texerr.ErrParse, token.Position{}, "illegal unit of measure (pt inserted)")
	}
	return sign * v, nil
}

func (m *Mouth) scanUnsignedDimen() (int32, environment.InfOrder, error) {
	t, err := m.skipSpacesRead()
	if err != nil {
		return 0, environment.OrderFinite, err
	}
	if v, ok, err := m.tryInternalDimen(t); err != nil {
		return 0, environment.OrderFinite, err
	} else if ok {
		return v, environment.OrderFinite, nil
	}
	if v, ok, err := m.tryInternalInt(t); err != nil {
		return 0, environment.OrderFinite, err
	} else if ok {
		return m.scanUnitAndScale(int64(v), "")
	}
	m.PushOne(t)
	whole, frac, err := m.scanDecimalConstant()
	if err != nil {
		return 0, environment.OrderFinite, err
	}
	return m.scanUnitAndScale(whole, frac)
}

// tryInternalDimen resolves an "internal dimension": a dimen register, a
// glue register's main value used as a dimension, or a font parameter.
func (m *Mouth) tryInternalDimen(t token.Token) (int32, bool, error) {
	if t.Kind != token.KindControlSequence {
		return 0, false, nil
	}
	switch t.Name {
	case "dimen":
		n, err := m.scanRegisterIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.Dimen(n), true, nil
	case "skip":
		n, err := m.scanRegisterIndex()
		if err != nil {
			return 0, false, err
		}
		return m.Env.Skip(n).Value, true, nil
	case "fontdimen":
		idx, err := m.ScanInt()
		if err != nil {
			return 0, false, err
		}
		f, err := m.scanFontIdent()
		if err != nil {
			return 0, false, err
		}
		if font := m.Env.Fonts[f]; font != nil {
			return font.Params[int(idx)], true, nil
		}
		return 0, true, nil
	}
	if def, ok := m.Env.Lookup(t.Name); ok && def.Kind == token.CSDimensionRef {
		return m.Env.Dimen(def.RegisterIndex), true, nil
	}
	return 0, false, nil
}

// scanDecimalConstant parses an integer-or-decimal numeric constant,
// accepting both ',' and '.' as the radix point (spec.md §4.3.2).
func (m *Mouth) scanDecimalConstant() (whole int64, frac string, err error) {
	t, err := m.Read()
	if err != nil {
		return 0, "", err
	}
	var digits []rune
	for isDigit(t) {
		digits = append(digits, t.Char)
		t, err = m.Read()
		if err != nil {
			break
		}
	}
	if len(digits) > 0 {
		whole, _ = strconv.ParseInt(string(digits), 10, 64)
	}
	if t.Kind == token.KindCharacter && (t.Char == '.' || t.Char == ',') {
		var fd []rune
		for {
			t, err = m.Read()
			if err != nil {
				break
			}
			if !isDigit(t) {
				break
			}
			fd = append(fd, t.Char)
		}
		frac = string(fd)
	}
	if err == nil {
		if !isSpaceTok(t) {
			m.PushOne(t)
		}
	}
	if len(digits) == 0 && frac == "" {
		return 0, "", texerr.New(texerr.ErrParse, token.Position{}, "missing number, treated as zero")
	}
	return whole, frac, nil
}

func fracFloat(frac string) float64 {
	if frac == "" {
		return 0
	}
	v, _ := strconv.ParseFloat("0."+frac, 64)
	return v
}

// unitFactor gives scaled-points-per-unit for the named finite unit
// (spec.md §3 Dimension conversions). em/ex have no backing font metrics
// in this engine (out of scope, spec.md §1), so plain-TeX's 10pt design
// size / 4.3pt x-height stand-ins are used — good enough for \the
// round-trips, not for real typesetting.
func unitFactor(unit string) float64 {
	const pt = 65536.0
	switch unit {
	case "pt":
		return pt
	case "pc":
		return 12 * pt
	case "in":
		return 72.27 * pt
	case "bp":
		return 72.27 * pt / 72
	case "cm":
		return 72.27 * pt / 2.54
	case "mm":
		return 72.27 * pt / 2.54 / 10
	case "dd":
		return pt * 1238 / 1157
	case "cc":
		return 12 * pt * 1238 / 1157
	case "sp":
		return 1
	case "em":
		return 10 * pt
	case "ex":
		return 4.3 * pt
	default:
		return pt
	}
}

// scanUnitAndScale reads the unit-of-measure that follows a numeric
// constant and returns the result in scaled points together with its
// infinity order (finite, unless a fil/fill/filll keyword was read).
func (m *Mouth) scanUnitAndScale(whole int64, frac string) (int32, environment.InfOrder, error) {
	var peeked []token.Token
	var sb strings.Builder
	for i := 0; i < 16; i++ {
		t, err := m.Read()
		if err != nil {
			break
		}
		peeked = append(peeked, t)
		if t.Kind == token.KindCharacter {
			sb.WriteRune(t.Char)
			continue
		}
		break
	}
	s := sb.String()
	matched, _, ok := lexpat.MatchUnit(s)
	if ok {
		consumed := len([]rune(matched))
		if consumed < len(peeked) {
			m.PushBack(peeked[consumed:])
		}
		unitName := strings.ToLower(matched[strings.LastIndexAny(matched, " \t")+1:])
		val := float64(whole) + fracFloat(frac)
		switch unitName {
		case "fil":
			return int32(val*65536 + 0.5), environment.OrderFil, nil
		case "fill":
			return int32(val*65536 + 0.5), environment.OrderFill, nil
		case "filll":
			return int32(val*65536 + 0.5), environment.OrderFilll, nil
		default:
			return int32(val*unitFactor(unitName) + 0.5), environment.OrderFinite, nil
		}
	}

	if len(peeked) > 0 {
		m.PushBack(peeked)
	}
	if v, order, ok, err := m.tryInternalDimenOrGlueForScale(); err != nil {
		return 0, environment.OrderFinite, err
	} else if ok {
		val := float64(whole) + fracFloat(frac)
		return int32(float64(v)*val + 0.5), order, nil
	}
	pos := token.Position{}
	if len(peeked) > 0 {
		pos = peeked[0].Pos
	}
	return 0, environment.OrderFinite, texerr.New(texerr.ErrParse, pos, "illegal unit of measure (pt inserted)")
}

func (m *Mouth) tryInternalDimenOrGlueForScale() (int32, environment.InfOrder, bool, error) {
	t, err := m.Read()
	if err != nil {
		return 0, environment.OrderFinite, false, nil
	}
	if v, ok, err := m.tryInternalDimen(t); err != nil {
		return 0, environment.OrderFinite, false, err
	} else if ok {
		return v, environment.OrderFinite, true, nil
	}
	if v, ok, err := m.tryInternalInt(t); err != nil {
		return 0, environment.OrderFinite, false, err
	} else if ok {
		return v, environment.OrderFinite, true, nil
	}
	m.PushOne(t)
	return 0, environment.OrderFinite, false, nil
}

// --- glue parsing -------------------------------------------------

// ScanGlue parses "dimen [plus amount] [minus amount]" (spec.md §4.3.2).
func (m *Mouth) ScanGlue() (environment.Glue, error) {
	v, err := m.ScanDimen()
	if err != nil {
		return environment.Glue{}, err
	}
	g := environment.Glue{Value: v}
	if ok, err := m.matchKeyword("plus"); err != nil {
		return g, err
	} else if ok {
		amt, err := m.scanAmount()
		if err != nil {
			return g, err
		}
		g.Stretch = amt
	}
	if ok, err := m.matchKeyword("minus"); err != nil {
		return g, err
	} else if ok {
		amt, err := m.scanAmount()
		if err != nil {
			return g, err
		}
		g.Shrink = amt
	}
	return g, nil
}

func (m *Mouth) scanAmount() (environment.Amount, error) {
	sign, err := m.scanSigns()
	if err != nil {
		return environment.Amount{}, err
	}
	t, err := m.skipSpacesRead()
	if err != nil {
		return environment.Amount{}, err
	}
	var whole int64
	var frac string
	if v, ok, err := m.tryInternalDimen(t); err != nil {
		return environment.Amount{}, err
	} else if ok {
		return environment.Amount{Value: sign * v, Order: environment.OrderFinite}, nil
	} else if v, ok, err := m.tryInternalInt(t); err != nil {
		return environment.Amount{}, err
	} else if ok {
		whole = int64(v)
	} else {
		m.PushOne(t)
		whole, frac, err = m.scanDecimalConstant()
		if err != nil {
			return environment.Amount{}, err
		}
	}
	v, order, err := m.scanUnitAndScale(whole, frac)
	if err != nil {
		return environment.Amount{}, err
	}
	return environment.Amount{Value: sign * v, Order: order}, nil
}

// matchKeyword consumes optional spaces then the case-insensitive keyword
// word if present, returning ok=false and pushing everything back
// unmatched otherwise.
func (m *Mouth) matchKeyword(word string) (bool, error) {
	var peeked []token.Token
	for {
		t, err := m.Read()
		if err != nil {
			m.PushBack(peeked)
			return false, nil
		}
		if isSpaceTok(t) && len(peeked) == 0 {
			continue
		}
		peeked = append(peeked, t)
		break
	}
	for i := 1; i < len(word); i++ {
		t, err := m.Read()
		if err != nil {
			m.PushBack(peeked)
			return false, nil
		}
		peeked = append(peeked, t)
	}
	got := make([]rune, 0, len(word))
	for _, t := range peeked {
		if t.Kind != token.KindCharacter {
			m.PushBack(peeked)
			return false, nil
		}
		got = append(got, t.Char)
	}
	if !strings.EqualFold(string(got), word) {
		m.PushBack(peeked)
		return false, nil
	}
	return true, nil
}

// matchByKeyword uses the regexp2-backed pattern to recognize the
// case-insensitive "by" keyword of \advance/\multiply/\divide (spec.md
// §4.2.8), through the same internal/lexpat package the eyes use for
// ^^-escapes.
func (m *Mouth) matchByKeyword() (bool, error) {
	var peeked []token.Token
	var sb strings.Builder
	for i := 0; i < 3; i++ {
		t, err := m.Read()
		if err != nil {
			break
		}
		if isSpaceTok(t) && len(peeked) == 0 {
			continue
		}
		peeked = append(peeked, t)
		if t.Kind == token.KindCharacter {
			sb.WriteRune(t.Char)
		} else {
			break
		}
	}
	length, ok := lexpat.MatchBy(sb.String())
	if !ok {
		m.PushBack(peeked)
		return false, nil
	}
	consumed := length // ASCII-only keyword, byte length == rune count
	if consumed < len(peeked) {
		m.PushBack(peeked[consumed:])
	}
	return true, nil
}

// --- small helpers -------------------------------------------------

func (m *Mouth) skipSpacesRead() (token.Token, error) {
	for {
		t, err := m.Read()
		if err != nil {
			return t, err
		}
		if isSpaceTok(t) {
			continue
		}
		return t, nil
	}
}

func isSpaceTok(t token.Token) bool {
	return t.Kind == token.KindCharacter && t.Category == token.CatSpace
}

func isDigit(t token.Token) bool {
	return t.Kind == token.KindCharacter && t.Char >= '0' && t.Char <= '9'
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

func isCharOther(t token.Token, c rune) bool {
	return t.Kind == token.KindCharacter && t.Char == c
}

// Bound checks, spec.md §4.3.2 "Bounds".

func Bit8(v int32, pos token.Position) (byte, error) {
	if v < 0 || v > 255 {
		return 0, texerr.New(texerr.ErrRange, pos, "bad register code (%d)", v)
	}
	return byte(v), nil
}

func Bit15(v int32, pos token.Position) (int32, error) {
	if v < 0 || v > 32767 {
		return 0, texerr.New(texerr.ErrRange, pos, "bad number (%d)", v)
	}
	return v, nil
}

func Bit24(v int32, pos token.Position) (int32, error) {
	if v < 0 || v > (1<<24)-1 {
		return 0, texerr.New(texerr.ErrRange, pos, "bad mathchar (%d)", v)
	}
	return v, nil
}

func CharBound(v int32, pos token.Position) (int32, error) {
	if v < 0 || v > 65535 {
		return 0, texerr.New(texerr.ErrRange, pos, "bad character code (%d)", v)
	}
	return v, nil
}

func CatNumberBound(v int32, pos token.Position) (token.Category, error) {
	if v < 0 || v > 15 {
		return 0, texerr.New(texerr.ErrRange, pos, "invalid code (%d), should be in the range 0..15", v)
	}
	return token.Category(v), nil
}
