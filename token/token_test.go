package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryString(t *testing.T) {
	cases := []struct {
		cat  Category
		want string
	}{
		{CatEscape, "escape"},
		{CatBeginGroup, "begin-group"},
		{CatLetter, "letter"},
		{CatOther, "other"},
		{Category(99), "category(99)"},
	}
	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			assert.Equal(t, c.want, c.cat.String())
		})
	}
}

func TestCategoryMeaningWord(t *testing.T) {
	assert.Equal(t, "the letter", CatLetter.MeaningWord())
	assert.Equal(t, "begin-group character", CatBeginGroup.MeaningWord())
	assert.Equal(t, "the character", CatOther.MeaningWord())
}

func TestPositionString(t *testing.T) {
	p := Position{Line: 3, Column: 7, Source: "foo.tex"}
	assert.Equal(t, "foo.tex:3.7", p.String())

	p2 := Position{Line: 1, Column: 1}
	assert.Equal(t, "1.1", p2.String())
}

func TestPositionStack(t *testing.T) {
	call := Position{Line: 5, Column: 2, Source: "call.tex"}
	p := Position{Line: 1, Column: 1, Source: "macro.tex"}
	stacked := p.Stack(call)
	require.NotNil(t, stacked.Parent)
	assert.Equal(t, call.Line, stacked.Parent.Line)
	assert.Equal(t, call.Source, stacked.Parent.Source)
	// original position fields unchanged apart from Parent
	assert.Equal(t, p.Line, stacked.Line)
	assert.Equal(t, p.Source, stacked.Source)
}

func TestNewCharAndIsCS(t *testing.T) {
	ch := NewChar('a', CatLetter, Position{Line: 1, Column: 1})
	assert.Equal(t, KindCharacter, ch.Kind)
	assert.False(t, ch.IsCS("a"))

	cs := NewCS("foo", false, Position{Line: 1, Column: 1})
	assert.True(t, cs.IsCS("foo"))
	assert.False(t, cs.IsCS("bar"))

	active := NewCS("~", true, Position{})
	assert.True(t, active.Active)
	assert.Equal(t, "~", active.String())
}

func TestTokenEqual(t *testing.T) {
	a := NewChar('x', CatLetter, Position{})
	b := NewChar('x', CatLetter, Position{Line: 99})
	c := NewChar('x', CatOther, Position{})
	assert.True(t, a.Equal(b), "position should not affect equality")
	assert.False(t, a.Equal(c), "different category should break equality")

	cs1 := NewCS("foo", false, Position{})
	cs2 := NewCS("foo", false, Position{Line: 10})
	cs3 := NewCS("bar", false, Position{})
	assert.True(t, cs1.Equal(cs2))
	assert.False(t, cs1.Equal(cs3))

	p1 := NewParam(1, Position{})
	p2 := NewParam(1, Position{})
	p3 := NewParam(2, Position{})
	assert.True(t, p1.Equal(p2))
	assert.False(t, p1.Equal(p3))

	assert.False(t, a.Equal(cs1))
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "a", NewChar('a', CatLetter, Position{}).String())
	assert.Equal(t, `\foo`, NewCS("foo", false, Position{}).String())
	assert.Equal(t, "~", NewCS("~", true, Position{}).String())
	assert.Equal(t, "#1", NewParam(1, Position{}).String())
}

func TestNewGroup(t *testing.T) {
	open := NewChar('{', CatBeginGroup, Position{Line: 1, Column: 1})
	close := NewChar('}', CatEndGroup, Position{Line: 1, Column: 3})
	inner := []Token{NewChar('x', CatLetter, Position{Line: 1, Column: 2})}
	g := NewGroup(open, inner, close)
	assert.Equal(t, KindGroup, g.Kind)
	assert.Equal(t, open.Pos, g.Pos)
	assert.Len(t, g.Inner, 1)
}

func TestDefMeaningMacro(t *testing.T) {
	d := Def{
		Kind:   CSMacro,
		Params: []Token{NewParam(1, Position{})},
		// stored reverse: replacement is "#1#1" forward, so reversed is same here
		Replacement: []Token{NewParam(1, Position{}), NewParam(1, Position{})},
	}
	got := d.Meaning('\\')
	assert.Equal(t, "macro:#1->#1#1", got)
}

func TestDefMeaningPrimitiveAndRefs(t *testing.T) {
	assert.Equal(t, `\relax`, Def{Kind: CSPrimitive, PrimitiveName: "relax"}.Meaning('\\'))
	assert.Equal(t, "\\count5", Def{Kind: CSCounterRef, RegisterIndex: 5}.Meaning('\\'))
	assert.Equal(t, "\\dimen2", Def{Kind: CSDimensionRef, RegisterIndex: 2}.Meaning('\\'))
	assert.Equal(t, "\\skip1", Def{Kind: CSGlueRef, RegisterIndex: 1}.Meaning('\\'))
	assert.Equal(t, "\\muskip3", Def{Kind: CSMuglueRef, RegisterIndex: 3}.Meaning('\\'))
	assert.Equal(t, "\\toks0", Def{Kind: CSTokenListRef, RegisterIndex: 0}.Meaning('\\'))
}

func TestDefMeaningCharAlias(t *testing.T) {
	d := Def{Kind: CSCharAlias, Char: NewChar('x', CatLetter, Position{})}
	assert.Equal(t, "the letter x", d.Meaning('\\'))
}

func TestDefMeaningDefault(t *testing.T) {
	d := Def{Kind: CSFontRef}
	assert.Equal(t, "undefined", d.Meaning('\\'))
}
