package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anttex/textex/token"
)

func TestModePredicates(t *testing.T) {
	assert.True(t, ModeVertical.IsVertical())
	assert.True(t, ModeInternalVertical.IsVertical())
	assert.True(t, ModeInternalVertical.IsInner())
	assert.True(t, ModeHorizontal.IsHorizontal())
	assert.True(t, ModeRestrictedHorizontal.IsInner())
	assert.True(t, ModeMath.IsMath())
	assert.True(t, ModeInlineMath.IsInner())
	assert.False(t, ModeVertical.IsHorizontal())
	assert.False(t, ModeHorizontal.IsMath())
}

func TestAmountAdd(t *testing.T) {
	a := Amount{Value: 10, Order: OrderFinite}
	b := Amount{Value: 5, Order: OrderFinite}
	sum := a.Add(b)
	assert.Equal(t, Amount{Value: 15, Order: OrderFinite}, sum)

	fil := Amount{Value: 2, Order: OrderFil}
	fill := Amount{Value: 3, Order: OrderFill}
	assert.Equal(t, fill, fil.Add(fill), "higher order wins, lower discarded")
	assert.Equal(t, fill, fill.Add(fil))
}

func TestNewInstallsDefaults(t *testing.T) {
	env := New("job")
	assert.Equal(t, token.CatEscape, env.CatCode('\\'))
	assert.Equal(t, token.CatBeginGroup, env.CatCode('{'))
	assert.Equal(t, token.CatEndGroup, env.CatCode('}'))
	assert.Equal(t, token.CatSpace, env.CatCode(' '))
	assert.Equal(t, token.CatLetter, env.CatCode('a'))
	assert.Equal(t, token.CatOther, env.CatCode('1'))
	assert.Equal(t, ModeVertical, env.Mode)
	assert.Equal(t, StateN, env.State)
	assert.EqualValues(t, 1000, env.SpaceFactor)
}

func TestCatCodeScopingLocalVsGlobal(t *testing.T) {
	env := New("job")
	env.EnterGroup()
	env.SetCatCode('@', token.CatLetter, false)
	assert.Equal(t, token.CatLetter, env.CatCode('@'))
	env.LeaveGroup()
	assert.Equal(t, token.CatOther, env.CatCode('@'), "local change must not survive group exit")

	env.EnterGroup()
	env.SetCatCode('@', token.CatLetter, true)
	env.LeaveGroup()
	assert.Equal(t, token.CatLetter, env.CatCode('@'), "global change must survive group exit")
}

func TestEnterLeaveGroupDepth(t *testing.T) {
	env := New("job")
	assert.Equal(t, 0, env.Depth())
	env.EnterGroup()
	assert.Equal(t, 1, env.Depth())
	env.EnterGroup()
	assert.Equal(t, 2, env.Depth())
	env.LeaveGroup()
	assert.Equal(t, 1, env.Depth())
	env.LeaveGroup()
	assert.Equal(t, 0, env.Depth())
	// leaving at top level is a no-op, never goes negative
	assert.Nil(t, env.LeaveGroup())
	assert.Equal(t, 0, env.Depth())
}

func TestQueueAfterGroupReturnedOnLeave(t *testing.T) {
	env := New("job")
	env.EnterGroup()
	t1 := token.NewCS("foo", false, token.Position{})
	t2 := token.NewCS("bar", false, token.Position{})
	env.QueueAfterGroup(t1)
	env.QueueAfterGroup(t2)
	queued := env.LeaveGroup()
	require.Len(t, queued, 2)
	assert.Equal(t, "foo", queued[0].Name)
	assert.Equal(t, "bar", queued[1].Name)
}

func TestCountDimenScopedAccessors(t *testing.T) {
	env := New("job")
	env.SetCount(0, 42, true)
	assert.EqualValues(t, 42, env.Count(0))
	assert.EqualValues(t, 0, env.Count(1), "unset register reads zero")

	env.EnterGroup()
	env.SetCount(0, 99, false)
	assert.EqualValues(t, 99, env.Count(0))
	env.LeaveGroup()
	assert.EqualValues(t, 42, env.Count(0), "local assignment restored on group exit")

	env.SetDimen(2, 65536, true)
	assert.EqualValues(t, 65536, env.Dimen(2))
}

func TestSkipAndMuSkip(t *testing.T) {
	env := New("job")
	g := Glue{Value: 100, Stretch: Amount{Value: 10, Order: OrderFil}}
	env.SetSkip(0, g, true)
	assert.Equal(t, g, env.Skip(0))
	assert.Equal(t, Glue{}, env.Skip(1))

	mg := Glue{Value: 5}
	env.SetMuSkip(0, mg, true)
	assert.Equal(t, mg, env.MuSkip(0))
}

func TestToksRegister(t *testing.T) {
	env := New("job")
	toks := []token.Token{token.NewChar('x', token.CatLetter, token.Position{})}
	env.SetToks(3, toks, true)
	assert.Equal(t, toks, env.Toks(3))
	assert.Nil(t, env.Toks(4))
}

func TestBoxDims(t *testing.T) {
	env := New("job")
	assert.Equal(t, BoxDims{}, env.Box(0))
	env.SetBox(0, BoxDims{Height: 10, Width: 20, Depth: 5}, true)
	assert.Equal(t, BoxDims{Height: 10, Width: 20, Depth: 5}, env.Box(0))

	env.SetBoxDim(0, 'h', 99, true)
	got := env.Box(0)
	assert.EqualValues(t, 99, got.Height)
	assert.EqualValues(t, 20, got.Width, "other dims untouched")
}

func TestLookupAndDefine(t *testing.T) {
	env := New("job")
	_, ok := env.Lookup("undefined-thing")
	assert.False(t, ok)

	def := &token.Def{Kind: token.CSPrimitive, PrimitiveName: "relax"}
	env.Define("foo", def, true)
	got, ok := env.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, "relax", got.PrimitiveName)

	env.EnterGroup()
	local := &token.Def{Kind: token.CSPrimitive, PrimitiveName: "par"}
	env.Define("foo", local, false)
	got2, _ := env.Lookup("foo")
	assert.Equal(t, "par", got2.PrimitiveName)
	env.LeaveGroup()

	got3, _ := env.Lookup("foo")
	assert.Equal(t, "relax", got3.PrimitiveName, "local redefinition should not leak past group exit")
}

func TestInputStack(t *testing.T) {
	env := New("job")
	assert.Nil(t, env.CurrentInput())

	env.PushInput(&InputFrame{Name: "a.tex", Line: 1})
	env.PushInput(&InputFrame{Name: "b.tex", Line: 1})
	assert.Equal(t, "b.tex", env.CurrentInput().Name)

	require.NoError(t, env.PopInput())
	assert.Equal(t, "a.tex", env.CurrentInput().Name)

	require.NoError(t, env.PopInput())
	assert.Nil(t, env.CurrentInput())

	// popping an empty stack is a no-op, not an error
	assert.NoError(t, env.PopInput())
}

func TestDefaultMathAndSfCode(t *testing.T) {
	env := New("job")
	assert.EqualValues(t, 0x7000+'5', env.MathCode('5'))
	assert.EqualValues(t, 0x7100+'a', env.MathCode('a'))
	assert.EqualValues(t, 999, env.SfCode('A'))
	assert.EqualValues(t, 1000, env.SfCode('a'))
}

func TestDelCodeDefault(t *testing.T) {
	env := New("job")
	assert.EqualValues(t, 0, env.DelCode('.'))
	assert.EqualValues(t, -1, env.DelCode('a'))
	env.SetDelCode('a', 5, true)
	assert.EqualValues(t, 5, env.DelCode('a'))
}
