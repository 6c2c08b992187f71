package mouth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/eyes"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

func newMouth(t *testing.T, src string) *Mouth {
	t.Helper()
	env := environment.New("test")
	env.PushInput(&environment.InputFrame{Name: "test", Reader: eyes.NewStringScanner(src), Line: 1})
	ey := eyes.New(env)
	return New(env, ey)
}

func readChars(t *testing.T, m *Mouth, n int) string {
	t.Helper()
	var out []rune
	for i := 0; i < n; i++ {
		tok, err := m.Read()
		require.NoError(t, err)
		out = append(out, tok.Char)
	}
	return string(out)
}

func TestPushBackOrdering(t *testing.T) {
	m := newMouth(t, "")
	seq := []token.Token{
		token.NewChar('a', token.CatLetter, token.Position{}),
		token.NewChar('b', token.CatLetter, token.Position{}),
		token.NewChar('c', token.CatLetter, token.Position{}),
	}
	m.PushBack(seq)
	assert.Equal(t, "abc", readChars(t, m, 3))
}

func TestPushOnePutsTokenNext(t *testing.T) {
	m := newMouth(t, "b")
	m.PushOne(token.NewChar('a', token.CatLetter, token.Position{}))
	assert.Equal(t, "ab", readChars(t, m, 2))
}

func TestRawDoesNotExpandMacros(t *testing.T) {
	m := newMouth(t, "")
	m.Env.Define("foo", &token.Def{Kind: token.CSMacro, Replacement: nil}, true)
	m.PushOne(token.NewCS("foo", false, token.Position{}))
	tok, err := m.Raw()
	require.NoError(t, err)
	assert.Equal(t, token.KindControlSequence, tok.Kind)
	assert.Equal(t, "foo", tok.Name)
}

func TestReadExpandsSimpleMacro(t *testing.T) {
	m := newMouth(t, "")
	// \foo -> "xy" (replacement stored in reverse: y,x)
	repl := []token.Token{
		token.NewChar('y', token.CatLetter, token.Position{}),
		token.NewChar('x', token.CatLetter, token.Position{}),
	}
	m.Env.Define("foo", &token.Def{Kind: token.CSMacro, Replacement: repl}, true)
	m.PushOne(token.NewCS("foo", false, token.Position{}))
	assert.Equal(t, "xy", readChars(t, m, 2))
}

func TestScanIntDecimal(t *testing.T) {
	m := newMouth(t, "123 ")
	v, err := m.ScanInt()
	require.NoError(t, err)
	assert.EqualValues(t, 123, v)
}

func TestScanIntNegative(t *testing.T) {
	m := newMouth(t, "-45")
	v, err := m.ScanInt()
	require.NoError(t, err)
	assert.EqualValues(t, -45, v)
}

func TestScanIntOctal(t *testing.T) {
	m := newMouth(t, "'17 ")
	v, err := m.ScanInt()
	require.NoError(t, err)
	assert.EqualValues(t, 15, v) // octal 17 = 15 decimal
}

func TestScanIntHex(t *testing.T) {
	m := newMouth(t, `"1F `)
	v, err := m.ScanInt()
	require.NoError(t, err)
	assert.EqualValues(t, 31, v)
}

func TestScanIntAlphaConstant(t *testing.T) {
	m := newMouth(t, "`A ")
	v, err := m.ScanInt()
	require.NoError(t, err)
	assert.EqualValues(t, 'A', v)
}

func TestScanIntCounterRegister(t *testing.T) {
	m := newMouth(t, `\count5 `)
	m.Env.SetCount(5, 42, true)
	v, err := m.ScanInt()
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestScanDimenPoints(t *testing.T) {
	m := newMouth(t, "2pt")
	v, err := m.ScanDimen()
	require.NoError(t, err)
	assert.EqualValues(t, 2*65536, v)
}

func TestScanDimenFractional(t *testing.T) {
	m := newMouth(t, "1.5pt")
	v, err := m.ScanDimen()
	require.NoError(t, err)
	assert.EqualValues(t, int32(1.5*65536), v)
}

func TestScanGlueWithPlusMinus(t *testing.T) {
	m := newMouth(t, "1pt plus 2pt minus 1pt")
	g, err := m.ScanGlue()
	require.NoError(t, err)
	assert.EqualValues(t, 65536, g.Value)
	assert.EqualValues(t, 2*65536, g.Stretch.Value)
	assert.EqualValues(t, 65536, g.Shrink.Value)
}

func TestScanGlueWithFilStretch(t *testing.T) {
	m := newMouth(t, "0pt plus 1fil")
	g, err := m.ScanGlue()
	require.NoError(t, err)
	assert.Equal(t, environment.OrderFil, g.Stretch.Order)
}

func TestMatchKeywordCaseInsensitive(t *testing.T) {
	m := newMouth(t, "PLUS")
	ok, err := m.matchKeyword("plus")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchKeywordFailureRestoresTokens(t *testing.T) {
	m := newMouth(t, "xyz")
	ok, err := m.matchKeyword("plus")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "xyz", readChars(t, m, 3))
}

func TestExpandNumber(t *testing.T) {
	m := newMouth(t, `\number42`)
	assert.Equal(t, "42", readChars(t, m, 2))
}

func TestExpandRomannumeral(t *testing.T) {
	m := newMouth(t, `\romannumeral1984`)
	tok, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, 'm', tok.Char)
}

func TestExpandStringOnControlWord(t *testing.T) {
	m := newMouth(t, `\string\foo`)
	var out []rune
	for i := 0; i < 4; i++ {
		tok, err := m.Read()
		require.NoError(t, err)
		out = append(out, tok.Char)
	}
	assert.Equal(t, `\foo`, string(out))
}

func TestExpandCsnameDefinesRelaxIfUndefined(t *testing.T) {
	m := newMouth(t, `\csname foo\endcsname`)
	tok, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, token.KindControlSequence, tok.Kind)
	assert.Equal(t, "foo", tok.Name)
	def, ok := m.Env.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, token.CSPrimitive, def.Kind)
	assert.Equal(t, "relax", def.PrimitiveName)
}

func TestExpandNoexpandPreventsOneExpansion(t *testing.T) {
	m := newMouth(t, "")
	m.Env.Define("foo", &token.Def{Kind: token.CSMacro, Replacement: []token.Token{token.NewChar('x', token.CatLetter, token.Position{})}}, true)
	m.PushBack([]token.Token{token.NewCS("noexpand", false, token.Position{}), token.NewCS("foo", false, token.Position{})})
	tok, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, token.KindControlSequence, tok.Kind)
	assert.Equal(t, "foo", tok.Name, "\\noexpand must suppress expansion exactly once")

	// the next Read must expand \foo normally, since NoExpand was one-shot
	m.PushOne(token.NewCS("foo", false, token.Position{}))
	tok2, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, 'x', tok2.Char)
}

func TestReadGroupBalancesNestedBraces(t *testing.T) {
	m := newMouth(t, "{a{b}c}")
	grp, err := m.ReadGroup(true, false, false, false)
	require.NoError(t, err)
	require.Len(t, grp.Inner, 5) // a { b } c
	assert.Equal(t, 'a', grp.Inner[0].Char)
	assert.Equal(t, 'c', grp.Inner[4].Char)
}

func TestMacroArgumentSubstitution(t *testing.T) {
	m := newMouth(t, "")
	// \greet#1 -> hi #1 (stored reverse: #1, i, h)
	repl := []token.Token{
		token.NewParam(1, token.Position{}),
		token.NewChar('i', token.CatLetter, token.Position{}),
		token.NewChar('h', token.CatLetter, token.Position{}),
	}
	params := []token.Token{token.NewParam(1, token.Position{})}
	m.Env.Define("greet", &token.Def{Kind: token.CSMacro, Params: params, Replacement: repl}, true)
	m.PushBack([]token.Token{
		token.NewCS("greet", false, token.Position{}),
		token.NewChar('x', token.CatLetter, token.Position{}),
	})
	assert.Equal(t, "hix", readChars(t, m, 3))
}

func TestDefHashBraceAppendsBraceToReplacement(t *testing.T) {
	m := newMouth(t, `\def\a#1#{xyz}`)
	cmd, err := m.NextCommand()
	require.ErrorIs(t, err, texerr.ErrEndOfInput)
	require.Nil(t, cmd, "\\def installs directly, no Command is emitted")

	def, ok := m.Env.Lookup("a")
	require.True(t, ok)

	require.Len(t, def.Params, 2)
	assert.Equal(t, token.CatBeginGroup, def.Params[1].Category, "the \"#{\" brace is kept in the param template too")

	// Replacement is stored in reverse reading order, so the prepended "{"
	// (the first token of the body in reading order) lands last.
	require.Len(t, def.Replacement, 4, `"{xyz" reversed must be 4 tokens`)
	assert.Equal(t, 'z', def.Replacement[0].Char)
	assert.Equal(t, 'y', def.Replacement[1].Char)
	assert.Equal(t, 'x', def.Replacement[2].Char)
	assert.Equal(t, '{', def.Replacement[3].Char)
	assert.Equal(t, token.CatBeginGroup, def.Replacement[3].Category)
}

func TestNextCommandDefAndUse(t *testing.T) {
	m := newMouth(t, `\def\foo{bar}`)
	cmd, err := m.NextCommand()
	require.ErrorIs(t, err, texerr.ErrEndOfInput)
	require.Nil(t, cmd, "\\def installs directly, no Command is emitted")

	def, ok := m.Env.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, token.CSMacro, def.Kind)

	m.PushOne(token.NewCS("foo", false, token.Position{}))
	cmd2, err := m.NextCommand()
	require.NoError(t, err)
	require.NotNil(t, cmd2)
	assert.Equal(t, 'b', cmd2.Char)
}

func TestNextCommandLetEmitsCommand(t *testing.T) {
	m := newMouth(t, `\let\a=\relax`)
	cmd, err := m.NextCommand()
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, "a", cmd.TargetCS)
	assert.Equal(t, "relax", cmd.LetToken.Name)
}

func TestNextCommandCountAssignment(t *testing.T) {
	m := newMouth(t, `\count0=5 `)
	cmd, err := m.NextCommand()
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.EqualValues(t, 0, cmd.RegisterIndex)
	assert.EqualValues(t, 5, cmd.IntValue)
}

func TestIfTrueSkipsElseBranch(t *testing.T) {
	m := newMouth(t, `\iftrue a\else b\fi`)
	tok, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, 'a', tok.Char)
}

func TestIfFalseTakesElseBranch(t *testing.T) {
	m := newMouth(t, `\iffalse a\else b\fi`)
	tok, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, 'b', tok.Char)
}

func TestIfNumComparesIntegers(t *testing.T) {
	m := newMouth(t, `\ifnum 3>2 yes\else no\fi`)
	tok, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, 'y', tok.Char)
}

func TestTheCountRendersDecimal(t *testing.T) {
	m := newMouth(t, `\the\count7 `)
	m.Env.SetCount(7, -12, true)
	assert.Equal(t, "-12", readChars(t, m, 3))
}

func TestTheDimenRendersScaledPoints(t *testing.T) {
	m := newMouth(t, `\the\dimen0 `)
	m.Env.SetDimen(0, 65536, true) // 1pt exactly
	assert.Equal(t, "1.0pt", readChars(t, m, 5))
}

func TestTheDimenRoundsRatherThanTruncates(t *testing.T) {
	m := newMouth(t, `\the\dimen0 `)
	m.Env.SetDimen(0, 1, true) // 1 scaled point, the print_scaled(1) textbook case
	assert.Equal(t, "0.00002pt", readChars(t, m, 9))
}

func TestNextCommandShowEmitsMeaningToTerminal(t *testing.T) {
	m := newMouth(t, `\show\foo`)
	m.Env.Define("foo", &token.Def{Kind: token.CSPrimitive, PrimitiveName: "relax"}, true)
	cmd, err := m.NextCommand()
	require.NoError(t, err)
	require.NotNil(t, cmd)
	require.Len(t, cmd.Tokens, 6) // "\relax"
	assert.Equal(t, '\\', cmd.Tokens[0].Char)
	assert.Equal(t, 'x', cmd.Tokens[5].Char)
}

func TestNextCommandShowUndefinedControlSequence(t *testing.T) {
	m := newMouth(t, `\show\bogus`)
	cmd, err := m.NextCommand()
	require.NoError(t, err)
	require.NotNil(t, cmd)
	var out []rune
	for _, tok := range cmd.Tokens {
		out = append(out, tok.Char)
	}
	assert.Equal(t, "undefined", string(out))
}
