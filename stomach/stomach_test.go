package stomach

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anttex/textex/command"
	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/eyes"
	"github.com/anttex/textex/mouth"
	"github.com/anttex/textex/token"
)

func newStomach(t *testing.T, src string) (*Stomach, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	env := environment.New("test")
	env.PushInput(&environment.InputFrame{Name: "test", Reader: eyes.NewStringScanner(src), Line: 1})
	ey := eyes.New(env)
	m := mouth.New(env, ey)
	out := &bytes.Buffer{}
	term := &bytes.Buffer{}
	return New(env, m, out, term), out, term
}

func TestExecuteTypeset(t *testing.T) {
	s, out, _ := newStomach(t, "")
	done, err := s.Execute(&command.Command{Kind: command.KTypeset, Char: 'x'})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "x", out.String())
}

func TestExecuteEndSignalsDone(t *testing.T) {
	s, _, _ := newStomach(t, "")
	done, err := s.Execute(&command.Command{Kind: command.KEnd})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestExecuteAssignCounter(t *testing.T) {
	s, _, _ := newStomach(t, "")
	done, err := s.Execute(&command.Command{
		Kind: command.KAssignCounter, RegisterIndex: 3, Op: command.OpSet, IntValue: 7, Global: true,
	})
	require.NoError(t, err)
	assert.False(t, done)
	assert.EqualValues(t, 7, s.Env.Count(3))
}

func TestExecuteAdvanceCounter(t *testing.T) {
	s, _, _ := newStomach(t, "")
	s.Env.SetCount(0, 10, true)
	_, err := s.Execute(&command.Command{
		Kind: command.KAssignCounter, RegisterIndex: 0, Op: command.OpAdvance, IntValue: 5, Global: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 15, s.Env.Count(0))
}

func TestExecuteMultiplyAndDivideCounter(t *testing.T) {
	s, _, _ := newStomach(t, "")
	s.Env.SetCount(0, 4, true)
	_, err := s.Execute(&command.Command{Kind: command.KAssignCounter, RegisterIndex: 0, Op: command.OpMultiply, IntValue: 3, Global: true})
	require.NoError(t, err)
	assert.EqualValues(t, 12, s.Env.Count(0))

	_, err = s.Execute(&command.Command{Kind: command.KAssignCounter, RegisterIndex: 0, Op: command.OpDivide, IntValue: 4, Global: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.Env.Count(0))
}

func TestExecuteDivideByZeroIsNoOp(t *testing.T) {
	s, _, _ := newStomach(t, "")
	s.Env.SetCount(0, 9, true)
	_, err := s.Execute(&command.Command{Kind: command.KAssignCounter, RegisterIndex: 0, Op: command.OpDivide, IntValue: 0, Global: true})
	require.NoError(t, err)
	assert.EqualValues(t, 9, s.Env.Count(0))
}

func TestExecuteAssignLet(t *testing.T) {
	s, _, _ := newStomach(t, "")
	rhs := token.NewCS("relax", false, token.Position{})
	_, err := s.Execute(&command.Command{Kind: command.KAssignLet, TargetCS: "foo", LetToken: rhs, Global: true})
	require.NoError(t, err)
	def, ok := s.Env.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, token.CSPrimitive, def.Kind)
	assert.Equal(t, "relax", def.PrimitiveName)
}

func TestExecuteAssignCatCode(t *testing.T) {
	s, _, _ := newStomach(t, "")
	_, err := s.Execute(&command.Command{Kind: command.KAssignCatCode, Char1: '@', IntValue: int32(token.CatLetter), Global: true})
	require.NoError(t, err)
	assert.Equal(t, token.CatLetter, s.Env.CatCode('@'))
}

func TestExecuteMessageWritesTerminal(t *testing.T) {
	s, _, term := newStomach(t, "")
	toks := []token.Token{token.NewChar('h', token.CatLetter, token.Position{}), token.NewChar('i', token.CatLetter, token.Position{})}
	_, err := s.Execute(&command.Command{Kind: command.KMessage, Tokens: toks})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", term.String())
}

func TestExecuteErrMessagePrefixed(t *testing.T) {
	s, _, term := newStomach(t, "")
	toks := []token.Token{token.NewChar('x', token.CatLetter, token.Position{})}
	_, err := s.Execute(&command.Command{Kind: command.KMessage, Tokens: toks, IsErr: true})
	require.NoError(t, err)
	assert.Equal(t, "! x\n", term.String())
}

func TestExecuteUppercaseRemapsChars(t *testing.T) {
	s, _, _ := newStomach(t, "")
	toks := []token.Token{token.NewChar('a', token.CatLetter, token.Position{})}
	_, err := s.Execute(&command.Command{Kind: command.KUppercase, Tokens: toks})
	require.NoError(t, err)
	tok, err := s.Mouth.Raw()
	require.NoError(t, err)
	assert.Equal(t, 'A', tok.Char)
}

func TestExecuteAssignBoxDimen(t *testing.T) {
	s, _, _ := newStomach(t, "")
	_, err := s.Execute(&command.Command{Kind: command.KAssignBoxDimen, RegisterIndex: 0, Char1: 'h', IntValue: 42, Global: true})
	require.NoError(t, err)
	assert.EqualValues(t, 42, s.Env.Box(0).Height)
}

func TestExecuteUnhandledKindIsInternalError(t *testing.T) {
	s, _, _ := newStomach(t, "")
	_, err := s.Execute(&command.Command{Kind: command.Kind(9999)})
	require.Error(t, err)
}

func TestAfterAssignmentFiresOnceAfterAssignment(t *testing.T) {
	s, _, _ := newStomach(t, "")
	at := token.NewCS("foo", false, token.Position{})
	s.Env.AfterAssignment = &at
	_, err := s.Execute(&command.Command{Kind: command.KAssignCounter, RegisterIndex: 0, Op: command.OpSet, IntValue: 1, Global: true})
	require.NoError(t, err)
	assert.Nil(t, s.Env.AfterAssignment, "the flag must clear after firing")
	tok, err := s.Mouth.Raw()
	require.NoError(t, err)
	assert.Equal(t, "foo", tok.Name)
}

func TestAfterAssignmentDoesNotFireOnNonAssignment(t *testing.T) {
	s, _, _ := newStomach(t, "")
	at := token.NewCS("foo", false, token.Position{})
	s.Env.AfterAssignment = &at
	_, err := s.Execute(&command.Command{Kind: command.KTypeset, Char: 'x'})
	require.NoError(t, err)
	assert.NotNil(t, s.Env.AfterAssignment, "\\afterassignment must only fire after an actual assignment")
}
