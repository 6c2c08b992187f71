package eyes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

func newEyes(t *testing.T, src string) (*Eyes, *environment.Environment) {
	t.Helper()
	env := environment.New("test")
	env.PushInput(&environment.InputFrame{Name: "test", Reader: NewStringScanner(src), Line: 1})
	return New(env), env
}

func readAll(t *testing.T, ey *Eyes) []token.Token {
	t.Helper()
	var out []token.Token
	for {
		tok, err := ey.Next()
		if errors.Is(err, texerr.ErrEndOfInput) {
			return out
		}
		require.NoError(t, err)
		out = append(out, tok)
	}
}

func TestEyesPlainLetters(t *testing.T) {
	ey, _ := newEyes(t, "ab")
	toks := readAll(t, ey)
	require.Len(t, toks, 2)
	assert.Equal(t, 'a', toks[0].Char)
	assert.Equal(t, token.CatLetter, toks[0].Category)
	assert.Equal(t, 'b', toks[1].Char)
}

func TestEyesControlWord(t *testing.T) {
	ey, _ := newEyes(t, `\foo bar`)
	toks := readAll(t, ey)
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, token.KindControlSequence, toks[0].Kind)
	assert.Equal(t, "foo", toks[0].Name)
	// the space after a control word is consumed as a delimiter, not emitted
	assert.Equal(t, 'b', toks[1].Char)
}

func TestEyesControlSymbol(t *testing.T) {
	ey, _ := newEyes(t, `\@x`)
	toks := readAll(t, ey)
	require.Len(t, toks, 2)
	assert.Equal(t, "@", toks[0].Name)
	assert.Equal(t, 'x', toks[1].Char)
}

func TestEyesMultipleSpacesCollapse(t *testing.T) {
	ey, _ := newEyes(t, "a   b")
	toks := readAll(t, ey)
	require.Len(t, toks, 3)
	assert.Equal(t, 'a', toks[0].Char)
	assert.Equal(t, token.CatSpace, toks[1].Category)
	assert.Equal(t, 'b', toks[2].Char)
}

func TestEyesBlankLineMakesPar(t *testing.T) {
	ey, _ := newEyes(t, "a\n\nb")
	toks := readAll(t, ey)
	var sawPar bool
	for _, tok := range toks {
		if tok.Kind == token.KindControlSequence && tok.Name == "par" {
			sawPar = true
		}
	}
	assert.True(t, sawPar, "a blank line must produce \\par")
}

func TestEyesCommentDropsRestOfLine(t *testing.T) {
	ey, _ := newEyes(t, "a%comment here\nb")
	toks := readAll(t, ey)
	// the comment consumes its own trailing end-of-line silently, so no
	// space token is produced between 'a' and 'b'
	require.Len(t, toks, 2)
	assert.Equal(t, 'a', toks[0].Char)
	assert.Equal(t, 'b', toks[1].Char)
}

func TestEyesActiveCharacter(t *testing.T) {
	ey, _ := newEyes(t, "~")
	toks := readAll(t, ey)
	require.Len(t, toks, 1)
	assert.Equal(t, token.KindControlSequence, toks[0].Kind)
	assert.True(t, toks[0].Active)
	assert.Equal(t, "~", toks[0].Name)
}

func TestEyesHexEscape(t *testing.T) {
	ey, _ := newEyes(t, "^^61")
	toks := readAll(t, ey)
	require.Len(t, toks, 1)
	assert.Equal(t, 'a', toks[0].Char)
}

func TestEyesCaretNotation(t *testing.T) {
	ey, _ := newEyes(t, "^^A")
	toks := readAll(t, ey)
	require.Len(t, toks, 1)
	assert.Equal(t, rune('A'^0x40), toks[0].Char)
}

func TestEyesEscapeAtEndOfInputIsLexicalError(t *testing.T) {
	ey, _ := newEyes(t, `\`)
	_, err := ey.Next()
	require.Error(t, err)
	var te *texerr.Error
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, texerr.ErrLexical)
}

func TestEyesEmptyInputIsEndOfInput(t *testing.T) {
	ey, _ := newEyes(t, "")
	_, err := ey.Next()
	assert.ErrorIs(t, err, texerr.ErrEndOfInput)
}
