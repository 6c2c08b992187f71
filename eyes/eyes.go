// Package eyes implements the character tokenizer of spec.md §4.1: the
// ^^-escape preprocessing, category assignment from the environment, and
// the N/M/S reading-state machine. It is the leaf of the pipeline — it
// only reads the environment's category-code table; of the input stack it
// reads the current frame and pops frames that are exhausted or closed by
// \endinput, and it updates the reading state.
package eyes

import (
	"io"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/internal/lexpat"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/token"
)

// Eyes turns the environment's current input stack into a lazy stream of
// Tokens. It owns a small raw-rune lookahead buffer for the innermost
// input frame, used to recognize the ^^-escape forms and the end of a
// control word.
type Eyes struct {
	env *environment.Environment
	buf []rune
}

// New wraps env's input stack with a tokenizer.
func New(env *environment.Environment) *Eyes {
	return &Eyes{env: env}
}

// Next returns the next token, or texerr.ErrEndOfInput when the input
// stack is exhausted. Lexical errors (escape at end of input, etc.) are
// returned as *texerr.Error wrapping texerr.ErrLexical.
func (ey *Eyes) Next() (token.Token, error) {
	for {
		pos := ey.pos()
		c, ok := ey.readRawChar()
		if !ok {
			if err := ey.popExhaustedFrame(); err != nil {
				return token.Token{}, err
			}
			continue
		}

		cat := ey.env.CatCode(c)

		switch cat {
		case token.CatIgnored:
			continue

		case token.CatSpace:
			if ey.env.State == environment.StateN || ey.env.State == environment.StateS {
				continue
			}
			ey.env.State = environment.StateS
			return token.NewChar(' ', token.CatSpace, pos), nil

		case token.CatComment:
			ey.dropLine()
			continue

		case token.CatActive:
			ey.env.State = environment.StateS
			return token.NewCS(string(c), true, pos), nil

		case token.CatEscape:
			name, active, err := ey.readControlSequenceName(pos)
			if err != nil {
				return token.Token{}, err
			}
			ey.env.State = environment.StateS
			return token.NewCS(name, active, pos), nil

		case token.CatEndOfLine:
			switch ey.env.State {
			case environment.StateN:
				ey.env.State = environment.StateN
				ey.onEndOfLine()
				return token.NewCS("par", false, pos), nil
			case environment.StateM:
				ey.env.State = environment.StateN
				ey.onEndOfLine()
				return token.NewChar(' ', token.CatSpace, pos), nil
			default: // StateS
				ey.env.State = environment.StateN
				ey.onEndOfLine()
				continue
			}

		default:
			ey.env.State = environment.StateM
			return token.NewChar(c, cat, pos), nil
		}
	}
}

// onEndOfLine implements the \endinput contract of spec.md §4.2.5: the
// eyes close the current input on the next end-of-line.
func (ey *Eyes) onEndOfLine() {
	f := ey.env.CurrentInput()
	if f != nil && f.CloseAtEOL {
		ey.env.PopInput()
		ey.buf = nil
	}
}

func (ey *Eyes) popExhaustedFrame() error {
	if ey.env.CurrentInput() == nil {
		return texerr.ErrEndOfInput
	}
	if err := ey.env.PopInput(); err != nil {
		return texerr.New(texerr.ErrIO, ey.pos(), "closing input: %v", err)
	}
	ey.buf = nil
	if ey.env.CurrentInput() == nil {
		return texerr.ErrEndOfInput
	}
	return nil
}

// dropLine discards characters up to and including the next end-of-line,
// or until the frame is exhausted (spec.md §4.1 "Comment" row).
func (ey *Eyes) dropLine() {
	for {
		c, ok := ey.readRawChar()
		if !ok {
			return
		}
		if ey.env.CatCode(c) == token.CatEndOfLine {
			return
		}
	}
}

// readControlSequenceName implements the "Escape" row of spec.md §4.1's
// table: a maximal run of letters becomes a control word, a single
// non-letter becomes a control symbol, and escape at end of input is a
// lexical error.
func (ey *Eyes) readControlSequenceName(escapePos token.Position) (string, bool, error) {
	c, ok := ey.readRawChar()
	if !ok {
		return "", false, texerr.New(texerr.ErrLexical, escapePos, "control sequence name expected but input ended")
	}
	if ey.env.CatCode(c) != token.CatLetter {
		return string(c), false, nil
	}
	name := []rune{c}
	for {
		c2, ok2 := ey.peekRune(0)
		if !ok2 || ey.env.CatCode(c2) != token.CatLetter {
			break
		}
		ey.consume(1)
		name = append(name, c2)
	}
	return string(name), false, nil
}

// readRawChar returns the next logical character after applying the
// ^^-escape rewrite of spec.md §4.1 Preprocessing.
func (ey *Eyes) readRawChar() (rune, bool) {
	c0, ok := ey.peekRune(0)
	if !ok {
		return 0, false
	}
	if ey.env.CatCode(c0) != token.CatSuperscript {
		ey.consume(1)
		return c0, true
	}
	c1, ok1 := ey.peekRune(1)
	if !ok1 || c1 != c0 || ey.env.CatCode(c1) != token.CatSuperscript {
		ey.consume(1)
		return c0, true
	}

	if hh, ok2 := ey.peekString(2, 2); ok2 && lexpat.MatchHexEscape(hh) {
		ey.consume(4)
		return rune(hexVal(rune(hh[0]))*16 + hexVal(rune(hh[1]))), true
	}

	c2, ok2 := ey.peekRune(2)
	if ok2 && c2 < 128 {
		ey.consume(3)
		return c2 ^ 0x40, true
	}

	ey.consume(1)
	return c0, true
}

func hexVal(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return 0
	}
}

// --- raw lookahead buffer -------------------------------------------------

func (ey *Eyes) pos() token.Position {
	f := ey.env.CurrentInput()
	if f == nil {
		return token.Position{}
	}
	return token.Position{Line: f.Line, Column: f.Column, Source: f.Name}
}

// fill reads from the current input frame's reader until the buffer has
// at least n runes or the frame is exhausted.
func (ey *Eyes) fill(n int) {
	f := ey.env.CurrentInput()
	if f == nil {
		return
	}
	for len(ey.buf) < n {
		r, _, err := f.Reader.ReadRune()
		if err != nil {
			return
		}
		ey.buf = append(ey.buf, r)
	}
}

func (ey *Eyes) peekRune(i int) (rune, bool) {
	ey.fill(i + 1)
	if i >= len(ey.buf) {
		return 0, false
	}
	return ey.buf[i], true
}

// peekString returns the n runes starting at offset start as a string, or
// ok=false if fewer than n remain.
func (ey *Eyes) peekString(start, n int) (string, bool) {
	ey.fill(start + n)
	if start+n > len(ey.buf) {
		return "", false
	}
	return string(ey.buf[start : start+n]), true
}

// consume removes n runes from the front of the buffer, advancing the
// current input frame's line/column bookkeeping.
func (ey *Eyes) consume(n int) {
	f := ey.env.CurrentInput()
	for i := 0; i < n && i < len(ey.buf); i++ {
		if ey.buf[i] == '\n' {
			f.Line++
			f.Column = 0
		} else {
			f.Column++
		}
	}
	if n >= len(ey.buf) {
		ey.buf = ey.buf[:0]
	} else {
		ey.buf = append(ey.buf[:0], ey.buf[n:]...)
	}
}

var _ io.RuneScanner = (*nopScanner)(nil)

// nopScanner is a tiny io.RuneScanner over a constant string, used by
// tests.
type nopScanner struct {
	runes []rune
	pos   int
}

func NewStringScanner(s string) io.RuneScanner {
	return &nopScanner{runes: []rune(s)}
}

func (n *nopScanner) ReadRune() (rune, int, error) {
	if n.pos >= len(n.runes) {
		return 0, 0, io.EOF
	}
	r := n.runes[n.pos]
	n.pos++
	return r, len(string(r)), nil
}

func (n *nopScanner) UnreadRune() error {
	if n.pos == 0 {
		return io.EOF
	}
	n.pos--
	return nil
}
