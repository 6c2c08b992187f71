// Package texerr implements the §7 error-kind taxonomy: a sentinel error
// value per kind, checkable with errors.Is, wrapped with a source Position
// by a single Error type, the same sentinel-plus-wrapper shape as
// ErrModelNotSupported/ErrEncodingNotSupported, just with a position
// attached.
package texerr

import (
	"errors"
	"fmt"

	"github.com/anttex/textex/token"
)

// Sentinel kinds, one per spec.md §7 enumeration entry.
var (
	ErrLexical   = errors.New("lexical error")
	ErrExpansion = errors.New("expansion error")
	ErrParse     = errors.New("parse error")
	ErrRange     = errors.New("range error")
	ErrIO        = errors.New("io error")
	ErrUser      = errors.New("user error")
	ErrInternal  = errors.New("internal error")

	// ErrEndOfInput is not an error kind at all (spec.md §7 "Propagation
	// policy": \endinput and end-of-all-inputs are not errors) but is
	// returned through the normal Go error channel so callers that don't
	// care about the distinction can still treat it as one more terminal
	// condition.
	ErrEndOfInput = errors.New("end of input")
)

// Error wraps a sentinel kind with the position it was detected at. A
// position produced during macro expansion carries its call-site chain in
// token.Position.Parent, which Error renders as the §7 "expanded from"
// format, one "expanded from position [line.col]" per link of the chain.
type Error struct {
	Kind error
	Pos  token.Position
	Msg  string
}

// New builds a positioned error of the given kind.
func New(kind error, pos token.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", renderPos(e.Pos), e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func renderPos(p token.Position) string {
	s := "[" + p.String() + "]"
	for q := p.Parent; q != nil; q = q.Parent {
		s += fmt.Sprintf(" expanded from position [%s]", q.String())
	}
	return s
}
