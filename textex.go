// Package textex ties the three pipeline stages of spec.md §2 together:
// Eyes reads characters out of the Environment's input stack, Mouth
// expands and parses them into Commands, Stomach executes each Command in
// turn. New exposes a small root-package surface (a constructor plus a
// driving method) rather than exposing the subpackages directly.
package textex

import (
	"errors"
	"io"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/eyes"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/mouth"
	"github.com/anttex/textex/stomach"
)

// Engine drives the eyes/mouth/stomach pipeline over one job (spec.md §2).
type Engine struct {
	Env     *environment.Environment
	Mouth   *mouth.Mouth
	Stomach *stomach.Stomach
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithFileOpener wires \input file resolution (spec.md §4.2.5).
func WithFileOpener(open mouth.FileOpener) Option {
	return func(e *Engine) { e.Mouth.Open = open }
}

// New builds an Engine reading jobName.tex-equivalent source from r,
// writing typeset output to out and terminal diagnostics to term.
func New(jobName string, r io.RuneScanner, out, term io.Writer, opts ...Option) *Engine {
	env := environment.New(jobName)
	env.PushInput(&environment.InputFrame{Name: jobName, Reader: r, Line: 1})

	ey := eyes.New(env)
	m := mouth.New(env, ey)
	st := stomach.New(env, m, out, term)

	e := &Engine{Env: env, Mouth: m, Stomach: st}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the engine to completion: \end, exhaustion of all input
// (texerr.ErrEndOfInput), or the first unrecovered error.
func (e *Engine) Run() error {
	for {
		done, err := e.Next()
		if err != nil {
			if errors.Is(err, texerr.ErrEndOfInput) {
				return nil
			}
			return err
		}
		if done {
			return nil
		}
	}
}

// Next drives exactly one Command through the pipeline, for callers that
// want to interleave their own control flow (spec.md §6 "commands accepted
// per line from a terminal when running interactively").
func (e *Engine) Next() (done bool, err error) {
	cmd, err := e.Mouth.NextCommand()
	if err != nil {
		return false, err
	}
	return e.Stomach.Execute(cmd)
}
