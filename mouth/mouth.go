// Package mouth is the core expansion engine of spec.md §4.2: pushback,
// macro expansion, conditionals, \csname, \expandafter, \noexpand,
// \string, \meaning, \number, \romannumeral, \the, number/dimension/glue
// parsing, and the assignment grammar. The command driver itself (§4.3)
// lives in driver.go; macro definition is in assign.go and group parsing
// in group.go.
package mouth

import (
	"io"

	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/eyes"
	"github.com/anttex/textex/token"
)

// FileOpener resolves a name read from \input to a readable stream, wired
// in by the driver program (cmd/textex) rather than hard-coded here so the
// core engine stays free of filesystem assumptions.
type FileOpener func(name string) (io.RuneScanner, io.Closer, error)

// Mouth owns the pushback stack described in spec.md §4.2.1 and drives
// expansion on top of an Eyes. It is the only component that mutates the
// Environment's scope stack (enterGroup/leaveGroup), and it writes macro
// definitions and \csname's \relax bindings into the control-sequence table
// itself; register writes and the other bindings (\let, \chardef, \font,
// \read, ...) are applied by the stomach once the mouth has emitted an
// Assignment Command.
type Mouth struct {
	Env  *environment.Environment
	Eyes *eyes.Eyes

	// stack holds raw tokens not yet consumed, topmost (next to be read)
	// at the end of the slice — pushing a sequence [t1,t2,t3] appends
	// t3,t2,t1 in that order so t1 pops first, per spec.md §4.2.1.
	stack []token.Token

	// Expand toggles whether Read returns expanded or raw tokens (the
	// expansion flag of spec.md §4.2.1).
	Expand bool

	// Open resolves \input file names; nil until the driver program wires
	// one in (see FileOpener).
	Open FileOpener
}

// New wires a Mouth on top of an Eyes reading from env's input stack.
func New(env *environment.Environment, ey *eyes.Eyes) *Mouth {
	return &Mouth{Env: env, Eyes: ey, Expand: true}
}

// PushBack pushes seq so that seq[0] is the next token Read/Raw returns.
func (m *Mouth) PushBack(seq []token.Token) {
	for i := len(seq) - 1; i >= 0; i-- {
		m.stack = append(m.stack, seq[i])
	}
}

// PushOne is a one-token convenience wrapper around PushBack.
func (m *Mouth) PushOne(t token.Token) {
	m.stack = append(m.stack, t)
}

// peekRaw returns the token at the top of the pushback stack, pulling one
// more token from the eyes if the stack is empty.
func (m *Mouth) peekRaw() (token.Token, error) {
	if len(m.stack) == 0 {
		t, err := m.Eyes.Next()
		if err != nil {
			return token.Token{}, err
		}
		m.stack = append(m.stack, t)
	}
	return m.stack[len(m.stack)-1], nil
}

// swallow removes the token currently at the top of the pushback stack
// (spec.md §4.2.1 "swallow").
func (m *Mouth) swallow() {
	m.stack = m.stack[:len(m.stack)-1]
}

// Raw returns the next token with no expansion performed, regardless of
// the Expand flag.
func (m *Mouth) Raw() (token.Token, error) {
	t, err := m.peekRaw()
	if err != nil {
		return t, err
	}
	m.swallow()
	return t, nil
}

// PeekRaw exposes the next unconsumed token without removing it.
func (m *Mouth) PeekRaw() (token.Token, error) {
	return m.peekRaw()
}

// Read returns the next token, expanding control sequences while m.Expand
// is set (spec.md §4.2.2 "the read operation").
func (m *Mouth) Read() (token.Token, error) {
	for {
		t, err := m.peekRaw()
		if err != nil {
			return token.Token{}, err
		}
		if !m.Expand || t.Kind != token.KindControlSequence || t.NoExpand {
			m.swallow()
			t.NoExpand = false
			return t, nil
		}
		stop, result, err := m.expandOne(t)
		if err != nil {
			return token.Token{}, err
		}
		if stop {
			return result, nil
		}
		// expandOne already swallowed t and pushed replacement tokens;
		// loop around to read the next one.
	}
}

// expandOne implements spec.md §4.2.2: given head CS token t (still on
// top of the stack), either expand it and push replacement text back
// (returning stop=false), or report it is opaque/unexpandable and return
// it unchanged (stop=true, result=t, already swallowed).
func (m *Mouth) expandOne(t token.Token) (stop bool, result token.Token, err error) {
	if def, ok := m.Env.Lookup(t.Name); ok {
		switch def.Kind {
		case token.CSMacro:
			if err := m.expandMacro(t, def); err != nil {
				return false, token.Token{}, err
			}
			return false, token.Token{}, nil
		case token.CSCsAlias:
			m.swallow()
			m.PushOne(def.Alias)
			return false, token.Token{}, nil
		default:
			// register/font/char aliases are not expandable; they are
			// opaque to Read and are resolved by the number parser or
			// the command driver instead.
			m.swallow()
			return true, t, nil
		}
	}

	if expand, ok := primitiveExpanders[t.Name]; ok && !t.Active {
		if err := expand(m, t); err != nil {
			return false, token.Token{}, err
		}
		return false, token.Token{}, nil
	}

	m.swallow()
	return true, t, nil
}

// primitiveExpanders is the §4.2.2 primitive expansion table. Each entry
// consumes its own operands (including the head token, already peeked but
// not yet swallowed) and either pushes back a replacement or returns an
// error.
var primitiveExpanders = map[string]func(*Mouth, token.Token) error{}

func registerExpander(name string, fn func(*Mouth, token.Token) error) {
	primitiveExpanders[name] = fn
}

func init() {
	registerExpander("jobname", expandJobname)
	registerExpander("romannumeral", expandRomannumeral)
	registerExpander("number", expandNumber)
	registerExpander("string", expandString)
	registerExpander("meaning", expandMeaning)
	registerExpander("csname", expandCsname)
	registerExpander("expandafter", expandExpandafter)
	registerExpander("noexpand", expandNoexpand)
	registerExpander("the", expandThe)
	registerExpander("input", expandInput)
	registerExpander("endinput", expandEndinput)

	registerExpander("ifnum", expandIf)
	registerExpander("ifdim", expandIf)
	registerExpander("ifodd", expandIf)
	registerExpander("ifvmode", expandIf)
	registerExpander("ifhmode", expandIf)
	registerExpander("ifmmode", expandIf)
	registerExpander("ifinner", expandIf)
	registerExpander("if", expandIf)
	registerExpander("ifcat", expandIf)
	registerExpander("ifx", expandIf)
	registerExpander("iftrue", expandIf)
	registerExpander("iffalse", expandIf)
	registerExpander("ifcase", expandIf)
}

func expandJobname(m *Mouth, head token.Token) error {
	m.swallow()
	var out []token.Token
	for _, c := range m.Env.JobName {
		cat := token.CatOther
		if c == ' ' {
			cat = token.CatSpace
		}
		out = append(out, token.NewChar(c, cat, head.Pos))
	}
	m.PushBack(out)
	return nil
}

// IsPrimitive reports whether name is bound to one of the expansion or
// command-driver primitives, used by \meaning and \ifx.
func IsPrimitive(name string) bool {
	if _, ok := primitiveExpanders[name]; ok {
		return true
	}
	return isDriverPrimitive(name)
}
