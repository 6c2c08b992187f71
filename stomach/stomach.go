// Package stomach is the command executor of spec.md §4.4: it loops over
// Commands from the mouth's driver and mutates the shared Environment
// accordingly. It is the only component (besides the mouth's own scope
// push/pop and cs-table writes) permitted to write registers, code tables,
// and font state (spec.md §5 "Shared-resource policy").
package stomach

import (
	"fmt"
	"io"

	"github.com/anttex/textex/command"
	"github.com/anttex/textex/environment"
	"github.com/anttex/textex/internal/texerr"
	"github.com/anttex/textex/mouth"
	"github.com/anttex/textex/token"
	"github.com/rs/zerolog"
)

// Stomach holds the two output streams named in spec.md §6: a typeset
// stream for plain character commands, and a terminal stream for
// \message/\errmessage/\showthe/\show.
type Stomach struct {
	Env   *environment.Environment
	Mouth *mouth.Mouth

	Typeset  io.Writer
	Terminal io.Writer

	// Log is optional; nil keeps the stomach silent (SPEC_FULL.md's
	// ambient-stack note: the core packages stay logging-free, only the
	// CLI layer wires a logger in).
	Log *zerolog.Logger
}

// New wires a Stomach on top of env/m, writing to out/term.
func New(env *environment.Environment, m *mouth.Mouth, out, term io.Writer) *Stomach {
	return &Stomach{Env: env, Mouth: m, Typeset: out, Terminal: term}
}

// Execute applies one Command (spec.md §4.4). done is true once \end has
// been processed and the caller's run loop should stop.
func (s *Stomach) Execute(cmd *command.Command) (done bool, err error) {
	if err := s.dispatch(cmd); err != nil {
		return false, err
	}
	if cmd.Kind == command.KEnd {
		return true, nil
	}
	if isAssignment(cmd.Kind) {
		s.runAfterAssignment()
	}
	return false, nil
}

func (s *Stomach) dispatch(cmd *command.Command) error {
	switch cmd.Kind {
	case command.KTypeset:
		_, err := fmt.Fprint(s.Typeset, string(cmd.Char))
		return err

	case command.KPar:
		_, err := fmt.Fprint(s.Typeset, "\n\n")
		return err

	case command.KRelax, command.KEnd:
		return nil

	case command.KCS:
		return texerr.New(texerr.ErrExpansion, cmd.Pos, "undefined control sequence %s%s", string(s.Env.Escape), cmd.Name)

	case command.KMessage:
		return s.execMessage(cmd)
	case command.KShowthe:
		return s.writeTerminal("> " + renderTokens(cmd.Tokens) + ".\n")
	case command.KShow:
		return s.writeTerminal("> " + renderTokens(cmd.Tokens) + ".\n")

	case command.KUppercase, command.KLowercase:
		out := s.mapCase(cmd.Tokens, cmd.Kind == command.KUppercase)
		s.Mouth.PushBack(out)
		return nil

	case command.KAssignLet:
		s.Env.Define(cmd.TargetCS, s.Mouth.LetDef(cmd.LetToken), cmd.Global)
		return nil
	case command.KAssignFutureLet:
		s.Env.Define(cmd.TargetCS, s.Mouth.LetDef(cmd.FutureT2), cmd.Global)
		s.Mouth.PushBack([]token.Token{cmd.FutureT1, cmd.FutureT2})
		return nil

	case command.KAssignCounter:
		s.Env.SetCount(cmd.RegisterIndex, applyArith(cmd.Op, s.Env.Count(cmd.RegisterIndex), cmd.IntValue), cmd.Global)
		return nil
	case command.KAssignDimension:
		s.Env.SetDimen(cmd.RegisterIndex, applyArith(cmd.Op, s.Env.Dimen(cmd.RegisterIndex), cmd.IntValue), cmd.Global)
		return nil
	case command.KAssignGlue, command.KAssignMuGlue:
		g := environment.Glue{
			Value:   cmd.GlueValue.Value,
			Stretch: environment.Amount{Value: cmd.GlueValue.Stretch, Order: environment.InfOrder(cmd.GlueValue.StretchOrder)},
			Shrink:  environment.Amount{Value: cmd.GlueValue.Shrink, Order: environment.InfOrder(cmd.GlueValue.ShrinkOrder)},
		}
		if cmd.Op != command.OpSet {
			g = addGlue(s.glueGetter(cmd.Kind)(cmd.RegisterIndex), g, cmd.Op)
		}
		s.glueSetter(cmd.Kind)(cmd.RegisterIndex, g, cmd.Global)
		return nil
	case command.KAssignTokens:
		s.Env.SetToks(cmd.RegisterIndex, cmd.Tokens, cmd.Global)
		return nil

	case command.KAssignCatCode:
		s.Env.SetCatCode(cmd.Char1, token.Category(cmd.IntValue), cmd.Global)
		return nil
	case command.KAssignMathCode:
		s.Env.SetMathCode(cmd.Char1, cmd.IntValue, cmd.Global)
		return nil
	case command.KAssignLcCode:
		s.Env.SetLcCode(cmd.Char1, cmd.IntValue, cmd.Global)
		return nil
	case command.KAssignUcCode:
		s.Env.SetUcCode(cmd.Char1, cmd.IntValue, cmd.Global)
		return nil
	case command.KAssignSfCode:
		s.Env.SetSfCode(cmd.Char1, cmd.IntValue, cmd.Global)
		return nil
	case command.KAssignDelCode:
		s.Env.SetDelCode(cmd.Char1, cmd.IntValue, cmd.Global)
		return nil

	case command.KAssignCharDef:
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSCharAlias, Char: token.NewChar(cmd.IntValue, token.CatOther, cmd.Pos)}, cmd.Global)
		return nil
	case command.KAssignCounterDef:
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSCounterRef, RegisterIndex: cmd.RegisterIndex}, cmd.Global)
		return nil
	case command.KAssignDimensionDef:
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSDimensionRef, RegisterIndex: cmd.RegisterIndex}, cmd.Global)
		return nil
	case command.KAssignGlueDef:
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSGlueRef, RegisterIndex: cmd.RegisterIndex}, cmd.Global)
		return nil
	case command.KAssignMuGlueDef:
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSMuglueRef, RegisterIndex: cmd.RegisterIndex}, cmd.Global)
		return nil
	case command.KAssignTokensDef:
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSTokenListRef, RegisterIndex: cmd.RegisterIndex}, cmd.Global)
		return nil

	case command.KAssignFont:
		s.Env.Fonts[cmd.TargetCS] = &environment.Font{Name: cmd.TargetCS, FamilyName: cmd.Name, Params: map[int]int32{}}
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSFontRef, FontFamily: cmd.TargetCS}, cmd.Global)
		return nil
	case command.KAssignFontFamily:
		s.Env.FontFamilies[cmd.FontFamilyIndex] = cmd.Name
		return nil
	case command.KAssignFontDimen:
		f := s.font(cmd.Name)
		if f == nil {
			return texerr.New(texerr.ErrParse, cmd.Pos, "unknown font %q", cmd.Name)
		}
		f.Params[cmd.FontParamIndex] = cmd.IntValue
		return nil
	case command.KAssignHyphenChar, command.KAssignSkewChar:
		f := s.font(cmd.Name)
		if f == nil {
			return texerr.New(texerr.ErrParse, cmd.Pos, "unknown font %q", cmd.Name)
		}
		if cmd.Kind == command.KAssignHyphenChar {
			f.HyphenChar = cmd.IntValue
		} else {
			f.SkewChar = cmd.IntValue
		}
		return nil

	case command.KAssignBoxDimen:
		s.Env.SetBoxDim(cmd.RegisterIndex, cmd.Char1, cmd.IntValue, cmd.Global)
		return nil
	case command.KSetBox:
		s.Env.SetBox(cmd.RegisterIndex, environment.BoxDims{}, cmd.Global)
		return nil
	case command.KStartBox:
		// The box's content stream itself is not modeled (spec.md §1
		// Non-goals); reaching here means \hbox/\vbox/\vtop was used bare,
		// outside \setbox, which this front end treats as a no-op rather
		// than an error since no typeset output depends on box contents.
		return nil

	case command.KRead:
		return s.execRead(cmd)

	default:
		return texerr.New(texerr.ErrInternal, cmd.Pos, "unhandled command kind %d", cmd.Kind)
	}
}

func isAssignment(k command.Kind) bool {
	switch k {
	case command.KAssignCounter, command.KAssignDimension, command.KAssignGlue, command.KAssignMuGlue,
		command.KAssignTokens, command.KAssignCatCode, command.KAssignMathCode, command.KAssignLcCode,
		command.KAssignUcCode, command.KAssignSfCode, command.KAssignDelCode, command.KAssignCharDef,
		command.KAssignCounterDef, command.KAssignDimensionDef, command.KAssignGlueDef, command.KAssignMuGlueDef,
		command.KAssignTokensDef, command.KAssignLet, command.KAssignFutureLet, command.KAssignFont,
		command.KAssignFontFamily, command.KAssignFontDimen, command.KAssignHyphenChar, command.KAssignSkewChar,
		command.KAssignBoxDimen, command.KSetBox:
		return true
	default:
		return false
	}
}

// runAfterAssignment implements spec.md §4.2.8's "after the assignment
// completes, the \afterassignment token (if set) is pushed back; the flag
// clears".
func (s *Stomach) runAfterAssignment() {
	if s.Env.AfterAssignment == nil {
		return
	}
	t := *s.Env.AfterAssignment
	s.Env.AfterAssignment = nil
	s.Mouth.PushOne(t)
}

func applyArith(op command.ArithOp, cur, v int32) int32 {
	switch op {
	case command.OpAdvance:
		return cur + v
	case command.OpMultiply:
		return cur * v
	case command.OpDivide:
		if v == 0 {
			return cur
		}
		return cur / v
	default:
		return v
	}
}

func addGlue(cur, delta environment.Glue, op command.ArithOp) environment.Glue {
	switch op {
	case command.OpMultiply:
		return environment.Glue{
			Value:   cur.Value * delta.Value,
			Stretch: environment.Amount{Value: cur.Stretch.Value * delta.Value, Order: cur.Stretch.Order},
			Shrink:  environment.Amount{Value: cur.Shrink.Value * delta.Value, Order: cur.Shrink.Order},
		}
	case command.OpDivide:
		if delta.Value == 0 {
			return cur
		}
		return environment.Glue{
			Value:   cur.Value / delta.Value,
			Stretch: environment.Amount{Value: cur.Stretch.Value / delta.Value, Order: cur.Stretch.Order},
			Shrink:  environment.Amount{Value: cur.Shrink.Value / delta.Value, Order: cur.Shrink.Order},
		}
	default: // OpAdvance
		return environment.Glue{
			Value:   cur.Value + delta.Value,
			Stretch: cur.Stretch.Add(delta.Stretch),
			Shrink:  cur.Shrink.Add(delta.Shrink),
		}
	}
}

func (s *Stomach) glueGetter(kind command.Kind) func(byte) environment.Glue {
	if kind == command.KAssignMuGlue {
		return s.Env.MuSkip
	}
	return s.Env.Skip
}

func (s *Stomach) glueSetter(kind command.Kind) func(byte, environment.Glue, bool) {
	if kind == command.KAssignMuGlue {
		return s.Env.SetMuSkip
	}
	return s.Env.SetSkip
}

func (s *Stomach) font(name string) *environment.Font {
	if f, ok := s.Env.Fonts[name]; ok {
		return f
	}
	return nil
}

func (s *Stomach) execMessage(cmd *command.Command) error {
	text := renderTokens(cmd.Tokens)
	if s.Log != nil {
		s.Log.Debug().Str("text", text).Bool("error", cmd.IsErr).Msg("message")
	}
	if cmd.IsErr {
		return s.writeTerminal("! " + text + "\n")
	}
	return s.writeTerminal(text + "\n")
}

func (s *Stomach) writeTerminal(text string) error {
	_, err := fmt.Fprint(s.Terminal, text)
	return err
}

// renderTokens flattens a token slice into the text TeX would print for
// it, used by \message/\showthe/\show rendering (spec.md §4.4).
func renderTokens(toks []token.Token) string {
	var out []rune
	for _, t := range toks {
		switch t.Kind {
		case token.KindCharacter:
			out = append(out, t.Char)
		case token.KindControlSequence:
			out = append(out, []rune(t.String())...)
			out = append(out, ' ')
		case token.KindGroup:
			out = append(out, []rune(renderTokens(t.Inner))...)
		}
	}
	return string(out)
}

// mapCase implements spec.md §4.4's \uppercase/\lowercase: characters are
// remapped through uccode/lccode (0 means "no change"), control sequences
// pass through unchanged, and Group tokens are walked recursively
// (SPEC_FULL.md's "recursion into groups" note).
func (s *Stomach) mapCase(toks []token.Token, upper bool) []token.Token {
	out := make([]token.Token, len(toks))
	for i, t := range toks {
		switch t.Kind {
		case token.KindCharacter:
			var code int32
			if upper {
				code = s.Env.UcCode(t.Char)
			} else {
				code = s.Env.LcCode(t.Char)
			}
			nt := t
			if code != 0 {
				nt.Char = rune(code)
			}
			out[i] = nt
		case token.KindGroup:
			inner := s.mapCase(t.Inner, upper)
			out[i] = token.NewGroup(*t.Open, inner, *t.Close)
		default:
			out[i] = t
		}
	}
	return out
}

// execRead implements \read k to \cs (spec.md §4.2.8 table): a line is
// read from the current input frame and bound to \cs as an edef-style
// macro with no parameters, matching plain TeX's non-interactive \read
// behavior when there is no terminal to prompt.
func (s *Stomach) execRead(cmd *command.Command) error {
	f := s.Env.CurrentInput()
	if f == nil {
		s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSMacro}, cmd.Global)
		return nil
	}
	var line []rune
	for {
		r, _, err := f.Reader.ReadRune()
		if err != nil {
			break
		}
		if r == '\n' {
			break
		}
		line = append(line, r)
	}
	toks := make([]token.Token, len(line))
	for i, c := range line {
		cat := token.CatOther
		if c == ' ' {
			cat = token.CatSpace
		} else if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			cat = token.CatLetter
		}
		toks[len(line)-1-i] = token.NewChar(c, cat, cmd.Pos)
	}
	s.Env.Define(cmd.TargetCS, &token.Def{Kind: token.CSMacro, Replacement: toks}, cmd.Global)
	return nil
}
