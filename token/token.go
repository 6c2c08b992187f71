// Package token defines the lexical currency of the pipeline: the Category
// codes the eyes assign to characters, the Position every token carries,
// and the Token and ControlSequence tagged unions the mouth operates on.
//
// Every sum type in this package is modeled as a single struct with a Kind
// discriminant and a set of fields used only for the kinds that need them,
// rather than as an interface hierarchy — there is no virtual dispatch here,
// only exhaustive switches on Kind.
package token

import "fmt"

// Category is one of the sixteen TeX category codes. The zero value is
// CatEscape, which is never a useful default — callers that look a
// character's category up in an environment.Environment always get an
// explicit value back, never a bare zero Category.
type Category int8

const (
	CatEscape Category = iota
	CatBeginGroup
	CatEndGroup
	CatMathShift
	CatAlignTab
	CatEndOfLine
	CatParameter
	CatSuperscript
	CatSubscript
	CatIgnored
	CatSpace
	CatLetter
	CatOther
	CatActive
	CatComment
	CatInvalid
)

// NumCategories is the count of valid category values, 0..15.
const NumCategories = 16

func (c Category) String() string {
	switch c {
	case CatEscape:
		return "escape"
	case CatBeginGroup:
		return "begin-group"
	case CatEndGroup:
		return "end-group"
	case CatMathShift:
		return "math-shift"
	case CatAlignTab:
		return "alignment-tab"
	case CatEndOfLine:
		return "end-of-line"
	case CatParameter:
		return "parameter"
	case CatSuperscript:
		return "superscript"
	case CatSubscript:
		return "subscript"
	case CatIgnored:
		return "ignored"
	case CatSpace:
		return "space"
	case CatLetter:
		return "letter"
	case CatOther:
		return "other"
	case CatActive:
		return "active"
	case CatComment:
		return "comment"
	case CatInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// MeaningWord is the §4.2.6 taxonomy word used to build \meaning text for a
// plain character of this category, e.g. "begin-group character".
func (c Category) MeaningWord() string {
	switch c {
	case CatEscape:
		return "escape character"
	case CatBeginGroup:
		return "begin-group character"
	case CatEndGroup:
		return "end-group character"
	case CatMathShift:
		return "math shift character"
	case CatAlignTab:
		return "alignment tab character"
	case CatEndOfLine:
		return "end-of-line character"
	case CatParameter:
		return "macro parameter character"
	case CatSuperscript:
		return "superscript character"
	case CatSubscript:
		return "subscript character"
	case CatSpace:
		return "space character"
	case CatLetter:
		return "the letter"
	case CatActive:
		return "active character"
	case CatComment:
		return "comment character"
	case CatInvalid:
		return "invalid character"
	default:
		return "the character"
	}
}

// Position locates a token in its source. Parent, when non-nil, records the
// call site a macro-expanded token was pushed back from, so error messages
// can render the "expanded from" chain described in spec.md §7.
type Position struct {
	Line   int
	Column int
	Source string
	Parent *Position
}

func (p Position) String() string {
	if p.Source != "" {
		return fmt.Sprintf("%s:%d.%d", p.Source, p.Line, p.Column)
	}
	return fmt.Sprintf("%d.%d", p.Line, p.Column)
}

// Stack returns a new Position with other pushed on as this position's
// parent, used when substituting a macro parameter's token into replacement
// text (§4.2.3 step 4).
func (p Position) Stack(call Position) Position {
	parent := call
	p.Parent = &parent
	return p
}

// Kind discriminates the Token tagged union.
type Kind int8

const (
	KindCharacter Kind = iota
	KindControlSequence
	KindParameter
	KindGroup
)

// Token is the tagged union produced by the eyes and consumed, pushed back,
// and rewritten by the mouth. Only the fields relevant to Kind are valid;
// others are left at their zero value.
type Token struct {
	Kind Kind
	Pos  Position

	// KindCharacter
	Char     rune
	Category Category

	// KindControlSequence
	Name     string
	Active   bool
	NoExpand bool // set by \noexpand (§4.2.2): opaque to Read exactly once

	// KindParameter
	ParamIndex int

	// KindGroup
	Open  *Token // the begin-group delimiter token
	Inner []Token
	Close *Token // the end-group delimiter token
}

// NewChar builds a KindCharacter token.
func NewChar(c rune, cat Category, pos Position) Token {
	return Token{Kind: KindCharacter, Char: c, Category: cat, Pos: pos}
}

// NewCS builds a KindControlSequence token. A single-character active token
// has Active set and Name holding that one character.
func NewCS(name string, active bool, pos Position) Token {
	return Token{Kind: KindControlSequence, Name: name, Active: active, Pos: pos}
}

// NewParam builds a KindParameter token (valid only inside parameter or
// replacement text, never on the eyes' output).
func NewParam(index int, pos Position) Token {
	return Token{Kind: KindParameter, ParamIndex: index, Pos: pos}
}

// NewGroup builds a pre-parsed balanced-brace group token.
func NewGroup(open Token, inner []Token, close Token) Token {
	return Token{Kind: KindGroup, Open: &open, Inner: inner, Close: &close, Pos: open.Pos}
}

// IsCS reports whether t is a control sequence (control word, control
// symbol, or active character) with the given name.
func (t Token) IsCS(name string) bool {
	return t.Kind == KindControlSequence && t.Name == name
}

// Equal implements the token-equality rule from spec.md §3: character
// tokens compare char+category, control sequences compare name only
// (active-ness is part of identity via the environment, not the token).
func (t Token) Equal(o Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindCharacter:
		return t.Char == o.Char && t.Category == o.Category
	case KindControlSequence:
		return t.Name == o.Name
	case KindParameter:
		return t.ParamIndex == o.ParamIndex
	default:
		return false
	}
}

// String renders a token roughly as TeX would echo it, for diagnostics.
func (t Token) String() string {
	switch t.Kind {
	case KindCharacter:
		return string(t.Char)
	case KindControlSequence:
		if t.Active {
			return t.Name
		}
		return `\` + t.Name
	case KindParameter:
		return fmt.Sprintf("#%d", t.ParamIndex)
	case KindGroup:
		return "{" + fmt.Sprint(t.Inner) + "}"
	default:
		return "?"
	}
}

// CSKind discriminates the ControlSequence-definition tagged union stored
// in an environment scope.
type CSKind int8

const (
	CSMacro CSKind = iota
	CSCharAlias
	CSCsAlias
	CSCounterRef
	CSDimensionRef
	CSGlueRef
	CSMuglueRef
	CSTokenListRef
	CSMathCharRef
	CSFontRef
	CSPrimitive
)

// Def is the tagged union of what a control-sequence name can be bound to.
type Def struct {
	Kind CSKind

	// CSMacro
	Params      []Token // parameter template, forward order
	Replacement []Token // replacement text, stored in REVERSE order
	Long        bool
	Outer       bool

	// CSCharAlias
	Char Token

	// CSCsAlias
	Alias Token

	// CSCounterRef, CSDimensionRef, CSTokenListRef
	RegisterIndex byte

	// CSFontRef
	FontFamily     string
	Magnification  int32 // 0 means "at natural size"
	HasMagnif      bool

	// CSPrimitive
	PrimitiveName string
}

// Meaning renders the §4.2.6 \meaning text for a control-sequence
// definition. undefined is handled by the caller (a nil *Def).
func (d Def) Meaning(escape rune) string {
	switch d.Kind {
	case CSMacro:
		s := "macro:"
		for _, t := range d.Params {
			s += t.String()
		}
		s += "->"
		for i := len(d.Replacement) - 1; i >= 0; i-- {
			s += d.Replacement[i].String()
		}
		return s
	case CSPrimitive:
		return string(escape) + d.PrimitiveName
	case CSCharAlias:
		return d.Char.Category.MeaningWord() + " " + string(d.Char.Char)
	case CSCsAlias:
		return d.Alias.String()
	case CSCounterRef:
		return fmt.Sprintf("\\count%d", d.RegisterIndex)
	case CSDimensionRef:
		return fmt.Sprintf("\\dimen%d", d.RegisterIndex)
	case CSGlueRef:
		return fmt.Sprintf("\\skip%d", d.RegisterIndex)
	case CSMuglueRef:
		return fmt.Sprintf("\\muskip%d", d.RegisterIndex)
	case CSTokenListRef:
		return fmt.Sprintf("\\toks%d", d.RegisterIndex)
	default:
		return "undefined"
	}
}
