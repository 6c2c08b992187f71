// Package environment holds the process-wide mutable state described in
// spec.md §3 Environment: a stack of lexical scopes, each with its own
// category-code/cs-table/register maps, plus the global settings (job
// name, mode, reading state, escape character, current font) that are
// never scoped.
//
// Scoping follows a "generate the static table once, look it up
// everywhere" posture (see internal/cmd/gentables): the category-code,
// mathcode, sfcode, lccode and uccode defaults are not hand-maintained
// here, they are emitted into defaults_gen.go. The category codes are
// copied into the root scope on New; the other four tables are computed by
// defaults_gen.go's default functions whenever no scope holds an entry.
package environment

import (
	"io"

	"github.com/anttex/textex/token"
)

// Mode is the engine's current typesetting mode. Only the six modes the
// mouth needs to answer \ifvmode/\ifhmode/\ifmmode/\ifinner are modeled;
// box construction itself is out of scope (spec.md §1).
type Mode int8

const (
	ModeVertical Mode = iota
	ModeInternalVertical
	ModeHorizontal
	ModeRestrictedHorizontal
	ModeMath
	ModeInlineMath
)

func (m Mode) IsVertical() bool {
	return m == ModeVertical || m == ModeInternalVertical
}

func (m Mode) IsHorizontal() bool {
	return m == ModeHorizontal || m == ModeRestrictedHorizontal
}

func (m Mode) IsMath() bool {
	return m == ModeMath || m == ModeInlineMath
}

func (m Mode) IsInner() bool {
	return m == ModeInternalVertical || m == ModeRestrictedHorizontal || m == ModeInlineMath
}

// ReadingState is the eyes' tri-state cursor (spec.md §3 Reading state).
type ReadingState int8

const (
	StateN ReadingState = iota // new line
	StateM                     // middle of line
	StateS                     // skipping blanks
)

// InfOrder is the fil/fill/filll infinity order of a stretch/shrink Amount.
type InfOrder int8

const (
	OrderFinite InfOrder = iota
	OrderFil
	OrderFill
	OrderFilll
)

// Amount is either a finite scaled-point Dimension (Order == OrderFinite)
// or an infinite "factor fil^order" specifier (spec.md §3 Glue).
type Amount struct {
	Value int32 // scaled points if Order == OrderFinite, else a raw factor
	Order InfOrder
}

// Add combines two Amounts, keeping the higher infinity order and
// discarding the lower one entirely — spec.md §3's glue-addition rule.
func (a Amount) Add(b Amount) Amount {
	if a.Order == b.Order {
		return Amount{Value: a.Value + b.Value, Order: a.Order}
	}
	if a.Order > b.Order {
		return a
	}
	return b
}

// Glue is the stretch/shrink triple TeX calls glue.
type Glue struct {
	Value   int32 // scaled points
	Stretch Amount
	Shrink  Amount
}

// Font is a bound font alias set by \font (spec.md §4.2.8). \font sets the
// names only: it parses no "at" or "scaled" clause, so AtSize/HasAtSize and
// Scaled/HasScaled stay at their zero values.
type Font struct {
	Name          string
	FamilyName    string
	AtSize        int32 // scaled points, 0 if not given
	HasAtSize     bool
	Scaled        int32 // per-mille scale, 0 if not given
	HasScaled     bool
	Params        map[int]int32 // \fontdimen
	HyphenChar    int32
	SkewChar      int32
}

// BoxDims holds the three dimensions a \setbox-created box register
// carries. No box content (lists of typeset material) is modeled, only the
// scalar ht/wd/dp a downstream layer would query — real page/paragraph
// construction is out of scope (spec.md §1 Non-goals).
type BoxDims struct {
	Height, Width, Depth int32
}

// scope is one frame of the lexical scope stack (spec.md §3 "Environment
// scope stack"). Every map is created lazily so that deeply nested groups
// that never touch a table stay cheap.
type scope struct {
	catcode map[rune]int8
	mathcode map[rune]int32
	lccode   map[rune]int32
	uccode   map[rune]int32
	sfcode   map[rune]int32
	delcode  map[rune]int32

	counters map[byte]int32
	dimens   map[byte]int32
	glues    map[byte]Glue
	muglues  map[byte]Glue
	toks     map[byte][]token.Token
	boxes    map[byte]BoxDims

	cs map[string]*token.Def

	afterGroup []token.Token
}

func newScope() *scope {
	return &scope{}
}

// Environment is the single mutable cursor shared by the mouth and the
// stomach (spec.md §5 "Shared-resource policy"): no locking, single
// executor, one Environment instance per run.
type Environment struct {
	scopes []*scope // index 0 is the root (global) scope

	JobName        string
	Escape         rune
	Mode           Mode
	State          ReadingState
	CurrentFont    string
	Fonts          map[string]*Font
	FontFamilies   map[int]string // \textfont/\scriptfont/\scriptscriptfont

	SpaceFactor  int32
	InputLineNo  int
	Badness      int32

	AfterAssignment *token.Token
	EndInputPending bool

	inputs []*InputFrame
}

// InputFrame is one level of the input stack opened by \input (spec.md
// §4.2.5, §5 "Scoped resources"): it must be released exactly once, either
// when exhausted or when \endinput sets CloseAtEOL.
type InputFrame struct {
	Name       string
	Reader     io.RuneScanner
	Closer     io.Closer
	Line       int
	Column     int
	CloseAtEOL bool
}

// New creates an Environment with the plain-TeX default tables installed
// in the root scope, per spec.md §6 category-code defaults plus the
// supplemented mathcode/sfcode/lccode/uccode defaults (SPEC_FULL.md
// "MODULE DETAIL").
func New(jobName string) *Environment {
	env := &Environment{
		scopes:       []*scope{newScope()},
		JobName:      jobName,
		Escape:       '\\',
		Mode:         ModeVertical,
		State:        StateN,
		Fonts:        make(map[string]*Font),
		FontFamilies: make(map[int]string),
		SpaceFactor:  1000,
	}
	installDefaults(env.scopes[0])
	return env
}

// EnterGroup pushes a new, empty scope frame (spec.md §3 "enterGroup").
func (e *Environment) EnterGroup() {
	e.scopes = append(e.scopes, newScope())
}

// LeaveGroup pops the current scope frame and returns the tokens queued by
// \aftergroup in the order they were queued, to be pushed back onto the mouth by
// the caller immediately after the matching end-group (spec.md §5 "Scope
// frames created by a begin-group character must be released exactly once
// on the matching end-group, and in LIFO order").
func (e *Environment) LeaveGroup() []token.Token {
	n := len(e.scopes)
	if n <= 1 {
		return nil
	}
	top := e.scopes[n-1]
	e.scopes = e.scopes[:n-1]
	return top.afterGroup
}

// Depth reports how many nested groups are currently open (0 at top level).
func (e *Environment) Depth() int {
	return len(e.scopes) - 1
}

// QueueAfterGroup appends a token to the current scope's \aftergroup queue.
func (e *Environment) QueueAfterGroup(t token.Token) {
	top := e.scopes[len(e.scopes)-1]
	top.afterGroup = append(top.afterGroup, t)
}

// --- generic scoped table access -------------------------------------------------

func (e *Environment) CatCode(c rune) token.Category {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].catcode[c]; ok {
			return token.Category(v)
		}
	}
	if isASCIILetter(c) {
		return token.CatLetter
	}
	return token.CatOther
}

func (e *Environment) SetCatCode(c rune, v token.Category, global bool) {
	s := e.writeScope(global)
	if s.catcode == nil {
		s.catcode = make(map[rune]int8)
	}
	s.catcode[c] = int8(v)
}

func (e *Environment) MathCode(c rune) int32 {
	if v, ok := e.lookupInt32(func(s *scope) (int32, bool) { v, ok := s.mathcode[c]; return v, ok }); ok {
		return v
	}
	return defaultMathCode(c)
}

func (e *Environment) SetMathCode(c rune, v int32, global bool) {
	s := e.writeScope(global)
	if s.mathcode == nil {
		s.mathcode = make(map[rune]int32)
	}
	s.mathcode[c] = v
}

func (e *Environment) LcCode(c rune) int32 {
	if v, ok := e.lookupInt32(func(s *scope) (int32, bool) { v, ok := s.lccode[c]; return v, ok }); ok {
		return v
	}
	return defaultLcCode(c)
}

func (e *Environment) SetLcCode(c rune, v int32, global bool) {
	s := e.writeScope(global)
	if s.lccode == nil {
		s.lccode = make(map[rune]int32)
	}
	s.lccode[c] = v
}

func (e *Environment) UcCode(c rune) int32 {
	if v, ok := e.lookupInt32(func(s *scope) (int32, bool) { v, ok := s.uccode[c]; return v, ok }); ok {
		return v
	}
	return defaultUcCode(c)
}

func (e *Environment) SetUcCode(c rune, v int32, global bool) {
	s := e.writeScope(global)
	if s.uccode == nil {
		s.uccode = make(map[rune]int32)
	}
	s.uccode[c] = v
}

func (e *Environment) SfCode(c rune) int32 {
	if v, ok := e.lookupInt32(func(s *scope) (int32, bool) { v, ok := s.sfcode[c]; return v, ok }); ok {
		return v
	}
	return defaultSfCode(c)
}

func (e *Environment) SetSfCode(c rune, v int32, global bool) {
	s := e.writeScope(global)
	if s.sfcode == nil {
		s.sfcode = make(map[rune]int32)
	}
	s.sfcode[c] = v
}

func (e *Environment) DelCode(c rune) int32 {
	if v, ok := e.lookupInt32(func(s *scope) (int32, bool) { v, ok := s.delcode[c]; return v, ok }); ok {
		return v
	}
	if c == '.' {
		return 0
	}
	return -1
}

func (e *Environment) SetDelCode(c rune, v int32, global bool) {
	s := e.writeScope(global)
	if s.delcode == nil {
		s.delcode = make(map[rune]int32)
	}
	s.delcode[c] = v
}

func (e *Environment) lookupInt32(get func(*scope) (int32, bool)) (int32, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := get(e.scopes[i]); ok {
			return v, true
		}
	}
	return 0, false
}

func (e *Environment) Count(n byte) int32 {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].counters[n]; ok {
			return v
		}
	}
	return 0
}

func (e *Environment) SetCount(n byte, v int32, global bool) {
	s := e.writeScope(global)
	if s.counters == nil {
		s.counters = make(map[byte]int32)
	}
	s.counters[n] = v
}

func (e *Environment) Dimen(n byte) int32 {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].dimens[n]; ok {
			return v
		}
	}
	return 0
}

func (e *Environment) SetDimen(n byte, v int32, global bool) {
	s := e.writeScope(global)
	if s.dimens == nil {
		s.dimens = make(map[byte]int32)
	}
	s.dimens[n] = v
}

func (e *Environment) Skip(n byte) Glue {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].glues[n]; ok {
			return v
		}
	}
	return Glue{}
}

func (e *Environment) SetSkip(n byte, v Glue, global bool) {
	s := e.writeScope(global)
	if s.glues == nil {
		s.glues = make(map[byte]Glue)
	}
	s.glues[n] = v
}

func (e *Environment) MuSkip(n byte) Glue {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].muglues[n]; ok {
			return v
		}
	}
	return Glue{}
}

func (e *Environment) SetMuSkip(n byte, v Glue, global bool) {
	s := e.writeScope(global)
	if s.muglues == nil {
		s.muglues = make(map[byte]Glue)
	}
	s.muglues[n] = v
}

func (e *Environment) Toks(n byte) []token.Token {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].toks[n]; ok {
			return v
		}
	}
	return nil
}

func (e *Environment) SetToks(n byte, v []token.Token, global bool) {
	s := e.writeScope(global)
	if s.toks == nil {
		s.toks = make(map[byte][]token.Token)
	}
	s.toks[n] = v
}

// Box returns box register n's current dimensions (zero value if never set
// or never \setbox'd).
func (e *Environment) Box(n byte) BoxDims {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i].boxes[n]; ok {
			return v
		}
	}
	return BoxDims{}
}

// SetBox overwrites box register n's dimensions wholesale, used by
// \setbox (spec.md §4.2.8).
func (e *Environment) SetBox(n byte, d BoxDims, global bool) {
	s := e.writeScope(global)
	if s.boxes == nil {
		s.boxes = make(map[byte]BoxDims)
	}
	s.boxes[n] = d
}

// SetBoxDim overwrites a single dimension ('h'/'w'/'d') of box register n,
// used by \ht/\wd/\dp (spec.md §4.2.8).
func (e *Environment) SetBoxDim(n byte, which rune, v int32, global bool) {
	d := e.Box(n)
	switch which {
	case 'h':
		d.Height = v
	case 'w':
		d.Width = v
	case 'd':
		d.Depth = v
	}
	e.SetBox(n, d, global)
}

// --- control-sequence table -------------------------------------------------

// Lookup finds the definition bound to a control-sequence (or active
// character) name, walking leaf-to-root. ok is false for an undefined name.
func (e *Environment) Lookup(name string) (*token.Def, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if d, ok := e.scopes[i].cs[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// Define binds name to d in the current (global == false) or root
// (global == true) scope.
func (e *Environment) Define(name string, d *token.Def, global bool) {
	s := e.writeScope(global)
	if s.cs == nil {
		s.cs = make(map[string]*token.Def)
	}
	s.cs[name] = d
}

func (e *Environment) writeScope(global bool) *scope {
	if global {
		return e.scopes[0]
	}
	return e.scopes[len(e.scopes)-1]
}

// --- input stack -------------------------------------------------

// PushInput opens a new input level on top of the stack (spec.md §4.2.5
// \input).
func (e *Environment) PushInput(f *InputFrame) {
	e.inputs = append(e.inputs, f)
}

// CurrentInput returns the innermost open input frame, or nil if the input
// stack is empty (end of all inputs).
func (e *Environment) CurrentInput() *InputFrame {
	if len(e.inputs) == 0 {
		return nil
	}
	return e.inputs[len(e.inputs)-1]
}

// PopInput closes and removes the innermost input frame.
func (e *Environment) PopInput() error {
	n := len(e.inputs)
	if n == 0 {
		return nil
	}
	top := e.inputs[n-1]
	e.inputs = e.inputs[:n-1]
	if top.Closer != nil {
		return top.Closer.Close()
	}
	return nil
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
