// Command gentables writes environment/defaults_gen.go, the plain-TeX
// default category-code/mathcode/sfcode/lccode/uccode tables: build the
// source into a buffer, run it through go/format, and write it out with a
// "Code generated ... DO NOT EDIT" header and a //go:generate directive
// pointing back at this command.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"io"
	"log"
	"os"
)

func main() {
	out := flag.String("out", "defaults_gen.go", "output file relative to the target package")
	mode := flag.String("mode", "tables", "what to generate: tables or patterns")
	flag.Parse()

	buf := new(bytes.Buffer)
	switch *mode {
	case "patterns":
		generatePatternsPreamble(buf)
		generatePatternsBody(buf)
	default:
		generatePreamble(buf)
		generateBody(buf)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		log.Fatalf("error preparing source: %v", err)
	}

	if err := os.WriteFile(*out, src, 0o644); err != nil {
		log.Fatalf("error writing file: %v", err)
	}
}

func generatePreamble(w io.Writer) {
	fmt.Fprintf(w, "// Code generated by internal/cmd/gentables. DO NOT EDIT.\n\n")
	fmt.Fprintf(w, "//go:generate go run ../internal/cmd/gentables -out defaults_gen.go\n\n")
	fmt.Fprintf(w, "package environment\n\n")
	fmt.Fprintf(w, "import \"github.com/anttex/textex/token\"\n\n")
}

func generatePatternsPreamble(w io.Writer) {
	fmt.Fprintf(w, "// Code generated by internal/cmd/gentables. DO NOT EDIT.\n\n")
	fmt.Fprintf(w, "//go:generate go run ../cmd/gentables -out patterns_gen.go -mode patterns\n\n")
	fmt.Fprintf(w, "package lexpat\n\n")
}

// generatePatternsBody writes the regexp2 pattern-string constants that
// internal/lexpat compiles lazily; see internal/lexpat/patterns_gen.go,
// which this command is the source of truth for.
func generatePatternsBody(w io.Writer) {
	fmt.Fprint(w, `// HexEscapePattern matches the two lowercase hex digits that complete a
// "^^hh" escape (spec.md §4.1 Preprocessing, rule 1) once the caller has
// already confirmed the two preceding characters are identical
// category-superscript characters.
const HexEscapePattern = `+"`"+`^[0-9a-f]{2}`+"`"+`

// UnitPattern matches a dimension unit keyword (spec.md §4.3.2), with an
// optional leading "true" keyword, case-insensitively.
const UnitPattern = `+"`"+`^((?i:true)\s+)?(?i:pt|pc|in|bp|cm|mm|dd|cc|sp|em|ex|filll|fill|fil)`+"`"+`

// ByKeywordPattern matches the case-insensitive "by" keyword separating an
// \advance/\multiply/\divide target from its operand (spec.md §4.2.8).
const ByKeywordPattern = `+"`"+`^(?i:by)\s`+"`"+`
`)
}

// generateBody writes the same table-building functions that are checked
// in at environment/defaults_gen.go; this command is the source of truth
// for that file and is re-run whenever the plain-TeX default tables change.
func generateBody(w io.Writer) {
	fmt.Fprint(w, `func installDefaults(root *scope) {
	root.catcode = make(map[rune]int8, 8)
	root.catcode['\\'] = int8(token.CatEscape)
	root.catcode['{'] = int8(token.CatBeginGroup)
	root.catcode['}'] = int8(token.CatEndGroup)
	root.catcode['$'] = int8(token.CatMathShift)
	root.catcode['&'] = int8(token.CatAlignTab)
	root.catcode['\n'] = int8(token.CatEndOfLine)
	root.catcode['#'] = int8(token.CatParameter)
	root.catcode['^'] = int8(token.CatSuperscript)
	root.catcode['_'] = int8(token.CatSubscript)
	root.catcode[0] = int8(token.CatInvalid)
	root.catcode[' '] = int8(token.CatSpace)
	root.catcode['%'] = int8(token.CatComment)
	root.catcode[127] = int8(token.CatInvalid)
	root.catcode['~'] = int8(token.CatActive)
}

func defaultMathCode(c rune) int32 {
	switch {
	case c >= '0' && c <= '9':
		return 0x7000 + int32(c)
	case isASCIILetter(c):
		return 0x7100 + int32(c)
	default:
		return int32(c)
	}
}

func defaultSfCode(c rune) int32 {
	if c >= 'A' && c <= 'Z' {
		return 999
	}
	return 1000
}

func defaultLcCode(c rune) int32 {
	switch {
	case c >= 'a' && c <= 'z':
		return int32(c)
	case c >= 'A' && c <= 'Z':
		return int32(c - 'A' + 'a')
	default:
		return 0
	}
}

func defaultUcCode(c rune) int32 {
	switch {
	case c >= 'A' && c <= 'Z':
		return int32(c)
	case c >= 'a' && c <= 'z':
		return int32(c - 'a' + 'A')
	default:
		return 0
	}
}
`)
}
