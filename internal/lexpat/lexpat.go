// Package lexpat compiles the lexical patterns the eyes and mouth need
// (spec.md §4.1 Preprocessing, §4.3.2 unit keywords, §4.2.8 "by" keyword)
// with github.com/dlclark/regexp2. The three patterns are anchored
// prefix matches with (?i:...) groups; none uses lookaround.
//
// Each pattern is compiled exactly once, lazily, behind a sync.Once-guarded
// init.
package lexpat

import (
	"sync"

	"github.com/dlclark/regexp2"
)

var (
	hexEscapeOnce sync.Once
	hexEscapeRe   *regexp2.Regexp

	unitOnce sync.Once
	unitRe   *regexp2.Regexp

	byOnce sync.Once
	byRe   *regexp2.Regexp
)

func hexEscape() *regexp2.Regexp {
	hexEscapeOnce.Do(func() {
		hexEscapeRe = regexp2.MustCompile(HexEscapePattern, regexp2.None)
	})
	return hexEscapeRe
}

func unit() *regexp2.Regexp {
	unitOnce.Do(func() {
		unitRe = regexp2.MustCompile(UnitPattern, regexp2.None)
	})
	return unitRe
}

func by() *regexp2.Regexp {
	byOnce.Do(func() {
		byRe = regexp2.MustCompile(ByKeywordPattern, regexp2.None)
	})
	return byRe
}

// MatchHexEscape reports whether s (expected to be the two characters
// following a confirmed "^^" marker pair) is a two-digit lowercase hex
// run, per spec.md §4.1 rule 1.
func MatchHexEscape(s string) bool {
	m, err := hexEscape().FindStringMatch(s)
	return err == nil && m != nil
}

// MatchUnit matches a unit keyword (optionally preceded by "true") at the
// start of s and reports the matched text and whether "true" was present.
func MatchUnit(s string) (matched string, hasTrue bool, ok bool) {
	m, err := unit().FindStringMatch(s)
	if err != nil || m == nil {
		return "", false, false
	}
	trueGroup := m.GroupByNumber(1)
	return m.String(), trueGroup != nil && trueGroup.Length > 0, true
}

// MatchBy reports whether s begins with the case-insensitive "by" keyword
// followed by whitespace, and if so how many bytes it consumed.
func MatchBy(s string) (length int, ok bool) {
	m, err := by().FindStringMatch(s)
	if err != nil || m == nil {
		return 0, false
	}
	return len(m.String()), true
}
