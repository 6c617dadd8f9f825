package search

import (
	"strings"
	"unicode"
)

// fuzzyThreshold is the minimum subsequence score for a fuzzy hit to be
// worth showing. Below this the match is usually coincidental letters.
const fuzzyThreshold = 5

// fuzzyMatch checks whether every rune of term appears in order inside
// name and scores the alignment. Higher is better.
//
// Scoring per matched rune: base 1, +5 when consecutive with the previous
// match, +10 at the start of the name, +7 at a word boundary, +2 on exact
// case. A length penalty of len(name)/4 favors shorter names.
func fuzzyMatch(term, name string) (score int, matched bool) {
	if term == "" {
		return 0, true
	}

	termLower := []rune(strings.ToLower(term))
	nameLower := []rune(strings.ToLower(name))
	if len(termLower) > len(nameLower) {
		return 0, false
	}

	termOrig := []rune(term)
	nameOrig := []rune(name)

	termPos := 0
	lastMatch := -1
	for namePos := 0; namePos < len(nameLower) && termPos < len(termLower); namePos++ {
		if nameLower[namePos] != termLower[termPos] {
			continue
		}
		gain := 1
		if lastMatch == namePos-1 {
			gain += 5
		}
		if namePos == 0 {
			gain += 10
		}
		if isBoundary(nameOrig, namePos) {
			gain += 7
		}
		if nameOrig[namePos] == termOrig[termPos] {
			gain += 2
		}
		score += gain
		lastMatch = namePos
		termPos++
	}

	matched = termPos == len(termLower)
	if matched {
		score -= len(nameLower) / 4
	}
	return score, matched
}

// isBoundary reports whether pos starts a new segment of a file name:
// the start, after a separator, or a camelCase transition.
func isBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}
	switch runes[pos-1] {
	case ' ', '/', '-', '_', '.':
		return true
	}
	return unicode.IsLower(runes[pos-1]) && unicode.IsUpper(runes[pos])
}
