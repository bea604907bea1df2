package compiler

import (
	"strconv"
	"strings"
	"unicode"
)

// LabelAllocator hands out unique stream labels for one compilation. Labels
// are an alphabetic prefix followed by a per-prefix counter, so two prefixes
// can never produce the same label.
type LabelAllocator struct {
	counters map[string]int
}

// NewLabelAllocator returns an empty allocator.
func NewLabelAllocator() *LabelAllocator {
	return &LabelAllocator{counters: make(map[string]int)}
}

// Next returns the next label for prefix. Non-letter characters are stripped
// from the prefix; an empty prefix becomes "s".
func (a *LabelAllocator) Next(prefix string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, prefix)
	if clean == "" {
		clean = "s"
	}
	n := a.counters[clean]
	a.counters[clean] = n + 1
	return clean + strconv.Itoa(n)
}

// Issued reports how many labels were handed out for prefix.
func (a *LabelAllocator) Issued(prefix string) int {
	return a.counters[prefix]
}
