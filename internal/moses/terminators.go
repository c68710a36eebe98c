package moses

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/runenames"
)

// terminators is the set of punctuation characters that end a sentence in
// even-more mode: every "... FULL STOP" except '.', and every question or
// exclamation mark that is not an inverted one. Built once, read-only after.
var terminators = sync.OnceValue(func() map[rune]struct{} {
	set := make(map[rune]struct{})
	forEachRune(unicode.P, func(r rune) {
		if isTerminatorName(r, runenames.Name(r)) {
			set[r] = struct{}{}
		}
	})
	return set
})

func isTerminatorName(r rune, name string) bool {
	if r != '.' && strings.HasSuffix(name, "FULL STOP") {
		return true
	}
	if strings.Contains(name, "INVERTED") {
		return false
	}
	return strings.Contains(name, "QUESTION MARK") || strings.Contains(name, "EXCLAMATION MARK")
}

// IsTerminator reports whether r ends a sentence in even-more mode.
func IsTerminator(r rune) bool {
	_, ok := terminators()[r]
	return ok
}

// Terminators returns the even-more terminator characters in code point order.
func Terminators() []rune {
	out := make([]rune, 0, len(terminators()))
	forEachRune(unicode.P, func(r rune) {
		if IsTerminator(r) {
			out = append(out, r)
		}
	})
	return out
}

func forEachRune(table *unicode.RangeTable, fn func(rune)) {
	for _, rg := range table.R16 {
		for r := rune(rg.Lo); r <= rune(rg.Hi); r += rune(rg.Stride) {
			fn(r)
		}
	}
	for _, rg := range table.R32 {
		for r := rune(rg.Lo); r <= rune(rg.Hi); r += rune(rg.Stride) {
			fn(r)
		}
	}
}

// splitEvenMore cuts each sentence after every terminator. The terminator
// stays with the fragment it closes. Fragments are trimmed, empty ones are
// dropped, and a remainder after the last terminator is kept.
func splitEvenMore(sentences []string) []string {
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if strings.IndexFunc(s, IsTerminator) < 0 {
			out = append(out, s)
			continue
		}
		start := 0
		for i, r := range s {
			if !IsTerminator(r) {
				continue
			}
			end := i + len(string(r))
			if frag := strings.TrimSpace(s[start:end]); frag != "" {
				out = append(out, frag)
			}
			start = end
		}
		if rest := strings.TrimSpace(s[start:]); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}
