package index

import "strings"

// Stem applies a Porter-style stemmer: suffix normalization, past and
// continuous forms, common long suffixes, then final trims. Each step
// applies at most one rule before moving on.
func Stem(word string) string {
	w := strings.ToLower(word)
	if len(w) <= 2 {
		return w
	}
	w = step1(w)
	w = step2(w)
	w = step3(w)
	w = step4(w)
	return w
}

func isVowel(w string, i int) bool {
	switch w[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	case 'y':
		// y is a vowel when it does not follow a vowel
		return i > 0 && !isVowel(w, i-1)
	}
	return false
}

// measure counts vowel-consonant sequences, the Porter "m" of a stem.
func measure(w string) int {
	m := 0
	inVowelRun := false
	for i := range w {
		if isVowel(w, i) {
			inVowelRun = true
		} else if inVowelRun {
			m++
			inVowelRun = false
		}
	}
	return m
}

func hasVowel(w string) bool {
	for i := range w {
		if isVowel(w, i) {
			return true
		}
	}
	return false
}

func endsDoubleConsonant(w string) bool {
	n := len(w)
	if n < 2 || w[n-1] != w[n-2] {
		return false
	}
	return !isVowel(w, n-1)
}

// step1 normalizes plurals: sses -> ss, ies -> i, and a trailing s is
// dropped when preceded by a non-sibilant.
func step1(w string) string {
	switch {
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s") && len(w) > 2:
		return w[:len(w)-1]
	}
	return w
}

// step2 handles past/continuous endings: eed -> ee when the stem has
// measure >= 1; otherwise ed/ing are dropped when the remaining stem
// still contains a vowel, with the standard post-fixups.
func step2(w string) string {
	if strings.HasSuffix(w, "eed") {
		if measure(w[:len(w)-3]) >= 1 {
			return w[:len(w)-1]
		}
		return w
	}
	var stem string
	switch {
	case strings.HasSuffix(w, "ed") && hasVowel(w[:len(w)-2]):
		stem = w[:len(w)-2]
	case strings.HasSuffix(w, "ing") && hasVowel(w[:len(w)-3]):
		stem = w[:len(w)-3]
	default:
		return w
	}
	switch {
	case strings.HasSuffix(stem, "at"), strings.HasSuffix(stem, "bl"), strings.HasSuffix(stem, "iz"):
		return stem + "e"
	case endsDoubleConsonant(stem):
		last := stem[len(stem)-1]
		if last != 'l' && last != 's' && last != 'z' {
			return stem[:len(stem)-1]
		}
	}
	return stem
}

// step3 suffix pairs, longest first within each final letter group.
var step3Rules = []struct{ from, to string }{
	{"ational", "ate"},
	{"tional", "tion"},
	{"ization", "ize"},
	{"iveness", "ive"},
	{"fulness", "ful"},
	{"ousness", "ous"},
	{"biliti", "ble"},
	{"ation", "ate"},
	{"ousli", "ous"},
	{"entli", "ent"},
	{"aliti", "al"},
	{"iviti", "ive"},
	{"alism", "al"},
	{"enci", "ence"},
	{"anci", "ance"},
	{"izer", "ize"},
	{"abli", "able"},
	{"alli", "al"},
	{"ator", "ate"},
	{"eli", "e"},
}

func step3(w string) string {
	for _, rule := range step3Rules {
		if strings.HasSuffix(w, rule.from) {
			stem := w[:len(w)-len(rule.from)]
			if measure(stem) >= 1 {
				return stem + rule.to
			}
			return w
		}
	}
	return w
}

// step4 final trims, guarded by minimum stem length.
var step4Rules = []struct{ from, to string }{
	{"icate", "ic"},
	{"ative", ""},
	{"alize", "al"},
	{"ness", ""},
	{"ful", ""},
}

func step4(w string) string {
	for _, rule := range step4Rules {
		if strings.HasSuffix(w, rule.from) {
			stem := w[:len(w)-len(rule.from)]
			if len(stem) >= 3 && measure(stem) >= 1 {
				return stem + rule.to
			}
			return w
		}
	}
	return w
}
