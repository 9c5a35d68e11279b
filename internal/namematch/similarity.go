package namematch

import "strings"

const minPrefixLen = 3

// Similarity scores how likely a and b name the same person, in [0,1].
// Signals are evaluated in priority order; the first match wins. Multi-part
// names are held to strict first/last rules, so two multi-part names that
// fail every rule score 0 rather than earning partial credit.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}

	partsA := strings.Split(na, " ")
	partsB := strings.Split(nb, " ")

	if len(partsA) >= 2 && len(partsB) >= 2 {
		return multiPartScore(partsA, partsB)
	}
	if len(partsA) == 1 && len(partsB) >= 2 {
		return singleTokenScore(partsA[0], partsB)
	}
	if len(partsB) == 1 && len(partsA) >= 2 {
		return singleTokenScore(partsB[0], partsA)
	}
	return 0
}

func multiPartScore(a, b []string) float64 {
	firstA, lastA := a[0], a[len(a)-1]
	firstB, lastB := b[0], b[len(b)-1]

	if firstA == firstB && lastA == lastB {
		return 0.95
	}
	// Reversed order: "Smith John" vs "John Smith".
	if firstA == lastB && lastA == firstB {
		return 0.9
	}
	if lastA == lastB {
		if canonical(firstA) == canonical(firstB) {
			return 0.9
		}
		if prefixMatch(firstA, firstB) {
			return 0.85
		}
	}
	return 0
}

func singleTokenScore(token string, parts []string) float64 {
	for _, part := range parts {
		if token == part {
			return 0.8
		}
	}
	for _, part := range parts {
		if canonical(token) == canonical(part) {
			return 0.8
		}
	}
	for _, part := range parts {
		if prefixMatch(token, part) {
			return 0.75
		}
	}
	return 0
}

// prefixMatch reports whether the shorter of a and b is at least minPrefixLen
// characters and a prefix of the longer.
func prefixMatch(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < minPrefixLen || len(short) == len(long) {
		return false
	}
	return strings.HasPrefix(long, short)
}
