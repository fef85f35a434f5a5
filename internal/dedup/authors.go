// Package dedup collapses near-identical search results by DOI and
// normalized title, using fuzzy author-list matching to confirm title
// collisions.
package dedup

import (
	"strings"
	"unicode"
)

// AuthorOverlap computes a fuzzy overlap score between two author lists in
// [0,1]. Each author in the smaller list is greedily paired with the most
// similar unmatched author in the larger list; the paired similarity total
// is divided by the union count. Returns 0 if either list is empty. The
// result is symmetric.
func AuthorOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	normA := make([]string, len(a))
	for i, name := range a {
		normA[i] = NormalizeName(name)
	}
	normB := make([]string, len(b))
	for i, name := range b {
		normB[i] = NormalizeName(name)
	}

	if len(normA) > len(normB) {
		normA, normB = normB, normA
	}

	used := make([]bool, len(normB))
	var total float64
	var matched int

	for _, nameA := range normA {
		best := 0.0
		bestIdx := -1
		for j, nameB := range normB {
			if used[j] {
				continue
			}
			if score := nameSimilarity(nameA, nameB); score > best {
				best = score
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			total += best
			matched++
		}
	}

	union := len(normA) + len(normB) - matched
	if union == 0 {
		return 0
	}
	return total / float64(union)
}

// NormalizeName lowercases an author name, reorders "Last, First" to
// "First Last", strips everything but letters and spaces, and collapses
// whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		if first != "" {
			name = first + " " + last
		} else {
			name = last
		}
	}

	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

// nameSimilarity compares two normalized names:
//
//	exact match or same full name            1.0
//	same last name, matching initial         0.9
//	same last name, a side has no first name 0.7
//	same last name, different first names    0.3
//	different last names                     0.0
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	partsA := strings.Fields(a)
	partsB := strings.Fields(b)
	if partsA[len(partsA)-1] != partsB[len(partsB)-1] {
		return 0
	}

	firstA := partsA[:len(partsA)-1]
	firstB := partsB[:len(partsB)-1]
	if len(firstA) == 0 || len(firstB) == 0 {
		return 0.7
	}

	if strings.Join(firstA, " ") == strings.Join(firstB, " ") {
		return 1.0
	}
	if isInitialMatch(firstA[0], firstB[0]) {
		return 0.9
	}
	return 0.3
}

// isInitialMatch reports whether one token is a single-letter initial of
// the other.
func isInitialMatch(a, b string) bool {
	if len(a) == 1 && len(b) > 1 && a[0] == b[0] {
		return true
	}
	if len(b) == 1 && len(a) > 1 && b[0] == a[0] {
		return true
	}
	return false
}
