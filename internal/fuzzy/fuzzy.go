// Package fuzzy provides the normalized string-similarity primitive used by
// the merchant memory's approximate lookups.
package fuzzy

import "strings"

// DefaultThreshold is the similarity a candidate must clear to count as a
// fuzzy match.
const DefaultThreshold = 0.8

// Similarity returns a score in [0, 1] for two strings, case-insensitively:
// 1 minus the edit distance normalized by the longer string's length. Two
// empty strings are identical; one empty string matches nothing.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}

	return 1 - float64(editDistance(ra, rb))/float64(longer)
}

// IsMatch reports whether the similarity of a and b clears the threshold.
func IsMatch(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// editDistance computes the Levenshtein distance with unit costs for insert,
// delete, and substitute, using two rolling rows of the DP matrix.
func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // delete
				curr[j-1]+1,    // insert
				prev[j-1]+cost, // substitute
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
