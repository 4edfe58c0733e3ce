package score

import "math"

// Ratio returns the indel similarity of a and b on a 0-100 scale:
// round(100 * 2*LCS / (len(a)+len(b))) over runes, halves to even.
// Comparison is case sensitive; two empty strings score 100.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}

	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}

	lcs := lcsLength(ra, rb)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}

// lcsLength computes the longest common subsequence with two DP rows
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// BestMatch returns the index and score of the highest-scoring name;
// the first index wins ties. It returns -1 for an empty list.
func BestMatch(s string, names []string) (int, int) {
	best, bestScore := -1, -1
	for i, n := range names {
		if sc := Ratio(s, n); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best, bestScore
}
