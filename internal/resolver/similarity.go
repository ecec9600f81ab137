package resolver

// Similarity scores two customer names on [0, 1] using a normalized
// longest-common-subsequence ratio. The exact metric is not load-bearing,
// the normalization passes are, so this stays deliberately simple: score
// both the conservative and the aggressive normalization and keep the better
// of the two.
func Similarity(a, b string) float64 {
	basicA, basicB := NormalizeName(a), NormalizeName(b)
	if basicA == basicB {
		return 1.0
	}
	score := lcsRatio(basicA, basicB)

	fuzzyA, fuzzyB := NormalizeAggressive(a), NormalizeAggressive(b)
	if fuzzyA == fuzzyB {
		return 1.0
	}
	if r := lcsRatio(fuzzyA, fuzzyB); r > score {
		score = r
	}
	return score
}

// lcsRatio returns 2*LCS(a,b) / (len(a)+len(b)), the classic sequence
// matcher style ratio. Runs on bytes; inputs are already lowercased ASCII
// after normalization.
func lcsRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Single-row dynamic program: prev[j] is LCS(a[:i], b[:j]).
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(b)]
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}
