package epg

// FindBest looks up key in nameToID, falling back to the closest entry within
// maxDist edits. Keys are assumed to be already normalized.
func FindBest(key string, nameToID map[string]string, maxDist int) (string, bool) {
	if id, ok := nameToID[key]; ok {
		return id, true
	}
	if maxDist <= 0 {
		return "", false
	}

	bestID := ""
	bestDist := maxDist + 1
	for k, id := range nameToID {
		dist := levenshtein(key, k)
		if dist < bestDist {
			bestDist = dist
			bestID = id
		}
	}
	if bestDist <= maxDist {
		return bestID, true
	}
	return "", false
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	lenA, lenB := len(ra), len(rb)

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	dp := make([][]int, lenA+1)
	for i := range dp {
		dp[i] = make([]int, lenB+1)
		dp[i][0] = i
	}
	for j := 0; j <= lenB; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= lenA; i++ {
		for j := 1; j <= lenB; j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			dp[i][j] = min(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[lenA][lenB]
}
