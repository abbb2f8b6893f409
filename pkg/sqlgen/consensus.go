package sqlgen

// SelectConsensus picks the winning candidate. Candidates must be ordered by
// generation index.
//
// If some fingerprint occurs more than once, the most frequent wins; among
// equally frequent fingerprints the one seen first wins. The first candidate
// bearing the winning fingerprint is returned. Without any repeat the first
// candidate is returned.
func SelectConsensus(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	counts := make(map[string]int, len(candidates))
	first := make(map[string]int, len(candidates))
	for i, c := range candidates {
		key := c.Fingerprint.Key()
		if _, seen := first[key]; !seen {
			first[key] = i
		}
		counts[key]++
	}

	best, bestCount := -1, 1
	for key, n := range counts {
		idx := first[key]
		if n > bestCount || (n == bestCount && best != -1 && idx < best) {
			best, bestCount = idx, n
		}
	}

	if best == -1 {
		return candidates[0], true
	}
	return candidates[best], true
}
