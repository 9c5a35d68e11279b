package namematch

// DefaultThreshold is the minimum similarity FindBestMatch requires when the
// caller passes a non-positive threshold.
const DefaultThreshold = 0.75

// Candidate is a scoreable name with an optional mention count and an opaque
// reference back to the caller's record.
type Candidate struct {
	Name         string
	MentionCount int
	Ref          any
}

// Match is a winning candidate together with its similarity score.
type Match struct {
	Candidate
	Score float64
}

// FindBestMatch scores every candidate's name against name and returns the
// maximum-scoring candidate at or above threshold. Ties are broken by the
// larger mention count. The second return value is false when no candidate
// clears the threshold.
func FindBestMatch(name string, candidates []Candidate, threshold float64) (Match, bool) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var best Match
	found := false
	for _, cand := range candidates {
		score := Similarity(name, cand.Name)
		if score < threshold {
			continue
		}
		if !found || score > best.Score || (score == best.Score && cand.MentionCount > best.MentionCount) {
			best = Match{Candidate: cand, Score: score}
			found = true
		}
	}
	return best, found
}
