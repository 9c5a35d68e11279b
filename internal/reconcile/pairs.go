package reconcile

import (
	"github.com/unitecrm/unite/internal/crm"
	"github.com/unitecrm/unite/internal/namematch"
)

// Pair is one merge decision produced by the scan.
type Pair struct {
	KeeperID string
	LoserID  string
	Score    float64
}

// duplicatePairs buckets people by normalized last name and pairs up records
// whose full names score at or above threshold. The older record keeps; ties
// go to the record with more mentions. A person is consumed as a loser at
// most once per scan.
func duplicatePairs(people []crm.Person, threshold float64) []Pair {
	buckets := map[string][]crm.Person{}
	for _, p := range people {
		key := namematch.Normalize(p.LastName)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], p)
	}

	consumed := map[string]bool{}
	pairs := []Pair{}
	for _, bucket := range buckets {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				a, b := bucket[i], bucket[j]
				if consumed[a.ID] || consumed[b.ID] {
					continue
				}
				score := namematch.Similarity(a.FullName(), b.FullName())
				if score < threshold {
					continue
				}
				keeper, loser := pickKeeper(a, b)
				consumed[loser.ID] = true
				pairs = append(pairs, Pair{KeeperID: keeper.ID, LoserID: loser.ID, Score: score})
			}
		}
	}
	return pairs
}

func pickKeeper(a, b crm.Person) (crm.Person, crm.Person) {
	switch {
	case a.CreatedAt.Before(b.CreatedAt):
		return a, b
	case b.CreatedAt.Before(a.CreatedAt):
		return b, a
	case b.MentionCount > a.MentionCount:
		return b, a
	default:
		return a, b
	}
}
