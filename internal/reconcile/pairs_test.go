package reconcile

import (
	"testing"
	"time"

	"github.com/unitecrm/unite/internal/crm"
)

func person(id, first, last string, created time.Time, mentions int) crm.Person {
	return crm.Person{ID: id, FirstName: first, LastName: last, CreatedAt: created, MentionCount: mentions}
}

func TestDuplicatePairsExactNames(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	people := []crm.Person{
		person("old", "Jane", "Porter", base, 1),
		person("new", "Jane", "Porter", base.Add(time.Hour), 9),
		person("other", "Bob", "Hill", base, 0),
	}

	pairs := duplicatePairs(people, 0.95)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %v, want one", pairs)
	}
	if pairs[0].KeeperID != "old" || pairs[0].LoserID != "new" {
		t.Errorf("keeper/loser = %s/%s, want old/new", pairs[0].KeeperID, pairs[0].LoserID)
	}
	if pairs[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", pairs[0].Score)
	}
}

func TestDuplicatePairsThreshold(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	people := []crm.Person{
		person("a", "Greg", "Smith", base, 0),
		person("b", "Gregory", "Smith", base.Add(time.Hour), 0),
	}

	if pairs := duplicatePairs(people, 0.95); len(pairs) != 0 {
		t.Errorf("0.9 match cleared a 0.95 threshold: %v", pairs)
	}
	pairs := duplicatePairs(people, 0.9)
	if len(pairs) != 1 || pairs[0].KeeperID != "a" {
		t.Errorf("pairs = %v, want a keeping b", pairs)
	}
}

func TestDuplicatePairsLoserConsumedOnce(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	people := []crm.Person{
		person("p1", "Jane", "Porter", base, 0),
		person("p2", "Jane", "Porter", base.Add(time.Hour), 0),
		person("p3", "Jane", "Porter", base.Add(2*time.Hour), 0),
	}

	pairs := duplicatePairs(people, 0.95)
	if len(pairs) != 2 {
		t.Fatalf("pairs = %v, want two", pairs)
	}
	losers := map[string]bool{}
	for _, p := range pairs {
		if p.KeeperID != "p1" {
			t.Errorf("keeper = %s, want the oldest record", p.KeeperID)
		}
		if losers[p.LoserID] {
			t.Errorf("loser %s consumed twice", p.LoserID)
		}
		losers[p.LoserID] = true
	}
}

func TestDuplicatePairsSkipsEmptyLastName(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	people := []crm.Person{
		person("a", "Jane", "", base, 0),
		person("b", "Jane", "", base.Add(time.Hour), 0),
	}
	if pairs := duplicatePairs(people, 0.5); len(pairs) != 0 {
		t.Errorf("single-token names paired: %v", pairs)
	}
}

func TestDuplicatePairsCreationTieBreak(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	people := []crm.Person{
		person("low", "Jane", "Porter", base, 1),
		person("high", "Jane", "Porter", base, 8),
	}
	pairs := duplicatePairs(people, 0.95)
	if len(pairs) != 1 || pairs[0].KeeperID != "high" {
		t.Errorf("pairs = %v, want the more-mentioned record to keep", pairs)
	}
}
