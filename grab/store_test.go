package grab

import (
	"strings"
	"testing"
)

// checkIndexes asserts the index invariant: visible[i].Index == i and the
// visible sequence is exactly the filter-allowed subset of history, in order.
func checkIndexes(t *testing.T, s *store) {
	t.Helper()
	for i, item := range s.visible {
		if item.Index != i {
			t.Fatalf("visible[%d].Index = %d, want %d", i, item.Index, i)
		}
	}
}

func question(user, text string) *Item { return newItem(KindQuestion, user, text) }

func TestStoreAppendRespectsFilter(t *testing.T) {
	s := newStore()
	s.filter.set(KindStatus, false)

	s.append(question("alice", "one?"))
	s.append(newStatusItem("connected"))
	s.append(question("bob", "two?"))

	if len(s.all) != 3 {
		t.Fatalf("history len = %d, want 3", len(s.all))
	}
	if len(s.visible) != 2 {
		t.Fatalf("visible len = %d, want 2", len(s.visible))
	}
	checkIndexes(t, s)
}

func TestStoreReplaceDuplicateMovesToBottom(t *testing.T) {
	s := newStore()
	first := question("alice", "when is the update?")
	s.append(first)
	s.append(question("bob", "unrelated?"))
	s.append(question("carol", "also unrelated?"))

	s.replaceDuplicate(first, "dave")

	if got := s.visible[len(s.visible)-1]; got != first {
		t.Fatalf("duplicate did not move to bottom; last = %q", got.Text)
	}
	if first.User != MergedAuthor {
		t.Errorf("user = %q, want %q", first.User, MergedAuthor)
	}
	if len(s.visible) != 3 {
		t.Fatalf("visible len = %d, want 3 (no new row)", len(s.visible))
	}
	checkIndexes(t, s)
}

func TestStoreReplaceDuplicateSameAuthorKeepsUser(t *testing.T) {
	s := newStore()
	first := question("alice", "when?")
	s.append(first)

	s.replaceDuplicate(first, "ALICE")

	if first.User != "alice" {
		t.Errorf("user = %q, want %q (case-insensitive same author)", first.User, "alice")
	}
	checkIndexes(t, s)
}

func TestStoreMarkSubscribers(t *testing.T) {
	s := newStore()
	q1 := question("alice", "one?")
	q2 := newItem(KindImportantQuestion, "alice", "two?")
	status := newStatusItem("alice did something")
	s.append(q1)
	s.append(status)
	s.append(q2)

	wantIndex := q1.Index
	n := s.markSubscribers(map[string]struct{}{"alice": {}})
	if n != 2 {
		t.Fatalf("marked %d items, want 2", n)
	}
	if !q1.Subscriber || !q2.Subscriber {
		t.Error("questions not marked")
	}
	if status.Subscriber {
		t.Error("status item must not carry a subscriber mark")
	}
	if q1.Index != wantIndex {
		t.Errorf("index changed from %d to %d", wantIndex, q1.Index)
	}
	// Monotonic and idempotent.
	if n := s.markSubscribers(map[string]struct{}{"alice": {}}); n != 0 {
		t.Errorf("second pass marked %d items, want 0", n)
	}
	checkIndexes(t, s)
}

func TestStoreMarkSubscribersMergedAuthors(t *testing.T) {
	s := newStore()
	q := question("alice", "when is the update?")
	s.append(q)
	s.replaceDuplicate(q, "bob")
	if q.User != MergedAuthor {
		t.Fatalf("user = %q, want %q", q.User, MergedAuthor)
	}

	// Either folded-in author confirms the merged item.
	if n := s.markSubscribers(map[string]struct{}{"bob": {}}); n != 1 {
		t.Fatalf("marked %d items, want 1", n)
	}
	if !q.Subscriber {
		t.Error("merged item not marked via its second author")
	}
	checkIndexes(t, s)
}

func TestStoreRefilterInPlace(t *testing.T) {
	s := newStore()
	s.append(question("alice", "one?"))
	s.append(newStatusItem("connected"))
	s.append(question("bob", "two?"))
	s.append(newStatusItem("reconnected"))

	s.filter.set(KindStatus, false)
	s.refilterInPlace()

	if len(s.visible) != 2 {
		t.Fatalf("visible len = %d, want 2", len(s.visible))
	}
	for _, item := range s.visible {
		if item.Kind == KindStatus {
			t.Fatalf("status item survived refilter")
		}
	}
	checkIndexes(t, s)
}

func TestStoreRebuildRestoresHiddenItems(t *testing.T) {
	s := newStore()
	s.append(question("alice", "one?"))
	s.append(newStatusItem("connected"))
	s.append(question("bob", "two?"))

	s.filter.set(KindQuestion, false)
	s.refilterInPlace()
	if len(s.visible) != 1 {
		t.Fatalf("visible len = %d, want 1", len(s.visible))
	}

	s.filter.set(KindQuestion, true)
	result := <-s.startRebuild(nil)
	if result == nil {
		t.Fatal("rebuild failed")
	}
	s.swapVisible(result)

	if len(s.visible) != 3 {
		t.Fatalf("visible len = %d, want 3", len(s.visible))
	}
	// Original insertion order survives the round trip.
	var texts []string
	for _, item := range s.visible {
		texts = append(texts, item.Text)
	}
	if got := strings.Join(texts, "|"); got != "one?|connected|two?" {
		t.Errorf("order = %q", got)
	}
	checkIndexes(t, s)
}

func TestStoreClear(t *testing.T) {
	s := newStore()
	s.append(question("alice", "one?"))
	s.clear()
	if len(s.all) != 0 || len(s.visible) != 0 {
		t.Fatalf("clear left %d history / %d visible", len(s.all), len(s.visible))
	}
}
