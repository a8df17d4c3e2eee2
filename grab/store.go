package grab

import (
	"log/slog"
	"strings"
)

// store owns the append-only full history and the visible projection over it.
// Invariant, restored after every mutation: visible holds exactly the history
// items whose kind passes filter, in insertion order, and visible[i].Index == i.
// All methods run on the dispatch goroutine; startRebuild hands a read-only
// view of history to a worker while the dispatch loop stops mutating.
type store struct {
	all     []*Item
	visible []*Item
	filter  filterState
}

func newStore() *store {
	return &store{filter: defaultFilterState()}
}

// append records item in history and, if it passes the current filter, assigns
// it the next visible index and appends it to the visible sequence.
func (s *store) append(item *Item) {
	s.all = append(s.all, item)
	if s.filter.allows(item.Kind) {
		item.Index = len(s.visible)
		s.visible = append(s.visible, item)
	}
}

// replaceDuplicate collapses a re-asked question into its existing item: the
// author is rewritten to MergedAuthor when it differs, and the item moves to
// the bottom of the visible sequence as if newly asked, with everything in
// between renumbered. An item currently filtered out just gets the merge.
func (s *store) replaceDuplicate(item *Item, user string) {
	if item.dropped {
		return
	}
	item.addAuthor(user)
	if item.User != MergedAuthor && !strings.EqualFold(item.User, user) {
		item.User = MergedAuthor
	}
	if !s.filter.allows(item.Kind) {
		return
	}
	at := -1
	if item.Index >= 0 && item.Index < len(s.visible) && s.visible[item.Index] == item {
		at = item.Index
	}
	if at == -1 {
		// Not in the projection; re-admit it at the bottom.
		item.Index = len(s.visible)
		s.visible = append(s.visible, item)
		return
	}
	copy(s.visible[at:], s.visible[at+1:])
	s.visible[len(s.visible)-1] = item
	for i := at; i < len(s.visible); i++ {
		s.visible[i].Index = i
	}
}

// markSubscribers sets the subscriber mark on every unmarked question in
// history with at least one author in users (lowered names). A merged item
// matches through any of its folded-in authors, not its displayed user. Items
// keep their position; the mark is monotonic. Returns how many items changed.
func (s *store) markSubscribers(users map[string]struct{}) int {
	changed := 0
	for _, item := range s.all {
		if item.Kind != KindQuestion && item.Kind != KindImportantQuestion {
			continue
		}
		if item.Subscriber {
			continue
		}
		for _, author := range item.authors {
			if _, ok := users[author]; ok {
				item.Subscriber = true
				changed++
				break
			}
		}
	}
	return changed
}

// refilterInPlace drops visible entries that no longer pass the filter,
// renumbering as it goes. O(len(visible)); used for removal-only toggles.
func (s *store) refilterInPlace() {
	kept := s.visible[:0]
	for _, item := range s.visible {
		if s.filter.allows(item.Kind) {
			item.Index = len(kept)
			kept = append(kept, item)
		}
	}
	for i := len(kept); i < len(s.visible); i++ {
		s.visible[i] = nil
	}
	s.visible = kept
}

// startRebuild recomputes the visible sequence from full history on a worker
// goroutine and delivers the result on the returned channel. The dispatch loop
// must not mutate the store until the result (or nil, on failure) arrives.
// gate is a test hook; when non-nil the worker waits on it before starting.
func (s *store) startRebuild(gate <-chan struct{}) <-chan []*Item {
	history := s.all
	filter := s.filter
	done := make(chan []*Item, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("refilter rebuild failed", slog.Any("panic", r), slog.String("component", "grab"))
				done <- nil
			}
		}()
		if gate != nil {
			<-gate
		}
		next := make([]*Item, 0, len(history))
		for _, item := range history {
			if filter.allows(item.Kind) {
				next = append(next, item)
			}
		}
		done <- next
	}()
	return done
}

// swapVisible installs a completed rebuild result and renumbers it. Index
// assignment happens here, on the dispatch goroutine, so a failed rebuild can
// never leave half-renumbered items behind.
func (s *store) swapVisible(next []*Item) {
	for i, item := range next {
		item.Index = i
	}
	s.visible = next
}

func (s *store) clear() {
	for _, item := range s.all {
		item.dropped = true
	}
	s.all = nil
	s.visible = nil
}
