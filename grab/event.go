package grab

// event is a closed union: every variant lives in this file and the dispatch
// loop switches over all of them. Events are immutable once constructed and
// carry no references back into the queue.
type event interface{ isEvent() }

// newItemEvent appends a freshly classified item to history.
type newItemEvent struct{ item *Item }

// duplicateItemEvent references the already-tracked item for a re-asked
// question; user is the new author, used for the "multiple users" merge.
type duplicateItemEvent struct {
	item *Item
	user string
}

// notifySubscriberEvent requests a subscriber-mark backfill for user. These
// may arrive before or after the message they relate to.
type notifySubscriberEvent struct{ user string }

// refilterInPlaceEvent applies a removal-only toggle (show=false) and asks for
// one coalesced in-place pass at the end of the tick.
type refilterInPlaceEvent struct {
	kind ItemKind
	show bool
}

// refilterRebuildEvent applies an additive toggle (show=true) and starts a
// full asynchronous rebuild of the visible sequence from history.
type refilterRebuildEvent struct {
	kind ItemKind
	show bool
}

// clearEvent drops history and the visible sequence (administrative reset).
type clearEvent struct{}

func (newItemEvent) isEvent()          {}
func (duplicateItemEvent) isEvent()    {}
func (notifySubscriberEvent) isEvent() {}
func (refilterInPlaceEvent) isEvent()  {}
func (refilterRebuildEvent) isEvent()  {}
func (clearEvent) isEvent()            {}
