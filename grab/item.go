package grab

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemKind is the display category of a grabbed entry.
type ItemKind int

const (
	KindStatus ItemKind = iota
	KindSubscriber
	KindQuestion
	KindImportantQuestion
)

func (k ItemKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindSubscriber:
		return "subscriber"
	case KindQuestion:
		return "question"
	case KindImportantQuestion:
		return "important_question"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// MarshalText makes the kind render as its name in JSON payloads.
func (k ItemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses the name produced by MarshalText back into the kind.
func (k *ItemKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "status":
		*k = KindStatus
	case "subscriber":
		*k = KindSubscriber
	case "question":
		*k = KindQuestion
	case "important_question":
		*k = KindImportantQuestion
	default:
		return fmt.Errorf("unknown ItemKind %q", text)
	}
	return nil
}

// MergedAuthor is the user shown once a duplicate question has been collapsed
// across distinct authors.
const MergedAuthor = "multiple users"

// Item is one grabbed entry. Index is its position in the visible sequence;
// after every dispatch pass, visible[i].Index == i. Subscriber is monotonic:
// once any author of the (possibly merged) item is confirmed a subscriber it
// stays set. Only the dispatch goroutine mutates items after construction.
type Item struct {
	ID         uuid.UUID `json:"id"`
	Index      int       `json:"index"`
	User       string    `json:"user,omitempty"`
	Text       string    `json:"text"`
	Kind       ItemKind  `json:"kind"`
	Moderator  bool      `json:"moderator,omitempty"`
	Subscriber bool      `json:"subscriber,omitempty"`
	At         time.Time `json:"at"`

	// dropped marks items whose history was cleared; a late duplicate event
	// must not resurrect them. Consumer-owned.
	dropped bool

	// authors holds every distinct author folded into this item, lowered.
	// User shows "multiple users" after a merge, but the subscriber mark
	// matches any of these. Consumer-owned after construction.
	authors []string
}

func newItem(kind ItemKind, user, text string) *Item {
	item := &Item{
		ID:   uuid.New(),
		Kind: kind,
		User: user,
		Text: text,
		At:   time.Now().UTC(),
	}
	item.addAuthor(user)
	return item
}

// addAuthor records user as an author of this item, once.
func (it *Item) addAuthor(user string) {
	if user == "" {
		return
	}
	key := strings.ToLower(user)
	for _, a := range it.authors {
		if a == key {
			return
		}
	}
	it.authors = append(it.authors, key)
}

// newStatusItem builds a system notice entry; status lines carry no author.
func newStatusItem(text string) *Item {
	return newItem(KindStatus, "", text)
}

// newSubNoticeItem builds the announcement shown when a user subscribes.
func newSubNoticeItem(user string) *Item {
	return newItem(KindSubscriber, "", user+" has subscribed!")
}
