package grab

import "strings"

// Keywords holds the session keyword lists. All matching is case-insensitive:
// user ignores are exact matches, everything else is a substring match.
// Highlight keywords are checked strictly before grab keywords, so a line
// matching both always classifies as an important question.
type Keywords struct {
	Grab        []string
	Highlight   []string
	IgnoreUsers []string
	IgnoreText  []string
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

// classifier decides whether a chat line becomes a grabbed item. It is pure
// apart from read-only Directory lookups, so producers may call it from any
// goroutine.
type classifier struct {
	grab        []string
	highlight   []string
	ignoreUsers []string
	ignoreText  []string
	dir         Directory
}

func newClassifier(kw Keywords, dir Directory) *classifier {
	return &classifier{
		grab:        lowerAll(kw.Grab),
		highlight:   lowerAll(kw.Highlight),
		ignoreUsers: lowerAll(kw.IgnoreUsers),
		ignoreText:  lowerAll(kw.IgnoreText),
		dir:         dir,
	}
}

// classify returns the item for a chat line, or false when the line carries no
// tracked category. Empty author or text is dropped silently.
func (c *classifier) classify(user, text string) (*Item, bool) {
	if user == "" || text == "" {
		return nil, false
	}
	lowerUser := strings.ToLower(user)
	for _, ignore := range c.ignoreUsers {
		if lowerUser == ignore {
			return nil, false
		}
	}

	lowerText := strings.ToLower(text)

	for _, hl := range c.highlight {
		if strings.Contains(lowerText, hl) {
			if c.shouldIgnore(lowerText) {
				return nil, false
			}
			return c.build(KindImportantQuestion, user, text), true
		}
	}

	for _, kw := range c.grab {
		if strings.Contains(lowerText, kw) {
			if c.shouldIgnore(lowerText) {
				return nil, false
			}
			return c.build(KindQuestion, user, text), true
		}
	}

	return nil, false
}

func (c *classifier) shouldIgnore(lowerText string) bool {
	for _, ignore := range c.ignoreText {
		if strings.Contains(lowerText, ignore) {
			return true
		}
	}
	return false
}

func (c *classifier) build(kind ItemKind, user, text string) *Item {
	item := newItem(kind, user, text)
	item.Moderator = c.dir.IsModerator(user)
	item.Subscriber = c.dir.IsSubscriber(user)
	return item
}
