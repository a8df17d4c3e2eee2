package grab

import (
	"strings"
	"sync"
)

// Directory answers moderator/subscriber lookups for chat users. Unknown users
// are simply not moderators and not subscribers; a miss is never an error.
type Directory interface {
	IsModerator(user string) bool
	IsSubscriber(user string) bool
}

type userData struct {
	moderator  bool
	subscriber bool
	turbo      bool
}

// ChannelDirectory tracks per-user channel state learned from protocol-level
// notices. Flags are update-only; nothing is ever removed during a session.
// Writes come from protocol callbacks and reads from classification, both on
// arbitrary goroutines, so access goes through an RWMutex.
type ChannelDirectory struct {
	mu    sync.RWMutex
	users map[string]*userData
}

func NewChannelDirectory() *ChannelDirectory {
	return &ChannelDirectory{users: make(map[string]*userData)}
}

func (d *ChannelDirectory) IsModerator(user string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u := d.users[strings.ToLower(user)]
	return u != nil && u.moderator
}

func (d *ChannelDirectory) IsSubscriber(user string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u := d.users[strings.ToLower(user)]
	return u != nil && u.subscriber
}

func (d *ChannelDirectory) IsTurbo(user string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u := d.users[strings.ToLower(user)]
	return u != nil && u.turbo
}

func (d *ChannelDirectory) AddModerator(user string)  { d.set(user, func(u *userData) { u.moderator = true }) }
func (d *ChannelDirectory) AddSubscriber(user string) { d.set(user, func(u *userData) { u.subscriber = true }) }
func (d *ChannelDirectory) AddTurbo(user string)      { d.set(user, func(u *userData) { u.turbo = true }) }

func (d *ChannelDirectory) set(user string, apply func(*userData)) {
	if user == "" {
		return
	}
	key := strings.ToLower(user)
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[key]
	if u == nil {
		u = &userData{}
		d.users[key] = u
	}
	apply(u)
}
