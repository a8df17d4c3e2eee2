package grab

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DarkAutumn/QuestionGrabber/telemetry"
)

// DefaultTick is the dispatch cadence. It is a deliberate batching window:
// bursts of chat activity coalesce into one list mutation per tick instead of
// one per message.
const DefaultTick = 250 * time.Millisecond

// archiveBuffer bounds the appended-questions channel consumed by the archive
// sink; when the sink falls behind, further questions are dropped (counted).
const archiveBuffer = 256

// Config carries the session inputs for a Grabber. Keyword lists and the
// directory are effectively immutable once the session starts.
type Config struct {
	Keywords         Keywords
	Directory        Directory
	DetectDuplicates bool
	Tick             time.Duration
}

// Grabber is the engine instance for one chat channel. Producer methods
// (OnMessage and friends) may be called from any goroutine; all state
// mutation happens on the goroutine running Run.
type Grabber struct {
	queue      eventQueue
	store      *store
	classifier *classifier
	dups       *dupTracker
	tick       time.Duration

	// Consumer-owned dispatch state.
	pendingRebuild <-chan []*Item
	pendingSubs    map[string]struct{}

	snapshot atomic.Pointer[[]Item]
	notifier *notifier
	appends  chan Item

	// Producer-side shadow of the filter flags, used to pick rebuild vs
	// in-place and to answer reads without touching consumer state.
	mu      sync.Mutex
	desired filterState

	rebuildGate <-chan struct{} // test hook, see store.startRebuild
}

func New(cfg Config) *Grabber {
	dir := cfg.Directory
	if dir == nil {
		dir = NewChannelDirectory()
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	g := &Grabber{
		store:       newStore(),
		classifier:  newClassifier(cfg.Keywords, dir),
		dups:        newDupTracker(cfg.DetectDuplicates),
		tick:        tick,
		pendingSubs: make(map[string]struct{}),
		notifier:    newNotifier(),
		appends:     make(chan Item, archiveBuffer),
		desired:     defaultFilterState(),
	}
	empty := make([]Item, 0)
	g.snapshot.Store(&empty)
	return g
}

// Run drives the dispatch loop until ctx is cancelled. It must be called
// exactly once; every store mutation happens on this goroutine.
func (g *Grabber) Run(ctx context.Context) {
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			telemetry.TimeFunc(telemetry.TickDuration, g.tickOnce)
		}
	}
}

// tickOnce is one dispatch pass: resolve a pending rebuild if any, then drain
// the queue, then apply the coalesced in-place refilter and subscriber
// backfill. Split out from Run so tests can step the loop deterministically.
func (g *Grabber) tickOnce() {
	telemetry.SetQueueDepth(g.queue.len())

	if g.pendingRebuild != nil {
		select {
		case result := <-g.pendingRebuild:
			g.pendingRebuild = nil
			if result == nil {
				// Failed rebuild swaps nothing; the previous projection
				// stays as-is and we return to normal draining.
				telemetry.CountRebuild(true)
			} else {
				g.store.swapVisible(result)
				g.publish()
			}
		default:
			// Rebuild still computing: no draining, no mutation this tick.
			return
		}
	}

	mutated := false
	inPlace := false

drain:
	for {
		ev, ok := g.queue.pop()
		if !ok {
			break
		}
		switch ev := ev.(type) {
		case newItemEvent:
			g.store.append(ev.item)
			mutated = true
		case duplicateItemEvent:
			g.store.replaceDuplicate(ev.item, ev.user)
			mutated = true
		case notifySubscriberEvent:
			g.pendingSubs[strings.ToLower(ev.user)] = struct{}{}
		case refilterInPlaceEvent:
			g.store.filter.set(ev.kind, ev.show)
			inPlace = true
		case refilterRebuildEvent:
			g.store.filter.set(ev.kind, ev.show)
			g.pendingRebuild = g.store.startRebuild(g.rebuildGate)
			telemetry.CountRebuild(false)
			// Full stop: everything still queued stays queued until the
			// rebuild resolves.
			break drain
		case clearEvent:
			g.dups.reset()
			g.store.clear()
			mutated = true
		}
	}

	if g.pendingRebuild == nil {
		if inPlace {
			g.store.refilterInPlace()
			mutated = true
		}
		if len(g.pendingSubs) > 0 {
			if n := g.store.markSubscribers(g.pendingSubs); n > 0 {
				telemetry.AddSubscriberBackfills(n)
				mutated = true
			}
			clear(g.pendingSubs)
		}
	}

	if mutated {
		g.publish()
	}
}

// publish copies the visible sequence into an immutable snapshot and signals
// observers. Readers between ticks always see the last published view.
func (g *Grabber) publish() {
	visible := g.store.visible
	snap := make([]Item, len(visible))
	for i, item := range visible {
		snap[i] = *item
	}
	g.snapshot.Store(&snap)
	telemetry.SetListSizes(len(snap), len(g.store.all))
	g.notifier.broadcast()
}

// Visible returns the last published snapshot of the visible sequence. The
// returned slice is never mutated after publication.
func (g *Grabber) Visible() []Item {
	return *g.snapshot.Load()
}

// Subscribe registers an observer notified after every mutating dispatch
// pass. Call the returned cancel function when done.
func (g *Grabber) Subscribe() (<-chan struct{}, func()) {
	return g.notifier.subscribe()
}

// Appends streams value copies of grabbed questions as they enter history,
// for the optional archive sink. Sends are non-blocking; a slow consumer
// loses items (counted), never stalls the dispatch loop.
func (g *Grabber) Appends() <-chan Item {
	return g.appends
}

// Producer surface ----------------------------------------------------------

// OnMessage classifies a chat line and enqueues the resulting event, if any.
// Called from protocol callbacks on arbitrary goroutines; never blocks.
func (g *Grabber) OnMessage(user, text string) {
	telemetry.CountMessage()
	item, ok := g.classifier.classify(user, text)
	if !ok {
		return
	}
	if existing, dup := g.dups.track(text, item); dup {
		telemetry.CountDuplicate()
		g.queue.push(duplicateItemEvent{item: existing, user: user})
		return
	}
	telemetry.CountItem(item.Kind.String())
	g.queue.push(newItemEvent{item: item})
	g.offerArchive(item)
}

// OnUserSubscribed announces a new subscriber and records the user for the
// question backfill (the original notice both displayed and registered).
func (g *Grabber) OnUserSubscribed(user string) {
	if user == "" {
		return
	}
	item := newSubNoticeItem(user)
	telemetry.CountItem(item.Kind.String())
	g.queue.push(newItemEvent{item: item})
	g.queue.push(notifySubscriberEvent{user: user})
}

// OnStatus records a system/diagnostic notice.
func (g *Grabber) OnStatus(text string) {
	if text == "" {
		return
	}
	item := newStatusItem(text)
	telemetry.CountItem(item.Kind.String())
	g.queue.push(newItemEvent{item: item})
}

// OnInformSubscriber handles the asynchronous subscriber confirmation, which
// may arrive before or after the user's messages.
func (g *Grabber) OnInformSubscriber(user string) {
	if user == "" {
		return
	}
	g.queue.push(notifySubscriberEvent{user: user})
}

func (g *Grabber) offerArchive(item *Item) {
	if item.Kind != KindQuestion && item.Kind != KindImportantQuestion {
		return
	}
	select {
	case g.appends <- *item:
	default:
		telemetry.CountArchiveDrop()
	}
}

// Presentation surface ------------------------------------------------------

func (g *Grabber) SetShowQuestions(show bool) { g.setShow(KindQuestion, show) }

func (g *Grabber) SetShowImportantQuestions(show bool) { g.setShow(KindImportantQuestion, show) }

func (g *Grabber) SetShowStatus(show bool) { g.setShow(KindStatus, show) }

func (g *Grabber) SetShowSubscribers(show bool) { g.setShow(KindSubscriber, show) }

// setShow enqueues the refilter matching the toggle direction: turning a
// category off is a pure removal handled in place, turning one on needs a
// full rebuild because history may hold items never projected into the view.
func (g *Grabber) setShow(kind ItemKind, show bool) {
	g.mu.Lock()
	if g.desired.allows(kind) == show {
		g.mu.Unlock()
		return
	}
	g.desired.set(kind, show)
	g.mu.Unlock()
	if show {
		g.queue.push(refilterRebuildEvent{kind: kind, show: show})
	} else {
		g.queue.push(refilterInPlaceEvent{kind: kind, show: show})
	}
}

// Filters reports the requested toggle state (the dispatch loop converges to
// it within a tick).
func (g *Grabber) Filters() (questions, important, status, subscribers bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.desired.questions, g.desired.important, g.desired.status, g.desired.subscribers
}

// Clear drops full history and the visible sequence. The reset rides the
// event queue like every other mutation, so it cannot tear a dispatch pass;
// the duplicate tracker is forgotten at the same point in the event order.
func (g *Grabber) Clear() {
	g.queue.push(clearEvent{})
	slog.Info("list clear requested", slog.String("component", "grab"))
}
