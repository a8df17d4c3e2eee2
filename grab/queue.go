package grab

import "sync"

// eventQueue is a multi-producer, single-consumer unbounded FIFO. Pushes never
// block; events are popped one at a time so the dispatch loop can stop
// draining mid-pass (a rebuild request leaves the remainder queued).
type eventQueue struct {
	mu     sync.Mutex
	events []event
}

func (q *eventQueue) push(ev event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

func (q *eventQueue) pop() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return ev, true
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
