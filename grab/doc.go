// Package grab contains the question-grabbing engine: it classifies incoming
// chat lines against grab/highlight keyword lists, collapses duplicate
// questions, and maintains a filterable, densely-indexed list of grabbed
// entries for display.
//
// Concurrency model: protocol callbacks (producers) classify inline and push
// immutable events onto an unbounded queue; a single dispatch goroutine wakes
// on a fixed tick, drains the queue, and applies every mutation to the item
// store. Readers never see the store directly; a value snapshot of the visible
// sequence is published atomically at the end of each mutating tick, so the
// view is index-stable between ticks without any reader-side locking.
//
// Filter toggles never mutate state from the caller's goroutine. Turning a
// category off enqueues a cheap in-place refilter (removal only); turning one
// on enqueues a full asynchronous rebuild, because history may hold matching
// items that were never projected into the visible list. While a rebuild is in
// flight the dispatch loop stops draining entirely and polls for the result;
// events queued in the meantime are applied after the swap, in order.
package grab
