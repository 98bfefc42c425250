// Package watch drives change-triggered re-execution: a deduplicating change
// queue fed by the filesystem watcher, a debounce window that batches bursts
// of events, and the loop that runs one engine pass per batch.
package watch

import (
	"sort"
	"sync"
)

// ChangeQueue accumulates changed paths between passes. Duplicate
// notifications for a path collapse into one pending entry, and any number
// of notifications collapse into a single wake-up, so a burst of filesystem
// events triggers exactly one rebuild.
type ChangeQueue struct {
	mu      sync.Mutex
	pending map[string]struct{}
	wake    chan struct{}
}

func NewChangeQueue() *ChangeQueue {
	return &ChangeQueue{
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// NotifyChanged records changed paths and wakes the loop. Safe for
// concurrent use; never blocks.
func (q *ChangeQueue) NotifyChanged(paths ...string) {
	if len(paths) == 0 {
		return
	}
	q.mu.Lock()
	for _, p := range paths {
		q.pending[p] = struct{}{}
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Drain returns the pending change set sorted and clears it. Changes
// notified after Drain returns land in the next batch.
func (q *ChangeQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(q.pending))
	for p := range q.pending {
		paths = append(paths, p)
	}
	q.pending = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}

// Wake returns the channel signaled when changes arrive. The channel has a
// one-slot buffer; a receive may correspond to many notifications.
func (q *ChangeQueue) Wake() <-chan struct{} {
	return q.wake
}

// Len returns the number of distinct pending paths.
func (q *ChangeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
