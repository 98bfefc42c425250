package events

import "time"

// ChangeDetected is published by the filesystem watcher for every relevant
// change, before debouncing. Path is relative to the watched input root.
type ChangeDetected struct {
	Path string
	At   time.Time
}

// PassStarted is published when the watch loop hands a batch of changes to
// the engine. The pass ID is not known yet; correlate via PassCompleted.
type PassStarted struct {
	Changed []string
	At      time.Time
}

// PassCompleted is published after a pass finishes, whatever the outcome.
// Consumers that only care about reloadable output should check Succeeded.
type PassCompleted struct {
	PassID    string
	Succeeded bool
	Canceled  bool
	Duration  time.Duration
	Documents int
	Err       error
}
