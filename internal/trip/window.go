package trip

import (
	"sync"
	"time"
)

type windowKey struct {
	subject string
	field   string
}

// window is one time-bounded sequence of event timestamps. Its mutex
// serializes the prune-then-append-then-count sequence; splitting those
// steps across goroutines would under- or double-count.
type window struct {
	mu    sync.Mutex
	times []time.Time
}

// Windows holds the sliding-window state for every (subject, field)
// pair. The outer lock only guards map membership; counting happens
// under the per-window lock so unrelated subjects never contend.
type Windows struct {
	mu sync.Mutex
	m  map[windowKey]*window
}

// NewWindows creates an empty window table.
func NewWindows() *Windows {
	return &Windows{m: make(map[windowKey]*window)}
}

func (w *Windows) get(subject, field string) *window {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := windowKey{subject: subject, field: field}
	win, ok := w.m[key]
	if !ok {
		win = &window{}
		w.m[key] = win
	}
	return win
}

// Observe records an occurrence at now, prunes entries older than
// windowS seconds, and returns the resulting count. The whole sequence
// is atomic per key.
func (w *Windows) Observe(subject, field string, now time.Time, windowS int) int {
	win := w.get(subject, field)
	win.mu.Lock()
	defer win.mu.Unlock()

	win.times = append(win.times, now)
	return win.pruneLocked(now, windowS)
}

// Count prunes and returns the current count without recording a new
// occurrence.
func (w *Windows) Count(subject, field string, now time.Time, windowS int) int {
	win := w.get(subject, field)
	win.mu.Lock()
	defer win.mu.Unlock()
	return win.pruneLocked(now, windowS)
}

// pruneLocked drops timestamps outside [now-windowS, now]. Caller holds
// the window lock.
func (win *window) pruneLocked(now time.Time, windowS int) int {
	cutoff := now.Add(-time.Duration(windowS) * time.Second)
	idx := 0
	for idx < len(win.times) && win.times[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		win.times = append(win.times[:0], win.times[idx:]...)
	}
	return len(win.times)
}
