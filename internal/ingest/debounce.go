package ingest

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the default coalescing window: a debouncer
// keyed by absolute path, firing at most once per window.
const DefaultDebounceWindow = 200 * time.Millisecond

// Debouncer coalesces bursts of filesystem events per path into at most
// one fire per window, per path.
type Debouncer struct {
	mu sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
	fire func(path string)
}

// NewDebouncer returns a debouncer that calls fire at most once per
// window for each distinct path, using window if positive or
// DefaultDebounceWindow otherwise.
func NewDebouncer(window time.Duration, fire func(path string)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, timers: make(map[string]*time.Timer), fire: fire}
}

// Notify registers an event for path, resetting its window. Additional
// events for the same path before the window elapses extend the window
// rather than firing again.
func (d *Debouncer) Notify(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Reset(d.window)
		return
	}

	d.timers[path] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.fire(path)
	})
}

// Stop cancels all pending timers without firing them.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = make(map[string]*time.Timer)
}
