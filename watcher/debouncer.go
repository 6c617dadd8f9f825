package watcher

import (
	"sync"
	"time"
)

// Change is one coalesced file system change attributed to a tracked root.
type Change struct {
	Path     string
	RootPath string
	Op       Op
}

// Op is the kind of file system change.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer coalesces raw change notifications and emits one batch per
// quiet period. Later changes to the same path replace earlier ones, so a
// save storm collapses to a single change and a rename's remove and create
// usually land in the same batch.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	pending  map[string]Change
	timer    *time.Timer
	output   chan []Change
	quit     chan struct{}
	inFlight int
	stopped  bool
	closed   bool
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]Change),
		output:   make(chan []Change, 16),
		quit:     make(chan struct{}),
	}
}

// Output returns the channel batches arrive on.
func (d *Debouncer) Output() <-chan []Change {
	return d.output
}

// Add records a change and restarts the quiet period.
func (d *Debouncer) Add(change Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[change.Path] = change

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// flush sends the pending batch without holding the mutex, so a stalled
// consumer never blocks Add and with it the event loop feeding it.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]Change, 0, len(d.pending))
	for _, change := range d.pending {
		batch = append(batch, change)
	}
	d.pending = make(map[string]Change)
	d.inFlight++
	d.mu.Unlock()

	select {
	case d.output <- batch:
	case <-d.quit:
	}

	d.mu.Lock()
	d.inFlight--
	if d.stopped && d.inFlight == 0 && !d.closed {
		d.closed = true
		close(d.output)
	}
	d.mu.Unlock()
}

// Stop drops pending changes and closes the output channel. No Add may
// race past a Stop; a send still in flight finishes (or aborts via quit)
// before the channel closes.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.quit)
	if d.inFlight == 0 {
		d.closed = true
		close(d.output)
	}
	d.mu.Unlock()
}
