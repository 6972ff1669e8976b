// CLAUDE:SUMMARY Applies resize/scroll/mutation observations to the mapper in order, with debounced notification.
// Package viewtrack keeps the coordinate mapper in sync with what the
// viewer actually sees. Resize observers, scroll listeners and mutation
// observers can fire at high frequency; the tracker applies every observed
// change to the mapper in arrival order (so any resolution issued after an
// update reflects it), but coalesces notification bursts through a
// debounce window, because subscribers typically re-resolve annotations
// and that walks the DOM.
package viewtrack

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/pinmark/geom"
)

// EventKind discriminates viewport observations.
type EventKind string

const (
	EventResize EventKind = "resize" // viewport or design size changed
	EventScroll EventKind = "scroll"
	EventZoom   EventKind = "zoom"
	EventMutate EventKind = "mutate" // content mutated; geometry may have shifted
)

// Event is one observation from the UI layer. Only the fields relevant to
// the kind need be set; EventMutate carries no payload and exists to force
// a re-resolution.
type Event struct {
	Kind     EventKind
	Viewport *geom.Size
	Design   *geom.Size
	Scroll   *geom.Point
	Zoom     *float64
}

// Snapshot is what subscribers receive: the state after applying every
// event observed so far, plus its version.
type Snapshot struct {
	State   geom.ViewportState
	Version uint64
}

// Options tunes the tracker.
type Options struct {
	// Window is the notification debounce. Default: 50ms (roughly three
	// animation frames).
	Window time.Duration
	// MaxBuffer forces a notification when this many events have been
	// applied without one. Default: 500.
	MaxBuffer int
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Window <= 0 {
		o.Window = 50 * time.Millisecond
	}
	if o.MaxBuffer <= 0 {
		o.MaxBuffer = 500
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Tracker owns the event loop between observers and the mapper.
type Tracker struct {
	mapper *geom.Mapper
	opts   Options

	events chan Event
	subs   []func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Tracker feeding the given mapper. Subscribe before Start;
// the subscriber list is not synchronized after the loop is running.
func New(m *geom.Mapper, opts Options) *Tracker {
	opts.defaults()
	return &Tracker{
		mapper: m,
		opts:   opts,
		events: make(chan Event, 1024),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a callback invoked with the coalesced snapshot.
func (t *Tracker) Subscribe(fn func(Snapshot)) {
	t.subs = append(t.subs, fn)
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (t *Tracker) Start(ctx context.Context) {
	t.ctx, t.cancel = context.WithCancel(ctx)
	go t.loop()
}

// Stop terminates the loop, flushing a final notification if any events
// were pending.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	<-t.done
}

// Observe enqueues an observation. It never blocks: when the buffer is
// full the event is dropped with a warning, which at worst delays a
// re-resolution until the next observation.
func (t *Tracker) Observe(e Event) {
	select {
	case t.events <- e:
	default:
		t.opts.Logger.Warn("viewtrack: event buffer full, dropping", "kind", e.Kind)
	}
}

func (t *Tracker) loop() {
	defer close(t.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := 0

	flush := func() {
		if pending == 0 {
			return
		}
		pending = 0
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		state, version := t.mapper.Snapshot()
		snap := Snapshot{State: state, Version: version}
		for _, fn := range t.subs {
			fn(snap)
		}
	}

	for {
		select {
		case <-t.ctx.Done():
			// Drain whatever observers managed to enqueue so the final
			// notification reflects every observed change.
			for {
				select {
				case e := <-t.events:
					if t.apply(e) {
						pending++
					}
					continue
				default:
				}
				break
			}
			flush()
			return

		case e := <-t.events:
			if !t.apply(e) {
				continue
			}
			pending++
			if pending >= t.opts.MaxBuffer {
				flush()
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(t.opts.Window)
			timerC = timer.C

		case <-timerC:
			flush()
		}
	}
}

// apply merges one event into the mapper, in arrival order. Every
// populated field is merged: the kind names what triggered the event, not
// which fields count — an observer's first report carries the full state
// under a single kind. Updates that would leave the viewport degenerate
// are rejected: publishing NaN-producing state helps nobody downstream.
func (t *Tracker) apply(e Event) bool {
	switch e.Kind {
	case EventResize, EventScroll, EventZoom:
	case EventMutate:
		// No state change; still triggers a notification.
		return true
	default:
		t.opts.Logger.Warn("viewtrack: unknown event kind", "kind", e.Kind)
		return false
	}

	next := t.mapper.State()
	u := geom.ViewportUpdate{
		Viewport: e.Viewport,
		Design:   e.Design,
		Scroll:   e.Scroll,
		Zoom:     e.Zoom,
	}
	if e.Viewport != nil {
		next.Viewport = *e.Viewport
	}
	if e.Design != nil {
		next.Design = *e.Design
	}
	if e.Scroll != nil {
		next.Scroll = *e.Scroll
	}
	if e.Zoom != nil {
		next.Zoom = *e.Zoom
	}

	if err := next.Validate(); err != nil {
		t.opts.Logger.Warn("viewtrack: rejecting degenerate viewport update",
			"kind", e.Kind, "error", err)
		return false
	}

	t.mapper.UpdateViewport(u)
	return true
}
