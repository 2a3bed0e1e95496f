// Package event provides an in-process pub/sub bus used to decouple the
// sync orchestrator from anything that reacts to its lifecycle.
package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	SyncStarted   Type = "sync.started"
	SyncCompleted Type = "sync.completed"
	SyncFailed    Type = "sync.failed"
	AlbumStored   Type = "album.stored"
	CuratedReload Type = "curated.reloaded"
)

// Event represents something that happened in the system.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Bus fans events out to subscribers from a single dispatch goroutine, so
// handlers never run on a publisher's goroutine and a slow handler cannot
// block a sync in progress.
type Bus struct {
	events  chan Event
	quit    chan struct{}
	logger  *slog.Logger
	dropped atomic.Uint64

	mu       sync.RWMutex
	handlers map[Type][]Handler
	stopped  bool
}

// NewBus creates a new event bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		events:   make(chan Event, bufSize),
		quit:     make(chan struct{}),
		handlers: make(map[Type][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish enqueues an event without blocking. When the buffer is full the
// event is dropped; losing a lifecycle notification is preferable to
// stalling the publisher.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.events <- e:
	default:
		b.logger.Warn("event buffer full, dropping event",
			"type", string(e.Type),
			"dropped_total", b.dropped.Add(1))
	}
}

// Dropped reports how many events have been discarded since startup.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Start dispatches events until Stop is called, then drains whatever is
// still buffered before returning. Run it in its own goroutine.
func (b *Bus) Start() {
	for {
		select {
		case e := <-b.events:
			b.dispatch(e)
		case <-b.quit:
			b.drain()
			return
		}
	}
}

// Stop signals the bus to finish. Safe to call more than once.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		b.stopped = true
		close(b.quit)
	}
}

func (b *Bus) drain() {
	for {
		select {
		case e := <-b.events:
			b.dispatch(e)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for i, h := range handlers {
		b.call(i, h, e)
	}
}

// call runs one handler, containing any panic so the remaining handlers
// still see the event.
func (b *Bus) call(i int, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"type", string(e.Type), "handler", i, "panic", r)
		}
	}()
	h(e)
}
