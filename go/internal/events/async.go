package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// AsyncPublisher queues events and publishes them from a background worker,
// so callers holding game locks never wait on the network.
type AsyncPublisher struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration

	mu      sync.Mutex
	running bool
	closed  bool
	wg      sync.WaitGroup

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// PublisherStats counts what happened to enqueued events
type PublisherStats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Queued    int    `json:"queued"`
}

// NewAsyncPublisher wraps next with a queue of the given capacity
func NewAsyncPublisher(next Publisher, capacity int) *AsyncPublisher {
	return &AsyncPublisher{
		next:    next,
		queue:   make(chan Event, capacity),
		timeout: 5 * time.Second,
	}
}

// Start launches the publishing worker
func (p *AsyncPublisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("async publisher already running")
	}
	if p.closed {
		return fmt.Errorf("async publisher closed")
	}
	p.running = true

	p.wg.Add(1)
	go p.run(ctx)

	log.Info().Int("capacity", cap(p.queue)).Msg("event publisher started")
	return nil
}

func (p *AsyncPublisher) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.queue:
			if !ok {
				return
			}
			p.publish(event)
		}
	}
}

func (p *AsyncPublisher) publish(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.next.Publish(ctx, event); err != nil {
		p.failed.Add(1)
		log.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("room", event.RoomCode).
			Msg("failed to publish room event")
		return
	}
	p.published.Add(1)
}

// Publish enqueues the event. It never blocks; a full queue drops the event.
func (p *AsyncPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("async publisher closed")
	}

	select {
	case p.queue <- event:
		return nil
	default:
		p.dropped.Add(1)
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("room", event.RoomCode).
			Msg("event queue full, dropping event")
		return fmt.Errorf("event queue full")
	}
}

// Close stops accepting events, flushes what is queued and closes next
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	running := p.running
	p.mu.Unlock()

	if running {
		p.wg.Wait()
	}
	// Drain anything the worker did not get to
	for event := range p.queue {
		p.publish(event)
	}
	return p.next.Close()
}

// Stats returns the publishing counters
func (p *AsyncPublisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
		Queued:    len(p.queue),
	}
}
