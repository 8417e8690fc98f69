package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler runs keyed one-shot delayed tasks for a single session.
// Scheduling a key that is already pending replaces the earlier timer.
// After Close no task will start.
type Scheduler struct {
	clock  clockwork.Clock
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[string]*scheduledTask
	wg     sync.WaitGroup
}

type scheduledTask struct {
	timer clockwork.Timer
	run   func()
	done  chan struct{}
}

// stop cancels the timer and releases its waiting goroutine.
// Callers hold the scheduler lock.
func (t *scheduledTask) stop() {
	stopAndDrainTimer(t.timer)
	close(t.done)
}

// NewScheduler creates a scheduler driven by the given clock
func NewScheduler(clock clockwork.Clock) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*scheduledTask),
	}
}

// Schedule runs task once d has elapsed on the scheduler clock
func (s *Scheduler) Schedule(key string, d time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		log.Debug().Str("task", key).Msg("scheduler closed, dropping task")
		return
	}

	entry := &scheduledTask{
		timer: s.clock.NewTimer(d),
		run:   task,
		done:  make(chan struct{}),
	}

	// Cancel any existing timer first
	if existing, ok := s.timers[key]; ok {
		existing.stop()
		log.Debug().Str("task", key).Msg("replaced existing timer")
	}
	s.timers[key] = entry

	s.wg.Add(1)
	go s.wait(key, entry)

	log.Debug().Str("task", key).Dur("duration", d).Msg("scheduled one-shot timer")
}

func (s *Scheduler) wait(key string, entry *scheduledTask) {
	defer s.wg.Done()

	select {
	case <-entry.timer.Chan():
		// Only the entry still registered under key may run; a replaced or
		// cancelled entry can race past Stop and must be ignored here.
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current != entry || s.ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		entry.run()
	case <-entry.done:
	case <-s.ctx.Done():
	}
}

// CancelAll stops every pending task but keeps the scheduler usable
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.timers {
		entry.stop()
		delete(s.timers, key)
	}
}

// Close cancels every pending task and refuses new ones. Tasks that already
// started are not interrupted.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.cancel()
	for key, entry := range s.timers {
		entry.stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
