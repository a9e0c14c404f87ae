// Package scheduler delays callbacks until an absolute time, keyed so a
// superseding schedule for the same work replaces the pending one instead of
// racing it.
package scheduler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Key identifies a unit of delayed work. Kind is "unban" or "unmute"; a
// dispute that reschedules an unban reuses the same key and thereby cancels
// the stale timer.
type Key struct {
	Kind   string
	UserID int64
}

type entry struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

type Scheduler struct {
	mu      sync.Mutex
	entries map[Key]*entry
	wg      sync.WaitGroup
	stopped bool

	// now is swappable for tests.
	now func() time.Time
}

func New() *Scheduler {
	return &Scheduler{
		entries: map[Key]*entry{},
		now:     time.Now,
	}
}

// Schedule registers fn to run at runAt. A runAt in the past fires
// immediately. Scheduling an existing key cancels the pending run first.
func (s *Scheduler) Schedule(key Key, runAt time.Time, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		log.WithFields(log.Fields{"kind": key.Kind, "user_id": key.UserID}).
			Warn("scheduler stopped, dropping schedule request")
		return
	}

	if existing, ok := s.entries[key]; ok {
		if existing.timer.Stop() {
			s.wg.Done()
		}
		existing.cancel()
	}

	delay := runAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancel: cancel}
	s.wg.Add(1)
	e.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer s.remove(key, e)
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn(ctx)
	})
	s.entries[key] = e

	log.WithFields(log.Fields{
		"kind":    key.Kind,
		"user_id": key.UserID,
		"run_at":  runAt,
	}).Debug("scheduled delayed task")
}

// Cancel drops the pending run for key, if any.
func (s *Scheduler) Cancel(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		if e.timer.Stop() {
			s.wg.Done()
		}
		e.cancel()
		delete(s.entries, key)
	}
}

// Len reports the number of pending entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every pending entry and waits for in-flight callbacks, or
// until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for key, e := range s.entries {
		if e.timer.Stop() {
			s.wg.Done()
		}
		e.cancel()
		delete(s.entries, key)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Scheduler) remove(key Key, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[key]; ok && current == e {
		delete(s.entries, key)
	}
}
