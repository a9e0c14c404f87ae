package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/observability"
)

type sanctionStore interface {
	ListDueBans(ctx context.Context, before time.Time) ([]*db.Ban, error)
	ListDueMutes(ctx context.Context, before time.Time) ([]*db.Mute, error)
}

type banScheduler interface {
	ScheduleUnban(userID int64, runAt time.Time)
}

type muteScheduler interface {
	ScheduleUnmute(userID int64, runAt time.Time)
}

// Sweeper is the periodic safety net under the in-memory timers. Every
// interval it loads sanctions expiring within the lookahead window and
// re-registers them with the scheduler; keyed scheduling makes re-submitting
// an already-tracked sanction a no-op replace. A process restart therefore
// loses a timer for at most one interval.
type Sweeper struct {
	store sanctionStore
	bans  banScheduler
	mutes muteScheduler

	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func New(store sanctionStore, bans banScheduler, mutes muteScheduler, interval, lookahead time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		bans:      bans,
		mutes:     mutes,
		interval:  interval,
		lookahead: lookahead,
		now:       time.Now,
	}
}

func (s *Sweeper) getLogEntry() *log.Entry {
	return log.WithField("context", "sweep")
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	s.workersWg.Add(1)
	go func() {
		defer s.workersWg.Done()

		// Initial pass re-arms timers dropped by a restart.
		if err := s.Tick(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.getLogEntry().WithError(err).Error("initial sweep failed")
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := s.Tick(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					s.getLogEntry().WithError(err).Error("sweep failed")
				}
			}
		}
	}()

	s.started = true
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	if !s.started {
		s.runMutex.Unlock()
		return nil
	}
	s.started = false
	cancel := s.runCancel
	s.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.workersWg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs a single sweep pass. Exported so the command layer can force a
// pass outside the ticker.
func (s *Sweeper) Tick(ctx context.Context) error {
	started := s.now()
	horizon := started.Add(s.lookahead)
	entry := s.getLogEntry().WithField("horizon", horizon.UTC())

	bans, err := s.store.ListDueBans(ctx, horizon)
	if err != nil {
		return err
	}
	for _, ban := range bans {
		s.bans.ScheduleUnban(ban.UserID, ban.ExpiresAt())
	}

	mutes, err := s.store.ListDueMutes(ctx, horizon)
	if err != nil {
		return err
	}
	for _, mute := range mutes {
		s.mutes.ScheduleUnmute(mute.UserID, mute.ExpiresAt())
	}

	observability.ObserveSweep(time.Since(started).Seconds())
	if len(bans)+len(mutes) > 0 {
		entry.WithFields(log.Fields{
			"due_bans":  len(bans),
			"due_mutes": len(mutes),
		}).Info("sweep re-armed due sanctions")
	}
	return nil
}
