package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/metrics"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// JourneyStatusAt derives the journey status of a flight at now.
func JourneyStatusAt(dep, arr, now time.Time) model.JourneyStatus {
	switch {
	case now.Before(dep):
		return model.JourneyScheduled
	case now.Before(arr):
		return model.JourneyInProgress
	default:
		return model.JourneyCompleted
	}
}

// JourneyScheduler periodically moves flights through SCHEDULED,
// IN_PROGRESS and COMPLETED according to the wall clock, and mirrors the
// new status onto their bookings.
type JourneyScheduler struct {
	db       *sql.DB
	flights  *repository.FlightRepo
	bookings *repository.BookingRepo
	interval time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
	expire   func(context.Context) (int, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJourneyScheduler(db *sql.DB, flights *repository.FlightRepo, bookings *repository.BookingRepo,
	interval time.Duration, log logrus.FieldLogger) *JourneyScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JourneyScheduler{
		db:       db,
		flights:  flights,
		bookings: bookings,
		interval: interval,
		log:      log.WithField("component", "journey-scheduler"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the scheduler's clock.
func (s *JourneyScheduler) SetClock(now func() time.Time) { s.now = now }

// SetHoldExpiry adds expire to every tick, after the journey sweep.  It is
// used to release the seats of unpaid bookings.  Call it before Start.
func (s *JourneyScheduler) SetHoldExpiry(expire func(context.Context) (int, error)) {
	s.expire = expire
}

// Start runs a sweep immediately and then once per interval on its own
// goroutine until Stop is called or ctx ends.  Calling Start twice is a
// no-op.
func (s *JourneyScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Error("journey sweep failed")
			}
			if s.expire != nil {
				if _, err := s.expire(ctx); err != nil && ctx.Err() == nil {
					s.log.WithError(err).Error("hold expiry failed")
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}(s.done)
	s.log.WithField("interval", s.interval.String()).Info("journey scheduler started")
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *JourneyScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("journey scheduler stopped")
}

// Sweep recomputes the journey status of every flight that has not
// completed and persists the ones that changed.  Each change is a
// conditional update on the stored status, so a concurrent writer is never
// overwritten.  It returns the number of flights moved.
func (s *JourneyScheduler) Sweep(ctx context.Context) (int, error) {
	flights, err := s.flights.ListNotCompleted(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	moved := 0
	for _, f := range flights {
		want := JourneyStatusAt(f.DepartureAt, f.ArrivalAt, now)
		if want == f.JourneyStatus {
			continue
		}
		var changed bool
		err := inTx(ctx, s.db, func(tx *sql.Tx) error {
			ok, err := s.flights.UpdateJourneyStatusTx(ctx, tx, f.ID, f.JourneyStatus, want)
			if err != nil || !ok {
				return err
			}
			if _, err := s.bookings.SetJourneyStatusByFlightTx(ctx, tx, f.ID, want); err != nil {
				return err
			}
			changed = true
			return nil
		})
		if err != nil {
			return moved, err
		}
		if !changed {
			continue
		}
		moved++
		metrics.TrackJourneyTransition(string(want))
		s.log.WithFields(logrus.Fields{
			"flight": f.FlightNumber,
			"from":   f.JourneyStatus,
			"to":     want,
		}).Info("journey status changed")
	}
	return moved, nil
}
