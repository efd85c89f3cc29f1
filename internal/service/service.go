// Package service holds the booking engine: seat generation, conflict
// detection, the booking transaction, payment confirmation, cancellation
// and the journey status scheduler.  Every mutating operation runs in one
// database transaction; errors returned to callers are *model.Error values
// classified by kind.
package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// EventPublisher receives booking events after their transaction commits.
// Implemented by *queue.Publisher and queue.NopPublisher.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// translate maps repository sentinels and lost lock races onto classified
// domain errors.  Classified and unknown errors are returned unchanged.
func translate(err error) error {
	if _, classified := model.KindOf(err); classified {
		return err
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrFlightNotFound):
		return model.NewNotFoundError("flight not found")
	case errors.Is(err, repository.ErrSeatNotFound):
		return model.NewNotFoundError("seat not found")
	case errors.Is(err, repository.ErrBookingNotFound):
		return model.NewNotFoundError("booking not found")
	case errors.Is(err, repository.ErrUserNotFound):
		return model.NewNotFoundError("user not found")
	case errors.Is(err, repository.ErrSeatUnavailable):
		return model.NewStateError("seat already taken")
	case errors.Is(err, repository.ErrInsufficientSeats):
		return model.NewStateError("not enough available seats")
	case errors.Is(err, repository.ErrFlightExists):
		return model.NewConflictError("flight number already exists")
	case errors.Is(err, repository.ErrConflict):
		return model.NewConflictError("flight has bookings")
	case repository.IsLockConflict(err):
		return model.NewStateError("booking changed concurrently, please retry")
	}
	return err
}

// inTx runs fn in a transaction and commits when it returns nil.  Any error
// rolls back every write fn made.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
