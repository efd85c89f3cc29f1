package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/metrics"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// releaseHeldSeatsTx returns the RESERVED seats of leg to AVAILABLE and adds
// them back to the flight's counter.  leg must already be CANCELLED; seats
// another live leg holds are kept.
func (s *BookingService) releaseHeldSeatsTx(ctx context.Context, tx *sql.Tx, leg model.Booking) error {
	released, err := s.seats.ReleaseTx(ctx, tx, leg.FlightID, leg.SeatNumbers(), model.SeatReserved)
	if err != nil {
		return err
	}
	return s.flights.AdjustAvailableSeatsTx(ctx, tx, leg.FlightID, int(released))
}

// ExpireHolds cancels PENDING legs booked more than ttl ago: the leg becomes
// CANCELLED with payment EXPIRED and its seats are released.  A leg whose
// payment outcome lands first is left alone.  It returns the number of legs
// expired.
func (s *BookingService) ExpireHolds(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	stale, err := s.bookings.ListStaleHolds(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, leg := range stale {
		start := time.Now()
		var changed bool
		err := inTx(ctx, s.db, func(tx *sql.Tx) error {
			ok, err := s.bookings.UpdateStatusTx(ctx, tx, leg.ID, repository.StatusChange{
				From: model.BookingPending, To: model.BookingCancelled, PaymentStatus: model.PaymentExpired,
			})
			if err != nil || !ok {
				return err
			}
			changed = true
			return s.releaseHeldSeatsTx(ctx, tx, leg)
		})
		if err != nil {
			return expired, translate(err)
		}
		if !changed {
			continue
		}
		expired++
		metrics.TrackBooking("expire_hold", "expired", time.Since(start))
		s.log.WithFields(logrus.Fields{
			"booking_no": leg.BookingNo,
			"booking_id": leg.ID,
			"flight":     leg.FlightNumber,
			"seats":      leg.SeatNumbers(),
		}).Info("unpaid booking expired")
	}
	return expired, nil
}
