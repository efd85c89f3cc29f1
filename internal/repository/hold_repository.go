package repository

import (
	"context"
	"time"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// ListStaleHolds returns the PENDING legs booked at or before cutoff, with
// their passengers.  Their seats are still RESERVED waiting for a payment
// outcome.  The cutoff is applied to the scanned rows so DATETIME handling
// stays backend independent.
func (r *BookingRepo) ListStaleHolds(ctx context.Context, cutoff time.Time) ([]model.Booking, error) {
	pending, err := queryBookings(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY booked_at, id`, model.BookingPending)
	if err != nil {
		return nil, err
	}
	out := pending[:0]
	for _, b := range pending {
		if !b.BookedAt.After(cutoff) {
			out = append(out, b)
		}
	}
	return out, nil
}
