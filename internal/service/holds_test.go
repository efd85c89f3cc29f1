package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/model"
)

func TestExpireHolds_ReleasesUnpaidSeats(t *testing.T) {
	f := newFixture(t)
	fl := f.addFlight("AU160", future(10, 8), future(10, 12))
	held, err := f.booking.Book(f.ctx, f.userID, BookRequest{FlightNumber: "AU160", Passengers: []PassengerRequest{passenger("Sara", "P1", "1A")}})
	require.NoError(t, err)
	paid, err := f.booking.Book(f.ctx, f.userID, BookRequest{FlightNumber: "AU160", Passengers: []PassengerRequest{passenger("Reza", "P2", "1B")}})
	require.NoError(t, err)
	_, err = f.booking.ConfirmPayment(f.ctx, paid.BookingNo, model.PaymentSuccess, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, 6, f.flight("AU160").AvailableSeats)

	n, err := f.booking.ExpireHolds(f.ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.booking.SetClock(func() time.Time { return time.Now().Add(time.Hour) })
	n, err = f.booking.ExpireHolds(f.ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	legs, err := f.bookings.ListByNumber(f.ctx, held.BookingNo)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, legs[0].Status)
	assert.Equal(t, model.PaymentExpired, legs[0].PaymentStatus)
	assert.Equal(t, model.SeatAvailable, f.seatStatus(fl.ID, "1A"))
	assert.Equal(t, model.SeatOccupied, f.seatStatus(fl.ID, "1B"))
	assert.Equal(t, 7, f.flight("AU160").AvailableSeats)

	// Expired and confirmed legs are both out of reach.
	n, err = f.booking.ExpireHolds(f.ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.booking.ConfirmPayment(f.ctx, held.BookingNo, model.PaymentSuccess, "late")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, f.seatStatus(fl.ID, "1A"))
}

func TestExpireHolds_DisabledWithoutTTL(t *testing.T) {
	f := newFixture(t)
	f.addFlight("AU161", future(10, 8), future(10, 12))
	_, err := f.booking.Book(f.ctx, f.userID, BookRequest{FlightNumber: "AU161", Passengers: []PassengerRequest{passenger("Sara", "P1", "1A")}})
	require.NoError(t, err)
	f.booking.SetClock(func() time.Time { return time.Now().Add(24 * time.Hour) })

	n, err := f.booking.ExpireHolds(f.ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 7, f.flight("AU161").AvailableSeats)
}

func TestScheduler_RunsHoldExpiry(t *testing.T) {
	f := newFixture(t)
	f.addFlight("AU162", future(10, 8), future(10, 12))
	_, err := f.booking.Book(f.ctx, f.userID, BookRequest{FlightNumber: "AU162", Passengers: []PassengerRequest{passenger("Sara", "P1", "1A")}})
	require.NoError(t, err)
	f.booking.SetClock(func() time.Time { return time.Now().Add(time.Hour) })

	f.scheduler.SetHoldExpiry(func(ctx context.Context) (int, error) {
		return f.booking.ExpireHolds(ctx, time.Minute)
	})
	f.scheduler.Start(f.ctx)
	defer f.scheduler.Stop()
	require.Eventually(t, func() bool {
		fl, err := f.flights.GetByNumber(f.ctx, "AU162")
		return err == nil && fl.AvailableSeats == 8
	}, 2*time.Second, 10*time.Millisecond)
}
