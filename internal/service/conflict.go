package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// ConflictDetector rejects a passenger who is already on the flight or whose
// passport holds an itinerary that overlaps the new one.
type ConflictDetector struct {
	bookings *repository.BookingRepo
}

func NewConflictDetector(bookings *repository.BookingRepo) *ConflictDetector {
	return &ConflictDetector{bookings: bookings}
}

// Overlaps reports whether [aDep, aArr) and [bDep, bArr) intersect.  Touching
// intervals, where one ends exactly as the other begins, do not overlap.
func Overlaps(aDep, aArr, bDep, bArr time.Time) bool {
	return aDep.Before(bArr) && bDep.Before(aArr)
}

// CheckTx runs both checks for one passenger of a booking by userID on
// flight.  Only non-cancelled bookings count.
func (d *ConflictDetector) CheckTx(ctx context.Context, tx *sql.Tx, flight *model.Flight, userID uint64, p model.Passenger) error {
	booked, err := d.bookings.PassengerBookedTx(ctx, tx, flight.ID, userID, p.Name)
	if err != nil {
		return err
	}
	if booked {
		return model.NewConflictError("passenger already booked on this flight")
	}

	itineraries, err := d.bookings.ItinerariesByPassportTx(ctx, tx, p.PassportNumber)
	if err != nil {
		return err
	}
	for _, it := range itineraries {
		if Overlaps(it.DepartureAt, it.ArrivalAt, flight.DepartureAt, flight.ArrivalAt) {
			return model.NewConflictError("passenger has an overlapping itinerary")
		}
	}
	return nil
}
