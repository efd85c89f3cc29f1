package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/metrics"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/seatmap"
)

// SeatGenerator creates or re-opens the seat map of a flight.
type SeatGenerator struct {
	db      *sql.DB
	flights *repository.FlightRepo
	seats   *repository.SeatRepo
	log     logrus.FieldLogger
}

func NewSeatGenerator(db *sql.DB, flights *repository.FlightRepo, seats *repository.SeatRepo, log logrus.FieldLogger) *SeatGenerator {
	return &SeatGenerator{db: db, flights: flights, seats: seats, log: log.WithField("component", "seat-generator")}
}

// Generate builds the seat map of a flight.
//
//   - COMPLETED flights are left untouched: COMPLETED_NO_CHANGE.
//   - A flight without seats gets a freshly generated map: CREATED.
//   - A flight with seats has every seat reset to AVAILABLE: UPDATED.
//
// In both writing cases the flight's available-seat counter is set to the
// number of AVAILABLE seats.
func (g *SeatGenerator) Generate(ctx context.Context, flightNumber string) (model.SeatOperationStatus, error) {
	var status model.SeatOperationStatus
	err := inTx(ctx, g.db, func(tx *sql.Tx) error {
		f, err := g.flights.GetByNumberTx(ctx, tx, strings.ToUpper(strings.TrimSpace(flightNumber)))
		if err != nil {
			return translate(err)
		}
		if f.JourneyStatus == model.JourneyCompleted {
			status = model.SeatsCompletedNoChange
			return nil
		}

		existing, err := g.seats.CountByFlightTx(ctx, tx, f.ID)
		if err != nil {
			return err
		}
		if existing == 0 {
			seats, err := seatmap.Generate(f.Capacity, f.AircraftSize)
			if err != nil {
				return err
			}
			if err := g.seats.CreateBulkTx(ctx, tx, f.ID, seats); err != nil {
				return err
			}
			status = model.SeatsCreated
		} else {
			if _, err := g.seats.ResetAllTx(ctx, tx, f.ID, model.SeatAvailable); err != nil {
				return err
			}
			if existing != f.Capacity {
				g.log.WithFields(logrus.Fields{
					"flight":   f.FlightNumber,
					"seats":    existing,
					"capacity": f.Capacity,
				}).Warn("seat count differs from capacity; re-opening existing seats")
			}
			status = model.SeatsUpdated
		}

		available, err := g.seats.CountByStatusTx(ctx, tx, f.ID, model.SeatAvailable)
		if err != nil {
			return err
		}
		return g.flights.SetAvailableSeatsTx(ctx, tx, f.ID, available)
	})
	if err != nil {
		return "", err
	}
	metrics.TrackSeatGeneration(string(status))
	g.log.WithFields(logrus.Fields{"flight": flightNumber, "status": status}).Info("seat generation")
	return status, nil
}
