package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/database/dbtest"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *recordingPublisher) PublishBookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return nil
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *sql.DB

	flights  *repository.FlightRepo
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	users    *repository.UserRepo

	events    *recordingPublisher
	booking   *BookingService
	cancel    *CancellationService
	generator *SeatGenerator
	scheduler *JourneyScheduler
	catalog   *FlightService

	userID uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		flights:  repository.NewFlightRepo(db),
		seats:    repository.NewSeatRepo(db),
		bookings: repository.NewBookingRepo(db),
		users:    repository.NewUserRepo(db),
		events:   &recordingPublisher{},
	}
	f.booking = NewBookingService(db, f.users, f.flights, f.seats, f.bookings, f.events, log)
	f.cancel = NewCancellationService(db, f.flights, f.seats, f.bookings, f.events, log)
	f.generator = NewSeatGenerator(db, f.flights, f.seats, log)
	f.scheduler = NewJourneyScheduler(db, f.flights, f.bookings, time.Hour, log)
	f.catalog = NewFlightService(f.flights, f.seats, f.bookings, log)

	id, err := f.users.Create(f.ctx, "customer@example.com", "hash", model.RoleCustomer)
	require.NoError(t, err)
	f.userID = id
	return f
}

type flightOpt func(*model.Flight)

func refundable(charge int) flightOpt {
	return func(fl *model.Flight) {
		fl.BookingType = model.Refundable
		fl.CancellationCharge = charge
	}
}

func nonRefundable() flightOpt {
	return func(fl *model.Flight) { fl.BookingType = model.NonRefundable }
}

func price(p int64) flightOpt {
	return func(fl *model.Flight) { fl.BasePrice = decimal.NewFromInt(p) }
}

// addFlight creates a LIGHT flight with 8 seats and generates its seat map.
func (f *fixture) addFlight(number string, dep, arr time.Time, opts ...flightOpt) *model.Flight {
	f.t.Helper()
	fl := &model.Flight{
		FlightNumber:       number,
		Airline:            "Aurora",
		SourceAirport:      "IKA",
		DestinationAirport: "IST",
		AircraftSize:       model.AircraftLight,
		BookingType:        model.Refundable,
		DepartureType:      model.International,
		DepartureAt:        dep,
		ArrivalAt:          arr,
		BasePrice:          decimal.NewFromInt(10000),
		Capacity:           8,
		CancellationCharge: 20,
		JourneyStatus:      model.JourneyScheduled,
	}
	for _, o := range opts {
		o(fl)
	}
	require.NoError(f.t, f.flights.Create(f.ctx, fl))
	status, err := f.generator.Generate(f.ctx, number)
	require.NoError(f.t, err)
	require.Equal(f.t, model.SeatsCreated, status)
	return f.flight(number)
}

func (f *fixture) flight(number string) *model.Flight {
	f.t.Helper()
	fl, err := f.flights.GetByNumber(f.ctx, number)
	require.NoError(f.t, err)
	return fl
}

func (f *fixture) seatStatus(flightID uint64, seatNumber string) model.SeatStatus {
	f.t.Helper()
	seats, err := f.seats.ListByFlight(f.ctx, flightID)
	require.NoError(f.t, err)
	for _, s := range seats {
		if s.SeatNumber == seatNumber {
			return s.Status
		}
	}
	f.t.Fatalf("seat %s not found", seatNumber)
	return ""
}

func passenger(name, passport, seat string) PassengerRequest {
	return PassengerRequest{Name: name, Age: 30, Gender: model.Female, PassportNumber: passport, SeatNumber: seat}
}

// future returns a fixed instant well after any test clock.
func future(day, hour int) time.Time {
	return time.Date(2031, time.January, day, hour, 0, 0, 0, time.UTC)
}
