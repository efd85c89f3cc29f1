package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/fare"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/seatmap"
)

// FlightInput carries the admin-supplied fields of a new flight.
type FlightInput struct {
	FlightNumber       string              `json:"flight_number"`
	Airline            string              `json:"airline"`
	SourceAirport      string              `json:"source_airport"`
	DestinationAirport string              `json:"destination_airport"`
	Stops              int                 `json:"stops"`
	AircraftSize       model.AircraftSize  `json:"aircraft_size"`
	BookingType        model.BookingType   `json:"booking_type"`
	DepartureType      model.DepartureType `json:"departure_type"`
	DepartureAt        time.Time           `json:"departure_at"`
	ArrivalAt          time.Time           `json:"arrival_at"`
	BasePrice          decimal.Decimal     `json:"base_price"`
	Capacity           int                 `json:"capacity"`
	CancellationCharge int                 `json:"cancellation_charge"`
}

// SearchParams is a flight search with an optional special fare.
type SearchParams struct {
	repository.FlightSearchQuery
	SpecialFare model.SpecialFareType
}

// FlightOffer is a search hit with the per-ticket price after the special
// fare discount.
type FlightOffer struct {
	model.Flight
	DurationMinutes int                   `json:"duration_minutes"`
	SpecialFare     model.SpecialFareType `json:"special_fare"`
	FarePrice       decimal.Decimal       `json:"fare_price"`
}

// SearchResult is one page of offers.
type SearchResult struct {
	Flights  []FlightOffer `json:"flights"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// FlightService manages the flight catalog and its read side.
type FlightService struct {
	flights  *repository.FlightRepo
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewFlightService(flights *repository.FlightRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo, log logrus.FieldLogger) *FlightService {
	return &FlightService{flights: flights, seats: seats, bookings: bookings, log: log.WithField("component", "flights"), now: time.Now}
}

func validateFlight(in *FlightInput) error {
	in.FlightNumber = strings.ToUpper(strings.TrimSpace(in.FlightNumber))
	in.Airline = strings.TrimSpace(in.Airline)
	in.SourceAirport = strings.ToUpper(strings.TrimSpace(in.SourceAirport))
	in.DestinationAirport = strings.ToUpper(strings.TrimSpace(in.DestinationAirport))
	in.AircraftSize = model.AircraftSize(strings.ToUpper(string(in.AircraftSize)))
	in.BookingType = model.BookingType(strings.ToUpper(string(in.BookingType)))
	in.DepartureType = model.DepartureType(strings.ToUpper(string(in.DepartureType)))

	switch {
	case in.FlightNumber == "":
		return model.NewValidationError("flight_number is required")
	case in.Airline == "":
		return model.NewValidationError("airline is required")
	case in.SourceAirport == "" || in.DestinationAirport == "":
		return model.NewValidationError("source_airport and destination_airport are required")
	case in.SourceAirport == in.DestinationAirport:
		return model.NewValidationError("source and destination airports must differ")
	case in.DepartureAt.IsZero() || in.ArrivalAt.IsZero():
		return model.NewValidationError("departure_at and arrival_at are required")
	case !in.ArrivalAt.After(in.DepartureAt):
		return model.NewValidationError("arrival_at must be after departure_at")
	case !in.BasePrice.IsPositive():
		return model.NewValidationError("base_price must be positive")
	case in.Capacity <= 0:
		return model.NewValidationError("capacity must be positive")
	case in.Stops < 0:
		return model.NewValidationError("stops cannot be negative")
	case in.CancellationCharge < 0 || in.CancellationCharge > 100:
		return model.NewValidationError("cancellation_charge must be between 0 and 100")
	case !in.AircraftSize.Valid():
		return model.NewValidationError("invalid aircraft_size %q", in.AircraftSize)
	case !in.BookingType.Valid():
		return model.NewValidationError("invalid booking_type %q", in.BookingType)
	case !in.DepartureType.Valid():
		return model.NewValidationError("invalid departure_type %q", in.DepartureType)
	}
	return nil
}

// Create validates in and adds the flight to the catalog.  The flight starts
// SCHEDULED with no seats; its available-seat counter is set when the seat
// map is generated.
func (s *FlightService) Create(ctx context.Context, in FlightInput) (*model.Flight, error) {
	if err := validateFlight(&in); err != nil {
		return nil, err
	}
	f := &model.Flight{
		FlightNumber:       in.FlightNumber,
		Airline:            in.Airline,
		SourceAirport:      in.SourceAirport,
		DestinationAirport: in.DestinationAirport,
		Stops:              in.Stops,
		AircraftSize:       in.AircraftSize,
		BookingType:        in.BookingType,
		DepartureType:      in.DepartureType,
		DepartureAt:        in.DepartureAt.UTC(),
		ArrivalAt:          in.ArrivalAt.UTC(),
		BasePrice:          in.BasePrice.Round(2),
		Capacity:           in.Capacity,
		CancellationCharge: in.CancellationCharge,
		JourneyStatus:      JourneyStatusAt(in.DepartureAt, in.ArrivalAt, s.now()),
	}
	if err := s.flights.Create(ctx, f); err != nil {
		return nil, translate(err)
	}
	s.log.WithFields(logrus.Fields{"flight": f.FlightNumber, "id": f.ID}).Info("flight created")
	return f, nil
}

// Update replaces the descriptive fields of an existing flight.  The flight
// number comes from flightNumber; any number in in is ignored.  Completed
// flights cannot be edited.  Capacity and aircraft size are fixed once a
// seat map exists.  New times are copied onto the flight's live bookings.
func (s *FlightService) Update(ctx context.Context, flightNumber string, in FlightInput) (*model.Flight, error) {
	in.FlightNumber = flightNumber
	if err := validateFlight(&in); err != nil {
		return nil, err
	}

	var out *model.Flight
	err := inTx(ctx, s.flights.DB(), func(tx *sql.Tx) error {
		f, err := s.flights.GetByNumberTx(ctx, tx, in.FlightNumber)
		if err != nil {
			return translate(err)
		}
		if f.JourneyStatus == model.JourneyCompleted {
			return model.NewStateError("flight %s has completed and cannot be changed", f.FlightNumber)
		}
		if in.Capacity != f.Capacity || in.AircraftSize != f.AircraftSize {
			n, err := s.seats.CountByFlightTx(ctx, tx, f.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return model.NewConflictError("flight %s already has a seat map; capacity and aircraft_size cannot change", f.FlightNumber)
			}
		}

		f.Airline = in.Airline
		f.SourceAirport = in.SourceAirport
		f.DestinationAirport = in.DestinationAirport
		f.Stops = in.Stops
		f.AircraftSize = in.AircraftSize
		f.BookingType = in.BookingType
		f.DepartureType = in.DepartureType
		f.DepartureAt = in.DepartureAt.UTC()
		f.ArrivalAt = in.ArrivalAt.UTC()
		f.BasePrice = in.BasePrice.Round(2)
		f.Capacity = in.Capacity
		f.CancellationCharge = in.CancellationCharge
		f.JourneyStatus = JourneyStatusAt(f.DepartureAt, f.ArrivalAt, s.now())
		if err := s.flights.UpdateTx(ctx, tx, f); err != nil {
			return translate(err)
		}
		if _, err := s.bookings.SyncFlightTimesTx(ctx, tx, f.ID, f.DepartureAt, f.ArrivalAt); err != nil {
			return err
		}
		if _, err := s.bookings.SetJourneyStatusByFlightTx(ctx, tx, f.ID, f.JourneyStatus); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.WithFields(logrus.Fields{"flight": out.FlightNumber, "journey_status": out.JourneyStatus}).Info("flight updated")
	return out, nil
}

// Get returns a flight by number.
func (s *FlightService) Get(ctx context.Context, flightNumber string) (*model.Flight, error) {
	f, err := s.flights.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(flightNumber)))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

// List returns the whole catalog.
func (s *FlightService) List(ctx context.Context) ([]model.Flight, error) {
	return s.flights.List(ctx)
}

// Delete removes a flight that has never been booked.
func (s *FlightService) Delete(ctx context.Context, flightNumber string) error {
	if err := s.flights.DeleteByNumber(ctx, strings.ToUpper(strings.TrimSpace(flightNumber))); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.NewConflictError("flight %s has bookings and cannot be deleted", flightNumber)
		}
		return translate(err)
	}
	s.log.WithField("flight", flightNumber).Info("flight deleted")
	return nil
}

// Search returns one page of flights matching p.  When a special fare is
// given it is checked against the passenger count and its discount is
// applied to each offer's price.
func (s *FlightService) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	rule, err := fare.Lookup(p.SpecialFare)
	if err != nil {
		return nil, err
	}
	passengers := p.Passengers
	if passengers <= 0 {
		passengers = 1
	}
	if err := fare.ValidatePassengerCount(rule, &passengers); err != nil {
		return nil, err
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}

	found, total, err := s.flights.Search(ctx, p.FlightSearchQuery)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Flights: offers(found, rule), Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

func offers(found []model.Flight, rule fare.Rule) []FlightOffer {
	out := make([]FlightOffer, 0, len(found))
	for _, f := range found {
		base := f.BasePrice
		price := decimal.Max(fare.ApplyDiscount(&base, rule), decimal.Zero)
		out = append(out, FlightOffer{
			Flight:          f,
			DurationMinutes: f.DurationMinutes(),
			SpecialFare:     rule.Type,
			FarePrice:       price,
		})
	}
	return out
}

// Seats returns the seat map of a flight ordered by row and column.
func (s *FlightService) Seats(ctx context.Context, flightNumber string) ([]model.Seat, error) {
	f, err := s.Get(ctx, flightNumber)
	if err != nil {
		return nil, err
	}
	return s.seats.ListByFlight(ctx, f.ID)
}

// Layout renders the seat map of a flight as text.
func (s *FlightService) Layout(ctx context.Context, flightNumber string) (string, error) {
	f, err := s.Get(ctx, flightNumber)
	if err != nil {
		return "", err
	}
	seats, err := s.seats.ListByFlight(ctx, f.ID)
	if err != nil {
		return "", err
	}
	return seatmap.Layout(f.FlightNumber, f.AircraftSize, seats)
}
