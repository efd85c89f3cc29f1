package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/fare"
	"github.com/iliyamo/flight-reservation/internal/metrics"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/utils"
)

// PassengerRequest is one traveller in a booking request.
type PassengerRequest struct {
	Name           string       `json:"name"`
	Age            int          `json:"age"`
	Gender         model.Gender `json:"gender"`
	PassportNumber string       `json:"passport_number"`
	SeatNumber     string       `json:"seat_number"`
}

// BookRequest asks for seats on one flight leg.  BookingNo groups the leg
// with legs booked earlier; leave it empty to get a new number.
type BookRequest struct {
	BookingNo    string                `json:"booking_no,omitempty"`
	FlightNumber string                `json:"flight_number"`
	TripType     model.TripType        `json:"trip_type,omitempty"`
	SpecialFare  model.SpecialFareType `json:"special_fare,omitempty"`
	ContactEmail string                `json:"contact_email,omitempty"`
	ContactPhone string                `json:"contact_phone,omitempty"`
	Passengers   []PassengerRequest    `json:"passengers"`
}

// Ticket is the per-passenger view of a booking leg.  Fare is the leg total
// divided by its passenger count.
type Ticket struct {
	BookingID      uint64                `json:"ticket_id"`
	BookingNo      string                `json:"booking_no"`
	FlightNumber   string                `json:"flight_number"`
	TripType       model.TripType        `json:"trip_type"`
	SpecialFare    model.SpecialFareType `json:"special_fare"`
	BookingStatus  model.BookingStatus   `json:"booking_status"`
	JourneyStatus  model.JourneyStatus   `json:"journey_status"`
	DepartureAt    time.Time             `json:"departure_at"`
	ArrivalAt      time.Time             `json:"arrival_at"`
	PassengerName  string                `json:"passenger_name"`
	Age            int                   `json:"age"`
	Gender         model.Gender          `json:"gender"`
	PassportNumber string                `json:"passport_number"`
	SeatNumber     string                `json:"seat_number"`
	TravelClass    model.TravelClass     `json:"travel_class"`
	SeatType       model.SeatType        `json:"seat_type"`
	Fare           decimal.Decimal       `json:"fare"`
	BookedAt       time.Time             `json:"booked_at"`
}

// BookingService books, confirms and reads bookings.
type BookingService struct {
	db        *sql.DB
	users     *repository.UserRepo
	flights   *repository.FlightRepo
	seats     *repository.SeatRepo
	bookings  *repository.BookingRepo
	conflicts *ConflictDetector
	events    EventPublisher
	log       logrus.FieldLogger

	now          func() time.Time
	newBookingNo func(time.Time) string
}

// NewBookingService wires a BookingService.  A nil publisher disables events.
func NewBookingService(db *sql.DB, users *repository.UserRepo, flights *repository.FlightRepo, seats *repository.SeatRepo,
	bookings *repository.BookingRepo, events EventPublisher, log logrus.FieldLogger) *BookingService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &BookingService{
		db:           db,
		users:        users,
		flights:      flights,
		seats:        seats,
		bookings:     bookings,
		conflicts:    NewConflictDetector(bookings),
		events:       events,
		log:          log.WithField("component", "booking"),
		now:          func() time.Time { return time.Now().UTC() },
		newBookingNo: utils.NewBookingNumber,
	}
}

// SetClock replaces the service's clock.
func (s *BookingService) SetClock(now func() time.Time) { s.now = now }

// Book reserves the requested seats on one flight.  The booking is created
// PENDING with its seats RESERVED until payment is confirmed.
func (s *BookingService) Book(ctx context.Context, userID uint64, req BookRequest) (*model.Booking, error) {
	legs, err := s.BookItinerary(ctx, userID, []BookRequest{req})
	if err != nil {
		return nil, err
	}
	return &legs[0], nil
}

// BookItinerary books several legs under one booking number in a single
// transaction.  If any leg fails nothing is persisted.
func (s *BookingService) BookItinerary(ctx context.Context, userID uint64, reqs []BookRequest) ([]model.Booking, error) {
	start := time.Now()
	legs, err := s.bookItinerary(ctx, userID, reqs)
	outcome := "success"
	if err != nil {
		outcome = "error"
		if kind, ok := model.KindOf(err); ok {
			outcome = strings.ToLower(string(kind))
		}
	}
	metrics.TrackBooking("book", outcome, time.Since(start))
	return legs, err
}

func (s *BookingService) bookItinerary(ctx context.Context, userID uint64, reqs []BookRequest) ([]model.Booking, error) {
	if len(reqs) == 0 {
		return nil, model.NewValidationError("at least one flight leg is required")
	}
	rules := make([]fare.Rule, len(reqs))
	bookingNo := ""
	for i := range reqs {
		r, err := prepareRequest(&reqs[i], len(reqs))
		if err != nil {
			return nil, err
		}
		rules[i] = r
		if bookingNo == "" {
			bookingNo = strings.TrimSpace(reqs[i].BookingNo)
		}
	}
	extending := bookingNo != ""
	if !extending {
		bookingNo = s.newBookingNo(s.now())
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, translate(err)
	}

	legs := make([]model.Booking, 0, len(reqs))
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if extending {
			// Legs can only be added to an existing booking of the same user.
			existing, err := s.bookings.ListByNumberTx(ctx, tx, bookingNo)
			if err != nil {
				return translate(err)
			}
			if !ownedBy(existing, userID) {
				return model.NewNotFoundError("booking not found")
			}
		}
		for i := range reqs {
			b, err := s.bookLegTx(ctx, tx, userID, bookingNo, reqs[i], rules[i])
			if err != nil {
				return err
			}
			legs = append(legs, *b)
		}
		return nil
	})
	if err != nil {
		err = translate(err)
		log := s.log.WithFields(logrus.Fields{"user_id": userID, "booking_no": bookingNo})
		if model.IsKind(err, model.KindConflict) || model.IsKind(err, model.KindState) {
			log.WithError(err).Info("booking rejected")
		} else if _, classified := model.KindOf(err); !classified {
			log.WithError(err).Error("booking failed")
		}
		return nil, err
	}

	for _, b := range legs {
		s.log.WithFields(logrus.Fields{
			"booking_no": b.BookingNo,
			"booking_id": b.ID,
			"flight":     b.FlightNumber,
			"passengers": b.PassengerCount,
			"total":      b.TotalAmount.StringFixed(2),
		}).Info("booking committed")
	}
	return legs, nil
}

// prepareRequest normalises and validates req before any storage access.
// Fare eligibility is checked here so a FareError never touches a seat.
func prepareRequest(req *BookRequest, legs int) (fare.Rule, error) {
	req.FlightNumber = strings.ToUpper(strings.TrimSpace(req.FlightNumber))
	if req.FlightNumber == "" {
		return fare.Rule{}, model.NewValidationError("flight_number is required")
	}
	if len(req.Passengers) == 0 {
		return fare.Rule{}, model.NewValidationError("at least one passenger is required")
	}
	if req.TripType == "" {
		switch {
		case legs == 2:
			req.TripType = model.RoundTrip
		case legs > 2:
			req.TripType = model.MultiCity
		default:
			req.TripType = model.OneWay
		}
	}
	req.TripType = model.TripType(strings.ToUpper(string(req.TripType)))
	if !req.TripType.Valid() {
		return fare.Rule{}, model.NewValidationError("invalid trip_type %q", req.TripType)
	}

	passports := make(map[string]bool, len(req.Passengers))
	seats := make(map[string]bool, len(req.Passengers))
	for i := range req.Passengers {
		p := &req.Passengers[i]
		p.Name = strings.TrimSpace(p.Name)
		p.PassportNumber = strings.TrimSpace(p.PassportNumber)
		p.SeatNumber = strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		if p.Name == "" {
			return fare.Rule{}, model.NewValidationError("passenger name is required")
		}
		if p.Age <= 0 {
			return fare.Rule{}, model.NewValidationError("passenger age must be positive")
		}
		if p.PassportNumber == "" {
			return fare.Rule{}, model.NewValidationError("passport_number is required")
		}
		if p.SeatNumber == "" {
			return fare.Rule{}, model.NewValidationError("seat_number is required")
		}
		if p.Gender == "" {
			p.Gender = model.Other
		}
		p.Gender = model.Gender(strings.ToUpper(string(p.Gender)))
		if !p.Gender.Valid() {
			return fare.Rule{}, model.NewValidationError("invalid gender %q", p.Gender)
		}
		if passports[p.PassportNumber] {
			return fare.Rule{}, model.NewValidationError("passport %s appears twice in the request", p.PassportNumber)
		}
		if seats[p.SeatNumber] {
			return fare.Rule{}, model.NewValidationError("seat %s requested twice", p.SeatNumber)
		}
		passports[p.PassportNumber] = true
		seats[p.SeatNumber] = true
	}

	rule, err := fare.Lookup(req.SpecialFare)
	if err != nil {
		return fare.Rule{}, err
	}
	n := len(req.Passengers)
	if err := fare.ValidatePassengerCount(rule, &n); err != nil {
		return fare.Rule{}, err
	}
	return rule, nil
}

// bookLegTx allocates the seats of one leg and inserts its booking.  Locks
// are taken in a fixed order: the flight's counter row, the passports in
// sorted order, then the seats by id.
func (s *BookingService) bookLegTx(ctx context.Context, tx *sql.Tx, userID uint64, bookingNo string, req BookRequest, rule fare.Rule) (*model.Booking, error) {
	flight, err := s.flights.GetByNumberTx(ctx, tx, req.FlightNumber)
	if err != nil {
		return nil, translate(err)
	}
	if flight.JourneyStatus != model.JourneyScheduled {
		return nil, model.NewStateError("flight %s is %s and cannot be booked", flight.FlightNumber, flight.JourneyStatus)
	}
	n := len(req.Passengers)
	if flight.AvailableSeats < n {
		return nil, model.NewStateError("flight %s has only %d seat(s) available", flight.FlightNumber, flight.AvailableSeats)
	}
	if err := s.flights.AdjustAvailableSeatsTx(ctx, tx, flight.ID, -n); err != nil {
		return nil, translate(err)
	}

	passengers := make([]model.Passenger, 0, n)
	classes := make([]model.TravelClass, 0, n)
	seats := make([]*model.Seat, 0, n)
	passports := make([]string, 0, n)
	for _, pr := range req.Passengers {
		seat, err := s.seats.GetByNumberTx(ctx, tx, flight.ID, pr.SeatNumber)
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, model.NewNotFoundError("seat %s not found on flight %s", pr.SeatNumber, flight.FlightNumber)
		}
		if err != nil {
			return nil, err
		}
		passengers = append(passengers, model.Passenger{
			UserID:         userID,
			Name:           pr.Name,
			Age:            pr.Age,
			Gender:         pr.Gender,
			PassportNumber: pr.PassportNumber,
			SeatNumber:     seat.SeatNumber,
			TravelClass:    seat.TravelClass,
			SeatType:       seat.Type,
		})
		classes = append(classes, seat.TravelClass)
		seats = append(seats, seat)
		passports = append(passports, pr.PassportNumber)
	}

	sort.Strings(passports)
	for _, pp := range passports {
		if err := s.bookings.LockPassportTx(ctx, tx, pp); err != nil {
			return nil, err
		}
	}
	for _, p := range passengers {
		if err := s.conflicts.CheckTx(ctx, tx, flight, userID, p); err != nil {
			return nil, err
		}
	}

	// The guarded update is the only seat check: a seat read as AVAILABLE
	// may have been taken since.
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	for _, seat := range seats {
		if err := s.seats.TransitionTx(ctx, tx, seat.ID, model.SeatAvailable, model.SeatReserved); err != nil {
			if errors.Is(err, repository.ErrSeatUnavailable) {
				return nil, model.NewStateError("seat %s already taken", seat.SeatNumber)
			}
			return nil, err
		}
	}

	quote, err := fare.Total(flight.BasePrice, classes, rule)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		BookingNo:      bookingNo,
		UserID:         userID,
		FlightID:       flight.ID,
		FlightNumber:   flight.FlightNumber,
		TripType:       req.TripType,
		Status:         model.BookingPending,
		PaymentStatus:  model.PaymentPending,
		SpecialFare:    rule.Type,
		TotalAmount:    quote.Total,
		PassengerCount: n,
		JourneyStatus:  model.JourneyScheduled,
		DepartureAt:    flight.DepartureAt,
		ArrivalAt:      flight.ArrivalAt,
		ContactEmail:   strings.TrimSpace(req.ContactEmail),
		ContactPhone:   strings.TrimSpace(req.ContactPhone),
		Passengers:     passengers,
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmPayment applies a payment outcome to every PENDING leg of
// bookingNo.  SUCCESS confirms the legs and turns their seats OCCUPIED;
// FAILED cancels them and gives the seats back.  Legs in any other status
// are left alone.  The legs are returned as stored after the update.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingNo string, outcome model.PaymentStatus, paymentID string) ([]model.Booking, error) {
	start := time.Now()
	outcome = model.PaymentStatus(strings.ToUpper(string(outcome)))
	if outcome != model.PaymentSuccess && outcome != model.PaymentFailed {
		return nil, model.NewValidationError("payment status must be SUCCESS or FAILED")
	}
	var pid *string
	if paymentID = strings.TrimSpace(paymentID); paymentID != "" {
		pid = &paymentID
	}

	var changed []model.Booking
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		legs, err := s.bookings.ListByNumberTx(ctx, tx, bookingNo)
		if err != nil {
			return translate(err)
		}
		for _, leg := range legs {
			if leg.Status != model.BookingPending {
				continue
			}
			to := model.BookingConfirmed
			if outcome == model.PaymentFailed {
				to = model.BookingCancelled
			}
			ok, err := s.bookings.UpdateStatusTx(ctx, tx, leg.ID, repository.StatusChange{
				From: model.BookingPending, To: to, PaymentStatus: outcome, PaymentID: pid,
			})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if outcome == model.PaymentSuccess {
				if _, err := s.seats.TransitionByNumbersTx(ctx, tx, leg.FlightID, leg.SeatNumbers(), model.SeatOccupied, model.SeatReserved); err != nil {
					return err
				}
			} else if err := s.releaseHeldSeatsTx(ctx, tx, leg); err != nil {
				return err
			}
			leg.Status, leg.PaymentStatus, leg.PaymentID = to, outcome, pid
			changed = append(changed, leg)
		}
		return nil
	})
	metrics.TrackBooking("confirm_payment", strings.ToLower(string(outcome)), time.Since(start))
	if err != nil {
		return nil, translate(err)
	}

	now := s.now().Format(time.RFC3339)
	for _, leg := range changed {
		s.log.WithFields(logrus.Fields{
			"booking_no": leg.BookingNo,
			"booking_id": leg.ID,
			"status":     leg.Status,
			"payment":    leg.PaymentStatus,
		}).Info("payment applied")
		if leg.Status != model.BookingConfirmed {
			continue
		}
		ev := queue.BookingConfirmedEvent{
			BookingID:    leg.ID,
			BookingNo:    leg.BookingNo,
			UserID:       leg.UserID,
			FlightNumber: leg.FlightNumber,
			DepartureAt:  leg.DepartureAt.Format(time.RFC3339),
			ArrivalAt:    leg.ArrivalAt.Format(time.RFC3339),
			SeatNumbers:  leg.SeatNumbers(),
			TotalAmount:  leg.TotalAmount.StringFixed(2),
			PaymentID:    paymentID,
			ConfirmedAt:  now,
		}
		if err := s.events.PublishBookingConfirmed(ctx, ev); err != nil {
			s.log.WithError(err).WithField("booking_no", leg.BookingNo).Warn("publish booking.confirmed failed")
		}
	}
	return s.bookings.ListByNumber(ctx, bookingNo)
}

// GetForUser returns the legs of bookingNo when they belong to userID.
// Bookings of other users are reported as not found.
func (s *BookingService) GetForUser(ctx context.Context, bookingNo string, userID uint64) ([]model.Booking, error) {
	legs, err := s.bookings.ListByNumber(ctx, bookingNo)
	if err != nil {
		return nil, translate(err)
	}
	if !ownedBy(legs, userID) {
		return nil, model.NewNotFoundError("booking not found")
	}
	return legs, nil
}

// ownedBy reports whether every leg was booked by userID.
func ownedBy(legs []model.Booking, userID uint64) bool {
	for _, l := range legs {
		if l.UserID != userID {
			return false
		}
	}
	return len(legs) > 0
}

// ListByUser returns all legs booked by userID, newest first.
func (s *BookingService) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// Tickets returns one ticket per passenger of every leg booked by userID.
func (s *BookingService) Tickets(ctx context.Context, userID uint64) ([]Ticket, error) {
	legs, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ticketsOf(legs), nil
}

// TicketsForBooking returns the tickets of one booking of userID.  Bookings
// of other users are reported as not found.
func (s *BookingService) TicketsForBooking(ctx context.Context, bookingNo string, userID uint64) ([]Ticket, error) {
	legs, err := s.GetForUser(ctx, bookingNo, userID)
	if err != nil {
		return nil, err
	}
	return ticketsOf(legs), nil
}

func ticketsOf(legs []model.Booking) []Ticket {
	out := make([]Ticket, 0, len(legs))
	for _, b := range legs {
		per := b.TotalAmount
		if b.PassengerCount > 0 {
			per = b.TotalAmount.Div(decimal.NewFromInt(int64(b.PassengerCount))).Round(2)
		}
		for _, p := range b.Passengers {
			out = append(out, Ticket{
				BookingID:      b.ID,
				BookingNo:      b.BookingNo,
				FlightNumber:   b.FlightNumber,
				TripType:       b.TripType,
				SpecialFare:    b.SpecialFare,
				BookingStatus:  b.Status,
				JourneyStatus:  b.JourneyStatus,
				DepartureAt:    b.DepartureAt,
				ArrivalAt:      b.ArrivalAt,
				PassengerName:  p.Name,
				Age:            p.Age,
				Gender:         p.Gender,
				PassportNumber: p.PassportNumber,
				SeatNumber:     p.SeatNumber,
				TravelClass:    p.TravelClass,
				SeatType:       p.SeatType,
				Fare:           per,
				BookedAt:       b.BookedAt,
			})
		}
	}
	return out
}
