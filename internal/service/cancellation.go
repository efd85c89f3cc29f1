package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/metrics"
	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// LegReport is the outcome of cancelling one leg.
type LegReport struct {
	BookingID     uint64              `json:"booking_id"`
	FlightNumber  string              `json:"flight_number"`
	Status        model.BookingStatus `json:"status"`
	RefundAmount  decimal.Decimal     `json:"refund_amount"`
	ChargePercent int                 `json:"cancellation_charge_percent"`
	Message       string              `json:"message"`
}

// CancellationReport is returned by Cancel.  Status is always CANCELLED;
// each leg carries its own refund.
type CancellationReport struct {
	BookingNo string              `json:"booking_no"`
	Status    model.BookingStatus `json:"status"`
	Legs      []LegReport         `json:"flights"`
	Message   string              `json:"message"`
}

// CancellationService cancels bookings and computes refunds.
type CancellationService struct {
	db       *sql.DB
	flights  *repository.FlightRepo
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	events   EventPublisher
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewCancellationService(db *sql.DB, flights *repository.FlightRepo, seats *repository.SeatRepo,
	bookings *repository.BookingRepo, events EventPublisher, log logrus.FieldLogger) *CancellationService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &CancellationService{
		db:       db,
		flights:  flights,
		seats:    seats,
		bookings: bookings,
		events:   events,
		log:      log.WithField("component", "cancellation"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used to measure time before departure.
func (s *CancellationService) SetClock(now func() time.Time) { s.now = now }

// ChargePercent selects the cancellation charge for a refundable leg from
// the flight's base percentage and the whole hours left before departure.
func ChargePercent(base int, hoursBefore int64) int {
	var charge int
	switch {
	case hoursBefore > 48:
		charge = base / 2
	case hoursBefore >= 24:
		charge = base
	case hoursBefore < 4:
		charge = int(math.Round(float64(base) * 1.2))
	default:
		charge = base
	}
	if charge > 100 {
		charge = 100
	}
	return charge
}

// RefundAmount returns total less charge percent, rounded to 2 places.
func RefundAmount(total decimal.Decimal, charge int) decimal.Decimal {
	keep := decimal.NewFromInt(int64(100 - charge)).Div(decimal.NewFromInt(100))
	return total.Mul(keep).Round(2)
}

// HoursBefore returns the whole hours from now until dep, truncated toward
// zero.  It is negative once the flight has left.
func HoursBefore(dep, now time.Time) int64 {
	return int64(dep.Sub(now) / time.Hour)
}

// Cancel cancels every leg of bookingNo.  Legs that are already cancelled
// are reported as such and left untouched, so repeating the call is safe.
// Seats of a leg go back to AVAILABLE unless its flight has completed.
func (s *CancellationService) Cancel(ctx context.Context, bookingNo string) (*CancellationReport, error) {
	start := time.Now()
	report := &CancellationReport{
		BookingNo: bookingNo,
		Status:    model.BookingCancelled,
		Message:   "Cancellation request processed successfully.",
	}
	var events []queue.BookingCancelledEvent

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		legs, err := s.bookings.ListByNumberTx(ctx, tx, bookingNo)
		if err != nil {
			return translate(err)
		}
		now := s.now()
		for _, leg := range legs {
			line, ev, err := s.cancelLegTx(ctx, tx, leg, now)
			if err != nil {
				return err
			}
			report.Legs = append(report.Legs, line)
			if ev != nil {
				events = append(events, *ev)
			}
		}
		return nil
	})
	if err != nil {
		metrics.TrackBooking("cancel", "error", time.Since(start))
		return nil, translate(err)
	}
	metrics.TrackBooking("cancel", "success", time.Since(start))

	for _, ev := range events {
		refund, _ := decimal.NewFromString(ev.RefundAmount)
		metrics.TrackRefund(refund.InexactFloat64())
		s.log.WithFields(logrus.Fields{
			"booking_no": ev.BookingNo,
			"booking_id": ev.BookingID,
			"flight":     ev.FlightNumber,
			"refund":     ev.RefundAmount,
			"charge":     ev.ChargePercent,
		}).Info("booking leg cancelled")
		if err := s.events.PublishBookingCancelled(ctx, ev); err != nil {
			s.log.WithError(err).WithField("booking_no", ev.BookingNo).Warn("publish booking.cancelled failed")
		}
	}
	return report, nil
}

func alreadyCancelled(leg model.Booking) LegReport {
	return LegReport{
		BookingID:    leg.ID,
		FlightNumber: leg.FlightNumber,
		Status:       model.BookingCancelled,
		RefundAmount: decimal.Zero,
		Message:      fmt.Sprintf("This flight (%s) has already been cancelled earlier.", leg.FlightNumber),
	}
}

func (s *CancellationService) cancelLegTx(ctx context.Context, tx *sql.Tx, leg model.Booking, now time.Time) (LegReport, *queue.BookingCancelledEvent, error) {
	if leg.Status == model.BookingCancelled {
		return alreadyCancelled(leg), nil, nil
	}
	flight, err := s.flights.GetByIDTx(ctx, tx, leg.FlightID)
	if err != nil {
		return LegReport{}, nil, translate(err)
	}

	line := LegReport{
		BookingID:    leg.ID,
		FlightNumber: leg.FlightNumber,
		Status:       model.BookingCancelled,
		RefundAmount: decimal.Zero,
	}
	if flight.BookingType == model.NonRefundable {
		line.Message = "Your booking for this flight has been cancelled successfully. This ticket was NON-REFUNDABLE, so no refund will be issued."
	} else {
		line.ChargePercent = ChargePercent(flight.CancellationCharge, HoursBefore(flight.DepartureAt, now))
		line.RefundAmount = RefundAmount(leg.TotalAmount, line.ChargePercent)
		line.Message = fmt.Sprintf("Your booking for flight %s has been cancelled successfully. %s will be credited to your account within 2-3 business days (after deducting %d%% cancellation charges).",
			leg.FlightNumber, line.RefundAmount.StringFixed(2), line.ChargePercent)
	}

	payment := model.PaymentCancelled
	if line.RefundAmount.IsPositive() {
		payment = model.PaymentRefunded
	}
	ok, err := s.bookings.CancelTx(ctx, tx, leg.ID, payment)
	if err != nil {
		return LegReport{}, nil, err
	}
	if !ok {
		return alreadyCancelled(leg), nil, nil
	}

	if flight.JourneyStatus != model.JourneyCompleted {
		released, err := s.seats.ReleaseTx(ctx, tx, flight.ID, leg.SeatNumbers(), model.SeatReserved, model.SeatOccupied)
		if err != nil {
			return LegReport{}, nil, err
		}
		if err := s.flights.AdjustAvailableSeatsTx(ctx, tx, flight.ID, int(released)); err != nil {
			return LegReport{}, nil, err
		}
	}

	ev := &queue.BookingCancelledEvent{
		BookingID:     leg.ID,
		BookingNo:     leg.BookingNo,
		UserID:        leg.UserID,
		FlightNumber:  leg.FlightNumber,
		SeatNumbers:   leg.SeatNumbers(),
		RefundAmount:  line.RefundAmount.StringFixed(2),
		ChargePercent: line.ChargePercent,
		CancelledAt:   now.Format(time.RFC3339),
	}
	return line, ev, nil
}
