// Package queue defines message payloads exchanged over the message broker,
// the publisher used by the booking services, and the audit consumer.
package queue

// Queue names.  Each event type has its own durable queue on the default
// exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published when payment for a booking leg succeeds.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID    uint64   `json:"booking_id"`
	BookingNo    string   `json:"booking_no"`
	UserID       uint64   `json:"user_id"`
	FlightNumber string   `json:"flight_number"`
	DepartureAt  string   `json:"departure_at"`
	ArrivalAt    string   `json:"arrival_at"`
	SeatNumbers  []string `json:"seats"`
	TotalAmount  string   `json:"total_amount"`
	PaymentID    string   `json:"payment_id,omitempty"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published for every leg a cancellation request
// actually cancelled.  Legs that were already cancelled produce no event.
type BookingCancelledEvent struct {
	BookingID     uint64   `json:"booking_id"`
	BookingNo     string   `json:"booking_no"`
	UserID        uint64   `json:"user_id"`
	FlightNumber  string   `json:"flight_number"`
	SeatNumbers   []string `json:"seats"`
	RefundAmount  string   `json:"refund_amount"`
	ChargePercent int      `json:"charge_percent"`
	CancelledAt   string   `json:"cancelled_at"`
}
