package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of one booking leg.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// PaymentStatus tracks the payment attached to a booking leg.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentExpired   PaymentStatus = "EXPIRED"
)

// TripType describes the itinerary a booking leg belongs to.
type TripType string

const (
	OneWay    TripType = "ONE_WAY"
	RoundTrip TripType = "ROUND_TRIP"
	MultiCity TripType = "MULTI_CITY"
)

func (t TripType) Valid() bool {
	switch t {
	case OneWay, RoundTrip, MultiCity:
		return true
	}
	return false
}

type Gender string

const (
	Male   Gender = "MALE"
	Female Gender = "FEMALE"
	Other  Gender = "OTHER"
)

func (g Gender) Valid() bool {
	switch g {
	case Male, Female, Other:
		return true
	}
	return false
}

// SpecialFareType names a discount rule.  The discount amounts and passenger
// minimums live in the fare package.
type SpecialFareType string

const (
	FareRegular         SpecialFareType = "REGULAR"
	FareStudent         SpecialFareType = "STUDENT"
	FareArmedForces     SpecialFareType = "ARMED_FORCES"
	FareSeniorCitizen   SpecialFareType = "SENIOR_CITIZEN"
	FareDoctorAndNurses SpecialFareType = "DOCTOR_AND_NURSES"
	FareFamily          SpecialFareType = "FAMILY"
)

// Booking is the reservation record for one flight leg.  Legs of a
// round-trip or multi-city itinerary share a BookingNo.  TotalAmount is the
// fare computed when the leg was booked and is never recomputed.
//
// Fields:
//
//	ID             – primary key identifier.
//	BookingNo      – itinerary identifier shared by all legs.
//	UserID         – user who made the booking.
//	FlightID       – booked flight.
//	FlightNumber   – flight number, denormalised for lookups.
//	TripType       – ONE_WAY, ROUND_TRIP or MULTI_CITY.
//	Status         – PENDING, CONFIRMED or CANCELLED.
//	PaymentStatus  – state of the attached payment.
//	PaymentID      – payment gateway reference, if any.
//	SpecialFare    – discount rule applied.
//	TotalAmount    – amount owed for the leg.
//	PassengerCount – number of passengers on the leg.
//	JourneyStatus  – mirror of the flight's journey status.
//	DepartureAt    – copied from the flight at booking time.
//	ArrivalAt      – copied from the flight at booking time.
//	ContactEmail   – optional contact email.
//	ContactPhone   – optional contact phone.
//	BookedAt       – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Booking struct {
	ID             uint64          `json:"id"`
	BookingNo      string          `json:"booking_no"`
	UserID         uint64          `json:"user_id"`
	FlightID       uint64          `json:"flight_id"`
	FlightNumber   string          `json:"flight_number"`
	TripType       TripType        `json:"trip_type"`
	Status         BookingStatus   `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentID      *string         `json:"payment_id,omitempty"`
	SpecialFare    SpecialFareType `json:"special_fare"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PassengerCount int             `json:"passenger_count"`
	JourneyStatus  JourneyStatus   `json:"journey_status"`
	DepartureAt    time.Time       `json:"departure_at"`
	ArrivalAt      time.Time       `json:"arrival_at"`
	ContactEmail   string          `json:"contact_email,omitempty"`
	ContactPhone   string          `json:"contact_phone,omitempty"`
	BookedAt       time.Time       `json:"booked_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Passengers     []Passenger     `json:"passengers"`
}

// SeatNumbers returns the seat numbers held by the leg's passengers.
func (b Booking) SeatNumbers() []string {
	out := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		out = append(out, p.SeatNumber)
	}
	return out
}

// Passenger is a traveller on a booking leg.  TravelClass and SeatType are
// copied from the seat when the booking is made.
type Passenger struct {
	ID             uint64      `json:"id"`
	BookingID      uint64      `json:"booking_id"`
	UserID         uint64      `json:"user_id"`
	Name           string      `json:"name"`
	Age            int         `json:"age"`
	Gender         Gender      `json:"gender"`
	PassportNumber string      `json:"passport_number"`
	SeatNumber     string      `json:"seat_number"`
	TravelClass    TravelClass `json:"travel_class"`
	SeatType       SeatType    `json:"seat_type"`
}
