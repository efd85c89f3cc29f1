package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AircraftSize is the size category of the aircraft operating a flight.  It
// fixes the number of seat columns used when a seat map is generated.
type AircraftSize string

const (
	AircraftLight  AircraftSize = "LIGHT"
	AircraftMedium AircraftSize = "MEDIUM"
	AircraftLarge  AircraftSize = "LARGE"
	AircraftJumbo  AircraftSize = "JUMBO"
)

// AircraftSizes lists every known size category.
var AircraftSizes = []AircraftSize{AircraftLight, AircraftMedium, AircraftLarge, AircraftJumbo}

// Valid reports whether s is a known category.
func (s AircraftSize) Valid() bool {
	switch s {
	case AircraftLight, AircraftMedium, AircraftLarge, AircraftJumbo:
		return true
	}
	return false
}

// BookingType decides whether a cancelled ticket is refunded.
type BookingType string

const (
	Refundable    BookingType = "REFUNDABLE"
	NonRefundable BookingType = "NON_REFUNDABLE"
)

func (t BookingType) Valid() bool {
	return t == Refundable || t == NonRefundable
}

// DepartureType distinguishes domestic from international flights.
type DepartureType string

const (
	Domestic      DepartureType = "DOMESTIC"
	International DepartureType = "INTERNATIONAL"
)

func (t DepartureType) Valid() bool {
	return t == Domestic || t == International
}

// JourneyStatus is the lifecycle stage of a flight relative to wall-clock time.
type JourneyStatus string

const (
	JourneyScheduled  JourneyStatus = "SCHEDULED"
	JourneyInProgress JourneyStatus = "IN_PROGRESS"
	JourneyCompleted  JourneyStatus = "COMPLETED"
)

// Flight is a single scheduled leg in the flight catalog.  Capacity is the
// seat count the aircraft was configured for; AvailableSeats is the running
// count of seats that can still be booked and is adjusted in the same
// transaction as every seat status change it summarises.
//
// Fields:
//
//	ID                 – primary key identifier.
//	FlightNumber       – unique public identifier (e.g. AI-202).
//	Airline            – operating airline name.
//	SourceAirport      – departure airport code.
//	DestinationAirport – arrival airport code.
//	Stops              – number of intermediate stops.
//	AircraftSize       – size category used for seat generation.
//	BookingType        – REFUNDABLE or NON_REFUNDABLE.
//	DepartureType      – DOMESTIC or INTERNATIONAL.
//	DepartureAt        – departure instant (UTC).
//	ArrivalAt          – arrival instant (UTC).
//	BasePrice          – economy fare before class multipliers and discounts.
//	Capacity           – configured seat count.
//	AvailableSeats     – seats still bookable.
//	CancellationCharge – base cancellation charge in percent.
//	JourneyStatus      – SCHEDULED, IN_PROGRESS or COMPLETED.
type Flight struct {
	ID                 uint64          `json:"id"`
	FlightNumber       string          `json:"flight_number"`
	Airline            string          `json:"airline"`
	SourceAirport      string          `json:"source_airport"`
	DestinationAirport string          `json:"destination_airport"`
	Stops              int             `json:"stops"`
	AircraftSize       AircraftSize    `json:"aircraft_size"`
	BookingType        BookingType     `json:"booking_type"`
	DepartureType      DepartureType   `json:"departure_type"`
	DepartureAt        time.Time       `json:"departure_at"`
	ArrivalAt          time.Time       `json:"arrival_at"`
	BasePrice          decimal.Decimal `json:"base_price"`
	Capacity           int             `json:"capacity"`
	AvailableSeats     int             `json:"available_seats"`
	CancellationCharge int             `json:"cancellation_charge"`
	JourneyStatus      JourneyStatus   `json:"journey_status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// DurationMinutes is the scheduled block time of the flight.
func (f Flight) DurationMinutes() int {
	return int(f.ArrivalAt.Sub(f.DepartureAt) / time.Minute)
}
