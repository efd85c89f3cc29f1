package model

import "time"

// SeatStatus is the allocation state of a seat.  Only AVAILABLE seats may be
// taken by a booking.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatReserved  SeatStatus = "RESERVED"
	SeatOccupied  SeatStatus = "OCCUPIED"
	SeatBlocked   SeatStatus = "BLOCKED"
)

// SeatType classifies a seat by what it is adjacent to.
type SeatType string

const (
	SeatWindow SeatType = "WINDOW"
	SeatAisle  SeatType = "AISLE"
	SeatMiddle SeatType = "MIDDLE"
)

// SeatPosition is the cabin section a seat sits in.
type SeatPosition string

const (
	PositionLeft   SeatPosition = "LEFT"
	PositionMiddle SeatPosition = "MIDDLE"
	PositionRight  SeatPosition = "RIGHT"
)

// TravelClass is the cabin tier of a seat.
type TravelClass string

const (
	Economy        TravelClass = "ECONOMY"
	PremiumEconomy TravelClass = "PREMIUM_ECONOMY"
	Business       TravelClass = "BUSINESS"
	First          TravelClass = "FIRST"
)

// TravelClasses lists every cabin tier.
var TravelClasses = []TravelClass{Economy, PremiumEconomy, Business, First}

// SeatOperationStatus reports what a seat generation request did.
type SeatOperationStatus string

const (
	SeatsCreated           SeatOperationStatus = "CREATED"
	SeatsUpdated           SeatOperationStatus = "UPDATED"
	SeatsCompletedNoChange SeatOperationStatus = "COMPLETED_NO_CHANGE"
)

// Seat describes one seat of a flight.  Seat numbers are the row index
// followed by the column label (e.g. 12C) and are unique within a flight.
//
// Fields:
//
//	ID          – primary key identifier.
//	FlightID    – flight to which this seat belongs.
//	SeatNumber  – row + column label.
//	RowNumber   – 1-based row index.
//	ColumnLabel – column letter starting at A.
//	Position    – LEFT, MIDDLE or RIGHT section.
//	Type        – WINDOW, AISLE or MIDDLE.
//	TravelClass – cabin tier.
//	Status      – allocation state.
type Seat struct {
	ID          uint64       `json:"id"`
	FlightID    uint64       `json:"flight_id"`
	SeatNumber  string       `json:"seat_number"`
	RowNumber   int          `json:"row_number"`
	ColumnLabel string       `json:"column_label"`
	Position    SeatPosition `json:"position"`
	Type        SeatType     `json:"seat_type"`
	TravelClass TravelClass  `json:"travel_class"`
	Status      SeatStatus   `json:"status"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
