// Package seatmap generates the seat layout of an aircraft.  It is pure: it
// knows nothing about storage and produces seat templates that the caller
// persists.
package seatmap

import (
	"fmt"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// Columns returns the number of seats per row for an aircraft size.
func Columns(size model.AircraftSize) (int, error) {
	switch size {
	case model.AircraftLight:
		return 4, nil
	case model.AircraftMedium:
		return 6, nil
	case model.AircraftLarge:
		return 8, nil
	case model.AircraftJumbo:
		return 10, nil
	}
	return 0, model.NewValidationError("unknown aircraft size %q", size)
}

// Rows returns how many rows are needed to seat capacity passengers.
func Rows(capacity, columns int) int {
	return (capacity + columns - 1) / columns
}

// Generate lays out ceil(capacity/columns) full rows for the given aircraft
// size.  Rows are 1-based and columns are lettered from A, so the last row is
// always complete even when capacity is not a multiple of the column count.
// Every seat starts as an AVAILABLE economy seat.
func Generate(capacity int, size model.AircraftSize) ([]model.Seat, error) {
	cols, err := Columns(size)
	if err != nil {
		return nil, err
	}
	if capacity < 1 {
		return nil, model.NewValidationError("capacity must be positive, got %d", capacity)
	}
	rows := Rows(capacity, cols)
	seats := make([]model.Seat, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 0; c < cols; c++ {
			label := ColumnLabel(c)
			seats = append(seats, model.Seat{
				SeatNumber:  fmt.Sprintf("%d%s", r, label),
				RowNumber:   r,
				ColumnLabel: label,
				Position:    Position(c, cols),
				Type:        Type(c, cols),
				TravelClass: model.Economy,
				Status:      model.SeatAvailable,
			})
		}
	}
	return seats, nil
}

// ColumnLabel converts a zero-based column index into a letter label
// (A, B, ... Z, AA, AB, ...).
func ColumnLabel(i int) string {
	if i < 0 {
		return ""
	}
	var out []rune
	for {
		out = append([]rune{rune('A' + i%26)}, out...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(out)
}

// Position returns the cabin section of column col in a row of cols seats.
// The 10-abreast layout is split 3-4-3; narrower layouts are split in two.
func Position(col, cols int) model.SeatPosition {
	switch cols {
	case 10:
		switch {
		case col <= 2:
			return model.PositionLeft
		case col <= 6:
			return model.PositionMiddle
		default:
			return model.PositionRight
		}
	case 8:
		if col <= 3 {
			return model.PositionLeft
		}
		return model.PositionRight
	case 6:
		if col <= 2 {
			return model.PositionLeft
		}
		return model.PositionRight
	default:
		if col < cols/2 {
			return model.PositionLeft
		}
		return model.PositionRight
	}
}

// aisleColumns lists the columns that border an aisle for each row width.
var aisleColumns = map[int][]int{
	4:  {1, 2},
	6:  {2, 3},
	8:  {3, 4},
	10: {2, 3, 6, 7},
}

// Type classifies column col in a row of cols seats.
func Type(col, cols int) model.SeatType {
	if col == 0 || col == cols-1 {
		return model.SeatWindow
	}
	for _, a := range aisleColumns[cols] {
		if a == col {
			return model.SeatAisle
		}
	}
	return model.SeatMiddle
}
