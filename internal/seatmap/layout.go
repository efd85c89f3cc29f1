package seatmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/flight-reservation/internal/model"
)

const aisleGap = "   "

// Layout renders the seats of a flight as a fixed-width text grid, one row
// per line.  Available seats show their column letter, reserved seats [R],
// occupied seats [X] and blocked seats [-].  A gap is inserted wherever the
// cabin section changes.
func Layout(flightNumber string, size model.AircraftSize, seats []model.Seat) (string, error) {
	cols, err := Columns(size)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Flight: %s\n", flightNumber)
	fmt.Fprintf(&b, "Aircraft Size: %s\n", size)
	b.WriteString("---------------------------------\n")
	if len(seats) == 0 {
		b.WriteString("no seats generated\n")
		return b.String(), nil
	}

	byRow := make(map[int]map[string]model.Seat)
	for _, s := range seats {
		if byRow[s.RowNumber] == nil {
			byRow[s.RowNumber] = make(map[string]model.Seat, cols)
		}
		byRow[s.RowNumber][s.ColumnLabel] = s
	}
	rows := make([]int, 0, len(byRow))
	for r := range byRow {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	for _, r := range rows {
		fmt.Fprintf(&b, "%-3d:  ", r)
		for c := 0; c < cols; c++ {
			if c > 0 && Position(c, cols) != Position(c-1, cols) {
				b.WriteString(aisleGap)
			}
			label := ColumnLabel(c)
			s, ok := byRow[r][label]
			if !ok {
				b.WriteString("   ")
				continue
			}
			b.WriteString(symbol(s))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func symbol(s model.Seat) string {
	switch s.Status {
	case model.SeatAvailable:
		return "[" + s.ColumnLabel + "]"
	case model.SeatReserved:
		return "[R]"
	case model.SeatOccupied:
		return "[X]"
	case model.SeatBlocked:
		return "[-]"
	}
	return "[?]"
}
