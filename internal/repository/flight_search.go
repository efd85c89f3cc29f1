package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// FlightSearchQuery defines filters & pagination for searching flights.
// Zero values disable a filter.
type FlightSearchQuery struct {
	Source        string
	Destination   string
	DepartureDate *time.Time // matches the whole UTC day
	Airlines      []string
	BookingType   model.BookingType
	DepartureType model.DepartureType
	AircraftSize  model.AircraftSize
	MaxStops      *int
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Passengers    int
	UpcomingAfter *time.Time // only flights departing after this instant
	Page          int
	PageSize      int
	Unpaged       bool // return every match and ignore Page and PageSize
}

// Search returns one page of flights matching q and the total number of
// matches.  Text and integer filters run in SQL.  Departure and price filters
// run on the scanned rows because DATETIME and DECIMAL columns do not compare
// the same way on every backend; without them the page is cut in SQL.
func (r *FlightRepo) Search(ctx context.Context, q FlightSearchQuery) ([]model.Flight, int64, error) {
	where := []string{}
	args := []any{}

	if q.Source != "" {
		where = append(where, "LOWER(source_airport) = ?")
		args = append(args, strings.ToLower(q.Source))
	}
	if q.Destination != "" {
		where = append(where, "LOWER(destination_airport) = ?")
		args = append(args, strings.ToLower(q.Destination))
	}
	if len(q.Airlines) > 0 {
		where = append(where, "LOWER(airline) IN ("+placeholders(len(q.Airlines))+")")
		for _, a := range q.Airlines {
			args = append(args, strings.ToLower(a))
		}
	}
	if q.BookingType != "" {
		where = append(where, "booking_type = ?")
		args = append(args, q.BookingType)
	}
	if q.DepartureType != "" {
		where = append(where, "departure_type = ?")
		args = append(args, q.DepartureType)
	}
	if q.AircraftSize != "" {
		where = append(where, "aircraft_size = ?")
		args = append(args, q.AircraftSize)
	}
	if q.MaxStops != nil {
		where = append(where, "stops <= ?")
		args = append(args, *q.MaxStops)
	}
	if q.Passengers > 0 {
		where = append(where, "available_seats >= ?")
		args = append(args, q.Passengers)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size

	if !q.Unpaged && !q.filtersInMemory() {
		var total int64
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flights WHERE `+cond, args...).Scan(&total); err != nil {
			return nil, 0, err
		}
		if int64(start) >= total {
			return []model.Flight{}, total, nil
		}
		rows, err := r.query(ctx, `SELECT `+flightColumns+` FROM flights WHERE `+cond+` ORDER BY departure_at, id LIMIT ? OFFSET ?`,
			append(args, size, start)...)
		if err != nil {
			return nil, 0, err
		}
		return rows, total, nil
	}

	all, err := r.query(ctx, `SELECT `+flightColumns+` FROM flights WHERE `+cond+` ORDER BY departure_at, id`, args...)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]model.Flight, 0, len(all))
	for _, f := range all {
		if q.matchesTimeAndPrice(f) {
			matched = append(matched, f)
		}
	}

	total := int64(len(matched))
	if q.Unpaged {
		return matched, total, nil
	}
	if start >= len(matched) {
		return []model.Flight{}, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (q FlightSearchQuery) filtersInMemory() bool {
	return q.DepartureDate != nil || q.UpcomingAfter != nil || q.MinPrice != nil || q.MaxPrice != nil
}

func (q FlightSearchQuery) matchesTimeAndPrice(f model.Flight) bool {
	if q.DepartureDate != nil {
		d := q.DepartureDate.UTC()
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if f.DepartureAt.Before(day) || !f.DepartureAt.Before(day.AddDate(0, 0, 1)) {
			return false
		}
	}
	if q.UpcomingAfter != nil && !f.DepartureAt.After(*q.UpcomingAfter) {
		return false
	}
	if q.MinPrice != nil && f.BasePrice.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && f.BasePrice.GreaterThan(*q.MaxPrice) {
		return false
	}
	return true
}
