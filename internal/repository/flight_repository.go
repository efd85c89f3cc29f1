package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// FlightRepo provides access to the flights table.
type FlightRepo struct {
	db *sql.DB
}

// NewFlightRepo constructs a FlightRepo with the given DB handle.
func NewFlightRepo(db *sql.DB) *FlightRepo {
	return &FlightRepo{db: db}
}

// DB exposes the underlying handle so services can open transactions that
// span several repositories.
func (r *FlightRepo) DB() *sql.DB { return r.db }

const flightColumns = `id, flight_number, airline, source_airport, destination_airport, stops,
	aircraft_size, booking_type, departure_type, departure_at, arrival_at, base_price,
	capacity, available_seats, cancellation_charge, journey_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(s rowScanner) (*model.Flight, error) {
	var f model.Flight
	err := s.Scan(
		&f.ID, &f.FlightNumber, &f.Airline, &f.SourceAirport, &f.DestinationAirport, &f.Stops,
		&f.AircraftSize, &f.BookingType, &f.DepartureType, &f.DepartureAt, &f.ArrivalAt, &f.BasePrice,
		&f.Capacity, &f.AvailableSeats, &f.CancellationCharge, &f.JourneyStatus, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.DepartureAt = f.DepartureAt.UTC()
	f.ArrivalAt = f.ArrivalAt.UTC()
	return &f, nil
}

// Create inserts a flight.  On success the flight's ID and timestamps are
// populated.  A duplicate flight number yields ErrFlightExists.
func (r *FlightRepo) Create(ctx context.Context, f *model.Flight) error {
	const q = `INSERT INTO flights (flight_number, airline, source_airport, destination_airport, stops,
	           aircraft_size, booking_type, departure_type, departure_at, arrival_at, base_price,
	           capacity, available_seats, cancellation_charge, journey_status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q,
		f.FlightNumber, f.Airline, f.SourceAirport, f.DestinationAirport, f.Stops,
		f.AircraftSize, f.BookingType, f.DepartureType, f.DepartureAt.UTC(), f.ArrivalAt.UTC(), f.BasePrice,
		f.Capacity, f.AvailableSeats, f.CancellationCharge, f.JourneyStatus, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrFlightExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

// GetByNumber retrieves a flight by its flight number.
func (r *FlightRepo) GetByNumber(ctx context.Context, number string) (*model.Flight, error) {
	return getFlightByNumber(ctx, r.db, number)
}

// GetByNumberTx is GetByNumber inside a transaction.
func (r *FlightRepo) GetByNumberTx(ctx context.Context, tx *sql.Tx, number string) (*model.Flight, error) {
	return getFlightByNumber(ctx, tx, number)
}

// GetByIDTx retrieves a flight by primary key inside a transaction.
func (r *FlightRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Flight, error) {
	f, err := scanFlight(tx.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlightNotFound
	}
	return f, err
}

func getFlightByNumber(ctx context.Context, q dbtx, number string) (*model.Flight, error) {
	f, err := scanFlight(q.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE flight_number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlightNotFound
	}
	return f, err
}

// List returns every flight ordered by departure.
func (r *FlightRepo) List(ctx context.Context) ([]model.Flight, error) {
	return r.query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_at, id`)
}

// ListNotCompleted returns the flights whose journey status may still change.
func (r *FlightRepo) ListNotCompleted(ctx context.Context) ([]model.Flight, error) {
	return r.query(ctx, `SELECT `+flightColumns+` FROM flights WHERE journey_status <> ? ORDER BY id`,
		model.JourneyCompleted)
}

func (r *FlightRepo) query(ctx context.Context, q string, args ...any) ([]model.Flight, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Flight{}
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// AdjustAvailableSeatsTx adds delta (negative to take seats) to the flight's
// available-seat counter.  The update is conditional so the counter can never
// go below zero; if it would, ErrInsufficientSeats is returned and nothing
// changes.
func (r *FlightRepo) AdjustAvailableSeatsTx(ctx context.Context, tx *sql.Tx, flightID uint64, delta int) error {
	const q = `UPDATE flights SET available_seats = available_seats + ?, updated_at = ?
	           WHERE id = ? AND available_seats + ? >= 0`
	res, err := tx.ExecContext(ctx, q, delta, time.Now().UTC(), flightID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientSeats
	}
	return nil
}

// SetAvailableSeatsTx overwrites the available-seat counter.
func (r *FlightRepo) SetAvailableSeatsTx(ctx context.Context, tx *sql.Tx, flightID uint64, n int) error {
	const q = `UPDATE flights SET available_seats = ?, updated_at = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, n, time.Now().UTC(), flightID)
	return err
}

// UpdateJourneyStatusTx moves the flight from one journey status to another.
// It reports false when the stored status no longer equals from, which means
// a concurrent writer got there first.
func (r *FlightRepo) UpdateJourneyStatusTx(ctx context.Context, tx *sql.Tx, flightID uint64, from, to model.JourneyStatus) (bool, error) {
	const q = `UPDATE flights SET journey_status = ?, updated_at = ? WHERE id = ? AND journey_status = ?`
	res, err := tx.ExecContext(ctx, q, to, time.Now().UTC(), flightID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateTx overwrites the descriptive fields of flight f.ID.  The flight
// number, seat counter and timestamps of creation are left alone.
func (r *FlightRepo) UpdateTx(ctx context.Context, tx *sql.Tx, f *model.Flight) error {
	const q = `UPDATE flights SET airline = ?, source_airport = ?, destination_airport = ?, stops = ?,
	           aircraft_size = ?, booking_type = ?, departure_type = ?, departure_at = ?, arrival_at = ?,
	           base_price = ?, capacity = ?, cancellation_charge = ?, journey_status = ?, updated_at = ?
	           WHERE id = ?`
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, q,
		f.Airline, f.SourceAirport, f.DestinationAirport, f.Stops,
		f.AircraftSize, f.BookingType, f.DepartureType, f.DepartureAt.UTC(), f.ArrivalAt.UTC(),
		f.BasePrice, f.Capacity, f.CancellationCharge, f.JourneyStatus, now, f.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFlightNotFound
	}
	f.UpdatedAt = now
	return nil
}

// AirportSuggestions returns up to limit distinct airport codes of the given
// column that start with prefix, in alphabetical order.
func (r *FlightRepo) AirportSuggestions(ctx context.Context, destination bool, prefix string, limit int) ([]string, error) {
	col := "source_airport"
	if destination {
		col = "destination_airport"
	}
	q := `SELECT DISTINCT ` + col + ` FROM flights WHERE UPPER(` + col + `) LIKE ? ORDER BY ` + col + ` LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, escapeLike(strings.ToUpper(prefix))+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

// DeleteByNumber removes a flight and, by cascade, its seats.  Flights with
// bookings that are not cancelled cannot be deleted (ErrConflict).  Flights
// with only cancelled bookings keep their row because bookings are never
// deleted; ErrConflict is returned for those too.
func (r *FlightRepo) DeleteByNumber(ctx context.Context, number string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	f, err := r.GetByNumberTx(ctx, tx, number)
	if err != nil {
		return err
	}
	var bookings int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE flight_id = ?`, f.ID).Scan(&bookings); err != nil {
		return err
	}
	if bookings > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE flight_id = ?`, f.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flights WHERE id = ?`, f.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
