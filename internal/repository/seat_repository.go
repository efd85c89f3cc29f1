package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// SeatRepo provides methods to work with the seats of a flight.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, flight_id, seat_number, row_no, column_label, position, seat_type, travel_class, status, updated_at`

func scanSeat(s rowScanner) (*model.Seat, error) {
	var st model.Seat
	if err := s.Scan(&st.ID, &st.FlightID, &st.SeatNumber, &st.RowNumber, &st.ColumnLabel,
		&st.Position, &st.Type, &st.TravelClass, &st.Status, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// CountByFlightTx returns how many seats the flight has.
func (r *SeatRepo) CountByFlightTx(ctx context.Context, tx *sql.Tx, flightID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE flight_id = ?`, flightID).Scan(&n)
	return n, err
}

// CountByStatusTx returns how many of the flight's seats are in status.
func (r *SeatRepo) CountByStatusTx(ctx context.Context, tx *sql.Tx, flightID uint64, status model.SeatStatus) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE flight_id = ? AND status = ?`, flightID, status).Scan(&n)
	return n, err
}

// seatBatch bounds the rows per INSERT so the statement stays under the
// placeholder limits of both backends.
const seatBatch = 500

// CreateBulkTx inserts the seats for a flight in batched multi-row
// statements.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, flightID uint64, seats []model.Seat) error {
	now := time.Now().UTC()
	for start := 0; start < len(seats); start += seatBatch {
		end := start + seatBatch
		if end > len(seats) {
			end = len(seats)
		}
		chunk := seats[start:end]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO seats (flight_id, seat_number, row_no, column_label, position, seat_type, travel_class, status, updated_at) VALUES `)
		args := make([]any, 0, len(chunk)*9)
		for i, s := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, flightID, s.SeatNumber, s.RowNumber, s.ColumnLabel,
				s.Position, s.Type, s.TravelClass, s.Status, now)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// ResetAllTx sets every seat of the flight to status and returns how many
// rows were touched.
func (r *SeatRepo) ResetAllTx(ctx context.Context, tx *sql.Tx, flightID uint64, status model.SeatStatus) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE seats SET status = ?, updated_at = ? WHERE flight_id = ?`,
		status, time.Now().UTC(), flightID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByFlight returns the flight's seats ordered by row and column.
func (r *SeatRepo) ListByFlight(ctx context.Context, flightID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE flight_id = ? ORDER BY row_no, column_label`
	rows, err := r.db.QueryContext(ctx, q, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetByNumberTx resolves a seat by its number on a flight.  The lookup is
// case-insensitive on the column letter.
func (r *SeatRepo) GetByNumberTx(ctx context.Context, tx *sql.Tx, flightID uint64, seatNumber string) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE flight_id = ? AND seat_number = ?`
	s, err := scanSeat(tx.QueryRowContext(ctx, q, flightID, strings.ToUpper(strings.TrimSpace(seatNumber))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// TransitionTx moves one seat from status from to status to.  The update is
// conditioned on the current status, so of several concurrent transactions
// only one can take a seat; the others get ErrSeatUnavailable.
func (r *SeatRepo) TransitionTx(ctx context.Context, tx *sql.Tx, seatID uint64, from, to model.SeatStatus) error {
	const q = `UPDATE seats SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, time.Now().UTC(), seatID, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSeatUnavailable
	}
	return nil
}

// TransitionByNumbersTx moves the named seats of a flight to status to, but
// only those currently in one of the from statuses.  It returns the number of
// seats changed.
func (r *SeatRepo) TransitionByNumbersTx(ctx context.Context, tx *sql.Tx, flightID uint64, seatNumbers []string, to model.SeatStatus, from ...model.SeatStatus) (int64, error) {
	if len(seatNumbers) == 0 || len(from) == 0 {
		return 0, nil
	}
	q := `UPDATE seats SET status = ?, updated_at = ? WHERE flight_id = ? AND seat_number IN (` +
		placeholders(len(seatNumbers)) + `) AND status IN (` + placeholders(len(from)) + `)`
	args := make([]any, 0, 3+len(seatNumbers)+len(from))
	args = append(args, to, time.Now().UTC(), flightID)
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	for _, s := range from {
		args = append(args, s)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseTx returns the named seats of a flight to AVAILABLE, but only those
// in one of the from statuses that no live (non-cancelled) booking leg on the
// flight still lists.  A seat re-opened and booked again by someone else is
// therefore kept.  Callers cancel their own leg before releasing.  It
// returns the number of seats released.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, flightID uint64, seatNumbers []string, from ...model.SeatStatus) (int64, error) {
	if len(seatNumbers) == 0 || len(from) == 0 {
		return 0, nil
	}
	q := `UPDATE seats SET status = ?, updated_at = ? WHERE flight_id = ? AND seat_number IN (` +
		placeholders(len(seatNumbers)) + `) AND status IN (` + placeholders(len(from)) + `)
	      AND NOT EXISTS (SELECT 1 FROM passengers p JOIN bookings b ON b.id = p.booking_id
	                      WHERE b.flight_id = seats.flight_id AND p.seat_number = seats.seat_number AND b.status <> ?)`
	args := make([]any, 0, 4+len(seatNumbers)+len(from))
	args = append(args, model.SeatAvailable, time.Now().UTC(), flightID)
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	for _, s := range from {
		args = append(args, s)
	}
	args = append(args, model.BookingCancelled)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
