package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// BookingRepo provides persistence for bookings and their passengers.
// Bookings are never deleted; cancellation is a status change.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, booking_no, user_id, flight_id, flight_number, trip_type, status, payment_status,
	payment_id, special_fare, total_amount, passenger_count, journey_status, departure_at, arrival_at,
	contact_email, contact_phone, booked_at, updated_at`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b         model.Booking
		paymentID sql.NullString
	)
	err := s.Scan(&b.ID, &b.BookingNo, &b.UserID, &b.FlightID, &b.FlightNumber, &b.TripType, &b.Status,
		&b.PaymentStatus, &paymentID, &b.SpecialFare, &b.TotalAmount, &b.PassengerCount, &b.JourneyStatus,
		&b.DepartureAt, &b.ArrivalAt, &b.ContactEmail, &b.ContactPhone, &b.BookedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentID.Valid {
		p := paymentID.String
		b.PaymentID = &p
	}
	b.DepartureAt = b.DepartureAt.UTC()
	b.ArrivalAt = b.ArrivalAt.UTC()
	b.BookedAt = b.BookedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// CreateTx inserts a booking leg and its passengers within the scope of an
// existing transaction.  The generated IDs and timestamps are written back
// onto b and its passengers.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (booking_no, user_id, flight_id, flight_number, trip_type, status,
	           payment_status, payment_id, special_fare, total_amount, passenger_count, journey_status,
	           departure_at, arrival_at, contact_email, contact_phone, booked_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	var paymentID any
	if b.PaymentID != nil {
		paymentID = *b.PaymentID
	}
	res, err := tx.ExecContext(ctx, q,
		b.BookingNo, b.UserID, b.FlightID, b.FlightNumber, b.TripType, b.Status,
		b.PaymentStatus, paymentID, b.SpecialFare, b.TotalAmount.StringFixed(2), b.PassengerCount, b.JourneyStatus,
		b.DepartureAt.UTC(), b.ArrivalAt.UTC(), b.ContactEmail, b.ContactPhone, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.BookedAt, b.UpdatedAt = now, now
	return r.createPassengersTx(ctx, tx, b)
}

// createPassengersTx inserts every passenger of b in one statement.
func (r *BookingRepo) createPassengersTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if len(b.Passengers) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO passengers (booking_id, user_id, name, age, gender, passport_number, seat_number, travel_class, seat_type) VALUES `)
	args := make([]any, 0, len(b.Passengers)*9)
	for i, p := range b.Passengers {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.ID, b.UserID, p.Name, p.Age, p.Gender, p.PassportNumber, p.SeatNumber, p.TravelClass, p.SeatType)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return err
	}
	for i := range b.Passengers {
		b.Passengers[i].BookingID = b.ID
		b.Passengers[i].UserID = b.UserID
	}
	return nil
}

// ListByNumber returns every leg sharing bookingNo, with passengers,
// ordered by departure.  An unknown number yields ErrBookingNotFound.
func (r *BookingRepo) ListByNumber(ctx context.Context, bookingNo string) ([]model.Booking, error) {
	return listByNumber(ctx, r.db, bookingNo)
}

// ListByNumberTx is ListByNumber inside a transaction.
func (r *BookingRepo) ListByNumberTx(ctx context.Context, tx *sql.Tx, bookingNo string) ([]model.Booking, error) {
	return listByNumber(ctx, tx, bookingNo)
}

func listByNumber(ctx context.Context, q dbtx, bookingNo string) ([]model.Booking, error) {
	out, err := queryBookings(ctx, q, `SELECT `+bookingColumns+` FROM bookings WHERE booking_no = ? ORDER BY departure_at, id`, bookingNo)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrBookingNotFound
	}
	return out, nil
}

// ListByUser returns all legs booked by userID, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return queryBookings(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY booked_at DESC, id DESC`, userID)
}

// queryBookings scans the bookings of q and then loads their passengers.
// The rows are fully drained before the second query so it also works on a
// single-connection pool.
func queryBookings(ctx context.Context, q dbtx, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}
	ids := make([]any, len(out))
	index := make(map[uint64]int, len(out))
	for i, b := range out {
		ids[i] = b.ID
		index[b.ID] = i
	}
	prow, err := q.QueryContext(ctx, `SELECT id, booking_id, user_id, name, age, gender, passport_number, seat_number, travel_class, seat_type
		FROM passengers WHERE booking_id IN (`+placeholders(len(ids))+`) ORDER BY id`, ids...)
	if err != nil {
		return nil, err
	}
	defer prow.Close()
	for prow.Next() {
		var p model.Passenger
		if err := prow.Scan(&p.ID, &p.BookingID, &p.UserID, &p.Name, &p.Age, &p.Gender,
			&p.PassportNumber, &p.SeatNumber, &p.TravelClass, &p.SeatType); err != nil {
			return nil, err
		}
		if i, ok := index[p.BookingID]; ok {
			out[i].Passengers = append(out[i].Passengers, p)
		}
	}
	return out, prow.Err()
}

// StatusChange describes a conditional booking status update.
type StatusChange struct {
	From          model.BookingStatus
	To            model.BookingStatus
	PaymentStatus model.PaymentStatus
	PaymentID     *string // left unchanged when nil
}

// UpdateStatusTx moves a booking leg from c.From to c.To and sets its payment
// status.  It reports false when the stored status was no longer c.From, so
// that of two concurrent writers only one wins.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, c StatusChange) (bool, error) {
	q := `UPDATE bookings SET status = ?, payment_status = ?, updated_at = ?`
	args := []any{c.To, c.PaymentStatus, time.Now().UTC()}
	if c.PaymentID != nil {
		q += `, payment_id = ?`
		args = append(args, *c.PaymentID)
	}
	q += ` WHERE id = ? AND status = ?`
	args = append(args, bookingID, c.From)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelTx marks a leg CANCELLED with the given payment status unless it
// already is.  It reports false when another writer cancelled it first.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID uint64, payment model.PaymentStatus) (bool, error) {
	const q = `UPDATE bookings SET status = ?, payment_status = ?, updated_at = ? WHERE id = ? AND status <> ?`
	res, err := tx.ExecContext(ctx, q, model.BookingCancelled, payment, time.Now().UTC(), bookingID, model.BookingCancelled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PassengerBookedTx reports whether a passenger with the given name (trimmed,
// case-insensitive) already holds a non-cancelled booking by userID on the
// flight.
func (r *BookingRepo) PassengerBookedTx(ctx context.Context, tx *sql.Tx, flightID, userID uint64, name string) (bool, error) {
	const q = `SELECT COUNT(*) FROM passengers p JOIN bookings b ON b.id = p.booking_id
	           WHERE b.flight_id = ? AND b.user_id = ? AND b.status <> ? AND LOWER(TRIM(p.name)) = ?`
	var n int
	err := tx.QueryRowContext(ctx, q, flightID, userID, model.BookingCancelled,
		strings.ToLower(strings.TrimSpace(name))).Scan(&n)
	return n > 0, err
}

// Interval is the departure/arrival window of a booking leg.
type Interval struct {
	BookingNo   string
	DepartureAt time.Time
	ArrivalAt   time.Time
}

// ItinerariesByPassportTx returns the travel windows of every non-cancelled
// leg carrying a passenger with the given passport number.
func (r *BookingRepo) ItinerariesByPassportTx(ctx context.Context, tx *sql.Tx, passport string) ([]Interval, error) {
	const q = `SELECT b.booking_no, b.departure_at, b.arrival_at FROM passengers p
	           JOIN bookings b ON b.id = p.booking_id
	           WHERE p.passport_number = ? AND b.status <> ?`
	rows, err := tx.QueryContext(ctx, q, strings.TrimSpace(passport), model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.BookingNo, &iv.DepartureAt, &iv.ArrivalAt); err != nil {
			return nil, err
		}
		iv.DepartureAt, iv.ArrivalAt = iv.DepartureAt.UTC(), iv.ArrivalAt.UTC()
		out = append(out, iv)
	}
	return out, rows.Err()
}

// SetJourneyStatusByFlightTx mirrors a flight's journey status onto its
// non-cancelled bookings and returns how many legs changed.
func (r *BookingRepo) SetJourneyStatusByFlightTx(ctx context.Context, tx *sql.Tx, flightID uint64, status model.JourneyStatus) (int64, error) {
	const q = `UPDATE bookings SET journey_status = ?, updated_at = ? WHERE flight_id = ? AND status <> ?`
	res, err := tx.ExecContext(ctx, q, status, time.Now().UTC(), flightID, model.BookingCancelled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LockPassportTx takes the passport's row in passport_locks for the rest of
// tx, creating the row on first use.  Itinerary checks that run after it see
// every committed booking of that passport and no concurrent one can slip in.
func (r *BookingRepo) LockPassportTx(ctx context.Context, tx *sql.Tx, passport string) error {
	passport = strings.TrimSpace(passport)
	const bump = `UPDATE passport_locks SET version = version + 1 WHERE passport_number = ?`
	res, err := tx.ExecContext(ctx, bump, passport)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO passport_locks (passport_number, version) VALUES (?, 1)`, passport)
	if isDuplicate(err) {
		// Created by a transaction that committed since the update.
		_, err = tx.ExecContext(ctx, bump, passport)
	}
	return err
}

// SyncFlightTimesTx copies a rescheduled flight's times onto its non-cancelled
// legs so itinerary checks use the new window.
func (r *BookingRepo) SyncFlightTimesTx(ctx context.Context, tx *sql.Tx, flightID uint64, dep, arr time.Time) (int64, error) {
	const q = `UPDATE bookings SET departure_at = ?, arrival_at = ?, updated_at = ? WHERE flight_id = ? AND status <> ?`
	res, err := tx.ExecContext(ctx, q, dep.UTC(), arr.UTC(), time.Now().UTC(), flightID, model.BookingCancelled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
