// Package repository implements storage for flights, seats, bookings and
// users on database/sql.  Queries use '?' placeholders and avoid
// vendor-specific syntax so the same code runs on MySQL and SQLite.
// Methods with a Tx suffix run inside a caller-owned transaction; the caller
// commits or rolls back.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors returned by the repositories.  The service layer turns
// them into classified domain errors.
var (
	ErrFlightNotFound  = errors.New("flight not found")
	ErrFlightExists    = errors.New("flight number already exists")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrSeatUnavailable is returned when a conditional seat update matched
	// no row because the seat was no longer in the expected status.
	ErrSeatUnavailable = errors.New("seat not available")

	// ErrInsufficientSeats is returned when decrementing a flight's
	// available-seat counter would take it below zero.
	ErrInsufficientSeats = errors.New("not enough available seats")

	// ErrConflict is returned when a delete or update cannot be
	// performed because of dependent records, such as deleting a flight
	// that still has active bookings.
	ErrConflict = errors.New("conflict")
)

// dbtx is the subset of *sql.DB and *sql.Tx used by the query helpers, so a
// read can run either standalone or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicate reports whether err is a unique-key violation on MySQL (1062)
// or SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}

// IsLockConflict reports whether err means the transaction lost a lock
// race: an InnoDB deadlock (1213) or lock wait timeout (1205), or a busy
// SQLite database.  The transaction has been rolled back and may be retried.
func IsLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
