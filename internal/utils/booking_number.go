package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

const bookingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewBookingNumber returns "BK" followed by the unix milliseconds of now and
// six random upper-case alphanumerics, e.g. BK1767225600000Q7Z2MA.
func NewBookingNumber(now time.Time) string {
	id := uuid.New()
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = bookingAlphabet[int(id[i])%len(bookingAlphabet)]
	}
	return "BK" + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix)
}
