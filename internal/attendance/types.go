package attendance

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/facetrace/attendance/internal/constants"
)

// CollectionLedger is the store collection holding the attendance ledger.
const CollectionLedger = "attendance"

// Status of one attendance record.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusExcused = "excused"
)

// Source records how an attendance record entered the ledger: auto for
// recognition-driven marks, manual for operator entries.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("attendance record not found")

	// ErrValidation is returned for malformed append or update input.
	ErrValidation = errors.New("validation failed")
)

// Record is one attendance event. Records are stored in insertion order;
// listing sorts by timestamp at read time.
type Record struct {
	ID         string    `json:"record_id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
}

// ValidStatus reports whether s is one of the three recognized statuses.
func ValidStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusExcused
}

const idSuffixCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewEventID builds a time-ordered, globally unique event id: the
// timestamp followed by a short random suffix. Alert ids share this shape.
func NewEventID(ts time.Time) string {
	suffix := make([]byte, constants.RecordIDSuffixLength)
	for i := range suffix {
		suffix[i] = idSuffixCharset[rand.IntN(len(idSuffixCharset))]
	}
	return ts.Format("2006-01-02T15:04:05") + "_" + string(suffix)
}
