package alerts

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/constants"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/store"
)

// CollectionAlerts is the store collection holding the alert ledger.
const CollectionAlerts = "alerts"

// Alert severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Alert is one system-generated notice. Payload carries structured detail
// specific to the alert kind.
type Alert struct {
	ID        string         `json:"alert_id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Ledger is the bounded alert log: only the most recent entries are
// retained, oldest evicted first on insertion.
type Ledger struct {
	store *store.Store
	cap   int
	log   *zap.SugaredLogger
}

// NewLedger creates an alert ledger retaining at most cap entries. A cap
// of zero or less falls back to the default.
func NewLedger(st *store.Store, cap int, log *zap.SugaredLogger) *Ledger {
	if cap <= 0 {
		cap = constants.AlertCap
	}
	return &Ledger{
		store: st,
		cap:   cap,
		log:   logger.Named(log, "alerts"),
	}
}

// Raise appends an alert and truncates the ledger to the retention cap.
func (l *Ledger) Raise(kind, message, severity string, payload map[string]any) (*Alert, error) {
	now := time.Now()
	alert := Alert{
		ID:        attendance.NewEventID(now),
		Kind:      kind,
		Message:   message,
		Severity:  severity,
		Timestamp: now,
		Payload:   payload,
	}

	if _, err := store.Update(l.store, CollectionAlerts, []Alert{},
		func(alerts []Alert) ([]Alert, error) {
			alerts = append(alerts, alert)
			if len(alerts) > l.cap {
				alerts = alerts[len(alerts)-l.cap:]
			}
			return alerts, nil
		}); err != nil {
		return nil, err
	}

	l.log.Infow("alert raised", "kind", kind, "severity", severity, "message", message)
	return &alert, nil
}

// List returns retained alerts, newest first.
func (l *Ledger) List() ([]Alert, error) {
	alerts, err := store.Load(l.store, CollectionAlerts, []Alert{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	return alerts, nil
}
