package alerts

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/logger"
)

// KindAttendanceShift marks alerts raised by the day-over-week pattern
// check.
const KindAttendanceShift = "attendance_shift"

// PatternDetector compares recent attendance aggregates and raises alerts
// when they shift beyond a configured threshold.
type PatternDetector struct {
	ledger    *attendance.Ledger
	alerts    *Ledger
	threshold float64
	log       *zap.SugaredLogger
}

// NewPatternDetector creates a detector raising an alert when yesterday's
// present-count differs from the same weekday one week prior by more than
// threshold (relative, e.g. 0.20 for 20%).
func NewPatternDetector(ledger *attendance.Ledger, alerts *Ledger, threshold float64, log *zap.SugaredLogger) *PatternDetector {
	return &PatternDetector{
		ledger:    ledger,
		alerts:    alerts,
		threshold: threshold,
		log:       logger.Named(log, "pattern"),
	}
}

// presentCountOn counts present records on the calendar day containing ts.
func (d *PatternDetector) presentCountOn(ts time.Time) (int, error) {
	dayStart := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	records, err := d.ledger.ListRange(dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if rec.Status == attendance.StatusPresent {
			n++
		}
	}
	return n, nil
}

// CheckShift compares yesterday's present-count against the same weekday
// one week earlier. A relative change beyond the threshold raises one
// alert: warning on a drop, info on a rise. A zero prior count is skipped
// since no meaningful relative change exists.
func (d *PatternDetector) CheckShift(now time.Time) (*Alert, error) {
	yesterday := now.AddDate(0, 0, -1)
	weekPrior := now.AddDate(0, 0, -8)

	current, err := d.presentCountOn(yesterday)
	if err != nil {
		return nil, err
	}
	prior, err := d.presentCountOn(weekPrior)
	if err != nil {
		return nil, err
	}
	if prior == 0 {
		return nil, nil
	}

	change := float64(current-prior) / float64(prior)
	if math.Abs(change) <= d.threshold {
		return nil, nil
	}

	severity := SeverityInfo
	direction := "up"
	if change < 0 {
		severity = SeverityWarning
		direction = "down"
	}
	msg := fmt.Sprintf("attendance %s %.0f%% versus the same weekday last week (%d vs %d present)",
		direction, math.Abs(change)*100, current, prior)

	return d.alerts.Raise(KindAttendanceShift, msg, severity, map[string]any{
		"current_count": current,
		"prior_count":   prior,
		"change_pct":    change * 100,
		"day":           yesterday.Format("2006-01-02"),
	})
}

// CheckShiftAsync runs CheckShift in the background. Failures and panics
// are logged and swallowed so the attendance append that triggered the
// check can never be affected.
func (d *PatternDetector) CheckShiftAsync(now time.Time) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Errorw("pattern check panicked", logger.FieldError, r)
			}
		}()
		if _, err := d.CheckShift(now); err != nil {
			d.log.Errorw("pattern check failed", logger.FieldError, err)
		}
	}()
}
