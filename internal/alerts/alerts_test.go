package alerts

import (
	"fmt"
	"testing"
	"time"

	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/store"
)

func newTestLedgers(t *testing.T) (*Ledger, *attendance.Ledger) {
	t.Helper()
	dataDir := t.TempDir()
	st, err := store.New(dataDir, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	repo, err := identity.NewRepository(st, dataDir, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	identities := map[string]identity.Identity{}
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("%03d", i)
		identities[id] = identity.Identity{ID: id, Name: fmt.Sprintf("Person %d", i)}
	}
	if err := store.Save(st, identity.CollectionIdentities, identities); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	return NewLedger(st, 100, logger.Nop()), attendance.NewLedger(st, repo, logger.Nop())
}

func TestRaise_CapEvictsOldestFirst(t *testing.T) {
	alerts, _ := newTestLedgers(t)

	var firstID string
	for i := 0; i < 101; i++ {
		a, err := alerts.Raise("test", fmt.Sprintf("alert %d", i), SeverityInfo, nil)
		if err != nil {
			t.Fatalf("raise %d failed: %v", i, err)
		}
		if i == 0 {
			firstID = a.ID
		}
	}

	retained, err := alerts.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(retained) != 100 {
		t.Fatalf("expected exactly 100 retained alerts, got %d", len(retained))
	}
	for _, a := range retained {
		if a.ID == firstID {
			t.Errorf("oldest alert should have been evicted")
		}
		if a.Message == "alert 0" {
			t.Errorf("oldest alert message still present")
		}
	}
}

func markPresentOn(t *testing.T, ledger *attendance.Ledger, day time.Time, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("%03d", i+1)
		ts := day.Add(time.Duration(8+i) * time.Hour / 2)
		if _, err := ledger.Append(id, attendance.StatusPresent, ts, attendance.SourceAuto); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
}

func TestCheckShift_RaisesWarningOnDrop(t *testing.T) {
	alerts, ledger := newTestLedgers(t)
	detector := NewPatternDetector(ledger, alerts, 0.20, logger.Nop())

	now := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC) // Monday
	markPresentOn(t, ledger, now.AddDate(0, 0, -8), 10)   // prior Sunday week
	markPresentOn(t, ledger, now.AddDate(0, 0, -1), 6)    // yesterday

	alert, err := detector.CheckShift(now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if alert == nil {
		t.Fatal("expected an alert for a 40% drop")
	}
	if alert.Severity != SeverityWarning {
		t.Errorf("expected warning severity on a drop, got %s", alert.Severity)
	}
	if alert.Kind != KindAttendanceShift {
		t.Errorf("unexpected alert kind %s", alert.Kind)
	}
	if alert.Payload["current_count"] != 6 || alert.Payload["prior_count"] != 10 {
		t.Errorf("unexpected payload %v", alert.Payload)
	}
}

func TestCheckShift_RaisesInfoOnRise(t *testing.T) {
	alerts, ledger := newTestLedgers(t)
	detector := NewPatternDetector(ledger, alerts, 0.20, logger.Nop())

	now := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	markPresentOn(t, ledger, now.AddDate(0, 0, -8), 5)
	markPresentOn(t, ledger, now.AddDate(0, 0, -1), 8)

	alert, err := detector.CheckShift(now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if alert == nil {
		t.Fatal("expected an alert for a 60% rise")
	}
	if alert.Severity != SeverityInfo {
		t.Errorf("expected info severity on a rise, got %s", alert.Severity)
	}
}

func TestCheckShift_WithinThresholdIsQuiet(t *testing.T) {
	alerts, ledger := newTestLedgers(t)
	detector := NewPatternDetector(ledger, alerts, 0.20, logger.Nop())

	now := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	markPresentOn(t, ledger, now.AddDate(0, 0, -8), 10)
	markPresentOn(t, ledger, now.AddDate(0, 0, -1), 9) // 10% drop

	alert, err := detector.CheckShift(now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if alert != nil {
		t.Errorf("expected no alert for a 10%% change, got %+v", alert)
	}
}

func TestCheckShift_SkipsZeroPrior(t *testing.T) {
	alerts, ledger := newTestLedgers(t)
	detector := NewPatternDetector(ledger, alerts, 0.20, logger.Nop())

	now := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	markPresentOn(t, ledger, now.AddDate(0, 0, -1), 5)

	alert, err := detector.CheckShift(now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if alert != nil {
		t.Errorf("expected no alert when the prior day has no data, got %+v", alert)
	}
}

func TestCheckShift_CountsOnlyPresent(t *testing.T) {
	alerts, ledger := newTestLedgers(t)
	detector := NewPatternDetector(ledger, alerts, 0.20, logger.Nop())

	now := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	markPresentOn(t, ledger, now.AddDate(0, 0, -8), 4)
	markPresentOn(t, ledger, now.AddDate(0, 0, -1), 4)
	// Extra absences yesterday must not register as a shift.
	day := now.AddDate(0, 0, -1)
	for i := 5; i <= 8; i++ {
		id := fmt.Sprintf("%03d", i)
		if _, err := ledger.Append(id, attendance.StatusAbsent, day.Add(9*time.Hour), attendance.SourceManual); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	alert, err := detector.CheckShift(now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if alert != nil {
		t.Errorf("absences must not count toward the present shift, got %+v", alert)
	}
}
