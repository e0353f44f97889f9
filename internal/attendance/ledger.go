package attendance

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/store"
)

// Ledger is the append-oriented attendance log. Every operation reloads
// the collection, mutates it under the collection lock, and writes it
// back; nothing is cached between calls.
type Ledger struct {
	store *store.Store
	repo  *identity.Repository
	log   *zap.SugaredLogger
}

// NewLedger creates a ledger backed by the given store. The identity
// repository is consulted on append to reject records for identities that
// do not exist.
func NewLedger(st *store.Store, repo *identity.Repository, log *zap.SugaredLogger) *Ledger {
	return &Ledger{
		store: st,
		repo:  repo,
		log:   logger.Named(log, "attendance"),
	}
}

// Append records one attendance event for an enrolled identity. A zero
// timestamp means now. Returns the stored record.
func (l *Ledger) Append(identityID, status string, ts time.Time, source string) (*Record, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if source != SourceAuto && source != SourceManual {
		return nil, fmt.Errorf("%w: unknown source %q", ErrValidation, source)
	}

	ident, err := l.repo.Get(identityID)
	if err == identity.ErrNotFound {
		return nil, fmt.Errorf("identity %s: %w", identityID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if ts.IsZero() {
		ts = time.Now()
	}
	rec := Record{
		ID:         NewEventID(ts),
		IdentityID: ident.ID,
		Name:       ident.Name,
		Status:     status,
		Timestamp:  ts,
		Source:     source,
	}

	if _, err := store.Update(l.store, CollectionLedger, []Record{},
		func(records []Record) ([]Record, error) {
			return append(records, rec), nil
		}); err != nil {
		return nil, err
	}

	l.log.Infow("attendance recorded",
		logger.FieldRecordID, rec.ID,
		logger.FieldIdentityID, rec.IdentityID,
		"status", rec.Status,
		"source", rec.Source)
	return &rec, nil
}

// List returns all records sorted by timestamp descending. Stored order
// is insertion order; sorting is a view concern.
func (l *Ledger) List() ([]Record, error) {
	records, err := store.Load(l.store, CollectionLedger, []Record{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// ListRange returns records whose timestamp falls in [from, to), newest
// first.
func (l *Ledger) ListRange(from, to time.Time) ([]Record, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if !rec.Timestamp.Before(from) && rec.Timestamp.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Delete removes the single record with the given id.
func (l *Ledger) Delete(recordID string) error {
	_, err := store.Update(l.store, CollectionLedger, []Record{},
		func(records []Record) ([]Record, error) {
			for i, rec := range records {
				if rec.ID == recordID {
					return append(records[:i], records[i+1:]...), nil
				}
			}
			return nil, ErrNotFound
		})
	if err != nil {
		return err
	}
	l.log.Infow("attendance record deleted", logger.FieldRecordID, recordID)
	return nil
}

// DeleteAll replaces the ledger with an empty sequence. Irreversible.
// Returns the number of records removed.
func (l *Ledger) DeleteAll() (int, error) {
	removed := 0
	_, err := store.Update(l.store, CollectionLedger, []Record{},
		func(records []Record) ([]Record, error) {
			removed = len(records)
			return []Record{}, nil
		})
	if err != nil {
		return 0, err
	}
	l.log.Warnw("attendance ledger cleared", "removed", removed)
	return removed, nil
}

// UpdateFields is the set of mutable record fields for Update. Nil
// pointers leave the corresponding field untouched.
type UpdateFields struct {
	Status    *string
	Timestamp *time.Time
}

// Update mutates status and/or timestamp on the first record matching the
// id. Returns the updated record.
func (l *Ledger) Update(recordID string, fields UpdateFields) (*Record, error) {
	if fields.Status != nil && !ValidStatus(*fields.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *fields.Status)
	}

	var updated Record
	_, err := store.Update(l.store, CollectionLedger, []Record{},
		func(records []Record) ([]Record, error) {
			for i := range records {
				if records[i].ID != recordID {
					continue
				}
				if fields.Status != nil {
					records[i].Status = *fields.Status
				}
				if fields.Timestamp != nil {
					records[i].Timestamp = *fields.Timestamp
				}
				updated = records[i]
				return records, nil
			}
			return nil, ErrNotFound
		})
	if err != nil {
		return nil, err
	}
	l.log.Infow("attendance record updated", logger.FieldRecordID, recordID)
	return &updated, nil
}

// DeduplicateReport summarizes one maintenance pass.
type DeduplicateReport struct {
	Kept       int `json:"kept"`
	Duplicates int `json:"duplicates_removed"`
	Orphans    int `json:"orphans_removed"`
	Invalid    int `json:"invalid_removed"`
}

// Deduplicate scans the ledger in stored order and keeps the first record
// per (identity, minute) key. Minutes are compared in UTC so records that
// arrived with different zone offsets still collapse onto the same
// instant. Records referencing a deleted identity or missing required
// fields are dropped in the same pass.
func (l *Ledger) Deduplicate() (*DeduplicateReport, error) {
	identities, err := l.repo.List()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(identities))
	for _, ident := range identities {
		known[ident.ID] = true
	}

	report := &DeduplicateReport{}
	_, err = store.Update(l.store, CollectionLedger, []Record{},
		func(records []Record) ([]Record, error) {
			seen := map[string]bool{}
			kept := make([]Record, 0, len(records))
			for _, rec := range records {
				if rec.ID == "" || rec.IdentityID == "" || !ValidStatus(rec.Status) || rec.Timestamp.IsZero() {
					report.Invalid++
					continue
				}
				if !known[rec.IdentityID] {
					report.Orphans++
					continue
				}
				key := rec.IdentityID + "|" + rec.Timestamp.UTC().Truncate(time.Minute).Format("2006-01-02T15:04")
				if seen[key] {
					report.Duplicates++
					continue
				}
				seen[key] = true
				kept = append(kept, rec)
			}
			report.Kept = len(kept)
			return kept, nil
		})
	if err != nil {
		return nil, err
	}

	l.log.Infow("attendance ledger deduplicated",
		"kept", report.Kept,
		"duplicates", report.Duplicates,
		"orphans", report.Orphans,
		"invalid", report.Invalid)
	return report, nil
}
