// Package store persists named JSON collections on disk.
//
// Each collection is a single human-readable JSON document. Reads always
// deserialize the file fresh and writes always serialize the full value, so
// no caller ever holds a long-lived in-memory copy. Writes go through a
// temp file in the same directory followed by an atomic rename: a crash
// mid-write leaves the previously committed file untouched. A file that
// fails to parse is copied to a timestamped quarantine path and replaced
// with the caller's default value.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/logger"
)

const (
	maxAttempts  = 3
	retryBackoff = 100 * time.Millisecond
)

// Store manages the collection files under a single directory and hands out
// one mutex per collection so concurrent read-modify-write cycles on the
// same collection cannot lose updates. Locking is in-process only; the
// store assumes a single-instance deployment.
type Store struct {
	dir string
	log *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, log *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &Store{
		dir:   dir,
		log:   logger.Named(log, "store"),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the directory holding the collection files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk path of a collection file.
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *Store) collectionLock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	return l
}

// WithLock runs fn while holding the collection's mutex. Callers that need
// to combine several Load/Save calls into one read-modify-write cycle (or
// span extra work such as id allocation) use this; Load and Save themselves
// take no locks.
func (s *Store) WithLock(collection string, fn func() error) error {
	l := s.collectionLock(collection)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Load reads a collection from disk. A missing file yields def without
// creating the file. Transient read errors are retried up to maxAttempts;
// if the file exists but will not parse after all attempts, the corrupt
// bytes are quarantined, the file is reset to def, and def is returned.
func Load[T any](s *Store, collection string, def T) (T, error) {
	path := s.Path(collection)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return def, nil
			}
			lastErr = err
			s.log.Warnw("read failed",
				logger.FieldCollection, collection,
				logger.FieldAttempt, attempt,
				logger.FieldError, err)
			time.Sleep(retryBackoff)
			continue
		}

		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			lastErr = err
			s.log.Errorw("parse failed",
				logger.FieldCollection, collection,
				logger.FieldAttempt, attempt,
				logger.FieldError, err)
			if attempt == maxAttempts {
				s.quarantine(collection, data)
				if saveErr := Save(s, collection, def); saveErr != nil {
					return def, fmt.Errorf("resetting corrupt collection %s: %w", collection, saveErr)
				}
				return def, nil
			}
			time.Sleep(retryBackoff)
			continue
		}
		return v, nil
	}

	var zero T
	return zero, fmt.Errorf("reading collection %s: %w", collection, lastErr)
}

// Save serializes the full value and atomically replaces the collection
// file. Retried up to maxAttempts before the failure propagates.
func Save[T any](s *Store, collection string, v T) error {
	path := s.Path(collection)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection %s: %w", collection, err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := writeAtomic(path, data); err != nil {
			lastErr = err
			s.log.Warnw("write failed",
				logger.FieldCollection, collection,
				logger.FieldAttempt, attempt,
				logger.FieldError, err)
			time.Sleep(retryBackoff)
			continue
		}
		return nil
	}
	return fmt.Errorf("writing collection %s: %w", collection, lastErr)
}

// Update runs a locked read-modify-write cycle: load the collection (def if
// absent), apply fn, and persist the result. The returned value is what was
// written.
func Update[T any](s *Store, collection string, def T, fn func(T) (T, error)) (T, error) {
	var out T
	err := s.WithLock(collection, func() error {
		cur, err := Load(s, collection, def)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if err := Save(s, collection, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// writeAtomic writes data to a temp file beside path and renames it over
// the target. The rename is the commit point.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// quarantine copies unparseable collection bytes to a timestamped backup
// beside the live file so an operator can inspect them later.
func (s *Store) quarantine(collection string, data []byte) {
	backup := filepath.Join(s.dir,
		fmt.Sprintf("%s.corrupted.%s.json", collection, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		s.log.Errorw("quarantine failed",
			logger.FieldCollection, collection,
			logger.FieldPath, backup,
			logger.FieldError, err)
		return
	}
	s.log.Warnw("quarantined corrupt collection",
		logger.FieldCollection, collection,
		logger.FieldPath, backup)
}
