package recognize

import (
	"math"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
)

// Result is the outcome of matching one query embedding against the
// enrolled identities. Distance is the best distance seen even when no
// identity cleared the threshold; Candidates is the number of identities
// scanned. With an empty index Distance is 0 and Candidates is 0, so
// check Recognized rather than reading a zero distance as a perfect
// match.
type Result struct {
	Recognized bool    `json:"recognized"`
	IdentityID string  `json:"identity_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Distance   float64 `json:"distance"`
	Candidates int     `json:"candidates"`
}

// Matcher resolves query embeddings to enrolled identities by linear
// cosine scan over the embedding index. State lives entirely on disk; the
// matcher re-reads the index on every call so concurrent enrollments are
// visible immediately.
type Matcher struct {
	repo      *identity.Repository
	threshold float64
	log       *zap.SugaredLogger
}

// NewMatcher creates a matcher with the given distance threshold. A query
// matches only when its distance is strictly below the threshold.
func NewMatcher(repo *identity.Repository, threshold float64, log *zap.SugaredLogger) *Matcher {
	return &Matcher{
		repo:      repo,
		threshold: threshold,
		log:       logger.Named(log, "recognize"),
	}
}

// Threshold returns the configured distance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scans every embedding of every enrolled identity and returns the
// closest one. Identities are visited in id order and a candidate replaces
// the current best only when strictly closer, so ties resolve to the
// lowest id. An empty index yields an unrecognized result with no
// candidates.
func (m *Matcher) Match(query []float32) (*Result, error) {
	entries, err := m.repo.IndexEntries()
	if err != nil {
		return nil, err
	}

	res := &Result{Distance: math.Inf(1), Candidates: len(entries)}
	for _, entry := range entries {
		for _, emb := range entry.Embeddings {
			d := CosineDistance(query, emb)
			if d < res.Distance {
				res.Distance = d
				res.IdentityID = entry.ID
				res.Name = entry.Name
			}
		}
	}

	if math.IsInf(res.Distance, 1) {
		// Nothing enrolled, or no identity carries embeddings.
		res.Distance = 0
		res.IdentityID = ""
		res.Name = ""
		return res, nil
	}

	if res.Distance < m.threshold {
		res.Recognized = true
		m.log.Infow("identity recognized",
			logger.FieldIdentityID, res.IdentityID,
			"distance", res.Distance)
	} else {
		// Closest identity was still too far; report it for diagnostics
		// but do not claim recognition.
		res.IdentityID = ""
		res.Name = ""
		m.log.Debugw("no identity within threshold",
			"distance", res.Distance,
			"threshold", m.threshold)
	}
	return res, nil
}
