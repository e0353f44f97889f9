package audit

import (
	"fmt"
	"io"
	"sort"

	"github.com/coder/hnsw"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/recognize"
)

const hnswMaxNeighbors = 16

// Finding is one cross-identity near-duplicate: an embedding of one
// enrolled identity sitting suspiciously close to an embedding of another.
// It usually means the same person was enrolled twice under different
// names.
type Finding struct {
	IdentityA string  `json:"identity_a"`
	NameA     string  `json:"name_a"`
	IdentityB string  `json:"identity_b"`
	NameB     string  `json:"name_b"`
	Distance  float64 `json:"distance"`
}

// Auditor scans the enrolled identities for cross-identity near-duplicate
// embeddings using an approximate nearest-neighbor graph.
type Auditor struct {
	repo *identity.Repository
	log  *zap.SugaredLogger
}

func NewAuditor(repo *identity.Repository, log *zap.SugaredLogger) *Auditor {
	return &Auditor{
		repo: repo,
		log:  logger.Named(log, "audit"),
	}
}

// vectorRef ties one graph node back to its owning identity.
type vectorRef struct {
	identityID string
	name       string
	embedding  []float32
}

// Scan reports identity pairs with embeddings closer than threshold
// (cosine distance). Progress is rendered to out when non-nil; pass nil
// for silent operation in tests. Results are sorted by distance
// ascending and deduplicated per identity pair.
func (a *Auditor) Scan(threshold float64, searchK int, out io.Writer) ([]Finding, error) {
	entries, err := a.repo.IndexEntries()
	if err != nil {
		return nil, err
	}

	var refs []vectorRef
	for _, entry := range entries {
		for _, emb := range entry.Embeddings {
			if len(emb) == 0 {
				continue
			}
			refs = append(refs, vectorRef{identityID: entry.ID, name: entry.Name, embedding: emb})
		}
	}
	if len(refs) < 2 {
		return nil, nil
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	for i, ref := range refs {
		g.Add(hnsw.MakeNode(i, ref.embedding))
	}

	var bar *progressbar.ProgressBar
	if out != nil {
		bar = progressbar.NewOptions(len(refs),
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("auditing embeddings"),
			progressbar.OptionShowCount(),
		)
	}

	// One finding per identity pair: keep the closest distance seen.
	best := map[string]Finding{}
	for _, ref := range refs {
		if bar != nil {
			_ = bar.Add(1)
		}
		for _, n := range g.Search(ref.embedding, searchK) {
			other := refs[n.Key]
			if other.identityID == ref.identityID {
				continue
			}
			d := recognize.CosineDistance(ref.embedding, n.Value)
			if d >= threshold {
				continue
			}

			lo, hi := ref, other
			if hi.identityID < lo.identityID {
				lo, hi = hi, lo
			}
			key := lo.identityID + "|" + hi.identityID
			if prev, ok := best[key]; ok && prev.Distance <= d {
				continue
			}
			best[key] = Finding{
				IdentityA: lo.identityID,
				NameA:     lo.name,
				IdentityB: hi.identityID,
				NameB:     hi.name,
				Distance:  d,
			}
		}
	}

	findings := make([]Finding, 0, len(best))
	for _, f := range best {
		findings = append(findings, f)
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Distance != findings[j].Distance {
			return findings[i].Distance < findings[j].Distance
		}
		return findings[i].IdentityA < findings[j].IdentityA
	})

	a.log.Infow("audit scan complete",
		"vectors", len(refs),
		"identities", len(entries),
		"findings", len(findings))
	return findings, nil
}

// Describe renders one finding for CLI output.
func Describe(f Finding) string {
	return fmt.Sprintf("%s (%s) ~ %s (%s) distance %.4f",
		f.IdentityA, f.NameA, f.IdentityB, f.NameB, f.Distance)
}
