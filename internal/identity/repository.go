package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/constants"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/store"
)

// Repository manages enrolled identities and their mirrored embedding
// index. Both live in the collection store; enrollment photos live as JPEG
// files under <dataDir>/faces and deleted identities are archived under
// <dataDir>/trash.
type Repository struct {
	store   *store.Store
	dataDir string
	log     *zap.SugaredLogger
}

// NewRepository creates a repository and ensures the faces and trash
// directories exist.
func NewRepository(st *store.Store, dataDir string, log *zap.SugaredLogger) (*Repository, error) {
	for _, dir := range []string{filepath.Join(dataDir, "faces"), filepath.Join(dataDir, "trash")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return &Repository{
		store:   st,
		dataDir: dataDir,
		log:     logger.Named(log, "identity"),
	}, nil
}

// FacesDir returns the directory holding enrollment photos.
func (r *Repository) FacesDir() string {
	return filepath.Join(r.dataDir, "faces")
}

// TrashDir returns the directory holding deletion snapshots.
func (r *Repository) TrashDir() string {
	return filepath.Join(r.dataDir, "trash")
}

// List returns all identities ordered by id ascending.
func (r *Repository) List() ([]Identity, error) {
	identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
	if err != nil {
		return nil, err
	}
	out := make([]Identity, 0, len(identities))
	for _, id := range identities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a single identity by id.
func (r *Repository) Get(id string) (*Identity, error) {
	identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
	if err != nil {
		return nil, err
	}
	ident, ok := identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ident, nil
}

// Exists reports whether an identity with the given id is enrolled.
func (r *Repository) Exists(id string) (bool, error) {
	_, err := r.Get(id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindByName returns identities whose display name matches the query,
// compared case- and diacritic-insensitively.
func (r *Repository) FindByName(query string) ([]Identity, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	want := NormalizeName(query)
	var out []Identity
	for _, ident := range all {
		if strings.Contains(NormalizeName(ident.Name), want) {
			out = append(out, ident)
		}
	}
	return out, nil
}

// nextID computes the next sequential id from the identities already
// present: max numeric id + 1, zero-padded to IdentityIDWidth. Non-numeric
// ids are ignored.
func nextID(identities map[string]Identity) string {
	maxID := 0
	for _, ident := range identities {
		n, err := strconv.Atoi(ident.ID)
		if err != nil {
			continue
		}
		if n > maxID {
			maxID = n
		}
	}
	return fmt.Sprintf("%0*d", constants.IdentityIDWidth, maxID+1)
}

// NextID returns the id the next enrollment would receive. Exposed for
// display purposes only; Enroll allocates under the collection lock.
func (r *Repository) NextID() (string, error) {
	identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
	if err != nil {
		return "", err
	}
	return nextID(identities), nil
}

// Enroll creates a new identity from a fixed number of photos and their
// embeddings. Photos are stored as JPEG assets named <id>_<n>.jpg. The
// identity record and its index mirror are two sequential saves, not one
// transaction; id allocation and the repository write share the identities
// lock so concurrent enrollments cannot collide on an id.
func (r *Repository) Enroll(name string, embeddings [][]float32, photos [][]byte) (*Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(photos) != constants.EnrollmentPhotoCount {
		return nil, fmt.Errorf("%w: exactly %d images required", ErrValidation, constants.EnrollmentPhotoCount)
	}
	if len(embeddings) != len(photos) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d images", ErrValidation, len(embeddings), len(photos))
	}

	var ident Identity
	err := r.store.WithLock(CollectionIdentities, func() error {
		identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
		if err != nil {
			return err
		}

		id := nextID(identities)
		imagePaths := make([]string, 0, len(photos))
		for i, photo := range photos {
			rel := filepath.Join("faces", fmt.Sprintf("%s_%d.jpg", id, i+1))
			if err := os.WriteFile(filepath.Join(r.dataDir, rel), photo, 0o644); err != nil {
				return fmt.Errorf("saving image %d: %w", i+1, err)
			}
			imagePaths = append(imagePaths, rel)
		}

		ident = Identity{
			ID:         id,
			Name:       name,
			Embeddings: embeddings,
			ImagePaths: imagePaths,
			CreatedAt:  time.Now(),
		}
		identities[id] = ident
		return store.Save(r.store, CollectionIdentities, identities)
	})
	if err != nil {
		return nil, err
	}

	// Mirror into the embedding index so recognition never loads image paths.
	_, err = store.Update(r.store, CollectionIndex, map[string]IndexEntry{},
		func(index map[string]IndexEntry) (map[string]IndexEntry, error) {
			index[ident.ID] = IndexEntry{ID: ident.ID, Name: ident.Name, Embeddings: ident.Embeddings}
			return index, nil
		})
	if err != nil {
		return nil, fmt.Errorf("updating embedding index: %w", err)
	}

	r.log.Infow("enrolled identity", logger.FieldIdentityID, ident.ID, "name", ident.Name)
	return &ident, nil
}

// Delete removes an identity, archiving its photos and record under the
// trash directory first. Step order matters for crash recovery: assets are
// moved, then the snapshot is written, then the repository entry is
// removed, and the index mirror last. A crash between steps leaves a
// recoverable partial state instead of losing the identity outright.
func (r *Repository) Delete(id string, confirm bool) (string, error) {
	if !confirm {
		return "", ErrConfirmationRequired
	}

	var trashPath string
	err := r.store.WithLock(CollectionIdentities, func() error {
		identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
		if err != nil {
			return err
		}
		ident, ok := identities[id]
		if !ok {
			return ErrNotFound
		}

		trashPath, err = r.archiveToTrash(&ident)
		if err != nil {
			return err
		}

		delete(identities, id)
		return store.Save(r.store, CollectionIdentities, identities)
	})
	if err != nil {
		return "", err
	}

	_, err = store.Update(r.store, CollectionIndex, map[string]IndexEntry{},
		func(index map[string]IndexEntry) (map[string]IndexEntry, error) {
			delete(index, id)
			return index, nil
		})
	if err != nil {
		return "", fmt.Errorf("updating embedding index: %w", err)
	}

	r.log.Infow("deleted identity", logger.FieldIdentityID, id, logger.FieldPath, trashPath)
	return trashPath, nil
}

// IndexEntries returns the embedding index. If the index collection is
// empty but identities exist, an equivalent index is derived from the
// repository so recognition keeps working after index loss.
func (r *Repository) IndexEntries() ([]IndexEntry, error) {
	index, err := store.Load(r.store, CollectionIndex, map[string]IndexEntry{})
	if err != nil {
		return nil, err
	}

	if len(index) == 0 {
		identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
		if err != nil {
			return nil, err
		}
		index = make(map[string]IndexEntry, len(identities))
		for id, ident := range identities {
			index[id] = IndexEntry{ID: id, Name: ident.Name, Embeddings: ident.Embeddings}
		}
	}

	out := make([]IndexEntry, 0, len(index))
	for _, entry := range index {
		out = append(out, entry)
	}
	// Stable iteration order; matching is first-wins on ties.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RebuildIndex regenerates the embedding index collection from the
// repository, repairing any divergence between the two. Returns the number
// of identities indexed.
func (r *Repository) RebuildIndex() (int, error) {
	identities, err := store.Load(r.store, CollectionIdentities, map[string]Identity{})
	if err != nil {
		return 0, err
	}

	index := make(map[string]IndexEntry, len(identities))
	for id, ident := range identities {
		index[id] = IndexEntry{ID: id, Name: ident.Name, Embeddings: ident.Embeddings}
	}
	if _, err := store.Update(r.store, CollectionIndex, map[string]IndexEntry{},
		func(map[string]IndexEntry) (map[string]IndexEntry, error) {
			return index, nil
		}); err != nil {
		return 0, err
	}
	return len(index), nil
}
