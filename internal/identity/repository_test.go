package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/store"
)

func newTestRepo(t *testing.T) (*Repository, *store.Store) {
	t.Helper()
	dataDir := t.TempDir()
	st, err := store.New(dataDir, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	repo, err := NewRepository(st, dataDir, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo, st
}

func testEmbeddings(seed float32) [][]float32 {
	out := make([][]float32, 5)
	for i := range out {
		out[i] = []float32{seed, seed + float32(i), 1}
	}
	return out
}

func testPhotos() [][]byte {
	out := make([][]byte, 5)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("jpeg-bytes-%d", i))
	}
	return out
}

func mustEnroll(t *testing.T, repo *Repository, name string, seed float32) *Identity {
	t.Helper()
	ident, err := repo.Enroll(name, testEmbeddings(seed), testPhotos())
	if err != nil {
		t.Fatalf("enroll failed for %s: %v", name, err)
	}
	return ident
}

func TestEnroll_AssignsSequentialIDs(t *testing.T) {
	repo, _ := newTestRepo(t)

	for i, name := range []string{"Ada", "Bo", "Cleo", "Dana", "Eli"} {
		ident := mustEnroll(t, repo, name, float32(i))
		want := fmt.Sprintf("%03d", i+1)
		if ident.ID != want {
			t.Errorf("expected id %s, got %s", want, ident.ID)
		}
	}

	next, err := repo.NextID()
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if next != "006" {
		t.Errorf("expected next id 006, got %s", next)
	}
}

func TestNextID_IgnoresGapsAndNonNumericIDs(t *testing.T) {
	repo, st := newTestRepo(t)

	// Seed a collection with a gap and a non-numeric id.
	identities := map[string]Identity{
		"001":   {ID: "001", Name: "Ada"},
		"003":   {ID: "003", Name: "Cleo"},
		"guest": {ID: "guest", Name: "Visitor"},
	}
	if err := store.Save(st, CollectionIdentities, identities); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	next, err := repo.NextID()
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if next != "004" {
		t.Errorf("expected next id 004, got %s", next)
	}
}

func TestNextID_EmptyRepository(t *testing.T) {
	repo, _ := newTestRepo(t)

	next, err := repo.NextID()
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if next != "001" {
		t.Errorf("expected first id 001, got %s", next)
	}
}

func TestEnroll_MirrorsEmbeddingIndex(t *testing.T) {
	repo, st := newTestRepo(t)

	ident := mustEnroll(t, repo, "Ada", 1)

	index, err := store.Load(st, CollectionIndex, map[string]IndexEntry{})
	if err != nil {
		t.Fatalf("load index failed: %v", err)
	}
	entry, ok := index[ident.ID]
	if !ok {
		t.Fatalf("expected index entry for %s", ident.ID)
	}
	if entry.Name != "Ada" {
		t.Errorf("expected index name Ada, got %s", entry.Name)
	}
	if len(entry.Embeddings) != len(ident.Embeddings) {
		t.Fatalf("embedding list length mismatch: index %d, repo %d", len(entry.Embeddings), len(ident.Embeddings))
	}
	for i := range entry.Embeddings {
		for j := range entry.Embeddings[i] {
			if entry.Embeddings[i][j] != ident.Embeddings[i][j] {
				t.Fatalf("embedding mismatch at [%d][%d]", i, j)
			}
		}
	}
}

func TestEnroll_WritesPhotoAssets(t *testing.T) {
	repo, _ := newTestRepo(t)

	ident := mustEnroll(t, repo, "Ada", 1)

	if len(ident.ImagePaths) != 5 {
		t.Fatalf("expected 5 image paths, got %d", len(ident.ImagePaths))
	}
	for i, rel := range ident.ImagePaths {
		want := filepath.Join("faces", fmt.Sprintf("%s_%d.jpg", ident.ID, i+1))
		if rel != want {
			t.Errorf("expected image path %s, got %s", want, rel)
		}
		if _, err := os.Stat(filepath.Join(repo.dataDir, rel)); err != nil {
			t.Errorf("expected asset on disk at %s: %v", rel, err)
		}
	}
}

func TestEnroll_Validation(t *testing.T) {
	repo, _ := newTestRepo(t)

	if _, err := repo.Enroll("  ", testEmbeddings(1), testPhotos()); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for blank name, got %v", err)
	}
	if _, err := repo.Enroll("Ada", testEmbeddings(1)[:3], testPhotos()[:3]); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for wrong image count, got %v", err)
	}
}

func TestList_SortedByID(t *testing.T) {
	repo, st := newTestRepo(t)

	identities := map[string]Identity{
		"002": {ID: "002", Name: "Bo"},
		"001": {ID: "001", Name: "Ada"},
		"010": {ID: "010", Name: "Jo"},
	}
	if err := store.Save(st, CollectionIdentities, identities); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	ids := []string{}
	for _, ident := range list {
		ids = append(ids, ident.ID)
	}
	if len(ids) != 3 || ids[0] != "001" || ids[1] != "002" || ids[2] != "010" {
		t.Errorf("expected ids [001 002 010], got %v", ids)
	}
}

func TestDelete_RemovesBothCollectionsAndArchives(t *testing.T) {
	repo, st := newTestRepo(t)

	ident := mustEnroll(t, repo, "Ada", 1)
	mustEnroll(t, repo, "Bo", 2)

	trashPath, err := repo.Delete(ident.ID, true)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	identities, err := store.Load(st, CollectionIdentities, map[string]Identity{})
	if err != nil {
		t.Fatalf("load identities failed: %v", err)
	}
	if _, ok := identities[ident.ID]; ok {
		t.Errorf("identity still present in repository after delete")
	}
	index, err := store.Load(st, CollectionIndex, map[string]IndexEntry{})
	if err != nil {
		t.Fatalf("load index failed: %v", err)
	}
	if _, ok := index[ident.ID]; ok {
		t.Errorf("identity still present in embedding index after delete")
	}

	// Exactly one trash subdirectory holding the snapshot and all assets.
	entries, err := os.ReadDir(repo.TrashDir())
	if err != nil {
		t.Fatalf("read trash dir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one trash subdirectory, got %d", len(entries))
	}
	if entries[0].Name() != filepath.Base(trashPath) {
		t.Errorf("returned trash path %s does not match directory %s", trashPath, entries[0].Name())
	}

	files, err := os.ReadDir(trashPath)
	if err != nil {
		t.Fatalf("read trash subdir failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range files {
		names[f.Name()] = true
	}
	if !names[snapshotFileName] {
		t.Errorf("expected %s in trash, got %v", snapshotFileName, names)
	}
	for i := range 5 {
		asset := fmt.Sprintf("%s_%d.jpg", ident.ID, i+1)
		if !names[asset] {
			t.Errorf("expected asset %s in trash, got %v", asset, names)
		}
		if _, err := os.Stat(filepath.Join(repo.FacesDir(), asset)); !os.IsNotExist(err) {
			t.Errorf("asset %s still present in faces dir", asset)
		}
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	repo, _ := newTestRepo(t)
	ident := mustEnroll(t, repo, "Ada", 1)

	if _, err := repo.Delete(ident.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("expected ErrConfirmationRequired, got %v", err)
	}
	if _, err := repo.Get(ident.ID); err != nil {
		t.Errorf("identity should survive unconfirmed delete: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	if _, err := repo.Delete("999", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIndexEntries_FallsBackToRepository(t *testing.T) {
	repo, st := newTestRepo(t)

	// Repository populated, index collection missing entirely.
	identities := map[string]Identity{
		"001": {ID: "001", Name: "Ada", Embeddings: [][]float32{{1, 0}}},
		"002": {ID: "002", Name: "Bo", Embeddings: [][]float32{{0, 1}}},
	}
	if err := store.Save(st, CollectionIdentities, identities); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	entries, err := repo.IndexEntries()
	if err != nil {
		t.Fatalf("IndexEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 derived entries, got %d", len(entries))
	}
	if entries[0].ID != "001" || entries[1].ID != "002" {
		t.Errorf("expected sorted ids [001 002], got [%s %s]", entries[0].ID, entries[1].ID)
	}
}

func TestRebuildIndex_RepairsDivergence(t *testing.T) {
	repo, st := newTestRepo(t)

	mustEnroll(t, repo, "Ada", 1)
	mustEnroll(t, repo, "Bo", 2)

	// Corrupt the mirror: drop one entry and add a stale one.
	index, err := store.Load(st, CollectionIndex, map[string]IndexEntry{})
	if err != nil {
		t.Fatalf("load index failed: %v", err)
	}
	delete(index, "001")
	index["999"] = IndexEntry{ID: "999", Name: "Ghost"}
	if err := store.Save(st, CollectionIndex, index); err != nil {
		t.Fatalf("save index failed: %v", err)
	}

	n, err := repo.RebuildIndex()
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 indexed identities, got %d", n)
	}

	rebuilt, err := store.Load(st, CollectionIndex, map[string]IndexEntry{})
	if err != nil {
		t.Fatalf("load rebuilt index failed: %v", err)
	}
	if _, ok := rebuilt["001"]; !ok {
		t.Errorf("expected entry 001 restored")
	}
	if _, ok := rebuilt["999"]; ok {
		t.Errorf("expected stale entry 999 removed")
	}
}

func TestFindByName_DiacriticInsensitive(t *testing.T) {
	repo, st := newTestRepo(t)

	identities := map[string]Identity{
		"001": {ID: "001", Name: "Jan Novák"},
		"002": {ID: "002", Name: "Ada Byron"},
	}
	if err := store.Save(st, CollectionIdentities, identities); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	found, err := repo.FindByName("jan-novak")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != "001" {
		t.Errorf("expected to find 001, got %+v", found)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("Jiří-Šťastný"); got != "jiri stastny" {
		t.Errorf("expected 'jiri stastny', got '%s'", got)
	}
}
