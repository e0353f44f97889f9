package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/facetrace/attendance/internal/alerts"
	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/recognize"
	"github.com/facetrace/attendance/internal/store"
)

// stubProvider is a canned embedding provider for handler tests. Each
// Extract call consumes the next face; ExtractAll returns all of them.
type stubProvider struct {
	faces []embedding.Face
	err   error
	calls int
}

func (p *stubProvider) Extract(_ context.Context, _ []byte) (*embedding.Face, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.faces) == 0 {
		return nil, embedding.ErrNoFace
	}
	face := p.faces[p.calls%len(p.faces)]
	p.calls++
	return &face, nil
}

func (p *stubProvider) ExtractAll(_ context.Context, _ []byte) ([]embedding.Face, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.faces) == 0 {
		return nil, embedding.ErrNoFace
	}
	return p.faces, nil
}

// testEnv bundles the wired domain components behind the handlers.
type testEnv struct {
	store    *store.Store
	repo     *identity.Repository
	matcher  *recognize.Matcher
	ledger   *attendance.Ledger
	alerts   *alerts.Ledger
	detector *alerts.PatternDetector
}

func newTestEnv(t *testing.T) *testEnv {
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
	ledger := attendance.NewLedger(st, repo, logger.Nop())
	alertLedger := alerts.NewLedger(st, 100, logger.Nop())
	return &testEnv{
		store:    st,
		repo:     repo,
		matcher:  recognize.NewMatcher(repo, 0.60, logger.Nop()),
		ledger:   ledger,
		alerts:   alertLedger,
		detector: alerts.NewPatternDetector(ledger, alertLedger, 0.20, logger.Nop()),
	}
}

// seedIdentity inserts an identity with a single unit embedding.
func (e *testEnv) seedIdentity(t *testing.T, id, name string, vec []float32) {
	t.Helper()
	identities, err := store.Load(e.store, identity.CollectionIdentities, map[string]identity.Identity{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	identities[id] = identity.Identity{ID: id, Name: name, Embeddings: [][]float32{vec}}
	if err := store.Save(e.store, identity.CollectionIdentities, identities); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := e.repo.RebuildIndex(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
}

// multipartImage builds a multipart body with one "image" file part.
func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "face.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

// testJPEG encodes a small real JPEG so handlers can decode it.
func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// multipartEnrollment builds a multipart body with a name field and n
// "images" file parts holding small real JPEGs.
func multipartEnrollment(t *testing.T, name string, n int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("name", name); err != nil {
		t.Fatalf("write field: %v", err)
	}
	photo := testJPEG(t)
	for i := 0; i < n; i++ {
		part, err := writer.CreateFormFile("images", fmt.Sprintf("photo%d.jpg", i+1))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(photo); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeJSON decodes a recorder body into dst.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}
