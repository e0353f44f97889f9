package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/constants"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/identity"
	"github.com/facetrace/attendance/internal/logger"
)

// IdentitiesHandler serves enrollment and identity management endpoints.
type IdentitiesHandler struct {
	repo     *identity.Repository
	provider embedding.Provider
	log      *zap.SugaredLogger
}

func NewIdentitiesHandler(repo *identity.Repository, provider embedding.Provider, log *zap.SugaredLogger) *IdentitiesHandler {
	return &IdentitiesHandler{
		repo:     repo,
		provider: provider,
		log:      logger.Named(log, "identities"),
	}
}

// List handles GET /identities. Embeddings are omitted from the listing;
// clients only need id, name, photo count and enrollment time.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.repo.List()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	type item struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		PhotoCount int    `json:"photo_count"`
		CreatedAt  string `json:"created_at"`
	}
	out := make([]item, 0, len(identities))
	for _, ident := range identities {
		out = append(out, item{
			ID:         ident.ID,
			Name:       ident.Name,
			PhotoCount: len(ident.ImagePaths),
			CreatedAt:  ident.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"identities": out, "count": len(out)})
}

// Enroll handles POST /identities: a multipart form with a "name" field
// and exactly five "images" files. Every image must yield a face; a
// failing image is reported by its position so the caller knows which
// photo to retake.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	files := r.MultipartForm.File["images"]
	if len(files) != constants.EnrollmentPhotoCount {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("exactly %d images required, got %d", constants.EnrollmentPhotoCount, len(files)))
		return
	}

	photos := make([][]byte, 0, len(files))
	embeddings := make([][]float32, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("cannot read image %d", i+1))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("cannot read image %d", i+1))
			return
		}

		normalized, err := embedding.NormalizePhoto(data, constants.MaxAssetDimension)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("image %d is not a valid photo", i+1))
			return
		}

		face, err := h.provider.Extract(r.Context(), normalized)
		if err == embedding.ErrNoFace {
			respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("no face detected in image %d", i+1))
			return
		}
		if err != nil {
			h.log.Errorw("embedding extraction failed", "image", i+1, logger.FieldError, err)
			respondError(w, http.StatusBadGateway, fmt.Sprintf("embedding extraction failed for image %d", i+1))
			return
		}

		photos = append(photos, normalized)
		embeddings = append(embeddings, face.Embedding)
	}

	ident, err := h.repo.Enroll(name, embeddings, photos)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.log.Infow("enrollment complete",
		logger.FieldIdentityID, ident.ID,
		"name", sanitizeForLog(ident.Name))
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":   ident.ID,
		"name": ident.Name,
	})
}

// Delete handles DELETE /identities/{id}. The confirm query parameter
// must be "true"; without it the identity is left untouched.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirm := r.URL.Query().Get("confirm") == "true"

	trashPath, err := h.repo.Delete(id, confirm)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"deleted": id,
		"trash":   trashPath,
	})
}
