package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/constants"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/recognize"
)

// RecognizeHandler serves the recognition endpoints.
type RecognizeHandler struct {
	matcher  *recognize.Matcher
	provider embedding.Provider
	log      *zap.SugaredLogger
}

func NewRecognizeHandler(matcher *recognize.Matcher, provider embedding.Provider, log *zap.SugaredLogger) *RecognizeHandler {
	return &RecognizeHandler{
		matcher:  matcher,
		provider: provider,
		log:      logger.Named(log, "recognize"),
	}
}

// readImage pulls the single uploaded image out of a multipart form.
func readImage(r *http.Request) ([]byte, bool) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, false
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Recognize handles POST /recognize: one image, one best face, one match
// attempt. Unknown faces return a well-formed unrecognized payload, not
// an error.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	data, ok := readImage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "image file required")
		return
	}

	face, err := h.provider.Extract(r.Context(), data)
	if err == embedding.ErrNoFace {
		respondDomainError(w, err)
		return
	}
	if err != nil {
		h.log.Errorw("embedding extraction failed", logger.FieldError, err)
		respondError(w, http.StatusBadGateway, "embedding extraction failed")
		return
	}

	result, err := h.matcher.Match(face.Embedding)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// faceMatch pairs one detected face with its match outcome. The bounding
// box is passed through for display only.
type faceMatch struct {
	BBox     []float64         `json:"bbox"`
	DetScore float64           `json:"det_score"`
	Match    *recognize.Result `json:"match"`
}

// RecognizeMulti handles POST /recognize/multi: every face found in the
// image is matched independently.
func (h *RecognizeHandler) RecognizeMulti(w http.ResponseWriter, r *http.Request) {
	data, ok := readImage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "image file required")
		return
	}

	faces, err := h.provider.ExtractAll(r.Context(), data)
	if err == embedding.ErrNoFace {
		respondDomainError(w, err)
		return
	}
	if err != nil {
		h.log.Errorw("embedding extraction failed", logger.FieldError, err)
		respondError(w, http.StatusBadGateway, "embedding extraction failed")
		return
	}

	matches := make([]faceMatch, 0, len(faces))
	for _, face := range faces {
		result, err := h.matcher.Match(face.Embedding)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		matches = append(matches, faceMatch{
			BBox:     face.BBox,
			DetScore: face.DetScore,
			Match:    result,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"faces_count": len(matches),
		"faces":       matches,
	})
}
