package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/alerts"
	"github.com/facetrace/attendance/internal/logger"
)

// AlertsHandler serves the alert ledger endpoints.
type AlertsHandler struct {
	ledger *alerts.Ledger
	log    *zap.SugaredLogger
}

func NewAlertsHandler(ledger *alerts.Ledger, log *zap.SugaredLogger) *AlertsHandler {
	return &AlertsHandler{
		ledger: ledger,
		log:    logger.Named(log, "alerts"),
	}
}

// List handles GET /alerts, newest first.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	retained, err := h.ledger.List()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"alerts": retained,
		"count":  len(retained),
	})
}
