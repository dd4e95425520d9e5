package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/services"
)

// AuditHandler handles silo audit HTTP requests.
type AuditHandler struct {
	auditService services.AuditService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditService services.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// RegisterRoutes registers the audit handler's routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/silos/{silo_id}/audit", h.RunAudit)
	mux.HandleFunc("GET /api/silos/{silo_id}/audit", h.GetAudit)
}

// auditRequest is the optional POST body. External suggestions arrive in the
// loose shape external tools send; they are validated per occurrence.
type auditRequest struct {
	ForceRefresh        bool                          `json:"force_refresh"`
	ExternalSuggestions map[uuid.UUID]json.RawMessage `json:"external_suggestions"`
}

// RunAudit handles POST /api/silos/{silo_id}/audit
func (h *AuditHandler) RunAudit(w http.ResponseWriter, r *http.Request) {
	siloID, err := uuid.Parse(r.PathValue("silo_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_silo_id", "silo_id must be a UUID")
		return
	}

	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	opts := services.AuditOptions{ForceRefresh: req.ForceRefresh}
	if len(req.ExternalSuggestions) > 0 {
		opts.External = make(map[uuid.UUID]*models.ExternalSuggestion, len(req.ExternalSuggestions))
		for occID, raw := range req.ExternalSuggestions {
			ext, err := models.ParseExternalSuggestion(raw)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, "invalid_external_suggestion",
					"malformed external suggestion for occurrence "+occID.String())
				return
			}
			if ext != nil {
				opts.External[occID] = ext
			}
		}
	}

	report, err := h.auditService.Run(r.Context(), siloID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to encode audit report", zap.Error(err))
	}
}

// GetAudit handles GET /api/silos/{silo_id}/audit. It never recomputes: a
// silo that was never audited reads as 404, not as an error.
func (h *AuditHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	siloID, err := uuid.Parse(r.PathValue("silo_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_silo_id", "silo_id must be a UUID")
		return
	}

	report, err := h.auditService.GetStored(r.Context(), siloID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_audited", "silo has not been audited yet")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to encode audit report", zap.Error(err))
	}
}

func (h *AuditHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "silo_not_found", "silo not found")
	case errors.Is(err, apperrors.ErrEmptySilo):
		h.writeError(w, http.StatusBadRequest, "empty_silo", "silo has no pages to audit")
	default:
		h.logger.Error("Audit run failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "audit_failed", err.Error())
	}
}

func (h *AuditHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
