package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/services"
)

// SuggestHandler handles link suggestion HTTP requests.
type SuggestHandler struct {
	suggestService services.SuggestService
	logger         *zap.Logger
}

// NewSuggestHandler creates a new suggestion handler.
func NewSuggestHandler(suggestService services.SuggestService, logger *zap.Logger) *SuggestHandler {
	return &SuggestHandler{
		suggestService: suggestService,
		logger:         logger,
	}
}

// RegisterRoutes registers the suggestion handler's routes on the given mux.
func (h *SuggestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/suggestions", h.Suggest)
}

type suggestRequest struct {
	PostID         uuid.UUID   `json:"post_id"`
	SiloID         uuid.UUID   `json:"silo_id"`
	Title          string      `json:"title"`
	Keyword        string      `json:"keyword"`
	Body           string      `json:"body"`
	ExistingLinks  []uuid.UUID `json:"existing_links"`
	MaxSuggestions int         `json:"max_suggestions"`
}

// Suggest handles POST /api/suggestions
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	resp, err := h.suggestService.Suggest(r.Context(), &services.SuggestRequest{
		Caller:         callerIdentity(r),
		PostID:         req.PostID,
		SiloID:         req.SiloID,
		Title:          req.Title,
		Keyword:        req.Keyword,
		Body:           req.Body,
		ExistingLinks:  req.ExistingLinks,
		MaxSuggestions: req.MaxSuggestions,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode suggestion response", zap.Error(err))
	}
}

// callerIdentity picks the rate-limit key: an explicit caller header when the
// CMS forwards one, else the client address.
func callerIdentity(r *http.Request) string {
	if caller := r.Header.Get("X-Caller-ID"); caller != "" {
		return caller
	}
	return r.RemoteAddr
}

func (h *SuggestHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrBodyTooShort):
		h.writeError(w, http.StatusBadRequest, "body_too_short", err.Error())
	case errors.Is(err, apperrors.ErrBodyTooLong):
		h.writeError(w, http.StatusBadRequest, "body_too_long", err.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, apperrors.ErrSiloMismatch):
		h.writeError(w, http.StatusBadRequest, "silo_mismatch", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "post_not_found", "post not found")
	case errors.Is(err, apperrors.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		h.logger.Error("Suggestion run failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "suggest_failed", err.Error())
	}
}

func (h *SuggestHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
