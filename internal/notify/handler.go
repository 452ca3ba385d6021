package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
	"github.com/labcelsanantonio-byte/LABCEL/internal/identity"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

type LogLister interface {
	List(ctx context.Context, limit int) ([]domain.Notification, error)
}

type Handler struct {
	repo   LogLister
	logger *slog.Logger
}

func NewHandler(repo LogLister, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !user.IsAdmin() {
		h.writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLogLimit)
	}

	notifications, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, notifications)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
