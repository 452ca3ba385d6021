package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
	"github.com/labcelsanantonio-byte/LABCEL/internal/identity"
)

type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

type Handler struct {
	svc    *Service
	users  UserCounter
	logger *slog.Logger
}

func NewHandler(svc *Service, users UserCounter, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		users:  users,
		logger: logger,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var checkout domain.Checkout
	if err := json.NewDecoder(r.Body).Decode(&checkout); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Create(r.Context(), identity.UserFromContext(r.Context()), checkout)
	if err != nil {
		h.writeServiceError(w, err, "failed to create order")
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.svc.List(r.Context(), identity.UserFromContext(r.Context()), status)
	if err != nil {
		h.writeServiceError(w, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.svc.Get(r.Context(), identity.UserFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get order")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	view, err := h.svc.Track(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to track order")
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Notes  string             `json:"notes"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Transition(r.Context(), identity.UserFromContext(r.Context()), id, req.Status, req.Notes)
	if err != nil {
		h.writeServiceError(w, err, "failed to update order status")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleApproveDesign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.svc.ApproveDesign(r.Context(), identity.UserFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to approve design")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type designProposalRequest struct {
	ImageURL        string `json:"proposal_image_url"`
	Message         string `json:"message"`
	SendViaWhatsApp bool   `json:"send_via_whatsapp"`
	SendViaEmail    bool   `json:"send_via_email"`
}

type designProposalResponse struct {
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Results []domain.ChannelResult `json:"results"`
}

func (h *Handler) HandleDesignProposal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req designProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proposal := domain.DesignProposal{
		OrderID:         id,
		ImageURL:        req.ImageURL,
		Message:         req.Message,
		SendViaWhatsApp: req.SendViaWhatsApp,
		SendViaEmail:    req.SendViaEmail,
	}

	results, err := h.svc.SendDesignProposal(r.Context(), identity.UserFromContext(r.Context()), proposal)
	if err != nil {
		var deliveryErr *domain.NotificationDeliveryError
		if errors.As(err, &deliveryErr) {
			h.writeJSON(w, http.StatusBadGateway, designProposalResponse{Error: "design proposal could not be delivered", Results: results})
			return
		}
		h.writeServiceError(w, err, "failed to send design proposal")
		return
	}

	h.writeJSON(w, http.StatusOK, designProposalResponse{Message: "design proposal sent", Results: results})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), identity.UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "failed to load stats")
		return
	}

	users, err := h.users.CountUsers(r.Context())
	if err != nil {
		h.logger.Error("failed to count users", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	stats.TotalUsers = users

	h.writeJSON(w, http.StatusOK, stats)
}

// writeServiceError maps domain errors to status codes; anything else is
// logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	var (
		validationErr *domain.ValidationError
		invalidErr    *domain.InvalidOrderError
		transitionErr *domain.InvalidTransitionError
		notFoundErr   *domain.NotFoundError
		authErr       *domain.AuthError
		forbiddenErr  *domain.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &invalidErr):
		h.writeError(w, http.StatusBadRequest, invalidErr.Error())
	case errors.As(err, &transitionErr):
		h.writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.As(err, &notFoundErr):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &authErr):
		h.writeError(w, http.StatusUnauthorized, authErr.Error())
	case errors.As(err, &forbiddenErr):
		h.writeError(w, http.StatusForbidden, forbiddenErr.Error())
	default:
		h.logger.Error(logMsg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
