package identity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

type Handler struct {
	svc          *Service
	secureCookie bool
	logger       *slog.Logger
}

// NewHandler serves the auth and user admin routes. secureCookie marks the
// session cookie Secure and should be false only for plain-HTTP development.
func NewHandler(svc *Service, secureCookie bool, logger *slog.Logger) *Handler {
	return &Handler{
		svc:          svc,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	*domain.User
	SessionToken string `json:"session_token"`
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, session, err := h.svc.Login(r.Context(), req.SessionID)
	if err != nil {
		h.writeServiceError(w, err, "failed to sign in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.writeJSON(w, http.StatusOK, sessionResponse{User: user, SessionToken: session.Token})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), TokenFromRequest(r)); err != nil {
		h.logger.Error("failed to delete session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "failed to list users")
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var update ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), UserFromContext(r.Context()), r.PathValue("id"), update)
	if err != nil {
		h.writeServiceError(w, err, "failed to update user")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.SetRole(r.Context(), UserFromContext(r.Context()), r.PathValue("id"), req.Role)
	if err != nil {
		h.writeServiceError(w, err, "failed to change role")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		authErr       *domain.AuthError
		forbiddenErr  *domain.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		h.writeError(w, http.StatusNotFound, notFoundErr.Error())
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
