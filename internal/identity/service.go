package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

const maxListedUsers = 1000

type Store interface {
	UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, role domain.Role, limit int) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate, now time.Time) (*domain.User, error)
	SetRole(ctx context.Context, id string, role domain.Role, now time.Time) (*domain.User, error)
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionCache returns an empty user id on a miss.
type SessionCache interface {
	Get(ctx context.Context, token string) (string, error)
	Set(ctx context.Context, token, userID string, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

type ProfileExchanger interface {
	Exchange(ctx context.Context, sessionID string) (*Profile, error)
}

// ProfileUpdate carries the admin-editable user fields; nil means unchanged.
type ProfileUpdate struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	WhatsAppNumber *string `json:"whatsapp_number"`
}

func (u ProfileUpdate) empty() bool {
	return u.Name == nil && u.Phone == nil && u.WhatsAppNumber == nil
}

type Service struct {
	store      Store
	provider   ProfileExchanger
	cache      SessionCache
	sessionTTL time.Duration
	cacheTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time

	adminEmails map[string]bool
}

// NewService wires identity. cache may be nil, in which case every
// authentication reads the sessions table.
func NewService(store Store, provider ProfileExchanger, cache SessionCache, sessionTTL, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		provider:   provider,
		cache:      cache,
		sessionTTL: sessionTTL,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PromoteOnLogin grants the admin role to these emails the next time they
// sign in. It bootstraps the first administrator of a fresh install.
func (s *Service) PromoteOnLogin(emails ...string) {
	if s.adminEmails == nil {
		s.adminEmails = make(map[string]bool)
	}
	for _, email := range emails {
		s.adminEmails[strings.ToLower(strings.TrimSpace(email))] = true
	}
}

// Login exchanges a provider session id, registers or refreshes the user and
// opens a session.
func (s *Service) Login(ctx context.Context, sessionID string) (*domain.User, *domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil, &domain.ValidationError{Field: "session_id", Message: "is required"}
	}

	profile, err := s.provider.Exchange(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	user, err := s.store.UpsertByEmail(ctx, &domain.User{
		ID:        newUserID(),
		Email:     strings.ToLower(strings.TrimSpace(profile.Email)),
		Name:      profile.Name,
		Picture:   profile.Picture,
		Role:      domain.RoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert user: %w", err)
	}
	if s.adminEmails[user.Email] && !user.IsAdmin() {
		if user, err = s.store.SetRole(ctx, user.ID, domain.RoleAdmin, now); err != nil {
			return nil, nil, fmt.Errorf("promote bootstrap admin: %w", err)
		}
		s.logger.Info("bootstrap admin promoted", "user_id", user.ID)
	}

	token := profile.SessionToken
	if token == "" {
		token = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	session := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	return user, session, nil
}

// Authenticate resolves a session token to its user. Unknown and expired
// sessions return nil without an error.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}

	if s.cache != nil {
		userID, err := s.cache.Get(ctx, token)
		if err != nil {
			s.logger.Warn("session cache read failed", "error", err)
		} else if userID != "" {
			user, err := s.store.GetByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			if user == nil {
				s.forget(ctx, token)
			}
			return user, nil
		}
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if session == nil || session.Expired(now) {
		return nil, nil
	}

	user, err := s.store.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, err
	}

	if s.cache != nil {
		ttl := s.cacheTTL
		if remaining := session.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
		if err := s.cache.Set(ctx, token, user.ID, ttl); err != nil {
			s.logger.Warn("session cache write failed", "error", err)
		}
	}

	return user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	s.forget(ctx, token)
	return s.store.DeleteSession(ctx, token)
}

func (s *Service) forget(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, token); err != nil {
		s.logger.Warn("session cache delete failed", "error", err)
	}
}

func (s *Service) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireAdmin(actor, "list users"); err != nil {
		return nil, err
	}
	return s.store.List(ctx, "", maxListedUsers)
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func (s *Service) UpdateUser(ctx context.Context, actor *domain.User, id string, update ProfileUpdate) (*domain.User, error) {
	if err := requireAdmin(actor, "edit users"); err != nil {
		return nil, err
	}
	if update.empty() {
		return nil, &domain.ValidationError{Message: "no fields to update"}
	}

	user, err := s.store.UpdateProfile(ctx, id, update, s.now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	return user, nil
}

// SetRole promotes or demotes a user. Admins cannot change their own role and
// the last admin cannot be demoted.
func (s *Service) SetRole(ctx context.Context, actor *domain.User, id string, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(actor, "change roles"); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Message: "must be one of [customer admin]"}
	}
	if actor.ID == id {
		return nil, &domain.ValidationError{Field: "role", Message: "you cannot change your own role"}
	}

	user, err := s.store.SetRole(ctx, id, role, s.now())
	if err != nil {
		if errors.Is(err, ErrLastAdmin) {
			return nil, &domain.ValidationError{Field: "role", Message: ErrLastAdmin.Error()}
		}
		return nil, err
	}
	if user == nil {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}

	s.logger.Info("user role changed", "user_id", id, "role", role, "actor", actor.ID)
	return user, nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

func newUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func requireAdmin(actor *domain.User, action string) error {
	if actor == nil {
		return &domain.AuthError{Reason: "sign in to " + action}
	}
	if !actor.IsAdmin() {
		return &domain.ForbiddenError{Action: action}
	}
	return nil
}
