package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

// ErrLastAdmin is returned when a role change would leave no administrators.
var ErrLastAdmin = errors.New("at least one administrator must remain")

const userColumns = `user_id, email, name, picture, role, phone, whatsapp_number, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertByEmail creates the user or refreshes name and picture of the
// existing account with the same email. Role and id of an existing account
// are never changed.
func (r *Repository) UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, email, name, picture, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (email) DO UPDATE
			SET name = EXCLUDED.name, picture = EXCLUDED.picture, updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.Picture, user.Role, user.CreatedAt)

	return scanUser(row)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// List returns users ordered by creation. An empty role lists everyone.
func (r *Repository) List(ctx context.Context, role domain.Role, limit int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if role != "" {
		args = append(args, role)
		query += fmt.Sprintf(" WHERE role = $%d", len(args))
	}
	query += " ORDER BY created_at"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

func (r *Repository) Admins(ctx context.Context) ([]domain.User, error) {
	return r.List(ctx, domain.RoleAdmin, 0)
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// UpdateProfile applies the non-nil fields. It returns a nil user when the id
// is unknown.
func (r *Repository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate, now time.Time) (*domain.User, error) {
	sets := []string{}
	args := []any{id}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("name", update.Name)
	add("phone", update.Phone)
	add("whatsapp_number", update.WhatsAppNumber)

	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE user_id = $1 RETURNING `+userColumns, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SetRole changes a user's role. The admin rows are locked first so two
// concurrent demotions cannot both pass the last-admin check.
func (r *Repository) SetRole(ctx context.Context, id string, role domain.Role, now time.Time) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT user_id FROM users WHERE role = $1 FOR UPDATE`, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	admins := make(map[string]bool)
	for rows.Next() {
		var adminID string
		if err := rows.Scan(&adminID); err != nil {
			_ = rows.Close()
			return nil, err
		}
		admins[adminID] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if role != domain.RoleAdmin && admins[id] && len(admins) == 1 {
		return nil, ErrLastAdmin
	}

	user, err := scanUser(tx.QueryRowContext(ctx, `
		UPDATE users SET role = $2, updated_at = $3 WHERE user_id = $1
		RETURNING `+userColumns, id, role, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_sessions (session_token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_token) DO UPDATE
			SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
	`, session.Token, session.UserID, session.ExpiresAt, session.CreatedAt)
	return err
}

func (r *Repository) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	session := &domain.Session{}
	err := r.db.QueryRowContext(ctx, `
		SELECT session_token, user_id, expires_at, created_at
		FROM user_sessions WHERE session_token = $1
	`, token).Scan(&session.Token, &session.UserID, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_token = $1`, token)
	return err
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Picture, &user.Role,
		&user.Phone, &user.WhatsAppNumber, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
