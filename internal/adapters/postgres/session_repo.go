package postgres

import (
	"context"
	"fmt"

	"github.com/mvarga/waylog/internal/core/domain"
)

// SessionRepo implements ports.SessionRepository with pgx.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create persists a session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, s.Token, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

// GetByToken returns a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	s := &domain.Session{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT token, user_id, created_at, expires_at
		FROM sessions WHERE token = $1
	`, token).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}
