package usecases

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/core/ports"
)

// sessionTTL is how long an admin session stays valid.
const sessionTTL = 24 * time.Hour

// AuthService issues and validates admin sessions. There is a single admin
// identity configured out of band; this service is deliberately thin — the
// surrounding application treats authentication as a collaborator, not a
// feature.
type AuthService struct {
	sessions ports.SessionRepository
	cache    ports.CacheService

	adminUser     string
	adminPassHash [32]byte // sha256 of the configured password
}

// NewAuthService creates a new AuthService. passwordHashHex is the sha256
// hex digest of the admin password from configuration.
func NewAuthService(sessions ports.SessionRepository, cache ports.CacheService, adminUser, passwordHashHex string) (*AuthService, error) {
	raw, err := hex.DecodeString(passwordHashHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("auth: admin password hash must be a sha256 hex digest")
	}
	s := &AuthService{sessions: sessions, cache: cache, adminUser: adminUser}
	copy(s.adminPassHash[:], raw)
	return s, nil
}

// Login validates credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, user, password string) (*domain.Session, error) {
	given := sha256.Sum256([]byte(password))
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.adminUser)) == 1
	passOK := subtle.ConstantTimeCompare(given[:], s.adminPassHash[:]) == 1
	if !userOK || !passOK {
		return nil, fmt.Errorf("invalid credentials")
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	session := &domain.Session{
		Token:     token,
		UserID:    user,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Validate returns the session for a token, or an error when the token is
// unknown or expired. Valid sessions are cached briefly so bursts of admin
// requests hit the store once.
func (s *AuthService) Validate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("missing session token")
	}

	cacheKey := "session:" + token
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var session domain.Session
			if err := json.Unmarshal(data, &session); err == nil && time.Now().Before(session.ExpiresAt) {
				return &session, nil
			}
		}
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, fmt.Errorf("session expired")
	}

	if s.cache != nil {
		if data, err := json.Marshal(session); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return session, nil
}

// Logout invalidates a session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "session:"+token)
	}
	return s.sessions.Delete(ctx, token)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
