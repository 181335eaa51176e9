// Package session keeps the reviewer's credential between invocations. The
// token lives in a file, the console-side analog of the browser's local
// storage; role and expiry are read from unverified claims because the
// server is the one who verifies signatures.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"diary_console/internal/domain/models"
	"diary_console/internal/lib/jwt"
	"diary_console/internal/lib/logger/sl"
)

// Authenticator is the slice of the gateway the session needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (models.LoginResult, error)
}

// TokenFile stores the bearer token on disk. It satisfies the gateway's
// TokenSource.
type TokenFile struct {
	path string

	mu     sync.Mutex
	cached string
	loaded bool
}

func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

func (t *TokenFile) Token() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		data, err := os.ReadFile(t.path)
		if err == nil {
			t.cached = strings.TrimSpace(string(data))
		}
		t.loaded = true
	}

	if t.cached == "" {
		return "", false
	}
	return t.cached, true
}

func (t *TokenFile) Save(token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.WriteFile(t.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("session.TokenFile.Save: %w", err)
	}
	t.cached = token
	t.loaded = true
	return nil
}

func (t *TokenFile) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cached = ""
	t.loaded = true
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session.TokenFile.Clear: %w", err)
	}
	return nil
}

type Service struct {
	log    *slog.Logger
	tokens *TokenFile
	auth   Authenticator
}

func New(log *slog.Logger, tokens *TokenFile, auth Authenticator) *Service {
	return &Service{log: log, tokens: tokens, auth: auth}
}

// Login authenticates against the service and persists the token.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, error) {
	const op = "session.Login"
	log := s.log.With(slog.String("op", op), slog.String("username", username))

	log.Info("attempting to login")

	result, err := s.auth.Login(ctx, username, password)
	if err != nil {
		log.Warn("login failed", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.Save(result.Token); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logged in", slog.String("role", string(result.User.Role)))
	return result.User, nil
}

// Logout drops the stored credential.
func (s *Service) Logout() error {
	const op = "session.Logout"

	if err := s.tokens.Clear(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("logged out", slog.String("op", op))
	return nil
}

// IsAuthenticated reports whether a usable credential is present and who it
// belongs to. An expired or garbled token reads as "not logged in"; it is
// not an error.
func (s *Service) IsAuthenticated() (models.User, bool) {
	token, ok := s.tokens.Token()
	if !ok {
		return models.User{}, false
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return models.User{}, false
	}

	return models.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Nickname: claims.Nickname,
		Role:     claims.Role,
	}, true
}

// RequireAdmin returns the authenticated admin user or an error suitable for
// direct display.
func (s *Service) RequireAdmin() (models.User, error) {
	user, ok := s.IsAuthenticated()
	if !ok {
		return models.User{}, models.ErrNotAuthenticated
	}
	if user.Role != models.RoleAdmin {
		return models.User{}, &models.ValidationError{Field: "role", Message: "admin role required"}
	}
	return user, nil
}
