package session_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"diary_console/internal/domain/models"
	libjwt "diary_console/internal/lib/jwt"
	"diary_console/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (models.LoginResult, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(models.LoginResult), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mintToken(t *testing.T, role models.Role, ttl time.Duration) string {
	t.Helper()

	token, err := libjwt.NewToken(models.User{
		ID:       "u1",
		Username: "admin",
		Nickname: "Reviewer",
		Role:     role,
	}, "secret", ttl)
	require.NoError(t, err)
	return token
}

func TestTokenFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	tf := session.NewTokenFile(path)

	_, ok := tf.Token()
	assert.False(t, ok, "empty before save")

	require.NoError(t, tf.Save("tok-123"))

	// a fresh instance reads the same file
	again := session.NewTokenFile(path)
	token, ok := again.Token()
	require.True(t, ok)
	assert.Equal(t, "tok-123", token)

	require.NoError(t, tf.Clear())
	_, ok = tf.Token()
	assert.False(t, ok)

	// clearing an already-missing file is not an error
	require.NoError(t, tf.Clear())
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	tf := session.NewTokenFile(filepath.Join(t.TempDir(), "token"))
	auth := new(MockAuthenticator)
	svc := session.New(testLogger(), tf, auth)

	token := mintToken(t, models.RoleAdmin, time.Hour)
	auth.On("Login", ctx, "admin", "admin123").
		Return(models.LoginResult{
			Token: token,
			User:  models.User{ID: "u1", Username: "admin", Role: models.RoleAdmin},
		}, nil).Once()

	user, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	stored, ok := tf.Token()
	require.True(t, ok)
	assert.Equal(t, token, stored)

	auth.AssertExpectations(t)
}

func TestService_Login_Failure(t *testing.T) {
	ctx := context.Background()
	tf := session.NewTokenFile(filepath.Join(t.TempDir(), "token"))
	auth := new(MockAuthenticator)
	svc := session.New(testLogger(), tf, auth)

	auth.On("Login", ctx, "admin", "wrong").
		Return(models.LoginResult{}, &models.RemoteError{StatusCode: 401, Message: "invalid credentials"}).Once()

	_, err := svc.Login(ctx, "admin", "wrong")
	require.Error(t, err)
	assert.True(t, models.IsRemote(err))

	_, ok := tf.Token()
	assert.False(t, ok, "failed login stores nothing")
}

func TestService_IsAuthenticated(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantOK   bool
		wantRole models.Role
	}{
		{name: "valid admin token", token: "", wantOK: true, wantRole: models.RoleAdmin},
		{name: "expired token", token: "expired", wantOK: false},
		{name: "garbage token", token: "not.a.jwt", wantOK: false},
		{name: "no token", token: "none", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := session.NewTokenFile(filepath.Join(t.TempDir(), "token"))

			switch tt.token {
			case "":
				require.NoError(t, tf.Save(mintToken(t, models.RoleAdmin, time.Hour)))
			case "expired":
				require.NoError(t, tf.Save(mintToken(t, models.RoleAdmin, -time.Hour)))
			case "none":
				// leave the file absent
			default:
				require.NoError(t, tf.Save(tt.token))
			}

			svc := session.New(testLogger(), tf, new(MockAuthenticator))
			user, ok := svc.IsAuthenticated()

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRole, user.Role)
				assert.Equal(t, "admin", user.Username)
			}
		})
	}
}

func TestService_RequireAdmin(t *testing.T) {
	tf := session.NewTokenFile(filepath.Join(t.TempDir(), "token"))
	svc := session.New(testLogger(), tf, new(MockAuthenticator))

	_, err := svc.RequireAdmin()
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)

	require.NoError(t, tf.Save(mintToken(t, models.RoleUser, time.Hour)))
	_, err = svc.RequireAdmin()
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	require.NoError(t, tf.Save(mintToken(t, models.RoleAdmin, time.Hour)))
	user, err := svc.RequireAdmin()
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}
