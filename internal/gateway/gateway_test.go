package gateway_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"diary_console/internal/config"
	"diary_console/internal/domain/models"
	"diary_console/internal/gateway"
	"diary_console/internal/stubserver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct {
	token string
}

func (s *staticToken) Token() (string, bool) {
	return s.token, s.token != ""
}

type fixture struct {
	client *gateway.Client
	token  *staticToken
	server *stubserver.Server

	pendingID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := stubserver.New("test-secret")
	srv.AddUser("admin", "admin123", "Reviewer", models.RoleAdmin)
	srv.AddUser("alice", "alice123", "Alice", models.RoleUser)

	pendingID := srv.AddDiary(models.Diary{
		Title:   "雨崩徒步三日",
		Content: "从西当村出发，翻过南宗垭口，雪山就在眼前。",
		Images:  []string{"https://img.example.com/1.jpg"},
		Author:  models.Author{ID: "u1", Username: "alice", Nickname: "Alice"},
	})
	srv.AddDiary(models.Diary{
		Title:   "Kyoto in three days",
		Content: "Fushimi Inari before sunrise beats the crowds entirely.",
		Status:  models.StatusApproved,
		Images:  []string{"https://img.example.com/2.jpg"},
		Author:  models.Author{ID: "u1", Username: "alice", Nickname: "Alice"},
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	token := &staticToken{}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := gateway.New(log, config.APIConfig{
		BaseURL:     ts.URL + "/api",
		Timeout:     5 * time.Second,
		RequestsPer: time.Millisecond,
		Burst:       100,
	}, token, nil)

	return &fixture{client: client, token: token, server: srv, pendingID: pendingID}
}

func (f *fixture) loginAdmin(t *testing.T) {
	t.Helper()

	result, err := f.client.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	f.token.token = result.Token
}

func TestClient_Login(t *testing.T) {
	f := newFixture(t)

	result, err := f.client.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.RoleAdmin, result.User.Role)
	assert.Equal(t, "admin", result.User.Username)

	_, err = f.client.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)

	var re *models.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 401, re.StatusCode)
	assert.Equal(t, "invalid credentials", re.Message)
}

func TestClient_ListPending(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	page, err := f.client.ListPending(context.Background(), gateway.ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	got := page.Items[0]
	assert.Equal(t, f.pendingID, got.ID, "mongo _id normalized to id")
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "Alice", got.Author.Nickname)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestClient_ListPending_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	// no credential at all
	_, err := f.client.ListPending(context.Background(), gateway.ListQuery{})
	var re *models.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 401, re.StatusCode)

	// non-admin credential
	result, err := f.client.Login(context.Background(), "alice", "alice123")
	require.NoError(t, err)
	f.token.token = result.Token

	_, err = f.client.ListPending(context.Background(), gateway.ListQuery{})
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 403, re.StatusCode)
	assert.Equal(t, "admin role required", re.Message)
}

func TestClient_ApproveRejectDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.loginAdmin(t)

	approved, err := f.client.Approve(ctx, f.pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	// a second approve hits the not-pending conflict
	_, err = f.client.Approve(ctx, f.pendingID)
	var re *models.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 409, re.StatusCode)

	// reviewed history now contains the diary for this reviewer
	history, err := f.client.ListMyReviewed(ctx, gateway.ListQuery{Days: 7})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.Equal(t, f.pendingID, history.Items[0].ID)

	require.NoError(t, f.client.Delete(ctx, f.pendingID))

	_, err = f.client.GetDiary(ctx, f.pendingID)
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 404, re.StatusCode)
	assert.Equal(t, "diary not found", re.Message)
}

func TestClient_Reject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.loginAdmin(t)

	rejected, err := f.client.Reject(ctx, f.pendingID, "blurry images")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "blurry images", rejected.RejectReason)

	page, err := f.client.ListRejected(ctx, gateway.ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, f.pendingID, page.Items[0].ID)
}

func TestClient_ListApproved_Keyword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	page, err := f.client.ListApproved(ctx, gateway.ListQuery{Keyword: "kyoto"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Kyoto in three days", page.Items[0].Title)

	page, err = f.client.ListApproved(ctx, gateway.ListQuery{Keyword: "nomatch"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestClient_AIReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.loginAdmin(t)

	suggestion, err := f.client.AIReview(ctx, f.pendingID)
	require.NoError(t, err)
	assert.True(t, suggestion.Approved)

	thin := f.server.AddDiary(models.Diary{
		Title:   "test",
		Content: "short",
		Author:  models.Author{ID: "u1", Username: "alice"},
	})
	suggestion, err = f.client.AIReview(ctx, thin)
	require.NoError(t, err)
	assert.False(t, suggestion.Approved)
	assert.NotEmpty(t, suggestion.Reason)
}

func TestClient_TransportFailure(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := gateway.New(log, config.APIConfig{
		BaseURL:     "http://127.0.0.1:1", // nothing listens here
		Timeout:     time.Second,
		RequestsPer: time.Millisecond,
		Burst:       10,
	}, &staticToken{}, nil)

	_, err := client.ListApproved(context.Background(), gateway.ListQuery{})
	require.Error(t, err)
	assert.True(t, models.IsRemote(err), "transport failures classify as remote errors")
}
