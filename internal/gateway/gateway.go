// Package gateway is the console's only door to the moderation service: one
// method per REST endpoint, bearer credential attached when present, raw
// payloads pushed through the normalizer before anything else sees them.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"diary_console/internal/config"
	"diary_console/internal/domain/models"
	"diary_console/internal/lib/logger/sl"
	"diary_console/internal/metrics"
	"diary_console/internal/normalize"

	"golang.org/x/time/rate"
)

// TokenSource yields the current credential. A missing credential is not an
// error at this layer; authorization failures come back from the server.
type TokenSource interface {
	Token() (string, bool)
}

// ListQuery carries pagination and filter parameters for list endpoints.
// Zero Page/Limit mean "let the caller's defaults stand"; the store fills
// them from the collection's last-known window before calling here.
type ListQuery struct {
	Page    int
	Limit   int
	Keyword string
	Days    int
}

type Client struct {
	log        *slog.Logger
	httpclient *http.Client
	api        string
	tokens     TokenSource
	limiter    *rate.Limiter
	metrics    metrics.Recorder
}

func New(log *slog.Logger, cfg config.APIConfig, tokens TokenSource, rec metrics.Recorder) *Client {
	if rec == nil {
		rec = metrics.Noop{}
	}

	return &Client{
		log:        log,
		httpclient: &http.Client{Timeout: cfg.Timeout},
		api:        strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestsPer), cfg.Burst),
		metrics:    rec,
	}
}

// envelope is the standard response wrapper: {success, data, message}.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type rawLogin struct {
	Token     string `json:"token"`
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResult, error) {
	const op = "gateway.Login"

	body := map[string]string{"username": username, "password": password}
	data, err := c.call(ctx, http.MethodPost, "users/login", nil, body)
	if err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var raw rawLogin
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, &models.RemoteError{Message: "malformed login response"})
	}

	role := models.Role(raw.Role)
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	return models.LoginResult{
		Token: raw.Token,
		User: models.User{
			ID:        raw.ID,
			Username:  raw.Username,
			Nickname:  raw.Nickname,
			AvatarURL: raw.Avatar,
			Role:      role,
		},
	}, nil
}

func (c *Client) ListPending(ctx context.Context, q ListQuery) (models.DiaryPage, error) {
	return c.listDiaries(ctx, "gateway.ListPending", "admin/diaries/pending", q)
}

func (c *Client) ListApproved(ctx context.Context, q ListQuery) (models.DiaryPage, error) {
	return c.listDiaries(ctx, "gateway.ListApproved", "diaries", q)
}

func (c *Client) ListRejected(ctx context.Context, q ListQuery) (models.DiaryPage, error) {
	return c.listDiaries(ctx, "gateway.ListRejected", "admin/diaries/rejected", q)
}

func (c *Client) ListMyReviewed(ctx context.Context, q ListQuery) (models.DiaryPage, error) {
	return c.listDiaries(ctx, "gateway.ListMyReviewed", "admin/diaries/reviewed", q)
}

func (c *Client) GetDiary(ctx context.Context, id string) (models.Diary, error) {
	return c.diaryCall(ctx, "gateway.GetDiary", http.MethodGet, c.apipath("diaries", id), nil)
}

func (c *Client) Approve(ctx context.Context, id string) (models.Diary, error) {
	return c.diaryCall(ctx, "gateway.Approve", http.MethodPut, c.apipath("admin/diaries", id, "approve"), nil)
}

func (c *Client) Reject(ctx context.Context, id, reason string) (models.Diary, error) {
	body := map[string]string{"rejectReason": reason}
	return c.diaryCall(ctx, "gateway.Reject", http.MethodPut, c.apipath("admin/diaries", id, "reject"), body)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	const op = "gateway.Delete"

	if _, err := c.call(ctx, http.MethodDelete, c.apipath("admin/diaries", id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) AIReview(ctx context.Context, id string) (models.AISuggestion, error) {
	const op = "gateway.AIReview"

	data, err := c.call(ctx, http.MethodPost, c.apipath("admin/diaries", id, "ai-review"), nil, nil)
	if err != nil {
		return models.AISuggestion{}, fmt.Errorf("%s: %w", op, err)
	}

	var suggestion models.AISuggestion
	if err := json.Unmarshal(data, &suggestion); err != nil {
		return models.AISuggestion{}, fmt.Errorf("%s: %w", op, &models.RemoteError{Message: "malformed ai review response"})
	}

	return suggestion, nil
}

func (c *Client) listDiaries(ctx context.Context, op, path string, q ListQuery) (models.DiaryPage, error) {
	data, err := c.call(ctx, http.MethodGet, path, q.values(), nil)
	if err != nil {
		return models.DiaryPage{}, fmt.Errorf("%s: %w", op, err)
	}

	var raw normalize.RawPage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.DiaryPage{}, fmt.Errorf("%s: %w", op, &models.RemoteError{Message: "malformed list response"})
	}

	return normalize.Page(raw), nil
}

func (c *Client) diaryCall(ctx context.Context, op, method, path string, body any) (models.Diary, error) {
	data, err := c.call(ctx, method, path, nil, body)
	if err != nil {
		return models.Diary{}, fmt.Errorf("%s: %w", op, err)
	}

	return normalize.DiaryJSON(data), nil
}

// call performs one request and unwraps the response envelope. All failures
// surface as *models.RemoteError so callers can show the message verbatim.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	endpoint := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.RemoteError{Message: err.Error()}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &models.RemoteError{Message: "failed to encode request body"}
		}
		reader = bytes.NewReader(encoded)
	}

	target := c.api + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &models.RemoteError{Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpclient.Do(req)
	if err != nil {
		c.metrics.RecordRequestFailure(endpoint)
		c.log.Warn("request failed", slog.String("endpoint", endpoint), sl.Err(err))
		return nil, &models.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	c.metrics.RecordRequest(endpoint, resp.StatusCode, time.Since(start))

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.RemoteError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &models.RemoteError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		// endpoints without the {success,data} wrapper return the payload directly
		return payload, nil
	}

	if resp.StatusCode >= 400 || (env.Success != nil && !*env.Success) {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &models.RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	if env.Success != nil {
		return env.Data, nil
	}
	return payload, nil
}

func (c *Client) apipath(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed = append(trimmed, strings.Trim(p, "/"))
	}
	return strings.Join(trimmed, "/")
}

func (q ListQuery) values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Keyword != "" {
		values.Set("keyword", q.Keyword)
	}
	if q.Days > 0 {
		values.Set("days", strconv.Itoa(q.Days))
	}
	return values
}
