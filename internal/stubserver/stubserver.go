// Package stubserver is an in-memory stand-in for the moderation backend.
// Gateway tests run against it, and the `stub` command serves it for offline
// demos. It is tooling, not the product backend: the real service stays
// authoritative.
package stubserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"diary_console/internal/domain/models"
	libjwt "diary_console/internal/lib/jwt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const tokenTTL = 24 * time.Hour

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type account struct {
	user     models.User
	password string
}

type record struct {
	diary      models.Diary
	reviewedBy string
	reviewedAt time.Time
}

// Server holds the fake moderation state behind an echo instance.
type Server struct {
	secret string

	mu       sync.Mutex
	accounts map[string]account
	diaries  map[string]*record
	order    []string
}

func New(secret string) *Server {
	return &Server{
		secret:   secret,
		accounts: make(map[string]account),
		diaries:  make(map[string]*record),
	}
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(username, password, nickname string, role models.Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.accounts[username] = account{
		user: models.User{
			ID:        id,
			Username:  username,
			Nickname:  nickname,
			Role:      role,
			CreatedAt: time.Now(),
		},
		password: password,
	}
	return id
}

// AddDiary seeds a diary and returns its id.
func (s *Server) AddDiary(d models.Diary) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = models.StatusPending
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}

	s.diaries[d.ID] = &record{diary: d}
	s.order = append(s.order, d.ID)
	return d.ID
}

// Handler builds the echo instance serving the fake API under /api.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	api := e.Group("/api")
	api.POST("/users/login", s.login)
	api.GET("/diaries", s.listApproved)
	api.GET("/diaries/:id", s.getDiary)

	admin := api.Group("/admin", s.requireAdmin)
	admin.GET("/diaries/pending", s.listPending)
	admin.GET("/diaries/rejected", s.listRejected)
	admin.GET("/diaries/reviewed", s.listReviewed)
	admin.PUT("/diaries/:id/approve", s.approve)
	admin.PUT("/diaries/:id/reject", s.reject)
	admin.DELETE("/diaries/:id", s.remove)
	admin.POST("/diaries/:id/ai-review", s.aiReview)

	return e
}

func (s *Server) login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response{Message: "invalid request"})
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()

	if !ok || acc.password != req.Password {
		return c.JSON(http.StatusUnauthorized, response{Message: "invalid credentials"})
	}

	token, err := libjwt.NewToken(acc.user, s.secret, tokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, response{Message: "failed to issue token"})
	}

	return c.JSON(http.StatusOK, response{Success: true, Data: map[string]any{
		"token":     token,
		"_id":       acc.user.ID,
		"username":  acc.user.Username,
		"nickname":  acc.user.Nickname,
		"avatar":    acc.user.AvatarURL,
		"role":      string(acc.user.Role),
		"createdAt": acc.user.CreatedAt.Format(time.RFC3339),
	}})
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return c.JSON(http.StatusUnauthorized, response{Message: "missing credential"})
		}

		claims, err := libjwt.Parse(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, response{Message: "invalid credential"})
		}
		if claims.Role != models.RoleAdmin {
			return c.JSON(http.StatusForbidden, response{Message: "admin role required"})
		}

		c.Set("uid", claims.UserID)
		return next(c)
	}
}

func (s *Server) listPending(c echo.Context) error {
	return s.listByStatus(c, models.StatusPending, "")
}

func (s *Server) listApproved(c echo.Context) error {
	return s.listByStatus(c, models.StatusApproved, c.QueryParam("keyword"))
}

func (s *Server) listRejected(c echo.Context) error {
	return s.listByStatus(c, models.StatusRejected, c.QueryParam("keyword"))
}

func (s *Server) listReviewed(c echo.Context) error {
	uid, _ := c.Get("uid").(string)

	days := 7
	if v, err := strconv.Atoi(c.QueryParam("days")); err == nil && v > 0 {
		days = v
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	s.mu.Lock()
	matched := make([]*record, 0)
	for _, id := range s.order {
		rec := s.diaries[id]
		if rec.reviewedBy == uid && rec.reviewedAt.After(cutoff) {
			matched = append(matched, rec)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].reviewedAt.After(matched[j].reviewedAt)
	})

	return s.paginated(c, matched)
}

func (s *Server) listByStatus(c echo.Context, status models.DiaryStatus, keyword string) error {
	s.mu.Lock()
	matched := make([]*record, 0)
	for _, id := range s.order {
		rec := s.diaries[id]
		if rec.diary.Status != status {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(rec.diary.Title), strings.ToLower(keyword)) {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.Unlock()

	return s.paginated(c, matched)
}

func (s *Server) paginated(c echo.Context, matched []*record) error {
	page := 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	limit := 10
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}

	total := len(matched)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	items := make([]map[string]any, 0, end-start)
	for _, rec := range matched[start:end] {
		items = append(items, wireDiary(rec.diary))
	}

	return c.JSON(http.StatusOK, response{Success: true, Data: map[string]any{
		"items":      items,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	}})
}

func (s *Server) getDiary(c echo.Context) error {
	s.mu.Lock()
	rec, ok := s.diaries[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, response{Message: "diary not found"})
	}
	return c.JSON(http.StatusOK, response{Success: true, Data: wireDiary(rec.diary)})
}

func (s *Server) approve(c echo.Context) error {
	return s.review(c, models.StatusApproved, "")
}

func (s *Server) reject(c echo.Context) error {
	var req struct {
		RejectReason string `json:"rejectReason"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RejectReason) == "" {
		return c.JSON(http.StatusBadRequest, response{Message: "reject reason is required"})
	}
	return s.review(c, models.StatusRejected, req.RejectReason)
}

func (s *Server) review(c echo.Context, status models.DiaryStatus, reason string) error {
	uid, _ := c.Get("uid").(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.diaries[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, response{Message: "diary not found"})
	}
	if rec.diary.Status != models.StatusPending {
		return c.JSON(http.StatusConflict, response{Message: "diary is not pending review"})
	}

	rec.diary.Status = status
	rec.diary.RejectReason = reason
	rec.diary.UpdatedAt = time.Now()
	rec.reviewedBy = uid
	rec.reviewedAt = rec.diary.UpdatedAt

	return c.JSON(http.StatusOK, response{Success: true, Data: wireDiary(rec.diary)})
}

func (s *Server) remove(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.diaries[id]; !ok {
		return c.JSON(http.StatusNotFound, response{Message: "diary not found"})
	}

	delete(s.diaries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return c.JSON(http.StatusOK, response{Success: true})
}

// aiReview plays the advisory model with a trivial heuristic: thin content
// or no media reads as rejectable.
func (s *Server) aiReview(c echo.Context) error {
	s.mu.Lock()
	rec, ok := s.diaries[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, response{Message: "diary not found"})
	}

	suggestion := models.AISuggestion{Approved: true, Reason: "content looks complete"}
	switch {
	case len([]rune(rec.diary.Content)) < 20:
		suggestion = models.AISuggestion{Approved: false, Reason: "content is too short"}
	case len(rec.diary.Images) == 0 && rec.diary.VideoURL == "":
		suggestion = models.AISuggestion{Approved: false, Reason: "no images or video attached"}
	}

	return c.JSON(http.StatusOK, response{Success: true, Data: suggestion})
}

// wireDiary emits the backend's Mongo-flavored shape (`_id`, `video`,
// author `avatar`) so clients exercise their normalization path.
func wireDiary(d models.Diary) map[string]any {
	out := map[string]any{
		"_id":       d.ID,
		"title":     d.Title,
		"content":   d.Content,
		"images":    d.Images,
		"status":    string(d.Status),
		"createdAt": d.CreatedAt.Format(time.RFC3339),
		"updatedAt": d.UpdatedAt.Format(time.RFC3339),
		"author": map[string]any{
			"_id":      d.Author.ID,
			"username": d.Author.Username,
			"nickname": d.Author.Nickname,
			"avatar":   d.Author.AvatarURL,
		},
	}
	if d.VideoURL != "" {
		out["video"] = d.VideoURL
	}
	if d.RejectReason != "" {
		out["rejectReason"] = d.RejectReason
	}
	return out
}
