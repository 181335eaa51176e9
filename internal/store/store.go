// Package store holds the review-state synchronization core: four paginated
// diary collections that must stay mutually consistent while approve, reject
// and delete move records between them.
//
// Consistency rules:
//   - a fetch replaces a collection's page wholesale; a failed fetch keeps
//     the last good items and only records the error
//   - every mutation is applied as one transition across all affected
//     collections, and only after the remote call fully succeeded
//   - local totals are not decremented by mutations; the next fetch
//     reconciles them against server truth
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"diary_console/internal/config"
	"diary_console/internal/domain/models"
	"diary_console/internal/gateway"
	"diary_console/internal/lib/logger/sl"
	"diary_console/internal/metrics"

	"github.com/go-playground/validator/v10"
	cache "github.com/patrickmn/go-cache"
)

// Gateway is everything the store needs from the remote moderation service.
type Gateway interface {
	ListPending(ctx context.Context, q gateway.ListQuery) (models.DiaryPage, error)
	ListApproved(ctx context.Context, q gateway.ListQuery) (models.DiaryPage, error)
	ListRejected(ctx context.Context, q gateway.ListQuery) (models.DiaryPage, error)
	ListMyReviewed(ctx context.Context, q gateway.ListQuery) (models.DiaryPage, error)
	GetDiary(ctx context.Context, id string) (models.Diary, error)
	Approve(ctx context.Context, id string) (models.Diary, error)
	Reject(ctx context.Context, id, reason string) (models.Diary, error)
	Delete(ctx context.Context, id string) error
	AIReview(ctx context.Context, id string) (models.AISuggestion, error)
}

// FetchParams select the page window for one collection. Zero fields fall
// back to the collection's last-known window, which gives refresh semantics
// for free.
type FetchParams struct {
	Page    int    `validate:"omitempty,gte=1"`
	Limit   int    `validate:"omitempty,gte=1,lte=100"`
	Keyword string `validate:"omitempty,max=200"`
	Days    int    `validate:"omitempty,gte=1,lte=365"`
}

type rejectInput struct {
	Reason string `validate:"required"`
}

type Store struct {
	log      *slog.Logger
	gw       Gateway
	validate *validator.Validate
	metrics  metrics.Recorder

	mu          sync.Mutex
	collections map[models.CollectionName]*models.CollectionSnapshot
	current     *models.Diary
	currentErr  string
	currentBusy bool
	inflight    map[string]struct{}

	suggestions *cache.Cache
}

func New(log *slog.Logger, gw Gateway, rec metrics.Recorder, defaults config.DefaultsConfig, suggestionTTL time.Duration) *Store {
	if rec == nil {
		rec = metrics.Noop{}
	}

	collections := make(map[models.CollectionName]*models.CollectionSnapshot)
	for _, name := range models.Collections() {
		collections[name] = &models.CollectionSnapshot{
			Items: []models.Diary{},
			Page:  defaults.Page,
			Limit: defaults.Limit,
		}
	}
	return &Store{
		log:         log,
		gw:          gw,
		validate:    validator.New(),
		metrics:     rec,
		collections: collections,
		inflight:    make(map[string]struct{}),
		suggestions: cache.New(suggestionTTL, suggestionTTL),
	}
}

// Collection returns a copy of one collection's observable state.
func (s *Store) Collection(name models.CollectionName) (models.CollectionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return models.CollectionSnapshot{}, fmt.Errorf("store.Collection: %w: %s", models.ErrUnknownCollection, name)
	}

	snap := *col
	snap.Items = append([]models.Diary(nil), col.Items...)
	return snap, nil
}

// CurrentDiary returns the diary currently open for inspection, if any.
func (s *Store) CurrentDiary() (models.Diary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.Diary{}, false
	}
	return *s.current, true
}

// OperationLoading reports whether any mutating call is in flight. Advisory
// only; the per-id in-flight set is what actually prevents double submission.
func (s *Store) OperationLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) > 0
}

// Fetch loads one page of a collection and replaces its contents wholesale.
// On failure the previous items stay visible and only the error field is set.
func (s *Store) Fetch(ctx context.Context, name models.CollectionName, params FetchParams) error {
	const op = "store.Fetch"
	log := s.log.With(slog.String("op", op), slog.String("collection", string(name)))

	if err := s.validate.Struct(params); err != nil {
		return fmt.Errorf("%s: %w", op, &models.ValidationError{Field: "params", Message: err.Error()})
	}

	s.mu.Lock()
	col, ok := s.collections[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %s", op, models.ErrUnknownCollection, name)
	}

	query := gateway.ListQuery{
		Page:    params.Page,
		Limit:   params.Limit,
		Keyword: params.Keyword,
		Days:    params.Days,
	}
	if query.Page == 0 {
		query.Page = col.Page
	}
	if query.Limit == 0 {
		query.Limit = col.Limit
	}

	col.Loading = true
	col.Error = ""
	s.mu.Unlock()

	page, err := s.list(ctx, name, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	col.Loading = false
	if err != nil {
		col.Error = remoteMessage(err)
		log.Warn("fetch failed, keeping previous items", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	col.Items = page.Items
	col.Page = page.Page
	col.Limit = page.Limit
	col.Total = page.Total
	col.TotalPages = page.TotalPages

	log.Info("collection replaced",
		slog.Int("count", len(page.Items)),
		slog.Int("page", page.Page),
		slog.Int("total", page.Total),
	)

	return nil
}

func (s *Store) list(ctx context.Context, name models.CollectionName, q gateway.ListQuery) (models.DiaryPage, error) {
	switch name {
	case models.CollectionPending:
		return s.gw.ListPending(ctx, q)
	case models.CollectionApproved:
		return s.gw.ListApproved(ctx, q)
	case models.CollectionRejected:
		return s.gw.ListRejected(ctx, q)
	case models.CollectionMyReviewed:
		return s.gw.ListMyReviewed(ctx, q)
	default:
		return models.DiaryPage{}, models.ErrUnknownCollection
	}
}

// FetchDiary loads a single diary into the current-diary slot.
func (s *Store) FetchDiary(ctx context.Context, id string) (models.Diary, error) {
	const op = "store.FetchDiary"
	log := s.log.With(slog.String("op", op), slog.String("diary_id", id))

	s.mu.Lock()
	s.currentBusy = true
	s.currentErr = ""
	s.mu.Unlock()

	diary, err := s.gw.GetDiary(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentBusy = false
	if err != nil {
		s.currentErr = remoteMessage(err)
		log.Warn("failed to fetch diary", sl.Err(err))
		return models.Diary{}, fmt.Errorf("%s: %w", op, err)
	}

	s.current = &diary
	return diary, nil
}

// Approve moves a diary from pending to approved. The server-returned record
// is prepended to the approved collection; pending totals are left for the
// next fetch to reconcile.
func (s *Store) Approve(ctx context.Context, id string) (models.Diary, error) {
	const op = "store.Approve"
	log := s.log.With(slog.String("op", op), slog.String("diary_id", id))

	if err := s.beginOperation(id); err != nil {
		return models.Diary{}, fmt.Errorf("%s: %w", op, err)
	}
	defer s.endOperation(id)

	log.Info("approving diary")

	approved, err := s.gw.Approve(ctx, id)
	if err != nil {
		s.metrics.RecordAction("approve", "failure")
		log.Error("approve failed", sl.Err(err))
		return models.Diary{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.applyApprove(id, approved)
	s.mu.Unlock()

	s.metrics.RecordAction("approve", "success")
	log.Info("diary approved")

	return approved, nil
}

// Reject removes a diary from pending. The rejected archive is not patched
// locally; it is refreshed by an explicit fetch so the server-formatted
// reject reason and timestamp stay canonical.
func (s *Store) Reject(ctx context.Context, id, reason string) (models.Diary, error) {
	const op = "store.Reject"
	log := s.log.With(slog.String("op", op), slog.String("diary_id", id))

	if err := s.validate.Struct(rejectInput{Reason: strings.TrimSpace(reason)}); err != nil {
		return models.Diary{}, fmt.Errorf("%s: %w", op, &models.ValidationError{
			Field:   "rejectReason",
			Message: "reject reason is required",
		})
	}

	if err := s.beginOperation(id); err != nil {
		return models.Diary{}, fmt.Errorf("%s: %w", op, err)
	}
	defer s.endOperation(id)

	log.Info("rejecting diary")

	rejected, err := s.gw.Reject(ctx, id, reason)
	if err != nil {
		s.metrics.RecordAction("reject", "failure")
		log.Error("reject failed", sl.Err(err))
		return models.Diary{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.applyReject(id, rejected)
	s.mu.Unlock()

	s.metrics.RecordAction("reject", "success")
	log.Info("diary rejected")

	return rejected, nil
}

// Delete removes a diary from every collection that holds it and clears the
// current-diary slot when it was the one being inspected.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "store.Delete"
	log := s.log.With(slog.String("op", op), slog.String("diary_id", id))

	if err := s.beginOperation(id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.endOperation(id)

	log.Info("deleting diary")

	if err := s.gw.Delete(ctx, id); err != nil {
		s.metrics.RecordAction("delete", "failure")
		log.Error("delete failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.applyDelete(id)
	s.mu.Unlock()

	s.metrics.RecordAction("delete", "success")
	log.Info("diary deleted")

	return nil
}

// AIReview asks the service for an advisory suggestion and caches it under
// the diary's id, so a stale suggestion can never show up against another
// diary.
func (s *Store) AIReview(ctx context.Context, id string) (models.AISuggestion, error) {
	const op = "store.AIReview"
	log := s.log.With(slog.String("op", op), slog.String("diary_id", id))

	suggestion, err := s.gw.AIReview(ctx, id)
	if err != nil {
		log.Warn("ai review failed", sl.Err(err))
		return models.AISuggestion{}, fmt.Errorf("%s: %w", op, err)
	}

	s.suggestions.SetDefault(id, suggestion)
	log.Info("ai suggestion cached", slog.Bool("approved", suggestion.Approved))

	return suggestion, nil
}

// Suggestion returns the cached advisory suggestion for a diary, if any.
func (s *Store) Suggestion(id string) (models.AISuggestion, bool) {
	v, ok := s.suggestions.Get(id)
	if !ok {
		return models.AISuggestion{}, false
	}
	return v.(models.AISuggestion), true
}

// applyApprove is the single atomic transition for a successful approve:
// out of pending, onto the front of approved, current slot refreshed.
func (s *Store) applyApprove(id string, approved models.Diary) {
	pending := s.collections[models.CollectionPending]
	pending.Items = removeByID(pending.Items, id)

	col := s.collections[models.CollectionApproved]
	col.Items = append([]models.Diary{approved}, removeByID(col.Items, id)...)

	if s.current != nil && s.current.ID == id {
		s.current = &approved
	}
}

func (s *Store) applyReject(id string, rejected models.Diary) {
	pending := s.collections[models.CollectionPending]
	pending.Items = removeByID(pending.Items, id)

	if s.current != nil && s.current.ID == id {
		s.current = &rejected
	}
}

func (s *Store) applyDelete(id string) {
	for _, col := range s.collections {
		col.Items = removeByID(col.Items, id)
	}

	if s.current != nil && s.current.ID == id {
		s.current = nil
	}

	s.suggestions.Delete(id)
}

// beginOperation registers a mutating call for a diary id. At most one
// mutation per id may be in flight.
func (s *Store) beginOperation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return models.ErrOperationInFlight
	}
	s.inflight[id] = struct{}{}
	return nil
}

func (s *Store) endOperation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func removeByID(items []models.Diary, id string) []models.Diary {
	out := items[:0:len(items)]
	for _, d := range items {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

func remoteMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
