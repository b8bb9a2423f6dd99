package bug

import (
	"context"
	"fmt"
	"time"

	domain "github.com/example/bugtracker-chat/domain/bug"
	"github.com/example/bugtracker-chat/modules/cache"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const listAllKey = "all"

// Service provides bug operations with cache-aside reads.
type Service struct {
	repo    *Repository
	cache   cache.CacheService
	sfGroup singleflight.Group
	logger  types.Logger
	now     func() time.Time
}

// NewService creates a bug service. A nil cache disables caching.
func NewService(repo *Repository, c cache.CacheService, logger types.Logger) *Service {
	if c == nil {
		c = noopCache{}
	}
	return &Service{
		repo:   repo,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

func cacheKeyByID(id string) string {
	return "bug:id:" + id
}

func cacheKeyList(status domain.Status) string {
	if status == "" {
		return "bug:list:" + listAllKey
	}
	return "bug:list:" + string(status)
}

// Create validates and stores a new bug.
func (s *Service) Create(ctx context.Context, req CreateBugRequest) (*domain.Bug, error) {
	now := s.now().UTC()
	b := &domain.Bug{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Reporter:    req.Reporter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.invalidateLists(ctx)
	s.logger.Info("Bug created", "id", b.ID, "priority", b.Priority)
	return b, nil
}

// Get returns a bug by ID, reading through the cache.
func (s *Service) Get(ctx context.Context, id string) (*domain.Bug, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidBug)
	}
	key := cacheKeyByID(id)

	var cached domain.Bug
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	}
	if found {
		return &cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	b := val.(*domain.Bug)

	if err := s.cache.Set(ctx, key, b); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return b, nil
}

// List returns bugs, optionally filtered by status, reading through the cache.
func (s *Service) List(ctx context.Context, status domain.Status) ([]domain.Bug, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: status must be one of open, in-progress, resolved", domain.ErrInvalidBug)
	}
	key := cacheKeyList(status)

	var cached []domain.Bug
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	}
	if found {
		return cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		return s.repo.List(ctx, status)
	})
	if err != nil {
		return nil, err
	}
	bugs := val.([]domain.Bug)

	if err := s.cache.Set(ctx, key, bugs); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return bugs, nil
}

// Update applies a partial update and invalidates cached reads.
func (s *Service) Update(ctx context.Context, req UpdateBugRequest) (*domain.Bug, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidBug)
	}

	b, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Status != nil {
		b.Status = *req.Status
	}
	if req.Priority != nil {
		b.Priority = *req.Priority
	}
	if req.Reporter != nil {
		b.Reporter = *req.Reporter
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, b); err != nil {
		return nil, err
	}

	s.invalidate(ctx, b.ID)
	s.logger.Info("Bug updated", "id", b.ID, "status", b.Status)
	return b, nil
}

// Delete removes a bug and invalidates cached reads.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidBug)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("Bug deleted", "id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cacheKeyByID(id)); err != nil {
		s.logger.Warn("Cache invalidation failed", "id", id, "error", err)
	}
	s.invalidateLists(ctx)
}

func (s *Service) invalidateLists(ctx context.Context) {
	keys := []string{
		cacheKeyList(""),
		cacheKeyList(domain.StatusOpen),
		cacheKeyList(domain.StatusInProgress),
		cacheKeyList(domain.StatusResolved),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Cache invalidation failed", "keys", keys, "error", err)
	}
}

// noopCache is used when no cache plugin is registered.
type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error)               { return false, nil }
func (noopCache) Set(context.Context, string, any) error                       { return nil }
func (noopCache) SetWithTTL(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                      { return nil }
func (noopCache) Close() error                                                 { return nil }
