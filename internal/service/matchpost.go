package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matchpost/matchpost/internal/cache"
	"github.com/matchpost/matchpost/internal/metrics"
	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/internal/repository"
)

// MatchPostStore is the persistence surface MatchPostService needs.
// *repository.Repository implements it.
type MatchPostStore interface {
	CreateMatchPost(ctx context.Context, post *model.MatchPost) error
	GetMatchPostByID(ctx context.Context, id int64) (*model.MatchPost, error)
	ListMatchPosts(ctx context.Context, filter model.MatchPostFilter) ([]*model.MatchPost, error)
	UpdateMatchPost(ctx context.Context, id int64, patch model.MatchPostPatch, now time.Time) (*model.MatchPost, error)
	DeleteMatchPost(ctx context.Context, id int64) (bool, error)
}

// MatchPostCache is the read-through cache for single posts.
// *cache.Cache implements it.
type MatchPostCache interface {
	GetMatchPost(ctx context.Context, id int64) (*model.MatchPost, error)
	SetMatchPost(ctx context.Context, post *model.MatchPost, ttl time.Duration) error
	EvictMatchPost(ctx context.Context, id int64) error
	MarkMatchPostDeleted(ctx context.Context, id int64) error
	IsNegativelyCached(ctx context.Context, id int64) (bool, error)
	SetNegativeCache(ctx context.Context, id int64) error
}

// OwnerLookup resolves post owners. *UserService implements it.
type OwnerLookup interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// MatchPostService handles match post business logic.
type MatchPostService struct {
	posts    MatchPostStore
	owners   OwnerLookup
	cache    MatchPostCache
	cacheTTL time.Duration
	validate *validator.Validate
	cleaner  *textCleaner
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewMatchPostService creates a new MatchPostService. postCache may be nil
// to disable caching.
func NewMatchPostService(posts MatchPostStore, owners OwnerLookup, postCache MatchPostCache, cacheTTL time.Duration, recorder metrics.Recorder, logger *slog.Logger) *MatchPostService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchPostService{
		posts:    posts,
		owners:   owners,
		cache:    postCache,
		cacheTTL: cacheTTL,
		validate: newValidator(),
		cleaner:  newTextCleaner(),
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateMatchPostInput defines input for publishing a match post.
type CreateMatchPostInput struct {
	TeamName    string           `json:"team_name" validate:"required,max=200"`
	SkillLevel  model.SkillLevel `json:"skill_level" validate:"required,skill_level"`
	MatchDate   time.Time        `json:"match_date"`
	Location    string           `json:"location" validate:"required,max=200"`
	FieldName   *string          `json:"field_name" validate:"omitempty,max=200"`
	ContactInfo string           `json:"contact_info" validate:"required,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
}

// Create publishes a new active post owned by ownerID.
func (s *MatchPostService) Create(ctx context.Context, ownerID int64, input CreateMatchPostInput) (*model.MatchPost, error) {
	input.TeamName = s.cleaner.Clean(input.TeamName)
	input.Location = s.cleaner.Clean(input.Location)
	input.ContactInfo = s.cleaner.Clean(input.ContactInfo)
	input.FieldName = s.cleaner.CleanOptional(input.FieldName)
	input.Description = s.cleaner.CleanOptional(input.Description)

	if err := checkStruct(s.validate, input); err != nil {
		return nil, err
	}
	if input.MatchDate.IsZero() {
		return nil, validationError("match_date: is required", nil)
	}

	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}

	post := &model.MatchPost{
		UserID:      ownerID,
		TeamName:    input.TeamName,
		SkillLevel:  input.SkillLevel,
		MatchDate:   input.MatchDate.UTC(),
		Location:    input.Location,
		FieldName:   input.FieldName,
		ContactInfo: input.ContactInfo,
		Description: input.Description,
	}

	if err := s.posts.CreateMatchPost(ctx, post); err != nil {
		// The owner can disappear between the lookup and the insert.
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, persistenceError("failed to create match post", err)
	}

	s.metrics.IncMatchPostCreated()
	s.logger.Info("match post created", "match_post_id", post.ID, "user_id", ownerID)
	s.cachePost(ctx, post)

	return post, nil
}

// Get returns the post with this id, or nil if none.
// Reads go through the cache when one is configured.
func (s *MatchPostService) Get(ctx context.Context, id int64) (*model.MatchPost, error) {
	if s.cache != nil {
		cached, err := s.cache.GetMatchPost(ctx, id)
		switch {
		case err == nil:
			s.metrics.IncMatchPostCacheHit()
			return cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.IncMatchPostCacheMiss()
			if absent, _ := s.cache.IsNegativelyCached(ctx, id); absent {
				return nil, nil
			}
		default:
			// Redis trouble: fall through to the database.
			s.logger.Warn("match post cache read failed", "match_post_id", id, "error", err)
		}
	}

	post, err := s.posts.GetMatchPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMatchPostNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNegativeCache(ctx, id)
			}
			return nil, nil
		}
		return nil, persistenceError("failed to get match post", err)
	}

	s.cachePost(ctx, post)

	return post, nil
}

// List returns every post matching all constraints in filter, in creation order.
func (s *MatchPostService) List(ctx context.Context, filter model.MatchPostFilter) ([]*model.MatchPost, error) {
	posts, err := s.posts.ListMatchPosts(ctx, filter)
	if err != nil {
		return nil, persistenceError("failed to list match posts", err)
	}
	return posts, nil
}

// ListByOwner returns every post owned by ownerID. No other constraint applies.
func (s *MatchPostService) ListByOwner(ctx context.Context, ownerID int64) ([]*model.MatchPost, error) {
	return s.List(ctx, model.MatchPostFilter{OwnerID: &ownerID})
}

// Update applies patch to the post with this id.
func (s *MatchPostService) Update(ctx context.Context, id int64, patch model.MatchPostPatch) (*model.MatchPost, error) {
	patch.TeamName = s.cleaner.cleanField(patch.TeamName)
	patch.Location = s.cleaner.cleanField(patch.Location)
	patch.ContactInfo = s.cleaner.cleanField(patch.ContactInfo)
	patch.FieldName = s.cleaner.cleanNullableField(patch.FieldName)
	patch.Description = s.cleaner.cleanNullableField(patch.Description)

	if err := patch.Validate(); err != nil {
		return nil, validationError(strings.ReplaceAll(err.Error(), "\n", "; "), err)
	}

	post, err := s.posts.UpdateMatchPost(ctx, id, patch, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrMatchPostNotFound) {
			return nil, ErrMatchPostNotFound
		}
		return nil, persistenceError("failed to update match post", err)
	}

	s.metrics.IncMatchPostUpdated()
	s.logger.Info("match post updated", "match_post_id", id, "fields", patch.Fields())
	// The new version replaces the cached one; a Get that read the old row
	// cannot overwrite it afterwards.
	s.refresh(ctx, post)

	return post, nil
}

// Delete removes the post with this id. It reports whether a post was
// removed; an unknown id is not an error.
func (s *MatchPostService) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.posts.DeleteMatchPost(ctx, id)
	if err != nil {
		return false, persistenceError("failed to delete match post", err)
	}

	if removed {
		s.metrics.IncMatchPostDeleted()
		s.logger.Info("match post deleted", "match_post_id", id)
		s.markDeleted(ctx, id)
	}

	return removed, nil
}

func (s *MatchPostService) cachePost(ctx context.Context, post *model.MatchPost) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetMatchPost(ctx, post, s.cacheTTL); err != nil {
		s.logger.Warn("match post cache write failed", "match_post_id", post.ID, "error", err)
	}
}

// refresh writes post through to the cache. If that fails the cached copy
// is evicted instead, so readers go to Postgres.
func (s *MatchPostService) refresh(ctx context.Context, post *model.MatchPost) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetMatchPost(ctx, post, s.cacheTTL)
	if err == nil {
		return
	}
	s.logger.Warn("match post cache write failed", "match_post_id", post.ID, "error", err)
	if err := s.cache.EvictMatchPost(ctx, post.ID); err != nil {
		s.logger.Error("match post cache eviction failed, stale copy may be served until it expires",
			"match_post_id", post.ID, "error", err)
	}
}

func (s *MatchPostService) markDeleted(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkMatchPostDeleted(ctx, id); err != nil {
		s.logger.Error("match post cache eviction failed, stale copy may be served until it expires",
			"match_post_id", id, "error", err)
	}
}
