package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matchpost/matchpost/internal/auth"
	"github.com/matchpost/matchpost/internal/handler/dto"
	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/internal/service"
)

// MatchPostAPI is the part of the match post service used by MatchPostHandler.
type MatchPostAPI interface {
	Create(ctx context.Context, ownerID int64, input service.CreateMatchPostInput) (*model.MatchPost, error)
	Get(ctx context.Context, id int64) (*model.MatchPost, error)
	List(ctx context.Context, filter model.MatchPostFilter) ([]*model.MatchPost, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.MatchPost, error)
	Update(ctx context.Context, id int64, patch model.MatchPostPatch) (*model.MatchPost, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// MatchPostHandler handles match post endpoints.
type MatchPostHandler struct {
	posts  MatchPostAPI
	logger *slog.Logger
}

// NewMatchPostHandler creates a new MatchPostHandler.
func NewMatchPostHandler(posts MatchPostAPI, logger *slog.Logger) *MatchPostHandler {
	return &MatchPostHandler{posts: posts, logger: logger}
}

// Create handles POST /api/v1/match-posts.
// The post is owned by the authenticated caller.
func (h *MatchPostHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == 0 {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	var req dto.CreateMatchPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Create(r.Context(), ownerID, service.CreateMatchPostInput{
		TeamName:    req.TeamName,
		SkillLevel:  req.SkillLevel,
		MatchDate:   req.MatchDate,
		Location:    req.Location,
		FieldName:   req.FieldName,
		ContactInfo: req.ContactInfo,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewMatchPostResponse(post))
}

// List handles GET /api/v1/match-posts.
func (h *MatchPostHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	posts, err := h.posts.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewMatchPostListResponse(posts))
}

// Get handles GET /api/v1/match-posts/{id}.
func (h *MatchPostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "match post not found")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewMatchPostResponse(post))
}

// ListByOwner handles GET /api/v1/users/{id}/match-posts.
func (h *MatchPostHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	posts, err := h.posts.ListByOwner(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewMatchPostListResponse(posts))
}

// Update handles PATCH /api/v1/match-posts/{id}.
// Omitted fields are left alone; null clears field_name and description.
func (h *MatchPostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	var patch model.MatchPostPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	post, err := h.posts.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewMatchPostResponse(post))
}

// Delete handles DELETE /api/v1/match-posts/{id}.
// Deleting an unknown id is reported as {"success": false}, not as an error.
func (h *MatchPostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	removed, err := h.posts.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeleteResponse{Success: removed})
}

// parseFilter builds a filter from query parameters. Absent or empty
// parameters place no constraint; unknown parameters are ignored.
func parseFilter(q url.Values) (model.MatchPostFilter, error) {
	var filter model.MatchPostFilter

	if v := strings.TrimSpace(q.Get("skill_level")); v != "" {
		level := model.SkillLevel(v)
		if !level.IsValid() {
			return filter, errors.New("skill_level: must be one of Beginner, Intermediate, Advanced")
		}
		filter.SkillLevel = &level
	}

	if v := strings.TrimSpace(q.Get("location")); v != "" {
		filter.Location = &v
	}

	if v := strings.TrimSpace(q.Get("date_from")); v != "" {
		from, err := parseDateBound(v, false)
		if err != nil {
			return filter, fmt.Errorf("date_from: %w", err)
		}
		filter.DateFrom = &from
	}

	if v := strings.TrimSpace(q.Get("date_to")); v != "" {
		to, err := parseDateBound(v, true)
		if err != nil {
			return filter, fmt.Errorf("date_to: %w", err)
		}
		filter.DateTo = &to
	}

	if v := strings.TrimSpace(q.Get("is_active")); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("is_active: must be true or false")
		}
		filter.IsActive = &active
	}

	return filter, nil
}

// parseDateBound accepts an RFC 3339 instant or a bare date. A bare date
// covers the whole UTC day: it becomes midnight as a lower bound and the
// last microsecond of the day as an upper bound.
func parseDateBound(v string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}

	day, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errors.New("must be an RFC 3339 date-time or YYYY-MM-DD")
	}
	if upper {
		return day.AddDate(0, 0, 1).Add(-time.Microsecond), nil
	}
	return day, nil
}
