package dto

import (
	"time"

	"github.com/matchpost/matchpost/internal/model"
)

// CreateMatchPostRequest is the body of POST /api/v1/match-posts.
// The owner is always the authenticated caller.
type CreateMatchPostRequest struct {
	TeamName    string           `json:"team_name"`
	SkillLevel  model.SkillLevel `json:"skill_level"`
	MatchDate   time.Time        `json:"match_date"`
	Location    string           `json:"location"`
	FieldName   *string          `json:"field_name"`
	ContactInfo string           `json:"contact_info"`
	Description *string          `json:"description"`
}

// MatchPostResponse is the JSON view of a match post.
type MatchPostResponse struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	TeamName    string           `json:"team_name"`
	SkillLevel  model.SkillLevel `json:"skill_level"`
	MatchDate   time.Time        `json:"match_date"`
	Location    string           `json:"location"`
	FieldName   *string          `json:"field_name"`
	ContactInfo string           `json:"contact_info"`
	Description *string          `json:"description"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MatchPostListResponse wraps a list of posts.
type MatchPostListResponse struct {
	Data []MatchPostResponse `json:"data"`
}

// DeleteResponse reports whether a delete removed anything.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// NewMatchPostResponse converts a model.MatchPost.
func NewMatchPostResponse(p *model.MatchPost) MatchPostResponse {
	return MatchPostResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		TeamName:    p.TeamName,
		SkillLevel:  p.SkillLevel,
		MatchDate:   p.MatchDate,
		Location:    p.Location,
		FieldName:   p.FieldName,
		ContactInfo: p.ContactInfo,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewMatchPostListResponse converts posts, keeping order. The data array
// is never null.
func NewMatchPostListResponse(posts []*model.MatchPost) MatchPostListResponse {
	data := make([]MatchPostResponse, 0, len(posts))
	for _, p := range posts {
		data = append(data, NewMatchPostResponse(p))
	}
	return MatchPostListResponse{Data: data}
}
