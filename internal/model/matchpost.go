package model

import "time"

// SkillLevel is the self-declared level of a team.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillAdvanced     SkillLevel = "Advanced"
)

// SkillLevels lists the accepted skill levels in display order.
var SkillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced}

// IsValid checks if the skill level belongs to the closed set.
func (s SkillLevel) IsValid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

// MatchPost is one team's open invitation to play.
type MatchPost struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TeamName    string     `json:"team_name"`
	SkillLevel  SkillLevel `json:"skill_level"`
	MatchDate   time.Time  `json:"match_date"`
	Location    string     `json:"location"`
	FieldName   *string    `json:"field_name"`
	ContactInfo string     `json:"contact_info"`
	Description *string    `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MatchPostFilter is a sparse set of constraints for listing posts.
// A nil field places no constraint on that attribute.
type MatchPostFilter struct {
	SkillLevel *SkillLevel
	Location   *string
	DateFrom   *time.Time // inclusive
	DateTo     *time.Time // inclusive
	IsActive   *bool
	OwnerID    *int64
}

// IsEmpty reports whether the filter matches every post.
func (f MatchPostFilter) IsEmpty() bool {
	return f.SkillLevel == nil &&
		f.Location == nil &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		f.IsActive == nil &&
		f.OwnerID == nil
}
