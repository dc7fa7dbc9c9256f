package model

import (
	"errors"
	"strings"
	"time"
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// MatchPostPatch is a sparse update of a MatchPost. Only FieldName and
// Description may be cleared with null; ID, UserID and CreatedAt are not
// patchable at all.
type MatchPostPatch struct {
	TeamName    Field[string]     `json:"team_name"`
	SkillLevel  Field[SkillLevel] `json:"skill_level"`
	MatchDate   Field[time.Time]  `json:"match_date"`
	Location    Field[string]     `json:"location"`
	FieldName   Field[string]     `json:"field_name"`
	ContactInfo Field[string]     `json:"contact_info"`
	Description Field[string]     `json:"description"`
	IsActive    Field[bool]       `json:"is_active"`
}

// Fields returns the JSON names of the fields present in the patch.
func (p MatchPostPatch) Fields() []string {
	var names []string
	add := func(name string, present bool) {
		if present {
			names = append(names, name)
		}
	}
	add("team_name", p.TeamName.Present())
	add("skill_level", p.SkillLevel.Present())
	add("match_date", p.MatchDate.Present())
	add("location", p.Location.Present())
	add("field_name", p.FieldName.Present())
	add("contact_info", p.ContactInfo.Present())
	add("description", p.Description.Present())
	add("is_active", p.IsActive.Present())
	return names
}

// Validate rejects nulls on required attributes, blank required strings and
// unknown skill levels. All problems are reported together.
func (p MatchPostPatch) Validate() error {
	var errs []error

	requireText := func(name string, f Field[string]) {
		if !f.Present() {
			return
		}
		if f.IsNull() {
			errs = append(errs, &ValidationError{Field: name, Message: "cannot be null"})
			return
		}
		if v, _ := f.Value(); strings.TrimSpace(v) == "" {
			errs = append(errs, &ValidationError{Field: name, Message: "cannot be empty"})
		}
	}

	requireText("team_name", p.TeamName)
	requireText("location", p.Location)
	requireText("contact_info", p.ContactInfo)

	if p.SkillLevel.IsNull() {
		errs = append(errs, &ValidationError{Field: "skill_level", Message: "cannot be null"})
	} else if v, ok := p.SkillLevel.Value(); ok && !v.IsValid() {
		errs = append(errs, &ValidationError{Field: "skill_level", Message: "must be one of Beginner, Intermediate, Advanced"})
	}

	if p.MatchDate.IsNull() {
		errs = append(errs, &ValidationError{Field: "match_date", Message: "cannot be null"})
	} else if v, ok := p.MatchDate.Value(); ok && v.IsZero() {
		errs = append(errs, &ValidationError{Field: "match_date", Message: "must be a valid date-time"})
	}

	if p.IsActive.IsNull() {
		errs = append(errs, &ValidationError{Field: "is_active", Message: "cannot be null"})
	}

	return errors.Join(errs...)
}

// Apply merges the patch into current and returns the result. Omitted
// fields keep their value, explicit nulls clear nullable fields, and
// UpdatedAt always moves forward: it becomes now, or one microsecond past
// the previous value when the clock has not advanced. Timestamps are kept
// at microsecond precision to match PostgreSQL.
func (p MatchPostPatch) Apply(current MatchPost, now time.Time) MatchPost {
	next := current

	if v, ok := p.TeamName.Value(); ok {
		next.TeamName = v
	}
	if v, ok := p.SkillLevel.Value(); ok {
		next.SkillLevel = v
	}
	if v, ok := p.MatchDate.Value(); ok {
		next.MatchDate = v
	}
	if v, ok := p.Location.Value(); ok {
		next.Location = v
	}
	if p.FieldName.Present() {
		next.FieldName = p.FieldName.Ptr()
	}
	if v, ok := p.ContactInfo.Value(); ok {
		next.ContactInfo = v
	}
	if p.Description.Present() {
		next.Description = p.Description.Ptr()
	}
	if v, ok := p.IsActive.Value(); ok {
		next.IsActive = v
	}

	updated := now.Truncate(time.Microsecond)
	if !updated.After(current.UpdatedAt) {
		updated = current.UpdatedAt.Add(time.Microsecond)
	}
	next.UpdatedAt = updated

	return next
}
