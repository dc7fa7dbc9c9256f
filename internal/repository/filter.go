package repository

import (
	"fmt"
	"strings"

	"github.com/matchpost/matchpost/internal/model"
)

// compileFilter turns a MatchPostFilter into a SQL conjunction and its
// positional arguments. An empty filter yields "" and no arguments, which
// callers treat as "match everything".
//
// Date bounds are inclusive and bound as time.Time so PostgreSQL compares
// instants rather than strings.
func compileFilter(f model.MatchPostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(predicate string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(predicate, len(args)))
	}

	if f.SkillLevel != nil {
		add("skill_level = $%d", string(*f.SkillLevel))
	}
	if f.Location != nil {
		add("location = $%d", *f.Location)
	}
	if f.DateFrom != nil {
		add("match_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("match_date <= $%d", *f.DateTo)
	}
	if f.IsActive != nil {
		add("is_active = $%d", *f.IsActive)
	}
	if f.OwnerID != nil {
		add("user_id = $%d", *f.OwnerID)
	}

	return strings.Join(conds, " AND "), args
}
