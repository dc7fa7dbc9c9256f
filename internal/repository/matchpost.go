package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/matchpost/matchpost/internal/model"
)

// Common errors for match post repository operations.
var (
	ErrMatchPostNotFound = errors.New("match post not found")
	ErrOwnerNotFound     = errors.New("owner user not found")
)

const matchPostColumns = `id, user_id, team_name, skill_level, match_date, location, field_name,
		contact_info, description, is_active, created_at, updated_at`

// CreateMatchPost inserts post and fills in ID, IsActive, CreatedAt and UpdatedAt.
// New posts are always active and start with UpdatedAt equal to CreatedAt.
func (r *Repository) CreateMatchPost(ctx context.Context, post *model.MatchPost) error {
	query := `
		INSERT INTO match_posts (user_id, team_name, skill_level, match_date, location, field_name, contact_info, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_active, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		post.UserID,
		post.TeamName,
		string(post.SkillLevel),
		post.MatchDate,
		post.Location,
		post.FieldName,
		post.ContactInfo,
		post.Description,
	).Scan(&post.ID, &post.IsActive, &post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("failed to create match post: %w", err)
	}

	return nil
}

// GetMatchPostByID retrieves a match post by its ID.
func (r *Repository) GetMatchPostByID(ctx context.Context, id int64) (*model.MatchPost, error) {
	query := `SELECT ` + matchPostColumns + ` FROM match_posts WHERE id = $1`

	post, err := scanMatchPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchPostNotFound
		}
		return nil, fmt.Errorf("failed to get match post by ID: %w", err)
	}

	return post, nil
}

// ListMatchPosts returns every post satisfying filter in insertion order.
func (r *Repository) ListMatchPosts(ctx context.Context, filter model.MatchPostFilter) ([]*model.MatchPost, error) {
	query := `SELECT ` + matchPostColumns + ` FROM match_posts`

	where, args := compileFilter(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list match posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*model.MatchPost, 0)
	for rows.Next() {
		post, err := scanMatchPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match posts: %w", err)
	}

	return posts, nil
}

// UpdateMatchPost applies patch to the stored post inside one transaction.
// The row is locked while the merge runs so concurrent patches serialize.
func (r *Repository) UpdateMatchPost(ctx context.Context, id int64, patch model.MatchPostPatch, now time.Time) (*model.MatchPost, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	current, err := scanMatchPost(tx.QueryRow(ctx,
		`SELECT `+matchPostColumns+` FROM match_posts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchPostNotFound
		}
		return nil, fmt.Errorf("failed to load match post for update: %w", err)
	}

	next := patch.Apply(*current, now)

	query := `
		UPDATE match_posts
		SET team_name = $2, skill_level = $3, match_date = $4, location = $5, field_name = $6,
		    contact_info = $7, description = $8, is_active = $9, updated_at = $10
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query,
		next.ID,
		next.TeamName,
		string(next.SkillLevel),
		next.MatchDate,
		next.Location,
		next.FieldName,
		next.ContactInfo,
		next.Description,
		next.IsActive,
		next.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to update match post: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit match post update: %w", err)
	}

	return &next, nil
}

// DeleteMatchPost removes a post. It reports whether a row was removed;
// deleting an absent ID is not an error.
func (r *Repository) DeleteMatchPost(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM match_posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete match post: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// scanMatchPost scans a single row into a MatchPost model.
// pgx.Rows satisfies pgx.Row, so it serves both QueryRow and Query.
func scanMatchPost(row pgx.Row) (*model.MatchPost, error) {
	var post model.MatchPost
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.TeamName,
		&post.SkillLevel,
		&post.MatchDate,
		&post.Location,
		&post.FieldName,
		&post.ContactInfo,
		&post.Description,
		&post.IsActive,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	return &post, err
}
