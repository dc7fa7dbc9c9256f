//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/internal/testutil"
)

var databaseURL string

func TestMain(m *testing.M) {
	url, stop, err := testutil.StartPostgres(context.Background())
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	databaseURL = url

	code := m.Run()
	stop()
	os.Exit(code)
}

func newIntegrationRepository(t *testing.T) *Repository {
	t.Helper()
	return NewWithDB(testutil.NewPool(t, databaseURL))
}

func createUser(t *testing.T, repo *Repository, email string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, email)
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func teamNames(posts []*model.MatchPost) []string {
	names := make([]string, 0, len(posts))
	for _, p := range posts {
		names = append(names, p.TeamName)
	}
	return names
}

func TestIntegrationUsers_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepository(t)

	user := createUser(t, repo, "captain@example.com")
	require.Positive(t, user.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "captain@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.PasswordHash, byEmail.PasswordHash)

	_, err = repo.GetUserByEmail(ctx, "Captain@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound, "email lookup is exact")

	duplicate := testutil.NewTestUser(t, "captain@example.com")
	assert.ErrorIs(t, repo.CreateUser(ctx, duplicate), ErrEmailExists)
}

func TestIntegrationUsers_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepository(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateUser(ctx, testutil.NewTestUser(t, "race@example.com"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrEmailExists):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestIntegrationMatchPosts_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepository(t)
	owner := createUser(t, repo, "owner@example.com")

	post := testutil.NewTestMatchPost(t, owner.ID)
	require.NoError(t, repo.CreateMatchPost(ctx, post))
	require.True(t, post.IsActive)
	require.True(t, post.UpdatedAt.Equal(post.CreatedAt), "updated_at starts at created_at")

	stored, err := repo.GetMatchPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, stored.MatchDate.Equal(post.MatchDate), "match date round-trip: got %v want %v", stored.MatchDate, post.MatchDate)

	// Same clock value twice still moves updated_at forward.
	now := stored.UpdatedAt
	first, err := repo.UpdateMatchPost(ctx, post.ID, model.MatchPostPatch{FieldName: model.Set("Pitch 4")}, now)
	require.NoError(t, err)
	second, err := repo.UpdateMatchPost(ctx, post.ID, model.MatchPostPatch{FieldName: model.Null[string]()}, now)
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.After(post.UpdatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	reloaded, err := repo.GetMatchPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.FieldName)
	assert.True(t, reloaded.UpdatedAt.Equal(second.UpdatedAt))

	_, err = repo.UpdateMatchPost(ctx, 999999, model.MatchPostPatch{TeamName: model.Set("x")}, time.Now())
	assert.ErrorIs(t, err, ErrMatchPostNotFound)

	removed, err := repo.DeleteMatchPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.DeleteMatchPost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIntegrationMatchPosts_UnknownOwner(t *testing.T) {
	repo := newIntegrationRepository(t)

	err := repo.CreateMatchPost(context.Background(), testutil.NewTestMatchPost(t, 424242))
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestIntegrationMatchPosts_Filters(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepository(t)
	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	base := time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)
	seed := []struct {
		owner    int64
		skill    model.SkillLevel
		location string
		day      int
	}{
		{alice.ID, model.SkillBeginner, "North Field", 0},
		{alice.ID, model.SkillAdvanced, "North Field", 1},
		{bob.ID, model.SkillBeginner, "South Field", 2},
		{bob.ID, model.SkillBeginner, "North Field", 3},
	}
	for i, s := range seed {
		p := testutil.NewTestMatchPost(t, s.owner)
		p.TeamName = fmt.Sprintf("Team %d", i)
		p.SkillLevel = s.skill
		p.Location = s.location
		p.MatchDate = base.AddDate(0, 0, s.day)
		require.NoError(t, repo.CreateMatchPost(ctx, p), "seed %d", i)
	}

	beginner := model.SkillBeginner
	north := "North Field"
	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 2)
	// Same instant as `to`, expressed in another zone.
	toOffset := to.In(time.FixedZone("UTC-5", -5*60*60))
	fromLater := base.AddDate(0, 0, 3)
	inactive := false

	tests := []struct {
		name   string
		filter model.MatchPostFilter
		want   []string
	}{
		{"no filter", model.MatchPostFilter{}, []string{"Team 0", "Team 1", "Team 2", "Team 3"}},
		{"skill and location", model.MatchPostFilter{SkillLevel: &beginner, Location: &north}, []string{"Team 0", "Team 3"}},
		{"inclusive interval", model.MatchPostFilter{DateFrom: &from, DateTo: &to}, []string{"Team 1", "Team 2"}},
		{"offset bound", model.MatchPostFilter{DateTo: &toOffset}, []string{"Team 0", "Team 1", "Team 2"}},
		{"inverted interval", model.MatchPostFilter{DateFrom: &fromLater, DateTo: &to}, []string{}},
		{"owner", model.MatchPostFilter{OwnerID: &bob.ID}, []string{"Team 2", "Team 3"}},
		{"no inactive posts", model.MatchPostFilter{IsActive: &inactive}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := repo.ListMatchPosts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, teamNames(posts))
		})
	}
}

// Each seeded post matches exactly two of the three criteria, so their
// conjunction selects nothing.
func TestIntegrationMatchPosts_FilterIsConjunction(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepository(t)
	owner := createUser(t, repo, "and@example.com")

	seed := []struct {
		team     string
		skill    model.SkillLevel
		location string
		active   bool
	}{
		{"Wrong Skill", model.SkillAdvanced, "Central Park", true},
		{"Wrong Place", model.SkillBeginner, "Harbor Field", true},
		{"Inactive", model.SkillBeginner, "Central Park", false},
	}
	for _, s := range seed {
		p := testutil.NewTestMatchPost(t, owner.ID)
		p.TeamName = s.team
		p.SkillLevel = s.skill
		p.Location = s.location
		require.NoError(t, repo.CreateMatchPost(ctx, p), s.team)

		if !s.active {
			updated, err := repo.UpdateMatchPost(ctx, p.ID, model.MatchPostPatch{IsActive: model.Set(false)}, time.Now())
			require.NoError(t, err)
			require.False(t, updated.IsActive)
		}
	}

	beginner := model.SkillBeginner
	centralPark := "Central Park"
	active := true
	inactive := false

	posts, err := repo.ListMatchPosts(ctx, model.MatchPostFilter{
		SkillLevel: &beginner,
		Location:   &centralPark,
		IsActive:   &active,
	})
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = repo.ListMatchPosts(ctx, model.MatchPostFilter{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, []string{"Inactive"}, teamNames(posts))

	posts, err = repo.ListMatchPosts(ctx, model.MatchPostFilter{SkillLevel: &beginner, Location: &centralPark})
	require.NoError(t, err)
	assert.Equal(t, []string{"Inactive"}, teamNames(posts))

	posts, err = repo.ListMatchPosts(ctx, model.MatchPostFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, []string{"Wrong Skill", "Wrong Place"}, teamNames(posts))
}
