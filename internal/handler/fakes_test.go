package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/internal/service"
)

// brokenUserStore fails every call like an unreachable database.
type brokenUserStore struct{}

var errDatabaseDown = errors.New("dial tcp 10.1.2.3:5432: connection refused")

func (brokenUserStore) CreateUser(context.Context, *model.User) error { return errDatabaseDown }
func (brokenUserStore) GetUserByID(context.Context, int64) (*model.User, error) {
	return nil, errDatabaseDown
}
func (brokenUserStore) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, errDatabaseDown
}

// validationErr returns a real classified validation error.
func validationErr(t *testing.T) error {
	t.Helper()
	svc := service.NewUserService(brokenUserStore{}, nil, nil, nil, discardLogger())
	_, err := svc.Register(t.Context(), service.RegisterInput{})
	require.ErrorIs(t, err, service.ErrValidation)
	return err
}

// persistenceErr returns a real classified persistence error whose cause
// mentions internal infrastructure.
func persistenceErr(t *testing.T) error {
	t.Helper()
	svc := service.NewUserService(brokenUserStore{}, nil, nil, nil, discardLogger())
	_, err := svc.FindByID(t.Context(), 1)
	require.ErrorIs(t, err, service.ErrPersistence)
	return err
}

type fakeUsers struct {
	registerInput service.RegisterInput
	loginInput    service.LoginInput
	user          *model.User
	login         *service.LoginResult
	err           error
}

func (f *fakeUsers) Register(_ context.Context, input service.RegisterInput) (*model.User, error) {
	f.registerInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUsers) Login(_ context.Context, input service.LoginInput) (*service.LoginResult, error) {
	f.loginInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

type fakePosts struct {
	ownerID     int64
	createInput service.CreateMatchPostInput
	filter      model.MatchPostFilter
	listOwner   int64
	patch       model.MatchPostPatch
	id          int64
	calls       int

	post    *model.MatchPost
	posts   []*model.MatchPost
	removed bool
	err     error
}

func (f *fakePosts) Create(_ context.Context, ownerID int64, input service.CreateMatchPostInput) (*model.MatchPost, error) {
	f.calls++
	f.ownerID, f.createInput = ownerID, input
	return f.post, f.err
}

func (f *fakePosts) Get(_ context.Context, id int64) (*model.MatchPost, error) {
	f.calls++
	f.id = id
	return f.post, f.err
}

func (f *fakePosts) List(_ context.Context, filter model.MatchPostFilter) ([]*model.MatchPost, error) {
	f.calls++
	f.filter = filter
	return f.posts, f.err
}

func (f *fakePosts) ListByOwner(_ context.Context, ownerID int64) ([]*model.MatchPost, error) {
	f.calls++
	f.listOwner = ownerID
	return f.posts, f.err
}

func (f *fakePosts) Update(_ context.Context, id int64, patch model.MatchPostPatch) (*model.MatchPost, error) {
	f.calls++
	f.id, f.patch = id, patch
	return f.post, f.err
}

func (f *fakePosts) Delete(_ context.Context, id int64) (bool, error) {
	f.calls++
	f.id = id
	return f.removed, f.err
}

func samplePost() *model.MatchPost {
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	field := "Pitch 3"
	return &model.MatchPost{
		ID:          42,
		UserID:      7,
		TeamName:    "Red Lions",
		SkillLevel:  model.SkillIntermediate,
		MatchDate:   time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
		Location:    "Hanoi",
		FieldName:   &field,
		ContactInfo: "0900 000 000",
		IsActive:    true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}
