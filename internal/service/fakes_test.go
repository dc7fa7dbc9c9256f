package service

import (
	"context"
	"sync"
	"time"

	"github.com/matchpost/matchpost/internal/cache"
	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/internal/repository"
)

// fakeUserStore mimics the users table, including the unique email index.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
	err    error // returned by every call when set

	// raceOnCreate makes CreateUser report a duplicate as if another
	// request inserted the same email after the pre-check.
	raceOnCreate bool
	creates      int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[int64]*model.User{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.err != nil {
		return f.err
	}
	if f.raceOnCreate {
		return repository.ErrEmailExists
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// fakePostStore keeps posts in memory and merges patches with the real
// MatchPostPatch.Apply.
type fakePostStore struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*model.MatchPost
	users  *fakeUserStore
	err    error

	gets       int
	lastFilter model.MatchPostFilter
}

func newFakePostStore(users *fakeUserStore) *fakePostStore {
	return &fakePostStore{posts: map[int64]*model.MatchPost{}, users: users}
}

func (f *fakePostStore) CreateMatchPost(ctx context.Context, post *model.MatchPost) error {
	if f.err != nil {
		return f.err
	}
	if _, err := f.users.GetUserByID(ctx, post.UserID); err != nil {
		return repository.ErrOwnerNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := time.Now().UTC().Truncate(time.Microsecond)
	post.ID = f.nextID
	post.IsActive = true
	post.CreatedAt = now
	post.UpdatedAt = now
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostStore) GetMatchPostByID(_ context.Context, id int64) (*model.MatchPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, repository.ErrMatchPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostStore) ListMatchPosts(_ context.Context, filter model.MatchPostFilter) ([]*model.MatchPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*model.MatchPost, 0)
	for id := int64(1); id <= f.nextID; id++ {
		p, ok := f.posts[id]
		if !ok {
			continue
		}
		if filter.OwnerID != nil && p.UserID != *filter.OwnerID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePostStore) UpdateMatchPost(_ context.Context, id int64, patch model.MatchPostPatch, now time.Time) (*model.MatchPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, repository.ErrMatchPostNotFound
	}
	next := patch.Apply(*p, now)
	f.posts[id] = &next
	cp := next
	return &cp, nil
}

func (f *fakePostStore) DeleteMatchPost(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.posts[id]
	delete(f.posts, id)
	return ok, nil
}

// fakeCache is an in-memory MatchPostCache with the same version and
// delete guards as the Redis one.
type fakeCache struct {
	mu       sync.Mutex
	posts    map[int64]model.MatchPost
	negative map[int64]bool
	deleted  map[int64]bool
	readErr  error
	writeErr error
	evicted  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		posts:    map[int64]model.MatchPost{},
		negative: map[int64]bool{},
		deleted:  map[int64]bool{},
	}
}

func (c *fakeCache) GetMatchPost(_ context.Context, id int64) (*model.MatchPost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	p, ok := c.posts[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (c *fakeCache) SetMatchPost(_ context.Context, post *model.MatchPost, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if c.deleted[post.ID] {
		return nil
	}
	if current, ok := c.posts[post.ID]; ok && current.UpdatedAt.After(post.UpdatedAt) {
		return nil
	}
	c.posts[post.ID] = *post
	delete(c.negative, post.ID)
	return nil
}

func (c *fakeCache) EvictMatchPost(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted++
	delete(c.posts, id)
	delete(c.negative, id)
	return nil
}

func (c *fakeCache) MarkMatchPostDeleted(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.posts, id)
	delete(c.negative, id)
	c.deleted[id] = true
	return nil
}

func (c *fakeCache) IsNegativelyCached(_ context.Context, id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negative[id] || c.deleted[id], nil
}

func (c *fakeCache) SetNegativeCache(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.posts[id]; ok {
		return nil
	}
	c.negative[id] = true
	return nil
}
