// Package testutil holds shared helpers for database-backed tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/migrations"
)

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// StartPostgres returns a migrated database URL. TEST_DATABASE_URL is used
// when set; otherwise a throwaway postgres container is started. The
// returned stop function is a no-op for external databases.
func StartPostgres(ctx context.Context) (string, func(), error) {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		if _, err := migrations.Up(url); err != nil {
			return "", nil, err
		}
		return url, func() {}, nil
	}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("matchpost"),
		postgres.WithUsername("matchpost"),
		postgres.WithPassword("matchpost"),
		testcontainers.WithWaitStrategy(
			// The image restarts once after init, so readiness is logged twice.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}

	stop := func() {
		_ = container.Terminate(context.Background())
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("postgres connection string: %w", err)
	}

	if _, err := migrations.Up(url); err != nil {
		stop()
		return "", nil, err
	}

	return url, stop, nil
}

// ResetSchema empties every table and restarts identity sequences.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE match_posts, users RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// NewPool connects to databaseURL, takes the advisory lock and resets the
// schema. Everything is released when the test ends.
func NewPool(t testing.TB, databaseURL string) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := ResetSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return pool
}

// StartRedis returns a Redis URL. TEST_REDIS_URL is used when set;
// otherwise a throwaway redis container is started.
func StartRedis(ctx context.Context) (string, func(), error) {
	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		return url, func() {}, nil
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start redis container: %w", err)
	}

	stop := func() {
		_ = container.Terminate(context.Background())
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}

	return fmt.Sprintf("redis://%s/0", endpoint), stop, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an unsaved user with sensible defaults.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	return &model.User{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$ZGlnZXN0ZGlnZXN0ZGlnZXN0",
		Name:         "Test Captain",
	}
}

// NewTestMatchPost creates an unsaved active post owned by ownerID.
func NewTestMatchPost(t testing.TB, ownerID int64) *model.MatchPost {
	t.Helper()
	return &model.MatchPost{
		UserID:      ownerID,
		TeamName:    "Test FC",
		SkillLevel:  model.SkillIntermediate,
		MatchDate:   time.Now().UTC().Add(72 * time.Hour).Truncate(time.Microsecond),
		Location:    "Central Park",
		ContactInfo: "captain@example.com",
		IsActive:    true,
	}
}
