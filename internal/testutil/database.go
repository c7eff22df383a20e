// Package testutil provides shared test fixtures: a migrated in-memory
// database plus helpers to seed users and buckets.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
	"github.com/quintave/quintave/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	SkipMigrations bool
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	user := db.SeedUser("google-123")
//	buckets := db.SeedBuckets(user.ID, model.DefaultBucketNames...)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	// Run migrations unless skipped
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Run custom setup
	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedUser creates (or refreshes) a user. The optional signedInAt, which
// also becomes createdAt for a new user, defaults to now.
func (db *TestDB) SeedUser(openID string, signedInAt ...time.Time) *model.User {
	db.t.Helper()

	at := time.Now().UTC()
	if len(signedInAt) > 0 {
		at = signedInAt[0]
	}

	user, err := db.Storage.UpsertUser(context.Background(), model.Identity{
		OpenID:      openID,
		Name:        "Test " + openID,
		Email:       openID + "@example.com",
		LoginMethod: "google",
	}, at)
	if err != nil {
		db.t.Fatalf("failed to seed user %q: %v", openID, err)
	}
	return user
}

// SeedBuckets creates empty buckets with the given names for userID.
func (db *TestDB) SeedBuckets(userID int64, names ...string) []model.Bucket {
	db.t.Helper()

	buckets := make([]model.Bucket, 0, len(names))
	for _, name := range names {
		b := model.Bucket{UserID: userID, Name: name}
		if err := db.Storage.CreateBucket(context.Background(), &b); err != nil {
			db.t.Fatalf("failed to seed bucket %q: %v", name, err)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// MustGetBucket reloads a bucket or fails the test.
func (db *TestDB) MustGetBucket(userID, bucketID int64) *model.Bucket {
	db.t.Helper()

	b, err := db.Storage.GetBucket(context.Background(), userID, bucketID)
	if err != nil {
		db.t.Fatalf("failed to load bucket %d: %v", bucketID, err)
	}
	return b
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
