package bug

import (
	"context"
	"testing"
	"time"

	domain "github.com/example/bugtracker-chat/domain/bug"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	// Every pooled connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.Bug{}), "failed to migrate test database")
	return db
}

func newTestBug(title string, status domain.Status, createdAt time.Time) *domain.Bug {
	return &domain.Bug{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    status,
		Priority:  domain.PriorityMedium,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	b := newTestBug("Crash on save", domain.StatusOpen, time.Now().UTC())
	b.Reporter = "alice"
	require.NoError(t, repo.Create(ctx, b))

	found, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, found.Title)
	assert.Equal(t, "alice", found.Reporter)
	assert.Equal(t, domain.StatusOpen, found.Status)
}

func TestRepository_FindByIDNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("empty database", func(t *testing.T) {
		bugs, err := repo.List(ctx, "")
		require.NoError(t, err)
		assert.NotNil(t, bugs)
		assert.Empty(t, bugs)
	})

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newTestBug("first", domain.StatusOpen, base)))
	require.NoError(t, repo.Create(ctx, newTestBug("second", domain.StatusResolved, base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newTestBug("third", domain.StatusOpen, base.Add(2*time.Minute))))

	t.Run("all newest first", func(t *testing.T) {
		bugs, err := repo.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, bugs, 3)
		assert.Equal(t, []string{"third", "second", "first"}, []string{bugs[0].Title, bugs[1].Title, bugs[2].Title})
	})

	t.Run("filtered by status", func(t *testing.T) {
		bugs, err := repo.List(ctx, domain.StatusOpen)
		require.NoError(t, err)
		require.Len(t, bugs, 2)
		for _, b := range bugs {
			assert.Equal(t, domain.StatusOpen, b.Status)
		}
	})
}

func TestRepository_Save(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	b := newTestBug("original", domain.StatusOpen, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, b))

	b.Title = "renamed"
	b.Status = domain.StatusResolved
	b.Description = ""
	require.NoError(t, repo.Save(ctx, b))

	found, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", found.Title)
	assert.Equal(t, domain.StatusResolved, found.Status)

	missing := newTestBug("ghost", domain.StatusOpen, time.Now())
	assert.ErrorIs(t, repo.Save(ctx, missing), domain.ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	b := newTestBug("doomed", domain.StatusOpen, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.Delete(ctx, b.ID))
	assert.ErrorIs(t, repo.Delete(ctx, b.ID), domain.ErrNotFound)

	_, err := repo.FindByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_Ping(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	assert.NoError(t, repo.Ping(context.Background()))
}
