package bug

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/bugtracker-chat/domain/bug"
	"gorm.io/gorm"
)

// Repository provides access to bug storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bug repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the bugs table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&domain.Bug{})
}

// Create saves a new bug.
func (r *Repository) Create(ctx context.Context, b *domain.Bug) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create bug: %w", err)
	}
	return nil
}

// FindByID retrieves a bug by its ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Bug, error) {
	var b domain.Bug
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bug: %w", err)
	}
	return &b, nil
}

// List returns bugs newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status domain.Status) ([]domain.Bug, error) {
	bugs := make([]domain.Bug, 0)
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&bugs).Error; err != nil {
		return nil, fmt.Errorf("failed to list bugs: %w", err)
	}
	return bugs, nil
}

// Save writes every field of an existing bug.
func (r *Repository) Save(ctx context.Context, b *domain.Bug) error {
	result := r.db.WithContext(ctx).Model(&domain.Bug{}).Where("id = ?", b.ID).Select("*").Omit("created_at").Updates(b)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update bug: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a bug by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Bug{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete bug: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
