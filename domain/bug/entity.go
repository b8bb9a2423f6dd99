package bug

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxReporterLength    = 100
)

// Sentinel errors for bug operations.
var (
	// ErrNotFound is returned when the requested bug does not exist.
	ErrNotFound = errors.New("bug not found")

	// ErrInvalidBug is returned when a bug fails validation.
	ErrInvalidBug = errors.New("invalid bug")
)

// Status is the workflow state of a bug.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Priority ranks how urgent a bug is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Bug is a tracked defect report.
type Bug struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"size:5000" json:"description"`
	Status      Status    `gorm:"size:20;not null;default:open;index" json:"status"`
	Priority    Priority  `gorm:"size:10;not null;default:medium" json:"priority"`
	Reporter    string    `gorm:"size:100" json:"reporter"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Bug model.
func (Bug) TableName() string {
	return "bugs"
}

// Normalize trims text fields and fills in the default status and priority.
func (b *Bug) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	b.Description = strings.TrimSpace(b.Description)
	b.Reporter = strings.TrimSpace(b.Reporter)
	if b.Status == "" {
		b.Status = StatusOpen
	}
	if b.Priority == "" {
		b.Priority = PriorityMedium
	}
}

// Validate checks field constraints. Errors wrap ErrInvalidBug.
func (b *Bug) Validate() error {
	switch {
	case b.Title == "":
		return invalid("title is required")
	case utf8.RuneCountInString(b.Title) > MaxTitleLength:
		return invalid("title must be at most %d characters", MaxTitleLength)
	case utf8.RuneCountInString(b.Description) > MaxDescriptionLength:
		return invalid("description must be at most %d characters", MaxDescriptionLength)
	case utf8.RuneCountInString(b.Reporter) > MaxReporterLength:
		return invalid("reporter must be at most %d characters", MaxReporterLength)
	case !b.Status.Valid():
		return invalid("status must be one of open, in-progress, resolved")
	case !b.Priority.Valid():
		return invalid("priority must be one of low, medium, high")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBug, fmt.Sprintf(format, args...))
}
