package bug

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBug_NormalizeDefaults(t *testing.T) {
	b := &Bug{Title: "  Crash on save  "}
	b.Normalize()

	assert.Equal(t, "Crash on save", b.Title)
	assert.Equal(t, StatusOpen, b.Status)
	assert.Equal(t, PriorityMedium, b.Priority)
}

func TestBug_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bug     Bug
		wantErr string
	}{
		{"valid", Bug{Title: "Crash", Status: StatusOpen, Priority: PriorityHigh}, ""},
		{"missing title", Bug{Status: StatusOpen, Priority: PriorityLow}, "title is required"},
		{"long title", Bug{Title: strings.Repeat("x", MaxTitleLength+1), Status: StatusOpen, Priority: PriorityLow}, "title must be at most 200"},
		{"title at limit", Bug{Title: strings.Repeat("é", MaxTitleLength), Status: StatusOpen, Priority: PriorityLow}, ""},
		{"long description", Bug{Title: "t", Description: strings.Repeat("x", MaxDescriptionLength+1), Status: StatusOpen, Priority: PriorityLow}, "description must be at most"},
		{"unknown status", Bug{Title: "t", Status: "closed", Priority: PriorityLow}, "status must be one of"},
		{"unknown priority", Bug{Title: "t", Status: StatusResolved, Priority: "urgent"}, "priority must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bug.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidBug))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatusAndPriorityValid(t *testing.T) {
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, Status("").Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.False(t, Priority("MEDIUM").Valid())
}
