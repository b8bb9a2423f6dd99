package bug

import (
	domain "github.com/example/bugtracker-chat/domain/bug"
)

// Service names registered on the bug module container.
const (
	ServiceCreate = "create"
	ServiceGet    = "get"
	ServiceList   = "list"
	ServiceUpdate = "update"
	ServiceDelete = "delete"
)

// CreateBugRequest is the request for filing a bug.
type CreateBugRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      domain.Status   `json:"status,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	Reporter    string          `json:"reporter"`
}

// GetBugRequest is the request for a single bug.
type GetBugRequest struct {
	ID string `json:"id"`
}

// ListBugsRequest is the request for listing bugs. An empty Status lists all.
type ListBugsRequest struct {
	Status domain.Status `json:"status,omitempty"`
}

// ListBugsResponse is the response containing a list of bugs.
type ListBugsResponse struct {
	Bugs  []domain.Bug `json:"bugs"`
	Total int          `json:"total"`
}

// UpdateBugRequest is a partial update; nil fields are left unchanged.
type UpdateBugRequest struct {
	ID          string           `json:"id"`
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *domain.Status   `json:"status,omitempty"`
	Priority    *domain.Priority `json:"priority,omitempty"`
	Reporter    *string          `json:"reporter,omitempty"`
}

// DeleteBugRequest is the request for deleting a bug.
type DeleteBugRequest struct {
	ID string `json:"id"`
}

// DeleteBugResponse is the response after deleting a bug.
type DeleteBugResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}
