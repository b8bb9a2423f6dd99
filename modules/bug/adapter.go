package bug

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/example/bugtracker-chat/domain/bug"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// BugPort defines the interface consumers use to reach the bug module.
type BugPort interface {
	Create(ctx context.Context, req CreateBugRequest) (*domain.Bug, error)
	Get(ctx context.Context, id string) (*domain.Bug, error)
	List(ctx context.Context, status domain.Status) (*ListBugsResponse, error)
	Update(ctx context.Context, req UpdateBugRequest) (*domain.Bug, error)
	Delete(ctx context.Context, id string) error
}

// BugAdapter implements BugPort over the module's service container.
type BugAdapter struct {
	container mono.ServiceContainer
}

// NewBugAdapter creates a new adapter for bug services.
func NewBugAdapter(container mono.ServiceContainer) *BugAdapter {
	if container == nil {
		panic("bug adapter requires non-nil ServiceContainer")
	}
	return &BugAdapter{container: container}
}

func (a *BugAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return mapServiceError(err)
	}
	return nil
}

// Create files a new bug.
func (a *BugAdapter) Create(ctx context.Context, req CreateBugRequest) (*domain.Bug, error) {
	var resp domain.Bug
	if err := a.call(ctx, ServiceCreate, &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get retrieves a bug by ID.
func (a *BugAdapter) Get(ctx context.Context, id string) (*domain.Bug, error) {
	var resp domain.Bug
	if err := a.call(ctx, ServiceGet, &GetBugRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List retrieves bugs, optionally filtered by status.
func (a *BugAdapter) List(ctx context.Context, status domain.Status) (*ListBugsResponse, error) {
	var resp ListBugsResponse
	if err := a.call(ctx, ServiceList, &ListBugsRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Update applies a partial update.
func (a *BugAdapter) Update(ctx context.Context, req UpdateBugRequest) (*domain.Bug, error) {
	var resp domain.Bug
	if err := a.call(ctx, ServiceUpdate, &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes a bug.
func (a *BugAdapter) Delete(ctx context.Context, id string) error {
	var resp DeleteBugResponse
	if err := a.call(ctx, ServiceDelete, &DeleteBugRequest{ID: id}, &resp); err != nil {
		return err
	}
	if !resp.Deleted {
		return fmt.Errorf("bug not deleted: %s", id)
	}
	return nil
}

// mapServiceError converts errors back to sentinel errors by message content,
// since type information is lost across request-reply.
func mapServiceError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	if strings.Contains(msg, domain.ErrNotFound.Error()) {
		return domain.ErrNotFound
	}
	prefix := domain.ErrInvalidBug.Error() + ": "
	if idx := strings.Index(msg, prefix); idx >= 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidBug, msg[idx+len(prefix):])
	}
	return fmt.Errorf("bug service call failed: %w", err)
}
