package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ActivityPort defines the interface for reading chat activity.
type ActivityPort interface {
	Summary(ctx context.Context) (Summary, error)
}

// ActivityAdapter implements ActivityPort using the service container.
type ActivityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates a new adapter for the activity services.
func NewActivityAdapter(container mono.ServiceContainer) *ActivityAdapter {
	if container == nil {
		panic("activity adapter requires non-nil ServiceContainer")
	}
	return &ActivityAdapter{container: container}
}

// Summary retrieves the activity summary.
func (a *ActivityAdapter) Summary(ctx context.Context) (Summary, error) {
	var resp Summary
	err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSummary,
		json.Marshal,
		json.Unmarshal,
		&SummaryRequest{},
		&resp,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("%s service call failed: %w", ServiceSummary, err)
	}
	return resp, nil
}
