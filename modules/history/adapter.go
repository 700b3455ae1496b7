package history

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// HistoryPort is the read side of the history module as seen by other modules.
type HistoryPort interface {
	Recent(ctx context.Context, room string, limit int) ([]domain.Message, error)
}

// historyAdapter calls the history module through its service container.
type historyAdapter struct {
	container mono.ServiceContainer
}

// NewHistoryAdapter creates a HistoryPort backed by the history module's
// ServiceContainer, received via SetDependencyServiceContainer.
func NewHistoryAdapter(container mono.ServiceContainer) HistoryPort {
	if container == nil {
		panic("history adapter requires non-nil ServiceContainer")
	}
	return &historyAdapter{container: container}
}

// Recent returns up to limit messages of room, oldest first.
func (a *historyAdapter) Recent(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	req := RecentRequest{Room: room, Limit: limit}
	var resp RecentResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRecent,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceRecent, err)
	}

	if resp.Messages == nil {
		return []domain.Message{}, nil
	}
	return resp.Messages, nil
}
