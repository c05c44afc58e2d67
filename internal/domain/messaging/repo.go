package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListInbox(ctx context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error)
	ListSent(ctx context.Context, sender uuid.UUID, limit, offset int) ([]*Message, int, error)
	// ListThread returns the thread's messages the user sent or received,
	// oldest first.
	ListThread(ctx context.Context, threadID, user uuid.UUID) ([]*Message, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	UnreadCount(ctx context.Context, recipient uuid.UUID) (int, error)
}
