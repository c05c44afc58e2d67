package messaging

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	msgs  map[uuid.UUID]*Message
	clock time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{msgs: map[uuid.UUID]*Message{}, clock: time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)}
}

func (m *mockRepo) Create(_ context.Context, msg *Message) error {
	m.clock = m.clock.Add(time.Minute)
	msg.CreatedAt = m.clock
	cp := *msg
	m.msgs[msg.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Message, error) {
	msg, ok := m.msgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *msg
	return &cp, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.msgs[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.msgs, id)
	return nil
}

func (m *mockRepo) filter(keep func(*Message) bool, newestFirst bool) []*Message {
	var out []*Message
	for _, msg := range m.msgs {
		if keep(msg) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func page(items []*Message, limit, offset int) ([]*Message, int, error) {
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}

func (m *mockRepo) ListInbox(_ context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error) {
	return page(m.filter(func(msg *Message) bool {
		return msg.RecipientID == recipient && (!unreadOnly || msg.ReadAt == nil)
	}, true), limit, offset)
}

func (m *mockRepo) ListSent(_ context.Context, sender uuid.UUID, limit, offset int) ([]*Message, int, error) {
	return page(m.filter(func(msg *Message) bool { return msg.SenderID == sender }, true), limit, offset)
}

func (m *mockRepo) ListThread(_ context.Context, threadID, user uuid.UUID) ([]*Message, error) {
	return m.filter(func(msg *Message) bool { return msg.ThreadID == threadID && msg.Involves(user) }, false), nil
}

func (m *mockRepo) MarkRead(_ context.Context, id uuid.UUID, at time.Time) error {
	msg, ok := m.msgs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if msg.ReadAt == nil {
		msg.ReadAt = &at
	}
	return nil
}

func (m *mockRepo) UnreadCount(_ context.Context, recipient uuid.UUID) (int, error) {
	return len(m.filter(func(msg *Message) bool { return msg.RecipientID == recipient && msg.ReadAt == nil }, false)), nil
}
