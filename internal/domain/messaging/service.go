package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/websocket"
)

const EventNewMessage = "message.new"

// Notice is the payload pushed to the recipient when a message arrives.
type Notice struct {
	ID       uuid.UUID `json:"id"`
	ThreadID uuid.UUID `json:"thread_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Subject  string    `json:"subject"`
	Priority Priority  `json:"priority"`
	Unread   int       `json:"unread"`
}

type Service struct {
	repo   Repository
	pub    websocket.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, pub websocket.Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger, now: time.Now}
}

var errNotFound = apierr.NotFound("message not found")

// Send stores m from sender and notifies the recipient. A message without
// a thread starts its own; a reply must name a thread the sender is part of.
func (s *Service) Send(ctx context.Context, sender uuid.UUID, m *Message) error {
	m.SenderID = sender
	m.ReadAt = nil
	m.normalize()
	if errs := m.Validate(); len(errs) > 0 {
		return errs
	}
	m.ID = uuid.New()
	if m.ThreadID == uuid.Nil {
		m.ThreadID = m.ID
	} else {
		thread, err := s.repo.ListThread(ctx, m.ThreadID, sender)
		if err != nil {
			return err
		}
		if len(thread) == 0 {
			return apierr.BadRequest("unknown thread")
		}
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	s.notify(ctx, m)
	return nil
}

// notify is best effort: the message is already stored and will show up in
// the inbox on the next load.
func (s *Service) notify(ctx context.Context, m *Message) {
	if s.pub == nil {
		return
	}
	unread, err := s.repo.UnreadCount(ctx, m.RecipientID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("count unread for notice")
	}
	ev, err := websocket.NewEvent(websocket.UserTopic(m.RecipientID.String()), EventNewMessage, Notice{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		SenderID: m.SenderID,
		Subject:  m.Subject,
		Priority: m.Priority,
		Unread:   unread,
	})
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("message_id", m.ID.String()).Msg("new message notice failed")
	}
}

func (s *Service) Inbox(ctx context.Context, user uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error) {
	return s.repo.ListInbox(ctx, user, unreadOnly, limit, offset)
}

func (s *Service) Sent(ctx context.Context, user uuid.UUID, limit, offset int) ([]*Message, int, error) {
	return s.repo.ListSent(ctx, user, limit, offset)
}

func (s *Service) Thread(ctx context.Context, threadID, user uuid.UUID) ([]*Message, error) {
	items, err := s.repo.ListThread(ctx, threadID, user)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNotFound
	}
	return items, nil
}

// Get returns a message the user sent or received. Other users' messages
// are reported as missing.
func (s *Service) Get(ctx context.Context, id, user uuid.UUID) (*Message, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Involves(user) {
		return nil, errNotFound
	}
	return m, nil
}

// MarkRead records the first time the recipient opened the message.
func (s *Service) MarkRead(ctx context.Context, id, user uuid.UUID) (*Message, error) {
	m, err := s.Get(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if m.RecipientID != user {
		return nil, apierr.Forbidden("only the recipient can mark a message read")
	}
	if m.Read() {
		return m, nil
	}
	at := s.now().UTC()
	if err := s.repo.MarkRead(ctx, id, at); err != nil {
		return nil, err
	}
	m.ReadAt = &at
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id, user uuid.UUID) error {
	if _, err := s.Get(ctx, id, user); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) UnreadCount(ctx context.Context, user uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, user)
}
