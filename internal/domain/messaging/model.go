package messaging

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	MaxSubject = 255
	MaxBody    = 10000
)

// Message is a staff-to-staff message, optionally about a patient. Replies
// share the ThreadID of the message that started the conversation.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	PatientID   *uuid.UUID `json:"patient_id,omitempty"`
	ThreadID    uuid.UUID  `json:"thread_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Priority    Priority   `json:"priority"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (m *Message) Read() bool { return m.ReadAt != nil }

// Involves reports whether user sent or received m.
func (m *Message) Involves(user uuid.UUID) bool {
	return m.SenderID == user || m.RecipientID == user
}

func (m *Message) normalize() {
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
	if m.Priority == "" {
		m.Priority = PriorityNormal
	}
}

func (m *Message) Validate() validate.Errors {
	errs := validate.Errors{}
	if m.RecipientID == uuid.Nil {
		errs.Add("recipient_id", "Recipient is required")
	} else if m.RecipientID == m.SenderID {
		errs.Add("recipient_id", "You cannot send a message to yourself")
	}
	if validate.Required(errs, "subject", m.Subject, "Subject") && len(m.Subject) > MaxSubject {
		errs.Add("subject", "Subject is too long")
	}
	if validate.Required(errs, "body", m.Body, "Message") && len(m.Body) > MaxBody {
		errs.Add("body", "Message is too long")
	}
	validate.OneOf(errs, "priority", string(m.Priority), string(PriorityNormal), string(PriorityHigh), string(PriorityUrgent))
	return errs
}
