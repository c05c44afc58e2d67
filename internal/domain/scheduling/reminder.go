package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/websocket"
)

const EventReminder = "appointment.reminder"

// Reminder is the payload of an appointment.reminder event.
type Reminder struct {
	AppointmentID string          `json:"appointment_id"`
	PatientID     string          `json:"patient_id"`
	StartTime     time.Time       `json:"start_time"`
	Type          AppointmentType `json:"type"`
	Reason        string          `json:"reason,omitempty"`
	CompanyID     string          `json:"company_id"`
}

// ScopeFunc binds ctx to a company's schema. Callers release the returned
// func when done.
type ScopeFunc func(ctx context.Context, companyID string) (context.Context, func(), error)

// ReminderJob sends one reminder per upcoming appointment to the user who
// booked it, across every company.
type ReminderJob struct {
	svc       *Service
	pub       websocket.Publisher
	companies func(ctx context.Context) ([]string, error)
	scope     ScopeFunc
	lead      time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewReminderJob(svc *Service, pub websocket.Publisher, companies func(ctx context.Context) ([]string, error), scope ScopeFunc, lead time.Duration, logger zerolog.Logger) *ReminderJob {
	return &ReminderJob{
		svc:       svc,
		pub:       pub,
		companies: companies,
		scope:     scope,
		lead:      lead,
		now:       time.Now,
		logger:    logger.With().Str("job", "appointment-reminders").Logger(),
	}
}

// Run processes every company. A failing company does not stop the others;
// their errors are joined.
func (j *ReminderJob) Run(ctx context.Context) error {
	ids, err := j.companies(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, cid := range ids {
		sent, err := j.runCompany(ctx, cid)
		if err != nil {
			errs = append(errs, fmt.Errorf("company %s: %w", cid, err))
			continue
		}
		if sent > 0 {
			j.logger.Info().Str("company_id", cid).Int("sent", sent).Msg("appointment reminders sent")
		}
	}
	return errors.Join(errs...)
}

func (j *ReminderJob) runCompany(ctx context.Context, companyID string) (int, error) {
	ctx, release, err := j.scope(ctx, companyID)
	if err != nil {
		return 0, err
	}
	defer release()

	now := j.now().UTC()
	due, err := j.svc.DueForReminder(ctx, now, j.lead)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, a := range due {
		if a.CreatedBy != nil {
			ev, err := websocket.NewEvent(websocket.UserTopic(a.CreatedBy.String()), EventReminder, Reminder{
				AppointmentID: a.ID.String(),
				PatientID:     a.PatientID.String(),
				StartTime:     a.StartTime,
				Type:          a.Type,
				Reason:        a.Reason,
				CompanyID:     companyID,
			})
			if err != nil {
				return sent, err
			}
			// Unmarked appointments are retried on the next run.
			if err := j.pub.Publish(ctx, ev); err != nil {
				j.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("reminder publish failed")
				continue
			}
			sent++
		}
		if err := j.svc.MarkReminded(ctx, a.ID, now); err != nil {
			return sent, err
		}
	}
	return sent, nil
}
