package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/practicehub/practicehub/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const apptCols = `id, patient_id, provider_id, practice_id, start_time, duration_minutes, type, status,
	COALESCE(reason, ''), COALESCE(notes, ''), reminder_sent_at, created_by, created_at, updated_at`

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var typ, status string
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.PracticeID, &a.StartTime, &a.DurationMinutes,
		&typ, &status, &a.Reason, &a.Notes, &a.ReminderSentAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = AppointmentType(typ)
	a.Status = Status(status)
	return &a, nil
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, provider_id, practice_id, start_time, duration_minutes,
			type, status, reason, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.ProviderID, a.PracticeID, a.StartTime, a.DurationMinutes,
		string(a.Type), string(a.Status), nullable(a.Reason), nullable(a.Notes), a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment SET
			provider_id = $2, practice_id = $3, start_time = $4, duration_minutes = $5,
			type = $6, status = $7, reason = $8, notes = $9, reminder_sent_at = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.ProviderID, a.PracticeID, a.StartTime, a.DurationMinutes,
		string(a.Type), string(a.Status), nullable(a.Reason), nullable(a.Notes), a.ReminderSentAt,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListRange(ctx context.Context, rg Range) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE start_time >= $1 AND start_time < $2`
	args := []interface{}{rg.From, rg.To}
	if rg.ProviderID != nil {
		query += ` AND provider_id = $3`
		args = append(args, *rg.ProviderID)
	}
	rows, err := r.conn(ctx).Query(ctx, query+` ORDER BY start_time`, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collect(rows)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patient appointments: %w", err)
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) DueForReminder(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE start_time >= $1 AND start_time < $2
		  AND reminder_sent_at IS NULL
		  AND status IN ('scheduled', 'confirmed')
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return collect(rows)
}

func (r *repoPG) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET reminder_sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark appointment reminded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
