package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/practicehub/practicehub/internal/platform/db"
)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deleteRow(ctx context.Context, q db.Querier, table string, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func countByPatient(ctx context.Context, q db.Querier, table string, patientID uuid.UUID) (int, error) {
	var total int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

// -- Vital signs --

type vitalsRepoPG struct {
	pool *pgxpool.Pool
}

func NewVitalsRepo(pool *pgxpool.Pool) VitalsRepository {
	return &vitalsRepoPG{pool: pool}
}

func (r *vitalsRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const vitalsCols = `id, patient_id, recorded_by, recorded_at, systolic, diastolic, heart_rate, respiratory_rate,
	temperature_f, oxygen_saturation, height_in, weight_lb, bmi, pain_level, COALESCE(notes, ''), created_at`

func scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(&v.ID, &v.PatientID, &v.RecordedBy, &v.RecordedAt, &v.Systolic, &v.Diastolic,
		&v.HeartRate, &v.RespiratoryRate, &v.TemperatureF, &v.OxygenSaturation, &v.HeightIn, &v.WeightLb,
		&v.BMI, &v.PainLevel, &v.Notes, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vitalsRepoPG) Create(ctx context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vital_signs (id, patient_id, recorded_by, recorded_at, systolic, diastolic, heart_rate,
			respiratory_rate, temperature_f, oxygen_saturation, height_in, weight_lb, bmi, pain_level, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at`,
		v.ID, v.PatientID, v.RecordedBy, v.RecordedAt, v.Systolic, v.Diastolic, v.HeartRate,
		v.RespiratoryRate, v.TemperatureF, v.OxygenSaturation, v.HeightIn, v.WeightLb, v.BMI, v.PainLevel,
		nullable(v.Notes),
	).Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert vital signs: %w", err)
	}
	return nil
}

func (r *vitalsRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*VitalSigns, error) {
	return scanVitals(r.conn(ctx).QueryRow(ctx, `SELECT `+vitalsCols+` FROM vital_signs WHERE id = $1`, id))
}

func (r *vitalsRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteRow(ctx, r.conn(ctx), "vital_signs", id)
}

func (r *vitalsRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	total, err := countByPatient(ctx, r.conn(ctx), "vital_signs", patientID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalsCols+` FROM vital_signs
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list vital signs: %w", err)
	}
	defer rows.Close()
	var items []*VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

// -- Progress notes --

type noteRepoPG struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const noteCols = `id, patient_id, provider_id, visit_date, COALESCE(subjective, ''), COALESCE(objective, ''),
	COALESCE(assessment, ''), COALESCE(plan, ''), status, signed_by, signed_at, created_at, updated_at`

func scanNote(row pgx.Row) (*ProgressNote, error) {
	var n ProgressNote
	var status string
	err := row.Scan(&n.ID, &n.PatientID, &n.ProviderID, &n.VisitDate, &n.Subjective, &n.Objective,
		&n.Assessment, &n.Plan, &status, &n.SignedBy, &n.SignedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Status = NoteStatus(status)
	return &n, nil
}

func (r *noteRepoPG) Create(ctx context.Context, n *ProgressNote) error {
	n.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO progress_note (id, patient_id, provider_id, visit_date, subjective, objective, assessment, plan, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		n.ID, n.PatientID, n.ProviderID, n.VisitDate, nullable(n.Subjective), nullable(n.Objective),
		nullable(n.Assessment), nullable(n.Plan), string(n.Status),
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert progress note: %w", err)
	}
	return nil
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProgressNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM progress_note WHERE id = $1`, id))
}

// Update never touches a signed row, so a race with signing cannot
// overwrite the signed text.
func (r *noteRepoPG) Update(ctx context.Context, n *ProgressNote) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE progress_note SET
			provider_id = $2, visit_date = $3, subjective = $4, objective = $5, assessment = $6, plan = $7,
			status = $8, signed_by = $9, signed_at = $10, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING updated_at`,
		n.ID, n.ProviderID, n.VisitDate, nullable(n.Subjective), nullable(n.Objective),
		nullable(n.Assessment), nullable(n.Plan), string(n.Status), n.SignedBy, n.SignedAt,
	).Scan(&n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update progress note: %w", err)
	}
	return nil
}

func (r *noteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteRow(ctx, r.conn(ctx), "progress_note", id)
}

func (r *noteRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error) {
	total, err := countByPatient(ctx, r.conn(ctx), "progress_note", patientID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+noteCols+` FROM progress_note
		WHERE patient_id = $1 ORDER BY visit_date DESC, created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list progress notes: %w", err)
	}
	defer rows.Close()
	var items []*ProgressNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// -- Treatment plans --

type planRepoPG struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const planCols = `id, patient_id, provider_id, title, COALESCE(diagnosis, ''), goals, interventions,
	start_date, end_date, status, created_at, updated_at`

func scanPlan(row pgx.Row) (*TreatmentPlan, error) {
	var p TreatmentPlan
	var status string
	err := row.Scan(&p.ID, &p.PatientID, &p.ProviderID, &p.Title, &p.Diagnosis, &p.Goals, &p.Interventions,
		&p.StartDate, &p.EndDate, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = PlanStatus(status)
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *TreatmentPlan) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_plan (id, patient_id, provider_id, title, diagnosis, goals, interventions,
			start_date, end_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.ProviderID, p.Title, nullable(p.Diagnosis), p.Goals, p.Interventions,
		p.StartDate, p.EndDate, string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert treatment plan: %w", err)
	}
	return nil
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plan WHERE id = $1`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *TreatmentPlan) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE treatment_plan SET
			provider_id = $2, title = $3, diagnosis = $4, goals = $5, interventions = $6,
			start_date = $7, end_date = $8, status = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.ProviderID, p.Title, nullable(p.Diagnosis), p.Goals, p.Interventions,
		p.StartDate, p.EndDate, string(p.Status),
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update treatment plan: %w", err)
	}
	return nil
}

func (r *planRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteRow(ctx, r.conn(ctx), "treatment_plan", id)
}

func (r *planRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error) {
	total, err := countByPatient(ctx, r.conn(ctx), "treatment_plan", patientID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+planCols+` FROM treatment_plan
		WHERE patient_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list treatment plans: %w", err)
	}
	defer rows.Close()
	var items []*TreatmentPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
