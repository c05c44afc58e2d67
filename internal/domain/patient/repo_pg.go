package patient

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

const patientCols = `id, account_number, first_name, COALESCE(middle_name, ''), last_name,
	date_of_birth, gender, COALESCE(email, ''), phone, COALESCE(alt_phone, ''),
	COALESCE(address_line1, ''), COALESCE(address_line2, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(zip, ''),
	COALESCE(emergency_name, ''), COALESCE(emergency_phone, ''), COALESCE(emergency_relationship, ''),
	status, risk_level, allergies, medications, conditions, surgeries, family_history,
	primary_provider_id, practice_id, last_visit, version, created_at, updated_at`

const insuranceCols = `id, patient_id, rank, provider_name, policy_number, COALESCE(group_number, ''),
	COALESCE(subscriber_name, ''), COALESCE(subscriber_relationship, ''), effective_date, expiration_date`

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.AccountNumber == "" {
		p.AccountNumber = NewAccountNumber()
	}
	p.Version = 1

	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, account_number, first_name, middle_name, last_name,
			date_of_birth, gender, email, phone, alt_phone,
			address_line1, address_line2, city, state, zip,
			emergency_name, emergency_phone, emergency_relationship,
			status, risk_level, allergies, medications, conditions, surgeries, family_history,
			primary_provider_id, practice_id, last_visit, version
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18,
			$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29
		) RETURNING created_at, updated_at`,
		p.ID, p.AccountNumber, p.FirstName, nullable(p.MiddleName), p.LastName,
		p.DateOfBirth, p.Gender, nullable(p.Email), p.Phone, nullable(p.AltPhone),
		nullable(p.Address.Line1), nullable(p.Address.Line2), nullable(p.Address.City), nullable(p.Address.State), nullable(p.Address.Zip),
		nullable(p.EmergencyContact.Name), nullable(p.EmergencyContact.Phone), nullable(p.EmergencyContact.Relationship),
		string(p.Status), string(p.RiskLevel),
		nonNil(p.MedicalHistory.Allergies), nonNil(p.MedicalHistory.Medications), nonNil(p.MedicalHistory.Conditions),
		nonNil(p.MedicalHistory.Surgeries), nonNil(p.MedicalHistory.FamilyHistory),
		p.PrimaryProviderID, p.PracticeID, p.LastVisit, p.Version,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	for i := range p.Insurance {
		p.Insurance[i].PatientID = p.ID
		if err := r.UpsertInsurance(ctx, &p.Insurance[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return p, r.loadInsurance(ctx, []*Patient{p})
}

func (r *repoPG) GetByAccountNumber(ctx context.Context, accountNumber string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE account_number = $1`, accountNumber))
	if err != nil {
		return nil, err
	}
	return p, r.loadInsurance(ctx, []*Patient{p})
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET
			first_name = $2, middle_name = $3, last_name = $4, date_of_birth = $5, gender = $6,
			email = $7, phone = $8, alt_phone = $9,
			address_line1 = $10, address_line2 = $11, city = $12, state = $13, zip = $14,
			emergency_name = $15, emergency_phone = $16, emergency_relationship = $17,
			status = $18, risk_level = $19,
			allergies = $20, medications = $21, conditions = $22, surgeries = $23, family_history = $24,
			primary_provider_id = $25, practice_id = $26, last_visit = $27,
			version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version, updated_at`,
		p.ID, p.FirstName, nullable(p.MiddleName), p.LastName, p.DateOfBirth, p.Gender,
		nullable(p.Email), p.Phone, nullable(p.AltPhone),
		nullable(p.Address.Line1), nullable(p.Address.Line2), nullable(p.Address.City), nullable(p.Address.State), nullable(p.Address.Zip),
		nullable(p.EmergencyContact.Name), nullable(p.EmergencyContact.Phone), nullable(p.EmergencyContact.Relationship),
		string(p.Status), string(p.RiskLevel),
		nonNil(p.MedicalHistory.Allergies), nonNil(p.MedicalHistory.Medications), nonNil(p.MedicalHistory.Conditions),
		nonNil(p.MedicalHistory.Surgeries), nonNil(p.MedicalHistory.FamilyHistory),
		p.PrimaryProviderID, p.PracticeID, p.LastVisit,
	).Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	items, err := collectPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, r.loadInsurance(ctx, items)
}

func (r *repoPG) All(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	items, err := collectPatients(rows)
	if err != nil {
		return nil, err
	}
	return items, r.loadInsurance(ctx, items)
}

func (r *repoPG) UpsertInsurance(ctx context.Context, ins *Insurance) error {
	if ins.ID == uuid.Nil {
		ins.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_insurance (
			id, patient_id, rank, provider_name, policy_number, group_number,
			subscriber_name, subscriber_relationship, effective_date, expiration_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (patient_id, rank) DO UPDATE SET
			provider_name = EXCLUDED.provider_name,
			policy_number = EXCLUDED.policy_number,
			group_number = EXCLUDED.group_number,
			subscriber_name = EXCLUDED.subscriber_name,
			subscriber_relationship = EXCLUDED.subscriber_relationship,
			effective_date = EXCLUDED.effective_date,
			expiration_date = EXCLUDED.expiration_date,
			updated_at = NOW()
		RETURNING id`,
		ins.ID, ins.PatientID, string(ins.Rank), ins.ProviderName, ins.PolicyNumber, nullable(ins.GroupNumber),
		nullable(ins.SubscriberName), nullable(ins.SubscriberRelationship), ins.EffectiveDate, ins.ExpirationDate,
	).Scan(&ins.ID)
	if err != nil {
		return fmt.Errorf("upsert insurance: %w", err)
	}
	return nil
}

func (r *repoPG) DeleteInsurance(ctx context.Context, patientID uuid.UUID, rank Rank) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_insurance WHERE patient_id = $1 AND rank = $2`, patientID, string(rank))
	if err != nil {
		return fmt.Errorf("delete insurance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) loadInsurance(ctx context.Context, patients []*Patient) error {
	if len(patients) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Patient, len(patients))
	ids := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		p.Insurance = []Insurance{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+insuranceCols+` FROM patient_insurance WHERE patient_id = ANY($1) ORDER BY rank`, ids)
	if err != nil {
		return fmt.Errorf("load insurance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ins Insurance
		var rank string
		if err := rows.Scan(&ins.ID, &ins.PatientID, &rank, &ins.ProviderName, &ins.PolicyNumber, &ins.GroupNumber,
			&ins.SubscriberName, &ins.SubscriberRelationship, &ins.EffectiveDate, &ins.ExpirationDate); err != nil {
			return fmt.Errorf("scan insurance: %w", err)
		}
		ins.Rank = Rank(rank)
		if p, ok := byID[ins.PatientID]; ok {
			p.Insurance = append(p.Insurance, ins)
		}
	}
	return rows.Err()
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var status, risk string
	var dob time.Time
	err := row.Scan(
		&p.ID, &p.AccountNumber, &p.FirstName, &p.MiddleName, &p.LastName,
		&dob, &p.Gender, &p.Email, &p.Phone, &p.AltPhone,
		&p.Address.Line1, &p.Address.Line2, &p.Address.City, &p.Address.State, &p.Address.Zip,
		&p.EmergencyContact.Name, &p.EmergencyContact.Phone, &p.EmergencyContact.Relationship,
		&status, &risk,
		&p.MedicalHistory.Allergies, &p.MedicalHistory.Medications, &p.MedicalHistory.Conditions,
		&p.MedicalHistory.Surgeries, &p.MedicalHistory.FamilyHistory,
		&p.PrimaryProviderID, &p.PracticeID, &p.LastVisit, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.DateOfBirth = dob
	p.Status = Status(status)
	p.RiskLevel = RiskLevel(risk)
	return &p, nil
}
