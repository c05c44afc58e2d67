package practice

import (
	"context"
	"fmt"

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

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const practiceCols = `id, name, COALESCE(legal_name, ''), npi, COALESCE(tax_id, ''), COALESCE(taxonomy_code, ''),
	COALESCE(specialty, ''), COALESCE(phone, ''), COALESCE(fax, ''), COALESCE(email, ''), COALESCE(website, ''),
	physical_line1, COALESCE(physical_line2, ''), physical_city, physical_state, physical_zip,
	COALESCE(mailing_line1, ''), COALESCE(mailing_line2, ''), COALESCE(mailing_city, ''), COALESCE(mailing_state, ''), COALESCE(mailing_zip, ''),
	pay_to_same_as_physical,
	COALESCE(pay_to_line1, ''), COALESCE(pay_to_line2, ''), COALESCE(pay_to_city, ''), COALESCE(pay_to_state, ''), COALESCE(pay_to_zip, ''),
	active, created_at, updated_at`

func scanPractice(row pgx.Row) (*Practice, error) {
	var p Practice
	err := row.Scan(&p.ID, &p.Name, &p.LegalName, &p.NPI, &p.TaxID, &p.TaxonomyCode,
		&p.Specialty, &p.Phone, &p.Fax, &p.Email, &p.Website,
		&p.PhysicalAddress.Line1, &p.PhysicalAddress.Line2, &p.PhysicalAddress.City, &p.PhysicalAddress.State, &p.PhysicalAddress.Zip,
		&p.MailingAddress.Line1, &p.MailingAddress.Line2, &p.MailingAddress.City, &p.MailingAddress.State, &p.MailingAddress.Zip,
		&p.PayToSameAsPhysical,
		&p.PayToAddress.Line1, &p.PayToAddress.Line2, &p.PayToAddress.City, &p.PayToAddress.State, &p.PayToAddress.Zip,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func addressArgs(a Address) []interface{} {
	return []interface{}{nullable(a.Line1), nullable(a.Line2), nullable(a.City), nullable(a.State), nullable(a.Zip)}
}

func (r *repoPG) Create(ctx context.Context, p *Practice) error {
	p.ID = uuid.New()
	args := []interface{}{p.ID, p.Name, nullable(p.LegalName), p.NPI, nullable(p.TaxID), nullable(p.TaxonomyCode),
		nullable(p.Specialty), nullable(p.Phone), nullable(p.Fax), nullable(p.Email), nullable(p.Website),
		p.PhysicalAddress.Line1, nullable(p.PhysicalAddress.Line2), p.PhysicalAddress.City, p.PhysicalAddress.State, p.PhysicalAddress.Zip}
	args = append(args, addressArgs(p.MailingAddress)...)
	args = append(args, p.PayToSameAsPhysical)
	args = append(args, addressArgs(p.PayToAddress)...)
	args = append(args, p.Active)

	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO practice (
			id, name, legal_name, npi, tax_id, taxonomy_code, specialty, phone, fax, email, website,
			physical_line1, physical_line2, physical_city, physical_state, physical_zip,
			mailing_line1, mailing_line2, mailing_city, mailing_state, mailing_zip,
			pay_to_same_as_physical, pay_to_line1, pay_to_line2, pay_to_city, pay_to_state, pay_to_zip, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
		RETURNING created_at, updated_at`, args...,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert practice: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practice, error) {
	return scanPractice(r.conn(ctx).QueryRow(ctx, `SELECT `+practiceCols+` FROM practice WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Practice) error {
	args := []interface{}{p.ID, p.Name, nullable(p.LegalName), p.NPI, nullable(p.TaxID), nullable(p.TaxonomyCode),
		nullable(p.Specialty), nullable(p.Phone), nullable(p.Fax), nullable(p.Email), nullable(p.Website),
		p.PhysicalAddress.Line1, nullable(p.PhysicalAddress.Line2), p.PhysicalAddress.City, p.PhysicalAddress.State, p.PhysicalAddress.Zip}
	args = append(args, addressArgs(p.MailingAddress)...)
	args = append(args, p.PayToSameAsPhysical)
	args = append(args, addressArgs(p.PayToAddress)...)
	args = append(args, p.Active)

	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE practice SET
			name = $2, legal_name = $3, npi = $4, tax_id = $5, taxonomy_code = $6, specialty = $7,
			phone = $8, fax = $9, email = $10, website = $11,
			physical_line1 = $12, physical_line2 = $13, physical_city = $14, physical_state = $15, physical_zip = $16,
			mailing_line1 = $17, mailing_line2 = $18, mailing_city = $19, mailing_state = $20, mailing_zip = $21,
			pay_to_same_as_physical = $22,
			pay_to_line1 = $23, pay_to_line2 = $24, pay_to_city = $25, pay_to_state = $26, pay_to_zip = $27,
			active = $28, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`, args...,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update practice: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM practice WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete practice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Practice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM practice`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count practices: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+practiceCols+` FROM practice ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list practices: %w", err)
	}
	defer rows.Close()
	var items []*Practice
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

const providerCols = `id, practice_id, first_name, last_name, COALESCE(credential, ''), npi,
	COALESCE(taxonomy_code, ''), COALESCE(specialty, ''), COALESCE(email, ''), COALESCE(phone, ''),
	active, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.PracticeID, &p.FirstName, &p.LastName, &p.Credential, &p.NPI,
		&p.TaxonomyCode, &p.Specialty, &p.Email, &p.Phone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) CreateProvider(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO provider (id, practice_id, first_name, last_name, credential, npi, taxonomy_code, specialty, email, phone, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.PracticeID, p.FirstName, p.LastName, nullable(p.Credential), p.NPI,
		nullable(p.TaxonomyCode), nullable(p.Specialty), nullable(p.Email), nullable(p.Phone), p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (r *repoPG) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE id = $1`, id))
}

func (r *repoPG) UpdateProvider(ctx context.Context, p *Provider) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE provider SET
			first_name = $2, last_name = $3, credential = $4, npi = $5, taxonomy_code = $6,
			specialty = $7, email = $8, phone = $9, active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING practice_id, created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, nullable(p.Credential), p.NPI, nullable(p.TaxonomyCode),
		nullable(p.Specialty), nullable(p.Email), nullable(p.Phone), p.Active,
	).Scan(&p.PracticeID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	return nil
}

func (r *repoPG) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM provider WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListProviders(ctx context.Context, practiceID uuid.UUID) ([]*Provider, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+providerCols+` FROM provider WHERE practice_id = $1 ORDER BY last_name, first_name`, practiceID)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
