package documents

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

const docCols = `id, patient_id, category, title, file_name, content_type, size_bytes, sha256,
	storage_key, uploaded_by, COALESCE(notes, ''), created_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.PatientID, &d.Category, &d.Title, &d.FileName, &d.ContentType, &d.SizeBytes,
		&d.SHA256, &d.StorageKey, &d.UploadedBy, &d.Notes, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	var notes *string
	if d.Notes != "" {
		notes = &d.Notes
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO document (id, patient_id, category, title, file_name, content_type, size_bytes, sha256,
			storage_key, uploaded_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`,
		d.ID, d.PatientID, d.Category, d.Title, d.FileName, d.ContentType, d.SizeBytes, d.SHA256,
		d.StorageKey, d.UploadedBy, notes,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return scanDocument(r.conn(ctx).QueryRow(ctx, `SELECT `+docCols+` FROM document WHERE id = $1`, id))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, category string, limit, offset int) ([]*Document, int, error) {
	where := ` WHERE patient_id = $1 AND ($2 = '' OR category = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM document`+where, patientID, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+docCols+` FROM document`+where+
		` ORDER BY created_at DESC LIMIT $3 OFFSET $4`, patientID, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
