package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	docs    map[uuid.UUID]*Document
	failing bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: map[uuid.UUID]*Document{}}
}

func (m *mockRepo) Create(_ context.Context, d *Document) error {
	if m.failing {
		return errors.New(`relation "document" does not exist`)
	}
	d.CreatedAt = time.Now()
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.docs[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.docs, id)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, category string, limit, offset int) ([]*Document, int, error) {
	var out []*Document
	for _, d := range m.docs {
		if d.PatientID == patientID && (category == "" || d.Category == category) {
			out = append(out, d)
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func labUpload(patientID uuid.UUID) Upload {
	return Upload{
		PatientID:   patientID,
		Category:    "lab-result",
		FileName:    "cbc-2024-06.pdf",
		ContentType: "application/pdf",
	}
}
