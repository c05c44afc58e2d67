package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/blobstore"
	"github.com/practicehub/practicehub/internal/platform/db"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes = 25 << 20

type Service struct {
	repo     Repository
	store    blobstore.BlobStore
	maxBytes int64
	logger   zerolog.Logger
}

func NewService(repo Repository, store blobstore.BlobStore, maxBytes int64, logger zerolog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{repo: repo, store: store, maxBytes: maxBytes, logger: logger}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) tooLarge() error {
	return &apierr.Error{
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("file exceeds the %d MB upload limit", s.maxBytes>>20),
	}
}

// Upload stores the content of r and records its metadata. The blob is
// removed again when the metadata cannot be saved.
func (s *Service) Upload(ctx context.Context, u Upload, r io.Reader) (*Document, error) {
	u.normalize()
	if errs := u.Validate(); len(errs) > 0 {
		return nil, errs
	}

	company := db.CompanyFromContext(ctx)
	if company == "" {
		company = "default"
	}
	d := &Document{
		ID:          uuid.New(),
		PatientID:   u.PatientID,
		Category:    u.Category,
		Title:       u.Title,
		FileName:    u.FileName,
		ContentType: u.ContentType,
		UploadedBy:  u.UploadedBy,
		Notes:       u.Notes,
	}
	d.StorageKey = blobstore.Key(company, d.ID.String())

	obj, err := s.store.Put(ctx, d.StorageKey, r, s.maxBytes)
	if errors.Is(err, blobstore.ErrTooLarge) {
		return nil, s.tooLarge()
	}
	if err != nil {
		return nil, fmt.Errorf("store document content: %w", err)
	}
	if obj.Size == 0 {
		s.removeBlob(ctx, d.StorageKey)
		return nil, apierr.BadRequest("uploaded file is empty")
	}
	d.SizeBytes = obj.Size
	d.SHA256 = obj.SHA256

	if err := s.repo.Create(ctx, d); err != nil {
		s.removeBlob(ctx, d.StorageKey)
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, category string, limit, offset int) ([]*Document, int, error) {
	return s.repo.ListByPatient(ctx, patientID, category, limit, offset)
}

// Open returns the document and its content. Callers close the reader.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, d.StorageKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, apierr.NotFound("document content is missing")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open document content: %w", err)
	}
	return d, rc, nil
}

// Delete removes the metadata row, then the content.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var key string
	err := db.Atomic(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		key = d.StorageKey
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.removeBlob(ctx, key)
	return nil
}

func (s *Service) removeBlob(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("orphaned document content")
	}
}
