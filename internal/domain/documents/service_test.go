package documents

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/blobstore"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/validate"
)

func newTestService(maxBytes int64) (*Service, *mockRepo, *blobstore.Memory) {
	repo := newMockRepo()
	store := blobstore.NewMemory()
	return NewService(repo, store, maxBytes, zerolog.Nop()), repo, store
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T (%v)", err, err)
	}
	return ae.Status
}

func TestService_UploadAndOpen(t *testing.T) {
	svc, repo, store := newTestService(0)
	ctx := db.WithCompany(context.Background(), "acme")
	patient := uuid.New()

	d, err := svc.Upload(ctx, labUpload(patient), strings.NewReader("%PDF-1.7 results"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.SizeBytes != 16 || len(d.SHA256) != 64 {
		t.Errorf("unexpected size/hash %d %q", d.SizeBytes, d.SHA256)
	}
	if d.StorageKey != "acme/"+d.ID.String() {
		t.Errorf("unexpected storage key %q", d.StorageKey)
	}
	if len(repo.docs) != 1 || store.Len() != 1 {
		t.Fatalf("expected one row and one blob, got %d/%d", len(repo.docs), store.Len())
	}

	got, rc, err := svc.Open(ctx, d.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "%PDF-1.7 results" || got.FileName != "cbc-2024-06.pdf" {
		t.Errorf("unexpected content %q / %+v", body, got)
	}
}

func TestService_Upload_Rejections(t *testing.T) {
	svc, repo, store := newTestService(8)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, labUpload(uuid.New()), strings.NewReader("way more than eight bytes")); statusOf(t, err) != http.StatusRequestEntityTooLarge {
		t.Error("expected 413 for oversized file")
	}
	if _, err := svc.Upload(ctx, labUpload(uuid.New()), strings.NewReader("")); statusOf(t, err) != http.StatusBadRequest {
		t.Error("expected 400 for empty file")
	}
	bad := labUpload(uuid.New())
	bad.Category = "misc"
	var verrs validate.Errors
	if _, err := svc.Upload(ctx, bad, strings.NewReader("x")); !errors.As(err, &verrs) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(repo.docs) != 0 || store.Len() != 0 {
		t.Errorf("rejected uploads left state behind: %d rows, %d blobs", len(repo.docs), store.Len())
	}
}

func TestService_Upload_RepoFailureRemovesBlob(t *testing.T) {
	svc, repo, store := newTestService(0)
	repo.failing = true
	_, err := svc.Upload(context.Background(), labUpload(uuid.New()), strings.NewReader("content"))
	if db.Classify(err) != db.KindMissingTable {
		t.Fatalf("expected missing table, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("blob must be removed when metadata fails")
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo, store := newTestService(0)
	ctx := context.Background()
	d, _ := svc.Upload(ctx, labUpload(uuid.New()), strings.NewReader("content"))

	if err := svc.Delete(ctx, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.docs) != 0 || store.Len() != 0 {
		t.Errorf("expected row and blob removed, got %d/%d", len(repo.docs), store.Len())
	}
	if err := svc.Delete(ctx, d.ID); db.Classify(err) != db.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_Open_MissingContent(t *testing.T) {
	svc, _, store := newTestService(0)
	ctx := context.Background()
	d, _ := svc.Upload(ctx, labUpload(uuid.New()), strings.NewReader("content"))
	store.Delete(ctx, d.StorageKey)

	if _, _, err := svc.Open(ctx, d.ID); statusOf(t, err) != http.StatusNotFound {
		t.Error("expected 404 for missing content")
	}
}

func TestService_ListByPatient(t *testing.T) {
	svc, _, _ := newTestService(0)
	ctx := context.Background()
	patient := uuid.New()
	svc.Upload(ctx, labUpload(patient), strings.NewReader("a"))
	card := labUpload(patient)
	card.Category = "insurance-card"
	card.FileName = "card.png"
	card.ContentType = "image/png"
	svc.Upload(ctx, card, strings.NewReader("b"))
	svc.Upload(ctx, labUpload(uuid.New()), strings.NewReader("c"))

	_, total, _ := svc.ListByPatient(ctx, patient, "", 10, 0)
	if total != 2 {
		t.Errorf("expected 2 documents, got %d", total)
	}
	items, total, _ := svc.ListByPatient(ctx, patient, "insurance-card", 10, 0)
	if total != 1 || items[0].FileName != "card.png" {
		t.Errorf("category filter failed: %d", total)
	}
}
