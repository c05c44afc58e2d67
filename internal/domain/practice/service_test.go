package practice

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/npi"
	"github.com/practicehub/practicehub/internal/platform/validate"
)

func newTestService() (*Service, *mockRepo, *stubRegistry) {
	repo := newMockRepo()
	reg := &stubRegistry{info: registryInfo()}
	return NewService(repo, reg), repo, reg
}

func TestService_CreatePractice(t *testing.T) {
	svc, repo, _ := newTestService()
	p := validPractice()
	if err := svc.CreatePractice(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil || !p.Active {
		t.Errorf("expected id and active flag, got %+v", p)
	}
	stored := repo.practices[p.ID]
	if stored.PayToAddress.Line1 != "100 Main St" {
		t.Errorf("expected pay-to copied before save, got %+v", stored.PayToAddress)
	}
}

func TestService_CreatePractice_Invalid(t *testing.T) {
	svc, repo, _ := newTestService()
	err := svc.CreatePractice(context.Background(), &Practice{})
	var verrs validate.Errors
	if !errors.As(err, &verrs) || !verrs.Has("name") {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(repo.practices) != 0 {
		t.Error("invalid practice must not be stored")
	}
}

func TestService_UpdatePractice(t *testing.T) {
	svc, repo, _ := newTestService()
	p := validPractice()
	svc.CreatePractice(context.Background(), p)

	p.Name = "Renamed Clinic"
	if err := svc.UpdatePractice(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.practices[p.ID].Name != "Renamed Clinic" {
		t.Error("update not stored")
	}

	missing := validPractice()
	missing.ID = uuid.New()
	if err := svc.UpdatePractice(context.Background(), missing); db.Classify(err) != db.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_Providers(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := validPractice()
	svc.CreatePractice(ctx, p)

	pr := validProvider()
	if err := svc.CreateProvider(ctx, p.ID, pr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.PracticeID != p.ID || !pr.Active {
		t.Errorf("unexpected provider %+v", pr)
	}

	list, err := svc.ListProviders(ctx, p.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 provider, got %d (%v)", len(list), err)
	}

	pr.Specialty = "Family Medicine"
	if err := svc.UpdateProvider(ctx, pr); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.GetProvider(ctx, pr.ID)
	if got.Specialty != "Family Medicine" || got.PracticeID != p.ID {
		t.Errorf("unexpected provider after update %+v", got)
	}

	if err := svc.DeleteProvider(ctx, pr.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestService_CreateProvider_UnknownPractice(t *testing.T) {
	svc, repo, _ := newTestService()
	err := svc.CreateProvider(context.Background(), uuid.New(), validProvider())
	if db.Classify(err) != db.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(repo.providers) != 0 {
		t.Error("provider must not be stored without a practice")
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T (%v)", err, err)
	}
	return ae.Status
}

func TestService_LookupNPI(t *testing.T) {
	svc, _, reg := newTestService()
	ctx := context.Background()

	info, err := svc.LookupNPI(ctx, validNPI)
	if err != nil || info.NPI != validNPI {
		t.Fatalf("unexpected lookup result %+v (%v)", info, err)
	}

	reg.err = npi.ErrNotFound
	if _, err := svc.LookupNPI(ctx, validNPI); statusOf(t, err) != http.StatusNotFound {
		t.Error("expected 404 for unknown NPI")
	}
	reg.err = npi.ErrInvalidNumber
	if _, err := svc.LookupNPI(ctx, "123"); statusOf(t, err) != http.StatusBadRequest {
		t.Error("expected 400 for invalid NPI")
	}
	reg.err = errors.New("connection refused")
	if _, err := svc.LookupNPI(ctx, validNPI); statusOf(t, err) != http.StatusBadGateway {
		t.Error("expected 502 when the registry is down")
	}

	noRegistry := NewService(newMockRepo(), nil)
	if _, err := noRegistry.LookupNPI(ctx, validNPI); statusOf(t, err) != http.StatusBadGateway {
		t.Error("expected 502 without a registry")
	}
}

func TestService_Prefill(t *testing.T) {
	svc, repo, _ := newTestService()
	p := &Practice{NPI: validNPI}
	if _, err := svc.PrefillPractice(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "SPRINGFIELD CLINIC LLC" || p.PhysicalAddress.Zip != "61602" {
		t.Errorf("draft not filled: %+v", p)
	}
	if len(repo.practices) != 0 {
		t.Error("prefill must not save")
	}

	pr := &Provider{NPI: validNPI}
	if _, err := svc.PrefillProvider(context.Background(), pr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.FullName() != "Jane Smith, MD" {
		t.Errorf("provider draft not filled: %+v", pr)
	}
}
