//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/practicehub/practicehub/internal/domain/patient"
	"github.com/practicehub/practicehub/internal/domain/practice"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/migrations"
)

// pool is the shared database, started once in TestMain.
var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	url, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	pool, err = db.NewPool(ctx, url, 10, 1)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

func startPostgres(ctx context.Context) (string, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "practicehub_test",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start container: %w", err)
	}
	cleanup := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("container port: %w", err)
	}
	return fmt.Sprintf("postgres://test:testpass@%s:%s/practicehub_test?sslmode=disable", host, port.Port()), cleanup, nil
}

// newCompany creates a migrated company schema and returns a context bound
// to it. The schema is dropped when the test ends.
func newCompany(t *testing.T) (context.Context, string) {
	t.Helper()
	ctx := context.Background()
	id := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	if err := db.CreateCompanySchema(ctx, pool, id, migrations.FS); err != nil {
		t.Fatalf("create company %s: %v", id, err)
	}
	scoped, release, err := db.ScopedConn(ctx, pool, id)
	if err != nil {
		t.Fatalf("scope company %s: %v", id, err)
	}
	t.Cleanup(func() {
		release()
		if _, err := pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+db.SchemaName(id)+" CASCADE"); err != nil {
			t.Logf("warning: drop schema %s: %v", id, err)
		}
	})
	return scoped, id
}

func registerPatient(t *testing.T, ctx context.Context, svc *patient.Service, first, last string) *patient.Patient {
	t.Helper()
	p, err := svc.Register(ctx, patient.RegistrationForm{
		FirstName:         first,
		LastName:          last,
		DateOfBirth:       "1985-04-12",
		Gender:            "female",
		Email:             strings.ToLower(first) + "@example.com",
		Phone:             "(555) 123-4567",
		AddressLine1:      "12 Oak St",
		City:              "Springfield",
		State:             "IL",
		ZipCode:           "62701",
		InsuranceProvider: "Blue Cross",
		PolicyNumber:      "BC-1001",
		Allergies:         []string{"penicillin"},
	})
	if err != nil {
		t.Fatalf("register %s %s: %v", first, last, err)
	}
	return p
}

func createProvider(t *testing.T, ctx context.Context) *practice.Provider {
	t.Helper()
	svc := practice.NewService(practice.NewRepo(pool), nil)
	pr := &practice.Practice{
		Name:                "Springfield Family Medicine",
		NPI:                 "1234567893",
		Phone:               "(217) 555-0100",
		PhysicalAddress:     practice.Address{Line1: "100 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		PayToSameAsPhysical: true,
	}
	if err := svc.CreatePractice(ctx, pr); err != nil {
		t.Fatalf("create practice: %v", err)
	}
	prov := &practice.Provider{FirstName: "Jane", LastName: "Smith", Credential: "MD", NPI: "1234567893"}
	if err := svc.CreateProvider(ctx, pr.ID, prov); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	return prov
}
