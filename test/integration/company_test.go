//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/migrations"
)

func TestCompanySchema_Migrated(t *testing.T) {
	_, id := newCompany(t)
	ctx := context.Background()

	ids, err := db.Companies(ctx, pool)
	if err != nil {
		t.Fatalf("companies: %v", err)
	}
	found := false
	for _, c := range ids {
		found = found || c == id
	}
	if !found {
		t.Errorf("company %s not listed in %v", id, ids)
	}

	statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, db.SchemaName(id))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected migrations")
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %d %s not applied", s.Version, s.Name)
		}
	}

	again, err := db.NewMigrator(pool, migrations.FS).Up(ctx, db.SchemaName(id))
	if err != nil || again != 0 {
		t.Errorf("re-running migrations applied %d (%v)", again, err)
	}
}

func TestMissingTable_Classified(t *testing.T) {
	ctx := context.Background()
	id := "it_bare"
	if err := db.CreateCompanySchema(ctx, pool, id, nil); err != nil {
		t.Fatalf("create bare company: %v", err)
	}
	t.Cleanup(func() { pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+db.SchemaName(id)+" CASCADE") })

	scoped, release, err := db.ScopedConn(ctx, pool, id)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	defer release()

	_, err = auth.NewUserStore(pool).GetByEmail(scoped, "nobody@example.com")
	if kind := db.Classify(err); kind != db.KindMissingTable {
		t.Errorf("expected missing table, got %s (%v)", kind, err)
	}
}

func TestUserStore_LoginAndGrants(t *testing.T) {
	ctx, _ := newCompany(t)
	users := auth.NewUserStore(pool)

	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &auth.User{Email: "nurse@example.com", PasswordHash: hash, FirstName: "Nora", LastName: "Nurse", Roles: []string{auth.RoleNurse}, Active: true}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := auth.Authenticate(ctx, users, " Nurse@Example.com ", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID || len(got.Roles) != 1 || got.Roles[0] != auth.RoleNurse {
		t.Errorf("unexpected user %+v", got)
	}
	if _, err := auth.Authenticate(ctx, users, "nurse@example.com", "wrong password"); err != auth.ErrInvalidCredentials {
		t.Errorf("expected invalid credentials, got %v", err)
	}

	if err := users.GrantMenu(ctx, u.ID, "reports"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := users.GrantMenu(ctx, u.ID, "reports"); err != nil {
		t.Fatalf("repeat grant: %v", err)
	}
	grants, err := users.MenuGrants(ctx, u.ID)
	if err != nil || len(grants) != 1 || grants[0] != "reports" {
		t.Errorf("unexpected grants %v (%v)", grants, err)
	}
}
