package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/practicehub/practicehub/internal/domain/patient"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to one company, or all with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			companies := []string{}
			if all, _ := cmd.Flags().GetBool("all"); all {
				if companies, err = db.Companies(ctx, pool); err != nil {
					return err
				}
			} else {
				company, err := companyFlag(cmd, cfg)
				if err != nil {
					return err
				}
				companies = append(companies, company)
			}

			migrator := db.NewMigrator(pool, migrations.FS)
			for _, company := range companies {
				schema := db.SchemaName(company)
				count, err := migrator.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", schema, err)
				}
				fmt.Printf("%s: applied %d migration(s)\n", schema, count)
			}
			return nil
		},
	}
	upCmd.Flags().String("company", "", "Company identifier (default DEFAULT_COMPANY)")
	upCmd.Flags().Bool("all", false, "Migrate every company schema")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			company, err := companyFlag(cmd, cfg)
			if err != nil {
				return err
			}
			schema := db.SchemaName(company)
			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("company", "", "Company identifier (default DEFAULT_COMPANY)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a company schema and apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.CreateCompanySchema(ctx, pool, name, migrations.FS); err != nil {
				return err
			}
			fmt.Printf("Company %s created in schema %s\n", name, db.SchemaName(name))
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Company identifier (letters, digits, underscore)")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List company schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			ids, err := db.Companies(ctx, pool)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff logins",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff login in a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			first, _ := cmd.Flags().GetString("first-name")
			last, _ := cmd.Flags().GetString("last-name")
			rolesFlag, _ := cmd.Flags().GetString("roles")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			roles := splitRoles(rolesFlag)
			if len(roles) == 0 {
				return fmt.Errorf("--roles is required")
			}
			for _, r := range roles {
				if !auth.ValidRole(r) {
					return fmt.Errorf("unknown role %q", r)
				}
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			company, err := companyFlag(cmd, cfg)
			if err != nil {
				return err
			}
			ctx, release, err := db.ScopedConn(ctx, pool, company)
			if err != nil {
				return err
			}
			defer release()

			u := &auth.User{
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: hash,
				FirstName:    first,
				LastName:     last,
				Roles:        roles,
				Active:       true,
			}
			if err := auth.NewUserStore(pool).Create(ctx, u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Printf("Created user %s (%s) in company %s\n", u.Email, u.ID, company)
			return nil
		},
	}
	createCmd.Flags().String("company", "", "Company identifier (default DEFAULT_COMPANY)")
	createCmd.Flags().String("email", "", "Login email")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("first-name", "", "First name")
	createCmd.Flags().String("last-name", "", "Last name")
	createCmd.Flags().String("roles", auth.RoleFrontDesk, "Comma separated roles")
	cmd.AddCommand(createCmd)

	grantCmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a navigation item on top of the user's role defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			item, _ := cmd.Flags().GetString("item")
			if email == "" || item == "" {
				return fmt.Errorf("--email and --item are required")
			}

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			company, err := companyFlag(cmd, cfg)
			if err != nil {
				return err
			}
			ctx, release, err := db.ScopedConn(ctx, pool, company)
			if err != nil {
				return err
			}
			defer release()

			users := auth.NewUserStore(pool)
			u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return fmt.Errorf("find user: %w", err)
			}
			if err := users.GrantMenu(ctx, u.ID, item); err != nil {
				return err
			}
			fmt.Printf("Granted %s to %s\n", item, u.Email)
			return nil
		},
	}
	grantCmd.Flags().String("company", "", "Company identifier (default DEFAULT_COMPANY)")
	grantCmd.Flags().String("email", "", "Login email")
	grantCmd.Flags().String("item", "", "Navigation item id, e.g. reports")
	cmd.AddCommand(grantCmd)

	return cmd
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Import and export patient rosters",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export patients to CSV, or XLSX when --file ends in .xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			return withCompany(cmd, func(ctx context.Context, svc *patient.Service) error {
				patients, err := svc.Export(ctx)
				if err != nil {
					return err
				}
				out, err := os.Create(file)
				if err != nil {
					return err
				}
				defer out.Close()
				if strings.EqualFold(filepath.Ext(file), ".xlsx") {
					err = patient.WriteXLSX(out, patients)
				} else {
					err = patient.WriteCSV(out, patients)
				}
				if err != nil {
					return err
				}
				fmt.Printf("Exported %d patient(s) to %s\n", len(patients), file)
				return out.Close()
			})
		},
	}
	exportCmd.Flags().String("company", "", "Company identifier (default DEFAULT_COMPANY)")
	exportCmd.Flags().String("file", "", "Output path")
	cmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import patients from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			in, err := os.Open(file)
			if err != nil {
				return err
			}
			defer in.Close()
			rows, err := patient.ReadCSV(in)
			if err != nil {
				return err
			}
			return withCompany(cmd, func(ctx context.Context, svc *patient.Service) error {
				res := svc.Import(ctx, rows)
				fmt.Printf("Created %d, updated %d, failed %d\n", res.Created, res.Updated, len(res.Failed))
				for _, f := range res.Failed {
					fmt.Println(formatRowError(f))
				}
				return nil
			})
		},
	}
	importCmd.Flags().String("company", "", "Company identifier (default DEFAULT_COMPANY)")
	importCmd.Flags().String("file", "", "CSV path")
	cmd.AddCommand(importCmd)

	return cmd
}

// withCompany runs fn with a patient service bound to the --company schema.
func withCompany(cmd *cobra.Command, fn func(ctx context.Context, svc *patient.Service) error) error {
	ctx := context.Background()
	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	company, err := companyFlag(cmd, cfg)
	if err != nil {
		return err
	}
	ctx, release, err := db.ScopedConn(ctx, pool, company)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, patient.NewService(patient.NewRepo(pool)))
}

func formatRowError(f patient.RowError) string {
	if f.Error != "" {
		return fmt.Sprintf("  row %d: %s", f.Row, f.Error)
	}
	fields := make([]string, 0, len(f.Errors))
	for field, msg := range f.Errors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return fmt.Sprintf("  row %d: %s", f.Row, strings.Join(fields, "; "))
}
