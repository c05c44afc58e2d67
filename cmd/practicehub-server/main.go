package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/practicehub/practicehub/internal/config"
	"github.com/practicehub/practicehub/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "practicehub-server",
		Short:        "PracticeHub practice management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(patientsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// connect loads config and opens the pool for one-shot commands.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

// companyFlag reads --company, falling back to DEFAULT_COMPANY.
func companyFlag(cmd *cobra.Command, cfg *config.Config) (string, error) {
	company, _ := cmd.Flags().GetString("company")
	if company == "" {
		company = cfg.DefaultCompany
	}
	if !db.ValidCompanyID(company) {
		return "", fmt.Errorf("invalid company identifier: %q", company)
	}
	return company, nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(strings.ToLower(r)); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
