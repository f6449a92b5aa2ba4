// Command dashboard is the back-office console: it prints pipeline figures,
// imports legacy candidate exports and creates staff accounts.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"licensing/internal/admin"
	candidateservice "licensing/internal/candidate/service"
	candidatestore "licensing/internal/candidate/store"
	"licensing/internal/platform/config"
	"licensing/internal/platform/logger"
	"licensing/internal/platform/postgres"
	staffservice "licensing/internal/staff/service"
	staffstore "licensing/internal/staff/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Licensing back-office console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(statsCmd(), importCmd(), createStaffCmd())
	return root
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print candidate, exam, payment and license figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			st, err := admin.New(admin.NewPostgresSource(db)).Stats(cmd.Context())
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), admin.NewDashboardResponse(st))
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import candidates from a legacy JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readLegacyExport(args[0])
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := config.FromEnv()
			svc := candidateservice.New(candidatestore.NewPostgres(db),
				candidateservice.WithLogger(logger.New(cfg.Server.LogLevel)))
			renderImport(cmd.OutOrStdout(), svc.ImportLegacy(cmd.Context(), records))
			return nil
		},
	}
}

func createStaffCmd() *cobra.Command {
	var req staffservice.CreateRequest
	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create an admin or examiner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("DASHBOARD_STAFF_PASSWORD")
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			st, err := staffservice.New(staffstore.NewPostgres(db)).Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", st.Role, st.Email, st.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Role, "role", "examiner", "admin or examiner")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password (defaults to $DASHBOARD_STAFF_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func openDB(ctx context.Context) (*sql.DB, error) {
	cfg := config.FromEnv()
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// readLegacyExport accepts either a JSON array of records or an object with
// a "candidates" array, the two shapes the old system exported.
func readLegacyExport(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Candidates []map[string]any `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wrapped.Candidates, nil
}
