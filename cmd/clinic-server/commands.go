package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/frontdesk/internal/config"
	"github.com/clinic/frontdesk/internal/domain/admin"
	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/domain/identity"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/internal/platform/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (postgres store only)",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to run migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to read migration status")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				status, at := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, at)
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

// seedAccounts creates the admin account and, when enabled, the demo patient.
func seedAccounts(ctx context.Context, svc *identity.Service, cfg *config.Config, logger zerolog.Logger) error {
	created, err := svc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		logger.Info().Str("username", cfg.AdminUsername).Msg("admin account created")
	}

	if !cfg.SeedDemoPatient {
		return nil
	}
	created, err = svc.SeedDemoPatient(ctx)
	if err != nil {
		return fmt.Errorf("seed demo patient: %w", err)
	}
	if created {
		logger.Info().Str("username", identity.DemoPatientUsername).Msg("demo patient created")
	}
	return nil
}

// withStore loads config, opens the configured store and runs fn against it.
func withStore(fn func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, store clinic.Store) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()
	return fn(ctx, cfg, logger, be.store)
}

func adminSession(cfg *config.Config) auth.Session {
	return auth.Session{Username: cfg.AdminUsername, Role: clinic.RoleAdmin}
}

func seedCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and optionally the demo patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, store clinic.Store) error {
				if cmd.Flags().Changed("demo-patient") {
					cfg.SeedDemoPatient = demo
				}
				return seedAccounts(ctx, identity.NewService(store, logger), cfg, logger)
			})
		},
	}
	cmd.Flags().BoolVar(&demo, "demo-patient", false, "Also create the demo patient account")
	return cmd
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage doctor accounts",
	}

	var req identity.AddDoctorRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a doctor and print the generated username",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, store clinic.Store) error {
				acct, err := identity.NewService(store, logger).AddDoctor(ctx, adminSession(cfg), req)
				if err != nil {
					return err
				}
				fmt.Printf("Added %s (%s) as %s, username %s\n",
					acct.Doctor.Name, acct.Doctor.Specialty, acct.Doctor.ID, acct.Username)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&req.Name, "name", "", "Doctor's full name")
	addCmd.Flags().StringVar(&req.Specialty, "specialty", "", "Specialty, e.g. Cardiology")
	addCmd.Flags().StringVar(&req.Password, "password", "", "Initial password")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("specialty")
	_ = addCmd.MarkFlagRequired("password")
	cmd.AddCommand(addCmd)

	return cmd
}

func visitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visits",
		Short: "Print approved appointments per date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, store clinic.Store) error {
				counts, err := admin.NewService(store).VisitCounts(ctx, adminSession(cfg))
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "DATE\tVISITS")
				for i, d := range counts.Dates {
					fmt.Fprintf(w, "%s\t%d\n", d, counts.Counts[i])
				}
				return w.Flush()
			})
		},
	}
}
