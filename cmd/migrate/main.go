package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/migrate"
	"kycdesk.org/internal/store/pg"
)

var version = "dev"

type options struct {
	dsn        string
	migrations string
	seeds      string
	timeout    time.Duration
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the kycdesk PostgreSQL schema",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("KYC_PG_DSN"), "PostgreSQL DSN (defaults to KYC_PG_DSN)")
	root.PersistentFlags().StringVar(&opts.migrations, "migrations", "", "directory of *.up.sql/*.down.sql files (defaults to the embedded set)")
	root.PersistentFlags().StringVar(&opts.seeds, "seeds", "", "directory of seed *.sql files (defaults to the embedded set)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(
		upCmd(opts),
		downCmd(opts),
		statusCmd(opts),
		pendingCmd(opts),
		seedCmd(opts),
		bootstrapAdminCmd(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// withStore opens the database and runs fn with a timeout-bound context.
func withStore(cmd *cobra.Command, opts *options, fn func(ctx context.Context, st *pg.Store) error) error {
	if opts.dsn == "" {
		return errors.New("missing DSN: provide via --dsn or KYC_PG_DSN")
	}
	st, err := pg.Open(opts.dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	return fn(ctx, st)
}

func manager(opts *options, st *pg.Store) *migrate.Manager {
	var mopts []migrate.Option
	if opts.seeds != "" {
		mopts = append(mopts, migrate.WithSeeds(os.DirFS(opts.seeds)))
	}
	var migrations fs.FS
	if opts.migrations != "" {
		migrations = os.DirFS(opts.migrations)
	}
	return migrate.NewManager(st.DB(), migrations, mopts...)
}

func printAll(cmd *cobra.Command, verb string, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "nothing %s\n", verb)
		return
	}
	for _, n := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, n)
	}
}

func upCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *pg.Store) error {
				applied, err := manager(opts, st).Up(ctx)
				printAll(cmd, "applied", applied)
				return err
			})
		},
	}
}

func downCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *pg.Store) error {
				name, err := manager(opts, st).Down(ctx)
				if errors.Is(err, migrate.ErrNothingToRollback) {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", name)
				return nil
			})
		},
	}
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *pg.Store) error {
				history, err := manager(opts, st).Status(ctx)
				if err != nil {
					return err
				}
				for _, item := range history {
					fmt.Fprintln(cmd.OutOrStdout(), item)
				}
				return nil
			})
		},
	}
}

func pendingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List migrations not yet applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *pg.Store) error {
				pending, err := manager(opts, st).Pending(ctx)
				if err != nil {
					return err
				}
				printAll(cmd, "pending", pending)
				return nil
			})
		},
	}
}

func seedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run seed files that have not been executed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *pg.Store) error {
				seeded, err := manager(opts, st).Seed(ctx)
				printAll(cmd, "seeded", seeded)
				return err
			})
		},
	}
}

func bootstrapAdminCmd(opts *options) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first admin account",
		Long: `Create an admin dashboard account with a bcrypt-hashed password.

The password is read from --password or, when empty, from KYC_ADMIN_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("KYC_ADMIN_PASSWORD")
			}
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			return withStore(cmd, opts, func(ctx context.Context, st *pg.Store) error {
				u, err := st.CreateUser(ctx, auth.User{Name: name, Email: email, Role: auth.RoleAdmin, PasswordHash: hash})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
