package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/tenzai/internal/app"
	"github.com/Additional-Code/tenzai/internal/assistant"
	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/logger"
	"github.com/Additional-Code/tenzai/internal/migration"
	"github.com/Additional-Code/tenzai/internal/seeder"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the root tenzai CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tenzai",
		Short:         "Tenzai restaurant ordering toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStartCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newClassifyCmd(),
		newAskCmd(),
	)
	return root
}

// ExecuteContext runs the tenzai CLI; long-running commands stop when ctx is cancelled.
func ExecuteContext(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run", "serve"},
		Short:   "Run the HTTP API, webhook receiver and gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Module)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order events and send status notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the notification ledger schema",
	}

	withMigrator := func(cmd *cobra.Command, fn func(context.Context, *migration.Migrator) error) error {
		var mig *migration.Migrator
		opts := fx.Options(app.Infra, migration.Module, fx.Populate(&mig))
		return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
			return fn(ctx, mig)
		})
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				v, err := mig.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ledger schema version %d\n", v)
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo menu into the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				n, err := seed.Menus(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d menus\n", n)
				return nil
			})
		},
	}
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Print the intent a chat message maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := assistant.Classify(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), intent)
			if answer, ok := assistant.FAQ(intent); ok {
				fmt.Fprintln(cmd.OutOrStdout(), answer)
			}
			return nil
		},
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [text]",
		Short: "Print the assistant's reply to a free-form question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var responder *assistant.Responder
			opts := fx.Options(config.Module, logger.Module, assistant.Module, fx.Populate(&responder))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				fmt.Fprintln(cmd.OutOrStdout(), responder.Respond(ctx, strings.Join(args, " "), "cli"))
				return nil
			})
		},
	}
}

func runUntilDone(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-application.Done():
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
