package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"github.com/autoshop-erp/autoshop/cmd/autoshop/cli"
	"github.com/autoshop-erp/autoshop/internal/app"
	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/platform/db"
)

func runCreateUser(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := pflag.NewFlagSet("create-user", pflag.ContinueOnError)
	opts := cli.CreateUserOptions{Stdout: os.Stdout, Stderr: os.Stderr}
	fs.StringVar(&opts.Email, "email", "", "account email")
	fs.StringVar(&opts.Name, "name", "Administrator", "display name")
	fs.StringVar(&opts.Role, "role", "Admin", "role to assign")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the created account as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts.Password = os.Getenv("AUTOSHOP_USER_PASSWORD")

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	service := auth.NewService(auth.NewRepository(pool), cfg.BcryptCost)
	return cli.CreateUserCommand(ctx, service, opts)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "jobs: want trigger, stats or scheduled")
		return 2
	}
	sub, rest := args[0], args[1:]

	fs := pflag.NewFlagSet("jobs "+sub, pflag.ContinueOnError)
	var triggerArgs cli.TriggerArgs
	fs.StringVar(&triggerArgs.DocumentID, "document", "", "notification document id")
	fs.DurationVar(&triggerArgs.Retention, "retention", cfg.IdempotencyRetention, "idempotency key retention for cleanup")
	size := fs.Int("size", 10, "number of scheduled tasks to list")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() { _ = c.Close() }()

	var out any
	var err error
	switch sub {
	case "trigger":
		if fs.NArg() != 1 {
			_, _ = fmt.Fprintln(os.Stderr, "jobs trigger: task type required")
			return 2
		}
		out, err = c.Trigger(ctx, fs.Arg(0), triggerArgs)
	case "stats":
		out, err = c.InspectQueue(ctx)
	case "scheduled":
		out, err = c.ListScheduled(ctx, *size)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "jobs: unknown subcommand %q\n", sub)
		return 2
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "jobs %s: %v\n", sub, err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 1
	}
	return 0
}
