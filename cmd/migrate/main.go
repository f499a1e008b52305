// Command migrate manages the rental schema: tenants, rent_cycles, payments
// and the pending-cycle functions the allocation engine calls.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/shantivaas/rental/internal/infrastructure/config"
	"github.com/shantivaas/rental/internal/infrastructure/logger"
	"github.com/shantivaas/rental/internal/infrastructure/migration"
	"github.com/shantivaas/rental/migrations"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	// offline commands work on files and never open the database
	offline bool
	run     func(env *runEnv, args []string) error
}

type runEnv struct {
	dir string // empty means the embedded migrations
	log *zap.Logger
	m   *migration.Migrator
}

var commands = map[string]command{
	"up":      {usage: "up", run: func(e *runEnv, _ []string) error { return e.m.Up() }},
	"down":    {usage: "down", run: func(e *runEnv, _ []string) error { return e.m.Down() }},
	"step":    {usage: "step <n>", run: runStep},
	"goto":    {usage: "goto <version>", run: runGoto},
	"version": {usage: "version", run: runVersion},
	"force":   {usage: "force <version>", run: runForce},
	"create":  {usage: "create <name> [description]", offline: true, run: runCreate},
	"list":    {usage: "list", offline: true, run: runList},
}

func main() {
	dir := flag.String("path", "", "Path to a migrations directory (default: migrations embedded in the binary)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	env := &runEnv{dir: *dir, log: log}
	if !cmd.offline {
		db, err := openDatabase()
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		env.m, err = migration.New(db, env.dir, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		defer env.m.Close()
	}

	if err := cmd.run(env, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			log.Fatal("Invalid arguments", zap.String("usage", "migrate "+cmd.usage), zap.Error(err))
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func openDatabase() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func argInt(args []string, what string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%w: %s required", errUsage, what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errUsage, what, args[0])
	}
	return n, nil
}

func runStep(e *runEnv, args []string) error {
	n, err := argInt(args, "step count")
	if err != nil {
		return err
	}
	return e.m.Steps(n)
}

func runGoto(e *runEnv, args []string) error {
	v, err := argInt(args, "version")
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("%w: version must not be negative", errUsage)
	}
	return e.m.GoTo(uint(v))
}

func runForce(e *runEnv, args []string) error {
	v, err := argInt(args, "version")
	if err != nil {
		return err
	}
	e.log.Warn("Forcing migration version; the schema is not touched", zap.Int("version", v))
	return e.m.Force(v)
}

func runVersion(e *runEnv, _ []string) error {
	version, dirty, err := e.m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		e.log.Info("No migrations applied")
		return nil
	}
	e.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runCreate(e *runEnv, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migration name required", errUsage)
	}
	dir := e.dir
	if dir == "" {
		dir = "migrations"
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(e *runEnv, _ []string) error {
	var (
		names []string
		err   error
	)
	if e.dir == "" {
		names, err = migration.ListEmbeddedMigrations(migrations.FS)
	} else {
		names, err = migration.ListMigrations(e.dir)
	}
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.log.Info("No migrations found")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Rental schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                         Apply all pending migrations
  down                       Roll back all migrations
  step <n>                   Apply n migrations (negative rolls back)
  goto <version>             Migrate to a specific version
  version                    Show the applied version
  force <version>            Set the version without running SQL
  create <name> [desc]       Write the next migration file pair
  list                       List available migrations

Flags:
  -path string               Migrations directory (default: embedded)
  -log-level string          debug, info, warn, error (default: info)

Database settings come from config.toml or RENTAL_DATABASE_HOST, _PORT,
_USER, _PASSWORD, _DBNAME and _SSLMODE.
`)
}
