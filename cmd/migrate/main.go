package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/skincareplus/internal/config"
	"github.com/geocoder89/skincareplus/internal/db"
	"github.com/geocoder89/skincareplus/internal/observability"
)

const usage = `usage: migrate [flags] <command> [args]

commands:
  up          apply all pending migrations
  up-by-one   apply the next migration
  down        roll back the latest migration
  redo        roll back and re-apply the latest migration
  status      print the state of every migration
  version     print the current schema version
`

func main() {
	dsn := flag.String("dsn", "", "database url (defaults to DATABASE_URL / DB_* settings)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	dbURL := cfg.DBURL
	if *dsn != "" {
		dbURL = *dsn
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, dbURL, 2)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	command := flag.Arg(0)

	if err := db.Migrate(ctx, pool, command, flag.Args()[1:]...); err != nil {
		log.Error("migration failed", "command", command, "err", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migration finished", "command", command)
}
