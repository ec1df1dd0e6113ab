package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/history"
	"github.com/dusk-indust/flowscan/internal/server"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	configDir := fs.String("config", ".", "directory containing flowscan.yml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()

	if envAddr := strings.TrimSpace(os.Getenv("FLOWSCAN_ADDR")); envAddr != "" {
		*addr = envAddr
	}

	cfg, err := builder.LoadConfig(*configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := server.NewHub()
	svc := server.NewScanService(store, cfg, hub)
	srv := server.New(*addr, server.NewMux(server.NewHandler(store, svc, hub)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// openStore picks the scan history backend: PostgreSQL when FLOWSCAN_PG_DSN
// is set, otherwise in-memory.
func openStore(ctx context.Context) (history.Store, error) {
	dsn := strings.TrimSpace(os.Getenv("FLOWSCAN_PG_DSN"))
	if dsn == "" {
		log.Printf("FLOWSCAN_PG_DSN not set, using in-memory scan history")
		return history.NewMemStore(), nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := history.NewPGStore(pool)
	if err := store.CreateSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return store, nil
}
