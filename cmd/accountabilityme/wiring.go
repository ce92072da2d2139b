package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tedy97123/accountabiltyme/pkg/bundle"
	"github.com/tedy97123/accountabiltyme/pkg/config"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore/memstore"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore/sqlstore"
	"github.com/tedy97123/accountabiltyme/pkg/ledgersvc"
	"github.com/tedy97123/accountabiltyme/pkg/projector"
	"github.com/tedy97123/accountabiltyme/pkg/query"
	"github.com/tedy97123/accountabiltyme/pkg/registry"
	"github.com/tedy97123/accountabiltyme/pkg/signer"
)

// app bundles the wired-up core components a CLI subcommand needs.
type app struct {
	cfg       *config.Config
	store     eventstore.Store
	projector *projector.Projector
	registry  *registry.Registry
	service   *ledgersvc.Service
	query     *query.Query
	exporter  *bundle.Exporter
	system    *signer.SystemSigner
}

// buildApp wires the core from environment configuration (§4.12), opening a
// persistent store and replaying projections when a relational backend is
// configured.
func buildApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg := config.Load()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	system, err := signer.NewSystemSigner(cfg.SystemPrivateKeyB64, logger)
	if err != nil {
		return nil, fmt.Errorf("init system signer: %w", err)
	}

	proj := projector.New()
	if err := proj.Rebuild(ctx, store); err != nil {
		return nil, fmt.Errorf("rebuild projections: %w", err)
	}

	reg := registry.New(proj)
	svc := ledgersvc.New(store, proj, proj, proj, system, logger)
	q := query.New(proj, store, reg, svc)
	exp := bundle.NewExporter(q)

	return &app{
		cfg:       cfg,
		store:     store,
		projector: proj,
		registry:  reg,
		service:   svc,
		query:     q,
		exporter:  exp,
		system:    system,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (eventstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memstore.New(), nil
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return sqlstore.Open(ctx, sqlstore.DialectPostgres, db)
	case config.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return sqlstore.Open(ctx, sqlstore.DialectSQLite, db)
	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.Backend)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
