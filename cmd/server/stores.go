package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"licensing/internal/admin"
	candidateservice "licensing/internal/candidate/service"
	candidatestore "licensing/internal/candidate/store"
	examservice "licensing/internal/exam/service"
	examstore "licensing/internal/exam/store"
	licenseservice "licensing/internal/license/service"
	licensestore "licensing/internal/license/store"
	"licensing/internal/notification"
	notificationstore "licensing/internal/notification/store"
	paymentservice "licensing/internal/payment/service"
	paymentstore "licensing/internal/payment/store"
	"licensing/internal/platform/config"
	"licensing/internal/platform/postgres"
	staffservice "licensing/internal/staff/service"
	staffstore "licensing/internal/staff/store"
	"licensing/pkg/platform/tx"
)

const txTimeout = 5 * time.Second

// stores is one storage backend for every module.
type stores struct {
	db           *sql.DB
	runner       tx.Runner
	candidates   candidateservice.Store
	staff        staffservice.Store
	exams        examservice.Store
	payments     paymentservice.Store
	licenses     licenseservice.Store
	outbox       notification.Store
	memoryCounts bool
}

// openStores selects Postgres when a DSN is configured and in-memory stores
// otherwise.
func openStores(ctx context.Context, cfg config.PostgresConfig) (*stores, error) {
	if cfg.DSN == "" {
		return &stores{
			runner:       tx.NewShardedRunner(txTimeout),
			candidates:   candidatestore.NewInMemory(),
			staff:        staffstore.NewInMemory(),
			exams:        examstore.NewInMemory(),
			payments:     paymentstore.NewInMemory(),
			licenses:     licensestore.NewInMemory(),
			outbox:       notificationstore.NewInMemory(),
			memoryCounts: true,
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &stores{
		db:         db,
		runner:     tx.NewPostgresRunner(db, txTimeout),
		candidates: candidatestore.NewPostgres(db),
		staff:      staffstore.NewPostgres(db),
		exams:      examstore.NewPostgres(db),
		payments:   paymentstore.NewPostgres(db),
		licenses:   licensestore.NewPostgres(db),
		outbox:     notificationstore.NewPostgres(db),
	}, nil
}

// dashboardSource counts with one SQL round trip on Postgres and through the
// services in memory.
func (s *stores) dashboardSource(src admin.ServiceSource) admin.Source {
	if s.memoryCounts {
		return src
	}
	return admin.NewPostgresSource(s.db)
}

func (s *stores) health(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *stores) close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
