package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/config"
	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/db"
	"github.com/clinic/frontdesk/internal/platform/middleware"
)

// backend is the opened document store plus whatever has to be closed with
// it. pool is only set for the postgres driver.
type backend struct {
	store     clinic.Store
	pool      *pgxpool.Pool
	recorders []middleware.AuditRecorder
	closeFn   func()
}

func (b *backend) Close() {
	if b.closeFn != nil {
		b.closeFn()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:     clinic.NewPGStore(pool, clinic.DefaultDocumentID),
			pool:      pool,
			recorders: []middleware.AuditRecorder{db.NewAuditLog(pool)},
			closeFn:   pool.Close,
		}, nil

	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		st, err := clinic.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: st,
			closeFn: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := st.Close(ctx); err != nil {
					logger.Error().Err(err).Msg("failed to disconnect mongo")
				}
			},
		}, nil

	default:
		return &backend{store: clinic.NewFileStore(cfg.DataFile)}, nil
	}
}
