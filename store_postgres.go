package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps vehicle documents as rows keyed by (collection, id).
type PostgresStore struct {
	pool       *pgxpool.Pool
	collection string
	docID      string
}

func NewPostgresStore(ctx context.Context, dsn, collection, docID string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, collection: collection, docID: docID}, nil
}

// migrate applies migrations/*.sql in lexicographic order, one transaction each.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sqlb, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(sqlb)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context) (VehicleDocument, bool, error) {
	var doc VehicleDocument
	err := s.pool.QueryRow(ctx,
		`SELECT lat, lng, alert FROM vehicle_documents WHERE collection = $1 AND id = $2`,
		s.collection, s.docID,
	).Scan(&doc.Lat, &doc.Lng, &doc.Alert)
	if errors.Is(err, pgx.ErrNoRows) {
		return VehicleDocument{}, false, nil
	}
	if err != nil {
		return VehicleDocument{}, false, fmt.Errorf("select vehicle document: %w", err)
	}
	return doc, true, nil
}

func (s *PostgresStore) WriteAlarm(ctx context.Context, on bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vehicle_documents (collection, id, alert)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET alert = EXCLUDED.alert, updated_at = now()`,
		s.collection, s.docID, on,
	)
	if err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) WriteLocation(ctx context.Context, loc LatLng) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vehicle_documents (collection, id, lat, lng)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, updated_at = now()`,
		s.collection, s.docID, loc.Lat, loc.Lng,
	)
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
