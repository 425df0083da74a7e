// Package store persists fetched email records in PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/email"
)

//go:embed schema.sql
var schema string

// Store is the persistence surface the services depend on.
type Store interface {
	Upsert(ctx context.Context, rec email.Record) error
	List(ctx context.Context) ([]email.Record, error)
}

// Postgres is the pgx-backed Store.
type Postgres struct {
	pool *pgxpool.Pool
}

func connString(cfg config.DatabaseConfig, dbname string) string {
	sslMode := "disable"
	if cfg.TLSMode {
		sslMode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, dbname, sslMode)
}

// EnsureDatabase creates the target database via the postgres maintenance DB
// if it does not exist yet.
func EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	conn, err := pgx.Connect(ctx, connString(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("connect maintenance database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database %s: %w", cfg.Name, err)
	}
	if exists {
		return nil
	}
	ident := pgx.Identifier{cfg.Name}.Sanitize()
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Name, err)
	}
	return nil
}

// NewPostgres opens a connection pool against the configured database and
// applies the embedded schema.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(connString(cfg, cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Upsert inserts the record or refreshes its metadata when the provider id is
// already present. Records are never deleted by this subsystem.
func (p *Postgres) Upsert(ctx context.Context, rec email.Record) error {
	var received *time.Time
	if !rec.ReceivedAt.IsZero() {
		received = &rec.ReceivedAt
	}
	labels := rec.Labels
	if labels == nil {
		labels = []string{}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO emails (email_id, sender, recipient, subject, received_date, snippet, labels, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (email_id) DO UPDATE SET
			sender = EXCLUDED.sender,
			recipient = EXCLUDED.recipient,
			subject = EXCLUDED.subject,
			received_date = EXCLUDED.received_date,
			snippet = EXCLUDED.snippet,
			labels = EXCLUDED.labels,
			fetched_at = now()`,
		rec.ID, rec.From, rec.To, rec.Subject, received, rec.Snippet, labels)
	if err != nil {
		return fmt.Errorf("upsert email %s: %w", rec.ID, err)
	}
	return nil
}

// List returns every stored record in insertion order.
func (p *Postgres) List(ctx context.Context) ([]email.Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT email_id, sender, recipient, subject, received_date, snippet, labels
		FROM emails
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var records []email.Record
	for rows.Next() {
		var rec email.Record
		var received *time.Time
		if err := rows.Scan(&rec.ID, &rec.From, &rec.To, &rec.Subject, &received, &rec.Snippet, &rec.Labels); err != nil {
			return nil, fmt.Errorf("scan email row: %w", err)
		}
		if received != nil {
			rec.ReceivedAt = *received
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate email rows: %w", err)
	}
	return records, nil
}

var _ Store = (*Postgres)(nil)
