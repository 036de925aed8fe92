package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaLockID = int64(2026101801)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS drugs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	drug_type TEXT NOT NULL,
	generic_name TEXT NOT NULL DEFAULT '',
	brand_names JSONB NOT NULL DEFAULT '[]'::jsonb,
	drug_class TEXT NOT NULL DEFAULT '',
	common_uses JSONB NOT NULL DEFAULT '[]'::jsonb,
	rxnorm_id TEXT NOT NULL DEFAULT '',
	primary_search_term TEXT NOT NULL DEFAULT '',
	search_terms JSONB NOT NULL DEFAULT '[]'::jsonb,
	data_source TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	search_count BIGINT NOT NULL DEFAULT 0,
	upvotes INTEGER NOT NULL DEFAULT 0,
	downvotes INTEGER NOT NULL DEFAULT 0,
	total_votes INTEGER NOT NULL DEFAULT 0,
	rating_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drugs_type_status ON drugs(drug_type, status);
CREATE INDEX IF NOT EXISTS idx_drugs_primary_term ON drugs(primary_search_term);
CREATE INDEX IF NOT EXISTS idx_drugs_search_count ON drugs(search_count DESC);

CREATE TABLE IF NOT EXISTS drug_votes (
	id TEXT PRIMARY KEY,
	drug_id TEXT NOT NULL REFERENCES drugs(id) ON DELETE CASCADE,
	voter_id TEXT NOT NULL,
	vote_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_drug_votes_unique ON drug_votes(drug_id, voter_id, vote_type);

CREATE TABLE IF NOT EXISTS drug_import_requests (
	id TEXT PRIMARY KEY,
	drug_name TEXT NOT NULL,
	status TEXT NOT NULL,
	drug_id TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drug_import_requests_status ON drug_import_requests(status);
`

// EnsureSchema creates the catalogue, vote and import tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
