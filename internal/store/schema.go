// Package store persists aggregated jobs in PostgreSQL and serves the read
// model used by the query API and the retention job.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id               BIGSERIAL PRIMARY KEY,
    title            VARCHAR(512) NOT NULL,
    company_name     TEXT,
    location         TEXT,
    url              TEXT NOT NULL UNIQUE,
    source           VARCHAR(512) NOT NULL,
    job_id           VARCHAR(512) NOT NULL UNIQUE,
    publication_date TIMESTAMPTZ NOT NULL,
    tags             TEXT,
    salary           TEXT,
    job_type         VARCHAR(512),
    scraped_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jobs_publication_date ON jobs (publication_date);
`

// Migrate creates the jobs table and its indexes if they do not exist.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate jobs table: %w", err)
	}
	return nil
}
