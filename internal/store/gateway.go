package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/model"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Gateway idempotently inserts jobs keyed by job_id. Existing rows are never
// updated.
type Gateway struct {
	db      TxBeginner
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewGateway constructs a Gateway.
func NewGateway(db TxBeginner, log logger.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{db: db, log: log.With(logger.Component("store")), metrics: m}
}

// Persist inserts every job whose job_id is not stored yet, inside a single
// transaction, and returns the number of rows actually inserted.
//
// Invalid jobs and url collisions are skipped without affecting the batch.
// Any other storage error rolls the whole batch back and Persist returns
// (0, err).
func (g *Gateway) Persist(ctx context.Context, jobs []model.Job) (int, error) {
	tx, err := g.db.Begin(ctx)
	if err != nil {
		g.log.Error("begin transaction failed", logger.Error(err))
		return 0, fmt.Errorf("begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	var inserted, existing, skipped int
	for _, job := range jobs {
		ok, err := g.persistOne(ctx, tx, job)
		switch {
		case errors.As(err, new(*model.ValidationError)):
			g.log.Warn("skipping invalid job",
				logger.String(logger.FieldJobID, job.JobID),
				logger.Error(err),
			)
			skipped++
		case err != nil:
			g.log.Error("database error, rolling back batch",
				logger.String(logger.FieldJobID, job.JobID),
				logger.Error(err),
			)
			return 0, err
		case ok:
			inserted++
		default:
			existing++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		g.log.Error("commit failed", logger.Error(err))
		return 0, fmt.Errorf("commit: %w", err)
	}

	g.log.Info("saved new jobs",
		logger.Int("inserted", inserted),
		logger.Int("existing", existing),
		logger.Int("skipped", skipped),
	)
	g.metrics.Inserted(inserted)
	return inserted, nil
}

// persistOne reports whether job produced a new row.
func (g *Gateway) persistOne(ctx context.Context, tx pgx.Tx, job model.Job) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs WHERE job_id = $1)`, job.JobID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check job %s: %w", job.JobID, err)
	}
	if exists {
		return false, nil
	}

	// ON CONFLICT keeps a url collision (or a concurrent writer racing on the
	// same job_id) from aborting the transaction.
	tag, err := tx.Exec(ctx,
		`INSERT INTO jobs (title, company_name, location, url, source, job_id,
		                   publication_date, tags, salary, job_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT DO NOTHING`,
		job.Title,
		nullIfEmpty(job.CompanyName),
		nullIfEmpty(job.Location),
		job.URL,
		job.Source,
		job.JobID,
		model.NormalizeTime(job.PublicationDate),
		nullIfEmpty(model.JoinTags(job.Tags)),
		nullIfEmpty(job.Salary),
		nullIfEmpty(job.JobType),
	)
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", job.JobID, err)
	}
	if tag.RowsAffected() == 0 {
		g.log.Warn("job not inserted, conflicting row already stored",
			logger.String(logger.FieldJobID, job.JobID),
			logger.String(logger.FieldURL, job.URL),
		)
		return false, nil
	}
	return true, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
