package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/aggregator-service/internal/model"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Querier is satisfied by *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Filter holds the query API parameters. Empty strings disable a filter.
type Filter struct {
	Query    string // substring across title/company/location/tags/job_type/salary/source
	Location string
	JobType  string
	Tags     string // comma-separated; every tag must be present
	Limit    int
	Skip     int
}

// Repository serves reads and bulk deletes over the jobs table.
type Repository struct {
	db Querier
}

// NewRepository constructs a Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// Search returns stored jobs matching f, newest first.
func (r *Repository) Search(ctx context.Context, f Filter) ([]model.StoredJob, error) {
	sql, args := buildSearch(f)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.StoredJob, 0)
	for rows.Next() {
		var j model.StoredJob
		var company, location, tags, salary, jobType *string
		if err := rows.Scan(
			&j.ID, &j.Title, &company, &location, &j.URL, &j.Source, &j.JobID,
			&j.PublicationDate, &tags, &salary, &jobType, &j.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.CompanyName = deref(company)
		j.Location = deref(location)
		j.Tags = model.SplitTags(deref(tags))
		j.Salary = deref(salary)
		j.JobType = deref(jobType)
		j.PublicationDate = j.PublicationDate.UTC()
		j.ScrapedAt = j.ScrapedAt.UTC()
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// DeleteOlderThan removes every job published before cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE publication_date < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// buildSearch renders the search statement. Only values are parameterised;
// column names are fixed.
func buildSearch(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg(containsPattern(q))
		cols := []string{"title", "company_name", "location", "tags", "job_type", "salary", "source"}
		ors := make([]string, len(cols))
		for i, c := range cols {
			ors[i] = c + " ILIKE " + p
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where = append(where, "location ILIKE "+arg(containsPattern(loc)))
	}
	if jt := strings.TrimSpace(f.JobType); jt != "" {
		where = append(where, "job_type ILIKE "+arg(containsPattern(jt)))
	}
	for _, tag := range model.SplitTags(f.Tags) {
		where = append(where, "(',' || COALESCE(tags, '') || ',') ILIKE "+arg("%,"+escapeLike(tag)+",%"))
	}

	sql := `SELECT id, title, company_name, location, url, source, job_id,
       publication_date, tags, salary, job_type, scraped_at
FROM jobs`
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, "\n  AND ")
	}
	sql += "\nORDER BY publication_date DESC, id DESC"
	sql += "\nLIMIT " + arg(clampLimit(f.Limit)) + " OFFSET " + arg(max(f.Skip, 0))
	return sql, args
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

func containsPattern(s string) string { return "%" + escapeLike(s) + "%" }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
