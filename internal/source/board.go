package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/model"
)

const (
	retryWait    = 500 * time.Millisecond
	maxErrorBody = 256
)

// Board is a config-driven Adapter for one JSON job-board API.
type Board struct {
	cfg     BoardConfig
	client  *resty.Client
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewBoard constructs a Board with its own HTTP client, timeout and
// identifying User-Agent header.
func NewBoard(cfg BoardConfig, log logger.Logger, m *metrics.Metrics) *Board {
	cfg.setDefaults()
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(retryWait)

	return &Board{
		cfg:     cfg,
		client:  client,
		log:     log.With(logger.Component("source"), logger.Source(cfg.Name)),
		metrics: m,
		now:     time.Now,
	}
}

// Name returns the source identifier.
func (b *Board) Name() string { return b.cfg.Name }

// Fetch retrieves listings matching query and normalises them. Whole-request
// failures yield nil; malformed items are skipped individually.
func (b *Board) Fetch(ctx context.Context, query string) []model.Job {
	items, err := b.fetchItems(ctx, query)
	if err != nil {
		b.log.Error("fetch failed", logger.String(logger.FieldQuery, query), logger.Error(err))
		b.metrics.SourceFailed(b.cfg.Name)
		return nil
	}

	jobs := make([]model.Job, 0, len(items))
	for i, item := range items {
		if b.cfg.Skip != nil && b.cfg.Skip(item) {
			continue
		}
		job, err := b.normalize(item)
		if err != nil {
			b.log.Warn("skipping malformed item", logger.Int("index", i), logger.Error(err))
			b.metrics.ItemSkipped(b.cfg.Name)
			continue
		}
		if b.cfg.QueryMode == QueryTitle && !MatchesTitle(job.Title, query) {
			continue
		}
		jobs = append(jobs, job)
	}

	b.log.Info("fetched jobs",
		logger.String(logger.FieldQuery, query),
		logger.Int(logger.FieldCount, len(jobs)),
	)
	b.metrics.SourceFetched(b.cfg.Name, len(jobs))
	return jobs
}

// fetchItems walks up to MaxPages pages. A failure on the first page fails
// the request; a failure on a later page keeps what was already collected.
func (b *Board) fetchItems(ctx context.Context, query string) ([]gjson.Result, error) {
	var items []gjson.Result

	next := b.cfg.BaseURL
	for page := 1; page <= b.cfg.MaxPages && next != ""; page++ {
		payload, err := b.fetchPage(ctx, next, query, page == 1)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			b.log.Error("page fetch failed, keeping earlier pages", logger.Int("page", page), logger.Error(err))
			break
		}

		list := payload
		if b.cfg.ItemsPath != "" {
			list = payload.Get(b.cfg.ItemsPath)
		}
		if !list.IsArray() {
			if page == 1 {
				return nil, fmt.Errorf("payload has no listing array at %q", b.cfg.ItemsPath)
			}
			break
		}
		batch := list.Array()
		if len(batch) == 0 {
			break
		}
		items = append(items, batch...)

		next = ""
		if b.cfg.NextPath != "" {
			next = payload.Get(b.cfg.NextPath).String()
		}
	}
	return items, nil
}

func (b *Board) fetchPage(ctx context.Context, pageURL, query string, first bool) (gjson.Result, error) {
	req := b.client.R().SetContext(ctx)
	if first && b.cfg.QueryMode == QueryServer && query != "" {
		req.SetQueryParam(b.cfg.QueryParam, query)
	}

	resp, err := req.Get(pageURL)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("http GET: %w", err)
	}
	body := resp.Body()
	if !resp.IsSuccess() {
		return gjson.Result{}, fmt.Errorf("%s returned %d: %s", b.cfg.Name, resp.StatusCode(), truncate(body))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("malformed JSON payload: %s", truncate(body))
	}
	return gjson.ParseBytes(body), nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "…"
	}
	return string(body)
}
