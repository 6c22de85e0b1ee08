// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contacts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// BatchSize is the number of identifiers fetched per source call.
const BatchSize = 20

// Source yields article records for a search term. The PubMed client is the
// production implementation.
type Source interface {
	// Search returns the identifiers matching term, at most maxResults.
	Search(ctx context.Context, term string, maxResults int) ([]string, error)
	// Fetch returns the parsed records for one batch of identifiers.
	Fetch(ctx context.Context, ids []string) (types.ArticleBatch, error)
}

// Status summarizes how a run ended.
type Status int

const (
	// StatusOK means at least one row survived.
	StatusOK Status = iota
	// StatusNoArticles means the search matched nothing.
	StatusNoArticles
	// StatusNoRows means articles were processed but no row survived the filters.
	StatusNoRows
	// StatusSearchFailed means the identifier search itself failed.
	StatusSearchFailed
	// StatusFetchFailed means every batch fetch failed.
	StatusFetchFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoArticles:
		return "no articles"
	case StatusNoRows:
		return "no rows"
	case StatusSearchFailed:
		return "search failed"
	case StatusFetchFailed:
		return "fetch failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a pipeline run.
type Result struct {
	// Rows are the deduplicated rows in order of first occurrence.
	Rows []types.ResultRow
	// RawRows is the number of rows before deduplication.
	RawRows int
	// DuplicatesRemoved is RawRows - len(Rows).
	DuplicatesRemoved int
	// WithEmail counts rows that carry a real address.
	WithEmail int

	Articles         int
	RecordsProcessed int
	RecordsFiltered  int
	RecordsMalformed int
	Batches          int
	BatchesFailed    int
	Warnings         []string
	Status           Status
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver attaches a progress observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithBatchDelay paces batch fetches at most one per d. Zero disables pacing.
func WithBatchDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			p.limiter = nil
		}
	}
}

// Pipeline folds article records into result rows. It owns the only state
// that crosses record boundaries, the row accumulator, and is not safe for
// concurrent use.
type Pipeline struct {
	filter   *Filter
	observer Observer
	logger   *zap.Logger
	limiter  *rate.Limiter

	rows         []types.ResultRow
	articles     int
	processed    int
	filtered     int
	malformed    int
	batches      int
	failed       int
	searchFailed bool
	warnings     []string
}

// New returns a pipeline that applies cfg.
func New(cfg types.FilterConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		filter:   NewFilter(cfg),
		observer: NopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run searches src for term, fetches the matches in batches of BatchSize,
// and folds every record into the result. Search and batch failures are
// recorded as warnings; the only error returned is context cancellation.
func (p *Pipeline) Run(ctx context.Context, src Source, term string, maxResults int) (Result, error) {
	ids, err := src.Search(ctx, term, maxResults)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		p.searchFailed = true
		p.warn("search failed", zap.String("term", term), zap.Error(err))
		p.warnings = append(p.warnings, fmt.Sprintf("search %q: %v", term, err))
		return p.Finish(), nil
	}
	p.articles += len(ids)
	p.logger.Debug("search complete", zap.String("term", term), zap.Int("articles", len(ids)))

	batches := Batches(ids, BatchSize)
	for i, batch := range batches {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return Result{}, err
			}
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		n := i + 1
		p.batches++
		p.observer.BatchStarted(n, len(batches))

		ab, err := src.Fetch(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			p.failed++
			p.observer.BatchFailed(n, err)
			p.warn("batch failed", zap.Int("batch", n), zap.Int("total", len(batches)), zap.Error(err))
			p.warnings = append(p.warnings, fmt.Sprintf("batch %d/%d: %v", n, len(batches), err))
			continue
		}
		p.ProcessBatch(ab)
	}

	return p.Finish(), nil
}

// ProcessBatch folds every well-formed record of ab and reports the
// malformed ones.
func (p *Pipeline) ProcessBatch(ab types.ArticleBatch) {
	for _, m := range ab.Malformed {
		p.malformed++
		p.observer.RecordSkipped(m)
		p.warn("skipping malformed record", zap.String("pmid", m.PMID), zap.String("reason", m.Reason))
		p.warnings = append(p.warnings, fmt.Sprintf("record %s: %s", m.PMID, m.Reason))
	}
	for _, rec := range ab.Records {
		p.Process(rec)
	}
}

// Process folds a single record into the accumulator and returns the number
// of rows it contributed.
func (p *Pipeline) Process(rec types.ArticleRecord) int {
	p.processed++
	n := Normalize(rec)

	if !p.filter.MatchRecord(n) {
		p.filtered++
		p.observer.RecordProcessed(n.PMID, 0)
		return 0
	}

	articleEmails := ArticleEmails(n)
	strict := p.filter.Config().StrictAuthorEmails

	before := len(p.rows)
	for _, author := range n.Authors {
		emails := ResolveEmails(author, articleEmails, strict)
		p.rows = append(p.rows, p.filter.AuthorRows(n.Title, author, emails)...)
	}
	added := len(p.rows) - before
	p.observer.RecordProcessed(n.PMID, added)
	return added
}

// Finish deduplicates the accumulated rows and returns the result.
func (p *Pipeline) Finish() Result {
	rows, removed := Deduplicate(p.rows)

	withEmail := 0
	for _, r := range rows {
		if r.HasEmail() {
			withEmail++
		}
	}

	res := Result{
		Rows:              rows,
		RawRows:           len(p.rows),
		DuplicatesRemoved: removed,
		WithEmail:         withEmail,
		Articles:          p.articles,
		RecordsProcessed:  p.processed,
		RecordsFiltered:   p.filtered,
		RecordsMalformed:  p.malformed,
		Batches:           p.batches,
		BatchesFailed:     p.failed,
		Warnings:          p.warnings,
	}

	switch {
	case p.searchFailed:
		res.Status = StatusSearchFailed
	case p.articles == 0 && p.processed == 0 && p.malformed == 0:
		res.Status = StatusNoArticles
	case p.batches > 0 && p.failed == p.batches:
		res.Status = StatusFetchFailed
	case len(rows) == 0:
		res.Status = StatusNoRows
	default:
		res.Status = StatusOK
	}
	return res
}

func (p *Pipeline) warn(msg string, fields ...zap.Field) {
	p.logger.Warn(msg, fields...)
}

// Batches splits ids into consecutive chunks of at most size.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
