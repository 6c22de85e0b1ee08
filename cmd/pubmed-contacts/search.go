// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pubmed-contacts/internal/contacts"
	"github.com/pdiddy/pubmed-contacts/internal/export"
	"github.com/pdiddy/pubmed-contacts/internal/metrics"
	"github.com/pdiddy/pubmed-contacts/internal/pubmed"
	"github.com/pdiddy/pubmed-contacts/internal/store"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// eutilsBase is the E-utilities root used by search. Declared as a var so
// tests can substitute an httptest server.
var eutilsBase = pubmed.BaseURL

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search PubMed and extract author contacts",
	Long: `Search queries PubMed for the given term (any PubMed query syntax), fetches
the matching articles in batches of 20, and extracts one row per author and
e-mail address. Rows are filtered by keyword, title, author name, and e-mail
domain, deduplicated, printed as a table, and written to
<term>_authors.csv (or .json/.yaml) in the output directory.

By default only authors with a last name and at least one e-mail address are
kept, and articles must mention one of the default food-addiction keywords.
Use --keyword-filter=false or a filter preset (filters init) to change this.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("api-key", "", "NCBI E-utilities API key")
	f.String("email", "", "contact e-mail sent to NCBI with each request")
	f.Int("max-results", pubmed.DefaultMaxResults, "maximum number of articles to retrieve (10-10000)")
	f.Duration("batch-delay", defaultBatchDelay, "minimum interval between batch fetches (0 disables pacing)")
	f.Bool("rate-limit", true, "limit requests to the NCBI budget (10/s with a key)")
	f.Duration("timeout", pubmed.DefaultTimeout, "HTTP request timeout")
	f.String("output-dir", ".", "directory the export file is written to")
	f.String("format", "csv", "export format: csv, json, or yaml")
	f.Bool("no-export", false, "do not write an export file")
	f.String("metrics-file", "", "write Prometheus metrics for this run to the given .prom file")
	f.Bool("json", false, "print rows as JSON instead of a table")

	f.String("filters-file", "", "YAML filter preset (see filters init)")
	f.Bool("only-with-emails", true, "keep only authors with an e-mail address")
	f.Bool("only-known-authors", true, "keep only authors with a last name")
	f.Bool("keyword-filter", true, "require a keyword in title or abstract")
	f.StringSlice("keywords", nil, "keywords for the keyword filter (comma-separated; default food-addiction list)")
	f.String("author", "", "keep only authors whose name contains this text")
	f.String("title", "", "keep only articles whose title contains this text")
	f.String("email-domain", "", "keep only e-mail addresses containing this text, e.g. .edu")
	f.Bool("strict-author-emails", false, "never assign article-level addresses to authors")

	for key, flag := range map[string]string{
		"email":                         "email",
		"max_results":                   "max-results",
		"batch_delay":                   "batch-delay",
		"rate_limit":                    "rate-limit",
		"timeout":                       "timeout",
		"output_dir":                    "output-dir",
		"format":                        "format",
		"metrics_file":                  "metrics-file",
		"filters_file":                  "filters-file",
		"filters.only_with_emails":      "only-with-emails",
		"filters.only_known_authors":    "only-known-authors",
		"filters.enable_keyword_filter": "keyword-filter",
		"filters.keywords":              "keywords",
		"filters.author_name":           "author",
		"filters.title":                 "title",
		"filters.email_domain":          "email-domain",
		"filters.strict_author_emails":  "strict-author-emails",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")
	cfg, err := loadSearchConfig(viper.GetViper(), strings.Join(args, " "), apiKeyFlag, credentials{
		Secrets: loadedSecrets,
		DotEnv:  dotEnv,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clientOpts := []pubmed.ClientOption{pubmed.WithLogger(logger), pubmed.WithBaseURL(eutilsBase)}
	batchDelay := cfg.BatchDelay
	if !cfg.RateLimit {
		clientOpts = append(clientOpts, pubmed.WithRateLimit(0))
		batchDelay = 0
	}
	client := pubmed.NewClient(cfg.Fetch, clientOpts...)

	observers := contacts.MultiObserver{newProgressObserver(os.Stderr)}
	var metricsObs *metrics.Observer
	if cfg.MetricsFile != "" {
		metricsObs = metrics.NewObserver()
		observers = append(observers, metricsObs)
	}

	pipeline := contacts.New(cfg.Filters,
		contacts.WithObserver(observers),
		contacts.WithLogger(logger),
		contacts.WithBatchDelay(batchDelay),
	)

	fmt.Fprintf(os.Stderr, "Searching PubMed for %q (max %d)...\n", cfg.Term, cfg.Fetch.MaxResults)
	started := time.Now()
	res, err := pipeline.Run(ctx, client, cfg.Term, cfg.Fetch.MaxResults)
	if err != nil {
		return err
	}
	finished := time.Now()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	noExport, _ := cmd.Flags().GetBool("no-export")
	if err := reportResult(os.Stdout, res, cfg, jsonOutput); err != nil {
		return err
	}

	if res.Status == contacts.StatusOK && !noExport {
		path, err := export.WriteFile(cfg.Export.OutputDir, cfg.Term, cfg.Export.Format, res.Rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(res.Rows), path)
	}

	if cfg.Store.Path != "" {
		id, err := saveRun(ctx, cfg, res, started, finished)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", id)
	}

	if metricsObs != nil {
		metricsObs.Observe(res)
		if err := metricsObs.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("metrics not written", zap.Error(err))
		}
	}

	switch res.Status {
	case contacts.StatusSearchFailed:
		return errors.New("search failed; see log output above")
	case contacts.StatusFetchFailed:
		return fmt.Errorf("all %d batch(es) failed; see log output above", res.BatchesFailed)
	}
	return nil
}

// reportResult prints the outcome of a run: a distinct message for each
// empty or failed status, otherwise the summary and rows.
func reportResult(w io.Writer, res contacts.Result, cfg searchConfig, jsonOutput bool) error {
	switch res.Status {
	case contacts.StatusSearchFailed:
		fmt.Fprintf(w, "Search for %q failed.\n", cfg.Term)
		return nil
	case contacts.StatusNoArticles:
		fmt.Fprintln(w, "No articles found for your search term.")
		return nil
	case contacts.StatusFetchFailed:
		fmt.Fprintf(w, "Found %d articles but none could be retrieved.\n", res.Articles)
		return nil
	case contacts.StatusNoRows:
		fmt.Fprintf(w, "Found %d articles.\n", res.Articles)
		fmt.Fprintln(w, "No results found matching your criteria. Try adjusting your filters.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Rows)
	}

	fmt.Fprintf(w, "Found %d articles\n\n", res.Articles)
	fmt.Fprintf(w, "Total entries:       %d\n", len(res.Rows))
	fmt.Fprintf(w, "Duplicates removed:  %d\n", res.DuplicatesRemoved)
	fmt.Fprintf(w, "Authors with emails: %d\n\n", res.WithEmail)
	printRows(w, res.Rows)
	return nil
}

// printRows writes rows as a fixed-width table.
func printRows(w io.Writer, rows []types.ResultRow) {
	fmt.Fprintf(w, "%-50s  %-25s  %s\n", "Title", "Author", "Email")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range rows {
		fmt.Fprintf(w, "%-50s  %-25s  %s\n", truncate(r.Title, 50), truncate(r.Author, 25), r.Email)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func saveRun(ctx context.Context, cfg searchConfig, res contacts.Result, started, finished time.Time) (string, error) {
	s, err := store.Open(cfg.Store)
	if err != nil {
		return "", err
	}
	defer s.Close()

	return s.SaveRun(ctx, store.Run{
		Term:              cfg.Term,
		MaxResults:        cfg.Fetch.MaxResults,
		Filters:           cfg.Filters,
		StartedAt:         started,
		FinishedAt:        finished,
		Status:            res.Status.String(),
		Articles:          res.Articles,
		DuplicatesRemoved: res.DuplicatesRemoved,
		WithEmail:         res.WithEmail,
		Warnings:          res.Warnings,
	}, res.Rows)
}

// progressObserver prints batch progress to the terminal.
type progressObserver struct {
	contacts.NopObserver
	w io.Writer
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (p *progressObserver) BatchStarted(n, total int) {
	fmt.Fprintf(p.w, "Processing batch %d/%d...\n", n, total)
}
