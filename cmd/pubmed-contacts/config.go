// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-contacts/internal/contacts"
	"github.com/pdiddy/pubmed-contacts/internal/export"
	"github.com/pdiddy/pubmed-contacts/internal/pubmed"
	"github.com/pdiddy/pubmed-contacts/internal/secrets"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

const (
	defaultUserAgent  = "pubmed-contacts/0.1"
	defaultBatchDelay = 100 * time.Millisecond
	minMaxResults     = 10
	maxMaxResults     = 10000
)

// Configuration errors are reported before any request is made.
var (
	ErrMissingCredential = errors.New("missing PubMed API key: use --api-key, .secrets/pubmed-api-key, or PUBMED_API_KEY")
	ErrEmptySearchTerm   = errors.New("search term is required")
	ErrInvalidMaxResults = fmt.Errorf("max_results must be between %d and %d", minMaxResults, maxMaxResults)
)

// searchConfig is the validated configuration of one search command.
type searchConfig struct {
	Term        string
	Fetch       types.FetchConfig
	Filters     types.FilterConfig
	Export      types.ExportConfig
	Store       types.StoreConfig
	BatchDelay  time.Duration
	RateLimit   bool
	MetricsFile string
}

// setDefaults registers the default value of every non-filter key. Filter
// defaults come from types.DefaultFilterConfig so a preset file can supply
// values that flags and env vars then override.
func setDefaults(v *viper.Viper) {
	v.SetDefault("max_results", pubmed.DefaultMaxResults)
	v.SetDefault("batch_delay", defaultBatchDelay)
	v.SetDefault("rate_limit", true)
	v.SetDefault("timeout", pubmed.DefaultTimeout)
	v.SetDefault("max_retries", 0)
	v.SetDefault("cache_size", pubmed.DefaultCacheSize)
	v.SetDefault("cache_ttl", pubmed.DefaultCacheTTL)
	v.SetDefault("log_level", "warn")
	v.SetDefault("output_dir", ".")
	v.SetDefault("format", string(types.FormatCSV))
}

// credentials are the sources an API key or contact e-mail can come from,
// in precedence order after an explicit flag.
type credentials struct {
	Secrets map[string]string
	DotEnv  map[string]string
	Getenv  func(string) string
}

func (c credentials) getenv(key string) string {
	if c.Getenv == nil {
		return os.Getenv(key)
	}
	return c.Getenv(key)
}

// resolveAPIKey applies the precedence flag, secrets file, .env, then the
// environment and config file.
func resolveAPIKey(flagValue string, v *viper.Viper, c credentials) string {
	return secrets.Resolve(
		flagValue,
		c.Secrets[secrets.PubMedAPIKey],
		c.DotEnv["PUBMED_API_KEY"],
		c.getenv("PUBMED_API_KEY"),
		v.GetString("api_key"),
	)
}

func resolveEmail(v *viper.Viper, c credentials) string {
	return secrets.Resolve(
		v.GetString("email"),
		c.Secrets[secrets.PubMedEmail],
		c.DotEnv["PUBMED_EMAIL"],
		c.getenv("PUBMED_EMAIL"),
	)
}

// buildFilterConfig starts from the defaults, applies the preset file named
// by filters_file, and then applies every filters.* key that is set.
func buildFilterConfig(v *viper.Viper) (types.FilterConfig, error) {
	cfg := types.DefaultFilterConfig()
	if path := v.GetString("filters_file"); path != "" {
		fromFile, err := contacts.ReadFilterFile(path)
		if err != nil {
			return types.FilterConfig{}, err
		}
		cfg = fromFile
	}

	if v.IsSet("filters.only_with_emails") {
		cfg.OnlyWithEmails = v.GetBool("filters.only_with_emails")
	}
	if v.IsSet("filters.only_known_authors") {
		cfg.OnlyKnownAuthors = v.GetBool("filters.only_known_authors")
	}
	if v.IsSet("filters.enable_keyword_filter") {
		cfg.EnableKeywordFilter = v.GetBool("filters.enable_keyword_filter")
	}
	if v.IsSet("filters.keywords") {
		if raw, ok := v.Get("filters.keywords").(string); ok {
			cfg.Keywords = splitKeywords([]string{raw})
		} else {
			cfg.Keywords = splitKeywords(v.GetStringSlice("filters.keywords"))
		}
	}
	if v.IsSet("filters.author_name") {
		cfg.AuthorNameSubstring = v.GetString("filters.author_name")
	}
	if v.IsSet("filters.title") {
		cfg.TitleSubstring = v.GetString("filters.title")
	}
	if v.IsSet("filters.email_domain") {
		cfg.EmailDomainSubstring = v.GetString("filters.email_domain")
	}
	if v.IsSet("filters.strict_author_emails") {
		cfg.StrictAuthorEmails = v.GetBool("filters.strict_author_emails")
	}
	return cfg, nil
}

// splitKeywords accepts both list values and comma-separated strings, the
// form keywords take when they come from an environment variable.
func splitKeywords(in []string) []string {
	var out []string
	for _, s := range in {
		for _, kw := range strings.Split(s, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				out = append(out, kw)
			}
		}
	}
	return out
}

// loadSearchConfig validates the search inputs and assembles the component
// configurations.
func loadSearchConfig(v *viper.Viper, term, apiKeyFlag string, c credentials) (searchConfig, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return searchConfig{}, ErrEmptySearchTerm
	}

	apiKey := resolveAPIKey(apiKeyFlag, v, c)
	if apiKey == "" {
		return searchConfig{}, ErrMissingCredential
	}

	maxResults := v.GetInt("max_results")
	if maxResults < minMaxResults || maxResults > maxMaxResults {
		return searchConfig{}, fmt.Errorf("%w (got %d)", ErrInvalidMaxResults, maxResults)
	}

	format, err := export.ParseFormat(v.GetString("format"))
	if err != nil {
		return searchConfig{}, err
	}

	filters, err := buildFilterConfig(v)
	if err != nil {
		return searchConfig{}, err
	}

	return searchConfig{
		Term: term,
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("timeout"),
				UserAgent: defaultUserAgent,
			},
			APIKey:     apiKey,
			Email:      resolveEmail(v, c),
			MaxResults: maxResults,
			MaxRetries: v.GetInt("max_retries"),
			CacheSize:  v.GetInt("cache_size"),
			CacheTTL:   v.GetDuration("cache_ttl"),
		},
		Filters: filters,
		Export: types.ExportConfig{
			OutputDir: v.GetString("output_dir"),
			Format:    format,
		},
		Store:       types.StoreConfig{Path: v.GetString("db")},
		BatchDelay:  v.GetDuration("batch_delay"),
		RateLimit:   v.GetBool("rate_limit"),
		MetricsFile: v.GetString("metrics_file"),
	}, nil
}
