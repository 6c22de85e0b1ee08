package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pubmed-contacts/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for the PubMed record source.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the NCBI E-utilities access key.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// Email is sent with each request so NCBI can contact the operator.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// MaxResults caps the number of PMIDs requested from esearch (default 1000).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// MaxRetries is the number of retries on throttled or unavailable responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// CacheSize is the number of search results kept in memory (default 64).
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`

	// CacheTTL is how long a cached search result stays valid (default 10m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// FilterConfig selects which (article, author, email) combinations survive
// extraction. It is built once per search and never mutated during a run.
type FilterConfig struct {
	// OnlyWithEmails drops authors that have no resolved e-mail address.
	OnlyWithEmails bool `json:"only_with_emails" yaml:"only_with_emails" mapstructure:"only_with_emails"`

	// OnlyKnownAuthors drops authors without a last name.
	OnlyKnownAuthors bool `json:"only_known_authors" yaml:"only_known_authors" mapstructure:"only_known_authors"`

	// EnableKeywordFilter requires title or abstract to contain one of Keywords.
	EnableKeywordFilter bool `json:"enable_keyword_filter" yaml:"enable_keyword_filter" mapstructure:"enable_keyword_filter"`

	// Keywords are matched case-insensitively as substrings. An empty list
	// matches every record.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// AuthorNameSubstring keeps only authors whose display name contains it.
	AuthorNameSubstring string `json:"author_name,omitempty" yaml:"author_name,omitempty" mapstructure:"author_name"`

	// TitleSubstring keeps only articles whose title contains it.
	TitleSubstring string `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`

	// EmailDomainSubstring keeps only e-mail addresses that contain it.
	EmailDomainSubstring string `json:"email_domain,omitempty" yaml:"email_domain,omitempty" mapstructure:"email_domain"`

	// StrictAuthorEmails disables the fallback that assigns article-level
	// addresses to authors whose own affiliation has none.
	StrictAuthorEmails bool `json:"strict_author_emails" yaml:"strict_author_emails" mapstructure:"strict_author_emails"`
}

// DefaultKeywords is the keyword list used when no other list is configured.
var DefaultKeywords = []string{
	"food addiction", "food addictive", "addictive eating", "eating addiction",
	"compulsive eating", "food craving", "hedonic eating", "binge eating",
	"overeating", "food reward", "eating behavior", "obesogenic",
	"hyperpalatable", "food dependence", "eating disorder",
}

// DefaultFilterConfig returns the filter settings applied when the user does
// not override them.
func DefaultFilterConfig() FilterConfig {
	keywords := make([]string, len(DefaultKeywords))
	copy(keywords, DefaultKeywords)
	return FilterConfig{
		OnlyWithEmails:      true,
		OnlyKnownAuthors:    true,
		EnableKeywordFilter: true,
		Keywords:            keywords,
	}
}

// StoreConfig holds settings for the SQLite run store.
type StoreConfig struct {
	// Path is the database file. An empty path disables persistence.
	Path string `json:"path" yaml:"path" mapstructure:"db"`
}

// ExportFormat selects the export file format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// ExportConfig holds settings for writing results to disk.
type ExportConfig struct {
	// OutputDir is the directory the export file is written to (default ".").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Format selects csv, json, or yaml.
	Format ExportFormat `json:"format" yaml:"format" mapstructure:"format"`
}
