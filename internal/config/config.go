package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when a field is absent from the config file and no
// environment override is set.
const (
	DefaultMaxIterations          = 3
	DefaultQualityThreshold       = 0.7
	DefaultSubquestionSearchCount = 3
	DefaultMaxConcurrentFetches   = 4
	DefaultMaxSourcesForCitations = 10
	DefaultMaxEvidenceSnippets    = 5
	DefaultMinUsableTextChars     = 400
	DefaultMaxContentChars        = 12000
	DefaultMaxSynopsisChars       = 1200
)

// ServiceConfig holds the endpoint and credentials for one upstream
// HTTP service.
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig configures the web search backend.
type SearchConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	EngineID string        `mapstructure:"engine_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// KnowledgeConfig configures the curated retrieval service.
type KnowledgeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	EndUserID string        `mapstructure:"end_user_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures the optional search/knowledge cache. An empty
// Addr disables caching entirely.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TemporalConfig configures the workflow engine connection.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Research is the full service configuration. The Loop* fields are
// snapshotted into every workflow input so that a mid-run config
// change never alters an in-flight run.
type Research struct {
	MaxIterations          int     `mapstructure:"max_iterations"`
	QualityThreshold       float64 `mapstructure:"quality_threshold"`
	SubquestionSearchCount int     `mapstructure:"subquestion_search_count"`
	MaxConcurrentFetches   int     `mapstructure:"max_concurrent_fetches"`
	MaxSourcesForCitations int     `mapstructure:"max_sources_for_citations"`
	MaxEvidenceSnippets    int     `mapstructure:"max_evidence_snippets"`
	MinUsableTextChars     int     `mapstructure:"min_usable_text_chars"`
	MaxContentChars        int     `mapstructure:"max_content_chars"`
	MaxSynopsisChars       int     `mapstructure:"max_synopsis_chars"`

	AllowedDomains   []string `mapstructure:"allowed_domains"`
	SlowHostSuffixes []string `mapstructure:"slow_host_suffixes"`

	Provider   string          `mapstructure:"provider"`
	Generation ServiceConfig   `mapstructure:"generation"`
	Knowledge  KnowledgeConfig `mapstructure:"knowledge"`
	Search     SearchConfig    `mapstructure:"search"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Temporal   TemporalConfig  `mapstructure:"temporal"`

	AdminPort int `mapstructure:"admin_port"`
}

// LoopSnapshot captures the loop-control knobs that must stay fixed
// for the lifetime of a single run.
type LoopSnapshot struct {
	MaxIterations          int     `json:"max_iterations"`
	QualityThreshold       float64 `json:"quality_threshold"`
	SubquestionSearchCount int     `json:"subquestion_search_count"`
	MaxConcurrentFetches   int     `json:"max_concurrent_fetches"`
	MaxSourcesForCitations int     `json:"max_sources_for_citations"`
	MaxEvidenceSnippets    int     `json:"max_evidence_snippets"`
}

// Snapshot returns the loop-control knobs frozen for one run.
func (r *Research) Snapshot() LoopSnapshot {
	return LoopSnapshot{
		MaxIterations:          r.MaxIterations,
		QualityThreshold:       r.QualityThreshold,
		SubquestionSearchCount: r.SubquestionSearchCount,
		MaxConcurrentFetches:   r.MaxConcurrentFetches,
		MaxSourcesForCitations: r.MaxSourcesForCitations,
		MaxEvidenceSnippets:    r.MaxEvidenceSnippets,
	}
}

// Validate clamps out-of-range values back to defaults rather than
// failing startup. A misconfigured threshold should degrade to the
// stock behavior, not take the worker down.
func (r *Research) Validate() {
	if r.MaxIterations <= 0 {
		r.MaxIterations = DefaultMaxIterations
	}
	if r.QualityThreshold <= 0 || r.QualityThreshold > 1 {
		r.QualityThreshold = DefaultQualityThreshold
	}
	if r.SubquestionSearchCount <= 0 {
		r.SubquestionSearchCount = DefaultSubquestionSearchCount
	}
	if r.MaxConcurrentFetches <= 0 {
		r.MaxConcurrentFetches = DefaultMaxConcurrentFetches
	}
	if r.MaxSourcesForCitations <= 0 {
		r.MaxSourcesForCitations = DefaultMaxSourcesForCitations
	}
	if r.MaxEvidenceSnippets <= 0 {
		r.MaxEvidenceSnippets = DefaultMaxEvidenceSnippets
	}
	if r.MinUsableTextChars <= 0 {
		r.MinUsableTextChars = DefaultMinUsableTextChars
	}
	if r.MaxContentChars <= 0 {
		r.MaxContentChars = DefaultMaxContentChars
	}
	if r.MaxSynopsisChars <= 0 {
		r.MaxSynopsisChars = DefaultMaxSynopsisChars
	}
	if r.Temporal.HostPort == "" {
		r.Temporal.HostPort = "localhost:7233"
	}
	if r.Temporal.Namespace == "" {
		r.Temporal.Namespace = "default"
	}
	if r.Temporal.TaskQueue == "" {
		r.Temporal.TaskQueue = "evidentia-research"
	}
	if r.AdminPort <= 0 {
		r.AdminPort = 8090
	}
}

// Path returns the config file path, honoring RESEARCH_CONFIG_PATH.
func Path() string {
	if p := os.Getenv("RESEARCH_CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("config", "research.yaml")
}

// Load reads the config file at Path, layering environment overrides
// (EVIDENTIA_ prefix, dots replaced by underscores) on top. A missing
// file is not an error: every field has a usable default.
func Load() (*Research, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load with an explicit file path, used by the hot-reload
// manager and tests.
func LoadFrom(path string) (*Research, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EVIDENTIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// Absent file: defaults plus environment only.
	}

	var cfg Research
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Validate()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_iterations", DefaultMaxIterations)
	v.SetDefault("quality_threshold", DefaultQualityThreshold)
	v.SetDefault("subquestion_search_count", DefaultSubquestionSearchCount)
	v.SetDefault("max_concurrent_fetches", DefaultMaxConcurrentFetches)
	v.SetDefault("max_sources_for_citations", DefaultMaxSourcesForCitations)
	v.SetDefault("max_evidence_snippets", DefaultMaxEvidenceSnippets)
	v.SetDefault("min_usable_text_chars", DefaultMinUsableTextChars)
	v.SetDefault("max_content_chars", DefaultMaxContentChars)
	v.SetDefault("max_synopsis_chars", DefaultMaxSynopsisChars)
	v.SetDefault("provider", "openai")
	v.SetDefault("generation.timeout", 60*time.Second)
	v.SetDefault("knowledge.timeout", 35*time.Second)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("redis.ttl", 6*time.Hour)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "evidentia-research")
	v.SetDefault("admin_port", 8090)
	v.SetDefault("slow_host_suffixes", []string{"ncbi.nlm.nih.gov", "nih.gov"})
}
