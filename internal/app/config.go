package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/headtail/internal/record"
	"github.com/hyperifyio/headtail/internal/source"
)

// Defaults applied by flag parsing and by Validate for zero values.
const (
	DefaultCount        = 100
	DefaultDelimiter    = "\n"
	DefaultRenameSuffix = "_REP"
	DefaultBackend      = BackendFile
	DefaultOutputDir    = "extract"
	DefaultSourceExt    = ".csv"
	DefaultEncoding     = "utf-8"
	DefaultRetries      = 3
)

// Backend names accepted in Config.Backend.
const (
	BackendFile  = "file"
	BackendHTTP  = "http"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendAzure = "azblob"
	BackendNATS  = "nats"
)

// HTTPConfig configures the plain HTTP backend.
type HTTPConfig struct {
	BaseURL string `yaml:"baseURL" json:"baseURL" toml:"baseURL"`
	// BearerToken is sent as an Authorization header when set.
	BearerToken   string `yaml:"bearerToken" json:"bearerToken" toml:"bearerToken"`
	UserAgent     string `yaml:"userAgent" json:"userAgent" toml:"userAgent"`
	MaxConcurrent int    `yaml:"maxConcurrent" json:"maxConcurrent" toml:"maxConcurrent"`
}

// Config holds runtime configuration for one run. It is built once in main
// and treated as read-only afterwards.
type Config struct {
	// Targets are the source names to process, in order.
	Targets []string
	// Count is K, the number of records kept at each end.
	Count int
	// DelimiterTargets select the delimiter tokenizer for those sources.
	DelimiterTargets []string
	// Delimiter is the decoded record delimiter.
	Delimiter      string
	DelimiterMatch string
	// RenameTargets are processed under name+RenameSuffix.
	RenameTargets []string
	RenameSuffix  string
	SkipHeader    bool
	Encoding      string

	SourcePrefix string
	SourceExt    string
	OutputDir    string

	// Concurrency caps in-flight sources. Zero means unlimited.
	Concurrency   int
	SourceTimeout time.Duration
	RetryAttempts int

	Backend  string
	FileRoot string
	HTTP     HTTPConfig
	S3       source.S3Config
	GCS      source.GCSConfig
	Azure    source.AzureConfig
	NATS     source.NATSConfig

	ManifestPath    string
	MetricsTextfile string

	DryRun  bool
	Verbose bool
}

// Validate fills zero values with defaults and rejects configurations that
// cannot produce a run.
func (c *Config) Validate() error {
	c.Targets = cleanList(c.Targets)
	c.DelimiterTargets = cleanList(c.DelimiterTargets)
	c.RenameTargets = cleanList(c.RenameTargets)
	if len(c.Targets) == 0 {
		return ErrNoSources
	}
	if c.Count == 0 {
		c.Count = DefaultCount
	}
	if c.Count < 1 {
		return fmt.Errorf("config: count must be positive, got %d", c.Count)
	}
	if c.Delimiter == "" {
		return fmt.Errorf("config: %w", record.ErrEmptyDelimiter)
	}
	if _, err := record.ParseMatch(c.DelimiterMatch); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := source.LookupEncoding(c.Encoding); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.RenameSuffix == "" {
		c.RenameSuffix = DefaultRenameSuffix
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Concurrency < 0 {
		return errors.New("config: concurrency must not be negative")
	}
	if c.SourceTimeout < 0 {
		return errors.New("config: sourceTimeout must not be negative")
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	switch c.Backend {
	case BackendFile, BackendHTTP, BackendS3, BackendGCS, BackendAzure, BackendNATS:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SplitList parses a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return cleanList(strings.Split(s, ","))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
