package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/headtail/internal/record"
	"github.com/hyperifyio/headtail/internal/source"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	Targets          []string `yaml:"targets" json:"targets" toml:"targets"`
	Count            int      `yaml:"count" json:"count" toml:"count"`
	DelimiterTargets []string `yaml:"delimiterTargets" json:"delimiterTargets" toml:"delimiterTargets"`
	// Delimiter may use the escapes \n, \r, \t and \\.
	Delimiter      string   `yaml:"delimiter" json:"delimiter" toml:"delimiter"`
	DelimiterMatch string   `yaml:"delimiterMatch" json:"delimiterMatch" toml:"delimiterMatch"`
	RenameTargets  []string `yaml:"renameTargets" json:"renameTargets" toml:"renameTargets"`
	RenameSuffix   string   `yaml:"renameSuffix" json:"renameSuffix" toml:"renameSuffix"`
	SkipHeader     *bool    `yaml:"skipHeader" json:"skipHeader" toml:"skipHeader"`
	Encoding       string   `yaml:"encoding" json:"encoding" toml:"encoding"`

	Source struct {
		Prefix string `yaml:"prefix" json:"prefix" toml:"prefix"`
		Ext    string `yaml:"ext" json:"ext" toml:"ext"`
	} `yaml:"source" json:"source" toml:"source"`

	Output struct {
		Dir string `yaml:"dir" json:"dir" toml:"dir"`
	} `yaml:"output" json:"output" toml:"output"`

	Concurrency   int      `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	SourceTimeout Duration `yaml:"sourceTimeout" json:"sourceTimeout" toml:"sourceTimeout"`
	Retries       int      `yaml:"retries" json:"retries" toml:"retries"`

	Backend string `yaml:"backend" json:"backend" toml:"backend"`
	File    struct {
		Root string `yaml:"root" json:"root" toml:"root"`
	} `yaml:"file" json:"file" toml:"file"`
	HTTP  HTTPConfig         `yaml:"http" json:"http" toml:"http"`
	S3    source.S3Config    `yaml:"s3" json:"s3" toml:"s3"`
	GCS   source.GCSConfig   `yaml:"gcs" json:"gcs" toml:"gcs"`
	Azure source.AzureConfig `yaml:"azblob" json:"azblob" toml:"azblob"`
	NATS  source.NATSConfig  `yaml:"nats" json:"nats" toml:"nats"`

	Manifest string `yaml:"manifest" json:"manifest" toml:"manifest"`
	Metrics  struct {
		Textfile string `yaml:"textfile" json:"textfile" toml:"textfile"`
	} `yaml:"metrics" json:"metrics" toml:"metrics"`

	DryRun  bool `yaml:"dryRun" json:"dryRun" toml:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose" toml:"verbose"`
}

// Duration accepts Go duration strings ("90s", "5m") in every config format.
type Duration time.Duration

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by TOML and YAML.
func (d *Duration) UnmarshalText(b []byte) error { return d.parse(string(b)) }

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error { return d.parse(n.Value) }

// LoadConfigFile reads YAML, JSON or TOML into FileConfig, chosen by file
// extension.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already
// have been parsed so explicit flags win over the file.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if len(cfg.Targets) == 0 && len(fc.Targets) > 0 {
		cfg.Targets = append([]string{}, fc.Targets...)
	}
	if (cfg.Count == 0 || cfg.Count == DefaultCount) && fc.Count > 0 {
		cfg.Count = fc.Count
	}
	if len(cfg.DelimiterTargets) == 0 && len(fc.DelimiterTargets) > 0 {
		cfg.DelimiterTargets = append([]string{}, fc.DelimiterTargets...)
	}
	if (cfg.Delimiter == "" || cfg.Delimiter == DefaultDelimiter) && fc.Delimiter != "" {
		cfg.Delimiter = record.Unescape(fc.Delimiter)
	}
	if cfg.DelimiterMatch == "" && fc.DelimiterMatch != "" {
		cfg.DelimiterMatch = fc.DelimiterMatch
	}
	if len(cfg.RenameTargets) == 0 && len(fc.RenameTargets) > 0 {
		cfg.RenameTargets = append([]string{}, fc.RenameTargets...)
	}
	if (cfg.RenameSuffix == "" || cfg.RenameSuffix == DefaultRenameSuffix) && fc.RenameSuffix != "" {
		cfg.RenameSuffix = fc.RenameSuffix
	}
	if !cfg.SkipHeader && fc.SkipHeader != nil {
		cfg.SkipHeader = *fc.SkipHeader
	}
	if (cfg.Encoding == "" || cfg.Encoding == DefaultEncoding) && fc.Encoding != "" {
		cfg.Encoding = fc.Encoding
	}

	if cfg.SourcePrefix == "" && fc.Source.Prefix != "" {
		cfg.SourcePrefix = fc.Source.Prefix
	}
	if (cfg.SourceExt == "" || cfg.SourceExt == DefaultSourceExt) && fc.Source.Ext != "" {
		cfg.SourceExt = fc.Source.Ext
	}
	if (cfg.OutputDir == "" || cfg.OutputDir == DefaultOutputDir) && fc.Output.Dir != "" {
		cfg.OutputDir = fc.Output.Dir
	}

	if cfg.Concurrency == 0 && fc.Concurrency > 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if cfg.SourceTimeout == 0 && fc.SourceTimeout > 0 {
		cfg.SourceTimeout = time.Duration(fc.SourceTimeout)
	}
	if (cfg.RetryAttempts == 0 || cfg.RetryAttempts == DefaultRetries) && fc.Retries > 0 {
		cfg.RetryAttempts = fc.Retries
	}

	if (cfg.Backend == "" || cfg.Backend == DefaultBackend) && fc.Backend != "" {
		cfg.Backend = fc.Backend
	}
	if cfg.FileRoot == "" && fc.File.Root != "" {
		cfg.FileRoot = fc.File.Root
	}
	overlayHTTP(&cfg.HTTP, fc.HTTP)
	if cfg.S3 == (source.S3Config{}) {
		cfg.S3 = fc.S3
	}
	if cfg.GCS == (source.GCSConfig{}) {
		cfg.GCS = fc.GCS
	}
	if cfg.Azure == (source.AzureConfig{}) {
		cfg.Azure = fc.Azure
	}
	if cfg.NATS == (source.NATSConfig{}) {
		cfg.NATS = fc.NATS
	}

	if cfg.ManifestPath == "" && fc.Manifest != "" {
		cfg.ManifestPath = fc.Manifest
	}
	if cfg.MetricsTextfile == "" && fc.Metrics.Textfile != "" {
		cfg.MetricsTextfile = fc.Metrics.Textfile
	}
	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

func overlayHTTP(dst *HTTPConfig, src HTTPConfig) {
	if dst.BaseURL == "" {
		dst.BaseURL = src.BaseURL
	}
	if dst.BearerToken == "" {
		dst.BearerToken = src.BearerToken
	}
	if dst.UserAgent == "" {
		dst.UserAgent = src.UserAgent
	}
	if dst.MaxConcurrent == 0 {
		dst.MaxConcurrent = src.MaxConcurrent
	}
}
