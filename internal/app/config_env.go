package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/headtail/internal/record"
)

// ApplyEnvToConfig populates unset fields of cfg from HEADTAIL_* environment
// variables. Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	applyEnv(cfg, false)
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	applyEnv(cfg, true)
}

func applyEnv(cfg *Config, force bool) {
	setString := func(dst *string, key string) {
		if *dst != "" && !force {
			return
		}
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, key string) {
		if len(*dst) > 0 && !force {
			return
		}
		if v := SplitList(os.Getenv(key)); len(v) > 0 {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if *dst != 0 && !force {
			return
		}
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
			*dst = n
		}
	}
	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		if *dst && !force {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			if force {
				*dst = false
			}
		}
	}

	setList(&cfg.Targets, "HEADTAIL_TARGETS")
	setInt(&cfg.Count, "HEADTAIL_COUNT")
	setList(&cfg.DelimiterTargets, "HEADTAIL_DELIMITER_TARGETS")
	if v := os.Getenv("HEADTAIL_DELIMITER"); v != "" && (force || cfg.Delimiter == "") {
		cfg.Delimiter = record.Unescape(v)
	}
	setString(&cfg.DelimiterMatch, "HEADTAIL_DELIMITER_MATCH")
	setList(&cfg.RenameTargets, "HEADTAIL_RENAME_TARGETS")
	setString(&cfg.RenameSuffix, "HEADTAIL_RENAME_SUFFIX")
	setBool(&cfg.SkipHeader, "HEADTAIL_SKIP_HEADER")
	setString(&cfg.Encoding, "HEADTAIL_ENCODING")
	setString(&cfg.SourcePrefix, "HEADTAIL_SOURCE_PREFIX")
	setString(&cfg.SourceExt, "HEADTAIL_SOURCE_EXT")
	setString(&cfg.OutputDir, "HEADTAIL_OUTPUT_DIR")
	setInt(&cfg.Concurrency, "HEADTAIL_CONCURRENCY")
	setInt(&cfg.RetryAttempts, "HEADTAIL_RETRIES")
	if cfg.SourceTimeout == 0 || force {
		if s := os.Getenv("HEADTAIL_SOURCE_TIMEOUT"); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.SourceTimeout = d
			}
		}
	}

	setString(&cfg.Backend, "HEADTAIL_BACKEND")
	setString(&cfg.FileRoot, "HEADTAIL_FILE_ROOT")
	setString(&cfg.HTTP.BaseURL, "HEADTAIL_HTTP_URL")
	setString(&cfg.HTTP.BearerToken, "HEADTAIL_HTTP_TOKEN")
	setString(&cfg.S3.Bucket, "HEADTAIL_S3_BUCKET")
	setString(&cfg.S3.Region, "HEADTAIL_S3_REGION")
	setString(&cfg.S3.Endpoint, "HEADTAIL_S3_ENDPOINT")
	setString(&cfg.GCS.Bucket, "HEADTAIL_GCS_BUCKET")
	setString(&cfg.GCS.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	// Same variable name the Azure tooling uses
	setString(&cfg.Azure.ConnectionString, "AZURE_STORAGE_CONNECTION_STRING")
	setString(&cfg.Azure.Container, "HEADTAIL_AZURE_CONTAINER")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Bucket, "HEADTAIL_NATS_BUCKET")

	setString(&cfg.ManifestPath, "HEADTAIL_MANIFEST")
	setString(&cfg.MetricsTextfile, "HEADTAIL_METRICS_TEXTFILE")
	setBool(&cfg.DryRun, "HEADTAIL_DRY_RUN")
	setBool(&cfg.Verbose, "HEADTAIL_VERBOSE")
}
