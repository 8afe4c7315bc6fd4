package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/headtail/internal/app"
	"github.com/hyperifyio/headtail/internal/record"
)

type options struct {
	configPath  string
	envFiles    string
	showVersion bool
	logJSON     bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, opts, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	if opts.showVersion {
		fmt.Println(app.VersionString())
		return
	}
	setupLogging(cfg.Verbose, opts.logJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
}

func setupLogging(verbose, jsonOut bool) {
	if jsonOut {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// exitCode maps run errors to the process exit status: 2 when some sources
// failed, 1 for anything fatal.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrSourcesFailed):
		return 2
	default:
		return 1
	}
}

// parseConfig resolves configuration with precedence flags > env > config
// file > defaults.
func parseConfig(args []string, stderr io.Writer) (app.Config, options, error) {
	fs := flag.NewFlagSet("headtail", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts          options
		targets       string
		count         int
		delimTargets  string
		delimiter     string
		delimMatch    string
		renameTargets string
		renameSuffix  string
		skipHeader    bool
		encoding      string
		srcPrefix     string
		srcExt        string
		outputDir     string
		concurrency   int
		srcTimeout    time.Duration
		retries       int
		backend       string
		fileRoot      string
		httpURL       string
		s3Bucket      string
		s3Region      string
		s3Endpoint    string
		s3PathStyle   bool
		gcsBucket     string
		azContainer   string
		natsURL       string
		natsBucket    string
		manifest      string
		metricsFile   string
		dryRun        bool
		verbose       bool
	)

	fs.StringVar(&opts.configPath, "config", os.Getenv("HEADTAIL_CONFIG"), "Path to YAML, JSON or TOML config file")
	fs.StringVar(&opts.envFiles, "env", ".env", "Comma-separated dotenv files to load before reading the environment")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&opts.logJSON, "log.json", false, "Write JSON log lines instead of console output")

	fs.StringVar(&targets, "targets", "", "Comma-separated source names")
	fs.IntVar(&count, "count", app.DefaultCount, "Records to keep at each end of a source")
	fs.StringVar(&delimTargets, "delimiter.targets", "", "Comma-separated sources split on -delimiter instead of lines")
	fs.StringVar(&delimiter, "delimiter", `\n`, `Record delimiter; escapes \n \r \t \\ are decoded`)
	fs.StringVar(&delimMatch, "delimiter.match", "", "Delimiter matching: exact (default) or legacy")
	fs.StringVar(&renameTargets, "rename.targets", "", "Comma-separated sources processed under name+suffix")
	fs.StringVar(&renameSuffix, "rename.suffix", app.DefaultRenameSuffix, "Suffix for -rename.targets")
	fs.BoolVar(&skipHeader, "skip-header", false, "Consume the first line of every source before sampling")
	fs.StringVar(&encoding, "encoding", app.DefaultEncoding, "Source text encoding, e.g. utf-8, shift_jis, utf-16")
	fs.StringVar(&srcPrefix, "source.prefix", "", "Object key prefix")
	fs.StringVar(&srcExt, "source.ext", app.DefaultSourceExt, "Object name extension")
	fs.StringVar(&outputDir, "output", app.DefaultOutputDir, "Directory for extracted files")
	fs.IntVar(&concurrency, "concurrency", 0, "Maximum sources in flight (0 = all at once, 1 = sequential)")
	fs.DurationVar(&srcTimeout, "source.timeout", 0, "Per-source time limit (0 disables)")
	fs.IntVar(&retries, "retries", app.DefaultRetries, "Attempts to open each source")
	fs.StringVar(&backend, "backend", app.DefaultBackend, "Object store: file, http, s3, gcs, azblob or nats")
	fs.StringVar(&fileRoot, "file.root", "", "Root directory for the file backend")
	fs.StringVar(&httpURL, "http.url", "", "Base URL for the http backend")
	fs.StringVar(&s3Bucket, "s3.bucket", "", "S3 bucket")
	fs.StringVar(&s3Region, "s3.region", "", "S3 region")
	fs.StringVar(&s3Endpoint, "s3.endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")
	fs.BoolVar(&s3PathStyle, "s3.pathStyle", false, "Use path-style S3 addressing")
	fs.StringVar(&gcsBucket, "gcs.bucket", "", "Google Cloud Storage bucket")
	fs.StringVar(&azContainer, "azblob.container", "", "Azure Blob Storage container")
	fs.StringVar(&natsURL, "nats.url", "", "NATS server URL")
	fs.StringVar(&natsBucket, "nats.bucket", "", "JetStream object store bucket")
	fs.StringVar(&manifest, "manifest", "", "Write a JSON run manifest to this path")
	fs.StringVar(&metricsFile, "metrics.textfile", "", "Write Prometheus metrics to this textfile")
	fs.BoolVar(&dryRun, "dry-run", false, "Print the resolved sources without reading or writing anything")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, opts, err
	}
	if opts.showVersion {
		return app.Config{}, opts, nil
	}

	if err := app.LoadEnvFiles(app.SplitList(opts.envFiles)...); err != nil {
		return app.Config{}, opts, fmt.Errorf("load env: %w", err)
	}

	cfg := app.Config{
		Count:         app.DefaultCount,
		Delimiter:     app.DefaultDelimiter,
		RenameSuffix:  app.DefaultRenameSuffix,
		Encoding:      app.DefaultEncoding,
		SourceExt:     app.DefaultSourceExt,
		OutputDir:     app.DefaultOutputDir,
		RetryAttempts: app.DefaultRetries,
		Backend:       app.DefaultBackend,
	}
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return app.Config{}, opts, fmt.Errorf("load config %s: %w", opts.configPath, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	// Explicit flags win over everything else
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "targets":
			cfg.Targets = app.SplitList(targets)
		case "count":
			cfg.Count = count
		case "delimiter.targets":
			cfg.DelimiterTargets = app.SplitList(delimTargets)
		case "delimiter":
			cfg.Delimiter = record.Unescape(delimiter)
		case "delimiter.match":
			cfg.DelimiterMatch = delimMatch
		case "rename.targets":
			cfg.RenameTargets = app.SplitList(renameTargets)
		case "rename.suffix":
			cfg.RenameSuffix = renameSuffix
		case "skip-header":
			cfg.SkipHeader = skipHeader
		case "encoding":
			cfg.Encoding = encoding
		case "source.prefix":
			cfg.SourcePrefix = srcPrefix
		case "source.ext":
			cfg.SourceExt = srcExt
		case "output":
			cfg.OutputDir = outputDir
		case "concurrency":
			cfg.Concurrency = concurrency
		case "source.timeout":
			cfg.SourceTimeout = srcTimeout
		case "retries":
			cfg.RetryAttempts = retries
		case "backend":
			cfg.Backend = backend
		case "file.root":
			cfg.FileRoot = fileRoot
		case "http.url":
			cfg.HTTP.BaseURL = httpURL
		case "s3.bucket":
			cfg.S3.Bucket = s3Bucket
		case "s3.region":
			cfg.S3.Region = s3Region
		case "s3.endpoint":
			cfg.S3.Endpoint = s3Endpoint
		case "s3.pathStyle":
			cfg.S3.ForcePathStyle = s3PathStyle
		case "gcs.bucket":
			cfg.GCS.Bucket = gcsBucket
		case "azblob.container":
			cfg.Azure.Container = azContainer
		case "nats.url":
			cfg.NATS.URL = natsURL
		case "nats.bucket":
			cfg.NATS.Bucket = natsBucket
		case "manifest":
			cfg.ManifestPath = manifest
		case "metrics.textfile":
			cfg.MetricsTextfile = metricsFile
		case "dry-run":
			cfg.DryRun = dryRun
		case "v":
			cfg.Verbose = verbose
		}
	})
	return cfg, opts, nil
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
