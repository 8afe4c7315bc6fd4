package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/headtail/internal/sink"
	"github.com/hyperifyio/headtail/internal/source"
)

// ErrSourcesFailed is returned by Run when at least one source failed. The
// CLI maps it to exit code 2.
var ErrSourcesFailed = errors.New("some sources failed")

// ErrNoSources is returned when the configuration names no targets.
var ErrNoSources = errors.New("no sources configured")

type App struct {
	cfg      Config
	provider source.Provider
	closer   io.Closer
	sink     sink.Sink
	metrics  *Metrics
	// out receives the dry-run listing.
	out io.Writer
}

// New validates cfg and connects the configured backend. Dry runs do not
// touch any backend.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, sink: sink.FileSink{}, metrics: NewMetrics(), out: os.Stdout}
	if cfg.DryRun {
		return a, nil
	}
	p, closer, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.provider = p
	a.closer = closer
	return a, nil
}

// NewWithProvider is New with a caller supplied provider. Used by tests and
// embedders with their own object store.
func NewWithProvider(cfg Config, p source.Provider, s sink.Sink) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		s = sink.FileSink{}
	}
	return &App{cfg: cfg, provider: p, sink: s, metrics: NewMetrics(), out: os.Stdout}, nil
}

// SetOutput redirects the dry-run listing.
func (a *App) SetOutput(w io.Writer) { a.out = w }

func (a *App) Close() {
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			log.Warn().Err(err).Msg("close backend")
		}
	}
}

// Run processes every configured source. It returns ErrSourcesFailed when any
// source failed; the remaining sources are still written.
func (a *App) Run(ctx context.Context) error {
	reqs := BuildRequests(a.cfg)
	if a.cfg.DryRun {
		return a.dryRun(reqs)
	}
	if len(a.cfg.DelimiterTargets) > 0 {
		log.Info().Strs("targets", a.cfg.DelimiterTargets).Str("delimiter", strconv.Quote(a.cfg.Delimiter)).
			Str("match", reqs[0].Match.String()).Msg("delimiter mode")
	}
	runID := newRunID()
	log.Info().Str("run", runID).Int("sources", len(reqs)).Int("count", a.cfg.Count).Str("backend", a.cfg.Backend).Msg("program start")

	orch := &Orchestrator{
		Provider:      a.provider,
		Sink:          a.sink,
		Concurrency:   a.cfg.Concurrency,
		SourceTimeout: a.cfg.SourceTimeout,
		Metrics:       a.metrics,
	}
	sum := orch.Run(ctx, reqs)

	for _, o := range sum.Outcomes {
		if !o.OK {
			log.Error().Err(o.Err).Str("source", o.Display).Msg("source failed")
		}
	}
	log.Info().Int("attempted", sum.Attempted).Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).
		Dur("duration", sum.Finished.Sub(sum.Started)).Msg("all sources done")

	if a.cfg.ManifestPath != "" {
		meta := manifestMeta{
			RunID:      runID,
			Version:    BuildVersion,
			Commit:     BuildCommit,
			Backend:    a.cfg.Backend,
			Count:      a.cfg.Count,
			Delimiter:  a.cfg.Delimiter,
			Match:      reqs[0].Match.String(),
			SkipHeader: a.cfg.SkipHeader,
			Encoding:   a.cfg.Encoding,
			Attempted:  sum.Attempted,
			Succeeded:  sum.Succeeded,
			Failed:     sum.Failed,
			StartedAt:  sum.Started.UTC(),
			FinishedAt: sum.Finished.UTC(),
		}
		if err := writeManifest(ctx, a.sink, a.cfg.ManifestPath, meta, buildManifestEntries(reqs, sum.Outcomes)); err != nil {
			log.Warn().Err(err).Str("path", a.cfg.ManifestPath).Msg("write manifest")
		}
	}
	if a.cfg.MetricsTextfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile, time.Now()); err != nil {
			log.Warn().Err(err).Str("path", a.cfg.MetricsTextfile).Msg("write metrics")
		}
	}
	return sum.Err()
}

func (a *App) dryRun(reqs []Request) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# headtail (dry run) backend=%s count=%d\n", a.cfg.Backend, a.cfg.Count)
	fmt.Fprintln(tw, "SOURCE\tMODE\tKEY\tOUTPUT")
	for _, r := range reqs {
		mode := r.Mode.String()
		if r.SkipHeader {
			mode += "+header"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Display, mode, r.Key, r.Dest)
	}
	return tw.Flush()
}
