package app

import (
	"bufio"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/headtail/internal/extract"
	"github.com/hyperifyio/headtail/internal/record"
	"github.com/hyperifyio/headtail/internal/sink"
	"github.com/hyperifyio/headtail/internal/source"
)

// Outcome is the result of one source. Failures are reported here and never
// abort sibling sources.
type Outcome struct {
	Name    string
	Display string
	OK      bool
	// Records is the number of records written (head plus tail).
	Records int
	// Scanned is the number of records read from the source.
	Scanned int
	// Dest is empty when nothing was written.
	Dest     string
	Bytes    int64
	SHA256   string
	Duration time.Duration
	Err      error
}

// Summary aggregates the outcomes of a batch. Outcomes follow request order.
type Summary struct {
	Outcomes  []Outcome
	Attempted int
	Succeeded int
	Failed    int
	Started   time.Time
	Finished  time.Time
}

// Err returns ErrSourcesFailed when at least one source failed.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrSourcesFailed, s.Failed, s.Attempted)
}

// Orchestrator runs one independent extraction per request.
type Orchestrator struct {
	Provider source.Provider
	Sink     sink.Sink
	// Concurrency caps in-flight sources. Zero or less means no cap; 1 runs
	// the sources one after another.
	Concurrency int
	// SourceTimeout bounds each source. Zero disables it.
	SourceTimeout time.Duration
	// Metrics is optional.
	Metrics *Metrics

	processed atomic.Int64
}

// Batch is a set of extractions started by Start.
type Batch struct {
	outcomes []Outcome
	started  time.Time
	done     chan struct{}
	summary  Summary
}

// Start launches every request and returns without waiting for them.
func (o *Orchestrator) Start(ctx context.Context, reqs []Request) *Batch {
	b := &Batch{
		outcomes: make([]Outcome, len(reqs)),
		started:  time.Now(),
		done:     make(chan struct{}),
	}
	var g errgroup.Group
	if o.Concurrency > 0 {
		g.SetLimit(o.Concurrency)
	}
	go func() {
		defer close(b.done)
		for i, req := range reqs {
			i, req := i, req
			g.Go(func() error {
				b.outcomes[i] = o.extract(ctx, req)
				return nil
			})
		}
		_ = g.Wait()
		b.summary = summarize(b.outcomes, b.started)
	}()
	return b
}

// Done is closed when every source of the batch has finished.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch is finished and returns its summary.
func (b *Batch) Wait() Summary {
	<-b.done
	return b.summary
}

// Run starts reqs and waits for them.
func (o *Orchestrator) Run(ctx context.Context, reqs []Request) Summary {
	return o.Start(ctx, reqs).Wait()
}

// Processed returns the number of sources finished so far across batches.
func (o *Orchestrator) Processed() int64 { return o.processed.Load() }

func summarize(outcomes []Outcome, started time.Time) Summary {
	s := Summary{Outcomes: outcomes, Attempted: len(outcomes), Started: started, Finished: time.Now()}
	for _, o := range outcomes {
		if o.OK {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

func (o *Orchestrator) extract(ctx context.Context, req Request) (out Outcome) {
	start := time.Now()
	out = Outcome{Name: req.Name, Display: req.Display}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Name: req.Name, Display: req.Display, Err: fmt.Errorf("panic: %v", r)}
			log.Error().Str("source", req.Display).Interface("panic", r).Msg("source panicked")
		}
		out.Duration = time.Since(start)
		o.processed.Add(1)
		o.Metrics.Observe(out)
	}()

	if o.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.SourceTimeout)
		defer cancel()
	}

	log.Debug().Str("source", req.Display).Str("key", req.Key).Str("mode", req.Mode.String()).Msg("working")
	res, err := o.sample(ctx, req)
	if err != nil {
		out.Err = err
		log.Warn().Err(err).Str("source", req.Display).Msg("extract failed")
		return out
	}
	out.Records = res.Len()
	out.Scanned = res.Scanned
	if res.Len() > 0 {
		rcpt, err := o.Sink.Write(ctx, req.Dest, res.Records())
		if err != nil {
			out.Err = fmt.Errorf("write %s: %w", req.Dest, err)
			log.Warn().Err(err).Str("source", req.Display).Str("out", req.Dest).Msg("write failed")
			return out
		}
		out.Dest = rcpt.Path
		out.Bytes = rcpt.Bytes
		out.SHA256 = rcpt.SHA256
	}
	out.OK = true
	log.Info().Str("source", req.Display).Int("records", out.Records).Int("scanned", out.Scanned).Str("out", out.Dest).Msg("complete")
	return out
}

func (o *Orchestrator) sample(ctx context.Context, req Request) (extract.Result, error) {
	enc, err := source.LookupEncoding(req.Encoding)
	if err != nil {
		return extract.Result{}, err
	}
	rc, err := o.Provider.Open(ctx, req.Key)
	if err != nil {
		return extract.Result{}, fmt.Errorf("open %s: %w", req.Key, err)
	}
	stream := source.ContextReader(ctx, rc)
	defer stream.Close()

	br := bufio.NewReaderSize(source.Decode(stream, enc), 64*1024)
	if req.SkipHeader {
		if err := record.SkipLine(br); err != nil {
			return extract.Result{}, fmt.Errorf("skip header of %s: %w", req.Key, err)
		}
	}
	sc, err := record.New(br, req.Mode, record.Options{Delimiter: req.Delimiter, Match: req.Match})
	if err != nil {
		return extract.Result{}, err
	}
	res, err := extract.HeadTail(sc, req.K)
	if err != nil {
		return extract.Result{}, fmt.Errorf("%s: %w", req.Key, err)
	}
	return res, nil
}
