package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/capview/internal/logging"
)

// recordTimeout bounds how long a finished run may spend in the recorder.
const recordTimeout = 10 * time.Second

// Pipeline sequences resolve, fetch, parse and render for one run.
//
// Entries are independent: a failure in one never stops the others, and the
// sink always receives entries in index order. The sink is only called with
// fully parsed tables.
type Pipeline struct {
	resolver ConfigResolver
	fetcher  Fetcher
	sink     Sink
	recorder RunRecorder
	read     ReadOptions
	parallel int
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder stores every finished run.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithReadOptions sets how downloaded files are decoded.
func WithReadOptions(o ReadOptions) Option {
	return func(p *Pipeline) { p.read = o }
}

// WithParallel lets up to n entries fetch and parse at the same time.
// Values below 2 keep the strictly sequential behavior.
func WithParallel(n int) Option {
	return func(p *Pipeline) { p.parallel = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a Pipeline.
func NewPipeline(resolver ConfigResolver, fetcher Fetcher, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		fetcher:  fetcher,
		sink:     sink,
		parallel: 1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// entryResult is a processed entry waiting for delivery to the sink.
type entryResult struct {
	outcome EntryOutcome
	title   string
	table   *Table
}

// Run executes the pipeline once.
//
// A configuration error ends the run before any fetch; it is reported in
// RunReport.ConfigErr and Entries stays empty. Otherwise the report holds
// one outcome per entry, in index order.
func (p *Pipeline) Run(ctx context.Context, configPath string) *RunReport {
	report := &RunReport{
		RunID:      uuid.New(),
		ConfigPath: configPath,
		StartedAt:  p.now(),
	}
	ctx = logging.WithRunID(ctx, report.RunID.String())
	logger := logging.FromContext(ctx)
	logger.Info("run started", "config", configPath)

	cfg, err := p.resolver.Resolve(configPath)
	if err != nil {
		report.ConfigErr = err
		report.FinishedAt = p.now()
		logger.Error("configuration failed",
			"error", err,
			"code", MapError(err).Code,
		)
		p.record(ctx, report)
		return report
	}

	logger.Info("configuration loaded",
		"source", cfg.Source,
		"server", cfg.Server,
		"protocol", cfg.Protocol,
	)

	if p.parallel > 1 {
		report.Entries = p.runParallel(ctx, cfg)
	} else {
		report.Entries = p.runSequential(ctx, cfg)
	}

	report.FinishedAt = p.now()
	logger.Info("run finished",
		"rendered", len(report.Entries)-report.Failed(),
		"failed", report.Failed(),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)

	p.record(ctx, report)
	return report
}

func (p *Pipeline) runSequential(ctx context.Context, cfg *Configuration) []EntryOutcome {
	outcomes := make([]EntryOutcome, 0, len(cfg.Datasets))
	for _, entry := range cfg.Datasets {
		res := p.process(ctx, cfg, entry)
		outcomes = append(outcomes, p.deliver(ctx, res))
	}
	return outcomes
}

func (p *Pipeline) runParallel(ctx context.Context, cfg *Configuration) []EntryOutcome {
	results := make([]entryResult, len(cfg.Datasets))

	var g errgroup.Group
	g.SetLimit(p.parallel)
	for i, entry := range cfg.Datasets {
		g.Go(func() error {
			results[i] = p.process(ctx, cfg, entry)
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]EntryOutcome, 0, len(results))
	for _, res := range results {
		outcomes = append(outcomes, p.deliver(ctx, res))
	}
	return outcomes
}

// process fetches and parses one entry. It never calls the sink.
func (p *Pipeline) process(ctx context.Context, cfg *Configuration, entry DatasetEntry) entryResult {
	start := p.now()
	res := entryResult{
		title: entry.Title,
		outcome: EntryOutcome{
			Index:      entry.Index,
			Kind:       entry.Kind,
			RemotePath: entry.RemotePath,
			LocalPath:  entry.LocalPath,
			State:      StatePending,
		},
	}
	logger := logging.WithFields(ctx, "entry", entry.Index, "kind", entry.Kind)

	fail := func(err error) entryResult {
		logger.Warn("entry failed",
			"phase", res.outcome.State,
			"error", err,
			"code", MapError(err).Code,
		)
		res.outcome.State = StateFailed
		res.outcome.Err = err
		res.outcome.Duration = p.now().Sub(start)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	def, ok := Get(entry.Kind)
	if !ok {
		return fail(fmt.Errorf("no dataset registered for kind %q", entry.Kind))
	}
	if res.title == "" {
		res.title = def.Label
	}

	res.outcome.State = StateFetching
	logger.Info("fetching", "remote", entry.RemotePath, "local", entry.LocalPath)
	if err := p.fetcher.Fetch(ctx, cfg.Credentials(), entry.RemotePath, entry.LocalPath); err != nil {
		return fail(err)
	}

	res.outcome.State = StateParsing
	logger.Debug("parsing", "binding", def.Binding)
	table, err := def.Parse(entry.LocalPath, p.read)
	if err != nil {
		return fail(err)
	}

	res.table = table
	res.outcome.Rows = table.Len()
	res.outcome.Duration = p.now().Sub(start)
	return res
}

// deliver hands a processed entry to the sink and settles its final state.
func (p *Pipeline) deliver(ctx context.Context, res entryResult) EntryOutcome {
	out := res.outcome
	logger := logging.WithFields(ctx, "entry", out.Index, "kind", out.Kind)

	if out.State != StateFailed {
		err := p.sink.Render(ctx, View{
			Entry: out.Index,
			Kind:  out.Kind,
			Title: res.title,
			Table: res.table,
		})
		if err == nil {
			out.State = StateRendered
			logger.Info("entry rendered", "rows", out.Rows)
			return out
		}
		out.State = StateFailed
		out.Err = &RenderError{Entry: out.Index, Err: err}
		logger.Error("render failed", "error", err)
	}

	p.sink.ReportFailure(ctx, Failure{
		Entry:   out.Index,
		Kind:    out.Kind,
		Title:   res.title,
		Err:     out.Err,
		Message: MapError(out.Err),
	})
	return out
}

func (p *Pipeline) record(ctx context.Context, report *RunReport) {
	if p.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := p.recorder.Record(ctx, report); err != nil {
		logging.FromContext(ctx).Warn("failed to record run", "error", err)
	}
}
