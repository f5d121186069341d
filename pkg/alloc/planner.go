package alloc

import (
	"time"

	"github.com/OpenTraceLab/pinplan/internal/logging"
	"github.com/OpenTraceLab/pinplan/internal/metrics"
	"github.com/OpenTraceLab/pinplan/pkg/board"
	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for commit and failure records.
func WithLogger(l logging.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the collector that receives run and validation metrics.
func WithMetrics(m metrics.Collector) Option {
	return func(p *Planner) {
		if m != nil {
			p.metrics = m
		}
	}
}

// Planner validates and allocates requirement sets against one board.
// A Planner holds no per-run state and may be shared between goroutines.
type Planner struct {
	board   *board.Board
	logger  logging.Logger
	metrics metrics.Collector
}

// NewPlanner returns a planner for b.
func NewPlanner(b *board.Board, opts ...Option) *Planner {
	p := &Planner{
		board:   b,
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Board returns the board the planner allocates against.
func (p *Planner) Board() *board.Board { return p.board }

// Optimize runs the allocator on b with default options.
func Optimize(reqs []requirement.Requirement, b *board.Board) *Result {
	return NewPlanner(b).Optimize(reqs)
}

// Validate checks reqs against the board catalog and pinout. Every finding
// is counted by the metrics collector.
func (p *Planner) Validate(reqs []requirement.Requirement) ValidationErrors {
	errs := Validate(reqs, p.board.Capabilities)
	errs = append(errs, validatePins(reqs, p.board)...)
	for _, e := range errs {
		p.metrics.RecordValidationError(string(e.Type))
	}
	return errs
}

// Plan validates reqs and, when they pass, optimizes them. A non-nil error
// is always a ValidationErrors value.
func (p *Planner) Plan(reqs []requirement.Requirement) (*Result, error) {
	if errs := p.Validate(reqs); len(errs) > 0 {
		p.logger.Warn("requirements rejected", "board", p.board.Name, "errors", len(errs))
		p.metrics.RecordRun(metrics.OutcomeInvalid, 0, 0)
		return nil, errs
	}
	return p.Optimize(reqs), nil
}

// Optimize allocates reqs without validating them first. A requirement set
// that fails validation may still produce a partial result.
func (p *Planner) Optimize(reqs []requirement.Requirement) *Result {
	start := time.Now()
	res := p.run(reqs)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if !res.Success {
		outcome = metrics.OutcomeStuck
	}
	p.metrics.RecordRun(outcome, res.Iterations, elapsed.Seconds())
	p.logger.Info("allocation finished",
		"board", p.board.Name,
		"success", res.Success,
		"assigned", len(res.Assigned),
		"unassigned", len(res.Unassigned),
		"iterations", res.Iterations,
		"elapsed", elapsed)
	return res
}
