// Package batch evaluates many input strings against one diagram.
package batch

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

// Progress is emitted before each input is evaluated.
type Progress struct {
	Index int // 1-based
	Total int
	Input string
}

// ProgressFunc receives progress notifications. It may be nil.
type ProgressFunc func(Progress)

// Result is the outcome for one input. Err is empty unless evaluation
// failed, in which case Accepted is false.
type Result struct {
	Input         string `json:"input"`
	Accepted      bool   `json:"accepted"`
	Err           string `json:"error,omitempty"`
	UnknownSymbol bool   `json:"unknownSymbol,omitempty"`
}

// Summary counts a batch's results.
type Summary struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Errors   int `json:"errors"`
}

// Runner drives the evaluator over lists of inputs.
type Runner struct {
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records outcomes and durations in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every input against snap in order and returns one result
// per input. An evaluation error is recorded on its result and the batch
// goes on.
//
// Run fails before evaluating anything when snap has no states
// (diagram.ErrEmptyDiagram), no start state (diagram.ErrNoStartState) or typ
// is invalid. When ctx is cancelled between two inputs, the results so far
// are returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, snap diagram.Snapshot, inputs []string, typ fsm.Type, progress ProgressFunc) ([]Result, error) {
	if len(snap.States) == 0 {
		return nil, diagram.ErrEmptyDiagram
	}
	if snap.Start == diagram.NoState {
		return nil, diagram.ErrNoStartState
	}
	if _, err := fsm.ParseType(string(typ)); err != nil {
		return nil, err
	}

	a := fsm.Compile(snap)
	started := time.Now()
	results := make([]Result, 0, len(inputs))

	for i, raw := range inputs {
		if err := ctx.Err(); err != nil {
			r.logger.Info("batch cancelled", "done", i, "total", len(inputs))
			return results, err
		}

		input := strings.TrimSpace(raw)
		if progress != nil {
			progress(Progress{Index: i + 1, Total: len(inputs), Input: input})
		}

		res := Result{Input: input}
		accepted, err := fsm.Accepts(a, input, typ)
		if err != nil {
			res.Err = err.Error()
			res.UnknownSymbol = errors.Is(err, fsm.ErrUnknownSymbol)
			r.logger.Debug("batch input failed", "input", input, "err", err)
		} else {
			res.Accepted = accepted
		}
		results = append(results, res)
		r.metrics.observe(typ, res)
	}

	r.metrics.finish(typ, time.Since(started))
	r.logger.Debug("batch finished", "total", len(results), "type", typ, "elapsed", time.Since(started))
	return results, nil
}

// ParseInputs splits text into lines, trims each one and drops blank lines.
func ParseInputs(text string) []string {
	var inputs []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			inputs = append(inputs, line)
		}
	}
	return inputs
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != "":
			s.Errors++
		case r.Accepted:
			s.Accepted++
		default:
			s.Rejected++
		}
	}
	return s
}
