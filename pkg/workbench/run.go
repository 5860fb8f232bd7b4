package workbench

import (
	"context"
	"errors"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/batch"
	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

// Evaluate runs input against the current diagram and reports the outcome
// on the status sink.
func (w *Workbench) Evaluate(input string, typ fsm.Type) (fsm.Result, error) {
	r, err := w.runner(input, typ)
	if err != nil {
		return fsm.Result{}, err
	}
	res, err := r.Run()
	w.finish(input, typ, r)
	return res, err
}

func (w *Workbench) runner(input string, typ fsm.Type) (*fsm.Runner, error) {
	r, err := fsm.NewRunner(fsm.Compile(w.store.Snapshot()), typ, input)
	if err != nil {
		if errors.Is(err, diagram.ErrNoStartState) {
			w.status("No start state defined!")
		} else {
			w.status("%v", err)
		}
		return nil, err
	}
	return r, nil
}

// finish reports a finished run.
func (w *Workbench) finish(input string, typ fsm.Type, r *fsm.Runner) {
	if err := r.Err(); err != nil {
		w.status("%v", err)
		return
	}

	if r.Outcome() == fsm.Rejected && r.Remaining() != "" {
		steps := r.History()
		last := steps[len(steps)-1]
		if typ == fsm.TypeDFA {
			w.status("No transition from %s on symbol %q. String rejected!", r.CurrentState(), last.Symbol)
		} else {
			w.status("No transitions from current states on symbol %q. String rejected!", last.Symbol)
		}
		return
	}

	switch {
	case typ == fsm.TypeDFA && r.Outcome() == fsm.Accepted:
		w.status("String %q accepted! Ended in accept state %s", input, r.CurrentState())
	case typ == fsm.TypeDFA:
		w.status("String %q rejected! Ended in non-accept state %s", input, r.CurrentState())
	case r.Outcome() == fsm.Accepted:
		w.status("String %q accepted! At least one final state is accepting", input)
	default:
		w.status("String %q rejected! No final state is accepting", input)
	}
}

// RunBatch evaluates inputs against the current diagram. See batch.Runner.
func (w *Workbench) RunBatch(ctx context.Context, inputs []string, typ fsm.Type, progress batch.ProgressFunc) ([]batch.Result, error) {
	results, err := w.batch.Run(ctx, w.store.Snapshot(), inputs, typ, progress)
	switch {
	case errors.Is(err, diagram.ErrEmptyDiagram):
		w.status("No diagram loaded. Please create a diagram first.")
	case errors.Is(err, diagram.ErrNoStartState):
		w.status("No start state defined. Please set a start state.")
	case err != nil:
		w.status("Batch stopped after %d of %d strings: %v", len(results), len(inputs), err)
	default:
		s := batch.Summarize(results)
		w.status("Batch complete: %d strings, %d accepted, %d rejected, %d errors",
			s.Total, s.Accepted, s.Rejected, s.Errors)
	}
	return results, err
}

// Animation is a paced run of one input string. While it is open the
// workbench refuses edits. The caller decides when to call Step.
type Animation struct {
	w      *Workbench
	runner *fsm.Runner
	input  string
	typ    fsm.Type
	closed bool
}

// StartAnimation begins a step-by-step run of input. It fails with ErrBusy
// if another animation is open.
func (w *Workbench) StartAnimation(input string, typ fsm.Type) (*Animation, error) {
	if err := w.guard(); err != nil {
		return nil, err
	}
	r, err := w.runner(input, typ)
	if err != nil {
		return nil, err
	}
	w.busy = true
	w.status("Processing string %q with %s...", input, strings.ToUpper(string(typ)))
	w.logger.Debug("animation started", "input", input, "type", typ)

	a := &Animation{w: w, runner: r, input: input, typ: typ}
	if r.Done() {
		w.finish(input, typ, r)
	}
	return a, nil
}

// Step consumes one symbol. Once the run ends the outcome is reported on
// the status sink, and further calls return fsm.ErrFinished.
func (a *Animation) Step() (fsm.Step, error) {
	step, err := a.runner.Step()
	if errors.Is(err, fsm.ErrFinished) {
		return step, err
	}
	if a.runner.Done() {
		a.w.finish(a.input, a.typ, a.runner)
	}
	return step, err
}

// Done reports whether the run has ended.
func (a *Animation) Done() bool { return a.runner.Done() }

// Runner exposes the underlying run for display.
func (a *Animation) Runner() *fsm.Runner { return a.runner }

// Close releases the workbench. It is safe to call more than once.
func (a *Animation) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.w.busy = false
	a.w.logger.Debug("animation closed", "input", a.input, "outcome", a.runner.Outcome())
}
