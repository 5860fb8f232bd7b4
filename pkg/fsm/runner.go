package fsm

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// Outcome is the state of a run.
type Outcome int

const (
	Running Outcome = iota
	Accepted
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Step records one consumed symbol.
type Step struct {
	Symbol string
	From   []diagram.StateID
	To     []diagram.StateID // empty when the symbol had no transition
	Via    []diagram.TransitionID
}

// Runner executes an automaton over one input string, one symbol per
// call to Step. For NFAs it tracks every current state at once.
//
// A Runner never sleeps; pacing belongs to whoever drives it.
type Runner struct {
	a       *Automaton
	typ     Type
	input   []string
	pos     int
	current StateSet
	history []Step
	outcome Outcome
	err     error
}

// NewRunner prepares a run of input on a. It fails with
// diagram.ErrNoStartState when a has no start state.
func NewRunner(a *Automaton, typ Type, input string) (*Runner, error) {
	if typ != TypeDFA && typ != TypeNFA {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if _, ok := a.Start(); !ok {
		return nil, diagram.ErrNoStartState
	}

	r := &Runner{a: a, typ: typ}
	for _, c := range input {
		r.input = append(r.input, string(c))
	}
	r.Reset()
	return r, nil
}

// Reset returns the runner to the start of its input.
func (r *Runner) Reset() {
	start, _ := r.a.Start()
	r.current = NewStateSet(start)
	if r.typ == TypeNFA {
		r.current = r.a.EpsilonClosure(r.current)
	}
	r.pos = 0
	r.history = make([]Step, 0, len(r.input))
	r.outcome = Running
	r.err = nil
	r.settle()
}

// settle decides the outcome once the whole input has been consumed.
func (r *Runner) settle() {
	if r.outcome != Running || r.pos < len(r.input) {
		return
	}
	if r.IsAccepting() {
		r.outcome = Accepted
	} else {
		r.outcome = Rejected
	}
}

// Step consumes the next input symbol. A symbol with no transition ends
// the run as rejected; a symbol absent from the whole diagram ends it with
// an UnknownSymbolError. Calling Step after the run ended returns
// ErrFinished.
func (r *Runner) Step() (Step, error) {
	if r.outcome != Running {
		return Step{}, ErrFinished
	}

	sym := r.input[r.pos]
	step := Step{Symbol: sym, From: r.current.Sorted()}

	if diagram.IsEpsilon(sym) {
		return r.fail(step, &UnknownSymbolError{Symbol: sym, Alphabet: r.a.Alphabet()})
	}

	var next StateSet
	switch r.typ {
	case TypeDFA:
		// current holds exactly one state under DFA semantics.
		if t, ok := r.a.next(step.From[0], sym); ok {
			next = NewStateSet(t.To)
			step.Via = []diagram.TransitionID{t.ID}
		}
	case TypeNFA:
		next, step.Via = r.a.move(r.current, sym)
	}

	if len(next) == 0 {
		if err := r.a.unknown(sym); err != nil {
			return r.fail(step, err)
		}
		r.history = append(r.history, step)
		r.outcome = Rejected
		return step, nil
	}

	if r.typ == TypeNFA {
		next = r.a.EpsilonClosure(next)
	}
	r.current = next
	r.pos++
	step.To = next.Sorted()
	r.history = append(r.history, step)
	r.settle()
	return step, nil
}

func (r *Runner) fail(step Step, err error) (Step, error) {
	r.history = append(r.history, step)
	r.outcome = Failed
	r.err = err
	return step, err
}

// Run steps until the run ends and returns its result.
func (r *Runner) Run() (Result, error) {
	for r.outcome == Running {
		if _, err := r.Step(); err != nil {
			return r.Result(), err
		}
	}
	return r.Result(), r.err
}

// Done reports whether the run has ended.
func (r *Runner) Done() bool {
	return r.outcome != Running
}

// Outcome returns the current outcome.
func (r *Runner) Outcome() Outcome {
	return r.outcome
}

// Err returns the error that ended the run, if any.
func (r *Runner) Err() error {
	return r.err
}

// Position returns how many symbols have been consumed.
func (r *Runner) Position() int {
	return r.pos
}

// Remaining returns the unconsumed part of the input.
func (r *Runner) Remaining() string {
	return strings.Join(r.input[r.pos:], "")
}

// CurrentStates returns the active states in ascending id order.
func (r *Runner) CurrentStates() []diagram.StateID {
	return r.current.Sorted()
}

// CurrentState returns the active states as display labels. A single
// state prints bare; several print as a set.
func (r *Runner) CurrentState() string {
	return r.formatSet(r.current.Sorted())
}

func (r *Runner) formatSet(ids []diagram.StateID) string {
	if len(ids) == 1 {
		return r.a.Label(ids[0])
	}
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = r.a.Label(id)
	}
	return "{" + strings.Join(labels, ", ") + "}"
}

// IsAccepting returns true if any current state is accepting.
func (r *Runner) IsAccepting() bool {
	for id := range r.current {
		if r.a.IsAccepting(id) {
			return true
		}
	}
	return false
}

// AvailableInputs returns the symbols that leave any current state.
func (r *Runner) AvailableInputs() []string {
	seen := make(map[string]bool)
	var inputs []string
	for _, id := range r.current.Sorted() {
		for _, t := range r.a.out[id] {
			for _, s := range t.Symbols {
				if diagram.IsEpsilon(s) || seen[s] {
					continue
				}
				seen[s] = true
				inputs = append(inputs, s)
			}
		}
	}
	return sortedStrings(inputs)
}

// History returns the steps taken so far.
func (r *Runner) History() []Step {
	return r.history
}

// FormatStep renders a step as "from --sym--> to" using state labels.
func (r *Runner) FormatStep(s Step) string {
	to := "∅"
	if len(s.To) > 0 {
		to = r.formatSet(s.To)
	}
	return fmt.Sprintf("%s --%s--> %s", r.formatSet(s.From), s.Symbol, to)
}

// Status returns a one-line summary of the run.
func (r *Runner) Status() string {
	status := fmt.Sprintf("State: %s", r.CurrentState())
	if r.IsAccepting() {
		status += " [accepting]"
	}
	if r.outcome != Running {
		status += " (" + r.outcome.String() + ")"
	}
	return status
}

// Result is the outcome of a whole-string evaluation.
type Result struct {
	Accepted bool
	Outcome  Outcome
	Final    []diagram.StateID
	Consumed int
	Trace    []Step
}

// Result summarises the run so far.
func (r *Runner) Result() Result {
	return Result{
		Accepted: r.outcome == Accepted,
		Outcome:  r.outcome,
		Final:    r.current.Sorted(),
		Consumed: r.pos,
		Trace:    append([]Step(nil), r.history...),
	}
}
