// Package fsm runs DFA and NFA semantics over a compiled diagram snapshot.
//
// Evaluation is a pure function of (snapshot, input): nothing survives
// between two evaluations. For paced, observable runs use Runner, which
// exposes the same algorithm one symbol at a time.
package fsm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// Type represents the kind of automaton semantics to apply.
type Type string

const (
	TypeDFA Type = "dfa"
	TypeNFA Type = "nfa"
)

var (
	// ErrUnknownSymbol is returned when an input symbol appears on no
	// transition of the whole diagram.
	ErrUnknownSymbol = errors.New("fsm: symbol not in alphabet")

	// ErrUnknownType is returned for an automaton type other than dfa or nfa.
	ErrUnknownType = errors.New("fsm: unknown automaton type")

	// ErrFinished is returned by Runner.Step once the run has ended.
	ErrFinished = errors.New("fsm: run finished")
)

// UnknownSymbolError carries the offending symbol and the alphabet of the
// diagram. It matches ErrUnknownSymbol with errors.Is.
type UnknownSymbolError struct {
	Symbol   string
	Alphabet []string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("symbol %q not in alphabet. Available symbols: %s",
		e.Symbol, strings.Join(e.Alphabet, ", "))
}

// Is lets errors.Is match ErrUnknownSymbol.
func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}

// ParseType converts a user-supplied name into a Type.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeDFA:
		return TypeDFA, nil
	case TypeNFA:
		return TypeNFA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// StateSet is a set of state ids.
type StateSet map[diagram.StateID]bool

// NewStateSet builds a set from ids.
func NewStateSet(ids ...diagram.StateID) StateSet {
	set := make(StateSet, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Sorted returns the members in ascending order.
func (s StateSet) Sorted() []diagram.StateID {
	ids := make([]diagram.StateID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Equal reports whether both sets hold the same members.
func (s StateSet) Equal(o StateSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o[id] {
			return false
		}
	}
	return true
}

// Automaton is a read-only index over a diagram snapshot.
type Automaton struct {
	labels   map[diagram.StateID]string
	order    []diagram.StateID
	out      map[diagram.StateID][]diagram.Transition
	start    diagram.StateID
	accept   map[diagram.StateID]bool
	alphabet map[string]bool
}

// Compile indexes snap for evaluation. Outgoing transitions keep their
// insertion order, which is the DFA tie-break.
func Compile(snap diagram.Snapshot) *Automaton {
	a := &Automaton{
		labels:   make(map[diagram.StateID]string, len(snap.States)),
		order:    make([]diagram.StateID, 0, len(snap.States)),
		out:      make(map[diagram.StateID][]diagram.Transition),
		start:    snap.Start,
		accept:   make(map[diagram.StateID]bool, len(snap.Accept)),
		alphabet: make(map[string]bool),
	}
	for _, st := range snap.States {
		a.labels[st.ID] = st.Label
		a.order = append(a.order, st.ID)
	}
	for _, id := range snap.Accept {
		a.accept[id] = true
	}
	for _, t := range snap.Transitions {
		a.out[t.From] = append(a.out[t.From], t.Clone())
		for _, sym := range t.Symbols {
			if !diagram.IsEpsilon(sym) {
				a.alphabet[sym] = true
			}
		}
	}
	return a
}

// Len returns the number of states.
func (a *Automaton) Len() int {
	return len(a.order)
}

// Start returns the start state, if any.
func (a *Automaton) Start() (diagram.StateID, bool) {
	return a.start, a.start != diagram.NoState
}

// IsAccepting reports whether id is an accept state.
func (a *Automaton) IsAccepting(id diagram.StateID) bool {
	return a.accept[id]
}

// Label returns the display label of a state.
func (a *Automaton) Label(id diagram.StateID) string {
	if l, ok := a.labels[id]; ok {
		return l
	}
	return diagram.DefaultLabel(id)
}

// Alphabet returns the sorted input symbols of the diagram.
func (a *Automaton) Alphabet() []string {
	out := make([]string, 0, len(a.alphabet))
	for s := range a.alphabet {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// InAlphabet reports whether sym can be consumed by some transition.
func (a *Automaton) InAlphabet(sym string) bool {
	return a.alphabet[sym]
}

// EpsilonClosure returns every state reachable from states through
// empty-input transitions, including states themselves.
func (a *Automaton) EpsilonClosure(states StateSet) StateSet {
	closure := make(StateSet, len(states))
	stack := make([]diagram.StateID, 0, len(states))
	for s := range states {
		closure[s] = true
		stack = append(stack, s)
	}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range a.out[s] {
			if !t.HasEpsilon() || closure[t.To] {
				continue
			}
			closure[t.To] = true
			stack = append(stack, t.To)
		}
	}
	return closure
}

// next returns the first transition leaving from on sym.
func (a *Automaton) next(from diagram.StateID, sym string) (diagram.Transition, bool) {
	for _, t := range a.out[from] {
		if t.Has(sym) {
			return t, true
		}
	}
	return diagram.Transition{}, false
}

// move returns every target reachable from states on sym, together with
// the transitions taken.
func (a *Automaton) move(states StateSet, sym string) (StateSet, []diagram.TransitionID) {
	targets := make(StateSet)
	var via []diagram.TransitionID
	for _, s := range states.Sorted() {
		for _, t := range a.out[s] {
			if t.Has(sym) {
				targets[t.To] = true
				via = append(via, t.ID)
			}
		}
	}
	return targets, via
}

// unknown returns an UnknownSymbolError when sym is absent from the whole
// diagram, nil otherwise.
func (a *Automaton) unknown(sym string) error {
	if a.alphabet[sym] {
		return nil
	}
	return &UnknownSymbolError{Symbol: sym, Alphabet: a.Alphabet()}
}
