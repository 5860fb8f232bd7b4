package fsm

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// Evaluate runs input to completion on a with the given semantics.
//
// DFA: from the start state, each symbol follows the first matching
// transition in insertion order; no match rejects at once.
// NFA: the epsilon closure of the start state is advanced symbol by
// symbol; an empty successor set rejects at once.
//
// Both report an UnknownSymbolError instead of rejecting when the symbol
// appears on no transition at all.
func Evaluate(a *Automaton, input string, typ Type) (Result, error) {
	r, err := NewRunner(a, typ, input)
	if err != nil {
		return Result{}, err
	}
	return r.Run()
}

// Accepts is Evaluate reduced to the accept decision.
func Accepts(a *Automaton, input string, typ Type) (bool, error) {
	res, err := Evaluate(a, input, typ)
	if err != nil {
		return false, err
	}
	return res.Accepted, nil
}

// Detect reports TypeNFA when the diagram has epsilon transitions or more
// than one transition for some (state, symbol) pair, TypeDFA otherwise.
func Detect(snap diagram.Snapshot) Type {
	seen := make(map[string]bool)
	for _, t := range snap.Transitions {
		if t.HasEpsilon() {
			return TypeNFA
		}
		for _, sym := range uniqueSymbols(t.Symbols) {
			key := fmt.Sprintf("%d-%s", t.From, sym)
			if seen[key] {
				return TypeNFA
			}
			seen[key] = true
		}
	}
	return TypeDFA
}

// Warning describes a structural oddity that does not prevent evaluation.
type Warning struct {
	Type    string          `json:"type"`
	State   diagram.StateID `json:"state"`
	Symbol  string          `json:"symbol,omitempty"`
	Message string          `json:"message"`
}

// Warning types reported by Analyse.
const (
	WarnNoStart          = "no_start"
	WarnNoAccept         = "no_accept"
	WarnNondeterministic = "nondeterministic"
	WarnEpsilon          = "epsilon"
	WarnUnreachable      = "unreachable"
	WarnDead             = "dead"
)

// Analyse lists warnings about snap: a missing start state, an empty
// accept set, nondeterministic (state, symbol) pairs, epsilon transitions,
// dead states (non-accepting, no way out) and states unreachable from the
// start state.
func Analyse(snap diagram.Snapshot) []Warning {
	a := Compile(snap)
	var warnings []Warning

	start, hasStart := a.Start()
	if !hasStart && a.Len() > 0 {
		warnings = append(warnings, Warning{
			Type:    WarnNoStart,
			State:   diagram.NoState,
			Message: "no start state defined",
		})
	}
	if len(snap.Accept) == 0 && a.Len() > 0 {
		warnings = append(warnings, Warning{
			Type:    WarnNoAccept,
			State:   diagram.NoState,
			Message: "no accepting states; every string is rejected",
		})
	}

	for _, id := range a.order {
		counts := make(map[string]int)
		var symbols []string
		eps := 0
		for _, t := range a.out[id] {
			for _, sym := range uniqueSymbols(t.Symbols) {
				if diagram.IsEpsilon(sym) {
					eps++
					continue
				}
				if counts[sym] == 0 {
					symbols = append(symbols, sym)
				}
				counts[sym]++
			}
		}
		for _, sym := range symbols {
			if counts[sym] > 1 {
				warnings = append(warnings, Warning{
					Type:    WarnNondeterministic,
					State:   id,
					Symbol:  sym,
					Message: fmt.Sprintf("state %s has %d transitions on %q", a.Label(id), counts[sym], sym),
				})
			}
		}
		if len(a.out[id]) == 0 && !a.accept[id] {
			warnings = append(warnings, Warning{
				Type:    WarnDead,
				State:   id,
				Message: fmt.Sprintf("state %s is non-accepting and has no outgoing transitions", a.Label(id)),
			})
		}
		if eps > 0 {
			warnings = append(warnings, Warning{
				Type:    WarnEpsilon,
				State:   id,
				Symbol:  diagram.Epsilon,
				Message: fmt.Sprintf("state %s has epsilon transitions", a.Label(id)),
			})
		}
	}

	if hasStart {
		reach := a.reachable(start)
		for _, id := range a.order {
			if !reach[id] {
				warnings = append(warnings, Warning{
					Type:    WarnUnreachable,
					State:   id,
					Message: fmt.Sprintf("state %s is unreachable from %s", a.Label(id), a.Label(start)),
				})
			}
		}
	}
	return warnings
}

// reachable returns every state reachable from start over any transition.
func (a *Automaton) reachable(start diagram.StateID) StateSet {
	seen := NewStateSet(start)
	queue := []diagram.StateID{start}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range a.out[s] {
			if !seen[t.To] {
				seen[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	return seen
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

// uniqueSymbols drops repeats within one transition's symbol list.
func uniqueSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if !slices.Contains(out, sym) {
			out = append(out, sym)
		}
	}
	return out
}
