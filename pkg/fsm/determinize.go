package fsm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// Determinize converts the diagram in snap to an equivalent DFA using the
// powerset construction. Each DFA state stands for a set of original
// states and is labelled "{qa,qb}" from their labels. Symbols leading to
// the same target are merged onto one transition. Sets with no successor
// on a symbol get no transition, so the result may be partial.
func Determinize(snap diagram.Snapshot) (diagram.Snapshot, error) {
	a := Compile(snap)
	start, ok := a.Start()
	if !ok {
		return diagram.Snapshot{}, diagram.ErrNoStartState
	}
	alphabet := a.Alphabet()

	// Subsets are identified by state ids; labels need not be unique.
	setKey := func(set StateSet) string {
		return fmt.Sprint(set.Sorted())
	}
	setLabel := func(set StateSet) string {
		ids := set.Sorted()
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = a.Label(id)
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	isAccepting := func(set StateSet) bool {
		for id := range set {
			if a.accept[id] {
				return true
			}
		}
		return false
	}

	dfa := diagram.Snapshot{Start: 0}
	ids := make(map[string]diagram.StateID)
	add := func(set StateSet) diagram.StateID {
		key := setKey(set)
		if id, ok := ids[key]; ok {
			return id
		}
		id := diagram.StateID(len(dfa.States))
		ids[key] = id
		x, y := diagram.GridPosition(int(id))
		st := diagram.State{
			ID:       id,
			Label:    setLabel(set),
			X:        x,
			Y:        y,
			IsStart:  id == 0,
			IsAccept: isAccepting(set),
		}
		dfa.States = append(dfa.States, st)
		if st.IsAccept {
			dfa.Accept = append(dfa.Accept, id)
		}
		return id
	}

	initial := a.EpsilonClosure(NewStateSet(start))
	add(initial)
	queue := []StateSet{initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		from := ids[setKey(current)]

		// symbols grouped per target keep one transition per pair
		byTarget := make(map[diagram.StateID][]string)
		var targets []diagram.StateID
		for _, sym := range alphabet {
			next, _ := a.move(current, sym)
			if len(next) == 0 {
				continue
			}
			next = a.EpsilonClosure(next)
			_, seen := ids[setKey(next)]
			to := add(next)
			if !seen {
				queue = append(queue, next)
			}
			if _, ok := byTarget[to]; !ok {
				targets = append(targets, to)
			}
			byTarget[to] = append(byTarget[to], sym)
		}

		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		for _, to := range targets {
			dfa.Transitions = append(dfa.Transitions, diagram.Transition{
				ID:      diagram.TransitionID(len(dfa.Transitions)),
				From:    from,
				To:      to,
				Symbols: byTarget[to],
				Curved:  from == to,
			})
		}
	}

	dfa.NextState = diagram.StateID(len(dfa.States))
	dfa.NextTransition = diagram.TransitionID(len(dfa.Transitions))
	return dfa, nil
}
