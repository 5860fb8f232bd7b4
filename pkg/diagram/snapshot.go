package diagram

import (
	"fmt"
	"sort"
)

// Snapshot is a detached, value-only copy of a Store. It is safe to keep
// across later edits of the store it was taken from.
type Snapshot struct {
	States         []State
	Transitions    []Transition
	Start          StateID
	Accept         []StateID
	NextState      StateID
	NextTransition TransitionID
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		States:         append([]State(nil), s.States...),
		Transitions:    make([]Transition, len(s.Transitions)),
		Start:          s.Start,
		Accept:         append([]StateID(nil), s.Accept...),
		NextState:      s.NextState,
		NextTransition: s.NextTransition,
	}
	for i, t := range s.Transitions {
		c.Transitions[i] = t.Clone()
	}
	return c
}

// State looks up a state by id.
func (s Snapshot) State(id StateID) (State, bool) {
	for _, st := range s.States {
		if st.ID == id {
			return st, true
		}
	}
	return State{}, false
}

// Snapshot captures the store as a detached value.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		States:         s.States(),
		Transitions:    s.Transitions(),
		Start:          s.start,
		Accept:         s.AcceptStates(),
		NextState:      s.nextState,
		NextTransition: s.nextTrans,
	}
	return snap
}

// Load replaces the whole diagram with snap and records the change under
// action. An invalid snapshot leaves the store untouched.
func (s *Store) Load(snap Snapshot, action string) error {
	if err := s.apply(snap); err != nil {
		return err
	}
	s.commit(action)
	return nil
}

// Restore replaces the whole diagram with snap without notifying the
// recorder. It is the path used when replaying history.
func (s *Store) Restore(snap Snapshot) error {
	return s.apply(snap)
}

// apply validates snap into fresh structures and only then swaps them in,
// so no object from before the call survives it.
func (s *Store) apply(snap Snapshot) error {
	states := make(map[StateID]*State, len(snap.States))
	order := make([]StateID, 0, len(snap.States))
	accept := make(map[StateID]struct{}, len(snap.Accept))
	maxState := NoState

	for _, st := range snap.States {
		if st.ID < 0 {
			return fmt.Errorf("%w: negative state id %d", ErrInvariantViolation, st.ID)
		}
		if _, dup := states[st.ID]; dup {
			return fmt.Errorf("%w: duplicate state id %d", ErrInvariantViolation, st.ID)
		}
		c := st
		states[st.ID] = &c
		order = append(order, st.ID)
		if st.ID > maxState {
			maxState = st.ID
		}
	}

	start := snap.Start
	if start != NoState {
		if _, ok := states[start]; !ok {
			return fmt.Errorf("%w: start state %d", ErrStateNotFound, start)
		}
	}
	for _, id := range order {
		if states[id].IsStart != (id == start) {
			return fmt.Errorf("%w: start flag of state %d disagrees with start state", ErrInvariantViolation, id)
		}
	}

	for _, id := range snap.Accept {
		if _, ok := states[id]; !ok {
			return fmt.Errorf("%w: accept state %d", ErrStateNotFound, id)
		}
		accept[id] = struct{}{}
	}
	for _, id := range order {
		_, in := accept[id]
		if states[id].IsAccept != in {
			return fmt.Errorf("%w: accept flag of state %d disagrees with accept set", ErrInvariantViolation, id)
		}
	}

	transitions := make([]Transition, 0, len(snap.Transitions))
	seen := make(map[TransitionID]bool, len(snap.Transitions))
	maxTrans := TransitionID(-1)
	for _, t := range snap.Transitions {
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate transition id %d", ErrInvariantViolation, t.ID)
		}
		seen[t.ID] = true
		if _, ok := states[t.From]; !ok {
			return fmt.Errorf("%w: transition %d from %d", ErrStateNotFound, t.ID, t.From)
		}
		if _, ok := states[t.To]; !ok {
			return fmt.Errorf("%w: transition %d to %d", ErrStateNotFound, t.ID, t.To)
		}
		if len(t.Symbols) == 0 {
			return fmt.Errorf("%w: transition %d has no symbols", ErrInvariantViolation, t.ID)
		}
		transitions = append(transitions, t.Clone())
		if t.ID > maxTrans {
			maxTrans = t.ID
		}
	}

	nextState := max(s.nextState, snap.NextState, maxState+1)
	nextTrans := max(s.nextTrans, snap.NextTransition, maxTrans+1)

	s.states = states
	s.order = order
	s.accept = accept
	s.start = start
	s.transitions = transitions
	s.nextState = nextState
	s.nextTrans = nextTrans
	return nil
}

// Equal reports whether two snapshots describe the same diagram: the same
// states, start state, accept set and transitions. Id counters and
// transition order are ignored.
func Equal(a, b Snapshot) bool {
	if a.Start != b.Start || len(a.States) != len(b.States) || len(a.Transitions) != len(b.Transitions) {
		return false
	}
	bs := make(map[StateID]State, len(b.States))
	for _, st := range b.States {
		bs[st.ID] = st
	}
	for _, st := range a.States {
		if other, ok := bs[st.ID]; !ok || other != st {
			return false
		}
	}
	if !sameIDs(a.Accept, b.Accept) {
		return false
	}
	ka, kb := transitionKeys(a.Transitions), transitionKeys(b.Transitions)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func sameIDs(a, b []StateID) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]StateID(nil), a...)
	y := append([]StateID(nil), b...)
	sort.Slice(x, func(i, j int) bool { return x[i] < x[j] })
	sort.Slice(y, func(i, j int) bool { return y[i] < y[j] })
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func transitionKeys(ts []Transition) []string {
	keys := make([]string, len(ts))
	for i, t := range ts {
		syms := append([]string(nil), t.Symbols...)
		sort.Strings(syms)
		keys[i] = fmt.Sprintf("%d>%d:%q:%v", t.From, t.To, syms, t.Curved)
	}
	sort.Strings(keys)
	return keys
}
