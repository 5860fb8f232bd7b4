package diagram

import (
	"fmt"
	"sort"
	"strings"
)

// Store owns the canonical diagram. Every mutator keeps the invariants
// listed on Check and notifies the attached Recorder once the change has
// been applied.
//
// A Store is not safe for concurrent use; it belongs to a single logical
// thread of control.
type Store struct {
	states      map[StateID]*State
	order       []StateID
	transitions []Transition
	start       StateID
	accept      map[StateID]struct{}
	nextState   StateID
	nextTrans   TransitionID
	recorder    Recorder
}

// New creates an empty store.
func New() *Store {
	return &Store{
		states: make(map[StateID]*State),
		order:  make([]StateID, 0),
		start:  NoState,
		accept: make(map[StateID]struct{}),
	}
}

// SetRecorder attaches r. Passing nil detaches the current recorder.
func (s *Store) SetRecorder(r Recorder) {
	s.recorder = r
}

func (s *Store) commit(action string) {
	if s.recorder != nil {
		s.recorder.Record(action)
	}
}

func (s *Store) lookup(id StateID) (*State, error) {
	st, ok := s.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrStateNotFound, id)
	}
	return st, nil
}

func (s *Store) transitionIndex(id TransitionID) (int, error) {
	for i, t := range s.transitions {
		if t.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %d", ErrTransitionNotFound, id)
}

func (s *Store) setStart(id StateID) {
	if s.start != NoState {
		if prev, ok := s.states[s.start]; ok {
			prev.IsStart = false
		}
	}
	s.start = id
	if id != NoState {
		s.states[id].IsStart = true
	}
}

func (s *Store) setAccept(st *State, accepting bool) {
	st.IsAccept = accepting
	if accepting {
		s.accept[st.ID] = struct{}{}
	} else {
		delete(s.accept, st.ID)
	}
}

// AddState appends a state at (x, y) with a fresh id. The first state of
// an empty diagram becomes the start state.
func (s *Store) AddState(x, y float64) State {
	id := s.nextState
	s.nextState++

	st := &State{ID: id, Label: DefaultLabel(id), X: x, Y: y}
	s.states[id] = st
	s.order = append(s.order, id)
	if len(s.order) == 1 {
		s.setStart(id)
	}

	s.commit("add state")
	return *st
}

// DeleteState removes a state together with every transition touching it
// and returns how many transitions were removed that way. The last
// remaining state cannot be deleted.
func (s *Store) DeleteState(id StateID) (int, error) {
	if _, err := s.lookup(id); err != nil {
		return 0, err
	}
	if len(s.order) == 1 {
		return 0, fmt.Errorf("%w: cannot delete the last remaining state", ErrInvariantViolation)
	}

	n := s.removeState(id)
	s.commit("delete state")
	return n, nil
}

// removeState drops id and cascades to its transitions, start and accept
// membership.
func (s *Store) removeState(id StateID) int {
	kept := s.transitions[:0]
	removed := 0
	for _, t := range s.transitions {
		if t.From == id || t.To == id {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.transitions = kept

	if s.start == id {
		s.start = NoState
	}
	delete(s.accept, id)
	delete(s.states, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return removed
}

// DeleteResult reports what DeleteElements removed.
type DeleteResult struct {
	States      int
	Transitions int
	Cascaded    int
	StartLost   bool
}

// DeleteElements removes a selection of states and transitions in one
// step. Transitions attached to deleted states are cascaded. The request
// is rejected as a whole if any id is unknown or if it would delete every
// state.
func (s *Store) DeleteElements(stateIDs []StateID, transitionIDs []TransitionID) (DeleteResult, error) {
	var res DeleteResult

	states := make(map[StateID]bool)
	for _, id := range stateIDs {
		if _, err := s.lookup(id); err != nil {
			return res, err
		}
		states[id] = true
	}
	trans := make(map[TransitionID]bool)
	for _, id := range transitionIDs {
		if _, err := s.transitionIndex(id); err != nil {
			return res, err
		}
		trans[id] = true
	}
	if len(states) == 0 && len(trans) == 0 {
		return res, nil
	}
	if len(states) > 0 && len(states) == len(s.order) {
		return res, fmt.Errorf("%w: cannot delete every state", ErrInvariantViolation)
	}

	kept := s.transitions[:0]
	for _, t := range s.transitions {
		if trans[t.ID] {
			res.Transitions++
			continue
		}
		kept = append(kept, t)
	}
	s.transitions = kept

	for id := range states {
		if s.start == id {
			res.StartLost = true
		}
		res.Cascaded += s.removeState(id)
		res.States++
	}

	s.commit("delete elements")
	return res, nil
}

// AddTransition appends a transition from one live state to another.
// Symbol lists of existing transitions between the same pair are not
// merged. The transition is drawn curved when it is a self-loop or when
// the two states are already linked in either direction.
func (s *Store) AddTransition(from, to StateID, symbols []string) (Transition, error) {
	if _, err := s.lookup(from); err != nil {
		return Transition{}, err
	}
	if _, err := s.lookup(to); err != nil {
		return Transition{}, err
	}
	if len(symbols) == 0 {
		return Transition{}, fmt.Errorf("%w: transition needs at least one symbol", ErrInvariantViolation)
	}

	t := Transition{
		ID:      s.nextTrans,
		From:    from,
		To:      to,
		Symbols: append([]string(nil), symbols...),
		Curved:  from == to || s.linked(from, to),
	}
	s.nextTrans++
	s.transitions = append(s.transitions, t)

	s.commit("add transition")
	return t.Clone(), nil
}

// linked reports whether a transition joins a and b in either direction.
func (s *Store) linked(a, b StateID) bool {
	for _, t := range s.transitions {
		if (t.From == a && t.To == b) || (t.From == b && t.To == a) {
			return true
		}
	}
	return false
}

// SetTransitionSymbols replaces the symbol list of a transition.
func (s *Store) SetTransitionSymbols(id TransitionID, symbols []string) error {
	i, err := s.transitionIndex(id)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("%w: transition needs at least one symbol", ErrInvariantViolation)
	}
	s.transitions[i].Symbols = append([]string(nil), symbols...)
	s.commit("edit transition")
	return nil
}

// DeleteTransition removes a single transition.
func (s *Store) DeleteTransition(id TransitionID) error {
	i, err := s.transitionIndex(id)
	if err != nil {
		return err
	}
	s.transitions = append(s.transitions[:i], s.transitions[i+1:]...)
	s.commit("delete transition")
	return nil
}

// ToggleAccept flips the accepting flag of a state and returns the new value.
func (s *Store) ToggleAccept(id StateID) (bool, error) {
	st, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	s.setAccept(st, !st.IsAccept)
	s.commit("toggle accepting state")
	return st.IsAccept, nil
}

// SetAccepting sets the accepting flag of every listed state at once.
func (s *Store) SetAccepting(ids []StateID, accepting bool) error {
	targets := make([]*State, 0, len(ids))
	for _, id := range ids {
		st, err := s.lookup(id)
		if err != nil {
			return err
		}
		targets = append(targets, st)
	}
	for _, st := range targets {
		s.setAccept(st, accepting)
	}
	if accepting {
		s.commit("set all accepting")
	} else {
		s.commit("remove all accepting")
	}
	return nil
}

// SetStart makes id the start state, clearing any previous one.
func (s *Store) SetStart(id StateID) error {
	if _, err := s.lookup(id); err != nil {
		return err
	}
	if s.start == id {
		return nil
	}
	s.setStart(id)
	s.commit("set start state")
	return nil
}

// ClearStart leaves the diagram without a start state.
func (s *Store) ClearStart() {
	if s.start == NoState {
		return
	}
	s.setStart(NoState)
	s.commit("clear start state")
}

// RenameState changes a state's label. A blank label falls back to the
// default "q<id>".
func (s *Store) RenameState(id StateID, label string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultLabel(id)
	}
	if label == st.Label {
		return nil
	}
	st.Label = label
	s.commit("edit state label")
	return nil
}

// MoveState sets a state's position.
func (s *Store) MoveState(id StateID, x, y float64) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	st.X, st.Y = x, y
	s.commit("move states")
	return nil
}

// Clear resets the store to the empty diagram. Ids restart from zero since
// no state survives.
func (s *Store) Clear() {
	s.states = make(map[StateID]*State)
	s.order = make([]StateID, 0)
	s.transitions = nil
	s.start = NoState
	s.accept = make(map[StateID]struct{})
	s.nextState = 0
	s.nextTrans = 0
	s.commit("clear diagram")
}

// Len returns the number of states.
func (s *Store) Len() int {
	return len(s.order)
}

// States returns copies of all states in insertion order.
func (s *Store) States() []State {
	out := make([]State, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.states[id])
	}
	return out
}

// State returns a copy of the state with the given id.
func (s *Store) State(id StateID) (State, bool) {
	st, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Transitions returns copies of all transitions in insertion order.
func (s *Store) Transitions() []Transition {
	out := make([]Transition, len(s.transitions))
	for i, t := range s.transitions {
		out[i] = t.Clone()
	}
	return out
}

// Transition returns a copy of the transition with the given id.
func (s *Store) Transition(id TransitionID) (Transition, bool) {
	i, err := s.transitionIndex(id)
	if err != nil {
		return Transition{}, false
	}
	return s.transitions[i].Clone(), true
}

// StartState returns the start state, if any.
func (s *Store) StartState() (State, bool) {
	if s.start == NoState {
		return State{}, false
	}
	return *s.states[s.start], true
}

// AcceptStates returns the ids in the accept set, sorted.
func (s *Store) AcceptStates() []StateID {
	out := make([]StateID, 0, len(s.accept))
	for id := range s.accept {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsAccept reports whether id is in the accept set.
func (s *Store) IsAccept(id StateID) bool {
	_, ok := s.accept[id]
	return ok
}

// Alphabet returns the sorted input symbols used by any transition.
func (s *Store) Alphabet() []string {
	return Alphabet(s.transitions)
}

// Check verifies the store invariants:
//   - every transition joins two live states and has at least one symbol,
//   - the accept set holds exactly the states flagged accepting,
//   - the start state is exactly the state flagged start, or none,
//   - state ids are unique.
func (s *Store) Check() error {
	if len(s.order) != len(s.states) {
		return fmt.Errorf("%w: %d ordered states, %d indexed", ErrInvariantViolation, len(s.order), len(s.states))
	}
	seen := make(map[StateID]bool, len(s.order))
	starts := 0
	for _, id := range s.order {
		if seen[id] {
			return fmt.Errorf("%w: duplicate state id %d", ErrInvariantViolation, id)
		}
		seen[id] = true
		st, ok := s.states[id]
		if !ok || st.ID != id {
			return fmt.Errorf("%w: state %d missing from arena", ErrInvariantViolation, id)
		}
		if _, in := s.accept[id]; in != st.IsAccept {
			return fmt.Errorf("%w: accept flag of %d out of sync", ErrInvariantViolation, id)
		}
		if st.IsStart {
			starts++
			if s.start != id {
				return fmt.Errorf("%w: %d flagged start but start is %d", ErrInvariantViolation, id, s.start)
			}
		}
	}
	if starts > 1 {
		return fmt.Errorf("%w: %d start states", ErrInvariantViolation, starts)
	}
	if s.start != NoState && starts == 0 {
		return fmt.Errorf("%w: start state %d not flagged", ErrInvariantViolation, s.start)
	}
	for id := range s.accept {
		if !seen[id] {
			return fmt.Errorf("%w: accept set holds dead state %d", ErrInvariantViolation, id)
		}
	}
	for _, t := range s.transitions {
		if !seen[t.From] || !seen[t.To] {
			return fmt.Errorf("%w: transition %d references a dead state", ErrInvariantViolation, t.ID)
		}
		if len(t.Symbols) == 0 {
			return fmt.Errorf("%w: transition %d has no symbols", ErrInvariantViolation, t.ID)
		}
	}
	return nil
}
