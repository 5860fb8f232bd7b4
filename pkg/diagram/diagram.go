// Package diagram holds the canonical automaton diagram: states,
// transitions, the start state and the accept set.
//
// States live in an arena keyed by a stable id and transitions refer to
// their endpoints by id, so deleting a state can never leave a transition
// pointing at a dead object.
package diagram

import (
	"errors"
	"sort"
	"strconv"
)

// Sentinel errors returned by the store.
var (
	// ErrInvariantViolation is returned when an edit would break a
	// structural rule, such as deleting the last remaining state.
	ErrInvariantViolation = errors.New("diagram: invariant violation")

	// ErrNoStartState is returned when an operation needs a start state
	// and none is set.
	ErrNoStartState = errors.New("diagram: no start state")

	// ErrEmptyDiagram is returned when an operation needs at least one state.
	ErrEmptyDiagram = errors.New("diagram: no states")

	// ErrStateNotFound is returned for an unknown state id.
	ErrStateNotFound = errors.New("diagram: state not found")

	// ErrTransitionNotFound is returned for an unknown transition id.
	ErrTransitionNotFound = errors.New("diagram: transition not found")
)

// Epsilon is the display form of the empty-input label. The empty string
// is accepted as an equivalent spelling.
const Epsilon = "ε"

// StateID identifies a state for its whole lifetime.
type StateID int

// TransitionID identifies a transition for its whole lifetime.
type TransitionID int

// NoState marks the absence of a state, e.g. an unset start state.
const NoState StateID = -1

// State is a node of the diagram. X and Y are owned by the renderer but
// persisted with the state.
type State struct {
	ID       StateID
	Label    string
	X, Y     float64
	IsStart  bool
	IsAccept bool
}

// Transition is a labelled edge between two live states.
type Transition struct {
	ID      TransitionID
	From    StateID
	To      StateID
	Symbols []string
	Curved  bool
}

// IsEpsilon reports whether sym denotes the empty input.
func IsEpsilon(sym string) bool {
	return sym == "" || sym == Epsilon
}

// DefaultLabel returns the label given to a state that has none.
func DefaultLabel(id StateID) string {
	return "q" + strconv.Itoa(int(id))
}

// Has reports whether the transition fires on sym.
func (t Transition) Has(sym string) bool {
	for _, s := range t.Symbols {
		if s == sym {
			return true
		}
	}
	return false
}

// HasEpsilon reports whether the transition carries an empty-input label.
func (t Transition) HasEpsilon() bool {
	for _, s := range t.Symbols {
		if IsEpsilon(s) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no memory with t.
func (t Transition) Clone() Transition {
	c := t
	c.Symbols = append([]string(nil), t.Symbols...)
	return c
}

// Alphabet returns the sorted set of input symbols used by ts.
// Epsilon labels are not part of the alphabet.
func Alphabet(ts []Transition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range ts {
		for _, s := range t.Symbols {
			if IsEpsilon(s) || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Recorder is notified after every successful mutation of a Store.
// The history manager implements it.
type Recorder interface {
	Record(action string)
}

// GridPosition is the default layout for the i-th state of a diagram
// that carries no coordinates: four columns 200 apart, rows 150 apart.
func GridPosition(i int) (x, y float64) {
	return float64(200 + (i%4)*200), float64(200 + (i/4)*150)
}
