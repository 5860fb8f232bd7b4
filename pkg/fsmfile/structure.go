// Package fsmfile converts diagrams to and from their structural
// description, the plain tree of states and transitions that templates,
// saved files and the HTTP API exchange.
package fsmfile

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

var (
	// ErrDanglingReference is returned when a transition names a state id
	// that the description does not define.
	ErrDanglingReference = errors.New("fsmfile: transition references unknown state")

	// ErrMalformedStructure is returned when a description cannot be read
	// as a diagram at all.
	ErrMalformedStructure = errors.New("fsmfile: malformed structure")
)

// Structure is the structural description of a diagram.
type Structure struct {
	Metadata    *Metadata        `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
	States      []StateSpec      `json:"states" yaml:"states" mapstructure:"states"`
	Transitions []TransitionSpec `json:"transitions" yaml:"transitions" mapstructure:"transitions"`
}

// Metadata carries descriptive fields with no effect on behaviour.
type Metadata struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
}

// Title returns the metadata title, or "" when there is none.
func (s Structure) Title() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata.Title
}

// StateSpec describes one state. Nil fields take defaults on Build.
type StateSpec struct {
	ID       *int     `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	X        *float64 `json:"x,omitempty" yaml:"x,omitempty" mapstructure:"x"`
	Y        *float64 `json:"y,omitempty" yaml:"y,omitempty" mapstructure:"y"`
	IsStart  bool     `json:"isStart,omitempty" yaml:"isStart,omitempty" mapstructure:"isStart"`
	IsAccept bool     `json:"isAccept,omitempty" yaml:"isAccept,omitempty" mapstructure:"isAccept"`
}

// TransitionSpec describes one transition. Endpoints are read from
// from/to, falling back to fromId/toId; Export only writes from/to.
type TransitionSpec struct {
	From    *int     `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`
	To      *int     `json:"to,omitempty" yaml:"to,omitempty" mapstructure:"to"`
	FromID  *int     `json:"fromId,omitempty" yaml:"fromId,omitempty" mapstructure:"fromId"`
	ToID    *int     `json:"toId,omitempty" yaml:"toId,omitempty" mapstructure:"toId"`
	Symbols []string `json:"symbols" yaml:"symbols,flow" mapstructure:"symbols"`
	Curved  *bool    `json:"curved,omitempty" yaml:"curved,omitempty" mapstructure:"curved"`
}

func (t TransitionSpec) endpoints() (from, to *int) {
	from, to = t.From, t.To
	if from == nil {
		from = t.FromID
	}
	if to == nil {
		to = t.ToID
	}
	return from, to
}

// DefaultSymbols is used for a transition that names no symbols.
var DefaultSymbols = []string{"a"}

var stringSlice = reflect.TypeOf([]string(nil))

// symbolsHook lets a single string stand for a one-symbol list.
func symbolsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stringSlice || from.Kind() != reflect.String {
		return data, nil
	}
	if s := reflect.ValueOf(data).String(); s != "" {
		return []string{s}, nil
	}
	return []string(nil), nil
}

// integerHook refuses to truncate a fractional number into an int field.
func integerHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not an integer", data)
		}
	}
	return data, nil
}

// Decode reads a generic tree, as produced by encoding/json or yaml.v3,
// into a Structure. The tree must hold a "states" sequence.
func Decode(raw map[string]any) (Structure, error) {
	var s Structure
	if raw == nil {
		return s, fmt.Errorf("%w: empty description", ErrMalformedStructure)
	}
	if !isSequence(raw["states"]) {
		return s, fmt.Errorf("%w: structure must have a \"states\" array", ErrMalformedStructure)
	}
	if tr, ok := raw["transitions"]; ok && tr != nil && !isSequence(tr) {
		return s, fmt.Errorf("%w: \"transitions\" must be an array", ErrMalformedStructure)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(symbolsHook, integerHook),
		Result:     &s,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(raw); err != nil {
		return Structure{}, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}
	return s, nil
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// Build turns a description into a snapshot, filling defaults:
//   - a missing id becomes the state's index
//   - a blank label becomes "q<id>"
//   - missing coordinates come from diagram.GridPosition
//   - missing or empty symbols become DefaultSymbols
//   - a missing curved flag is set for self-loops and for the second
//     transition between the same pair of states, in either direction
//
// Build never touches a store, so a failed build has no side effects.
func Build(s Structure) (diagram.Snapshot, error) {
	snap := diagram.Snapshot{Start: diagram.NoState}
	seen := make(map[diagram.StateID]bool, len(s.States))
	maxID := diagram.NoState

	for i, spec := range s.States {
		id := diagram.StateID(i)
		if spec.ID != nil {
			id = diagram.StateID(*spec.ID)
		}
		if id < 0 {
			return diagram.Snapshot{}, fmt.Errorf("%w: negative state id %d", ErrMalformedStructure, id)
		}
		if seen[id] {
			return diagram.Snapshot{}, fmt.Errorf("%w: duplicate state id %d", ErrMalformedStructure, id)
		}
		seen[id] = true
		maxID = max(maxID, id)

		st := diagram.State{
			ID:       id,
			Label:    strings.TrimSpace(spec.Label),
			IsStart:  spec.IsStart,
			IsAccept: spec.IsAccept,
		}
		if st.Label == "" {
			st.Label = diagram.DefaultLabel(id)
		}
		st.X, st.Y = diagram.GridPosition(i)
		if spec.X != nil {
			st.X = *spec.X
		}
		if spec.Y != nil {
			st.Y = *spec.Y
		}

		if st.IsStart {
			if snap.Start != diagram.NoState {
				return diagram.Snapshot{}, fmt.Errorf("%w: more than one start state (%d and %d)", ErrMalformedStructure, snap.Start, id)
			}
			snap.Start = id
		}
		if st.IsAccept {
			snap.Accept = append(snap.Accept, id)
		}
		snap.States = append(snap.States, st)
	}

	resolve := func(i int, end string, ref *int) (diagram.StateID, error) {
		if ref == nil {
			return 0, fmt.Errorf("%w: transition %d has no %s state", ErrDanglingReference, i, end)
		}
		id := diagram.StateID(*ref)
		if !seen[id] {
			return 0, fmt.Errorf("%w: %s state with id %d not found", ErrDanglingReference, end, id)
		}
		return id, nil
	}

	for i, spec := range s.Transitions {
		fromRef, toRef := spec.endpoints()
		from, err := resolve(i, "from", fromRef)
		if err != nil {
			return diagram.Snapshot{}, err
		}
		to, err := resolve(i, "to", toRef)
		if err != nil {
			return diagram.Snapshot{}, err
		}

		t := diagram.Transition{
			ID:      diagram.TransitionID(i),
			From:    from,
			To:      to,
			Symbols: append([]string(nil), spec.Symbols...),
		}
		if len(t.Symbols) == 0 {
			t.Symbols = append([]string(nil), DefaultSymbols...)
		}
		if spec.Curved != nil {
			t.Curved = *spec.Curved
		} else {
			t.Curved = from == to || linked(snap.Transitions, from, to)
		}
		snap.Transitions = append(snap.Transitions, t)
	}

	snap.NextState = maxID + 1
	snap.NextTransition = diagram.TransitionID(len(snap.Transitions))
	return snap, nil
}

func linked(ts []diagram.Transition, a, b diagram.StateID) bool {
	for _, t := range ts {
		if (t.From == a && t.To == b) || (t.From == b && t.To == a) {
			return true
		}
	}
	return false
}

// ImportAction is the history action recorded by Import.
const ImportAction = "load diagram"

// Import replaces the contents of store with s. Either the whole
// description is applied or store is left unchanged.
func Import(store *diagram.Store, s Structure) error {
	snap, err := Build(s)
	if err != nil {
		return err
	}
	return store.Load(snap, ImportAction)
}

// Export describes snap. The result shares nothing with snap.
func Export(snap diagram.Snapshot, title string) Structure {
	s := Structure{
		States:      make([]StateSpec, 0, len(snap.States)),
		Transitions: make([]TransitionSpec, 0, len(snap.Transitions)),
	}
	if title != "" {
		s.Metadata = &Metadata{Title: title}
	}
	for _, st := range snap.States {
		id, x, y := int(st.ID), st.X, st.Y
		s.States = append(s.States, StateSpec{
			ID:       &id,
			Label:    st.Label,
			X:        &x,
			Y:        &y,
			IsStart:  st.IsStart,
			IsAccept: st.IsAccept,
		})
	}
	for _, t := range snap.Transitions {
		from, to, curved := int(t.From), int(t.To), t.Curved
		s.Transitions = append(s.Transitions, TransitionSpec{
			From:    &from,
			To:      &to,
			Symbols: append([]string(nil), t.Symbols...),
			Curved:  &curved,
		})
	}
	return s
}
