package workbench

import (
	"sort"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// Selection is the set of selected elements, in ascending id order.
type Selection struct {
	States      []diagram.StateID
	Transitions []diagram.TransitionID
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.States) == 0 && len(s.Transitions) == 0
}

// Select replaces the selection. Unknown ids are ignored.
func (w *Workbench) Select(states []diagram.StateID, transitions []diagram.TransitionID) {
	w.selStates = make(map[diagram.StateID]bool, len(states))
	w.selTransitions = make(map[diagram.TransitionID]bool, len(transitions))
	for _, id := range states {
		w.selStates[id] = true
	}
	for _, id := range transitions {
		w.selTransitions[id] = true
	}
	w.prune()
}

// ToggleSelected adds a state to the selection or removes it.
func (w *Workbench) ToggleSelected(id diagram.StateID) {
	if w.selStates[id] {
		delete(w.selStates, id)
		return
	}
	if _, ok := w.store.State(id); ok {
		w.selStates[id] = true
	}
}

// SelectAll selects every state and transition.
func (w *Workbench) SelectAll() {
	states := w.store.States()
	transitions := w.store.Transitions()
	w.selStates = make(map[diagram.StateID]bool, len(states))
	w.selTransitions = make(map[diagram.TransitionID]bool, len(transitions))
	for _, st := range states {
		w.selStates[st.ID] = true
	}
	for _, t := range transitions {
		w.selTransitions[t.ID] = true
	}
	w.status("Selected all elements: %d states and %d transitions", len(states), len(transitions))
}

// ClearSelection deselects everything.
func (w *Workbench) ClearSelection() {
	w.selStates = make(map[diagram.StateID]bool)
	w.selTransitions = make(map[diagram.TransitionID]bool)
}

// Selection returns the current selection.
func (w *Workbench) Selection() Selection {
	var sel Selection
	for id := range w.selStates {
		sel.States = append(sel.States, id)
	}
	for id := range w.selTransitions {
		sel.Transitions = append(sel.Transitions, id)
	}
	sort.Slice(sel.States, func(i, j int) bool { return sel.States[i] < sel.States[j] })
	sort.Slice(sel.Transitions, func(i, j int) bool { return sel.Transitions[i] < sel.Transitions[j] })
	return sel
}

// IsSelected reports whether a state is selected.
func (w *Workbench) IsSelected(id diagram.StateID) bool {
	return w.selStates[id]
}

// DeleteSelection deletes every selected element in one undoable step.
func (w *Workbench) DeleteSelection() (diagram.DeleteResult, error) {
	if err := w.guard(); err != nil {
		return diagram.DeleteResult{}, err
	}
	sel := w.Selection()
	if sel.Empty() {
		w.status("No elements selected to delete")
		return diagram.DeleteResult{}, ErrEmptySelection
	}

	res, err := w.store.DeleteElements(sel.States, sel.Transitions)
	if err != nil {
		return res, err
	}
	w.ClearSelection()
	w.status("Deleted %d states and %d transitions", res.States, res.Transitions+res.Cascaded)
	if res.StartLost {
		w.status("Warning: No start state defined. Set a new start state.")
	}
	return res, nil
}

// SetSelectionAccepting adds the selected states to the accept set, or
// removes them from it, in one undoable step.
func (w *Workbench) SetSelectionAccepting(accepting bool) error {
	if err := w.guard(); err != nil {
		return err
	}
	sel := w.Selection()
	if len(sel.States) == 0 {
		w.status("No states selected")
		return ErrEmptySelection
	}
	if err := w.store.SetAccepting(sel.States, accepting); err != nil {
		return err
	}
	if accepting {
		w.status("Set %d states as accepting", len(sel.States))
	} else {
		w.status("Removed %d states from accepting", len(sel.States))
	}
	return nil
}

// prune drops selected ids that no longer exist.
func (w *Workbench) prune() {
	for id := range w.selStates {
		if _, ok := w.store.State(id); !ok {
			delete(w.selStates, id)
		}
	}
	for id := range w.selTransitions {
		if _, ok := w.store.Transition(id); !ok {
			delete(w.selTransitions, id)
		}
	}
}
