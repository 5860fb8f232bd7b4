// Package workbench is the editing session behind a front end: one
// diagram, its undo history, the current selection and at most one
// animated run. Front ends talk to a Workbench and never to the store
// directly.
package workbench

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/batch"
	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsmfile"
	"github.com/ha1tch/fsmlab/pkg/history"
)

var (
	// ErrBusy is returned for edits attempted while an animation runs.
	ErrBusy = errors.New("workbench: animation in progress")

	// ErrEmptySelection is returned by selection operations with nothing
	// selected.
	ErrEmptySelection = errors.New("workbench: nothing selected")
)

// StatusSink receives human-readable status messages.
type StatusSink interface {
	Status(msg string)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(msg string)

func (f StatusFunc) Status(msg string) { f(msg) }

// Workbench owns a diagram store and its history.
type Workbench struct {
	store   *diagram.Store
	history *history.Manager
	batch   *batch.Runner
	sink    StatusSink
	logger  *slog.Logger
	title   string
	busy    bool

	selStates      map[diagram.StateID]bool
	selTransitions map[diagram.TransitionID]bool
}

type options struct {
	sink         StatusSink
	logger       *slog.Logger
	historyDepth int
	metrics      *batch.Metrics
}

// Option configures a Workbench.
type Option func(*options)

// WithStatusSink sends status messages to s.
func WithStatusSink(s StatusSink) Option {
	return func(o *options) { o.sink = s }
}

// WithLogger sets the logger shared with the history and batch runner.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHistoryDepth caps the undo history.
func WithHistoryDepth(n int) Option {
	return func(o *options) { o.historyDepth = n }
}

// WithMetrics records batch runs in m.
func WithMetrics(m *batch.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a workbench holding an empty diagram.
func New(opts ...Option) *Workbench {
	o := options{historyDepth: history.DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	store := diagram.New()
	return &Workbench{
		store:          store,
		history:        history.New(store, history.WithMaxDepth(o.historyDepth), history.WithLogger(o.logger)),
		batch:          batch.New(batch.WithLogger(o.logger), batch.WithMetrics(o.metrics)),
		sink:           o.sink,
		logger:         o.logger,
		selStates:      make(map[diagram.StateID]bool),
		selTransitions: make(map[diagram.TransitionID]bool),
	}
}

func (w *Workbench) status(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.logger.Debug("status", "msg", msg)
	if w.sink != nil {
		w.sink.Status(msg)
	}
}

func (w *Workbench) guard() error {
	if w.busy {
		return ErrBusy
	}
	return nil
}

func (w *Workbench) label(id diagram.StateID) string {
	if st, ok := w.store.State(id); ok {
		return st.Label
	}
	return diagram.DefaultLabel(id)
}

// Busy reports whether an animation holds the workbench.
func (w *Workbench) Busy() bool { return w.busy }

// Title is the title of the last imported diagram or template.
func (w *Workbench) Title() string { return w.title }

// SetTitle sets the title used on export.
func (w *Workbench) SetTitle(title string) { w.title = strings.TrimSpace(title) }

// Snapshot returns a detached copy of the diagram.
func (w *Workbench) Snapshot() diagram.Snapshot { return w.store.Snapshot() }

// States returns the states in creation order.
func (w *Workbench) States() []diagram.State { return w.store.States() }

// Transitions returns the transitions in insertion order.
func (w *Workbench) Transitions() []diagram.Transition { return w.store.Transitions() }

// State looks up a state.
func (w *Workbench) State(id diagram.StateID) (diagram.State, bool) { return w.store.State(id) }

// Transition looks up a transition.
func (w *Workbench) Transition(id diagram.TransitionID) (diagram.Transition, bool) {
	return w.store.Transition(id)
}

// CanUndo reports whether Undo would do anything.
func (w *Workbench) CanUndo() bool { return w.history.CanUndo() }

// CanRedo reports whether Redo would do anything.
func (w *Workbench) CanRedo() bool { return w.history.CanRedo() }

// History returns the undo log, oldest first.
func (w *Workbench) History() []history.Entry { return w.history.Entries() }

// AddState adds a state at (x, y). The first state of an empty diagram
// becomes the start state.
func (w *Workbench) AddState(x, y float64) (diagram.State, error) {
	if err := w.guard(); err != nil {
		return diagram.State{}, err
	}
	st := w.store.AddState(x, y)
	w.status("Added state %s", st.Label)
	return st, nil
}

// DeleteState removes a state and its transitions.
func (w *Workbench) DeleteState(id diagram.StateID) error {
	if err := w.guard(); err != nil {
		return err
	}
	st, ok := w.store.State(id)
	if !ok {
		return fmt.Errorf("%w: %d", diagram.ErrStateNotFound, id)
	}
	n, err := w.store.DeleteState(id)
	if err != nil {
		if errors.Is(err, diagram.ErrInvariantViolation) {
			w.status("Cannot delete the last remaining state")
		}
		return err
	}
	w.prune()
	if st.IsStart {
		w.status("Deleted start state %s and %d transitions. Set a new start state!", st.Label, n)
	} else {
		w.status("Deleted state %s and %d transitions", st.Label, n)
	}
	return nil
}

// AddTransition adds a transition on symbols from one state to another.
func (w *Workbench) AddTransition(from, to diagram.StateID, symbols []string) (diagram.Transition, error) {
	if err := w.guard(); err != nil {
		return diagram.Transition{}, err
	}
	t, err := w.store.AddTransition(from, to, symbols)
	if err != nil {
		return t, err
	}
	w.status("Added transition %s → %s on %q", w.label(from), w.label(to), strings.Join(symbols, ", "))
	return t, nil
}

// EditTransition replaces the symbols of a transition.
func (w *Workbench) EditTransition(id diagram.TransitionID, symbols []string) error {
	if err := w.guard(); err != nil {
		return err
	}
	if err := w.store.SetTransitionSymbols(id, symbols); err != nil {
		return err
	}
	t, _ := w.store.Transition(id)
	w.status("Updated transition %s → %s to %q", w.label(t.From), w.label(t.To), strings.Join(t.Symbols, ", "))
	return nil
}

// DeleteTransition removes one transition.
func (w *Workbench) DeleteTransition(id diagram.TransitionID) error {
	if err := w.guard(); err != nil {
		return err
	}
	t, ok := w.store.Transition(id)
	if !ok {
		return fmt.Errorf("%w: %d", diagram.ErrTransitionNotFound, id)
	}
	if err := w.store.DeleteTransition(id); err != nil {
		return err
	}
	w.prune()
	w.status("Deleted transition %s → %s", w.label(t.From), w.label(t.To))
	return nil
}

// ToggleAccept flips a state's membership in the accept set.
func (w *Workbench) ToggleAccept(id diagram.StateID) error {
	if err := w.guard(); err != nil {
		return err
	}
	accepting, err := w.store.ToggleAccept(id)
	if err != nil {
		return err
	}
	if accepting {
		w.status("%s is now an accepting state", w.label(id))
	} else {
		w.status("%s is no longer an accepting state", w.label(id))
	}
	return nil
}

// SetStart makes id the start state.
func (w *Workbench) SetStart(id diagram.StateID) error {
	if err := w.guard(); err != nil {
		return err
	}
	if err := w.store.SetStart(id); err != nil {
		return err
	}
	w.status("%s is now the start state", w.label(id))
	return nil
}

// ClearStart leaves the diagram without a start state.
func (w *Workbench) ClearStart() error {
	if err := w.guard(); err != nil {
		return err
	}
	w.store.ClearStart()
	w.status("Start state cleared")
	return nil
}

// RenameState relabels a state. A blank label restores the default.
func (w *Workbench) RenameState(id diagram.StateID, label string) error {
	if err := w.guard(); err != nil {
		return err
	}
	old := w.label(id)
	if err := w.store.RenameState(id, label); err != nil {
		return err
	}
	w.status("Renamed state from %q to %q", old, w.label(id))
	return nil
}

// MoveState repositions a state.
func (w *Workbench) MoveState(id diagram.StateID, x, y float64) error {
	if err := w.guard(); err != nil {
		return err
	}
	if err := w.store.MoveState(id, x, y); err != nil {
		return err
	}
	w.status("State repositioned")
	return nil
}

// Clear empties the diagram. It can be undone.
func (w *Workbench) Clear() error {
	if err := w.guard(); err != nil {
		return err
	}
	w.store.Clear()
	w.title = ""
	w.prune()
	w.status("Diagram cleared")
	return nil
}

// Undo reverts the last edit. At the start of history it reports
// "Nothing to undo" and returns history.ErrNothingToUndo.
func (w *Workbench) Undo() error {
	if err := w.guard(); err != nil {
		return err
	}
	e, err := w.history.Undo()
	if errors.Is(err, history.ErrNothingToUndo) {
		w.status("Nothing to undo")
		return err
	}
	if err != nil {
		return err
	}
	w.prune()
	w.status("Undid: %s", e.Action)
	return nil
}

// Redo reapplies the last undone edit.
func (w *Workbench) Redo() error {
	if err := w.guard(); err != nil {
		return err
	}
	e, err := w.history.Redo()
	if errors.Is(err, history.ErrNothingToRedo) {
		w.status("Nothing to redo")
		return err
	}
	if err != nil {
		return err
	}
	w.prune()
	w.status("Redid: %s", e.Action)
	return nil
}

// ExportStructure describes the current diagram.
func (w *Workbench) ExportStructure() fsmfile.Structure {
	return fsmfile.Export(w.store.Snapshot(), w.title)
}

// ImportStructure replaces the diagram with s. A failed import leaves the
// diagram and its history untouched.
func (w *Workbench) ImportStructure(s fsmfile.Structure) error {
	if err := w.guard(); err != nil {
		return err
	}
	if err := fsmfile.Import(w.store, s); err != nil {
		w.status("Error creating diagram: %v", err)
		return err
	}
	w.title = s.Title()
	w.prune()
	if w.title != "" {
		w.status("Loaded: %s", w.title)
	} else {
		w.status("Programmatically created diagram with %d states and %d transitions",
			w.store.Len(), len(w.store.Transitions()))
	}
	w.logger.Info("diagram imported", "title", w.title, "states", w.store.Len())
	return nil
}

// LoadTemplate imports a named template.
func (w *Workbench) LoadTemplate(name string) (fsmfile.Template, error) {
	if err := w.guard(); err != nil {
		return fsmfile.Template{}, err
	}
	tpl, err := fsmfile.LookupTemplate(name)
	if err != nil {
		w.status("Template '%s' not found. Available: %s", name, strings.Join(fsmfile.TemplateNames(), ", "))
		return tpl, err
	}
	if err := w.ImportStructure(tpl.Structure); err != nil {
		return tpl, err
	}
	return tpl, nil
}
