// Package history keeps a linear undo/redo log of diagram snapshots.
//
// A Manager attaches itself to a diagram.Store as its recorder. After every
// successful mutation the store calls Record and the manager appends a
// detached copy of the new state. Undo and Redo move a cursor through the
// log and restore the store from the entry under it.
package history

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// DefaultMaxDepth bounds the log when no WithMaxDepth option is given.
const DefaultMaxDepth = 50

// InitialAction names the entry captured when the manager is created.
const InitialAction = "initial state"

var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// Entry is one point in the log. Snapshot never aliases live store objects.
type Entry struct {
	Snapshot  diagram.Snapshot
	Action    string
	Timestamp time.Time
}

// Manager owns the undo/redo log of one store.
type Manager struct {
	store     *diagram.Store
	entries   []Entry
	cursor    int
	maxDepth  int
	restoring bool
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxDepth caps the number of entries kept, the initial one included.
// Values below 2 are raised to 2 so that at least one step can be undone.
func WithMaxDepth(n int) Option {
	return func(m *Manager) {
		if n < 2 {
			n = 2
		}
		m.maxDepth = n
	}
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a manager for store, records the current state as the
// initial entry and installs itself as the store's recorder.
func New(store *diagram.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Reset()
	store.SetRecorder(m)
	return m
}

// Reset drops every entry and starts over from the store's current state.
func (m *Manager) Reset() {
	m.entries = []Entry{m.capture(InitialAction)}
	m.cursor = 0
}

func (m *Manager) capture(action string) Entry {
	return Entry{
		Snapshot:  m.store.Snapshot(),
		Action:    action,
		Timestamp: m.now(),
	}
}

// Record appends the store's current state as a new entry. Entries after
// the cursor are discarded first. It does nothing while an undo or redo is
// restoring the store.
func (m *Manager) Record(action string) {
	if m.restoring {
		return
	}
	m.entries = append(m.entries[:m.cursor+1], m.capture(action))
	m.cursor++

	if over := len(m.entries) - m.maxDepth; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
		m.cursor -= over
	}
	m.logger.Debug("history recorded", "action", action, "cursor", m.cursor, "len", len(m.entries))
}

// Undo restores the state before the entry under the cursor and returns
// that entry, whose Action names what was undone.
func (m *Manager) Undo() (Entry, error) {
	if !m.CanUndo() {
		return Entry{}, ErrNothingToUndo
	}
	undone := m.entries[m.cursor]
	if err := m.restore(m.cursor - 1); err != nil {
		return Entry{}, err
	}
	m.logger.Debug("history undo", "action", undone.Action, "cursor", m.cursor)
	return undone, nil
}

// Redo restores the entry after the cursor and returns it.
func (m *Manager) Redo() (Entry, error) {
	if !m.CanRedo() {
		return Entry{}, ErrNothingToRedo
	}
	if err := m.restore(m.cursor + 1); err != nil {
		return Entry{}, err
	}
	redone := m.entries[m.cursor]
	m.logger.Debug("history redo", "action", redone.Action, "cursor", m.cursor)
	return redone, nil
}

func (m *Manager) restore(i int) error {
	m.restoring = true
	defer func() { m.restoring = false }()

	// Restore copies out of the entry, so the log stays detached.
	if err := m.store.Restore(m.entries[i].Snapshot); err != nil {
		return err
	}
	m.cursor = i
	return nil
}

// CanUndo reports whether an entry precedes the cursor.
func (m *Manager) CanUndo() bool {
	return m.cursor > 0
}

// CanRedo reports whether an entry follows the cursor.
func (m *Manager) CanRedo() bool {
	return m.cursor < len(m.entries)-1
}

// Cursor returns the index of the entry matching the store.
func (m *Manager) Cursor() int {
	return m.cursor
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	return len(m.entries)
}

// Entries returns copies of all entries, oldest first.
func (m *Manager) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{Snapshot: e.Snapshot.Clone(), Action: e.Action, Timestamp: e.Timestamp}
	}
	return out
}
