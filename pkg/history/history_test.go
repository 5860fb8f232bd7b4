package history

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

func newManager(t *testing.T, opts ...Option) (*diagram.Store, *Manager) {
	t.Helper()
	s := diagram.New()
	return s, New(s, opts...)
}

func TestInitialEntry(t *testing.T) {
	_, m := newManager(t)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 0, m.Cursor())
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
	assert.Equal(t, InitialAction, m.Entries()[0].Action)
}

func TestUndoRedoEquality(t *testing.T) {
	s, m := newManager(t)
	before := s.Snapshot()

	q0 := s.AddState(100, 100)
	q1 := s.AddState(300, 100)
	_, err := s.AddTransition(q0.ID, q1.ID, []string{"a"})
	require.NoError(t, err)
	after := s.Snapshot()
	require.Equal(t, 4, m.Len())

	for i := 0; i < 3; i++ {
		_, err := m.Undo()
		require.NoError(t, err)
	}
	assert.True(t, diagram.Equal(before, s.Snapshot()))

	for i := 0; i < 3; i++ {
		_, err := m.Redo()
		require.NoError(t, err)
	}
	assert.True(t, diagram.Equal(after, s.Snapshot()))
}

func TestUndoReturnsUndoneAction(t *testing.T) {
	s, m := newManager(t)
	q := s.AddState(0, 0)
	_, err := s.ToggleAccept(q.ID)
	require.NoError(t, err)

	e, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, "toggle accepting state", e.Action)
	assert.False(t, s.IsAccept(q.ID))

	e, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, "toggle accepting state", e.Action)
	assert.True(t, s.IsAccept(q.ID))
}

func TestNoOpEnds(t *testing.T) {
	s, m := newManager(t)
	s.AddState(0, 0)
	snap := s.Snapshot()

	_, err := m.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
	assert.True(t, diagram.Equal(snap, s.Snapshot()))
	assert.Equal(t, 1, m.Cursor())

	_, err = m.Undo()
	require.NoError(t, err)
	_, err = m.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, m.Cursor())
}

func TestBranchDiscard(t *testing.T) {
	s, m := newManager(t)
	s.AddState(0, 0)
	s.AddState(100, 0)

	_, err := m.Undo()
	require.NoError(t, err)
	assert.True(t, m.CanRedo())

	s.AddState(200, 0)
	assert.False(t, m.CanRedo())
	_, err = m.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
	assert.Equal(t, 3, m.Len())

	// the discarded state's id is not handed out again
	ids := []diagram.StateID{}
	for _, st := range s.States() {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []diagram.StateID{0, 2}, ids)
}

func TestRestoreDoesNotRecord(t *testing.T) {
	s, m := newManager(t)
	s.AddState(0, 0)
	s.AddState(1, 1)

	_, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 1, m.Cursor())
}

func TestEntriesAreDetached(t *testing.T) {
	s, m := newManager(t)
	q0 := s.AddState(0, 0)
	_, err := s.AddTransition(q0.ID, q0.ID, []string{"a"})
	require.NoError(t, err)

	entries := m.Entries()
	entries[2].Snapshot.Transitions[0].Symbols[0] = "mutated"
	entries[2].Snapshot.States[0].Label = "mutated"

	require.NoError(t, s.SetTransitionSymbols(0, []string{"b"}))
	_, err = m.Undo()
	require.NoError(t, err)

	tr, ok := s.Transition(0)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, tr.Symbols)
	st, _ := s.State(q0.ID)
	assert.Equal(t, "q0", st.Label)
}

func TestMaxDepthEviction(t *testing.T) {
	s, m := newManager(t, WithMaxDepth(5))
	for i := 0; i < 10; i++ {
		s.AddState(float64(i), 0)
	}
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, 4, m.Cursor())
	assert.NotEqual(t, InitialAction, m.Entries()[0].Action)

	for m.CanUndo() {
		_, err := m.Undo()
		require.NoError(t, err)
	}
	assert.Equal(t, 6, s.Len())
}

func TestDefaultDepth(t *testing.T) {
	s, m := newManager(t)
	for i := 0; i < 80; i++ {
		s.AddState(0, 0)
	}
	assert.Equal(t, DefaultMaxDepth, m.Len())
	assert.Equal(t, DefaultMaxDepth-1, m.Cursor())
}

func TestWithClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, m := newManager(t, WithClock(func() time.Time { return at }))
	s.AddState(0, 0)
	for _, e := range m.Entries() {
		assert.Equal(t, at, e.Timestamp)
	}
}

func TestReset(t *testing.T) {
	s, m := newManager(t)
	s.AddState(0, 0)
	s.AddState(0, 0)
	m.Reset()
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.CanUndo())
	assert.True(t, diagram.Equal(s.Snapshot(), m.Entries()[0].Snapshot))
}

// Random edits followed by undoing everything must return to the empty
// diagram, and redoing everything must reproduce the final one.
func TestRandomEditsRoundTrip(t *testing.T) {
	s, m := newManager(t, WithMaxDepth(1000))
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		states := s.States()
		switch op := rng.Intn(5); {
		case op == 0 || len(states) < 2:
			s.AddState(rng.Float64()*800, rng.Float64()*600)
		case op == 1:
			from := states[rng.Intn(len(states))].ID
			to := states[rng.Intn(len(states))].ID
			_, err := s.AddTransition(from, to, []string{"a"})
			require.NoError(t, err)
		case op == 2:
			_, err := s.ToggleAccept(states[rng.Intn(len(states))].ID)
			require.NoError(t, err)
		case op == 3:
			require.NoError(t, s.SetStart(states[rng.Intn(len(states))].ID))
		default:
			_, err := s.DeleteState(states[rng.Intn(len(states))].ID)
			require.NoError(t, err)
		}
		require.NoError(t, s.Check())
	}
	final := s.Snapshot()

	for m.CanUndo() {
		_, err := m.Undo()
		require.NoError(t, err)
		require.NoError(t, s.Check())
	}
	assert.Equal(t, 0, s.Len())

	for m.CanRedo() {
		_, err := m.Redo()
		require.NoError(t, err)
	}
	assert.True(t, diagram.Equal(final, s.Snapshot()))
}
