package diagram

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFunc func(string)

func (f recorderFunc) Record(action string) { f(action) }

// endsWithAB builds q0(start) q1 q2(accept) with the classic ends-in-"ab" edges.
func endsWithAB(t *testing.T) *Store {
	t.Helper()
	s := New()
	q0 := s.AddState(200, 300)
	q1 := s.AddState(450, 300)
	q2 := s.AddState(700, 300)
	_, err := s.ToggleAccept(q2.ID)
	require.NoError(t, err)

	edges := []struct {
		from, to StateID
		sym      string
	}{
		{q0.ID, q1.ID, "a"},
		{q0.ID, q0.ID, "b"},
		{q1.ID, q1.ID, "a"},
		{q1.ID, q2.ID, "b"},
		{q2.ID, q1.ID, "a"},
		{q2.ID, q0.ID, "b"},
	}
	for _, e := range edges {
		_, err := s.AddTransition(e.from, e.to, []string{e.sym})
		require.NoError(t, err)
	}
	return s
}

func TestAddStateFirstIsStart(t *testing.T) {
	s := New()
	q0 := s.AddState(10, 20)
	q1 := s.AddState(30, 40)

	assert.True(t, q0.IsStart)
	assert.False(t, q1.IsStart)
	assert.Equal(t, "q0", q0.Label)
	assert.Equal(t, "q1", q1.Label)

	start, ok := s.StartState()
	require.True(t, ok)
	assert.Equal(t, q0.ID, start.ID)
	assert.NoError(t, s.Check())
}

func TestIDsStayUniqueAfterDelete(t *testing.T) {
	s := New()
	s.AddState(0, 0)
	q1 := s.AddState(0, 0)
	s.AddState(0, 0)

	_, err := s.DeleteState(q1.ID)
	require.NoError(t, err)

	q3 := s.AddState(0, 0)
	assert.Equal(t, StateID(3), q3.ID, "ids must not be derived from the population size")

	seen := map[StateID]bool{}
	for _, st := range s.States() {
		assert.False(t, seen[st.ID], "duplicate id %d", st.ID)
		seen[st.ID] = true
	}
	assert.NoError(t, s.Check())
}

func TestDeleteStateCascades(t *testing.T) {
	s := endsWithAB(t)

	n, err := s.DeleteState(1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, tr := range s.Transitions() {
		assert.NotEqual(t, StateID(1), tr.From)
		assert.NotEqual(t, StateID(1), tr.To)
	}
	assert.Len(t, s.Transitions(), 2)
	assert.NoError(t, s.Check())
}

func TestDeleteStartAndAcceptState(t *testing.T) {
	s := endsWithAB(t)

	_, err := s.DeleteState(0)
	require.NoError(t, err)
	_, ok := s.StartState()
	assert.False(t, ok)

	_, err = s.DeleteState(2)
	require.NoError(t, err)
	assert.Empty(t, s.AcceptStates())
	assert.NoError(t, s.Check())
}

func TestDeleteLastStateFails(t *testing.T) {
	s := New()
	q0 := s.AddState(0, 0)

	_, err := s.DeleteState(q0.ID)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 1, s.Len())
}

func TestDeleteUnknownState(t *testing.T) {
	s := New()
	s.AddState(0, 0)
	_, err := s.DeleteState(42)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestDeleteElements(t *testing.T) {
	s := endsWithAB(t)
	trs := s.Transitions()

	res, err := s.DeleteElements([]StateID{2}, []TransitionID{trs[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.States)
	assert.Equal(t, 1, res.Transitions)
	assert.Equal(t, 3, res.Cascaded)
	assert.False(t, res.StartLost)
	assert.Len(t, s.Transitions(), 2)
	assert.NoError(t, s.Check())
}

func TestDeleteElementsRejectsEverything(t *testing.T) {
	s := endsWithAB(t)
	calls := 0
	s.SetRecorder(recorderFunc(func(string) { calls++ }))

	_, err := s.DeleteElements([]StateID{0, 1, 2}, nil)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 3, s.Len())
	assert.Zero(t, calls)

	_, err = s.DeleteElements([]StateID{0, 99}, nil)
	assert.ErrorIs(t, err, ErrStateNotFound)
	assert.Equal(t, 3, s.Len())
}

func TestAddTransitionValidation(t *testing.T) {
	s := New()
	q0 := s.AddState(0, 0)

	_, err := s.AddTransition(q0.ID, 7, []string{"a"})
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = s.AddTransition(q0.ID, q0.ID, nil)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestAddTransitionCurveDefault(t *testing.T) {
	s := New()
	q0 := s.AddState(0, 0)
	q1 := s.AddState(100, 0)

	loop, err := s.AddTransition(q0.ID, q0.ID, []string{"a"})
	require.NoError(t, err)
	assert.True(t, loop.Curved)

	fwd, err := s.AddTransition(q0.ID, q1.ID, []string{"a"})
	require.NoError(t, err)
	assert.False(t, fwd.Curved)

	back, err := s.AddTransition(q1.ID, q0.ID, []string{"b"})
	require.NoError(t, err)
	assert.True(t, back.Curved)
}

func TestAddTransitionKeepsDuplicates(t *testing.T) {
	s := New()
	q0 := s.AddState(0, 0)
	q1 := s.AddState(0, 0)
	_, err := s.AddTransition(q0.ID, q1.ID, []string{"a"})
	require.NoError(t, err)
	_, err = s.AddTransition(q0.ID, q1.ID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, s.Transitions(), 2)
}

func TestSetStartClearsPrevious(t *testing.T) {
	s := endsWithAB(t)

	require.NoError(t, s.SetStart(2))
	start, ok := s.StartState()
	require.True(t, ok)
	assert.Equal(t, StateID(2), start.ID)

	q0, _ := s.State(0)
	assert.False(t, q0.IsStart)
	assert.NoError(t, s.Check())

	s.ClearStart()
	_, ok = s.StartState()
	assert.False(t, ok)
	assert.NoError(t, s.Check())
}

func TestRenameState(t *testing.T) {
	s := New()
	q0 := s.AddState(0, 0)

	require.NoError(t, s.RenameState(q0.ID, "  idle "))
	st, _ := s.State(q0.ID)
	assert.Equal(t, "idle", st.Label)

	require.NoError(t, s.RenameState(q0.ID, ""))
	st, _ = s.State(q0.ID)
	assert.Equal(t, "q0", st.Label)
}

func TestTransitionEdits(t *testing.T) {
	s := endsWithAB(t)
	tr := s.Transitions()[0]

	require.NoError(t, s.SetTransitionSymbols(tr.ID, []string{"x", "y"}))
	got, ok := s.Transition(tr.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, got.Symbols)

	assert.ErrorIs(t, s.SetTransitionSymbols(tr.ID, nil), ErrInvariantViolation)

	require.NoError(t, s.DeleteTransition(tr.ID))
	_, ok = s.Transition(tr.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteTransition(tr.ID), ErrTransitionNotFound)
}

func TestReturnedValuesAreDetached(t *testing.T) {
	s := endsWithAB(t)

	trs := s.Transitions()
	trs[0].Symbols[0] = "z"
	sts := s.States()
	sts[0].Label = "mutated"

	assert.Equal(t, "a", s.Transitions()[0].Symbols[0])
	assert.Equal(t, "q0", s.States()[0].Label)
}

func TestRecorderNotifiedAfterMutation(t *testing.T) {
	s := New()
	var actions []string
	var lens []int
	s.SetRecorder(recorderFunc(func(a string) {
		actions = append(actions, a)
		lens = append(lens, s.Len())
	}))

	q0 := s.AddState(0, 0)
	_, _ = s.ToggleAccept(q0.ID)
	_, err := s.DeleteState(q0.ID)
	require.Error(t, err)

	assert.Equal(t, []string{"add state", "toggle accepting state"}, actions)
	assert.Equal(t, []int{1, 1}, lens, "recorder sees the post-mutation store")
}

func TestAlphabetExcludesEpsilon(t *testing.T) {
	s := New()
	q0 := s.AddState(0, 0)
	q1 := s.AddState(0, 0)
	_, _ = s.AddTransition(q0.ID, q1.ID, []string{"b", Epsilon})
	_, _ = s.AddTransition(q1.ID, q0.ID, []string{"", "a", "b"})
	assert.Equal(t, []string{"a", "b"}, s.Alphabet())
}

func TestClear(t *testing.T) {
	s := endsWithAB(t)
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Transitions())
	assert.Empty(t, s.AcceptStates())
	_, ok := s.StartState()
	assert.False(t, ok)

	q := s.AddState(0, 0)
	assert.True(t, q.IsStart)
	assert.NoError(t, s.Check())
}

func TestAcceptSetMatchesFlagsUnderRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New()
	s.AddState(0, 0)

	for i := 0; i < 500; i++ {
		states := s.States()
		pick := states[rng.Intn(len(states))].ID
		switch rng.Intn(7) {
		case 0, 1:
			s.AddState(rng.Float64()*500, rng.Float64()*500)
		case 2:
			_, _ = s.DeleteState(pick)
		case 3:
			_, _ = s.ToggleAccept(pick)
		case 4:
			_ = s.SetStart(pick)
		case 5:
			other := states[rng.Intn(len(states))].ID
			_, _ = s.AddTransition(pick, other, []string{string(rune('a' + rng.Intn(3)))})
		case 6:
			_ = s.SetAccepting([]StateID{pick}, rng.Intn(2) == 0)
		}

		require.NoError(t, s.Check(), "step %d", i)

		want := map[StateID]bool{}
		for _, st := range s.States() {
			if st.IsAccept {
				want[st.ID] = true
			}
		}
		got := s.AcceptStates()
		require.Len(t, got, len(want))
		for _, id := range got {
			require.True(t, want[id])
		}
	}
}

func TestSnapshotRestoreRebuildsObjects(t *testing.T) {
	s := endsWithAB(t)
	snap := s.Snapshot()

	_, err := s.DeleteState(1)
	require.NoError(t, err)
	require.NoError(t, s.RenameState(0, "start"))

	require.NoError(t, s.Restore(snap))
	assert.True(t, Equal(snap, s.Snapshot()))
	assert.NoError(t, s.Check())

	// Mutating the store after restore must not reach back into snap.
	require.NoError(t, s.RenameState(0, "again"))
	st, _ := snap.State(0)
	assert.Equal(t, "q0", st.Label)
}

func TestRestoreRejectsBadSnapshot(t *testing.T) {
	s := endsWithAB(t)
	before := s.Snapshot()

	bad := before.Clone()
	bad.Transitions[0].To = 99
	assert.ErrorIs(t, s.Restore(bad), ErrStateNotFound)

	bad = before.Clone()
	bad.States = append(bad.States, bad.States[0])
	assert.ErrorIs(t, s.Restore(bad), ErrInvariantViolation)

	bad = before.Clone()
	bad.Accept = nil
	assert.ErrorIs(t, s.Restore(bad), ErrInvariantViolation)

	assert.True(t, Equal(before, s.Snapshot()), "failed restore must leave the store untouched")
}

func TestRestoreKeepsCounterMonotonic(t *testing.T) {
	s := New()
	s.AddState(0, 0)
	snap := s.Snapshot()
	s.AddState(0, 0)
	s.AddState(0, 0)

	require.NoError(t, s.Restore(snap))
	q := s.AddState(0, 0)
	assert.Equal(t, StateID(3), q.ID)
}
