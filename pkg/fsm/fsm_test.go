package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

type edge struct {
	from, to diagram.StateID
	symbols  []string
}

// build creates n states (q0 start), flags accept on the listed states and
// adds the edges in order.
func build(t *testing.T, n int, accept []diagram.StateID, edges []edge) diagram.Snapshot {
	t.Helper()
	s := diagram.New()
	for i := 0; i < n; i++ {
		s.AddState(float64(i*100), 0)
	}
	require.NoError(t, s.SetAccepting(accept, true))
	for _, e := range edges {
		_, err := s.AddTransition(e.from, e.to, e.symbols)
		require.NoError(t, err)
	}
	return s.Snapshot()
}

func endsWithAB(t *testing.T) *Automaton {
	return Compile(endsWithABSnapshot(t))
}

func endsWithABSnapshot(t *testing.T) diagram.Snapshot {
	return build(t, 3, []diagram.StateID{2}, []edge{
		{0, 1, []string{"a"}},
		{0, 0, []string{"b"}},
		{1, 1, []string{"a"}},
		{1, 2, []string{"b"}},
		{2, 1, []string{"a"}},
		{2, 0, []string{"b"}},
	})
}

func epsilonNFA(t *testing.T) *Automaton {
	return Compile(epsilonNFASnapshot(t))
}

func epsilonNFASnapshot(t *testing.T) diagram.Snapshot {
	return build(t, 4, []diagram.StateID{3}, []edge{
		{0, 1, []string{diagram.Epsilon}},
		{0, 2, []string{diagram.Epsilon}},
		{1, 3, []string{"a"}},
		{2, 3, []string{"b"}},
	})
}

func TestDFAScenario(t *testing.T) {
	a := endsWithAB(t)

	tests := []struct {
		input string
		want  bool
	}{
		{"ab", true},
		{"aab", true},
		{"", false},
		{"ba", false},
		{"bab", true},
		{"abab", true},
		{"abb", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Accepts(a, tt.input, TypeDFA)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDFAIsDeterministic(t *testing.T) {
	a := endsWithAB(t)
	for _, in := range []string{"ab", "ba", "aabba", ""} {
		first, err1 := Evaluate(a, in, TypeDFA)
		second, err2 := Evaluate(a, in, TypeDFA)
		assert.Equal(t, err1, err2)
		assert.Equal(t, first, second)
	}
}

func TestDFAFirstTransitionWins(t *testing.T) {
	a := Compile(build(t, 3, []diagram.StateID{1}, []edge{
		{0, 1, []string{"a"}},
		{0, 2, []string{"a"}},
	}))

	res, err := Evaluate(a, "a", TypeDFA)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, []diagram.StateID{1}, res.Final)
}

func TestDFARejectsWithoutConsumingRest(t *testing.T) {
	a := Compile(build(t, 2, []diagram.StateID{1}, []edge{
		{0, 1, []string{"a"}},
		{1, 0, []string{"b"}},
	}))

	// "a" then "a": q1 has no "a" edge, so the run stops at position 1 and
	// never reaches the unknown "z".
	res, err := Evaluate(a, "aaz", TypeDFA)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, 1, res.Consumed)
}

func TestUnknownSymbol(t *testing.T) {
	for _, typ := range []Type{TypeDFA, TypeNFA} {
		t.Run(string(typ), func(t *testing.T) {
			_, err := Evaluate(endsWithAB(t), "ac", typ)
			require.ErrorIs(t, err, ErrUnknownSymbol)

			var use *UnknownSymbolError
			require.True(t, errors.As(err, &use))
			assert.Equal(t, "c", use.Symbol)
			assert.Equal(t, []string{"a", "b"}, use.Alphabet)
		})
	}
}

func TestEpsilonInputIsUnknown(t *testing.T) {
	_, err := Evaluate(epsilonNFA(t), diagram.Epsilon, TypeNFA)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = Evaluate(epsilonNFA(t), diagram.Epsilon, TypeDFA)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestNoStartState(t *testing.T) {
	s := diagram.New()
	s.AddState(0, 0)
	s.ClearStart()

	_, err := Evaluate(Compile(s.Snapshot()), "a", TypeDFA)
	assert.ErrorIs(t, err, diagram.ErrNoStartState)
}

func TestUnknownType(t *testing.T) {
	_, err := Evaluate(endsWithAB(t), "a", Type("pda"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = ParseType("PDA")
	assert.ErrorIs(t, err, ErrUnknownType)

	typ, err := ParseType(" NFA ")
	require.NoError(t, err)
	assert.Equal(t, TypeNFA, typ)
}

func TestNFAScenario(t *testing.T) {
	a := epsilonNFA(t)

	ok, err := Accepts(a, "a", TypeNFA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Accepts(a, "b", TypeNFA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Accepts(a, "ab", TypeNFA)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Accepts(a, "c", TypeNFA)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestNFAMultipleTargets(t *testing.T) {
	a := Compile(build(t, 3, []diagram.StateID{2}, []edge{
		{0, 1, []string{"a"}},
		{0, 2, []string{"a"}},
	}))

	r, err := NewRunner(a, TypeNFA, "a")
	require.NoError(t, err)
	assert.Equal(t, []diagram.StateID{0}, r.CurrentStates())

	step, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, []diagram.StateID{1, 2}, step.To)
	assert.Len(t, step.Via, 2)
	assert.True(t, r.IsAccepting())
	assert.Equal(t, Accepted, r.Outcome())
}

func TestContains101(t *testing.T) {
	a := Compile(build(t, 4, []diagram.StateID{3}, []edge{
		{0, 0, []string{"0", "1"}},
		{0, 1, []string{"1"}},
		{1, 2, []string{"0"}},
		{2, 3, []string{"1"}},
		{3, 3, []string{"0", "1"}},
	}))

	for in, want := range map[string]bool{"101": true, "0101": true, "1010": true, "1101": true, "100": false, "11": false} {
		got, err := Accepts(a, in, TypeNFA)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestEpsilonClosure(t *testing.T) {
	a := Compile(build(t, 5, nil, []edge{
		{0, 1, []string{""}},
		{1, 2, []string{diagram.Epsilon, "x"}},
		{2, 0, []string{diagram.Epsilon}},
		{3, 4, []string{"x"}},
	}))

	got := a.EpsilonClosure(NewStateSet(0))
	assert.True(t, got.Equal(NewStateSet(0, 1, 2)))

	assert.True(t, a.EpsilonClosure(got).Equal(got), "closure must be idempotent")
	assert.True(t, a.EpsilonClosure(NewStateSet(3)).Equal(NewStateSet(3)))
	assert.Empty(t, a.EpsilonClosure(NewStateSet()))
}

func TestEpsilonClosureLongChain(t *testing.T) {
	const n = 5000
	s := diagram.New()
	for i := 0; i < n; i++ {
		s.AddState(0, 0)
	}
	for i := 0; i < n-1; i++ {
		_, err := s.AddTransition(diagram.StateID(i), diagram.StateID(i+1), []string{diagram.Epsilon})
		require.NoError(t, err)
	}
	a := Compile(s.Snapshot())
	assert.Len(t, a.EpsilonClosure(NewStateSet(0)), n)
}

func TestRunnerStepping(t *testing.T) {
	a := endsWithAB(t)
	r, err := NewRunner(a, TypeDFA, "ab")
	require.NoError(t, err)

	assert.False(t, r.Done())
	assert.Equal(t, "q0", r.CurrentState())
	assert.Equal(t, []string{"a", "b"}, r.AvailableInputs())

	step, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, "q0 --a--> q1", r.FormatStep(step))
	assert.Equal(t, "b", r.Remaining())

	_, err = r.Step()
	require.NoError(t, err)
	assert.True(t, r.Done())
	assert.Equal(t, Accepted, r.Outcome())
	assert.Equal(t, "State: q2 [accepting] (accepted)", r.Status())

	_, err = r.Step()
	assert.ErrorIs(t, err, ErrFinished)
	assert.Len(t, r.History(), 2)

	r.Reset()
	assert.Equal(t, 0, r.Position())
	assert.Empty(t, r.History())
	assert.Equal(t, Running, r.Outcome())
}

func TestRunnerEmptyInputSettlesImmediately(t *testing.T) {
	r, err := NewRunner(epsilonNFA(t), TypeNFA, "")
	require.NoError(t, err)
	assert.True(t, r.Done())
	assert.Equal(t, Rejected, r.Outcome())
	assert.Equal(t, "{q0, q1, q2}", r.CurrentState())
}

func TestDetect(t *testing.T) {
	assert.Equal(t, TypeDFA, Detect(build(t, 2, nil, []edge{{0, 1, []string{"a"}}, {0, 0, []string{"b"}}})))
	assert.Equal(t, TypeNFA, Detect(build(t, 2, nil, []edge{{0, 1, []string{"a"}}, {0, 0, []string{"a"}}})))
	assert.Equal(t, TypeNFA, Detect(build(t, 2, nil, []edge{{0, 1, []string{""}}})))
	// a symbol listed twice on one transition is still one choice
	assert.Equal(t, TypeDFA, Detect(build(t, 2, nil, []edge{{0, 1, []string{"a", "a"}}, {1, 0, []string{"b"}}})))
}

func TestAnalyseRepeatedSymbol(t *testing.T) {
	snap := build(t, 2, []diagram.StateID{1}, []edge{
		{0, 1, []string{"a", "a"}},
		{1, 0, []string{"b", "b"}},
	})
	assert.Empty(t, Analyse(snap))
}

func TestAnalyse(t *testing.T) {
	snap := build(t, 4, nil, []edge{
		{0, 1, []string{"a"}},
		{0, 2, []string{"a", diagram.Epsilon}},
	})

	byType := map[string][]Warning{}
	for _, w := range Analyse(snap) {
		byType[w.Type] = append(byType[w.Type], w)
	}

	require.Len(t, byType[WarnNondeterministic], 1)
	assert.Equal(t, "a", byType[WarnNondeterministic][0].Symbol)
	require.Len(t, byType[WarnEpsilon], 1)
	require.Len(t, byType[WarnUnreachable], 1)
	assert.Equal(t, diagram.StateID(3), byType[WarnUnreachable][0].State)
	assert.Len(t, byType[WarnNoAccept], 1)
	assert.Len(t, byType[WarnDead], 3)
	assert.Empty(t, byType[WarnNoStart])
}

func TestDeterminize(t *testing.T) {
	nfa := build(t, 4, []diagram.StateID{3}, []edge{
		{0, 1, []string{"a"}},
		{0, 2, []string{"a"}},
		{1, 3, []string{"b"}},
		{2, 3, []string{"b"}},
	})

	dfa, err := Determinize(nfa)
	require.NoError(t, err)
	require.Len(t, dfa.States, 3)
	assert.Equal(t, "{q0}", dfa.States[0].Label)
	assert.Equal(t, "{q1,q2}", dfa.States[1].Label)
	assert.Equal(t, TypeDFA, Detect(dfa))

	s := diagram.New()
	require.NoError(t, s.Restore(dfa))
	require.NoError(t, s.Check())

	da, na := Compile(dfa), Compile(nfa)
	for _, in := range []string{"ab", "a", "b", "abb", ""} {
		want, err := Accepts(na, in, TypeNFA)
		require.NoError(t, err)
		got, err := Accepts(da, in, TypeDFA)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestDeterminizeWithEpsilon(t *testing.T) {
	dfa, err := Determinize(epsilonNFASnapshot(t))
	require.NoError(t, err)
	assert.Equal(t, "{q0,q1,q2}", dfa.States[0].Label)

	ok, err := Accepts(Compile(dfa), "b", TypeDFA)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeterminizeDuplicateLabels(t *testing.T) {
	s := diagram.New()
	start := s.AddState(0, 0)
	left := s.AddState(100, 0)
	right := s.AddState(200, 0)
	require.NoError(t, s.RenameState(left.ID, "A"))
	require.NoError(t, s.RenameState(right.ID, "A"))
	_, err := s.ToggleAccept(right.ID)
	require.NoError(t, err)
	_, err = s.AddTransition(start.ID, left.ID, []string{"a"})
	require.NoError(t, err)
	_, err = s.AddTransition(start.ID, right.ID, []string{"b"})
	require.NoError(t, err)
	nfa := s.Snapshot()

	dfa, err := Determinize(nfa)
	require.NoError(t, err)
	require.Len(t, dfa.States, 3)
	assert.Equal(t, "{A}", dfa.States[1].Label)
	assert.Equal(t, "{A}", dfa.States[2].Label)

	da, na := Compile(dfa), Compile(nfa)
	for _, in := range []string{"a", "b", ""} {
		want, err := Accepts(na, in, TypeNFA)
		require.NoError(t, err)
		got, err := Accepts(da, in, TypeDFA)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestDeterminizeNeedsStart(t *testing.T) {
	s := diagram.New()
	s.AddState(0, 0)
	s.ClearStart()
	_, err := Determinize(s.Snapshot())
	assert.ErrorIs(t, err, diagram.ErrNoStartState)
}
