package batch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

func endsWithAB(t *testing.T) diagram.Snapshot {
	t.Helper()
	s := diagram.New()
	q0 := s.AddState(100, 200)
	q1 := s.AddState(300, 200)
	q2 := s.AddState(500, 200)
	_, err := s.ToggleAccept(q2.ID)
	require.NoError(t, err)
	for _, e := range []struct {
		from, to diagram.StateID
		sym      string
	}{
		{q0.ID, q1.ID, "a"},
		{q0.ID, q0.ID, "b"},
		{q1.ID, q1.ID, "a"},
		{q1.ID, q2.ID, "b"},
		{q2.ID, q1.ID, "a"},
		{q2.ID, q0.ID, "b"},
	} {
		_, err := s.AddTransition(e.from, e.to, []string{e.sym})
		require.NoError(t, err)
	}
	return s.Snapshot()
}

func TestRunScenario(t *testing.T) {
	var seen []Progress
	results, err := New().Run(context.Background(), endsWithAB(t), []string{"ab", "ba", "aab"}, fsm.TypeDFA,
		func(p Progress) { seen = append(seen, p) })
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Input: "ab", Accepted: true},
		{Input: "ba", Accepted: false},
		{Input: "aab", Accepted: true},
	}, results)
	assert.Equal(t, []Progress{
		{Index: 1, Total: 3, Input: "ab"},
		{Index: 2, Total: 3, Input: "ba"},
		{Index: 3, Total: 3, Input: "aab"},
	}, seen)
}

func TestRunRecordsErrorsPerInput(t *testing.T) {
	results, err := New().Run(context.Background(), endsWithAB(t), []string{" ab ", "axb", "b"}, fsm.TypeDFA, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "ab", results[0].Input)
	assert.True(t, results[0].Accepted)

	assert.False(t, results[1].Accepted)
	assert.True(t, results[1].UnknownSymbol)
	assert.Contains(t, results[1].Err, `"x"`)

	assert.Empty(t, results[2].Err)
	assert.False(t, results[2].Accepted)

	assert.Equal(t, Summary{Total: 3, Accepted: 1, Rejected: 1, Errors: 1}, Summarize(results))
}

func TestRunFailsWholesale(t *testing.T) {
	called := false
	progress := func(Progress) { called = true }

	_, err := New().Run(context.Background(), diagram.New().Snapshot(), []string{"a"}, fsm.TypeDFA, progress)
	assert.ErrorIs(t, err, diagram.ErrEmptyDiagram)

	s := diagram.New()
	s.AddState(0, 0)
	s.ClearStart()
	_, err = New().Run(context.Background(), s.Snapshot(), []string{"a"}, fsm.TypeDFA, progress)
	assert.ErrorIs(t, err, diagram.ErrNoStartState)

	_, err = New().Run(context.Background(), endsWithAB(t), []string{"a"}, fsm.Type("pda"), progress)
	assert.ErrorIs(t, err, fsm.ErrUnknownType)

	assert.False(t, called)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := New().Run(ctx, endsWithAB(t), []string{"ab", "ba", "aab"}, fsm.TypeDFA, func(p Progress) {
		if p.Index == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 2)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	_, err := New(WithMetrics(m)).Run(context.Background(), endsWithAB(t), []string{"ab", "ba", "c"}, fsm.TypeNFA, nil)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	histograms := 0
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case "fsmlab_batch_evaluations_total":
				var outcome string
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == "outcome" {
						outcome = lp.GetValue()
					}
				}
				counts[outcome] = metric.GetCounter().GetValue()
			case "fsmlab_batch_duration_seconds":
				histograms++
				assert.Equal(t, uint64(1), metric.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, map[string]float64{"accepted": 1, "rejected": 1, "error": 1}, counts)
	assert.Equal(t, 1, histograms)
}

func TestParseInputs(t *testing.T) {
	got := ParseInputs("ab\n\n  ba \r\n\t\naab")
	assert.Equal(t, []string{"ab", "ba", "aab"}, got)
	assert.Empty(t, ParseInputs("  \n\n"))
}
