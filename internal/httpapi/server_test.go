package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	w := do(t, NewHandler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTemplates(t *testing.T) {
	h := NewHandler()

	w := do(t, h, http.MethodGet, "/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]TemplateInfo](t, w)
	require.Len(t, list, 6)
	assert.Equal(t, "endsWithAB", list[0].Name)
	assert.Equal(t, "aab", list[0].Sample)

	w = do(t, h, http.MethodGet, "/templates/epsilonNFA", "")
	require.Equal(t, http.StatusOK, w.Code)
	tpl := decodeBody[TemplateResponse](t, w)
	assert.Equal(t, "nfa", string(tpl.Type))
	assert.Len(t, tpl.Structure.States, 4)

	w = do(t, h, http.MethodGet, "/templates/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

const endsWithAB = `{
	"states": [
		{"id": 0, "isStart": true},
		{"id": 1},
		{"id": 2, "isAccept": true}
	],
	"transitions": [
		{"from": 0, "to": 1, "symbols": "a"},
		{"from": 0, "to": 0, "symbols": "b"},
		{"from": 1, "to": 1, "symbols": "a"},
		{"from": 1, "to": 2, "symbols": "b"},
		{"from": 2, "to": 1, "symbols": "a"},
		{"from": 2, "to": 0, "symbols": "b"}
	]
}`

func TestEvaluate(t *testing.T) {
	h := NewHandler()

	tests := []struct {
		name     string
		body     string
		code     int
		accepted bool
	}{
		{"inline accepted", `{"diagram": ` + endsWithAB + `, "input": "aab", "type": "dfa"}`, http.StatusOK, true},
		{"inline rejected", `{"diagram": ` + endsWithAB + `, "input": "ba"}`, http.StatusOK, false},
		{"template", `{"template": "epsilonNFA", "input": "b"}`, http.StatusOK, true},
		{"unknown symbol", `{"template": "endsWithAB", "input": "abc"}`, http.StatusUnprocessableEntity, false},
		{"bad type", `{"template": "endsWithAB", "input": "ab", "type": "pda"}`, http.StatusBadRequest, false},
		{"dangling", `{"diagram": {"states": [{"id": 0}], "transitions": [{"from": 0, "to": 3}]}, "input": ""}`, http.StatusBadRequest, false},
		{"no diagram", `{"input": "a"}`, http.StatusBadRequest, false},
		{"bad json", `{`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/evaluate", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code == http.StatusOK {
				resp := decodeBody[EvaluateResponse](t, w)
				assert.Equal(t, tt.accepted, resp.Accepted)
			} else {
				assert.NotEmpty(t, decodeBody[errorBody](t, w).Error)
			}
		})
	}
}

func TestEvaluateTrace(t *testing.T) {
	w := do(t, NewHandler(), http.MethodPost, "/evaluate", `{"template": "endsWithAB", "input": "ab"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[EvaluateResponse](t, w)
	assert.Equal(t, "dfa", string(resp.Type))
	assert.Equal(t, []string{"q2"}, resp.Final)
	assert.Equal(t, []string{"q0 --a--> q1", "q1 --b--> q2"}, resp.Trace)
}

func TestBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(WithRegistry(reg))

	w := do(t, h, http.MethodPost, "/batch", `{"template": "endsWithAB", "inputs": ["ab", "ba"], "text": "aab\n\n x \n"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[BatchResponse](t, w)

	require.Len(t, resp.Results, 4)
	assert.True(t, resp.Results[0].Accepted)
	assert.False(t, resp.Results[1].Accepted)
	assert.True(t, resp.Results[2].Accepted)
	assert.True(t, resp.Results[3].UnknownSymbol)
	assert.Equal(t, 4, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Errors)

	w = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `fsmlab_batch_evaluations_total{outcome="accepted",type="dfa"} 2`)
}

func TestBatchEmptyDiagram(t *testing.T) {
	w := do(t, NewHandler(), http.MethodPost, "/batch", `{"diagram": {"states": []}, "inputs": ["a"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAnalyse(t *testing.T) {
	w := do(t, NewHandler(), http.MethodPost, "/analyse", `{"template": "contains101"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[AnalyseResponse](t, w)
	assert.Equal(t, "nfa", string(resp.Type))
	assert.Equal(t, 4, resp.States)
	assert.Equal(t, []string{"0", "1"}, resp.Alphabet)
	require.NotEmpty(t, resp.Warnings)
	assert.Equal(t, "nondeterministic", resp.Warnings[0].Type)
}

func TestDefaultMetrics(t *testing.T) {
	w := do(t, NewHandler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
