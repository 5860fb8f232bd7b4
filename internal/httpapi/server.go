// Package httpapi serves the evaluator over HTTP. The API is stateless:
// every request carries its own diagram, or names a template.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ha1tch/fsmlab/pkg/batch"
	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/fsmfile"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Server handles API requests.
type Server struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	batch    *batch.Runner
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRegistry sets the registry behind /metrics. A fresh registry with
// the Go and process collectors is used by default.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// NewHandler builds the API router.
func NewHandler(opts ...Option) http.Handler {
	s := &Server{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	s.batch = batch.New(batch.WithLogger(s.logger), batch.WithMetrics(batch.NewMetrics(s.registry)))

	r := chi.NewRouter()
	r.Get("/health", s.Health)
	r.Get("/templates", s.ListTemplates)
	r.Get("/templates/{name}", s.GetTemplate)
	r.Post("/evaluate", s.Evaluate)
	r.Post("/batch", s.Batch)
	r.Post("/analyse", s.Analyse)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// DiagramRequest names the diagram a request works on: either an inline
// structural description or a template name.
type DiagramRequest struct {
	Diagram  map[string]any `json:"diagram,omitempty"`
	Template string         `json:"template,omitempty"`
	Type     string         `json:"type,omitempty"`
}

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	DiagramRequest
	Input string `json:"input"`
}

// EvaluateResponse is the reply to POST /evaluate.
type EvaluateResponse struct {
	Accepted bool     `json:"accepted"`
	Outcome  string   `json:"outcome"`
	Type     fsm.Type `json:"type"`
	Final    []string `json:"final"`
	Consumed int      `json:"consumed"`
	Trace    []string `json:"trace"`
}

// BatchRequest is the body of POST /batch. Inputs and Text are merged;
// Text is split into lines.
type BatchRequest struct {
	DiagramRequest
	Inputs []string `json:"inputs,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// BatchResponse is the reply to POST /batch.
type BatchResponse struct {
	Type    fsm.Type       `json:"type"`
	Results []batch.Result `json:"results"`
	Summary batch.Summary  `json:"summary"`
}

// AnalyseResponse is the reply to POST /analyse.
type AnalyseResponse struct {
	Type     fsm.Type      `json:"type"`
	States   int           `json:"states"`
	Alphabet []string      `json:"alphabet"`
	Warnings []fsm.Warning `json:"warnings"`
}

// TemplateInfo describes a template in GET /templates.
type TemplateInfo struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Type   fsm.Type `json:"type"`
	Sample string   `json:"sample"`
}

// TemplateResponse is the reply to GET /templates/{name}.
type TemplateResponse struct {
	TemplateInfo
	Accept    []string          `json:"accept"`
	Reject    []string          `json:"reject"`
	Structure fsmfile.Structure `json:"structure"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	all, err := fsmfile.Templates()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]TemplateInfo, 0, len(all))
	for _, t := range all {
		out = append(out, info(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetTemplate handles GET /templates/{name}.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := fsmfile.LookupTemplate(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := fsmfile.Build(t.Structure)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TemplateResponse{
		TemplateInfo: info(t),
		Accept:       t.Accept,
		Reject:       t.Reject,
		Structure:    fsmfile.Export(snap, t.Title),
	})
}

func info(t fsmfile.Template) TemplateInfo {
	return TemplateInfo{Name: t.Name, Title: t.Title, Type: t.Type, Sample: t.Sample}
}

// Evaluate handles POST /evaluate.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, typ, err := req.resolve()
	if err != nil {
		s.writeError(w, err)
		return
	}

	a := fsm.Compile(snap)
	runner, err := fsm.NewRunner(a, typ, req.Input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := runner.Run()
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := EvaluateResponse{
		Accepted: res.Accepted,
		Outcome:  res.Outcome.String(),
		Type:     typ,
		Consumed: res.Consumed,
		Final:    make([]string, 0, len(res.Final)),
		Trace:    make([]string, 0, len(res.Trace)),
	}
	for _, id := range res.Final {
		resp.Final = append(resp.Final, a.Label(id))
	}
	for _, step := range res.Trace {
		resp.Trace = append(resp.Trace, runner.FormatStep(step))
	}
	s.logger.Debug("evaluate", "input", req.Input, "type", typ, "accepted", res.Accepted)
	s.writeJSON(w, http.StatusOK, resp)
}

// Batch handles POST /batch.
func (s *Server) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, typ, err := req.resolve()
	if err != nil {
		s.writeError(w, err)
		return
	}

	inputs := append(req.Inputs, batch.ParseInputs(req.Text)...)
	results, err := s.batch.Run(r.Context(), snap, inputs, typ, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BatchResponse{
		Type:    typ,
		Results: results,
		Summary: batch.Summarize(results),
	})
}

// Analyse handles POST /analyse.
func (s *Server) Analyse(w http.ResponseWriter, r *http.Request) {
	var req DiagramRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, _, err := req.resolve()
	if err != nil {
		s.writeError(w, err)
		return
	}
	warnings := fsm.Analyse(snap)
	if warnings == nil {
		warnings = []fsm.Warning{}
	}
	s.writeJSON(w, http.StatusOK, AnalyseResponse{
		Type:     fsm.Detect(snap),
		States:   len(snap.States),
		Alphabet: diagram.Alphabet(snap.Transitions),
		Warnings: warnings,
	})
}

var errNoDiagram = errors.New("request needs a diagram or a template")

// resolve builds the request's diagram and picks the automaton type:
// the requested one, else the template's, else the detected one.
func (d DiagramRequest) resolve() (diagram.Snapshot, fsm.Type, error) {
	var (
		structure fsmfile.Structure
		suggested fsm.Type
		err       error
	)
	switch {
	case d.Diagram != nil:
		structure, err = fsmfile.Decode(d.Diagram)
	case d.Template != "":
		var t fsmfile.Template
		t, err = fsmfile.LookupTemplate(d.Template)
		structure, suggested = t.Structure, t.Type
	default:
		err = errNoDiagram
	}
	if err != nil {
		return diagram.Snapshot{}, "", err
	}

	snap, err := fsmfile.Build(structure)
	if err != nil {
		return diagram.Snapshot{}, "", err
	}

	switch {
	case d.Type != "":
		typ, err := fsm.ParseType(d.Type)
		return snap, typ, err
	case suggested != "":
		return snap, suggested, nil
	}
	return snap, fsm.Detect(snap), nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fsmfile.ErrUnknownTemplate):
		return http.StatusNotFound
	case errors.Is(err, fsmfile.ErrMalformedStructure),
		errors.Is(err, fsmfile.ErrDanglingReference),
		errors.Is(err, fsm.ErrUnknownType),
		errors.Is(err, errNoDiagram):
		return http.StatusBadRequest
	case errors.Is(err, fsm.ErrUnknownSymbol),
		errors.Is(err, diagram.ErrNoStartState),
		errors.Is(err, diagram.ErrEmptyDiagram):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, code, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
