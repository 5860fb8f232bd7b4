package fsmfile

import (
	"testing"

	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

// Run with: go test -fuzz=FuzzParseJSON -fuzztime=30s ./pkg/fsmfile/

var fuzzSeeds = []string{
	`{"states":[{"id":0,"isStart":true},{"id":1,"isAccept":true}],"transitions":[{"from":0,"to":1,"symbols":["a"]}]}`,
	`{"states":[{"id":0,"isStart":true}],"transitions":[{"from":0,"to":0,"symbols":"a,b"}]}`,
	`{"states":[{"isStart":true},{}],"transitions":[{"from":0,"to":1}]}`,
	`{"states":[{"id":0,"isStart":true},{"id":1}],"transitions":[{"fromId":0,"toId":1,"symbols":["ε"]}]}`,
	`{"metadata":{"title":"t"},"states":[],"transitions":[]}`,
	// Edge cases
	`{}`,
	`[]`,
	`null`,
	``,
	`{"states":[{"id":0}],"transitions":[{"from":0,"to":9}]}`,
	`{"states":[{"id":0,"isStart":true},{"id":1,"isStart":true}]}`,
	`{"states":[{"id":0},{"id":0}]}`,
	`{"states":"nope","transitions":{}}`,
	`{"states":[{"id":-1,"x":1e308,"y":-1e308}]}`,
}

// FuzzParseJSON feeds arbitrary bytes through the JSON reader and, when
// they describe a valid diagram, checks that export and rebuild agree.
func FuzzParseJSON(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := ParseJSON(data)
		if err != nil {
			return
		}
		_, _ = ToJSON(s, true)
		_, _ = ToYAML(s)

		snap, err := Build(s)
		if err != nil {
			return
		}
		again, err := Build(Export(snap, s.Title()))
		if err != nil {
			t.Fatalf("rebuilding an exported diagram failed: %v", err)
		}
		if !diagram.Equal(snap, again) {
			t.Fatalf("export round trip changed the diagram")
		}
	})
}

// FuzzParseYAML exercises the YAML reader with arbitrary text.
func FuzzParseYAML(f *testing.F) {
	f.Add("states:\n  - {id: 0, isStart: true}\ntransitions: []\n")
	f.Add("states: [{id: 0}, {id: 1}]\ntransitions:\n  - {from: 0, to: 1, symbols: [a, b]}\n")
	f.Add("- just\n- a list\n")
	f.Add(": :")
	f.Add("")

	f.Fuzz(func(t *testing.T, data string) {
		s, err := ParseYAML([]byte(data))
		if err != nil {
			return
		}
		_, _ = Build(s)
	})
}

// FuzzEvaluate runs arbitrary input strings against arbitrary diagrams
// in both modes. Nothing may panic and a finished run must have an
// outcome.
func FuzzEvaluate(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add([]byte(s), "ab")
		f.Add([]byte(s), "")
	}
	f.Add([]byte(fuzzSeeds[0]), "xyz")

	f.Fuzz(func(t *testing.T, data []byte, input string) {
		s, err := ParseJSON(data)
		if err != nil {
			return
		}
		snap, err := Build(s)
		if err != nil {
			return
		}

		_ = fsm.Analyse(snap)
		_ = fsm.Detect(snap)
		_ = GenerateDOT(snap, s.Title())
		_, _ = fsm.Determinize(snap)

		a := fsm.Compile(snap)
		for _, typ := range []fsm.Type{fsm.TypeDFA, fsm.TypeNFA} {
			runner, err := fsm.NewRunner(a, typ, input)
			if err != nil {
				continue
			}
			for !runner.Done() {
				if _, err := runner.Step(); err != nil {
					break
				}
			}
			if runner.Outcome() == fsm.Running {
				t.Fatalf("%s run of %q did not finish", typ, input)
			}
			_ = runner.CurrentState()
			_ = runner.AvailableInputs()
			_ = runner.Status()
			runner.Reset()
		}
	})
}
