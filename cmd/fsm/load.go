package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/fsmfile"
)

const templatePrefix = "template:"

// loaded is a diagram read from a file or a template.
type loaded struct {
	source    string
	structure fsmfile.Structure
	snap      diagram.Snapshot
	template  *fsmfile.Template
}

func (d *loaded) title() string {
	if t := d.structure.Title(); t != "" {
		return t
	}
	return d.source
}

// suggestedType is the template's type, or empty for files.
func (d *loaded) suggestedType() fsm.Type {
	if d.template == nil {
		return ""
	}
	return d.template.Type
}

// loadDiagram reads path, which is a JSON or YAML file, "-" for JSON on
// stdin, or template:<name>.
func loadDiagram(path string, stdin io.Reader) (*loaded, error) {
	d := &loaded{source: path}

	switch {
	case strings.HasPrefix(path, templatePrefix):
		t, err := fsmfile.LookupTemplate(strings.TrimPrefix(path, templatePrefix))
		if err != nil {
			return nil, err
		}
		d.template = &t
		d.structure = t.Structure
	case path == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		if d.structure, err = fsmfile.ParseJSON(data); err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
	default:
		format, err := fsmfile.FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if d.structure, err = fsmfile.Parse(data, format); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	snap, err := fsmfile.Build(d.structure)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.snap = snap
	return d, nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
