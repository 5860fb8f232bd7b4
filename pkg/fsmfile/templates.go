package fsmfile

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ha1tch/fsmlab/pkg/fsm"
)

// ErrUnknownTemplate is returned for a template name that does not exist.
var ErrUnknownTemplate = errors.New("fsmfile: unknown template")

//go:embed templates.yaml
var templatesYAML []byte

// Template is a canonical small automaton shipped with the module.
type Template struct {
	Name      string
	Title     string
	Type      fsm.Type // suggested semantics
	Sample    string   // suggested first test string
	Accept    []string // strings the automaton accepts
	Reject    []string // strings it rejects
	Structure Structure
}

var templateNames = []string{
	"endsWithAB",
	"evenZerosOnes",
	"contains101",
	"binaryMod3",
	"endsWithBinary01",
	"epsilonNFA",
}

type templateFile struct {
	Type      string         `yaml:"type"`
	Sample    string         `yaml:"sample"`
	Accept    []string       `yaml:"accept"`
	Reject    []string       `yaml:"reject"`
	Structure map[string]any `yaml:"structure"`
}

var loadTemplates = sync.OnceValues(func() (map[string]Template, error) {
	var files map[string]templateFile
	if err := yaml.Unmarshal(templatesYAML, &files); err != nil {
		return nil, err
	}

	out := make(map[string]Template, len(files))
	for name, f := range files {
		s, err := Decode(f.Structure)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		typ, err := fsm.ParseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		out[name] = Template{
			Name:      name,
			Title:     s.Title(),
			Type:      typ,
			Sample:    f.Sample,
			Accept:    f.Accept,
			Reject:    f.Reject,
			Structure: s,
		}
	}
	return out, nil
})

// TemplateNames lists the available templates in display order.
func TemplateNames() []string {
	return append([]string(nil), templateNames...)
}

// LookupTemplate returns the named template.
func LookupTemplate(name string) (Template, error) {
	all, err := loadTemplates()
	if err != nil {
		return Template{}, err
	}
	t, ok := all[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q. Available: %s", ErrUnknownTemplate, name, strings.Join(templateNames, ", "))
	}
	return t, nil
}

// Templates returns every template in display order.
func Templates() ([]Template, error) {
	out := make([]Template, 0, len(templateNames))
	for _, name := range templateNames {
		t, err := LookupTemplate(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
