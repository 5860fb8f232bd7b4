package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/batch"
	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/fsmfile"
)

const templatePrefix = "template:"

// open loads a JSON or YAML file, or template:<name>.
func (ed *Editor) open(path string) error {
	if name, ok := strings.CutPrefix(path, templatePrefix); ok {
		return ed.loadTemplate(name)
	}

	format, err := fsmfile.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s, err := fsmfile.Parse(data, format)
	if err != nil {
		return err
	}
	if err := ed.bench.ImportStructure(s); err != nil {
		return err
	}
	ed.filename = path
	ed.modified = false
	ed.selected = diagram.NoState
	ed.rememberDir(path)
	ed.logger.Info("file opened", "path", path)
	return nil
}

func (ed *Editor) loadTemplate(name string) error {
	tpl, err := ed.bench.LoadTemplate(name)
	if err != nil {
		return err
	}
	ed.typ = tpl.Type
	ed.updateMenuItems()
	ed.filename = ""
	ed.modified = false
	ed.selected = diagram.NoState
	return nil
}

// loadRandom replaces the diagram with a generated complete DFA.
func (ed *Editor) loadRandom() {
	s := fsmfile.RandomDFA(uint64(ed.now().UnixNano()))
	if !ed.try(func() error { return ed.bench.ImportStructure(s) }) {
		return
	}
	ed.typ = fsm.TypeDFA
	ed.updateMenuItems()
	ed.filename = ""
	ed.modified = false
	ed.selected = diagram.NoState
	ed.mode = ModeCanvas
}

func (ed *Editor) rememberDir(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if dir := filepath.Dir(abs); dir != ed.config.LastDir {
		ed.config.LastDir = dir
		ed.configDirty = true
	}
}

func (ed *Editor) dirPrefix() string {
	if ed.config.LastDir == "" {
		return ""
	}
	return ed.config.LastDir + string(filepath.Separator)
}

func (ed *Editor) promptOpen() {
	ed.prompt("Open: ", ed.dirPrefix(), func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if ed.try(func() error { return ed.open(path) }) {
			ed.modified = false
		}
	})
}

func (ed *Editor) chooseTemplate() {
	all, err := fsmfile.Templates()
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	items := make([]string, len(all))
	for i, t := range all {
		items[i] = t.Title
	}
	ed.choose("Load template", items, func(i int) {
		if ed.try(func() error { return ed.loadTemplate(all[i].Name) }) {
			ed.modified = false
		}
	})
}

// save writes the diagram to the current file, asking for a name when
// there is none.
func (ed *Editor) save() {
	if ed.filename == "" {
		ed.saveAs()
		return
	}
	if err := ed.saveFile(ed.filename); err != nil {
		ed.showMessage(fmt.Sprintf("Save failed: %v", err), MsgError)
		return
	}
	ed.modified = false
	ed.showMessage("Saved "+filepath.Base(ed.filename), MsgSuccess)
}

func (ed *Editor) saveAs() {
	initial := ed.filename
	if initial == "" {
		initial = ed.dirPrefix() + "diagram.json"
	}
	ed.prompt("Save as: ", initial, func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		ed.filename = path
		ed.save()
	})
}

func (ed *Editor) saveFile(path string) error {
	format, err := fsmfile.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := fsmfile.Marshal(ed.bench.ExportStructure(), format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	ed.rememberDir(path)
	ed.logger.Info("file saved", "path", path)
	return nil
}

func (ed *Editor) promptBatch() {
	ed.prompt("Batch file: ", ed.dirPrefix(), func(path string) {
		data, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			ed.showMessage(err.Error(), MsgError)
			return
		}
		ed.runBatch(batch.ParseInputs(string(data)))
	})
}

func (ed *Editor) runBatch(inputs []string) {
	if len(inputs) == 0 {
		ed.showMessage("No strings to test", MsgWarning)
		return
	}
	results, err := ed.bench.RunBatch(context.Background(), inputs, ed.typ, nil)
	if err != nil {
		ed.messageType = MsgError
		return
	}
	lines := make([]string, len(results))
	for i, r := range results {
		input := r.Input
		if input == "" {
			input = "ε"
		}
		switch {
		case r.Err != "":
			lines[i] = fmt.Sprintf("%-16s ERROR  %s", input, r.Err)
		case r.Accepted:
			lines[i] = fmt.Sprintf("%-16s ACCEPTED", input)
		default:
			lines[i] = fmt.Sprintf("%-16s REJECTED", input)
		}
	}
	s := batch.Summarize(results)
	ed.showResults(fmt.Sprintf("Batch: %d accepted, %d rejected, %d errors", s.Accepted, s.Rejected, s.Errors), lines)
}
