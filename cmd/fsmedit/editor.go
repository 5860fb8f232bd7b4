package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsmlab/internal/config"
	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/workbench"
)

// Diagram coordinates are pixels; the canvas shows one cell per
// pxPerCol by pxPerRow block.
const (
	pxPerCol = 8.0
	pxPerRow = 25.0
)

// tickInterval paces redraws for message flashing and animation.
const tickInterval = 50 * time.Millisecond

// Mode represents editor mode
type Mode int

const (
	ModeMenu Mode = iota
	ModeCanvas
	ModeInput
	ModeSelect  // pick one item from a list
	ModeMove    // keyboard-driven state movement
	ModeResults // read-only scrollable text
)

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

// tick is posted by the ticker goroutine; all editor state is touched
// only from the event loop.
type tick struct{}

// Editor holds all editor state
type Editor struct {
	screen      tcell.Screen
	bench       *workbench.Workbench
	logger      *slog.Logger
	config      config.Config
	configDirty bool
	now         func() time.Time

	filename string
	modified bool
	mode     Mode
	typ      fsm.Type

	message           string
	messageType       MessageType
	messageFlashStart int64 // Unix milliseconds when message was shown
	msgSeq            int

	// Canvas state, in cells
	cursorX, cursorY int
	offsetX, offsetY int
	sidebarWidth     int

	selected diagram.StateID // NoState when none

	// Move mode
	moveX, moveY         int
	moveOrigX, moveOrigY float64

	menuItems    []string
	menuSelected int

	// Input box
	inputPrompt string
	inputBuffer string
	inputAction func(string)

	// List selector
	listTitle    string
	listItems    []string
	listSelected int
	listAction   func(int)

	// Results overlay
	resultsTitle  string
	resultsLines  []string
	resultsScroll int

	// Animation
	anim      *workbench.Animation
	animNext  time.Time
	highlight map[diagram.StateID]bool
}

// NewEditor creates an editor drawing on screen.
func NewEditor(screen tcell.Screen, cfg config.Config, logger *slog.Logger) *Editor {
	ed := &Editor{
		screen:       screen,
		logger:       logger,
		config:       cfg,
		now:          time.Now,
		typ:          cfg.DefaultType,
		selected:     diagram.NoState,
		sidebarWidth: 34,
	}
	ed.bench = workbench.New(
		workbench.WithStatusSink(workbench.StatusFunc(ed.status)),
		workbench.WithLogger(logger),
		workbench.WithHistoryDepth(cfg.HistoryDepth),
	)
	ed.updateMenuItems()
	return ed
}

// status receives workbench messages.
func (ed *Editor) status(msg string) {
	ed.showMessage(msg, MsgSuccess)
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart = ed.now().UnixMilli()
	ed.msgSeq++
}

// try runs an edit. On failure the workbench's own message is kept and
// flagged as an error; failures it did not explain show the error text.
func (ed *Editor) try(action func() error) bool {
	seq := ed.msgSeq
	err := action()
	if err == nil {
		ed.modified = true
		ed.afterEdit()
		return true
	}
	ed.logger.Debug("action failed", "error", err)
	switch {
	case errors.Is(err, workbench.ErrBusy):
		ed.showMessage("Animation in progress (Esc to stop)", MsgWarning)
	case ed.msgSeq != seq:
		ed.messageType = MsgError
	default:
		ed.showMessage(err.Error(), MsgError)
	}
	ed.afterEdit()
	return false
}

func (ed *Editor) updateMenuItems() {
	ed.menuItems = []string{
		"New Diagram",
		"Open File",
		"Load Template",
		"Random DFA",
		"Save",
		"Save As",
		"Edit Canvas",
		fmt.Sprintf("Type: %s", strings.ToUpper(string(ed.typ))),
		"Quit",
	}
}

func (ed *Editor) run() {
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ed.screen.PostEvent(tcell.NewEventInterrupt(tick{}))
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		switch ev := ed.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(tick); ok {
				ed.tick()
			}
		}
	}
}

// tick advances a running animation when its delay has passed.
func (ed *Editor) tick() {
	if ed.anim == nil || ed.now().Before(ed.animNext) {
		return
	}
	ed.stepAnimation()
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlQ {
		return true
	}

	// Any key ends the highlight of a finished run.
	if ed.anim == nil {
		ed.highlight = nil
	}

	switch ev.Key() {
	case tcell.KeyCtrlZ:
		ed.try(func() error { return ed.bench.Undo() })
		return false
	case tcell.KeyCtrlY:
		ed.try(func() error { return ed.bench.Redo() })
		return false
	case tcell.KeyCtrlS:
		ed.save()
		return false
	case tcell.KeyCtrlO:
		ed.promptOpen()
		return false
	case tcell.KeyCtrlA:
		if ed.mode == ModeCanvas {
			ed.bench.SelectAll()
		}
		return false
	}

	switch ed.mode {
	case ModeMenu:
		return ed.handleMenuKey(ev)
	case ModeCanvas:
		return ed.handleCanvasKey(ev)
	case ModeInput:
		ed.handleInputKey(ev)
	case ModeSelect:
		ed.handleSelectKey(ev)
	case ModeMove:
		ed.handleMoveKey(ev)
	case ModeResults:
		ed.handleResultsKey(ev)
	}
	return false
}

func (ed *Editor) handleMenuKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp:
		if ed.menuSelected > 0 {
			ed.menuSelected--
		}
	case tcell.KeyDown:
		if ed.menuSelected < len(ed.menuItems)-1 {
			ed.menuSelected++
		}
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyEnter:
		return ed.executeMenuItem()
	case tcell.KeyRune:
		if ev.Rune() == 'q' {
			return true
		}
	}
	return false
}

func (ed *Editor) executeMenuItem() bool {
	switch ed.menuSelected {
	case 0:
		if !ed.try(ed.bench.Clear) {
			return false
		}
		ed.filename = ""
		ed.modified = false
		ed.selected = diagram.NoState
		ed.mode = ModeCanvas
	case 1:
		ed.promptOpen()
	case 2:
		ed.chooseTemplate()
	case 3:
		ed.loadRandom()
	case 4:
		ed.save()
	case 5:
		ed.saveAs()
	case 6:
		ed.mode = ModeCanvas
	case 7:
		ed.toggleType()
	case 8:
		return true
	}
	return false
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	if ev.Modifiers()&tcell.ModShift != 0 {
		switch ev.Key() {
		case tcell.KeyUp:
			ed.pan(0, -1)
			return false
		case tcell.KeyDown:
			ed.pan(0, 1)
			return false
		case tcell.KeyLeft:
			ed.pan(-1, 0)
			return false
		case tcell.KeyRight:
			ed.pan(1, 0)
			return false
		}
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		if ed.anim != nil {
			ed.stopAnimation("Animation stopped")
			return false
		}
		ed.mode = ModeMenu
	case tcell.KeyUp:
		if ed.cursorY > 0 {
			ed.cursorY--
		}
	case tcell.KeyDown:
		ed.cursorY++
	case tcell.KeyLeft:
		if ed.cursorX > 0 {
			ed.cursorX--
		}
	case tcell.KeyRight:
		ed.cursorX++
	case tcell.KeyEnter:
		ed.addStateAtCursor()
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		ed.deleteSelected()
	case tcell.KeyTab:
		ed.cycleSelection()
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			if id := ed.stateAtCursor(); id != diagram.NoState {
				ed.bench.ToggleSelected(id)
			}
		case 't':
			ed.startAddTransition()
		case 'e':
			ed.chooseTransition("Edit transition", ed.promptEditTransition)
		case 'x':
			ed.chooseTransition("Delete transition", func(id diagram.TransitionID) {
				ed.try(func() error { return ed.bench.DeleteTransition(id) })
			})
		case 's':
			if ed.requireSelection() {
				ed.try(func() error { return ed.bench.SetStart(ed.selected) })
			}
		case 'S':
			ed.try(func() error { return ed.bench.ClearStart() })
		case 'a':
			if len(ed.bench.Selection().States) > 0 {
				ed.try(func() error { return ed.bench.SetSelectionAccepting(true) })
			} else if ed.requireSelection() {
				ed.try(func() error { return ed.bench.ToggleAccept(ed.selected) })
			}
		case 'A':
			ed.try(func() error { return ed.bench.SetSelectionAccepting(false) })
		case 'n':
			if ed.requireSelection() {
				ed.promptRename()
			}
		case 'g':
			if id := ed.stateAtCursor(); id != diagram.NoState {
				ed.selected = id
			}
			if ed.requireSelection() {
				ed.startMoveMode()
			}
		case 'y':
			ed.toggleType()
		case 'r':
			ed.promptRun()
		case 'b':
			ed.promptBatch()
		case 'l':
			ed.showAnalysis()
		case 'h':
			ed.showHistory()
		case '?':
			ed.showHelp()
		}
	}
	return false
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		ed.inputBuffer = ""
	case tcell.KeyEnter:
		action, value := ed.inputAction, ed.inputBuffer
		ed.mode = ModeCanvas
		ed.inputBuffer = ""
		if action != nil {
			action(value)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
}

func (ed *Editor) handleSelectKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyUp:
		if ed.listSelected > 0 {
			ed.listSelected--
		}
	case tcell.KeyDown:
		if ed.listSelected < len(ed.listItems)-1 {
			ed.listSelected++
		}
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		if ed.listAction != nil && ed.listSelected < len(ed.listItems) {
			ed.listAction(ed.listSelected)
		}
	}
}

func (ed *Editor) handleResultsKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyEnter:
		ed.mode = ModeCanvas
		ed.resultsScroll = 0
	case tcell.KeyUp:
		if ed.resultsScroll > 0 {
			ed.resultsScroll--
		}
	case tcell.KeyDown:
		if ed.resultsScroll < len(ed.resultsLines)-1 {
			ed.resultsScroll++
		}
	case tcell.KeyRune:
		if ev.Rune() == 'q' {
			ed.mode = ModeCanvas
			ed.resultsScroll = 0
		}
	}
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	if ed.mode != ModeCanvas || ev.Buttons()&tcell.Button1 == 0 {
		return
	}
	w, h := ed.screen.Size()
	x, y := ev.Position()
	if x >= w-ed.sidebarWidth || y >= h-2 {
		return
	}
	ed.cursorX, ed.cursorY = x+ed.offsetX, y+ed.offsetY
	ed.selected = ed.stateAtCursor()
}

func (ed *Editor) pan(dx, dy int) {
	ed.offsetX = max(0, ed.offsetX+dx)
	ed.offsetY = max(0, ed.offsetY+dy)
}

// prompt opens the input box.
func (ed *Editor) prompt(label, initial string, action func(string)) {
	ed.inputPrompt = label
	ed.inputBuffer = initial
	ed.inputAction = action
	ed.mode = ModeInput
}

// choose opens the list selector.
func (ed *Editor) choose(title string, items []string, action func(int)) {
	ed.listTitle = title
	ed.listItems = items
	ed.listSelected = 0
	ed.listAction = action
	ed.mode = ModeSelect
}

// showResults opens the results overlay.
func (ed *Editor) showResults(title string, lines []string) {
	ed.resultsTitle = title
	ed.resultsLines = lines
	ed.resultsScroll = 0
	ed.mode = ModeResults
}

func (ed *Editor) toggleType() {
	if ed.typ == fsm.TypeDFA {
		ed.typ = fsm.TypeNFA
	} else {
		ed.typ = fsm.TypeDFA
	}
	ed.updateMenuItems()
	ed.showMessage(fmt.Sprintf("Type: %s", strings.ToUpper(string(ed.typ))), MsgInfo)
}

// afterEdit drops a selected state that no longer exists.
func (ed *Editor) afterEdit() {
	if ed.selected != diagram.NoState {
		if _, ok := ed.bench.State(ed.selected); !ok {
			ed.selected = diagram.NoState
		}
	}
}

func (ed *Editor) requireSelection() bool {
	if ed.selected == diagram.NoState {
		ed.showMessage("Select a state first (Tab to cycle)", MsgInfo)
		return false
	}
	return true
}

// stateAtCursor returns the state drawn under the cursor, or NoState.
func (ed *Editor) stateAtCursor() diagram.StateID {
	for _, st := range ed.bench.States() {
		x, y := cellOf(st.X, st.Y)
		w := len([]rune(stateLabel(st)))
		if ed.cursorY == y && ed.cursorX >= x && ed.cursorX < x+w {
			return st.ID
		}
	}
	return diagram.NoState
}

func cellOf(x, y float64) (int, int) {
	return int(x / pxPerCol), int(y / pxPerRow)
}

func (ed *Editor) addStateAtCursor() {
	ed.try(func() error {
		st, err := ed.bench.AddState(float64(ed.cursorX)*pxPerCol, float64(ed.cursorY)*pxPerRow)
		if err == nil {
			ed.selected = st.ID
		}
		return err
	})
}

func (ed *Editor) deleteSelected() {
	if !ed.bench.Selection().Empty() {
		ed.try(func() error {
			_, err := ed.bench.DeleteSelection()
			return err
		})
		return
	}
	if !ed.requireSelection() {
		return
	}
	ed.try(func() error { return ed.bench.DeleteState(ed.selected) })
}

func (ed *Editor) cycleSelection() {
	states := ed.bench.States()
	if len(states) == 0 {
		return
	}
	next := 0
	for i, st := range states {
		if st.ID == ed.selected {
			next = (i + 1) % len(states)
			break
		}
	}
	ed.selected = states[next].ID
	ed.cursorX, ed.cursorY = cellOf(states[next].X, states[next].Y)
}

func (ed *Editor) startAddTransition() {
	if !ed.requireSelection() {
		return
	}
	states := ed.bench.States()
	items := make([]string, len(states))
	for i, st := range states {
		items[i] = st.Label
	}
	from := ed.selected
	ed.choose("Transition to", items, func(i int) {
		to := states[i].ID
		ed.prompt("Symbols: ", "a", func(s string) {
			ed.try(func() error {
				_, err := ed.bench.AddTransition(from, to, parseSymbols(s))
				return err
			})
		})
	})
}

// chooseTransition lists the selected state's outgoing transitions.
func (ed *Editor) chooseTransition(title string, action func(diagram.TransitionID)) {
	if !ed.requireSelection() {
		return
	}
	var ids []diagram.TransitionID
	var items []string
	for _, t := range ed.bench.Transitions() {
		if t.From != ed.selected {
			continue
		}
		ids = append(ids, t.ID)
		items = append(items, ed.transitionLabel(t))
	}
	if len(ids) == 0 {
		ed.showMessage("No outgoing transitions", MsgInfo)
		return
	}
	ed.choose(title, items, func(i int) { action(ids[i]) })
}

func (ed *Editor) promptEditTransition(id diagram.TransitionID) {
	t, ok := ed.bench.Transition(id)
	if !ok {
		return
	}
	ed.prompt("Symbols: ", strings.Join(t.Symbols, ","), func(s string) {
		ed.try(func() error { return ed.bench.EditTransition(id, parseSymbols(s)) })
	})
}

func (ed *Editor) promptRename() {
	st, _ := ed.bench.State(ed.selected)
	id := st.ID
	ed.prompt("Label: ", st.Label, func(s string) {
		ed.try(func() error { return ed.bench.RenameState(id, s) })
	})
}

func (ed *Editor) startMoveMode() {
	st, ok := ed.bench.State(ed.selected)
	if !ok {
		return
	}
	if ed.bench.Busy() {
		ed.try(func() error { return workbench.ErrBusy })
		return
	}
	ed.moveOrigX, ed.moveOrigY = st.X, st.Y
	ed.moveX, ed.moveY = cellOf(st.X, st.Y)
	ed.mode = ModeMove
	ed.showMessage("Move: arrows, Enter=confirm, Esc=cancel", MsgInfo)
}

func (ed *Editor) handleMoveKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		ed.showMessage("Move cancelled", MsgInfo)
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		ed.try(func() error {
			return ed.bench.MoveState(ed.selected, float64(ed.moveX)*pxPerCol, float64(ed.moveY)*pxPerRow)
		})
		ed.cursorX, ed.cursorY = ed.moveX, ed.moveY
	case tcell.KeyUp:
		if ed.moveY > 0 {
			ed.moveY--
		}
	case tcell.KeyDown:
		ed.moveY++
	case tcell.KeyLeft:
		if ed.moveX > 0 {
			ed.moveX--
		}
	case tcell.KeyRight:
		ed.moveX++
	}
}

// parseSymbols splits a comma-separated symbol list. Blank entries are
// dropped; "eps" and "epsilon" stand for ε.
func parseSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "":
			continue
		case "eps", "epsilon":
			part = diagram.Epsilon
		}
		out = append(out, part)
	}
	return out
}

func (ed *Editor) transitionLabel(t diagram.Transition) string {
	from, to := "?", "?"
	if st, ok := ed.bench.State(t.From); ok {
		from = st.Label
	}
	if st, ok := ed.bench.State(t.To); ok {
		to = st.Label
	}
	return fmt.Sprintf("%s --%s--> %s", from, strings.Join(t.Symbols, ","), to)
}

func (ed *Editor) showAnalysis() {
	warnings := fsm.Analyse(ed.bench.Snapshot())
	if len(warnings) == 0 {
		ed.showMessage(fmt.Sprintf("No problems found (%s detected)", fsm.Detect(ed.bench.Snapshot())), MsgInfo)
		return
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.Message
	}
	ed.showResults(fmt.Sprintf("Analysis (%s detected)", fsm.Detect(ed.bench.Snapshot())), lines)
}

func (ed *Editor) showHistory() {
	entries := ed.bench.History()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s  %s", e.Timestamp.Format("15:04:05"), e.Action)
	}
	ed.showResults("History", lines)
}

func (ed *Editor) showHelp() {
	ed.showResults("Help", []string{
		"Arrows      move cursor (Shift: pan)",
		"Enter       add state at cursor",
		"Tab         select next state",
		"Space       toggle state in multi-selection",
		"Ctrl+A      select all",
		"Del         delete selection or selected state",
		"t / e / x   add / edit / delete transition",
		"s / S       set / clear start state",
		"a / A       toggle accept / clear accept on selection",
		"n           rename state",
		"g           move state",
		"y           toggle DFA / NFA",
		"r           run a string step by step",
		"b           batch-test strings from a file",
		"l           analyse diagram",
		"h           history",
		"Ctrl+Z/Y    undo / redo",
		"Ctrl+S/O    save / open",
		"Esc         menu (or stop animation)",
		"Ctrl+Q      quit",
	})
}
