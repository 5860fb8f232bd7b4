package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleMenu       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleMenuSel    = tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite)
	styleState      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStateSel   = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleStateMulti = tcell.StyleDefault.Background(tcell.ColorOlive).Foreground(tcell.ColorBlack)
	styleStateInit  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStateAcc   = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleActive     = tcell.StyleDefault.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite).Bold(true)
	styleTrans      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor     = tcell.StyleDefault.Background(tcell.ColorDarkGray)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDragging   = tcell.StyleDefault.Background(tcell.ColorPurple).Foreground(tcell.ColorWhite)
)

// Message flash pattern: normal, inverted, normal, inverted, then normal
// from flashPeriod on.
const (
	flashPhase  = 125
	flashPeriod = 4 * flashPhase
)

// flashInverted reports whether a flashing message is drawn inverted
// elapsed milliseconds after it was shown.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashPeriod {
		return false
	}
	phase := elapsed / flashPhase
	return phase == 1 || phase == 3
}

// flashes reports whether messages of type t flash.
func flashes(t MessageType) bool {
	return t != MsgInfo
}

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	ed.drawCanvas(w, h)
	ed.drawSidebar(w, h)

	switch ed.mode {
	case ModeMenu:
		ed.drawMenuOverlay(w, h)
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModeSelect:
		ed.drawList(w, h)
	case ModeResults:
		ed.drawResults(w, h)
	}

	ed.drawStatusBar(w, h)
}

func (ed *Editor) drawMenuOverlay(w, h int) {
	menuWidth := 40
	menuHeight := len(ed.menuItems) + 4
	startX := max(0, (w-menuWidth)/2)
	startY := max(0, (h-menuHeight)/2)

	ed.drawTitledBox(startX, startY, menuWidth, menuHeight, "fsmedit")
	for i, item := range ed.menuItems {
		style := styleMenu
		if i == ed.menuSelected {
			style = styleMenuSel
		}
		ed.drawString(startX+1, startY+2+i, fmt.Sprintf(" %-*s", menuWidth-3, item), style)
	}
}

// stateLabel renders a state as it appears on the canvas.
func stateLabel(st diagram.State) string {
	prefix := "○"
	if st.IsStart {
		prefix = "→"
	}
	suffix := ""
	if st.IsAccept {
		suffix = "*"
	}
	return prefix + "[" + st.Label + "]" + suffix
}

func (ed *Editor) drawCanvas(w, h int) {
	canvasW := w - ed.sidebarWidth
	canvasH := h - 2 // status and help bars

	for y := 0; y < canvasH; y++ {
		ed.screen.SetContent(canvasW, y, '│', nil, styleBorder)
	}

	states := ed.bench.States()
	centres := make(map[diagram.StateID][2]int, len(states))
	for _, st := range states {
		x, y := ed.stateCell(st)
		centres[st.ID] = [2]int{x + len([]rune(stateLabel(st)))/2, y}
	}
	for _, t := range ed.bench.Transitions() {
		ed.drawTransition(t, centres, canvasW, canvasH)
	}

	for _, st := range states {
		x, y := ed.stateCell(st)
		x -= ed.offsetX
		y -= ed.offsetY
		if x < 0 || x >= canvasW || y < 0 || y >= canvasH {
			continue
		}

		style := styleState
		switch {
		case ed.highlight[st.ID]:
			style = styleActive
		case ed.mode == ModeMove && st.ID == ed.selected:
			style = styleDragging
		case st.ID == ed.selected:
			style = styleStateSel
		case ed.bench.IsSelected(st.ID):
			style = styleStateMulti
		case st.IsStart:
			style = styleStateInit
		case st.IsAccept:
			style = styleStateAcc
		}
		ed.drawClipped(x, y, stateLabel(st), canvasW, style)
	}

	cx := ed.cursorX - ed.offsetX
	cy := ed.cursorY - ed.offsetY
	if ed.mode == ModeCanvas && cx >= 0 && cx < canvasW && cy >= 0 && cy < canvasH {
		r, _, _, _ := ed.screen.GetContent(cx, cy)
		ed.screen.SetContent(cx, cy, r, nil, styleCursor)
	}
}

// stateCell is the state's canvas cell; a state being moved is drawn at
// its pending position.
func (ed *Editor) stateCell(st diagram.State) (int, int) {
	if ed.mode == ModeMove && st.ID == ed.selected {
		return ed.moveX, ed.moveY
	}
	return cellOf(st.X, st.Y)
}

// drawTransition draws an L-shaped arc: along the source row, then along
// the target column. Curved transitions use the row below so that
// opposite arcs between two states stay apart.
func (ed *Editor) drawTransition(t diagram.Transition, centres map[diagram.StateID][2]int, canvasW, canvasH int) {
	from, ok1 := centres[t.From]
	to, ok2 := centres[t.To]
	if !ok1 || !ok2 {
		return
	}
	label := strings.Join(t.Symbols, ",")
	fx, fy := from[0]-ed.offsetX, from[1]-ed.offsetY
	tx, ty := to[0]-ed.offsetX, to[1]-ed.offsetY

	if t.From == t.To {
		ed.drawLabel(fx-1, fy-1, "↺"+label, canvasW, canvasH, styleTrans)
		return
	}

	row := fy
	if t.Curved && t.From > t.To {
		row = fy + 1
	}
	step := 1
	if tx < fx {
		step = -1
	}
	for x := fx; x != tx; x += step {
		ed.setCell(x, row, '─', canvasW, canvasH, styleTrans)
	}
	vstep := 1
	if ty < row {
		vstep = -1
	}
	for y := row; y != ty; y += vstep {
		ed.setCell(tx, y, '│', canvasW, canvasH, styleTrans)
	}
	arrow := '▼'
	if vstep < 0 {
		arrow = '▲'
	}
	if ty == row {
		arrow = '▶'
		if step < 0 {
			arrow = '◀'
		}
		ed.setCell(tx-step, row, arrow, canvasW, canvasH, styleTrans)
	} else {
		ed.setCell(tx, ty-vstep, arrow, canvasW, canvasH, styleTrans)
	}
	ed.drawLabel((fx+tx)/2, row-1, label, canvasW, canvasH, styleTrans)
}

func (ed *Editor) setCell(x, y int, r rune, canvasW, canvasH int, style tcell.Style) {
	if x >= 0 && x < canvasW && y >= 0 && y < canvasH {
		ed.screen.SetContent(x, y, r, nil, style)
	}
}

func (ed *Editor) drawLabel(x, y int, label string, canvasW, canvasH int, style tcell.Style) {
	if y < 0 || y >= canvasH {
		return
	}
	ed.drawClipped(x, y, label, canvasW, style)
}

func (ed *Editor) drawClipped(x, y int, s string, maxX int, style tcell.Style) {
	i := 0
	for _, r := range s {
		if x+i >= 0 && x+i < maxX {
			ed.screen.SetContent(x+i, y, r, nil, style)
		}
		i++
	}
}

func (ed *Editor) drawSidebar(w, h int) {
	x := w - ed.sidebarWidth + 2
	width := ed.sidebarWidth - 4
	y := 0
	line := func(s string, style tcell.Style) bool {
		if y >= h-3 {
			return false
		}
		ed.drawString(x, y, truncate(s, width), style)
		y++
		return true
	}

	title := ed.bench.Title()
	if title == "" {
		title = "Untitled"
	}
	line(title, styleSidebarH)
	line(fmt.Sprintf("Type: %s", strings.ToUpper(string(ed.typ))), styleSidebar)
	y++

	if ed.anim != nil {
		r := ed.anim.Runner()
		line("Running:", styleSidebarH)
		line(fmt.Sprintf("  at %s", r.CurrentState()), styleSidebar)
		line(fmt.Sprintf("  remaining %q", r.Remaining()), styleSidebar)
		y++
	}

	states := ed.bench.States()
	line(fmt.Sprintf("States (%d):", len(states)), styleSidebarH)
	for _, st := range states {
		style := styleSidebar
		if st.ID == ed.selected {
			style = styleMenuSel
		}
		if !line("  "+stateLabel(st), style) {
			return
		}
	}
	y++

	snap := ed.bench.Snapshot()
	line("Alphabet:", styleSidebarH)
	line("  "+strings.Join(diagram.Alphabet(snap.Transitions), " "), styleSidebar)
	y++

	line("Transitions:", styleSidebarH)
	for _, t := range snap.Transitions {
		if !line("  "+ed.transitionLabel(t), styleSidebar) {
			ed.drawString(x, y, "  ...", styleSidebar)
			return
		}
	}
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[New]"
	if ed.filename != "" {
		fileInfo = filepath.Base(ed.filename)
	}
	if ed.modified {
		fileInfo += " *"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	mode := ed.modeString()
	ed.drawString(w/2-len(mode)/2, y, mode, styleStatus)

	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgWarning:
			style = styleMsgWarning
		case MsgSuccess:
			style = styleMsgSuccess
		}
		if flashes(ed.messageType) && flashInverted(ed.now().UnixMilli()-ed.messageFlashStart) {
			style = style.Reverse(true)
		}
		msg := truncate(ed.message, max(0, w/2-2))
		ed.drawString(w-len([]rune(msg))-2, y, msg, style)
	}

	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, truncate(ed.helpString(), max(0, w-2)), styleHelp)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := min(60, w)
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	text := truncate(ed.inputPrompt+ed.inputBuffer+"_", max(0, boxW-4))
	ed.drawString(boxX+2, boxY+1, text, styleInput)
}

func (ed *Editor) drawList(w, h int) {
	boxW := min(50, w)
	boxH := min(len(ed.listItems)+4, h-2)
	boxX := (w - boxW) / 2
	boxY := max(0, (h-boxH)/2)

	ed.drawTitledBox(boxX, boxY, boxW, boxH, ed.listTitle)
	visible := boxH - 4
	first := max(0, ed.listSelected-visible+1)
	for i := first; i < len(ed.listItems) && i-first < visible; i++ {
		style := styleMenu
		if i == ed.listSelected {
			style = styleMenuSel
		}
		ed.drawString(boxX+1, boxY+2+i-first, fmt.Sprintf(" %-*s", boxW-3, truncate(ed.listItems[i], boxW-4)), style)
	}
}

func (ed *Editor) drawResults(w, h int) {
	boxW := min(72, w)
	boxH := h - 4
	boxX := (w - boxW) / 2
	boxY := 1

	ed.drawTitledBox(boxX, boxY, boxW, boxH, ed.resultsTitle)
	for i := 0; i < boxH-3 && ed.resultsScroll+i < len(ed.resultsLines); i++ {
		ed.drawString(boxX+2, boxY+2+i, truncate(ed.resultsLines[ed.resultsScroll+i], boxW-4), styleMenu)
	}
}

// drawTitledBox draws a bordered box with optional title
func (ed *Editor) drawTitledBox(x, y, w, h int, title string) {
	ed.drawBox(x, y, w, h, styleDefault)
	if title != "" {
		title = truncate(title, max(0, w-4))
		titleX := x + (w-len([]rune(title))-2)/2
		ed.screen.SetContent(titleX, y, ' ', nil, styleBorder)
		ed.drawString(titleX+1, y, title, styleSidebarH)
		ed.screen.SetContent(titleX+1+len([]rune(title)), y, ' ', nil, styleBorder)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		ed.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

func (ed *Editor) modeString() string {
	if ed.anim != nil {
		return "RUNNING " + strings.ToUpper(string(ed.typ))
	}
	switch ed.mode {
	case ModeMenu:
		return "MENU"
	case ModeMove:
		return "MOVE"
	case ModeInput:
		return "INPUT"
	case ModeSelect:
		return "SELECT"
	case ModeResults:
		return "RESULTS"
	}
	return ""
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeMenu:
		return "↑↓:Select  Enter:Confirm  Esc:Canvas  q:Quit"
	case ModeCanvas:
		if ed.anim != nil {
			return "Esc:Stop animation"
		}
		return "Enter:Add State  Tab:Cycle  T:Transition  S:Start  A:Accept  R:Run  B:Batch  Del:Delete  ?:Help  Esc:Menu"
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	case ModeSelect:
		return "↑↓:Select  Enter:Confirm  Esc:Cancel"
	case ModeMove:
		return "Arrows:Move  Enter:Confirm  Esc:Cancel"
	case ModeResults:
		return "↑↓:Scroll  Esc:Close"
	}
	return "Ctrl+S:Save  Ctrl+Q:Quit"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
