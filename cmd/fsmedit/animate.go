package main

import (
	"errors"

	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

func (ed *Editor) promptRun() {
	if ed.anim != nil {
		ed.showMessage("Animation in progress (Esc to stop)", MsgWarning)
		return
	}
	ed.prompt("Input string: ", "", ed.startAnimation)
}

// startAnimation begins a paced run. The ticker steps it once per
// configured delay.
func (ed *Editor) startAnimation(input string) {
	anim, err := ed.bench.StartAnimation(input, ed.typ)
	if err != nil {
		ed.messageType = MsgError
		return
	}
	ed.anim = anim
	ed.animNext = ed.now().Add(ed.config.AnimationDelay)
	ed.setHighlight(anim.Runner().CurrentStates())
	if anim.Done() {
		ed.finishAnimation()
	}
}

func (ed *Editor) stepAnimation() {
	if ed.anim == nil {
		return
	}
	_, err := ed.anim.Step()
	if err != nil && !errors.Is(err, fsm.ErrFinished) {
		ed.messageType = MsgError
	}
	ed.setHighlight(ed.anim.Runner().CurrentStates())
	ed.animNext = ed.now().Add(ed.config.AnimationDelay)
	if ed.anim.Done() {
		ed.finishAnimation()
	}
}

// finishAnimation releases the workbench and leaves the final states
// highlighted until the next key.
func (ed *Editor) finishAnimation() {
	if ed.anim.Runner().Outcome() != fsm.Accepted && ed.messageType != MsgError {
		ed.messageType = MsgWarning
	}
	ed.anim.Close()
	ed.anim = nil
}

func (ed *Editor) stopAnimation(msg string) {
	if ed.anim == nil {
		return
	}
	ed.anim.Close()
	ed.anim = nil
	ed.highlight = nil
	ed.showMessage(msg, MsgInfo)
}

func (ed *Editor) setHighlight(ids []diagram.StateID) {
	ed.highlight = make(map[diagram.StateID]bool, len(ids))
	for _, id := range ids {
		ed.highlight[id] = true
	}
}
