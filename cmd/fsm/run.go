package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsmlab/pkg/fsm"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <diagram> [input]",
		Short: "Evaluate a string, or step through strings interactively",
		Long: `With an input argument, run evaluates it and prints the trace.
Without one, run reads commands from stdin. A plain line is evaluated as
a string; "step <string>" starts a run that "next" advances one symbol at
a time.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			typ, err := a.automatonType(d.suggestedType(), d)
			if err != nil {
				return err
			}
			a.logger.Debug("diagram loaded", "source", d.source, "states", len(d.snap.States), "type", typ)

			s := &session{
				automaton: fsm.Compile(d.snap),
				typ:       typ,
				out:       cmd.OutOrStdout(),
				pal:       newPalette(cmd.OutOrStdout()),
			}
			if len(args) == 2 {
				return s.evaluate(args[1])
			}
			return s.repl(cmd.InOrStdin(), d.title())
		},
	}
	return cmd
}

// session is an interactive run over one automaton.
type session struct {
	automaton *fsm.Automaton
	typ       fsm.Type
	out       io.Writer
	pal       palette
	current   *fsm.Runner
}

func (s *session) evaluate(input string) error {
	r, err := fsm.NewRunner(s.automaton, s.typ, input)
	if err != nil {
		return err
	}
	_, err = r.Run()
	s.printTrace(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%q: %s (%s)\n", input, s.pal.verdict(r.Outcome() == fsm.Accepted), r.CurrentState())
	return nil
}

func (s *session) printTrace(r *fsm.Runner) {
	for i, step := range r.History() {
		fmt.Fprintf(s.out, "  %d: %s\n", i+1, r.FormatStep(step))
	}
}

func (s *session) repl(in io.Reader, title string) error {
	fmt.Fprintf(s.out, "FSM: %s (%s)\n", title, s.typ)
	fmt.Fprintf(s.out, "Alphabet: %s\n", strings.Join(s.automaton.Alphabet(), ", "))
	fmt.Fprintln(s.out, `Commands: <string>, step <string>, next, reset, status, history, inputs, type <dfa|nfa>, quit`)
	fmt.Fprintln(s.out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			s.help()
		case "type":
			typ, err := fsm.ParseType(arg)
			if err != nil {
				s.errorf("%v", err)
				continue
			}
			s.typ = typ
			s.current = nil
			fmt.Fprintf(s.out, "Type set to %s\n", typ)
		case "step":
			r, err := fsm.NewRunner(s.automaton, s.typ, unquote(arg))
			if err != nil {
				s.errorf("%v", err)
				continue
			}
			s.current = r
			fmt.Fprintln(s.out, r.Status())
		case "next", "n":
			s.next()
		case "reset":
			if s.current == nil {
				s.errorf("no run in progress; use step <string>")
				continue
			}
			s.current.Reset()
			fmt.Fprintln(s.out, "Reset to start state")
			fmt.Fprintln(s.out, s.current.Status())
		case "status":
			if s.current == nil {
				fmt.Fprintln(s.out, "No run in progress")
				continue
			}
			fmt.Fprintln(s.out, s.current.Status())
			fmt.Fprintf(s.out, "Remaining: %q\n", s.current.Remaining())
		case "history":
			if s.current == nil || len(s.current.History()) == 0 {
				fmt.Fprintln(s.out, "No history yet")
				continue
			}
			s.printTrace(s.current)
		case "inputs":
			if s.current == nil {
				fmt.Fprintf(s.out, "Alphabet: %v\n", s.automaton.Alphabet())
				continue
			}
			inputs := s.current.AvailableInputs()
			if len(inputs) == 0 {
				fmt.Fprintln(s.out, "No inputs available from current state")
			} else {
				fmt.Fprintf(s.out, "Available inputs: %v\n", inputs)
			}
		default:
			if err := s.evaluate(unquote(line)); err != nil {
				s.errorf("%v", err)
			}
		}
	}
}

func (s *session) next() {
	if s.current == nil {
		s.errorf("no run in progress; use step <string>")
		return
	}
	step, err := s.current.Step()
	switch {
	case errors.Is(err, fsm.ErrFinished):
		fmt.Fprintf(s.out, "Run finished: %s\n", s.pal.verdict(s.current.Outcome() == fsm.Accepted))
		return
	case err != nil:
		s.errorf("%v", err)
		return
	}
	fmt.Fprintln(s.out, s.current.FormatStep(step))
	if s.current.Done() {
		fmt.Fprintf(s.out, "%s (%s)\n", s.pal.verdict(s.current.Outcome() == fsm.Accepted), s.current.CurrentState())
	}
}

func (s *session) help() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  <string>       - Evaluate a whole string (\"\" for the empty string)")
	fmt.Fprintln(s.out, "  step <string>  - Start a step-by-step run")
	fmt.Fprintln(s.out, "  next           - Consume one symbol")
	fmt.Fprintln(s.out, "  reset          - Restart the current run")
	fmt.Fprintln(s.out, "  status         - Show current states")
	fmt.Fprintln(s.out, "  history        - Show the steps taken")
	fmt.Fprintln(s.out, "  inputs         - Show symbols with a transition from here")
	fmt.Fprintln(s.out, "  type <dfa|nfa> - Switch semantics")
	fmt.Fprintln(s.out, "  quit           - Exit")
}

func (s *session) errorf(format string, args ...any) {
	fmt.Fprintf(s.out, "%s %s\n", s.pal.warn("Error:"), fmt.Sprintf(format, args...))
}

// unquote lets the empty string be typed as "".
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
