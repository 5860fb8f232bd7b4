package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsmlab/pkg/diagram"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <diagram>",
		Short: "Show diagram information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			auto := fsm.Compile(d.snap)

			if t := d.structure.Title(); t != "" {
				fmt.Fprintf(out, "Title:       %s\n", t)
			}
			fmt.Fprintf(out, "Type:        %s (detected)\n", fsm.Detect(d.snap))
			if d.template != nil {
				fmt.Fprintf(out, "Suggested:   %s\n", d.template.Type)
			}
			fmt.Fprintf(out, "States:      %d\n", len(d.snap.States))
			fmt.Fprintf(out, "Transitions: %d\n", len(d.snap.Transitions))
			if start, ok := auto.Start(); ok {
				fmt.Fprintf(out, "Start:       %s\n", auto.Label(start))
			} else {
				fmt.Fprintf(out, "Start:       (none)\n")
			}
			accepting := make([]string, 0, len(d.snap.Accept))
			for _, id := range d.snap.Accept {
				accepting = append(accepting, auto.Label(id))
			}
			fmt.Fprintf(out, "Accepting:   %s\n", strings.Join(accepting, ", "))
			fmt.Fprintf(out, "Alphabet:    %s\n", strings.Join(diagram.Alphabet(d.snap.Transitions), ", "))
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <diagram>",
		Short: "Check a diagram and report structural warnings",
		Long: `validate reads a diagram, checks that every transition references an
existing state, and lists warnings such as unreachable or dead states.
With --strict, any warning fails the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pal := newPalette(out)

			warnings := fsm.Analyse(d.snap)
			for _, w := range warnings {
				fmt.Fprintf(out, "%s %s\n", pal.warn("warning:"), w.Message)
			}
			if d.snap.Start == diagram.NoState {
				fmt.Fprintf(out, "%s no start state\n", pal.warn("warning:"))
				if strict {
					return diagram.ErrNoStartState
				}
			}
			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d warnings", len(warnings))
			}

			fmt.Fprintf(out, "%s: valid %s with %d states, %d transitions\n",
				d.source, fsm.Detect(d.snap), len(d.snap.States), len(d.snap.Transitions))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on warnings")
	return cmd
}
