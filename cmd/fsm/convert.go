package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/fsmfile"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "convert <diagram>",
		Short: "Convert between JSON and YAML",
		Long: `convert writes the diagram in canonical form: every state carries its
id and position, and transitions use from/to. The output format comes
from --format, else the --output extension, else JSON.`,
		Example: `  fsm convert diagram.json -o diagram.yaml
  fsm convert template:epsilonNFA --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			f, err := outputFormat(format, output)
			if err != nil {
				return err
			}
			data, err := fsmfile.Marshal(fsmfile.Export(d.snap, d.structure.Title()), f)
			if err != nil {
				return err
			}
			if f == fsmfile.FormatJSON {
				data = append(data, '\n')
			}
			if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json or yaml")
	return cmd
}

func outputFormat(format, output string) (fsmfile.Format, error) {
	switch {
	case format != "":
		return fsmfile.ParseFormat(format)
	case output != "" && output != "-":
		return fsmfile.FormatFromPath(output)
	}
	return fsmfile.FormatJSON, nil
}

func newDotCmd(a *app) *cobra.Command {
	var (
		output string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "dot <diagram>",
		Short: "Generate Graphviz DOT output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if title == "" {
				title = d.structure.Title()
			}
			return writeOutput(cmd.OutOrStdout(), output, []byte(fsmfile.GenerateDOT(d.snap, title)))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&title, "title", "", "Graph title (default: diagram title)")
	return cmd
}

func newDeterminizeCmd(a *app) *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:     "determinize <diagram>",
		Aliases: []string{"dfa"},
		Short:   "Convert an NFA to an equivalent DFA",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			dfa, err := fsm.Determinize(d.snap)
			if err != nil {
				return err
			}
			a.logger.Debug("determinized", "source", d.source, "states", len(d.snap.States), "dfa_states", len(dfa.States))

			f, err := outputFormat(format, output)
			if err != nil {
				return err
			}
			title := d.structure.Title()
			if title != "" {
				title = "DFA: " + title
			}
			data, err := fsmfile.Marshal(fsmfile.Export(dfa, title), f)
			if err != nil {
				return err
			}
			if f == fsmfile.FormatJSON {
				data = append(data, '\n')
			}
			return writeOutput(cmd.OutOrStdout(), output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json or yaml")
	return cmd
}
