package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/fsmfile"
)

func newTemplateCmd(a *app) *cobra.Command {
	var (
		format string
		seed   uint64
	)
	cmd := &cobra.Command{
		Use:     "template [name]",
		Aliases: []string{"templates"},
		Short:   "List the built-in templates or print one",
		Long: `List the built-in templates or print one.

The name "random" prints a freshly generated complete DFA over {a, b};
--seed makes it reproducible.`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				all, err := fsmfile.Templates()
				if err != nil {
					return err
				}
				for _, t := range all {
					fmt.Fprintf(out, "%-18s %-4s %s\n", t.Name, t.Type, t.Title)
				}
				fmt.Fprintf(out, "%-18s %-4s %s\n", fsmfile.RandomName, fsm.TypeDFA, "Random complete DFA over {a, b}")
				return nil
			}

			f, err := fsmfile.ParseFormat(format)
			if err != nil {
				return err
			}
			var structure fsmfile.Structure
			if args[0] == fsmfile.RandomName {
				if !cmd.Flags().Changed("seed") {
					seed = uint64(time.Now().UnixNano())
				}
				structure = fsmfile.RandomDFA(seed)
				a.logger.Debug("random diagram", "seed", seed)
			} else {
				t, err := fsmfile.LookupTemplate(args[0])
				if err != nil {
					return err
				}
				structure = t.Structure
			}
			snap, err := fsmfile.Build(structure)
			if err != nil {
				return err
			}
			data, err := fsmfile.Marshal(fsmfile.Export(snap, structure.Title()), f)
			if err != nil {
				return err
			}
			if f == fsmfile.FormatJSON {
				data = append(data, '\n')
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the random template")
	return cmd
}
