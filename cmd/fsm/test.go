package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsmlab/pkg/fsm"
)

func newTestCmd(a *app) *cobra.Command {
	var accept, reject []string
	cmd := &cobra.Command{
		Use:   "test <diagram>",
		Short: "Check that a diagram accepts and rejects the expected strings",
		Long: `test evaluates each --accept string expecting acceptance and each
--reject string expecting rejection. For a template with neither flag, the
template's own examples are used.`,
		Example: `  fsm test template:contains101
  fsm test diagram.json --accept ab,aab --reject ba,`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("accept") && !cmd.Flags().Changed("reject") && d.template != nil {
				accept, reject = d.template.Accept, d.template.Reject
			}
			if len(accept) == 0 && len(reject) == 0 {
				return errors.New("nothing to test: give --accept or --reject")
			}
			typ, err := a.automatonType(d.suggestedType(), d)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pal := newPalette(out)
			auto := fsm.Compile(d.snap)
			failed := 0
			check := func(input string, want bool) {
				got, err := fsm.Accepts(auto, input, typ)
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(out, "%s %q: %v\n", pal.reject("FAIL"), input, err)
				case got != want:
					failed++
					fmt.Fprintf(out, "%s %q: expected %s, got %s\n", pal.reject("FAIL"), input, pal.verdict(want), pal.verdict(got))
				default:
					fmt.Fprintf(out, "%s %q %s\n", pal.accept("ok  "), input, pal.faint(verdictWord(got)))
				}
			}
			for _, in := range accept {
				check(in, true)
			}
			for _, in := range reject {
				check(in, false)
			}

			total := len(accept) + len(reject)
			fmt.Fprintf(out, "%d/%d passed (%s)\n", total-failed, total, typ)
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, total)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&accept, "accept", nil, "Strings that must be accepted")
	cmd.Flags().StringSliceVar(&reject, "reject", nil, "Strings that must be rejected")
	return cmd
}

func verdictWord(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "rejected"
}
