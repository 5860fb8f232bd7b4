package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ha1tch/fsmlab/pkg/batch"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		inputFile string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "batch <diagram> [strings...]",
		Short: "Evaluate many strings, one per line",
		Long: `batch evaluates the strings given as arguments and those read from
--input, one per line. Blank lines are skipped and each line is trimmed.
A string that fails (for example on an unknown symbol) is reported and
the batch goes on.`,
		Example: `  fsm batch template:binaryMod3 0 11 110 111
  fsm batch diagram.json -i inputs.txt --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			typ, err := a.automatonType(d.suggestedType(), d)
			if err != nil {
				return err
			}

			inputs := append([]string(nil), args[1:]...)
			if inputFile != "" {
				text, err := readInputs(inputFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				inputs = append(inputs, batch.ParseInputs(text)...)
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no input strings: pass them as arguments or with --input")
			}

			runner := batch.New(batch.WithLogger(a.logger))
			results, err := runner.Run(cmd.Context(), d.snap, inputs, typ, progressTo(cmd.ErrOrStderr()))
			if err != nil && len(results) == 0 {
				return err
			}

			out := cmd.OutOrStdout()
			summary := batch.Summarize(results)
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(map[string]any{"type": typ, "results": results, "summary": summary}); encErr != nil {
					return encErr
				}
				return err
			}

			pal := newPalette(out)
			for _, r := range results {
				input := r.Input
				if input == "" {
					input = "ε"
				}
				switch {
				case r.Err != "":
					fmt.Fprintf(out, "%-20s %s %s\n", input, pal.warn("ERROR"), r.Err)
				default:
					fmt.Fprintf(out, "%-20s %s\n", input, pal.verdict(r.Accepted))
				}
			}
			fmt.Fprintf(out, "\n%d strings: %d accepted, %d rejected, %d errors (%s)\n",
				summary.Total, summary.Accepted, summary.Rejected, summary.Errors, typ)
			return err
		},
	}
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", `File with one string per line ("-" for stdin)`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func readInputs(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// progressTo reports progress on w when it is a terminal.
func progressTo(w io.Writer) batch.ProgressFunc {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return func(p batch.Progress) {
		fmt.Fprintf(f, "\r[%d/%d] %s\x1b[K", p.Index, p.Total, p.Input)
		if p.Index == p.Total {
			fmt.Fprint(f, "\r\x1b[K")
		}
	}
}
