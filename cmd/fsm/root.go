package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsmlab/internal/config"
	"github.com/ha1tch/fsmlab/internal/logging"
	"github.com/ha1tch/fsmlab/pkg/fsm"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	typeFlag   string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

// automatonType picks the evaluation semantics: the --type flag, else the
// suggestion (a template's type), else detection from the diagram.
func (a *app) automatonType(suggested fsm.Type, d *loaded) (fsm.Type, error) {
	if a.typeFlag != "" {
		return fsm.ParseType(a.typeFlag)
	}
	if suggested != "" {
		return suggested, nil
	}
	return fsm.Detect(d.snap), nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fsm",
		Short: "Finite automaton toolkit",
		Long: `fsm evaluates DFA and NFA diagrams described in JSON or YAML.

A diagram argument is a file path (.json, .yaml, .yml) or template:<name>
for one of the built-in examples.`,
		Example: `  fsm test template:endsWithAB
  fsm run diagram.json aab
  fsm batch diagram.yaml -i inputs.txt
  fsm convert diagram.json -o diagram.yaml
  fsm dot template:binaryMod3 | dot -Tpng -o out.png`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.Path(), "Settings file")
	root.PersistentFlags().StringVarP(&a.typeFlag, "type", "t", "", "Automaton type: dfa or nfa (default: template type or detected)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from settings)")

	root.AddCommand(
		newRunCmd(a),
		newTestCmd(a),
		newBatchCmd(a),
		newValidateCmd(a),
		newInfoCmd(a),
		newConvertCmd(a),
		newDotCmd(a),
		newDeterminizeCmd(a),
		newTemplateCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.typeFlag != "" {
		if _, err := fsm.ParseType(a.typeFlag); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = logging.NewWriter(cmd.ErrOrStderr(), level)
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
