// Command fsmedit is a TUI editor for finite automaton diagrams.
package main

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsmlab/internal/config"
	"github.com/ha1tch/fsmlab/internal/logging"
)

func main() {
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()

	ed := NewEditor(screen, cfg, logging.NewNop())

	// A file or template:<name> on the command line opens straight into
	// the canvas.
	if len(os.Args) > 1 {
		if err := ed.open(os.Args[1]); err != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
		ed.mode = ModeCanvas
	}

	ed.run()
	screen.Fini()

	if ed.configDirty {
		if err := config.Save(cfgPath, ed.config); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: saving settings: %v\n", err)
		}
	}
}
