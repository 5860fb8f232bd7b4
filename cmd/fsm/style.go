package main

import (
	"io"

	"github.com/muesli/termenv"
)

// palette colours verdicts when the output is a terminal and prints plain
// text otherwise.
type palette struct {
	out *termenv.Output
}

func newPalette(w io.Writer) palette {
	return palette{out: termenv.NewOutput(w)}
}

func (p palette) accept(s string) string {
	return p.out.String(s).Foreground(p.out.Color("2")).Bold().String()
}

func (p palette) reject(s string) string {
	return p.out.String(s).Foreground(p.out.Color("1")).Bold().String()
}

func (p palette) warn(s string) string {
	return p.out.String(s).Foreground(p.out.Color("3")).String()
}

func (p palette) faint(s string) string {
	return p.out.String(s).Faint().String()
}

func (p palette) verdict(accepted bool) string {
	if accepted {
		return p.accept("ACCEPTED")
	}
	return p.reject("REJECTED")
}
