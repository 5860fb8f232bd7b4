package fsmfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fsmlab/pkg/diagram"
)

// GenerateDOT converts a diagram to Graphviz DOT format. Nodes are named
// by id and labelled with the state label, so duplicate labels are safe.
func GenerateDOT(snap diagram.Snapshot, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph FSM {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	// Invisible start node
	if snap.Start != diagram.NoState {
		sb.WriteString("    __start [shape=none, label=\"\", width=0, height=0];\n")
		sb.WriteString(fmt.Sprintf("    __start -> %s;\n", nodeName(snap.Start)))
		sb.WriteString("\n")
	}

	for _, st := range snap.States {
		shape := "circle"
		if st.IsAccept {
			shape = "doublecircle"
		}
		sb.WriteString(fmt.Sprintf("    %s [shape=%s, label=\"%s\"];\n",
			nodeName(st.ID), shape, escapeDOT(st.Label)))
	}
	sb.WriteString("\n")

	// Group symbols by (from, to), keeping first-seen order.
	type edge struct{ from, to diagram.StateID }
	var order []edge
	labels := make(map[edge][]string)
	for _, t := range snap.Transitions {
		e := edge{t.From, t.To}
		if _, ok := labels[e]; !ok {
			order = append(order, e)
		}
		for _, sym := range t.Symbols {
			if diagram.IsEpsilon(sym) {
				sym = diagram.Epsilon
			}
			labels[e] = append(labels[e], sym)
		}
	}

	for _, e := range order {
		sb.WriteString(fmt.Sprintf("    %s -> %s [label=\"%s\"];\n",
			nodeName(e.from), nodeName(e.to), escapeDOT(strings.Join(labels[e], ", "))))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func nodeName(id diagram.StateID) string {
	return fmt.Sprintf("s%d", id)
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "<", "\\<")
	s = strings.ReplaceAll(s, ">", "\\>")
	return s
}
