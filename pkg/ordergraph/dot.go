// Package ordergraph renders the dependency graph between active
// manipulators, to let operators inspect why the scheduler orders a run the
// way it does (and spot cycles before they fail a build).
package ordergraph

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-graphviz"

	"github.com/packsmith/packsmith/pkg/manip"
)

// ToDOT converts the manipulator set to Graphviz DOT. Each manipulator is a
// node; an edge runs from every provider of a dependency kind to the
// manipulator declaring it. Dependency kinds no active manipulator provides
// are drawn as dashed satisfied-externally nodes.
func ToDOT(manipulators []manip.Manipulator) string {
	var buf bytes.Buffer
	buf.WriteString("digraph manipulators {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, m := range manipulators {
		label := string(m.Kind())
		if extra := extraProvides(m); len(extra) > 0 {
			label += "\nprovides:"
			for _, kind := range extra {
				label += "\n  " + string(kind)
			}
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", m.Kind(), label)
	}

	buf.WriteString("\n")
	var external []manip.Kind
	for _, m := range manipulators {
		for _, dep := range m.Dependencies() {
			providers := providersOf(manipulators, dep)
			if len(providers) == 0 {
				if !slices.Contains(external, dep) {
					external = append(external, dep)
				}
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", dep, m.Kind())
				continue
			}
			for _, p := range providers {
				fmt.Fprintf(&buf, "  %q -> %q;\n", p.Kind(), m.Kind())
			}
		}
	}

	if len(external) > 0 {
		buf.WriteString("\n")
		for _, dep := range external {
			fmt.Fprintf(&buf, "  %q [style=\"rounded,filled,dashed\", fillcolor=lightgrey, label=%q];\n",
				dep, string(dep)+"\n(satisfied externally)")
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func extraProvides(m manip.Manipulator) []manip.Kind {
	var extra []manip.Kind
	for _, kind := range m.Provides() {
		if kind != m.Kind() {
			extra = append(extra, kind)
		}
	}
	return extra
}

func providersOf(manipulators []manip.Manipulator, kind manip.Kind) []manip.Manipulator {
	var providers []manip.Manipulator
	for _, m := range manipulators {
		if m.Kind() == kind || slices.Contains(m.Provides(), kind) {
			providers = append(providers, m)
		}
	}
	return providers
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
