package ordergraph

import (
	"strings"
	"testing"

	"github.com/packsmith/packsmith/pkg/manip"
	"github.com/packsmith/packsmith/pkg/npm"
)

func TestToDOT(t *testing.T) {
	pool := npm.NewVersionPool()
	manipulators := []manip.Manipulator{
		npm.NewVersionsCollector(nil, pool, nil),
		npm.NewVersionManipulator(&npm.SuffixGenerator{Suffix: "jboss", SuffixPadding: 5}, pool),
		npm.NewDependencyManipulator(nil, nil),
	}

	dot := ToDOT(manipulators)

	if !strings.HasPrefix(dot, "digraph manipulators {") {
		t.Errorf("DOT should open a digraph, got %q", dot[:40])
	}
	for _, node := range []string{"npm-registry-versions", "npm-package-version", "npm-dependency-override"} {
		if !strings.Contains(dot, `"`+node+`"`) {
			t.Errorf("DOT missing node %q", node)
		}
	}
	// The collector provides the capability the versioner depends on.
	if !strings.Contains(dot, `"npm-registry-versions" -> "npm-package-version"`) {
		t.Error("DOT missing provider edge from collector to versioner")
	}
	if strings.Contains(dot, "satisfied externally") {
		t.Error("all dependencies have providers, no external node expected")
	}
}

func TestToDOTExternalDependency(t *testing.T) {
	pool := npm.NewVersionPool()
	manipulators := []manip.Manipulator{
		// Versioner without a collector: its dependency has no provider.
		npm.NewVersionManipulator(&npm.SuffixGenerator{Suffix: "jboss"}, pool),
	}

	dot := ToDOT(manipulators)

	if !strings.Contains(dot, `"npm-available-versions" -> "npm-package-version" [style=dashed]`) {
		t.Error("DOT missing dashed edge for externally satisfied dependency")
	}
	if !strings.Contains(dot, "satisfied externally") {
		t.Error("DOT missing externally satisfied node annotation")
	}
}
