package npm

import (
	"context"

	"github.com/packsmith/packsmith/pkg/manip"
)

// DependencyManipulator applies user-supplied dependency and devDependency
// version overrides. Only dependencies already declared in a manifest are
// overridden; override entries for undeclared packages are ignored.
type DependencyManipulator struct {
	overrides    map[string]string
	devOverrides map[string]string
}

// NewDependencyManipulator creates the dependency manipulator from override
// maps (dependency name to replacement version). Either map may be nil.
func NewDependencyManipulator(overrides, devOverrides map[string]string) *DependencyManipulator {
	return &DependencyManipulator{overrides: overrides, devOverrides: devOverrides}
}

// Kind returns the manipulator kind.
func (m *DependencyManipulator) Kind() manip.Kind { return KindDependencyUpdate }

// Provides returns the manipulator's capability set.
func (m *DependencyManipulator) Provides() []manip.Kind { return []manip.Kind{KindDependencyUpdate} }

// Dependencies returns no prerequisites; dependency overrides commute with
// the other manipulators.
func (m *DependencyManipulator) Dependencies() []manip.Kind { return nil }

// ApplyChanges applies the override maps to every project, reporting each
// project with at least one applied override.
func (m *DependencyManipulator) ApplyChanges(ctx context.Context, projects []manip.Project) ([]manip.Project, error) {
	var changed []manip.Project
	for _, project := range projects {
		applied, err := m.applyTo(project)
		if err != nil {
			return nil, err
		}
		if applied {
			changed = append(changed, project)
		}
	}
	return changed, nil
}

func (m *DependencyManipulator) applyTo(project manip.Project) (bool, error) {
	applied := false

	declared, err := project.Dependencies()
	if err != nil {
		return false, err
	}
	for name, version := range m.overrides {
		if current, ok := declared[name]; ok && current != version {
			if err := project.SetDependencyVersion(name, version, false); err != nil {
				return false, err
			}
			applied = true
		}
	}

	declaredDev, err := project.DevDependencies()
	if err != nil {
		return false, err
	}
	for name, version := range m.devOverrides {
		if current, ok := declaredDev[name]; ok && current != version {
			if err := project.SetDependencyVersion(name, version, true); err != nil {
				return false, err
			}
			applied = true
		}
	}

	return applied, nil
}

var _ manip.Manipulator = (*DependencyManipulator)(nil)
