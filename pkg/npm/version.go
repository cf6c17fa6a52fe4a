package npm

import (
	"context"

	"github.com/packsmith/packsmith/pkg/manip"
)

// Manipulator kinds registered by this package. KindAvailableVersions is a
// capability kind: it names the "available versions are collected" concern
// rather than a concrete manipulator, so any provider satisfies it.
const (
	KindPackageVersion    manip.Kind = "npm-package-version"
	KindDependencyUpdate  manip.Kind = "npm-dependency-override"
	KindRegistryVersions  manip.Kind = "npm-registry-versions"
	KindAvailableVersions manip.Kind = "npm-available-versions"
)

// VersionManipulator rewrites each project's version to the next available
// build-qualified version. The already-published versions come from a
// shared VersionPool, filled by a manipulator providing
// KindAvailableVersions before this one runs.
type VersionManipulator struct {
	gen  *SuffixGenerator
	pool *VersionPool
}

// NewVersionManipulator creates the version manipulator. A nil pool means
// no published versions are known and every project gets increment 1.
func NewVersionManipulator(gen *SuffixGenerator, pool *VersionPool) *VersionManipulator {
	if pool == nil {
		pool = NewVersionPool()
	}
	return &VersionManipulator{gen: gen, pool: pool}
}

// Kind returns the manipulator kind.
func (m *VersionManipulator) Kind() manip.Kind { return KindPackageVersion }

// Provides returns the manipulator's capability set.
func (m *VersionManipulator) Provides() []manip.Kind { return []manip.Kind{KindPackageVersion} }

// Dependencies declares that the available-versions pool must be filled
// first.
func (m *VersionManipulator) Dependencies() []manip.Kind {
	return []manip.Kind{KindAvailableVersions}
}

// ApplyChanges computes and sets the new version of every project, reporting
// each project whose version actually changed.
func (m *VersionManipulator) ApplyChanges(ctx context.Context, projects []manip.Project) ([]manip.Project, error) {
	var changed []manip.Project
	for _, project := range projects {
		name, err := project.Name()
		if err != nil {
			return nil, err
		}
		current, err := project.Version()
		if err != nil {
			return nil, err
		}

		next, err := m.gen.NewVersion(current, m.pool.Versions(name))
		if err != nil {
			return nil, err
		}
		if next == current {
			continue
		}
		if err := project.SetVersion(next); err != nil {
			return nil, err
		}
		changed = append(changed, project)
	}
	return changed, nil
}

var _ manip.Manipulator = (*VersionManipulator)(nil)
