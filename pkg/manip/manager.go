package manip

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/packsmith/packsmith/pkg/errors"
	"github.com/packsmith/packsmith/pkg/observability"
)

// CycleError is returned when the scheduling fixed point stalls with
// manipulators still outstanding. Remaining names every manipulator kind
// that could not be scheduled.
type CycleError struct {
	Remaining []Kind
}

// Error returns a message listing the stuck manipulator kinds.
func (e *CycleError) Error() string {
	kinds := make([]string, len(e.Remaining))
	for i, k := range e.Remaining {
		kinds[i] = string(k)
	}
	slices.Sort(kinds)
	return fmt.Sprintf("dependency cycle detected, remaining manipulators: %s", strings.Join(kinds, ", "))
}

// Manager orchestrates manipulator execution order and drives persistence
// of changed projects. Execution is single-threaded and synchronous:
// scheduling rounds, manipulator invocation, and persistence all happen
// sequentially on the calling goroutine.
type Manager struct {
	logger *log.Logger
}

// NewManager creates a manager. Pass nil to discard log output.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{logger: logger}
}

// ScanAndApply runs every active manipulator of the session exactly once in
// dependency-respecting order, then persists each changed project exactly
// once. Persistence is never interleaved with mutation: Update is only
// called after all manipulators have finished.
//
// A manipulator error aborts the remaining schedule immediately and nothing
// is persisted. An Update error aborts the remaining persistence; projects
// already persisted are not rolled back.
func (m *Manager) ScanAndApply(ctx context.Context, session Session) error {
	changed, err := m.Apply(ctx, session.Projects(), session.ActiveManipulators())
	if err != nil {
		return err
	}
	return m.Persist(ctx, changed)
}

// Persist writes each project back to its manifest, in order. An Update
// error aborts the remaining persistence; projects already persisted are
// not rolled back.
func (m *Manager) Persist(ctx context.Context, changed []Project) error {
	for _, project := range changed {
		name, nameErr := project.Name()
		if nameErr != nil {
			name = "<unknown>"
		}
		err := project.Update()
		observability.Manipulation().OnPersist(ctx, name, err)
		if err != nil {
			return errors.Wrap(errors.ErrCodeManifestIO, err, "persisting project %s", name)
		}
		m.logger.Debug("persisted project", "project", name)
	}
	return nil
}

// Apply executes the manipulators against the projects and returns the
// changed projects in first-changed order, without persisting anything.
// It is the scheduling core behind ScanAndApply and serves dry-run callers.
//
// The order is resolved by a fixed-point round-robin rather than an explicit
// topological sort: rounds repeat over the outstanding set, running every
// manipulator whose prerequisite kinds are no longer outstanding, until the
// set is empty or a full round makes no progress. A stalled non-empty set is
// a dependency cycle.
func (m *Manager) Apply(ctx context.Context, projects []Project, manipulators []Manipulator) ([]Project, error) {
	var changed []Project
	seen := make(map[Project]bool)

	todo := slices.Clone(manipulators)
	for len(todo) > 0 {
		done := 0
		// Snapshot so removals this round don't perturb the iteration.
		for _, man := range slices.Clone(todo) {
			if !dependenciesDone(man, todo) {
				continue
			}

			m.logger.Debug("running manipulator", "kind", man.Kind())
			start := time.Now()
			observability.Manipulation().OnManipulatorStart(ctx, string(man.Kind()))

			mChanged, err := man.ApplyChanges(ctx, projects)
			observability.Manipulation().OnManipulatorComplete(ctx, string(man.Kind()), len(mChanged), time.Since(start), err)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeManipulation, err, "manipulator %s failed", man.Kind())
			}

			for _, p := range mChanged {
				if p == nil || seen[p] {
					continue
				}
				seen[p] = true
				changed = append(changed, p)
			}

			todo = remove(todo, man)
			done++
		}
		if done == 0 {
			break
		}
	}

	if len(todo) > 0 {
		remaining := make([]Kind, len(todo))
		for i, man := range todo {
			remaining[i] = man.Kind()
		}
		cycle := &CycleError{Remaining: remaining}
		return nil, errors.Wrap(errors.ErrCodeDependencyCycle, cycle, "manipulation cannot be finished")
	}

	if len(changed) == 0 {
		m.logger.Info("no changes")
	}
	return changed, nil
}

// dependenciesDone reports whether none of the manipulator's prerequisite
// kinds is still provided by an outstanding manipulator. Matching is by
// capability-set membership, so a dependency on a broad kind is held open
// by any outstanding manipulator providing it.
func dependenciesDone(man Manipulator, todo []Manipulator) bool {
	for _, dep := range man.Dependencies() {
		for _, outstanding := range todo {
			if provides(outstanding, dep) {
				return false
			}
		}
	}
	return true
}

func provides(man Manipulator, kind Kind) bool {
	if man.Kind() == kind {
		return true
	}
	return slices.Contains(man.Provides(), kind)
}

func remove(manipulators []Manipulator, man Manipulator) []Manipulator {
	for i, m := range manipulators {
		if m == man {
			return slices.Delete(manipulators, i, i+1)
		}
	}
	return manipulators
}
