// Package manip defines the manipulator plugin model and the manager that
// orchestrates manipulator execution over a set of projects.
//
// A Manipulator is one unit of mutation logic (version bump, dependency
// override, registry lookup). Manipulators declare prerequisite kinds; the
// Manager resolves a valid execution order at runtime and drives persistence
// of every project the manipulators changed.
//
// # Kinds and capabilities
//
// Every manipulator reports a stable Kind. Dependencies are declared against
// kinds, not concrete types: a prerequisite is outstanding as long as any
// not-yet-run manipulator *provides* that kind. Provides always includes the
// manipulator's own Kind and may list additional capability kinds, so one
// manipulator can satisfy a dependency declared against a broader capability
// (e.g. a registry collector providing "npm-available-versions").
//
// # Usage
//
//	mgr := manip.NewManager(logger)
//	if err := mgr.ScanAndApply(ctx, session); err != nil {
//	    var cycle *manip.CycleError
//	    if errors.As(err, &cycle) {
//	        // cycle.Remaining names the stuck manipulators
//	    }
//	    return err
//	}
package manip

import "context"

// Kind is a stable manipulator kind identifier. Kinds double as capability
// tags for dependency declarations.
type Kind string

// Project is the in-memory representation of one buildable unit (for npm,
// one package.json). The manager and manipulators only read and mutate
// fields through these accessors and finally ask the project to persist
// itself; they never create or destroy projects.
//
// Accessors may fail when the backing representation is malformed.
type Project interface {
	// Name returns the project name.
	Name() (string, error)

	// Version returns the current project version.
	Version() (string, error)

	// SetVersion replaces the project version in memory.
	SetVersion(version string) error

	// Dependencies returns the runtime dependency mapping (name to version).
	Dependencies() (map[string]string, error)

	// DevDependencies returns the development dependency mapping.
	DevDependencies() (map[string]string, error)

	// SetDependencyVersion overrides the version of an already-declared
	// dependency. It fails if the dependency is not declared in the
	// requested scope.
	SetDependencyVersion(name, version string, dev bool) error

	// Update persists the current in-memory state to the backing store.
	Update() error
}

// Manipulator is a plugin performing one kind of project mutation.
//
// Manipulators are stateless with respect to scheduling: any state they hold
// (user-supplied overrides, collected registry data) is configuration, not
// workflow state. Order among manipulators that become eligible in the same
// scheduling round is unspecified, so co-eligible manipulators must commute.
type Manipulator interface {
	// Kind returns the manipulator's stable kind identifier.
	Kind() Kind

	// Provides returns the capability kinds this manipulator satisfies.
	// The set always contains Kind().
	Provides() []Kind

	// Dependencies returns the kinds that must have finished running before
	// this manipulator may run. A dependency on a kind no active manipulator
	// provides is considered already satisfied.
	Dependencies() []Kind

	// ApplyChanges mutates projects in place and returns the projects it
	// modified. Nil and empty results both mean "no changes".
	ApplyChanges(ctx context.Context, projects []Project) ([]Project, error)
}

// Session supplies the inputs for one manipulation run: the full project
// list and the resolved, already-filtered set of active manipulators.
// Deciding which manipulators are active is the session's concern, not the
// manager's; the manager only decides order.
type Session interface {
	Projects() []Project
	ActiveManipulators() []Manipulator
}

// SimpleSession is a Session backed by plain slices.
type SimpleSession struct {
	projects     []Project
	manipulators []Manipulator
}

// NewSession creates a session over the given projects and manipulators.
func NewSession(projects []Project, manipulators []Manipulator) *SimpleSession {
	return &SimpleSession{projects: projects, manipulators: manipulators}
}

// Projects returns the project list.
func (s *SimpleSession) Projects() []Project { return s.projects }

// ActiveManipulators returns the manipulators to run.
func (s *SimpleSession) ActiveManipulators() []Manipulator { return s.manipulators }

var _ Session = (*SimpleSession)(nil)
