package manip

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"testing"

	"github.com/packsmith/packsmith/pkg/errors"
)

// fakeProject implements Project with in-memory fields and an update counter.
type fakeProject struct {
	name      string
	version   string
	deps      map[string]string
	devDeps   map[string]string
	updates   int
	updateErr error
}

func newFakeProject(name, version string) *fakeProject {
	return &fakeProject{
		name:    name,
		version: version,
		deps:    map[string]string{},
		devDeps: map[string]string{},
	}
}

func (p *fakeProject) Name() (string, error)    { return p.name, nil }
func (p *fakeProject) Version() (string, error) { return p.version, nil }
func (p *fakeProject) SetVersion(v string) error {
	p.version = v
	return nil
}
func (p *fakeProject) Dependencies() (map[string]string, error)    { return p.deps, nil }
func (p *fakeProject) DevDependencies() (map[string]string, error) { return p.devDeps, nil }
func (p *fakeProject) SetDependencyVersion(name, version string, dev bool) error {
	if dev {
		p.devDeps[name] = version
	} else {
		p.deps[name] = version
	}
	return nil
}
func (p *fakeProject) Update() error {
	p.updates++
	return p.updateErr
}

// fakeManipulator records its execution order into a shared log.
type fakeManipulator struct {
	kind     Kind
	provides []Kind
	deps     []Kind
	changes  []Project
	err      error
	log      *[]Kind
}

func (m *fakeManipulator) Kind() Kind           { return m.kind }
func (m *fakeManipulator) Provides() []Kind     { return append([]Kind{m.kind}, m.provides...) }
func (m *fakeManipulator) Dependencies() []Kind { return m.deps }
func (m *fakeManipulator) ApplyChanges(ctx context.Context, projects []Project) ([]Project, error) {
	if m.log != nil {
		*m.log = append(*m.log, m.kind)
	}
	return m.changes, m.err
}

func TestApplyOrdersByDependencies(t *testing.T) {
	var order []Kind
	a := &fakeManipulator{kind: "a", log: &order}
	b := &fakeManipulator{kind: "b", deps: []Kind{"a"}, log: &order}
	c := &fakeManipulator{kind: "c", deps: []Kind{"b"}, log: &order}

	mgr := NewManager(nil)
	// Feed in reverse order so scheduling has to do the work.
	_, err := mgr.Apply(context.Background(), nil, []Manipulator{c, b, a})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	want := []Kind{"a", "b", "c"}
	if !slices.Equal(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestApplyRunsEachManipulatorOnce(t *testing.T) {
	var order []Kind
	manipulators := []Manipulator{
		&fakeManipulator{kind: "x", log: &order},
		&fakeManipulator{kind: "y", log: &order},
		&fakeManipulator{kind: "z", deps: []Kind{"x", "y"}, log: &order},
	}

	mgr := NewManager(nil)
	if _, err := mgr.Apply(context.Background(), nil, manipulators); err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("executed %d manipulators, want 3", len(order))
	}
	counts := map[Kind]int{}
	for _, k := range order {
		counts[k]++
	}
	for _, k := range []Kind{"x", "y", "z"} {
		if counts[k] != 1 {
			t.Errorf("manipulator %s ran %d times, want 1", k, counts[k])
		}
	}
	if order[2] != "z" {
		t.Errorf("z ran at position %d, want last", slices.Index(order, Kind("z")))
	}
}

func TestApplySatisfiedByCapability(t *testing.T) {
	// versioner depends on the capability kind, not the collector's own kind.
	var order []Kind
	collector := &fakeManipulator{kind: "collector", provides: []Kind{"available-versions"}, log: &order}
	versioner := &fakeManipulator{kind: "versioner", deps: []Kind{"available-versions"}, log: &order}

	mgr := NewManager(nil)
	_, err := mgr.Apply(context.Background(), nil, []Manipulator{versioner, collector})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	want := []Kind{"collector", "versioner"}
	if !slices.Equal(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestApplyAbsentDependencyIsSatisfied(t *testing.T) {
	// A dependency on a kind no active manipulator provides is already
	// satisfied, so the manipulator is eligible in the first round.
	var order []Kind
	c := &fakeManipulator{kind: "c", deps: []Kind{"never-registered"}, log: &order}

	mgr := NewManager(nil)
	if _, err := mgr.Apply(context.Background(), nil, []Manipulator{c}); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if len(order) != 1 {
		t.Errorf("executed %d manipulators, want 1", len(order))
	}
}

func TestApplyDirectCycle(t *testing.T) {
	a := &fakeManipulator{kind: "a", deps: []Kind{"b"}}
	b := &fakeManipulator{kind: "b", deps: []Kind{"a"}}

	mgr := NewManager(nil)
	_, err := mgr.Apply(context.Background(), nil, []Manipulator{a, b})
	if err == nil {
		t.Fatal("Apply should fail on a dependency cycle")
	}
	if !errors.Is(err, errors.ErrCodeDependencyCycle) {
		t.Errorf("error code = %v, want DEPENDENCY_CYCLE", errors.GetCode(err))
	}

	var cycle *CycleError
	if !stderrors.As(err, &cycle) {
		t.Fatalf("error %v should wrap *CycleError", err)
	}
	remaining := slices.Clone(cycle.Remaining)
	slices.Sort(remaining)
	if !slices.Equal(remaining, []Kind{"a", "b"}) {
		t.Errorf("cycle remaining = %v, want [a b]", remaining)
	}
}

func TestApplyCycleExcludesResolvable(t *testing.T) {
	// The cycle error must name exactly the cyclic subset; independently
	// resolvable manipulators run and stay out of the error.
	var order []Kind
	free := &fakeManipulator{kind: "free", log: &order}
	a := &fakeManipulator{kind: "a", deps: []Kind{"b"}, log: &order}
	b := &fakeManipulator{kind: "b", deps: []Kind{"a"}, log: &order}

	mgr := NewManager(nil)
	_, err := mgr.Apply(context.Background(), nil, []Manipulator{a, free, b})
	if err == nil {
		t.Fatal("Apply should fail on a dependency cycle")
	}
	if !slices.Contains(order, Kind("free")) {
		t.Error("independently resolvable manipulator should still run")
	}

	var cycle *CycleError
	if !stderrors.As(err, &cycle) {
		t.Fatalf("error %v should wrap *CycleError", err)
	}
	if slices.Contains(cycle.Remaining, Kind("free")) {
		t.Errorf("cycle remaining %v should not include resolvable manipulator", cycle.Remaining)
	}
}

func TestApplyManipulatorErrorAborts(t *testing.T) {
	var order []Kind
	failing := &fakeManipulator{kind: "failing", err: fmt.Errorf("boom"), log: &order}
	after := &fakeManipulator{kind: "after", deps: []Kind{"failing"}, log: &order}

	mgr := NewManager(nil)
	_, err := mgr.Apply(context.Background(), nil, []Manipulator{failing, after})
	if err == nil {
		t.Fatal("Apply should propagate manipulator errors")
	}
	if !errors.Is(err, errors.ErrCodeManipulation) {
		t.Errorf("error code = %v, want MANIPULATION_FAILED", errors.GetCode(err))
	}
	if slices.Contains(order, Kind("after")) {
		t.Error("manipulators after a failure must not run")
	}
}

func TestScanAndApplyPersistsChangedOnce(t *testing.T) {
	p1 := newFakeProject("one", "1.0.0")
	p2 := newFakeProject("two", "1.0.0")
	untouched := newFakeProject("three", "1.0.0")

	// Two manipulators both report p1; it must still persist exactly once.
	m1 := &fakeManipulator{kind: "m1", changes: []Project{p1, p2}}
	m2 := &fakeManipulator{kind: "m2", deps: []Kind{"m1"}, changes: []Project{p1}}

	mgr := NewManager(nil)
	session := NewSession([]Project{p1, p2, untouched}, []Manipulator{m1, m2})
	if err := mgr.ScanAndApply(context.Background(), session); err != nil {
		t.Fatalf("ScanAndApply error: %v", err)
	}

	if p1.updates != 1 {
		t.Errorf("p1 persisted %d times, want 1", p1.updates)
	}
	if p2.updates != 1 {
		t.Errorf("p2 persisted %d times, want 1", p2.updates)
	}
	if untouched.updates != 0 {
		t.Errorf("untouched project persisted %d times, want 0", untouched.updates)
	}
}

func TestScanAndApplyNoChangesNoPersistence(t *testing.T) {
	p := newFakeProject("one", "1.0.0")
	noop := &fakeManipulator{kind: "noop"}

	mgr := NewManager(nil)
	session := NewSession([]Project{p}, []Manipulator{noop})
	if err := mgr.ScanAndApply(context.Background(), session); err != nil {
		t.Fatalf("ScanAndApply error: %v", err)
	}
	if p.updates != 0 {
		t.Errorf("project persisted %d times, want 0", p.updates)
	}
}

func TestScanAndApplyUpdateError(t *testing.T) {
	p := newFakeProject("one", "1.0.0")
	p.updateErr = fmt.Errorf("disk full")
	m := &fakeManipulator{kind: "m", changes: []Project{p}}

	mgr := NewManager(nil)
	session := NewSession([]Project{p}, []Manipulator{m})
	err := mgr.ScanAndApply(context.Background(), session)
	if err == nil {
		t.Fatal("ScanAndApply should propagate Update errors")
	}
	if !errors.Is(err, errors.ErrCodeManifestIO) {
		t.Errorf("error code = %v, want MANIFEST_IO", errors.GetCode(err))
	}
}

func TestCycleErrorMessage(t *testing.T) {
	err := &CycleError{Remaining: []Kind{"b", "a"}}
	got := err.Error()
	want := "dependency cycle detected, remaining manipulators: a, b"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
