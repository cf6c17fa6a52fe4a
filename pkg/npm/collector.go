package npm

import (
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/packsmith/packsmith/pkg/manip"
	"github.com/packsmith/packsmith/pkg/registry"
)

// VersionPool holds the published versions known for each package, keyed by
// package name. It is the shared state between the collector and the
// version manipulator within one run.
type VersionPool struct {
	mu       sync.Mutex
	versions map[string][]string
}

// NewVersionPool creates an empty pool.
func NewVersionPool() *VersionPool {
	return &VersionPool{versions: map[string][]string{}}
}

// Add records published versions for a package, appending to any already
// recorded.
func (p *VersionPool) Add(pkg string, versions []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[pkg] = append(p.versions[pkg], versions...)
}

// Versions returns the versions recorded for a package, or nil.
func (p *VersionPool) Versions(pkg string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.versions[pkg]
}

// VersionLister lists the published versions of a package. Implemented by
// registry.Client.
type VersionLister interface {
	Versions(ctx context.Context, pkg string) ([]string, error)
}

// VersionsCollector queries the npm registry for every project's published
// version list and fills the shared pool. It changes no projects itself; it
// exists to provide the KindAvailableVersions capability that the version
// manipulator depends on.
//
// A nil lister (registry disabled) still provides the capability, leaving
// the pool empty.
type VersionsCollector struct {
	lister VersionLister
	pool   *VersionPool
	logger *log.Logger
}

// NewVersionsCollector creates the collector. Pass a nil logger to discard
// log output.
func NewVersionsCollector(lister VersionLister, pool *VersionPool, logger *log.Logger) *VersionsCollector {
	if pool == nil {
		pool = NewVersionPool()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &VersionsCollector{lister: lister, pool: pool, logger: logger}
}

// Pool returns the pool the collector fills.
func (c *VersionsCollector) Pool() *VersionPool { return c.pool }

// Kind returns the manipulator kind.
func (c *VersionsCollector) Kind() manip.Kind { return KindRegistryVersions }

// Provides includes the available-versions capability on top of the
// collector's own kind.
func (c *VersionsCollector) Provides() []manip.Kind {
	return []manip.Kind{KindRegistryVersions, KindAvailableVersions}
}

// Dependencies returns no prerequisites.
func (c *VersionsCollector) Dependencies() []manip.Kind { return nil }

// ApplyChanges fills the pool from the registry. Packages not yet published
// (registry 404) simply contribute no versions. The collector never reports
// changed projects.
func (c *VersionsCollector) ApplyChanges(ctx context.Context, projects []manip.Project) ([]manip.Project, error) {
	if c.lister == nil {
		c.logger.Debug("registry disabled, version pool stays empty")
		return nil, nil
	}

	for _, project := range projects {
		name, err := project.Name()
		if err != nil {
			return nil, err
		}

		versions, err := c.lister.Versions(ctx, name)
		if err != nil {
			if stderrors.Is(err, registry.ErrNotFound) {
				c.logger.Debug("package not in registry", "package", name)
				continue
			}
			return nil, err
		}
		c.pool.Add(name, versions)
		c.logger.Debug("collected published versions", "package", name, "count", len(versions))
	}
	return nil, nil
}

var _ manip.Manipulator = (*VersionsCollector)(nil)
