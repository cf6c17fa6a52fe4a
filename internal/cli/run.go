package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/packsmith/packsmith/pkg/cache"
	"github.com/packsmith/packsmith/pkg/config"
	"github.com/packsmith/packsmith/pkg/errors"
	"github.com/packsmith/packsmith/pkg/manip"
	"github.com/packsmith/packsmith/pkg/npm"
	"github.com/packsmith/packsmith/pkg/registry"
	"github.com/packsmith/packsmith/pkg/report"
)

// runOptions collects the run command's flags.
type runOptions struct {
	configPath      string
	suffix          string
	padding         int
	versionOverride string
	suffixOverride  string
	overrides       []string
	devOverrides    []string
	registryURL     string
	noRegistry      bool
	dryRun          bool
	interactive     bool
	noCache         bool
}

// runCommand creates the run command, the main entry point for manifest
// manipulation.
func (c *CLI) runCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [path...]",
		Short: "Rewrite package.json manifests with a rebuild suffix and pinned dependencies",
		Long: `Run discovers package.json manifests under the given paths (default: the
current directory), computes a new version with an incrementing rebuild
suffix, applies configured dependency pins, and writes the manifests back.

Already-published versions are fetched from the npm registry so the suffix
increment never collides; pass --no-registry to increment against an empty
pool instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultFileName, "path to the configuration file")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "version suffix label (default from config)")
	cmd.Flags().IntVar(&opts.padding, "padding", 0, "zero-padding width of the suffix increment")
	cmd.Flags().StringVar(&opts.versionOverride, "version-override", "", "use this version verbatim, skipping suffix generation")
	cmd.Flags().StringVar(&opts.suffixOverride, "suffix-override", "", "use this suffix verbatim instead of computing an increment")
	cmd.Flags().StringArrayVar(&opts.overrides, "override", nil, "pin a dependency as name=version (repeatable)")
	cmd.Flags().StringArrayVar(&opts.devOverrides, "dev-override", nil, "pin a devDependency as name=version (repeatable)")
	cmd.Flags().StringVar(&opts.registryURL, "registry", "", "npm registry base URL (default "+registry.DefaultBaseURL+")")
	cmd.Flags().BoolVar(&opts.noRegistry, "no-registry", false, "skip registry lookups entirely")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "compute changes without writing any manifest")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "select packages to manipulate interactively")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the registry response cache")

	return cmd
}

func (c *CLI) runRun(cmd *cobra.Command, args []string, opts *runOptions) error {
	ctx := withLogger(cmd.Context(), c.Logger)
	startedAt := time.Now()
	prog := newProgress(c.Logger)

	cfg, err := config.Load(opts.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cfg, cmd, opts); err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	packages, err := discoverPackages(paths)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		printWarning("No package.json found under %s", strings.Join(paths, ", "))
		return nil
	}

	if opts.interactive {
		packages, err = selectPackages(packages)
		if err != nil {
			return err
		}
		if len(packages) == 0 {
			printInfo("Nothing selected")
			return nil
		}
	}

	projects := make([]manip.Project, len(packages))
	for i, pkg := range packages {
		projects[i] = pkg
	}

	manipulators, regCache := c.buildManipulators(cfg, opts)
	if regCache != nil {
		defer regCache.Close()
	}

	mgr := manip.NewManager(c.Logger)

	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Manipulating %d package(s)", len(packages)))
	spin.Start()
	changed, err := mgr.Apply(ctx, projects, manipulators)
	if err != nil {
		spin.StopWithError(errors.UserMessage(err))
		return err
	}
	if !opts.dryRun {
		if err := mgr.Persist(ctx, changed); err != nil {
			spin.StopWithError(errors.UserMessage(err))
			return err
		}
	}
	spin.Stop()

	printRunSummary(packages, changed, opts.dryRun)
	prog.done(fmt.Sprintf("Processed %d package(s)", len(packages)))

	if cfg.Report.Enabled {
		writeReport(ctx, cfg, startedAt, manipulators, changed, len(projects), opts.dryRun)
	}
	return nil
}

// applyFlagOverrides overlays explicitly set flags on the loaded config.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command, opts *runOptions) error {
	if cmd.Flags().Changed("suffix") {
		cfg.Version.Suffix = opts.suffix
	}
	if cmd.Flags().Changed("padding") {
		cfg.Version.Padding = opts.padding
	}
	if cmd.Flags().Changed("version-override") {
		cfg.Version.VersionOverride = opts.versionOverride
	}
	if cmd.Flags().Changed("suffix-override") {
		cfg.Version.SuffixOverride = opts.suffixOverride
	}
	if cmd.Flags().Changed("registry") {
		cfg.Registry.URL = opts.registryURL
	}
	if opts.noRegistry {
		cfg.Registry.Enabled = false
	}

	for _, pair := range opts.overrides {
		name, version, err := splitOverride(pair)
		if err != nil {
			return err
		}
		if cfg.Dependencies == nil {
			cfg.Dependencies = make(map[string]string)
		}
		cfg.Dependencies[name] = version
	}
	for _, pair := range opts.devOverrides {
		name, version, err := splitOverride(pair)
		if err != nil {
			return err
		}
		if cfg.DevDependencies == nil {
			cfg.DevDependencies = make(map[string]string)
		}
		cfg.DevDependencies[name] = version
	}
	return cfg.Validate()
}

func splitOverride(pair string) (name, version string, err error) {
	name, version, ok := strings.Cut(pair, "=")
	if !ok || name == "" || version == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "override %q is not of the form name=version", pair)
	}
	return name, version, nil
}

// discoverPackages walks each path and aggregates the manifests found.
func discoverPackages(paths []string) ([]*npm.Package, error) {
	var packages []*npm.Package
	seen := make(map[string]bool)
	for _, path := range paths {
		found, err := npm.Discover(path)
		if err != nil {
			return nil, err
		}
		for _, pkg := range found {
			if seen[pkg.Path()] {
				continue
			}
			seen[pkg.Path()] = true
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// buildManipulators assembles the manipulator set for a run. The returned
// cache is non-nil when registry lookups are enabled and must be closed by
// the caller.
func (c *CLI) buildManipulators(cfg *config.Config, opts *runOptions) ([]manip.Manipulator, cache.Cache) {
	pool := npm.NewVersionPool()

	var (
		lister   npm.VersionLister
		regCache cache.Cache
	)
	if cfg.Registry.Enabled {
		regCache = newCache(cfg, cfg.Registry.CacheTTL.Std(), opts.noCache)
		lister = registry.NewClient(cfg.Registry.URL, regCache, cfg.Registry.CacheTTL.Std())
	}

	gen := &npm.SuffixGenerator{
		Suffix:          cfg.Version.Suffix,
		SuffixPadding:   cfg.Version.Padding,
		SuffixOverride:  cfg.Version.SuffixOverride,
		VersionOverride: cfg.Version.VersionOverride,
	}

	manipulators := []manip.Manipulator{
		npm.NewVersionsCollector(lister, pool, c.Logger),
		npm.NewVersionManipulator(gen, pool),
	}
	if len(cfg.Dependencies) > 0 || len(cfg.DevDependencies) > 0 {
		manipulators = append(manipulators, npm.NewDependencyManipulator(cfg.Dependencies, cfg.DevDependencies))
	}
	return manipulators, regCache
}

// selectPackages runs the interactive package picker.
func selectPackages(packages []*npm.Package) ([]*npm.Package, error) {
	model, err := NewPackageListModel(packages)
	if err != nil {
		return nil, err
	}
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("interactive selection: %w", err)
	}
	result, ok := final.(PackageListModel)
	if !ok || result.Aborted {
		return nil, nil
	}
	return result.SelectedPackages(), nil
}

// printRunSummary prints the per-package result lines.
func printRunSummary(packages []*npm.Package, changed []manip.Project, dryRun bool) {
	changedSet := make(map[manip.Project]bool, len(changed))
	for _, p := range changed {
		changedSet[p] = true
	}

	if dryRun {
		printInfo("Dry run, no manifests written")
	}
	for _, pkg := range packages {
		name, err := pkg.Name()
		if err != nil {
			name = pkg.Path()
		}
		version, err := pkg.Version()
		if err != nil {
			version = "?"
		}
		if changedSet[pkg] {
			printSuccess("%s %s %s", name, iconArrow, StyleHighlight.Render(version))
			printDetail("%s", pkg.Path())
		} else {
			printDetail("%s unchanged", name)
		}
	}
	printKeyValue("changed", fmt.Sprintf("%d of %d", len(changed), len(packages)))
}

// writeReport stores a run report, best effort. Failures are surfaced as
// warnings and never fail the run itself.
func writeReport(ctx context.Context, cfg *config.Config, startedAt time.Time, manipulators []manip.Manipulator, changed []manip.Project, projects int, dryRun bool) {
	store, err := newReportStore(ctx, cfg)
	if err != nil {
		printWarning("Report not written: %v", err)
		return
	}
	defer store.Close(ctx)

	r := report.New(startedAt)
	r.Projects = projects
	r.DryRun = dryRun
	for _, m := range manipulators {
		r.Executed = append(r.Executed, m.Kind())
	}
	for _, p := range changed {
		name, err := p.Name()
		if err != nil {
			name = "<unknown>"
		}
		r.Changed = append(r.Changed, name)
	}
	r.Finish()

	if err := store.Save(ctx, r); err != nil {
		printWarning("Report not written: %v", err)
		return
	}
	loggerFromContext(ctx).Debug("report written", "id", r.ID)
}

func newReportStore(ctx context.Context, cfg *config.Config) (report.Store, error) {
	if cfg.Report.MongoURI != "" {
		return report.NewMongoStore(ctx, cfg.Report.MongoURI, cfg.Report.MongoDB)
	}
	return report.NewFileStore(cfg.Report.Dir)
}
