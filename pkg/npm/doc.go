// Package npm implements the npm manifest project model and the manipulators
// that operate on it.
//
// [Package] wraps a package.json file as a [manip.Project]; [MemPackage] is
// the in-memory variant used by the HTTP API and tests. The manipulators are:
//
//   - [VersionsCollector]: queries the npm registry for every project's
//     published versions and fills a shared [VersionPool].
//   - [VersionManipulator]: rewrites each project's version to the next
//     available build-qualified version, computed by [SuffixGenerator].
//   - [DependencyManipulator]: applies user-supplied dependency and
//     devDependency version overrides.
//
// The collector provides the KindAvailableVersions capability, which the
// version manipulator declares as a prerequisite; the scheduler in
// pkg/manip orders them accordingly.
package npm
