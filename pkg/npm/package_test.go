package npm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/packsmith/packsmith/pkg/errors"
)

const testManifest = `{
  "name": "pnc-example",
  "version": "2.0.0-BUILD-NUMBER",
  "description": "example service",
  "scripts": {
    "test": "grunt test"
  },
  "dependencies": {
    "archiver": "1.0.0",
    "express": "4.16.3"
  },
  "devDependencies": {
    "grunt": "~1.0.0"
  }
}`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPackageAccessors(t *testing.T) {
	pkg := NewPackage(writeManifest(t, testManifest))

	name, err := pkg.Name()
	if err != nil {
		t.Fatalf("Name error: %v", err)
	}
	if name != "pnc-example" {
		t.Errorf("Name = %q, want %q", name, "pnc-example")
	}

	version, err := pkg.Version()
	if err != nil {
		t.Fatalf("Version error: %v", err)
	}
	if version != "2.0.0-BUILD-NUMBER" {
		t.Errorf("Version = %q, want %q", version, "2.0.0-BUILD-NUMBER")
	}

	deps, err := pkg.Dependencies()
	if err != nil {
		t.Fatalf("Dependencies error: %v", err)
	}
	if len(deps) != 2 || deps["express"] != "4.16.3" {
		t.Errorf("Dependencies = %v", deps)
	}

	devDeps, err := pkg.DevDependencies()
	if err != nil {
		t.Fatalf("DevDependencies error: %v", err)
	}
	if len(devDeps) != 1 || devDeps["grunt"] != "~1.0.0" {
		t.Errorf("DevDependencies = %v", devDeps)
	}
}

func TestPackageUpdatePreservesUnknownFields(t *testing.T) {
	path := writeManifest(t, testManifest)
	pkg := NewPackage(path)

	if err := pkg.SetVersion("2.0.0-jboss-00001"); err != nil {
		t.Fatalf("SetVersion error: %v", err)
	}
	if err := pkg.SetDependencyVersion("express", "4.16.5", false); err != nil {
		t.Fatalf("SetDependencyVersion error: %v", err)
	}
	if err := pkg.Update(); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("rewritten manifest is not valid JSON: %v", err)
	}
	if doc["version"] != "2.0.0-jboss-00001" {
		t.Errorf("version = %v, want 2.0.0-jboss-00001", doc["version"])
	}
	if doc["description"] != "example service" {
		t.Error("unknown field \"description\" was lost on rewrite")
	}
	if _, ok := doc["scripts"]; !ok {
		t.Error("unknown field \"scripts\" was lost on rewrite")
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("rewritten manifest should end with a newline")
	}
}

func TestPackageSetUndeclaredDependency(t *testing.T) {
	pkg := NewPackage(writeManifest(t, testManifest))

	err := pkg.SetDependencyVersion("left-pad", "1.0.0", false)
	if err == nil {
		t.Fatal("overriding an undeclared dependency should fail")
	}
	if !errors.Is(err, errors.ErrCodeManipulation) {
		t.Errorf("error code = %v, want MANIPULATION_FAILED", errors.GetCode(err))
	}
}

func TestPackageMalformedManifest(t *testing.T) {
	pkg := NewPackage(writeManifest(t, `{"name": 42}`))

	if _, err := pkg.Name(); !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("error code = %v, want INVALID_MANIFEST", errors.GetCode(err))
	}

	broken := NewPackage(writeManifest(t, `not json`))
	if _, err := broken.Name(); !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("error code = %v, want INVALID_MANIFEST", errors.GetCode(err))
	}
}

func TestPackageUpdateWithoutReadIsNoop(t *testing.T) {
	path := writeManifest(t, testManifest)
	before, _ := os.ReadFile(path)

	pkg := NewPackage(path)
	if err := pkg.Update(); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("Update without a prior read should not touch the file")
	}
}

func TestMemPackageRoundTrip(t *testing.T) {
	pkg, err := NewMemPackage([]byte(testManifest))
	if err != nil {
		t.Fatalf("NewMemPackage error: %v", err)
	}

	if err := pkg.SetVersion("3.0.0"); err != nil {
		t.Fatalf("SetVersion error: %v", err)
	}
	if err := pkg.Update(); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	out, err := pkg.Manifest()
	if err != nil {
		t.Fatalf("Manifest error: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["version"] != "3.0.0" {
		t.Errorf("version = %v, want 3.0.0", doc["version"])
	}
	if doc["name"] != "pnc-example" {
		t.Errorf("name = %v, want pnc-example", doc["name"])
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mustWrite("package.json", `{"name": "root"}`)
	mustWrite("services/api/package.json", `{"name": "api"}`)
	mustWrite("node_modules/express/package.json", `{"name": "express"}`)
	mustWrite(".git/package.json", `{"name": "ignored"}`)
	mustWrite("services/api/README.md", "docs")

	projects, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	var names []string
	for _, p := range projects {
		name, err := p.Name()
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}

	if len(names) != 2 {
		t.Fatalf("Discover found %v, want root and api only", names)
	}
	for _, want := range []string{"root", "api"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Discover missed project %q", want)
		}
	}
}

func TestDiscoverDirectManifestPath(t *testing.T) {
	path := writeManifest(t, `{"name": "direct"}`)

	projects, err := Discover(path)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("Discover found %d projects, want 1", len(projects))
	}
	if name, _ := projects[0].Name(); name != "direct" {
		t.Errorf("Name = %q, want %q", name, "direct")
	}
}
