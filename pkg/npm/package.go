package npm

import (
	"encoding/json"
	"os"

	"github.com/packsmith/packsmith/pkg/errors"
	"github.com/packsmith/packsmith/pkg/manip"
)

// document holds a parsed package.json as raw top-level fields, so fields
// the tool doesn't understand survive a read-modify-write cycle untouched.
type document struct {
	fields map[string]json.RawMessage
}

func parseDocument(data []byte) (*document, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return &document{fields: fields}, nil
}

func (d *document) stringField(key string) (string, error) {
	raw, ok := d.fields[key]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidManifest, "manifest has no %q field", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest field %q is not a string", key)
	}
	return s, nil
}

func (d *document) setStringField(key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding field %q", key)
	}
	d.fields[key] = raw
	return nil
}

// mapField returns the named dependency mapping. A missing field is an
// empty map, not an error; a present field of the wrong shape is.
func (d *document) mapField(key string) (map[string]string, error) {
	raw, ok := d.fields[key]
	if !ok {
		return map[string]string{}, nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest field %q is not a string map", key)
	}
	return m, nil
}

func (d *document) setMapEntry(key, name, value string) error {
	m, err := d.mapField(key)
	if err != nil {
		return err
	}
	if _, declared := m[name]; !declared {
		return errors.New(errors.ErrCodeManipulation, "dependency %s not declared in %s", name, key)
	}
	m[name] = value
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding field %q", key)
	}
	d.fields[key] = raw
	return nil
}

func depScope(dev bool) string {
	if dev {
		return "devDependencies"
	}
	return "dependencies"
}

// marshal renders the document with 2-space indentation and a trailing
// newline, the way npm itself writes package.json.
func (d *document) marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d.fields, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Package is a manip.Project backed by a package.json file on disk. The
// file is parsed lazily on first access and rewritten by Update.
type Package struct {
	path string
	doc  *document
}

// NewPackage creates a project over the package.json at path. The file is
// not read until the first accessor call.
func NewPackage(path string) *Package {
	return &Package{path: path}
}

// Path returns the location of the backing package.json.
func (p *Package) Path() string { return p.path }

func (p *Package) load() (*document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestIO, err, "reading %s", p.path)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parsing %s", p.path)
	}
	p.doc = doc
	return doc, nil
}

// Name returns the package name.
func (p *Package) Name() (string, error) {
	doc, err := p.load()
	if err != nil {
		return "", err
	}
	return doc.stringField("name")
}

// Version returns the package version.
func (p *Package) Version() (string, error) {
	doc, err := p.load()
	if err != nil {
		return "", err
	}
	return doc.stringField("version")
}

// SetVersion replaces the version in memory. The file is only rewritten by
// Update.
func (p *Package) SetVersion(version string) error {
	doc, err := p.load()
	if err != nil {
		return err
	}
	return doc.setStringField("version", version)
}

// Dependencies returns the runtime dependency mapping.
func (p *Package) Dependencies() (map[string]string, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	return doc.mapField("dependencies")
}

// DevDependencies returns the development dependency mapping.
func (p *Package) DevDependencies() (map[string]string, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	return doc.mapField("devDependencies")
}

// SetDependencyVersion overrides the version of an already-declared
// dependency. Overriding an undeclared dependency is an error.
func (p *Package) SetDependencyVersion(name, version string, dev bool) error {
	doc, err := p.load()
	if err != nil {
		return err
	}
	return doc.setMapEntry(depScope(dev), name, version)
}

// Update writes the in-memory state back to the package.json file.
// A package that was never read has nothing to write.
func (p *Package) Update() error {
	if p.doc == nil {
		return nil
	}
	data, err := p.doc.marshal()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding %s", p.path)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeManifestIO, err, "writing %s", p.path)
	}
	return nil
}

var _ manip.Project = (*Package)(nil)

// MemPackage is a manip.Project over an in-memory manifest document.
// Update is a no-op; callers read the manipulated document back with
// Manifest. Used by the HTTP API and in tests.
type MemPackage struct {
	doc *document
}

// NewMemPackage parses a package.json document from raw JSON.
func NewMemPackage(manifest []byte) (*MemPackage, error) {
	doc, err := parseDocument(manifest)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parsing manifest")
	}
	return &MemPackage{doc: doc}, nil
}

// Manifest returns the current in-memory document as JSON.
func (p *MemPackage) Manifest() ([]byte, error) {
	return p.doc.marshal()
}

// Name returns the package name.
func (p *MemPackage) Name() (string, error) { return p.doc.stringField("name") }

// Version returns the package version.
func (p *MemPackage) Version() (string, error) { return p.doc.stringField("version") }

// SetVersion replaces the version.
func (p *MemPackage) SetVersion(version string) error {
	return p.doc.setStringField("version", version)
}

// Dependencies returns the runtime dependency mapping.
func (p *MemPackage) Dependencies() (map[string]string, error) {
	return p.doc.mapField("dependencies")
}

// DevDependencies returns the development dependency mapping.
func (p *MemPackage) DevDependencies() (map[string]string, error) {
	return p.doc.mapField("devDependencies")
}

// SetDependencyVersion overrides the version of an already-declared dependency.
func (p *MemPackage) SetDependencyVersion(name, version string, dev bool) error {
	return p.doc.setMapEntry(depScope(dev), name, version)
}

// Update is a no-op; the manipulated document lives in memory only.
func (p *MemPackage) Update() error { return nil }

var _ manip.Project = (*MemPackage)(nil)
