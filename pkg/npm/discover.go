package npm

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/packsmith/packsmith/pkg/errors"
)

// Discover walks root and returns a project for every package.json found.
// node_modules trees and hidden directories are skipped. A root pointing
// directly at a package.json file yields exactly that project.
func Discover(root string) ([]*Package, error) {
	if strings.EqualFold(filepath.Base(root), "package.json") {
		return []*Package{NewPackage(root)}, nil
	}

	var projects []*Package
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "node_modules" || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(d.Name(), "package.json") {
			projects = append(projects, NewPackage(path))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestIO, err, "discovering manifests under %s", root)
	}
	return projects, nil
}
