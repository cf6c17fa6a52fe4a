package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/packsmith/packsmith/pkg/npm"
)

func pickerModel(t *testing.T, manifests ...string) PackageListModel {
	t.Helper()
	var packages []*npm.Package
	for _, manifest := range manifests {
		dir := t.TempDir()
		writeManifest(t, dir, manifest)
		found, err := npm.Discover(dir)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		packages = append(packages, found...)
	}
	model, err := NewPackageListModel(packages)
	if err != nil {
		t.Fatalf("NewPackageListModel error: %v", err)
	}
	return model
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEscape}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPackageListModelDefaultsAllSelected(t *testing.T) {
	m := pickerModel(t,
		`{"name": "one", "version": "1.0.0"}`,
		`{"name": "two", "version": "2.0.0"}`,
	)

	if got := len(m.SelectedPackages()); got != 2 {
		t.Errorf("selected %d packages, want 2", got)
	}
}

func TestPackageListModelToggle(t *testing.T) {
	m := pickerModel(t,
		`{"name": "one", "version": "1.0.0"}`,
		`{"name": "two", "version": "2.0.0"}`,
	)

	// Deselect the first entry, confirm.
	next, _ := m.Update(key(" "))
	next, _ = next.(PackageListModel).Update(key("enter"))
	final := next.(PackageListModel)

	selected := final.SelectedPackages()
	if len(selected) != 1 {
		t.Fatalf("selected %d packages, want 1", len(selected))
	}
	name, err := selected[0].Name()
	if err != nil {
		t.Fatalf("selected package name: %v", err)
	}
	if name != "two" {
		t.Errorf("selected package = %q, want %q", name, "two")
	}
}

func TestPackageListModelAbort(t *testing.T) {
	m := pickerModel(t, `{"name": "one", "version": "1.0.0"}`)

	next, _ := m.Update(key("esc"))
	final := next.(PackageListModel)

	if !final.Aborted {
		t.Error("escape did not abort the picker")
	}
	if got := final.SelectedPackages(); got != nil {
		t.Errorf("aborted picker selected %d packages, want none", len(got))
	}
}

func TestPackageListModelToggleAll(t *testing.T) {
	m := pickerModel(t,
		`{"name": "one", "version": "1.0.0"}`,
		`{"name": "two", "version": "2.0.0"}`,
	)

	// All start selected, so "a" deselects everything.
	next, _ := m.Update(key("a"))
	if got := len(next.(PackageListModel).SelectedPackages()); got != 0 {
		t.Errorf("selected %d packages after toggle-all, want 0", got)
	}
}
