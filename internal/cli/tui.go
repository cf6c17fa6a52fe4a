package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/packsmith/packsmith/pkg/npm"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PackageListModel - Interactive package selection
// =============================================================================

// packageItem is one row of the picker.
type packageItem struct {
	pkg     *npm.Package
	name    string
	version string
	checked bool
}

// PackageListModel is the bubbletea model for selecting which discovered
// packages a run should manipulate. All packages start selected.
type PackageListModel struct {
	Items   []packageItem
	Cursor  int
	Aborted bool
	done    bool
}

// NewPackageListModel builds the picker from discovered packages, loading
// each manifest to show its name and current version.
func NewPackageListModel(packages []*npm.Package) (PackageListModel, error) {
	items := make([]packageItem, len(packages))
	for i, pkg := range packages {
		name, err := pkg.Name()
		if err != nil {
			return PackageListModel{}, err
		}
		version, err := pkg.Version()
		if err != nil {
			return PackageListModel{}, err
		}
		items[i] = packageItem{pkg: pkg, name: name, version: version, checked: true}
	}
	return PackageListModel{Items: items}, nil
}

// SelectedPackages returns the packages left checked when the picker was
// confirmed, in discovery order. An aborted picker selects nothing.
func (m PackageListModel) SelectedPackages() []*npm.Package {
	if m.Aborted {
		return nil
	}
	var selected []*npm.Package
	for _, item := range m.Items {
		if item.checked {
			selected = append(selected, item.pkg)
		}
	}
	return selected
}

func (m PackageListModel) Init() tea.Cmd {
	return nil
}

func (m PackageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "ctrl+c", "esc":
		m.Aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
		}
	case " ":
		if len(m.Items) > 0 {
			m.Items[m.Cursor].checked = !m.Items[m.Cursor].checked
		}
	case "a":
		all := true
		for _, item := range m.Items {
			if !item.checked {
				all = false
				break
			}
		}
		for i := range m.Items {
			m.Items[i].checked = !all
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m PackageListModel) View() string {
	if m.done || m.Aborted {
		return ""
	}

	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Packages"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	for i, item := range m.Items {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		check := "[ ]"
		if item.checked {
			check = "[" + StyleSuccess.Render("✓") + "]"
		}

		line := fmt.Sprintf("%s%s %-30s %s", cursor, check, item.name, listDimStyle.Render(item.version))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else if item.checked {
			b.WriteString(listNormalStyle.Render(line))
		} else {
			b.WriteString(listDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	selected := 0
	for _, item := range m.Items {
		if item.checked {
			selected++
		}
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d selected]", selected, len(m.Items))))

	return b.String()
}
