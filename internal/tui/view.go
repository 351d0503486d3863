package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/models"
)

const (
	sizeWidth     = 10
	modifiedWidth = 16
)

// View renders the current view
func (m Model) View() string {
	switch m.mode {
	case modePreview:
		return m.viewPreview()
	case modeBuckets:
		return m.viewBuckets()
	case modeHelp:
		return m.viewHelp()
	}
	return m.viewBrowser()
}

func (m Model) viewBrowser() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.title()))
	s.WriteString("\n")
	s.WriteString(viewInfoStyle.Render(m.viewInfo()))
	s.WriteString("\n")

	if m.state.Error != "" {
		s.WriteString(errorStyle.Render("Error: " + m.state.Error + "  (R retry, esc dismiss)"))
		s.WriteString("\n")
	}

	s.WriteString(dimStyle.Render(m.columnHeader()))
	s.WriteString("\n")
	s.WriteString(m.viewRows())

	switch m.mode {
	case modeFilter, modeGoTo:
		s.WriteString(m.input.View())
		s.WriteString("\n")
	case modeConfirmDelete:
		s.WriteString(warningStyle.Render(m.deletePrompt()))
		s.WriteString("\n")
	}

	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return s.String()
}

func (m Model) title() string {
	if m.state.Bucket == "" {
		return "objectdesk"
	}
	var parts []string
	for _, bc := range browser.Breadcrumbs(m.state.Bucket, m.state.Prefix) {
		parts = append(parts, bc.Label)
	}
	return strings.Join(parts, " / ")
}

func (m Model) viewInfo() string {
	order := "asc"
	if !m.state.Sort.Ascending {
		order = "desc"
	}
	info := fmt.Sprintf("sort: %s %s  type: %s", m.state.Sort.Field, order, m.state.Type)
	if m.state.Query != "" {
		info += fmt.Sprintf("  filter: %q", m.state.Query)
	}
	if n := len(m.state.Selected); n > 0 {
		info += fmt.Sprintf("  selected: %d", n)
	}
	return info
}

func (m Model) nameWidth() int {
	w := m.width - sizeWidth - modifiedWidth - 6
	if w < 10 {
		w = 10
	}
	return w
}

func (m Model) columnHeader() string {
	return fmt.Sprintf("   %-*s %*s  %-*s", m.nameWidth(), "Name", sizeWidth, "Size", modifiedWidth, "Modified")
}

func (m Model) viewRows() string {
	h := m.listHeight()
	var s strings.Builder

	if len(m.state.View) == 0 {
		msg := "This folder is empty."
		switch {
		case m.state.Loading:
			msg = m.spinner.View() + " Loading..."
		case m.state.Bucket == "":
			msg = "No bucket open. Press b to choose one or g to enter a URL."
		case m.state.Loaded > 0:
			msg = "No items match the current filter."
		}
		s.WriteString(dimStyle.Render(msg))
		s.WriteString("\n")
		h--
	}

	selected := make(map[string]struct{}, len(m.state.Selected))
	for _, k := range m.state.Selected {
		selected[k] = struct{}{}
	}

	end := m.offset + h
	if end > len(m.state.View) {
		end = len(m.state.View)
	}
	for i := m.offset; i < end; i++ {
		_, isSel := selected[m.state.View[i].Key]
		s.WriteString(m.renderRow(m.state.View[i], i == m.cursor, isSel))
		s.WriteString("\n")
		h--
	}
	for ; h > 0; h-- {
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) renderRow(e models.Entry, atCursor, isSelected bool) string {
	marker := "  "
	if isSelected {
		marker = "* "
	}
	name := e.NameIn(m.state.Prefix)
	if e.IsPrefix {
		name += "/"
	}
	name = truncate(name, m.nameWidth())

	size := ""
	if !e.IsPrefix {
		size = e.SizeString()
	}
	line := fmt.Sprintf("%s %-*s %*s  %-*s", marker, m.nameWidth(), name, sizeWidth, size, modifiedWidth, e.ModifiedString())

	switch {
	case atCursor:
		return cursorStyle.Render(line)
	case isSelected:
		return selectedStyle.Render(line)
	case e.IsPrefix:
		return folderStyle.Render(line)
	default:
		return fileStyle.Render(line)
	}
}

func (m Model) statusLine() string {
	left := m.state.StatusText()
	if m.state.Loading || m.state.LoadingMore || m.state.Searching {
		left = m.spinner.View() + " " + left
	}

	right := m.status
	switch m.statusKind {
	case statusSuccess:
		right = successStyle.Render(right)
	case statusWarning:
		right = warningStyle.Render(right)
	case statusError:
		right = errorStyle.Render(right)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Render(" "+left+strings.Repeat(" ", gap)) + right
}

func (m Model) deletePrompt() string {
	n := len(m.pendingDelete)
	if n == 0 {
		return ""
	}
	what := m.pendingDelete[0].Name()
	if n > 1 {
		what = fmt.Sprintf("%d items", n)
	}
	for _, e := range m.pendingDelete {
		if e.IsPrefix {
			return fmt.Sprintf("Delete %s and everything inside? (y/n)", what)
		}
	}
	return fmt.Sprintf("Delete %s? (y/n)", what)
}

func (m Model) viewPreview() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Preview: " + m.previewTitle))
	s.WriteString("\n")
	s.WriteString(previewStyle.Render(m.preview.View()))
	s.WriteString("\n")
	s.WriteString(dimStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll • pgup/pgdn page • esc back", m.preview.ScrollPercent()*100)))
	return s.String()
}

func (m Model) viewBuckets() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Buckets"))
	s.WriteString("\n\n")

	if len(m.buckets) == 0 {
		s.WriteString(dimStyle.Render("No buckets. Press g to enter a URL."))
		s.WriteString("\n")
	}
	for i, b := range m.buckets {
		line := "  " + b.Name
		if b.CreationDate != nil {
			line = fmt.Sprintf("  %-40s %s", b.Name, b.CreationDate.Local().Format("2006-01-02"))
		}
		if i == m.bucketCursor {
			s.WriteString(cursorStyle.Render(line))
		} else {
			s.WriteString(folderStyle.Render(line))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.status != "" {
		s.WriteString(m.statusLine())
		s.WriteString("\n")
	}
	s.WriteString(dimStyle.Render("↑/↓ move • enter open • g go to URL • esc back • q quit"))
	return s.String()
}

func (m Model) viewHelp() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("objectdesk - Help"))
	s.WriteString("\n\n")
	s.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("Pages load as you scroll. Go to an object URL to select it;\nthe browser pages forward until the object is found."))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("press any key to return"))
	return s.String()
}

// truncate shortens s to width display cells with a trailing ellipsis.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
