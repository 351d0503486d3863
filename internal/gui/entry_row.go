package gui

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/models"
)

// rowHandler receives the pointer gestures of a row.
type rowHandler interface {
	rowClicked(index int, mods browser.Modifiers)
	rowOpened(index int)
	rowMenu(index int, pos fyne.Position)
}

// entryRow is one list row. The list recycles rows, so the index is rebound
// on every update and all gestures report the index, never the entry.
type entryRow struct {
	widget.BaseWidget

	handler rowHandler
	index   int

	bg       *canvas.Rectangle
	icon     *widget.Icon
	name     *widget.Label
	size     *canvas.Text
	modified *canvas.Text

	mods    browser.Modifiers
	lastTap time.Time
	lastIdx int
}

var (
	_ fyne.Tappable          = (*entryRow)(nil)
	_ fyne.SecondaryTappable = (*entryRow)(nil)
	_ desktop.Mouseable      = (*entryRow)(nil)
)

func newEntryRow(handler rowHandler) *entryRow {
	r := &entryRow{
		handler:  handler,
		index:    -1,
		lastIdx:  -1,
		bg:       canvas.NewRectangle(color.Transparent),
		icon:     widget.NewIcon(theme.FileIcon()),
		name:     widget.NewLabel("Filename placeholder"),
		size:     newColumnText("999.9 MB", fyne.TextAlignTrailing),
		modified: newColumnText("2006-01-02 15:04", fyne.TextAlignLeading),
	}
	r.name.Truncation = fyne.TextTruncateEllipsis
	r.ExtendBaseWidget(r)
	return r
}

func newColumnText(content string, align fyne.TextAlign) *canvas.Text {
	t := canvas.NewText(content, theme.Color(theme.ColorNameForeground))
	t.Alignment = align
	t.TextSize = theme.TextSize() * 0.9
	return t
}

// CreateRenderer implements fyne.Widget
func (r *entryRow) CreateRenderer() fyne.WidgetRenderer {
	columns := container.NewHBox(
		fixedWidth(90, r.size),
		HorizontalSpacer(16),
		fixedWidth(130, r.modified),
		HorizontalSpacer(8),
	)
	content := container.NewBorder(nil, nil, r.icon, columns, r.name)
	return widget.NewSimpleRenderer(container.NewStack(r.bg, content))
}

// bind shows entry at index. Called on the UI thread from the list's
// update callback.
func (r *entryRow) bind(index int, entry models.Entry, parentPrefix string, selected, primary bool) {
	r.index = index

	if entry.IsPrefix {
		r.icon.SetResource(theme.FolderIcon())
	} else {
		r.icon.SetResource(theme.FileIcon())
	}
	r.name.SetText(entry.NameIn(parentPrefix))
	r.name.TextStyle = fyne.TextStyle{Bold: primary}

	r.size.Text = entry.SizeString()
	r.modified.Text = entry.ModifiedString()

	switch {
	case selected:
		r.bg.FillColor = theme.Color(theme.ColorNameSelection)
	default:
		r.bg.FillColor = color.Transparent
	}
	r.Refresh()
}

// MouseDown records the modifiers for the tap that follows.
func (r *entryRow) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	r.mods = browser.Modifiers{
		Shift:    ev.Modifier&fyne.KeyModifierShift != 0,
		Platform: ev.Modifier&fyne.KeyModifierShortcutDefault != 0,
	}
}

func (r *entryRow) MouseUp(*desktop.MouseEvent) {}

// Tapped selects the row. A second tap on the same row within
// DoubleClickInterval opens it.
func (r *entryRow) Tapped(*fyne.PointEvent) {
	if r.index < 0 {
		return
	}
	now := time.Now()
	double := r.lastIdx == r.index && now.Sub(r.lastTap) < constants.DoubleClickInterval
	mods := r.mods
	r.mods = browser.Modifiers{}

	if double {
		r.lastTap = time.Time{}
		r.handler.rowOpened(r.index)
		return
	}
	r.lastTap = now
	r.lastIdx = r.index
	r.handler.rowClicked(r.index, mods)
}

// TappedSecondary opens the row's context menu.
func (r *entryRow) TappedSecondary(ev *fyne.PointEvent) {
	if r.index < 0 {
		return
	}
	r.handler.rowMenu(r.index, ev.AbsolutePosition)
}
