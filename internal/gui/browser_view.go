package gui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/core"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/models"
)

// filterDebounce is the pause after typing before the filter applies.
const filterDebounce = 200 * time.Millisecond

var sortLabels = map[browser.SortField]string{
	browser.SortByName:     "Name",
	browser.SortBySize:     "Size",
	browser.SortByModified: "Modified",
}

// BrowserView is the bucket browser pane. It renders controller snapshots
// and turns widget callbacks into controller calls. Fields below the mutex
// are only touched on the UI thread.
type BrowserView struct {
	ctx       context.Context
	engine    *core.Engine
	window    fyne.Window
	statusBar *StatusBar
	ctrl      *browser.Controller

	debounceMu sync.Mutex
	debounce   *time.Timer

	state    browser.State
	selected map[string]struct{}
	shift    bool
	updating bool

	list          *widget.List
	upBtn         *widget.Button
	breadcrumbBar *fyne.Container
	bucketSelect  *widget.Select
	urlEntry      *widget.Entry
	sortSelect    *widget.Select
	orderBtn      *widget.Button
	typeSelect    *widget.Select
	filterEntry   *widget.Entry
	errorLabel    *widget.Label
	errorBanner   *fyne.Container
	listStatus    *widget.Label
	loadingBar    *widget.ProgressBarInfinite
	loadMoreBtn   *widget.Button
	cancelBtn     *widget.Button
	actionBtns    []*widget.Button
}

// NewBrowserView creates the pane and its controller.
func NewBrowserView(ctx context.Context, engine *core.Engine, window fyne.Window, statusBar *StatusBar) *BrowserView {
	v := &BrowserView{
		ctx:       ctx,
		engine:    engine,
		window:    window,
		statusBar: statusBar,
		selected:  make(map[string]struct{}),
	}
	v.ctrl = engine.NewBrowser(v)
	v.state = v.ctrl.Snapshot()
	return v
}

// Close releases the controller.
func (v *BrowserView) Close() {
	v.debounceMu.Lock()
	if v.debounce != nil {
		v.debounce.Stop()
	}
	v.debounceMu.Unlock()
	v.ctrl.Close()
}

// Build creates the pane layout.
func (v *BrowserView) Build() fyne.CanvasObject {
	v.upBtn = widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { v.ctrl.GoUp() })
	refreshBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), v.ctrl.Refresh)

	v.bucketSelect = widget.NewSelect(nil, func(bucket string) {
		if v.updating || bucket == "" {
			return
		}
		v.ctrl.Navigate(bucket, "")
	})
	v.bucketSelect.PlaceHolder = "(select bucket)"

	v.breadcrumbBar = container.NewHBox()

	v.urlEntry = widget.NewEntry()
	v.urlEntry.SetPlaceHolder("Go to s3://bucket/path/or/object")
	v.urlEntry.OnSubmitted = v.openURL

	navBar := container.NewBorder(
		nil, nil,
		container.NewHBox(HorizontalSpacer(4), v.upBtn, refreshBtn, fixedWidth(180, v.bucketSelect)),
		nil,
		container.NewHScroll(v.breadcrumbBar),
	)

	v.sortSelect = widget.NewSelect([]string{"Name", "Size", "Modified"}, func(label string) {
		if v.updating {
			return
		}
		for field, l := range sortLabels {
			if l == label {
				v.applySort(browser.SortConfig{Field: field, Ascending: v.state.Sort.Ascending})
			}
		}
	})
	v.orderBtn = widget.NewButtonWithIcon("", theme.MenuDropUpIcon(), func() {
		cfg := v.state.Sort
		cfg.Ascending = !cfg.Ascending
		v.applySort(cfg)
	})

	typeOptions := make([]string, 0, len(browser.FileTypes()))
	for _, t := range browser.FileTypes() {
		typeOptions = append(typeOptions, typeLabel(t))
	}
	v.typeSelect = widget.NewSelect(typeOptions, func(label string) {
		if v.updating {
			return
		}
		for _, t := range browser.FileTypes() {
			if typeLabel(t) == label {
				v.ctrl.SetFileType(t)
				v.savePreferences()
			}
		}
	})

	v.filterEntry = widget.NewEntry()
	v.filterEntry.SetPlaceHolder("Filter...")
	v.filterEntry.OnChanged = func(query string) {
		if v.updating {
			return
		}
		v.debounceMu.Lock()
		defer v.debounceMu.Unlock()
		if v.debounce != nil {
			v.debounce.Stop()
		}
		v.debounce = time.AfterFunc(filterDebounce, func() {
			v.ctrl.SetQuery(query)
		})
	}

	viewBar := container.NewBorder(
		nil, nil,
		container.NewHBox(
			HorizontalSpacer(4),
			widget.NewLabel("Sort:"), v.sortSelect, v.orderBtn,
			widget.NewLabel("Type:"), v.typeSelect,
		),
		container.NewHBox(fixedWidth(200, v.filterEntry), HorizontalSpacer(4)),
		v.urlEntry,
	)

	v.actionBtns = []*widget.Button{
		widget.NewButtonWithIcon("Upload", theme.UploadIcon(), v.onUploadFile),
		widget.NewButtonWithIcon("Upload Folder", theme.FolderNewIcon(), v.onUploadFolder),
		widget.NewButtonWithIcon("Download", theme.DownloadIcon(), v.onDownload),
		widget.NewButtonWithIcon("New Folder", theme.ContentAddIcon(), v.onNewFolder),
		widget.NewButtonWithIcon("Rename", theme.DocumentCreateIcon(), v.onRename),
		widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), v.onDelete),
		widget.NewButtonWithIcon("Copy URL", theme.ContentCopyIcon(), v.onCopyURL),
	}
	actionBar := container.NewHBox(HorizontalSpacer(4))
	for _, b := range v.actionBtns {
		actionBar.Add(b)
	}

	v.errorLabel = widget.NewLabel("")
	v.errorLabel.Wrapping = fyne.TextWrapWord
	v.errorLabel.Importance = widget.DangerImportance
	v.errorBanner = container.NewBorder(
		nil, nil,
		widget.NewIcon(theme.ErrorIcon()),
		container.NewHBox(
			widget.NewButton("Retry", func() { v.ctrl.Retry() }),
			widget.NewButton("Dismiss", v.ctrl.DismissError),
		),
		v.errorLabel,
	)
	v.errorBanner.Hide()

	v.list = widget.NewList(
		func() int { return len(v.state.View) },
		func() fyne.CanvasObject { return newEntryRow(v) },
		v.updateRow,
	)
	v.list.OnSelected = func(id widget.ListItemID) {
		// Selection is drawn by the rows; the list's own highlight stays off.
		v.list.UnselectAll()
	}

	v.listStatus = widget.NewLabel("")
	v.listStatus.TextStyle = fyne.TextStyle{Italic: true}
	v.loadingBar = widget.NewProgressBarInfinite()
	v.loadingBar.Hide()
	v.loadMoreBtn = widget.NewButton("Load more", func() { v.ctrl.LoadMore() })
	v.loadMoreBtn.Hide()
	v.cancelBtn = widget.NewButtonWithIcon("Cancel search", theme.CancelIcon(), func() { v.ctrl.CancelSearch() })
	v.cancelBtn.Hide()

	footer := container.NewBorder(
		nil, nil,
		v.listStatus,
		container.NewHBox(v.cancelBtn, v.loadMoreBtn, HorizontalSpacer(4)),
		v.loadingBar,
	)

	header := container.NewBorder(
		nil, nil, nil,
		container.NewHBox(
			fixedWidth(90, newColumnText("Size", fyne.TextAlignTrailing)),
			HorizontalSpacer(16),
			fixedWidth(130, newColumnText("Modified", fyne.TextAlignLeading)),
			HorizontalSpacer(8),
		),
		container.NewHBox(HorizontalSpacer(36), newColumnText("Name", fyne.TextAlignLeading)),
	)

	v.window.SetOnDropped(v.onDropped)
	if dc, ok := v.window.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(ev *fyne.KeyEvent) {
			if ev.Name == desktop.KeyShiftLeft || ev.Name == desktop.KeyShiftRight {
				v.shift = true
			}
		})
		dc.SetOnKeyUp(func(ev *fyne.KeyEvent) {
			if ev.Name == desktop.KeyShiftLeft || ev.Name == desktop.KeyShiftRight {
				v.shift = false
			}
		})
	}

	v.render()

	return container.NewBorder(
		container.NewVBox(navBar, viewBar, actionBar, v.errorBanner, widget.NewSeparator(), header),
		footer,
		nil, nil,
		v.list,
	)
}

// OpenSaved loads the bucket list and returns to the remembered location.
func (v *BrowserView) OpenSaved() {
	go func() {
		buckets, err := v.engine.FileService().ListBuckets(v.ctx)
		if err != nil {
			guiLogger.Warn().Err(err).Msg("Failed to list buckets")
			v.statusBar.SetWarning("Could not list buckets: " + err.Error())
		} else {
			names := make([]string, len(buckets))
			for i, b := range buckets {
				names[i] = b.Name
			}
			fyne.Do(func() { v.bucketSelect.SetOptions(names) })
		}

		settings := v.engine.Settings()
		if settings.Session.Bucket != "" {
			v.ctrl.Navigate(settings.Session.Bucket, settings.Session.Prefix)
		} else if len(buckets) == 1 {
			v.ctrl.Navigate(buckets[0].Name, "")
		}
	}()
}

// ScrollIntoView implements browser.Viewport.
func (v *BrowserView) ScrollIntoView(key string) {
	fyne.Do(func() {
		v.state = v.ctrl.Snapshot()
		for i, e := range v.state.View {
			if e.Key == key {
				v.list.ScrollTo(widget.ListItemID(i))
				break
			}
		}
		v.render()
	})
}

// OnListingChanged redraws after the loaded set or view changed.
func (v *BrowserView) OnListingChanged() {
	fyne.Do(func() {
		v.state = v.ctrl.Snapshot()
		v.render()

		// A filter can leave fewer rows than the list needs to scroll; keep
		// paging so the update callback sees the end of the view.
		if v.state.HasMore && len(v.state.View) < constants.ScrollLoadThreshold {
			go v.ctrl.NearBottom(len(v.state.View) - 1)
		}
	})
}

// OnListingFailed reports a failed listing call in the status bar. The
// banner itself is driven by the snapshot.
func (v *BrowserView) OnListingFailed(ev *events.ListingFailedEvent) {
	v.statusBar.SetError(listingFailedStatus(ev))
	v.OnListingChanged()
}

func listingFailedStatus(ev *events.ListingFailedEvent) string {
	msg := fmt.Sprintf("Listing %s failed", models.ObjectURL{Bucket: ev.Bucket, Key: ev.Prefix})
	if ev.Message != "" {
		msg += ": " + ev.Message
	}
	return msg
}

// OnSelectionChanged redraws the selection highlight.
func (v *BrowserView) OnSelectionChanged() {
	v.OnListingChanged()
}

// OnSearchState shows deep-link search progress and its outcome.
func (v *BrowserView) OnSearchState(ev *events.SearchEvent) {
	switch ev.Outcome {
	case events.SearchFound:
		v.statusBar.SetSuccess("Found " + models.BaseName(ev.Key))
	case events.SearchExhausted:
		v.statusBar.SetWarning(fmt.Sprintf("%s was not found after scanning %d items", models.BaseName(ev.Key), ev.Scanned))
	case events.SearchCancelled:
		v.statusBar.SetInfo("Search cancelled")
	}
	v.OnListingChanged()
}

// OnNavigated resets the per-location widgets.
func (v *BrowserView) OnNavigated(ev *events.NavigatedEvent) {
	fyne.Do(func() {
		v.updating = true
		v.filterEntry.SetText("")
		if ev.Bucket != "" {
			v.bucketSelect.SetSelected(ev.Bucket)
		}
		v.updating = false
		v.list.ScrollToTop()
		v.renderBreadcrumbs(ev.Bucket, ev.Prefix)
	})
}

// render copies the current snapshot into the widgets. UI thread only.
func (v *BrowserView) render() {
	st := v.state

	v.selected = make(map[string]struct{}, len(st.Selected))
	for _, k := range st.Selected {
		v.selected[k] = struct{}{}
	}

	v.updating = true
	v.sortSelect.SetSelected(sortLabels[st.Sort.Field])
	v.typeSelect.SetSelected(typeLabel(st.Type))
	v.updating = false
	if st.Sort.Ascending {
		v.orderBtn.SetIcon(theme.MenuDropUpIcon())
	} else {
		v.orderBtn.SetIcon(theme.MenuDropDownIcon())
	}

	if browser.CanGoUp(st.Prefix) {
		v.upBtn.Enable()
	} else {
		v.upBtn.Disable()
	}
	for _, b := range v.actionBtns {
		if st.Bucket == "" {
			b.Disable()
		} else {
			b.Enable()
		}
	}

	if st.Error != "" {
		v.errorLabel.SetText(st.Error)
		v.errorBanner.Show()
	} else {
		v.errorBanner.Hide()
	}

	if st.Bucket == "" {
		v.listStatus.SetText("Choose a bucket or enter a URL")
	} else {
		v.listStatus.SetText(st.StatusText())
	}
	if st.Loading || st.LoadingMore {
		v.loadingBar.Show()
		v.loadingBar.Start()
	} else {
		v.loadingBar.Stop()
		v.loadingBar.Hide()
	}
	if st.HasMore && !st.Loading && !st.LoadingMore && st.Error == "" {
		v.loadMoreBtn.Show()
	} else {
		v.loadMoreBtn.Hide()
	}
	if st.Searching {
		v.cancelBtn.Show()
	} else {
		v.cancelBtn.Hide()
	}

	v.list.Refresh()
}

// renderBreadcrumbs rebuilds the location bar; deep paths collapse the
// middle segments into a "..." menu.
func (v *BrowserView) renderBreadcrumbs(bucket, prefix string) {
	v.breadcrumbBar.Objects = nil
	if bucket == "" {
		v.breadcrumbBar.Refresh()
		return
	}

	crumbs := browser.Breadcrumbs(bucket, prefix)
	add := func(c browser.Breadcrumb, last bool) {
		crumb := c
		btn := widget.NewButton(crumb.Label, func() { v.ctrl.Navigate(bucket, crumb.Prefix) })
		if last {
			btn.Importance = widget.HighImportance
		}
		v.breadcrumbBar.Add(btn)
		if !last {
			v.breadcrumbBar.Add(widget.NewLabel("/"))
		}
	}

	if len(crumbs) <= 4 {
		for i, c := range crumbs {
			add(c, i == len(crumbs)-1)
		}
	} else {
		add(crumbs[0], false)
		skipped := crumbs[1 : len(crumbs)-2]
		var ellipsis *widget.Button
		ellipsis = widget.NewButton("...", func() {
			items := make([]*fyne.MenuItem, 0, len(skipped))
			for _, c := range skipped {
				crumb := c
				items = append(items, fyne.NewMenuItem(crumb.Label, func() {
					v.ctrl.Navigate(bucket, crumb.Prefix)
				}))
			}
			pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(ellipsis)
			widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), v.window.Canvas(),
				fyne.NewPos(pos.X, pos.Y+ellipsis.Size().Height))
		})
		v.breadcrumbBar.Add(ellipsis)
		v.breadcrumbBar.Add(widget.NewLabel("/"))
		add(crumbs[len(crumbs)-2], false)
		add(crumbs[len(crumbs)-1], true)
	}
	v.breadcrumbBar.Refresh()
}

func (v *BrowserView) updateRow(id widget.ListItemID, obj fyne.CanvasObject) {
	if id < 0 || id >= len(v.state.View) {
		return
	}
	entry := v.state.View[id]
	_, selected := v.selected[entry.Key]
	obj.(*entryRow).bind(id, entry, v.state.Prefix, selected, entry.Key == v.state.Primary)

	if v.state.HasMore && id >= len(v.state.View)-constants.ScrollLoadThreshold {
		go v.ctrl.NearBottom(id)
	}
}

func (v *BrowserView) rowClicked(index int, mods browser.Modifiers) {
	v.ctrl.Click(index, mods)
}

func (v *BrowserView) rowOpened(index int) {
	v.handleAction(v.ctrl.Open(index))
}

func (v *BrowserView) rowMenu(index int, pos fyne.Position) {
	if index >= len(v.state.View) {
		return
	}
	entry := v.state.View[index]
	if _, ok := v.selected[entry.Key]; !ok {
		v.ctrl.Click(index, browser.Modifiers{})
	}

	items := []*fyne.MenuItem{
		fyne.NewMenuItem("Open", func() { v.rowOpened(index) }),
		fyne.NewMenuItem("Download...", v.onDownload),
		fyne.NewMenuItem("Rename...", v.onRename),
		fyne.NewMenuItem("Copy URL", v.onCopyURL),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete...", v.onDelete),
	}
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), v.window.Canvas(), pos)
}

func (v *BrowserView) handleAction(action browser.Action) {
	if action.Kind == browser.ActionActivate {
		showPreview(v.ctx, v.engine, v.window, v.state.Bucket, action.Entry, v.statusBar)
	}
}

// TypedKey handles list navigation keys when no entry has focus.
func (v *BrowserView) TypedKey(ev *fyne.KeyEvent) {
	if v.window.Canvas().Focused() != nil {
		return
	}
	current := v.primaryIndex()

	switch ev.Name {
	case fyne.KeyDown, fyne.KeyUp:
		next := current + 1
		if ev.Name == fyne.KeyUp {
			next = current - 1
		}
		if current < 0 {
			next = 0
		}
		if next < 0 || next >= len(v.state.View) {
			return
		}
		v.ctrl.Click(next, browser.Modifiers{Shift: v.shift})
		v.list.ScrollTo(widget.ListItemID(next))
	case fyne.KeyReturn, fyne.KeyEnter:
		if current >= 0 {
			v.rowOpened(current)
		}
	case fyne.KeyBackspace:
		v.ctrl.GoUp()
	case fyne.KeyEscape:
		if !v.ctrl.CancelSearch() {
			v.ctrl.ClearSelection()
		}
	case fyne.KeyF5:
		v.ctrl.Refresh()
	case fyne.KeyDelete:
		v.onDelete()
	}
}

func (v *BrowserView) primaryIndex() int {
	if v.state.Primary == "" {
		return -1
	}
	for i, e := range v.state.View {
		if e.Key == v.state.Primary {
			return i
		}
	}
	return -1
}

func (v *BrowserView) openURL(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	u, err := models.ParseObjectURL(raw)
	if err != nil {
		v.statusBar.SetError(err.Error())
		return
	}
	v.urlEntry.SetText("")
	v.window.Canvas().Unfocus()
	v.ctrl.OpenURL(u, nil)
}

func (v *BrowserView) applySort(cfg browser.SortConfig) {
	v.ctrl.SetSort(cfg)
	v.savePreferences()
}

func (v *BrowserView) savePreferences() {
	st := v.ctrl.Snapshot()
	go v.engine.SaveViewPreferences(st.Sort, st.Type)
}

func typeLabel(t browser.FileType) string {
	s := string(t)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
