// Package tui is the full-screen terminal browser. It drives the same
// listing controller as the desktop window.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/core"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/services"
	ustrings "github.com/objectdesk/objectdesk/internal/util/strings"
)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeGoTo
	modeConfirmDelete
	modePreview
	modeBuckets
	modeHelp
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// Messages for async operations
type busMsg struct {
	event events.Event
}

type scrollMsg struct {
	key string
}

type bucketsMsg struct {
	buckets []models.Bucket
	err     error
}

type previewMsg struct {
	entry models.Entry
	text  string
	err   error
}

type downloadMsg struct {
	count int
	dest  string
	err   error
}

type deleteMsg struct {
	result services.DeleteResult
	err    error
}

// Options configures a Model.
type Options struct {
	Context    context.Context
	Controller *browser.Controller
	Events     *events.EventBus
	// Engine runs buckets, preview, download and delete. Nil leaves only
	// browsing available.
	Engine *core.Engine
	// StartURL is opened first when set; otherwise Bucket/Prefix.
	StartURL    string
	Bucket      string
	Prefix      string
	DownloadDir string
}

// Model is the terminal browser state.
type Model struct {
	ctx    context.Context
	ctrl   *browser.Controller
	engine *core.Engine
	events <-chan events.Event

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	input   textinput.Model
	preview viewport.Model

	state  browser.State
	mode   mode
	cursor int
	offset int
	width  int
	height int

	buckets      []models.Bucket
	bucketCursor int

	previewTitle  string
	pendingDelete []models.Entry

	status      string
	statusKind  statusKind
	startURL    string
	startBucket string
	startPrefix string
	downloadDir string
}

// NewModel creates the browser model and subscribes it to the controller's
// events.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	input := textinput.New()
	input.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		engine:      opts.Engine,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		input:       input,
		preview:     viewport.New(80, 20),
		width:       80,
		height:      24,
		startURL:    opts.StartURL,
		startBucket: opts.Bucket,
		startPrefix: opts.Prefix,
		downloadDir: opts.DownloadDir,
	}
	if m.downloadDir == "" {
		m.downloadDir = "."
	}
	if opts.Controller != nil {
		m.state = opts.Controller.Snapshot()
	}

	if opts.Events != nil {
		var chans []<-chan events.Event
		for _, t := range []events.EventType{
			events.EventListingChanged,
			events.EventListingFailed,
			events.EventSelectionChanged,
			events.EventSearchState,
			events.EventNavigated,
			events.EventTransferCompleted,
			events.EventTransferFailed,
		} {
			chans = append(chans, opts.Events.Subscribe(t))
		}
		m.events = events.Merge(ctx, chans...)
	}
	return m
}

// Init opens the start location and starts listening for events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForEvent()}

	switch {
	case m.startURL != "":
		u, err := parseLocation(m.startURL)
		if err != nil {
			cmds = append(cmds, statusCmd(err.Error(), statusError), m.loadBuckets())
			break
		}
		m.ctrl.OpenURL(u, nil)
	case m.startBucket != "":
		m.ctrl.Navigate(m.startBucket, m.startPrefix)
	default:
		cmds = append(cmds, m.loadBuckets())
	}
	return tea.Batch(cmds...)
}

type statusMsg struct {
	text string
	kind statusKind
}

func statusCmd(text string, kind statusKind) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, kind: kind} }
}

// waitForEvent reads one event from the bus subscription.
func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return busMsg{event: ev}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.preview.Width = msg.Width - 2
		m.preview.Height = m.listHeight()
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case busMsg:
		m.handleEvent(msg.event)
		return m, m.waitForEvent()

	case scrollMsg:
		if i := indexOf(m.state.View, msg.key); i >= 0 {
			m.cursor = i
			m.ensureVisible()
		}
		return m, nil

	case statusMsg:
		m.setStatus(msg.text, msg.kind)
		return m, nil

	case bucketsMsg:
		if msg.err != nil {
			m.setStatus("Could not list buckets: "+msg.err.Error(), statusError)
			return m, nil
		}
		m.buckets = msg.buckets
		m.bucketCursor = 0
		for i, b := range m.buckets {
			if b.Name == m.state.Bucket {
				m.bucketCursor = i
			}
		}
		m.mode = modeBuckets
		if len(m.buckets) == 0 {
			m.setStatus("No buckets visible with these credentials", statusWarning)
		}
		return m, nil

	case previewMsg:
		switch {
		case errors.Is(msg.err, services.ErrNotText), errors.Is(msg.err, services.ErrTooLarge):
			m.setStatus(msg.entry.Name()+" cannot be shown as text; press d to download", statusWarning)
		case msg.err != nil:
			m.setStatus("Could not open "+msg.entry.Name()+": "+msg.err.Error(), statusError)
		default:
			m.previewTitle = models.ObjectURL{Bucket: m.state.Bucket, Key: msg.entry.Key}.String()
			m.preview.SetContent(msg.text)
			m.preview.GotoTop()
			m.mode = modePreview
			m.setStatus("", statusInfo)
		}
		return m, nil

	case downloadMsg:
		if msg.err != nil {
			m.setStatus("Download failed: "+msg.err.Error(), statusError)
		} else {
			m.setStatus(fmt.Sprintf("Downloading %d %s to %s", msg.count, ustrings.Pluralize("file", int64(msg.count)), msg.dest), statusInfo)
		}
		return m, nil

	case deleteMsg:
		err := msg.err
		if err == nil {
			err = msg.result.Err()
		}
		if err != nil {
			m.setStatus("Delete incomplete: "+err.Error(), statusError)
		} else {
			m.setStatus(fmt.Sprintf("Deleted %d %s", msg.result.Deleted, ustrings.Pluralize("object", int64(msg.result.Deleted))), statusSuccess)
		}
		m.ctrl.Refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleEvent re-reads the controller after a bus event.
func (m *Model) handleEvent(ev events.Event) {
	switch e := ev.(type) {
	case *events.NavigatedEvent:
		m.cursor = 0
		m.offset = 0
		if m.mode == modeBuckets {
			m.mode = modeBrowse
		}
		if m.engine != nil && e.Bucket != "" {
			go m.engine.RememberLocation(e.Bucket, e.Prefix)
		}
	case *events.SearchEvent:
		switch e.Outcome {
		case events.SearchFound:
			m.setStatus("Selected "+models.BaseName(e.Key), statusSuccess)
		case events.SearchExhausted:
			m.setStatus(models.BaseName(e.Key)+" was not found in this folder", statusWarning)
		case events.SearchCancelled:
			m.setStatus("Search cancelled", statusInfo)
		}
	case *events.TransferEvent:
		switch e.Type() {
		case events.EventTransferCompleted:
			m.setStatus(e.Kind+" finished: "+e.Name, statusSuccess)
		case events.EventTransferFailed:
			msg := e.Kind + " failed: " + e.Name
			if e.Error != nil {
				msg += ": " + e.Error.Error()
			}
			m.setStatus(msg, statusError)
		}
		return
	}

	m.state = m.ctrl.Snapshot()
	if se, ok := ev.(*events.SearchEvent); ok && se.Outcome == events.SearchFound {
		if i := indexOf(m.state.View, m.state.Primary); i >= 0 {
			m.cursor = i
		}
	}
	m.clampCursor()
	m.ensureVisible()
	m.checkNearBottom()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeFilter, modeGoTo:
		return m.updateInput(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	case modePreview:
		return m.updatePreview(msg)
	case modeBuckets:
		return m.updateBuckets(msg)
	case modeHelp:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.mode = modeBrowse
		return m, nil
	}
	return m.updateBrowse(msg)
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Up):
		m.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m.moveCursor(1)
	case key.Matches(msg, k.ExtendUp):
		m.extendSelection(-1)
	case key.Matches(msg, k.ExtendDown):
		m.extendSelection(1)
	case key.Matches(msg, k.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, k.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, k.Home):
		m.moveCursor(-m.cursor)
	case key.Matches(msg, k.End):
		m.moveCursor(len(m.state.View) - 1 - m.cursor)

	case key.Matches(msg, k.Toggle):
		m.ctrl.Click(m.cursor, browser.Modifiers{Platform: true})
		m.state = m.ctrl.Snapshot()
		m.moveCursor(1)

	case key.Matches(msg, k.Open):
		return m.openCursor()

	case key.Matches(msg, k.Back):
		if !m.ctrl.GoUp() && m.engine != nil {
			return m, m.loadBuckets()
		}

	case key.Matches(msg, k.Buckets):
		return m, m.loadBuckets()

	case key.Matches(msg, k.Filter):
		m.mode = modeFilter
		m.input.Prompt = "Filter: "
		m.input.Placeholder = "name contains..."
		m.input.SetValue(m.state.Query)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, k.GoTo):
		m.mode = modeGoTo
		m.input.Prompt = "Go to: "
		m.input.Placeholder = "s3://bucket/prefix/ or s3://bucket/key"
		m.input.SetValue(models.ObjectURL{Bucket: m.state.Bucket, Key: m.state.Prefix}.String())
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, k.Sort):
		cfg := m.state.Sort
		cfg.Field = nextSortField(cfg.Field)
		m.ctrl.SetSort(cfg)
		return m, m.saveViewPreferences()
	case key.Matches(msg, k.Order):
		cfg := m.state.Sort
		cfg.Ascending = !cfg.Ascending
		m.ctrl.SetSort(cfg)
		return m, m.saveViewPreferences()
	case key.Matches(msg, k.Type):
		m.ctrl.SetFileType(nextFileType(m.state.Type))
		return m, m.saveViewPreferences()

	case key.Matches(msg, k.Refresh):
		m.ctrl.Refresh()
	case key.Matches(msg, k.Retry):
		if !m.ctrl.Retry() {
			m.setStatus("Nothing to retry", statusInfo)
		}
	case key.Matches(msg, k.LoadMore):
		if !m.ctrl.LoadMore() && !m.state.HasMore {
			m.setStatus("All items loaded", statusInfo)
		}

	case key.Matches(msg, k.Download):
		return m, m.download()
	case key.Matches(msg, k.Delete):
		targets := m.targets()
		if len(targets) == 0 || m.engine == nil {
			return m, nil
		}
		m.pendingDelete = targets
		m.mode = modeConfirmDelete

	case key.Matches(msg, k.Cancel):
		switch {
		case m.ctrl.CancelSearch():
		case len(m.state.Selected) > 0:
			m.ctrl.ClearSelection()
			m.state = m.ctrl.Snapshot()
		case m.state.Error != "":
			m.ctrl.DismissError()
		case m.state.Query != "":
			m.ctrl.SetQuery("")
		}

	case key.Matches(msg, k.Help):
		m.mode = modeHelp
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.mode == modeFilter {
			m.ctrl.SetQuery("")
		}
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil

	case key.Matches(msg, m.keys.InputAccept):
		value := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		if m.mode == modeGoTo {
			m.mode = modeBrowse
			u, err := parseLocation(value)
			if err != nil {
				m.setStatus(err.Error(), statusError)
				return m, nil
			}
			m.ctrl.OpenURL(u, nil)
			return m, nil
		}
		m.mode = modeBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeFilter {
		m.ctrl.SetQuery(m.input.Value())
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		entries := m.pendingDelete
		m.pendingDelete = nil
		m.mode = modeBrowse
		m.setStatus("Deleting...", statusInfo)
		return m, m.deleteEntries(entries)
	case key.Matches(msg, m.keys.ConfirmNo):
		m.pendingDelete = nil
		m.mode = modeBrowse
	}
	return m, nil
}

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "backspace", "left", "h":
		m.mode = modeBrowse
		m.preview.SetContent("")
		return m, nil
	}
	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m Model) updateBuckets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Up):
		if m.bucketCursor > 0 {
			m.bucketCursor--
		}
	case key.Matches(msg, k.Down):
		if m.bucketCursor < len(m.buckets)-1 {
			m.bucketCursor++
		}
	case key.Matches(msg, k.Open):
		if m.bucketCursor < len(m.buckets) {
			m.ctrl.Navigate(m.buckets[m.bucketCursor].Name, "")
			m.mode = modeBrowse
		}
	case key.Matches(msg, k.GoTo):
		m.mode = modeGoTo
		m.input.Prompt = "Go to: "
		m.input.SetValue("s3://")
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, k.Cancel):
		if m.state.Bucket != "" {
			m.mode = modeBrowse
		}
	}
	return m, nil
}

// openCursor opens the row under the cursor: folders are entered, text
// objects previewed.
func (m Model) openCursor() (tea.Model, tea.Cmd) {
	action := m.ctrl.Open(m.cursor)
	if action.Kind != browser.ActionActivate {
		return m, nil
	}
	entry := action.Entry
	if m.engine == nil {
		return m, nil
	}
	if entry.Size > constants.PreviewMaxBytes {
		m.setStatus(fmt.Sprintf("%s is %s, too large to preview; press d to download", entry.Name(), entry.SizeString()), statusWarning)
		return m, nil
	}
	m.setStatus("Opening "+entry.Name()+"...", statusInfo)

	ctx, engine, bucket := m.ctx, m.engine, m.state.Bucket
	return m, func() tea.Msg {
		text, err := engine.FileService().ReadText(ctx, bucket, entry.Key)
		return previewMsg{entry: entry, text: text, err: err}
	}
}

func (m *Model) moveCursor(delta int) {
	n := len(m.state.View)
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor += delta
	m.clampCursor()
	m.ensureVisible()
	m.checkNearBottom()
}

// extendSelection moves the cursor and selects the range from the anchor.
func (m *Model) extendSelection(delta int) {
	if len(m.state.View) == 0 {
		return
	}
	if m.state.Anchor < 0 {
		m.ctrl.Click(m.cursor, browser.Modifiers{})
	}
	m.moveCursor(delta)
	m.ctrl.Click(m.cursor, browser.Modifiers{Shift: true})
	m.state = m.ctrl.Snapshot()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.View) {
		m.cursor = len(m.state.View) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// checkNearBottom asks for the next page once the last visible row is close
// to the end of what is loaded.
func (m *Model) checkNearBottom() {
	if m.ctrl == nil || !m.state.HasMore {
		return
	}
	last := m.offset + m.listHeight() - 1
	if last >= len(m.state.View) {
		last = len(m.state.View) - 1
	}
	m.ctrl.NearBottom(last)
}

// listHeight is the number of rows available to the listing.
func (m Model) listHeight() int {
	// title, view info, column header, status, help
	h := m.height - 5
	if m.state.Error != "" {
		h--
	}
	if m.mode == modeFilter || m.mode == modeGoTo || m.mode == modeConfirmDelete {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

// targets returns the selected entries, or the entry under the cursor when
// nothing is selected.
func (m Model) targets() []models.Entry {
	if entries := m.ctrl.SelectedEntries(); len(entries) > 0 {
		return entries
	}
	if m.cursor < len(m.state.View) {
		return []models.Entry{m.state.View[m.cursor]}
	}
	return nil
}

func (m *Model) setStatus(text string, kind statusKind) {
	m.status = text
	m.statusKind = kind
}

func (m Model) loadBuckets() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		buckets, err := engine.FileService().ListBuckets(ctx)
		return bucketsMsg{buckets: buckets, err: err}
	}
}

func (m Model) download() tea.Cmd {
	targets := m.targets()
	if len(targets) == 0 || m.engine == nil {
		return nil
	}
	ctx, engine, dest := m.ctx, m.engine, m.downloadDir
	bucket, prefix := m.state.Bucket, m.state.Prefix
	return func() tea.Msg {
		n, err := engine.Download(ctx, bucket, prefix, targets, dest)
		return downloadMsg{count: n, dest: dest, err: err}
	}
}

func (m Model) deleteEntries(entries []models.Entry) tea.Cmd {
	ctx, engine, bucket := m.ctx, m.engine, m.state.Bucket
	return func() tea.Msg {
		result, err := engine.FileService().Delete(ctx, bucket, entries)
		return deleteMsg{result: result, err: err}
	}
}

func (m Model) saveViewPreferences() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	engine, ctrl := m.engine, m.ctrl
	return func() tea.Msg {
		st := ctrl.Snapshot()
		engine.SaveViewPreferences(st.Sort, st.Type)
		return nil
	}
}

// Cursor returns the cursor row.
func (m Model) Cursor() int { return m.cursor }

// Mode reports whether an input line or dialog is open.
func (m Model) Mode() string {
	switch m.mode {
	case modeFilter:
		return "filter"
	case modeGoTo:
		return "goto"
	case modeConfirmDelete:
		return "confirm"
	case modePreview:
		return "preview"
	case modeBuckets:
		return "buckets"
	case modeHelp:
		return "help"
	}
	return "browse"
}

// Status returns the status line text.
func (m Model) Status() string { return m.status }

func indexOf(view []models.Entry, key string) int {
	if key == "" {
		return -1
	}
	for i, e := range view {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func nextSortField(f browser.SortField) browser.SortField {
	switch f {
	case browser.SortByName:
		return browser.SortBySize
	case browser.SortBySize:
		return browser.SortByModified
	default:
		return browser.SortByName
	}
}

func nextFileType(t browser.FileType) browser.FileType {
	types := browser.FileTypes()
	for i, ft := range types {
		if ft == t {
			return types[(i+1)%len(types)]
		}
	}
	return browser.TypeAll
}

// parseLocation accepts object URLs and bare "bucket/key" paths.
func parseLocation(s string) (models.ObjectURL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.ObjectURL{}, errors.New("enter a location such as s3://bucket/prefix/")
	}
	if !strings.Contains(s, "://") {
		s = "s3://" + strings.TrimPrefix(s, "/")
	}
	return models.ParseObjectURL(s)
}
