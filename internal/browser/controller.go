// Package browser implements the incremental listing engine behind every front
// end: paged loading of a bucket location, the sorted and filtered view over
// what has been loaded, multi-selection, and deep-link search.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/models"
)

// Viewport is implemented by the view layer so the controller can bring a
// found entry on screen.
type Viewport interface {
	ScrollIntoView(key string)
}

// RefreshSource delivers "reload the current location" requests.
// *events.EventBus satisfies it.
type RefreshSource interface {
	OnRefresh(fn func()) (stop func())
}

// Options configures a Controller.
type Options struct {
	Lister   storage.Lister
	EventBus *events.EventBus
	Refresh  RefreshSource
	Viewport Viewport
	PageSize int
	Logger   *logging.Logger
	Sort     SortConfig
	Type     FileType
}

// Controller owns the loaded set for one browser pane.
// All methods are safe for concurrent use; listing calls run on their own
// goroutines and observers are notified through the event bus.
type Controller struct {
	mu       sync.Mutex
	lister   storage.Lister
	eventBus *events.EventBus
	logger   *logging.Logger
	pageSize int
	viewport Viewport

	ctx         context.Context
	cancel      context.CancelFunc
	cancelLoad  context.CancelFunc
	stopRefresh func()
	wg          sync.WaitGroup

	bucket     string
	prefix     string
	generation uint64

	folders []models.Entry
	files   []models.Entry
	loaded  map[string]struct{}

	token       string
	hasMore     bool
	loading     bool
	loadingMore bool
	lastErr     string
	retryReset  bool

	sort     SortConfig
	fileType FileType
	query    string
	view     []models.Entry

	selection *Selection
	search    *searchState
}

// NewController creates a controller. Nothing is listed until Navigate.
func NewController(opts Options) *Controller {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > constants.DefaultMaxKeys {
		pageSize = constants.DefaultMaxKeys
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("browser", opts.EventBus)
	}
	sortCfg := opts.Sort
	if sortCfg.Field == "" {
		sortCfg = DefaultSort
	}
	fileType := opts.Type
	if fileType == "" {
		fileType = TypeAll
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		lister:    opts.Lister,
		eventBus:  opts.EventBus,
		logger:    logger,
		pageSize:  pageSize,
		viewport:  opts.Viewport,
		ctx:       ctx,
		cancel:    cancel,
		loaded:    make(map[string]struct{}),
		sort:      sortCfg,
		fileType:  fileType,
		selection: NewSelection(),
	}

	if opts.Refresh != nil {
		c.stopRefresh = opts.Refresh.OnRefresh(c.Refresh)
	}
	return c
}

// Close stops the refresh subscription, abandons in-flight loads and resolves
// any pending deep-link request as cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	fx := &effects{}
	c.resolveSearch(fx, events.SearchCancelled)
	c.abandonLoads()
	stop := c.stopRefresh
	c.stopRefresh = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	c.cancel()
	c.flush(fx)
}

// SetViewport attaches the view that receives scroll requests.
func (c *Controller) SetViewport(v Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = v
}

// Wait blocks until no listing call is in flight. Loads chained from a
// landing page (deep-link search) are waited for as well.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Navigate moves to bucket/prefix in one step: selection, search text and
// pagination are reset and the first page is requested. Responses still in
// flight for the previous location are discarded when they land. prefix is
// listed as given, apart from a missing trailing slash; callers holding typed
// input clean it with NormalizePrefix first.
func (c *Controller) Navigate(bucket, prefix string) {
	prefix = folderPrefix(prefix)

	c.mu.Lock()
	fx := &effects{}
	c.resolveSearch(fx, events.SearchCancelled)

	c.bucket = bucket
	c.prefix = prefix
	c.folders = nil
	c.files = nil
	c.loaded = make(map[string]struct{})
	c.token = ""
	c.hasMore = false
	c.lastErr = ""
	c.query = ""
	c.selection.Clear()
	c.rebuildView()

	fx.publish(events.NewNavigatedEvent(bucket, prefix))
	fx.publish(c.selectionEvent())
	if bucket != "" {
		c.startLoad(true)
	} else {
		c.abandonLoads()
	}
	fx.publish(c.listingEvent())
	c.mu.Unlock()

	c.logger.Debug().Str("bucket", bucket).Str("prefix", prefix).Msg("navigate")
	c.flush(fx)
}

// GoUp navigates to the parent prefix. Returns false at the bucket root.
func (c *Controller) GoUp() bool {
	c.mu.Lock()
	bucket, prefix := c.bucket, c.prefix
	c.mu.Unlock()

	parent, ok := ParentPrefix(prefix)
	if !ok {
		return false
	}
	c.Navigate(bucket, parent)
	return true
}

// Refresh reloads page 1 of the current location without changing it.
// The loaded set stays visible until the new first page replaces it, and
// selected entries that are still present stay selected.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.bucket == "" {
		c.mu.Unlock()
		return
	}
	fx := &effects{}
	c.lastErr = ""
	c.startLoad(true)
	fx.publish(c.listingEvent())
	bucket, prefix := c.bucket, c.prefix
	c.mu.Unlock()

	c.logger.Debug().Str("bucket", bucket).Str("prefix", prefix).Msg("refresh")
	c.flush(fx)
}

// LoadMore requests the next page when more exist, nothing is in flight and
// no error is waiting to be retried.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	fx := &effects{}
	ok := c.canLoadMore()
	if ok {
		c.startLoad(false)
		fx.publish(c.listingEvent())
	}
	c.mu.Unlock()

	c.flush(fx)
	return ok
}

// NearBottom is called by the view with the index of the last visible row.
// It triggers LoadMore once the row is within the scroll threshold of the end.
func (c *Controller) NearBottom(lastVisible int) bool {
	c.mu.Lock()
	near := lastVisible >= len(c.view)-constants.ScrollLoadThreshold
	c.mu.Unlock()

	if !near {
		return false
	}
	return c.LoadMore()
}

// Retry repeats the load that failed last.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	if c.lastErr == "" || c.loading || c.loadingMore || c.bucket == "" {
		c.mu.Unlock()
		return false
	}
	fx := &effects{}
	reset := c.retryReset
	c.lastErr = ""
	c.startLoad(reset)
	fx.publish(c.listingEvent())
	c.mu.Unlock()

	c.flush(fx)
	return true
}

// DismissError hides the inline listing error without retrying.
func (c *Controller) DismissError() {
	c.mu.Lock()
	fx := &effects{}
	if c.lastErr != "" {
		c.lastErr = ""
		fx.publish(c.listingEvent())
	}
	c.mu.Unlock()
	c.flush(fx)
}

func (c *Controller) canLoadMore() bool {
	return c.bucket != "" && c.hasMore && !c.loading && !c.loadingMore && c.lastErr == ""
}

// startLoad issues a listing call on its own goroutine. Caller holds c.mu.
func (c *Controller) startLoad(reset bool) {
	var token string
	if reset {
		c.abandonLoads()
		c.loading = true
	} else {
		token = c.token
		c.loadingMore = true
	}

	ctx, cancel := context.WithCancel(c.ctx)
	if reset {
		c.cancelLoad = cancel
	}

	gen := c.generation
	req := storage.ListRequest{
		Bucket:            c.bucket,
		Prefix:            c.prefix,
		Delimiter:         constants.Delimiter,
		MaxKeys:           c.pageSize,
		ContinuationToken: token,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		page, err := c.lister.ListPage(ctx, req)
		c.landPage(gen, reset, req, page, err)
	}()
}

// abandonLoads cancels the in-flight reset load, if any, and clears the flags
// so the next generation starts clean.
func (c *Controller) abandonLoads() {
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.generation++
	c.loading = false
	c.loadingMore = false
}

func (c *Controller) landPage(gen uint64, reset bool, req storage.ListRequest, page *models.Page, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug().Str("prefix", req.Prefix).Msg("discarding stale listing response")
		return
	}

	fx := &effects{}
	if reset {
		c.loading = false
		c.cancelLoad = nil
	} else {
		c.loadingMore = false
	}

	if err != nil {
		c.lastErr = err.Error()
		c.retryReset = reset
		fx.publish(events.NewListingFailedEvent(c.bucket, c.prefix, c.lastErr))
		fx.publish(c.listingEvent())
		c.publishSearchProgress(fx)
		c.mu.Unlock()

		c.logger.Warn().Err(err).Str("bucket", req.Bucket).Str("prefix", req.Prefix).Bool("reset", reset).Msg("listing failed")
		c.flush(fx)
		return
	}

	if reset {
		c.replaceLoaded(page)
		if c.selection.Retain(c.isLoaded) {
			fx.publish(c.selectionEvent())
		}
	} else {
		c.appendFiles(page.Files())
	}
	c.hasMore = page.IsTruncated && page.ContinuationToken != ""
	c.token = page.ContinuationToken
	c.rebuildView()

	c.logger.Debug().
		Str("prefix", req.Prefix).
		Int("objects", len(page.Objects)).
		Int("prefixes", len(page.Prefixes)).
		Bool("truncated", page.IsTruncated).
		Msg("page loaded")

	fx.publish(c.listingEvent())
	c.advanceSearch(fx)
	c.mu.Unlock()

	c.flush(fx)
}

func (c *Controller) replaceLoaded(page *models.Page) {
	c.loaded = make(map[string]struct{})
	c.folders = nil
	for _, f := range page.Folders() {
		if _, dup := c.loaded[f.Key]; dup {
			continue
		}
		c.loaded[f.Key] = struct{}{}
		c.folders = append(c.folders, f)
	}
	c.files = nil
	c.appendFiles(page.Files())
}

func (c *Controller) appendFiles(files []models.Entry) {
	for _, f := range files {
		if _, dup := c.loaded[f.Key]; dup {
			continue
		}
		c.loaded[f.Key] = struct{}{}
		c.files = append(c.files, f)
	}
}

func (c *Controller) isLoaded(key string) bool {
	_, ok := c.loaded[key]
	return ok
}

func (c *Controller) rebuildView() {
	all := make([]models.Entry, 0, len(c.folders)+len(c.files))
	all = append(all, c.folders...)
	all = append(all, c.files...)
	c.view = BuildView(all, ViewOptions{
		Prefix: c.prefix,
		Type:   c.fileType,
		Query:  c.query,
		Sort:   c.sort,
	})
}

// SetSort changes the ordering of the view.
func (c *Controller) SetSort(cfg SortConfig) {
	if cfg.Field == "" {
		cfg.Field = SortByName
	}
	c.updateView(func() { c.sort = cfg })
}

// SetFileType changes the type filter.
func (c *Controller) SetFileType(t FileType) {
	if t == "" {
		t = TypeAll
	}
	c.updateView(func() { c.fileType = t })
}

// SetQuery changes the text filter.
func (c *Controller) SetQuery(q string) {
	c.updateView(func() { c.query = q })
}

func (c *Controller) updateView(change func()) {
	c.mu.Lock()
	change()
	c.rebuildView()
	fx := &effects{}
	fx.publish(c.listingEvent())
	c.mu.Unlock()
	c.flush(fx)
}

// Click applies a click on displayed row index with the given modifiers.
func (c *Controller) Click(index int, mods Modifiers) {
	c.mu.Lock()
	fx := &effects{}
	if c.selection.Click(c.view, index, mods) {
		fx.publish(c.selectionEvent())
	}
	c.mu.Unlock()
	c.flush(fx)
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	fx := &effects{}
	c.selection.Clear()
	fx.publish(c.selectionEvent())
	c.mu.Unlock()
	c.flush(fx)
}

// ActionKind is the result of opening a row.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionNavigate
	ActionActivate
)

// Action tells the front end what opening a row did.
type Action struct {
	Kind  ActionKind
	Entry models.Entry
}

// Open handles a double click or Enter on displayed row index. Folders are
// navigated into; files are returned for activation with the selection
// left untouched.
func (c *Controller) Open(index int) Action {
	c.mu.Lock()
	if index < 0 || index >= len(c.view) {
		c.mu.Unlock()
		return Action{}
	}
	entry := c.view[index]
	bucket := c.bucket
	c.mu.Unlock()

	if entry.IsPrefix {
		c.Navigate(bucket, entry.Key)
		return Action{Kind: ActionNavigate, Entry: entry}
	}
	return Action{Kind: ActionActivate, Entry: entry}
}

// OpenURL navigates to the location an object URL names. A folder URL is
// typed input and is normalized. URLs naming an object navigate to the
// object's exact parent and select it through a deep-link request.
func (c *Controller) OpenURL(u models.ObjectURL, handled func(events.SearchOutcome)) {
	if u.IsPrefix() {
		c.Navigate(u.Bucket, NormalizePrefix(u.Key))
		if handled != nil {
			handled(events.SearchFound)
		}
		return
	}
	c.Navigate(u.Bucket, u.ParentPrefix())
	c.RequestSelection(u.Key, handled)
}

// State is a consistent snapshot of the controller for rendering.
type State struct {
	Bucket      string
	Prefix      string
	View        []models.Entry
	Loaded      int
	HasMore     bool
	Loading     bool
	LoadingMore bool
	Error       string
	Query       string
	Sort        SortConfig
	Type        FileType
	Primary     string
	Selected    []string
	Anchor      int
	Searching   bool
	SearchKey   string
	Scanned     int
}

// Displayed returns the number of rows in the view.
func (s State) Displayed() int { return len(s.View) }

// AllLoaded reports whether every page of the location has been fetched.
func (s State) AllLoaded() bool { return !s.HasMore }

// StatusText is the status bar summary.
func (s State) StatusText() string {
	switch {
	case s.Loading && s.Loaded == 0:
		return "Loading..."
	case s.Searching:
		return fmt.Sprintf("Searching for %s (%d scanned)...", models.BaseName(s.SearchKey), s.Scanned)
	case s.HasMore:
		return fmt.Sprintf("Showing %d items (more available)", len(s.View))
	default:
		return fmt.Sprintf("%d items", len(s.View))
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Bucket:      c.bucket,
		Prefix:      c.prefix,
		View:        append([]models.Entry(nil), c.view...),
		Loaded:      len(c.folders) + len(c.files),
		HasMore:     c.hasMore,
		Loading:     c.loading,
		LoadingMore: c.loadingMore,
		Error:       c.lastErr,
		Query:       c.query,
		Sort:        c.sort,
		Type:        c.fileType,
		Primary:     c.selection.Primary(),
		Selected:    c.selection.Keys(),
		Anchor:      c.selection.Anchor(),
	}
	if c.search != nil {
		st.Searching = c.search.searching
		st.SearchKey = c.search.key
		st.Scanned = c.search.scanned
	}
	return st
}

// Location returns the current bucket and prefix.
func (c *Controller) Location() (bucket, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bucket, c.prefix
}

// Displayed returns a copy of the view.
func (c *Controller) Displayed() []models.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Entry(nil), c.view...)
}

// DisplayedCount returns the number of rows in the view.
func (c *Controller) DisplayedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.view)
}

// AllLoaded reports whether no further pages exist.
func (c *Controller) AllLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.hasMore
}

// SelectedEntry returns the primary selected entry.
func (c *Controller) SelectedEntry() (models.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entryByKey(c.selection.Primary())
}

// SelectedEntries returns every selected entry in selection order.
func (c *Controller) SelectedEntries() []models.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.selection.Keys()
	out := make([]models.Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.entryByKey(k); ok {
			out = append(out, e)
		}
	}
	return out
}

func (c *Controller) entryByKey(key string) (models.Entry, bool) {
	if key == "" {
		return models.Entry{}, false
	}
	for _, e := range c.folders {
		if e.Key == key {
			return e, true
		}
	}
	for _, e := range c.files {
		if e.Key == key {
			return e, true
		}
	}
	return models.Entry{}, false
}

func (c *Controller) indexInView(key string) int {
	for i, e := range c.view {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func (c *Controller) listingEvent() events.Event {
	return events.NewListingEvent(c.bucket, c.prefix, len(c.view), len(c.folders)+len(c.files), c.hasMore, c.loading, c.loadingMore)
}

func (c *Controller) selectionEvent() events.Event {
	return events.NewSelectionEvent(c.selection.Primary(), c.selection.Keys())
}

// effects collects notifications produced under c.mu so they can be
// delivered after it is released.
type effects struct {
	events   []events.Event
	resolved []resolution
	scrollTo string
	viewport Viewport
}

type resolution struct {
	handled func(events.SearchOutcome)
	outcome events.SearchOutcome
}

func (fx *effects) publish(e events.Event) {
	fx.events = append(fx.events, e)
}

func (c *Controller) flush(fx *effects) {
	if c.eventBus != nil {
		for _, e := range fx.events {
			c.eventBus.Publish(e)
		}
	}
	if fx.scrollTo != "" && fx.viewport != nil {
		fx.viewport.ScrollIntoView(fx.scrollTo)
	}
	for _, r := range fx.resolved {
		if r.handled != nil {
			r.handled(r.outcome)
		}
	}
}
