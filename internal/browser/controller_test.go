package browser

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/events"
)

func newTestController(t *testing.T, lister *fakeLister, opts ...func(*Options)) *Controller {
	t.Helper()
	o := Options{Lister: lister}
	for _, fn := range opts {
		fn(&o)
	}
	c := NewController(o)
	t.Cleanup(func() {
		c.Close()
		c.Wait()
	})
	return c
}

func fileKeys(c *Controller) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return keys(c.files)
}

func folderKeys(c *Controller) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return keys(c.folders)
}

func TestController_PaginationAppendsFilesInFetchOrder(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", []string{"b/", "a/"}, []string{"x1", "x2"}, []string{"x3"}, []string{"x4"})
	lister.pages[""][1].Prefixes = []string{"late/"}
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()

	st := c.Snapshot()
	assert.Equal(t, 4, st.Loaded)
	assert.True(t, st.HasMore)
	assert.False(t, st.AllLoaded())

	require.True(t, c.LoadMore())
	c.Wait()
	require.True(t, c.LoadMore())
	c.Wait()

	assert.Equal(t, []string{"x1", "x2", "x3", "x4"}, fileKeys(c))
	assert.Equal(t, []string{"b/", "a/"}, folderKeys(c), "folders come from the reset page only")
	assert.True(t, c.AllLoaded())
	assert.False(t, c.LoadMore(), "no further pages")

	require.Equal(t, 3, lister.callCount())
	first := lister.call(0)
	assert.Equal(t, "bkt", first.Bucket)
	assert.Equal(t, "/", first.Delimiter)
	assert.Equal(t, 1000, first.MaxKeys)
	assert.Empty(t, first.ContinuationToken)
	assert.Equal(t, "page-1", lister.call(1).ContinuationToken)
	assert.Equal(t, "page-2", lister.call(2).ContinuationToken)
}

func TestController_ResetReplacesLoadedSet(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("one/", []string{"one/sub/"}, []string{"one/a"}, []string{"one/b"})
	lister.addPages("two/", nil, []string{"two/c"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "one/")
	c.Wait()
	c.LoadMore()
	c.Wait()
	require.Equal(t, []string{"one/a", "one/b"}, fileKeys(c))

	c.Navigate("bkt", "two")
	c.Wait()

	bucket, prefix := c.Location()
	assert.Equal(t, "bkt", bucket)
	assert.Equal(t, "two/", prefix)
	assert.Equal(t, []string{"two/c"}, fileKeys(c))
	assert.Empty(t, folderKeys(c))
	assert.True(t, c.AllLoaded())
}

func TestController_StaleResponseIsDiscarded(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("old/", nil, []string{"old/slow.txt"})
	lister.addPages("new/", nil, []string{"new/fast.txt"})
	release := lister.holdCall(1)
	c := newTestController(t, lister)

	c.Navigate("bkt", "old/")
	c.Navigate("bkt", "new/")
	close(release)
	c.Wait()

	st := c.Snapshot()
	assert.Equal(t, "new/", st.Prefix)
	assert.Equal(t, []string{"new/fast.txt"}, keys(st.View))
	assert.False(t, st.Loading)
}

func TestController_StaleNextPageDiscardedAfterRefresh(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", nil, []string{"a"}, []string{"b"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()

	release := lister.holdCall(2)
	require.True(t, c.LoadMore())
	c.Refresh()
	close(release)
	c.Wait()

	assert.Equal(t, []string{"a"}, fileKeys(c), "next page issued before the refresh must not be merged")
	assert.True(t, c.Snapshot().HasMore)
}

func TestController_ListingFailurePreservesSetAndRetries(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", nil, []string{"f1"}, []string{"f2"})
	lister.failCall(2, errors.New("connection reset"))
	bus := events.NewEventBus(16)
	defer bus.Close()
	failures := bus.Subscribe(events.EventListingFailed)
	c := newTestController(t, lister, func(o *Options) { o.EventBus = bus })

	c.Navigate("bkt", "")
	c.Wait()
	require.True(t, c.LoadMore())
	c.Wait()

	st := c.Snapshot()
	assert.Equal(t, "connection reset", st.Error)
	assert.Equal(t, []string{"f1"}, fileKeys(c), "loaded set survives a failure")
	assert.True(t, st.HasMore)
	assert.False(t, c.LoadMore(), "scrolling does not retry automatically")

	select {
	case ev := <-failures:
		assert.Equal(t, "connection reset", ev.(*events.ListingFailedEvent).Message)
	case <-time.After(time.Second):
		t.Fatal("no listing_failed event")
	}

	require.True(t, c.Retry())
	c.Wait()

	assert.Empty(t, c.Snapshot().Error)
	assert.Equal(t, []string{"f1", "f2"}, fileKeys(c))
	assert.Equal(t, "page-1", lister.call(2).ContinuationToken)
	assert.False(t, c.Retry(), "nothing to retry")
}

func TestController_FailedResetRetriesFirstPage(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", []string{"dir/"}, []string{"f1"})
	lister.failCall(1, errors.New("access denied"))
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()
	require.Equal(t, "access denied", c.Snapshot().Error)

	c.DismissError()
	assert.Empty(t, c.Snapshot().Error)
	assert.False(t, c.Retry(), "dismissed errors are not retried")

	lister.failCall(2, errors.New("access denied"))
	c.Refresh()
	c.Wait()
	require.True(t, c.Retry())
	c.Wait()

	assert.Empty(t, lister.call(2).ContinuationToken)
	assert.Equal(t, []string{"dir/"}, folderKeys(c))
	assert.Equal(t, []string{"f1"}, fileKeys(c))
}

func TestController_ContinuationGate(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", nil, []string{"a"}, []string{"b"}, []string{"c"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()

	release := lister.holdCall(2)
	require.True(t, c.LoadMore())
	assert.False(t, c.LoadMore())
	assert.False(t, c.NearBottom(0))
	assert.True(t, c.Snapshot().LoadingMore)
	close(release)
	c.Wait()

	assert.Equal(t, 2, lister.callCount())
}

func TestController_NearBottom(t *testing.T) {
	var first []string
	for i := 0; i < 30; i++ {
		first = append(first, fmt.Sprintf("file-%02d", i))
	}
	lister := newFakeLister()
	lister.addPages("", nil, first, []string{"file-30"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()

	assert.False(t, c.NearBottom(5))
	assert.True(t, c.NearBottom(25))
	c.Wait()
	assert.Equal(t, 31, c.DisplayedCount())
	assert.False(t, c.NearBottom(30), "all pages loaded")
}

func TestController_NavigateResetsSelectionAndQuery(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", []string{"docs/"}, []string{"readme.md", "notes.txt"})
	lister.addPages("docs/", nil, []string{"docs/guide.md"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()
	c.SetQuery("e")
	c.Click(1, Modifiers{})
	require.NotEmpty(t, c.Snapshot().Selected)

	c.Navigate("bkt", "docs/")
	c.Wait()

	st := c.Snapshot()
	assert.Empty(t, st.Query)
	assert.Empty(t, st.Selected)
	assert.Empty(t, st.Primary)
	assert.Equal(t, -1, st.Anchor)
	assert.Equal(t, []string{"docs/guide.md"}, keys(st.View))
}

func TestController_ViewSettings(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", []string{"pics/"}, []string{"b.png", "a.jpg", "c.txt"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()

	c.SetFileType(TypeImages)
	assert.Equal(t, []string{"pics/", "a.jpg", "b.png"}, keys(c.Displayed()))

	c.SetSort(SortConfig{Field: SortByName, Ascending: false})
	assert.Equal(t, []string{"pics/", "b.png", "a.jpg"}, keys(c.Displayed()))

	c.SetQuery("A.")
	assert.Equal(t, []string{"a.jpg"}, keys(c.Displayed()))
	assert.Equal(t, 4, c.Snapshot().Loaded, "filters do not change the loaded set")
}

func TestController_RefreshSubscriptionKeepsLocation(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("p/", nil, []string{"p/keep.txt", "p/gone.txt"})
	bus := events.NewEventBus(16)
	defer bus.Close()
	c := newTestController(t, lister, func(o *Options) { o.Refresh = bus })

	c.Navigate("bkt", "p/")
	c.Wait()
	c.Click(0, Modifiers{})
	c.Click(1, Modifiers{Platform: true})
	require.Len(t, c.Snapshot().Selected, 2)

	lister.addPages("p/", nil, []string{"p/keep.txt", "p/new.txt"})
	bus.RequestRefresh("test")
	require.Eventually(t, func() bool { return lister.callCount() == 2 }, time.Second, 5*time.Millisecond)
	c.Wait()

	st := c.Snapshot()
	assert.Equal(t, "p/", st.Prefix)
	assert.Equal(t, []string{"p/keep.txt", "p/new.txt"}, keys(st.View))
	assert.Equal(t, []string{"p/keep.txt"}, st.Selected)
	assert.Equal(t, "p/keep.txt", st.Primary)
}

func TestController_Open(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", []string{"dir/"}, []string{"file.txt"})
	lister.addPages("dir/", nil, []string{"dir/inner.txt"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()
	c.Click(1, Modifiers{})

	act := c.Open(1)
	assert.Equal(t, ActionActivate, act.Kind)
	assert.Equal(t, "file.txt", act.Entry.Key)
	assert.Equal(t, []string{"file.txt"}, c.Snapshot().Selected, "activation leaves selection alone")

	assert.Equal(t, ActionNone, c.Open(7).Kind)

	act = c.Open(0)
	assert.Equal(t, ActionNavigate, act.Kind)
	c.Wait()
	_, prefix := c.Location()
	assert.Equal(t, "dir/", prefix)
	assert.Empty(t, c.Snapshot().Selected)

	require.True(t, c.GoUp())
	c.Wait()
	_, prefix = c.Location()
	assert.Equal(t, "", prefix)
	assert.False(t, c.GoUp())
}

func TestController_OpenFolderWithEmptySegment(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("a/", []string{"a//"}, []string{"a/x.txt"})
	lister.addPages("a//", nil, []string{"a//inner.txt"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "a/")
	c.Wait()
	require.Equal(t, "a//", c.Snapshot().View[0].Key)

	act := c.Open(0)
	require.Equal(t, ActionNavigate, act.Kind)
	c.Wait()

	_, prefix := c.Location()
	assert.Equal(t, "a//", prefix)
	assert.Equal(t, "a//", lister.call(lister.callCount()-1).Prefix)
	assert.Equal(t, []string{"a//inner.txt"}, fileKeys(c))

	require.True(t, c.GoUp())
	c.Wait()
	_, prefix = c.Location()
	assert.Equal(t, "a/", prefix)
}

func TestController_NavigateAddsTrailingSlashOnly(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("docs/", nil, []string{"docs/a"})
	lister.addPages("/x//", nil, []string{"/x//b"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "docs")
	c.Wait()
	_, prefix := c.Location()
	assert.Equal(t, "docs/", prefix)

	c.Navigate("bkt", "/x//")
	c.Wait()
	_, prefix = c.Location()
	assert.Equal(t, "/x//", prefix)
	assert.Equal(t, []string{"/x//b"}, fileKeys(c))
}

func TestController_SelectedEntries(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", []string{"dir/"}, []string{"a", "b"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()

	_, ok := c.SelectedEntry()
	assert.False(t, ok)

	c.Click(0, Modifiers{})
	c.Click(2, Modifiers{Shift: true})

	primary, ok := c.SelectedEntry()
	require.True(t, ok)
	assert.Equal(t, "b", primary.Key)
	assert.Equal(t, []string{"dir/", "a", "b"}, keys(c.SelectedEntries()))

	c.ClearSelection()
	assert.Empty(t, c.SelectedEntries())
}

func TestController_StatusText(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", nil, []string{"a", "b"}, []string{"c"})
	c := newTestController(t, lister)

	c.Navigate("bkt", "")
	c.Wait()
	assert.Equal(t, "Showing 2 items (more available)", c.Snapshot().StatusText())

	c.LoadMore()
	c.Wait()
	assert.Equal(t, "3 items", c.Snapshot().StatusText())
}

func TestController_PageSizeClamped(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", nil, []string{"a"})

	c := newTestController(t, lister, func(o *Options) { o.PageSize = 5000 })
	c.Navigate("bkt", "")
	c.Wait()
	assert.Equal(t, 1000, lister.call(0).MaxKeys)

	c2 := newTestController(t, lister, func(o *Options) { o.PageSize = 50 })
	c2.Navigate("bkt", "")
	c2.Wait()
	assert.Equal(t, 50, lister.call(1).MaxKeys)
}

func TestController_PublishesListingEvents(t *testing.T) {
	lister := newFakeLister()
	lister.addPages("", nil, []string{"a"})
	bus := events.NewEventBus(32)
	defer bus.Close()
	ch := bus.Subscribe(events.EventListingChanged)
	nav := bus.Subscribe(events.EventNavigated)
	c := newTestController(t, lister, func(o *Options) { o.EventBus = bus })

	c.Navigate("bkt", "x")
	c.Wait()

	select {
	case ev := <-nav:
		assert.Equal(t, "x/", ev.(*events.NavigatedEvent).Prefix)
	case <-time.After(time.Second):
		t.Fatal("no navigated event")
	}

	var last *events.ListingEvent
	for done := false; !done; {
		select {
		case ev := <-ch:
			last = ev.(*events.ListingEvent)
		case <-time.After(50 * time.Millisecond):
			done = true
		}
	}
	require.NotNil(t, last)
	assert.False(t, last.Loading)
}
