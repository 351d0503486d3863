package browser

import (
	"github.com/objectdesk/objectdesk/internal/events"
)

// searchState tracks a deep-link request for a key that may lie on a page
// not fetched yet.
type searchState struct {
	key       string
	handled   func(events.SearchOutcome)
	searching bool
	scanned   int
}

// RequestSelection asks the controller to select key in the current location,
// paging forward as far as needed. handled is called exactly once, with
// SearchFound, SearchExhausted or SearchCancelled. A request still pending
// when a new one arrives is resolved as cancelled.
func (c *Controller) RequestSelection(key string, handled func(events.SearchOutcome)) {
	c.mu.Lock()
	fx := &effects{}
	c.resolveSearch(fx, events.SearchCancelled)

	c.search = &searchState{key: key, handled: handled}
	c.logger.Debug().Str("key", key).Msg("deep-link selection requested")
	c.advanceSearch(fx)
	c.mu.Unlock()

	c.flush(fx)
}

// CancelSearch abandons the pending deep-link request. Pages already fetched
// stay loaded and a page in flight still lands; no further page is requested
// on the search's behalf.
func (c *Controller) CancelSearch() bool {
	c.mu.Lock()
	fx := &effects{}
	pending := c.search != nil
	c.resolveSearch(fx, events.SearchCancelled)
	c.mu.Unlock()

	c.flush(fx)
	return pending
}

// PendingSelection returns the key of the unresolved deep-link request.
func (c *Controller) PendingSelection() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.search == nil {
		return "", false
	}
	return c.search.key, true
}

// advanceSearch runs one step of the deep-link search. Caller holds c.mu.
func (c *Controller) advanceSearch(fx *effects) {
	s := c.search
	if s == nil {
		return
	}

	if c.isLoaded(s.key) {
		idx := c.revealInView(fx, s.key)
		c.selection.SelectOnly(s.key, idx)
		fx.publish(c.selectionEvent())
		fx.scrollTo = s.key
		fx.viewport = c.viewport
		c.logger.Debug().Str("key", s.key).Int("scanned", len(c.files)+len(c.folders)).Msg("deep-link target found")
		c.resolveSearch(fx, events.SearchFound)
		return
	}

	// Wait for the page in flight, or for the user to retry a failed load.
	if c.loading || c.loadingMore || c.lastErr != "" {
		c.publishSearchProgress(fx)
		return
	}

	if c.hasMore {
		s.searching = true
		s.scanned = len(c.folders) + len(c.files)
		c.startLoad(false)
		fx.publish(c.listingEvent())
		c.publishSearchProgress(fx)
		return
	}

	c.logger.Debug().Str("key", s.key).Msg("deep-link target not in listing")
	c.resolveSearch(fx, events.SearchExhausted)
}

// revealInView returns the displayed index of a loaded key. A key hidden by
// the type filter or the text filter is brought back by clearing the filter
// that hides it, type first. Caller holds c.mu.
func (c *Controller) revealInView(fx *effects, key string) int {
	idx := c.indexInView(key)
	if idx >= 0 {
		return idx
	}
	if c.fileType != TypeAll {
		c.fileType = TypeAll
		c.rebuildView()
		idx = c.indexInView(key)
	}
	if idx < 0 && c.query != "" {
		c.query = ""
		c.rebuildView()
		idx = c.indexInView(key)
	}
	fx.publish(c.listingEvent())
	c.logger.Debug().Str("key", key).Msg("filters cleared to show deep-link target")
	return idx
}

// resolveSearch clears the pending request and queues its handled callback.
func (c *Controller) resolveSearch(fx *effects, outcome events.SearchOutcome) {
	s := c.search
	if s == nil {
		return
	}
	c.search = nil
	fx.resolved = append(fx.resolved, resolution{handled: s.handled, outcome: outcome})
	fx.publish(events.NewSearchEvent(s.key, false, s.scanned, outcome))
}

func (c *Controller) publishSearchProgress(fx *effects) {
	if s := c.search; s != nil {
		fx.publish(events.NewSearchEvent(s.key, s.searching, s.scanned, events.SearchPending))
	}
}
