package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/util/filter"
)

// countingLister records how many listing calls went out.
type countingLister struct {
	storage.Lister
	calls atomic.Int32
}

func (c *countingLister) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	c.calls.Add(1)
	return c.Lister.ListPage(ctx, req)
}

// listOptions shape an ls run.
type listOptions struct {
	sort     browser.SortConfig
	fileType browser.FileType
	query    string
	match    filter.Config
	all      bool
	pageSize int
}

// listResult is what ls prints.
type listResult struct {
	Prefix  string
	Entries []models.Entry
	Loaded  int
	HasMore bool
	Pages   int
}

// listLocation loads a location through the same controller the GUI uses:
// one page, or every page with opts.all, then the sorted and filtered view.
func listLocation(ctx context.Context, lister storage.Lister, u models.ObjectURL, opts listOptions) (listResult, error) {
	counter := &countingLister{Lister: lister}
	ctrl := browser.NewController(browser.Options{
		Lister:   counter,
		PageSize: opts.pageSize,
		Logger:   GetLogger(),
		Sort:     opts.sort,
		Type:     opts.fileType,
	})
	defer ctrl.Close()
	stop := context.AfterFunc(ctx, ctrl.Close)
	defer stop()

	prefix := u.Key
	if !u.IsPrefix() {
		prefix = browser.NormalizePrefix(u.Key)
	}

	ctrl.Navigate(u.Bucket, prefix)
	ctrl.Wait()
	for {
		if err := ctx.Err(); err != nil {
			return listResult{}, err
		}
		st := ctrl.Snapshot()
		if st.Error != "" {
			return listResult{}, errors.New(st.Error)
		}
		if !opts.all || !st.HasMore {
			break
		}
		if !ctrl.LoadMore() {
			break
		}
		ctrl.Wait()
	}

	// Navigate clears the search text, so the query goes in last.
	ctrl.SetQuery(opts.query)
	st := ctrl.Snapshot()

	return listResult{
		Prefix:  st.Prefix,
		Entries: filter.Apply(st.View, st.Prefix, opts.match),
		Loaded:  st.Loaded,
		HasMore: st.HasMore,
		Pages:   int(counter.calls.Load()),
	}, nil
}

// findResult reports a deep-link search.
type findResult struct {
	Outcome events.SearchOutcome
	Entry   models.Entry
	Pages   int
	Scanned int
}

// findObject opens an object URL the way a pasted link is opened in the
// browser: navigate to the parent and page until the key is loaded.
// progress, when set, receives every search state change.
func findObject(ctx context.Context, lister storage.Lister, u models.ObjectURL, pageSize int, progress func(scanned int)) (findResult, error) {
	counter := &countingLister{Lister: lister}
	bus := events.NewEventBus(64)
	defer bus.Close()
	searchEvents := bus.Subscribe(events.EventSearchState)
	failures := bus.Subscribe(events.EventListingFailed)

	ctrl := browser.NewController(browser.Options{
		Lister:   counter,
		EventBus: bus,
		PageSize: pageSize,
		Logger:   GetLogger(),
	})
	defer ctrl.Close()

	done := make(chan events.SearchOutcome, 1)
	ctrl.OpenURL(u, func(o events.SearchOutcome) { done <- o })

	var result findResult
	var failure error
wait:
	for {
		select {
		case ev := <-searchEvents:
			if se, ok := ev.(*events.SearchEvent); ok {
				result.Scanned = se.Scanned
				if progress != nil {
					progress(se.Scanned)
				}
			}
		case ev := <-failures:
			// A failed page pauses the search; the CLI has no retry button.
			if fe, ok := ev.(*events.ListingFailedEvent); ok {
				failure = errors.New(fe.Message)
			}
			ctrl.CancelSearch()
		case <-ctx.Done():
			failure = ctx.Err()
			ctrl.CancelSearch()
		case result.Outcome = <-done:
			break wait
		}
	}

	ctrl.Wait()
	result.Pages = int(counter.calls.Load())
	if failure != nil {
		return result, failure
	}
	if result.Outcome == events.SearchFound {
		if entry, ok := ctrl.SelectedEntry(); ok {
			result.Entry = entry
		} else {
			result.Entry = models.NewPrefixEntry(u.Key)
		}
	}
	return result, nil
}

// printEntries writes a listing table.
func printEntries(w io.Writer, entries []models.Entry, prefix string, long bool) {
	if long {
		fmt.Fprintf(w, "%-50s %12s  %-16s %s\n", "NAME", "SIZE", "MODIFIED", "CLASS")
	}
	for _, e := range entries {
		name := e.NameIn(prefix)
		if e.IsPrefix {
			name += "/"
		}
		if !long {
			fmt.Fprintln(w, name)
			continue
		}
		if len(name) > 50 {
			name = "..." + name[len(name)-47:]
		}
		fmt.Fprintf(w, "%-50s %12s  %-16s %s\n", name, e.SizeString(), e.ModifiedString(), e.StorageClass)
	}
}
