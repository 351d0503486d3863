package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/models"
)

// fakeLister serves pre-built pages per prefix. Tokens are "page-N".
type fakeLister struct {
	mu    sync.Mutex
	pages map[string][]*models.Page
	calls []storage.ListRequest
	fail  map[int]error // call number (1-based) -> error
	hold  map[int]chan struct{}
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		pages: make(map[string][]*models.Page),
		fail:  make(map[int]error),
		hold:  make(map[int]chan struct{}),
	}
}

// addPages registers the pages for prefix; each element is one page of file
// keys. Folders are served on page 1 only.
func (f *fakeLister) addPages(prefix string, folders []string, filePages ...[]string) {
	var pages []*models.Page
	for i, keys := range filePages {
		p := &models.Page{Prefix: prefix}
		if i == 0 {
			p.Prefixes = folders
		}
		for _, k := range keys {
			p.Objects = append(p.Objects, models.Entry{Key: k, Size: int64(len(k))})
		}
		if i < len(filePages)-1 {
			p.IsTruncated = true
			p.ContinuationToken = fmt.Sprintf("page-%d", i+1)
		}
		p.KeyCount = len(p.Objects) + len(p.Prefixes)
		pages = append(pages, p)
	}
	f.mu.Lock()
	f.pages[prefix] = pages
	f.mu.Unlock()
}

// holdCall makes call n block until the returned channel is closed.
func (f *fakeLister) holdCall(n int) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold[n] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeLister) failCall(n int, err error) {
	f.mu.Lock()
	f.fail[n] = err
	f.mu.Unlock()
}

func (f *fakeLister) ListPage(_ context.Context, req storage.ListRequest) (*models.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	hold := f.hold[n]
	failErr := f.fail[n]
	pages := f.pages[req.Prefix]
	f.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if failErr != nil {
		return nil, failErr
	}

	idx := 0
	if req.ContinuationToken != "" {
		var err error
		idx, err = strconv.Atoi(strings.TrimPrefix(req.ContinuationToken, "page-"))
		if err != nil {
			return nil, errors.New("bad continuation token")
		}
	}
	if idx >= len(pages) {
		return &models.Page{Prefix: req.Prefix}, nil
	}
	return pages[idx], nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLister) call(i int) storage.ListRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type recordingViewport struct {
	mu   sync.Mutex
	keys []string
}

func (v *recordingViewport) ScrollIntoView(key string) {
	v.mu.Lock()
	v.keys = append(v.keys, key)
	v.mu.Unlock()
}

func (v *recordingViewport) scrolled() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.keys...)
}
