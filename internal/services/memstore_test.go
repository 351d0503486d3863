package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/models"
)

// memStore is an in-memory storage.ObjectStore with S3 listing semantics.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte // "bucket/key" -> body
	// getFailures makes the next N Get calls fail with getErr.
	getFailures int
	getErr      error
	deleteErr   map[string]error
	calls       []string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte), deleteErr: make(map[string]error)}
}

func (m *memStore) put(bucket, key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = []byte(body)
}

func (m *memStore) has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+key]
	return ok
}

func (m *memStore) keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/") {
			out = append(out, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(out)
	return out
}

func (m *memStore) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *memStore) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("list " + req.Prefix + " " + req.ContinuationToken)

	var all []string
	for k := range m.objects {
		key, ok := strings.CutPrefix(k, req.Bucket+"/")
		if ok && strings.HasPrefix(key, req.Prefix) {
			all = append(all, key)
		}
	}
	sort.Strings(all)

	// Collapse to common prefixes when a delimiter is set.
	type item struct {
		key    string
		prefix bool
	}
	var items []item
	seen := map[string]bool{}
	for _, key := range all {
		rest := strings.TrimPrefix(key, req.Prefix)
		if req.Delimiter != "" {
			if i := strings.Index(rest, req.Delimiter); i >= 0 {
				cp := req.Prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					items = append(items, item{cp, true})
				}
				continue
			}
		}
		items = append(items, item{key, false})
	}

	start := 0
	if req.ContinuationToken != "" {
		start, _ = strconv.Atoi(req.ContinuationToken)
	}
	maxKeys := req.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	end := start + maxKeys
	if end > len(items) {
		end = len(items)
	}

	now := time.Now()
	page := &models.Page{Prefix: req.Prefix}
	for _, it := range items[start:end] {
		if it.prefix {
			page.Prefixes = append(page.Prefixes, it.key)
			continue
		}
		body := m.objects[req.Bucket+"/"+it.key]
		page.Objects = append(page.Objects, models.Entry{Key: it.key, Size: int64(len(body)), LastModified: &now})
	}
	page.KeyCount = end - start
	if end < len(items) {
		page.IsTruncated = true
		page.ContinuationToken = strconv.Itoa(end)
	}
	return page, nil
}

func (m *memStore) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := map[string]bool{}
	for k := range m.objects {
		names[strings.SplitN(k, "/", 2)[0]] = true
	}
	var out []models.Bucket
	for n := range names {
		out = append(out, models.Bucket{Name: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) Head(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("head " + key)
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, &storage.ProviderError{Op: "Head", Provider: "mem", Bucket: bucket, Key: key, Kind: storage.ErrNotFound}
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}

func (m *memStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get " + key)
	if m.getFailures > 0 {
		m.getFailures--
		return nil, nil, m.getErr
	}
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, nil, &storage.ProviderError{Op: "Get", Provider: "mem", Bucket: bucket, Key: key, Kind: storage.ErrNotFound}
	}
	return io.NopCloser(bytes.NewReader(body)), &storage.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}

func (m *memStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("put " + key)
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memStore) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("delete " + key)
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memStore) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("copy " + srcKey + " " + dstKey)
	body, ok := m.objects[bucket+"/"+srcKey]
	if !ok {
		return &storage.ProviderError{Op: "Copy", Provider: "mem", Bucket: bucket, Key: srcKey, Kind: storage.ErrNotFound}
	}
	m.objects[bucket+"/"+dstKey] = append([]byte(nil), body...)
	return nil
}

func (m *memStore) Backend() string { return "mem" }
