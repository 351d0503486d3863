package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/util/filter"
)

// pageLister serves numbered pages for the root prefix and a fixed page
// for "docs/". Tokens are "page-N".
type pageLister struct {
	pages [][]string
	fail  error
}

func (l *pageLister) ListPage(_ context.Context, req storage.ListRequest) (*models.Page, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	if req.Prefix == "docs/" {
		return &models.Page{Prefix: req.Prefix, Objects: []models.Entry{{Key: "docs/readme.md", Size: 2048}}}, nil
	}

	idx := 0
	if req.ContinuationToken != "" {
		idx, _ = strconv.Atoi(strings.TrimPrefix(req.ContinuationToken, "page-"))
	}
	page := &models.Page{Prefix: req.Prefix}
	if idx == 0 {
		page.Prefixes = []string{"docs/"}
	}
	if idx < len(l.pages) {
		for _, k := range l.pages[idx] {
			page.Objects = append(page.Objects, models.Entry{Key: k, Size: 100})
		}
	}
	if idx < len(l.pages)-1 {
		page.IsTruncated = true
		page.ContinuationToken = fmt.Sprintf("page-%d", idx+1)
	}
	return page, nil
}

func twoPages() *pageLister {
	var first, second []string
	for i := 0; i < 30; i++ {
		first = append(first, fmt.Sprintf("f%02d.csv", i))
		second = append(second, fmt.Sprintf("f%02d.csv", i+30))
	}
	return &pageLister{pages: [][]string{first, second}}
}

func sessionAt(bucket, prefix string) *session {
	s := config.NewSettings()
	s.Session.Bucket = bucket
	s.Session.Prefix = prefix
	return &session{settings: s}
}

func TestValidateMaxConcurrent(t *testing.T) {
	assert.NoError(t, validateMaxConcurrent(0))
	assert.NoError(t, validateMaxConcurrent(1))
	assert.NoError(t, validateMaxConcurrent(constants.MaxMaxConcurrent))
	assert.Error(t, validateMaxConcurrent(-1))
	assert.Error(t, validateMaxConcurrent(constants.MaxMaxConcurrent+1))
}

func TestParseLocation(t *testing.T) {
	settings := config.NewSettings()

	tests := []struct {
		arg    string
		bucket string
		key    string
	}{
		{"s3://data/reports/", "data", "reports/"},
		{"data/reports/q3.pdf", "data", "reports/q3.pdf"},
		{"/data", "data", ""},
		{"https://data.s3.us-east-1.amazonaws.com/a/b.txt", "data", "a/b.txt"},
	}
	for _, tt := range tests {
		u, err := parseLocation(tt.arg, settings)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.bucket, u.Bucket, tt.arg)
		assert.Equal(t, tt.key, u.Key, tt.arg)
	}

	_, err := parseLocation("", settings)
	assert.ErrorIs(t, err, errNoLocation)

	settings.RememberLocation("", "data", "logs/")
	u, err := parseLocation("  ", settings)
	require.NoError(t, err)
	assert.Equal(t, models.ObjectURL{Bucket: "data", Key: "logs/"}, u)

	_, err = parseLocation("ftp://host/x", settings)
	assert.ErrorIs(t, err, models.ErrInvalidObjectURL)
}

func TestShortcutURL(t *testing.T) {
	u, err := shortcutURL(sessionAt("data", "logs/"), "app.log")
	require.NoError(t, err)
	assert.Equal(t, models.ObjectURL{Bucket: "data", Key: "logs/app.log"}, u)

	u, err = shortcutURL(sessionAt("data", "logs/"), "s3://other/x.bin")
	require.NoError(t, err)
	assert.Equal(t, models.ObjectURL{Bucket: "other", Key: "x.bin"}, u)

	_, err = shortcutURL(sessionAt("", ""), "app.log")
	assert.ErrorIs(t, err, errNoLocation)
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.dat", "b.dat", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	got, err := expandGlobPatterns([]string{filepath.Join(dir, "*.dat"), filepath.Join(dir, "a.dat")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.dat"), filepath.Join(dir, "b.dat")}, got, "duplicates are dropped")

	// Plain paths pass through even when they do not exist yet.
	got, err = expandGlobPatterns([]string{filepath.Join(dir, "missing.bin")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "missing.bin")}, got)

	_, err = expandGlobPatterns([]string{filepath.Join(dir, "*.zip")})
	assert.ErrorContains(t, err, "no files match")

	_, err = expandGlobPatterns([]string{filepath.Join(dir, "[")})
	assert.Error(t, err)
}

func TestExpandGlobPatterns_Home(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := expandGlobPatterns([]string{"~/objectdesk-test-file"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, "objectdesk-test-file")}, got)
}

func TestListLocation(t *testing.T) {
	ctx := context.Background()
	root := models.ObjectURL{Bucket: "data"}

	res, err := listLocation(ctx, twoPages(), root, listOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 31)
	assert.Equal(t, "docs/", res.Entries[0].Key, "folders first")
	assert.True(t, res.HasMore)
	assert.Equal(t, 1, res.Pages)

	res, err = listLocation(ctx, twoPages(), root, listOptions{all: true})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 61)
	assert.False(t, res.HasMore)
	assert.Equal(t, 2, res.Pages)

	res, err = listLocation(ctx, twoPages(), root, listOptions{all: true, query: "f4"})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 10)

	res, err = listLocation(ctx, twoPages(), root, listOptions{match: filter.Config{Exclude: []string{"f0*"}}})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 21)

	// A key without a trailing slash lists the folder it names.
	res, err = listLocation(ctx, twoPages(), models.ObjectURL{Bucket: "data", Key: "docs"}, listOptions{})
	require.NoError(t, err)
	assert.Equal(t, "docs/", res.Prefix)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "docs/readme.md", res.Entries[0].Key)
}

func TestListLocation_Failure(t *testing.T) {
	_, err := listLocation(context.Background(), &pageLister{fail: errors.New("access denied")}, models.ObjectURL{Bucket: "data"}, listOptions{})
	assert.ErrorContains(t, err, "access denied")
}

func TestFindObject(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := findObject(ctx, twoPages(), models.ObjectURL{Bucket: "data", Key: "f45.csv"}, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, events.SearchFound, res.Outcome)
	assert.Equal(t, "f45.csv", res.Entry.Key)
	assert.Equal(t, 2, res.Pages, "the search pages forward once")

	res, err = findObject(ctx, twoPages(), models.ObjectURL{Bucket: "data", Key: "nope.csv"}, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, events.SearchExhausted, res.Outcome)
}

func TestPrintEntries(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []models.Entry{
		models.NewPrefixEntry("logs/old/"),
		{Key: "logs/app.log", Size: 2048, LastModified: &modified, StorageClass: "STANDARD"},
	}

	var out bytes.Buffer
	printEntries(&out, entries, "logs/", false)
	assert.Equal(t, "old/\napp.log\n", out.String())

	out.Reset()
	printEntries(&out, entries, "logs/", true)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[2], "app.log")
	assert.Contains(t, lines[2], "STANDARD")
}

func TestShortcutCommands(t *testing.T) {
	upload := newUploadShortcut()
	assert.Equal(t, "upload <path> [path...]", upload.Use)
	assert.NotNil(t, upload.Flags().Lookup("to"))
	assert.Error(t, upload.Args(upload, nil))

	download := newDownloadShortcut()
	assert.Equal(t, "download <name|url> [name|url...]", download.Use)
	assert.NotNil(t, download.Flags().Lookup("skip-existing"))
	outdir := download.Flags().ShorthandLookup("o")
	require.NotNil(t, outdir)
	assert.Equal(t, "outdir", outdir.Name)
	assert.Equal(t, ".", outdir.DefValue)

	put := newPutCmd()
	assert.NotNil(t, put.Flags().Lookup("exclude"))
	assert.NotNil(t, put.Flags().Lookup("include-hidden"))
	assert.Error(t, put.Args(put, []string{"only-one"}))
	assert.NoError(t, put.Args(put, []string{"a.txt", "s3://data/"}))
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ls", "find", "buckets", "get", "put", "rm", "mv", "mkdir", "cat", "profiles", "config", "gui", "tui", "version", "upload", "download"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "profile", "backend", "endpoint", "region", "path-style", "verbose", "max-concurrent"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "--%s", flag)
	}
}
