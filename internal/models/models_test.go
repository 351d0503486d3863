package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		bucket string
		key    string
	}{
		{"s3 scheme", "s3://my-bucket/path/to/file.txt", "my-bucket", "path/to/file.txt"},
		{"bucket only", "s3://my-bucket", "my-bucket", ""},
		{"bucket trailing slash", "s3://my-bucket/", "my-bucket", ""},
		{"folder", "s3://bucket/a/b/", "bucket", "a/b/"},
		{"virtual hosted", "https://my-bucket.s3.eu-west-1.amazonaws.com/path/to/file.txt", "my-bucket", "path/to/file.txt"},
		{"virtual hosted http", "http://my-bucket.s3.us-east-1.amazonaws.com/file.txt", "my-bucket", "file.txt"},
		{"path style", "https://s3.eu-west-1.amazonaws.com/my-bucket/path/to/file.txt", "my-bucket", "path/to/file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseObjectURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, u.Bucket)
			assert.Equal(t, tt.key, u.Key)
		})
	}
}

func TestParseObjectURL_Invalid(t *testing.T) {
	for _, raw := range []string{"https://example.com/file.txt", "ftp://bucket/key", "not-a-url", "", "s3://"} {
		_, err := ParseObjectURL(raw)
		assert.True(t, errors.Is(err, ErrInvalidObjectURL), "expected invalid URL error for %q", raw)
	}
}

func TestObjectURL_String(t *testing.T) {
	assert.Equal(t, "s3://test-bucket/folder/file.txt", ObjectURL{Bucket: "test-bucket", Key: "folder/file.txt"}.String())
	assert.Equal(t, "s3://test-bucket", ObjectURL{Bucket: "test-bucket"}.String())
}

func TestObjectURL_IsPrefix(t *testing.T) {
	assert.True(t, ObjectURL{Bucket: "b"}.IsPrefix())
	assert.True(t, ObjectURL{Bucket: "b", Key: "docs/"}.IsPrefix())
	assert.False(t, ObjectURL{Bucket: "b", Key: "docs/readme.md"}.IsPrefix())
}

func TestParentPrefix(t *testing.T) {
	assert.Equal(t, "", ParentPrefix(""))
	assert.Equal(t, "", ParentPrefix("folder/"))
	assert.Equal(t, "a/b/", ParentPrefix("a/b/c/"))
	assert.Equal(t, "folder/", ParentPrefix("folder/file.txt"))
	assert.Equal(t, "", ParentPrefix("file.txt"))
}

func TestEntryNames(t *testing.T) {
	folder := NewPrefixEntry("prefix/subfolder/")
	file := Entry{Key: "prefix/Report.Final.CSV", Size: 10}

	assert.Equal(t, "subfolder", folder.Name())
	assert.Equal(t, "subfolder", folder.NameIn("prefix/"))
	assert.Equal(t, "Report.Final.CSV", file.NameIn("prefix/"))
	assert.Equal(t, "csv", file.Extension())
	assert.Equal(t, "", folder.Extension())
	assert.Equal(t, "", Entry{Key: "Makefile"}.Extension())
	assert.Equal(t, "Report.Final.CSV", file.NameIn("other/"))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0 B", HumanSize(0))
	assert.Equal(t, "100 B", HumanSize(100))
	assert.Equal(t, "1.00 KB", HumanSize(1024))
	assert.Equal(t, "1.50 KB", HumanSize(1536))
	assert.Equal(t, "1.00 MB", HumanSize(1024*1024))
	assert.Equal(t, "2.50 GB", HumanSize(5*1024*1024*1024/2))
	assert.Equal(t, "1.00 TB", HumanSize(1024*1024*1024*1024))

	assert.Equal(t, "-", NewPrefixEntry("a/").SizeString())
}

func TestModifiedString(t *testing.T) {
	assert.Equal(t, "-", Entry{Key: "a"}.ModifiedString())

	ts := time.Date(2024, 3, 5, 14, 7, 0, 0, time.Local)
	assert.Equal(t, "2024-03-05 14:07", Entry{Key: "a", LastModified: &ts}.ModifiedString())
	assert.Equal(t, ts.UnixNano(), Entry{Key: "a", LastModified: &ts}.ModUnixNano())
}

func TestPageFilesAndFolders(t *testing.T) {
	p := &Page{
		Prefix:   "docs/",
		Objects:  []Entry{{Key: "docs/"}, {Key: "docs/a.txt", Size: 1}},
		Prefixes: []string{"docs/img/"},
	}

	files := p.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "docs/a.txt", files[0].Key)

	folders := p.Folders()
	require.Len(t, folders, 1)
	assert.True(t, folders[0].IsPrefix)
	assert.Equal(t, int64(0), folders[0].Size)
	assert.Nil(t, folders[0].LastModified)
}
