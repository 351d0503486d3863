// Package models holds the storage-neutral types shared by providers, the
// browser engine and the front ends.
package models

import (
	"path"
	"strings"
	"time"
)

// Entry is one row of a delimiter listing: an object or a common prefix.
// Two entries are the same item iff their keys are equal.
type Entry struct {
	Key          string
	Size         int64      // 0 for prefixes
	LastModified *time.Time // nil for prefixes
	IsPrefix     bool
	ETag         string
	StorageClass string
}

// NewPrefixEntry builds the folder entry for a common prefix.
func NewPrefixEntry(prefix string) Entry {
	return Entry{Key: prefix, IsPrefix: true}
}

// Name returns the last non-empty path segment of the key.
func (e Entry) Name() string {
	return BaseName(e.Key)
}

// NameIn returns the key with parentPrefix stripped and any trailing
// delimiter removed. Keys outside parentPrefix fall back to Name.
func (e Entry) NameIn(parentPrefix string) string {
	if parentPrefix != "" && !strings.HasPrefix(e.Key, parentPrefix) {
		return e.Name()
	}
	return strings.TrimSuffix(strings.TrimPrefix(e.Key, parentPrefix), "/")
}

// Extension returns the lower-cased final extension without the dot, or "".
func (e Entry) Extension() string {
	if e.IsPrefix {
		return ""
	}
	ext := path.Ext(e.Name())
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// ModUnixNano returns the modification time in nanoseconds since the epoch,
// 0 when unknown. Listings report sub-second times, so ordering by seconds
// would tie entries written in the same second.
func (e Entry) ModUnixNano() int64 {
	if e.LastModified == nil {
		return 0
	}
	return e.LastModified.UnixNano()
}

// BaseName returns the last non-empty "/" segment of key.
func BaseName(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Page is one response of a paged delimiter listing.
// ContinuationToken is set iff IsTruncated.
type Page struct {
	Prefix            string
	Objects           []Entry
	Prefixes          []string
	ContinuationToken string
	IsTruncated       bool
	KeyCount          int
}

// Folders converts the page's common prefixes into entries.
func (p *Page) Folders() []Entry {
	out := make([]Entry, 0, len(p.Prefixes))
	for _, pfx := range p.Prefixes {
		out = append(out, NewPrefixEntry(pfx))
	}
	return out
}

// Files returns the page's object entries, dropping the placeholder object
// some tools create for the listed prefix itself.
func (p *Page) Files() []Entry {
	out := make([]Entry, 0, len(p.Objects))
	for _, o := range p.Objects {
		if p.Prefix != "" && o.Key == p.Prefix {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Bucket describes a bucket (or Azure container) the credentials can see.
type Bucket struct {
	Name         string
	CreationDate *time.Time
}
