package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidObjectURL is returned for URLs that do not name a bucket location.
var ErrInvalidObjectURL = errors.New("not an object storage URL")

// ObjectURL identifies a bucket and an optional key (object or prefix).
type ObjectURL struct {
	Bucket string
	Key    string
}

// ParseObjectURL accepts s3://bucket/key, virtual-hosted
// https://bucket.s3.region.amazonaws.com/key and path-style
// https://s3.region.amazonaws.com/bucket/key URLs.
func ParseObjectURL(raw string) (ObjectURL, error) {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return ObjectURL{}, fmt.Errorf("%w: missing bucket in %q", ErrInvalidObjectURL, raw)
		}
		return ObjectURL{Bucket: bucket, Key: key}, nil
	}

	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ObjectURL{}, fmt.Errorf("%w: %v", ErrInvalidObjectURL, err)
		}
		host := u.Hostname()
		p := strings.TrimPrefix(u.Path, "/")

		if strings.HasSuffix(host, ".amazonaws.com") {
			if bucket, _, ok := strings.Cut(host, ".s3."); ok && bucket != "" {
				return ObjectURL{Bucket: bucket, Key: p}, nil
			}
			if strings.HasPrefix(host, "s3.") {
				bucket, key, _ := strings.Cut(p, "/")
				if bucket != "" {
					return ObjectURL{Bucket: bucket, Key: key}, nil
				}
			}
		}
	}

	return ObjectURL{}, fmt.Errorf("%w: %q", ErrInvalidObjectURL, raw)
}

// IsPrefix reports whether the URL names a bucket root or a folder.
func (u ObjectURL) IsPrefix() bool {
	return u.Key == "" || strings.HasSuffix(u.Key, "/")
}

// ParentPrefix returns the prefix that lists this URL's key.
func (u ObjectURL) ParentPrefix() string {
	return ParentPrefix(u.Key)
}

// String renders the URL in s3:// form.
func (u ObjectURL) String() string {
	if u.Key == "" {
		return "s3://" + u.Bucket
	}
	return "s3://" + u.Bucket + "/" + u.Key
}

// ParentPrefix returns the prefix containing key:
// "" -> "", "folder/" -> "", "a/b/c/" -> "a/b/", "folder/file.txt" -> "folder/".
func ParentPrefix(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}
