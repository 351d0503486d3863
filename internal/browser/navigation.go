package browser

import (
	"strings"

	"github.com/objectdesk/objectdesk/internal/models"
)

// Breadcrumb is one clickable segment of the location bar.
type Breadcrumb struct {
	Label    string
	Prefix   string // prefix navigated to when the segment is clicked
	IsBucket bool
}

// emptySegment labels the crumb of a folder whose name is empty, as in "a//".
const emptySegment = "(empty)"

// Breadcrumbs derives the location bar for bucket/prefix. The first segment is
// the bucket itself and navigates to the bucket root. Segments are taken from
// the prefix exactly, so "a//" yields a crumb for "a/" and one for "a//".
func Breadcrumbs(bucket, prefix string) []Breadcrumb {
	out := []Breadcrumb{{Label: bucket, Prefix: "", IsBucket: true}}
	if prefix == "" {
		return out
	}
	start := 0
	for i := 0; i < len(prefix); i++ {
		if prefix[i] != '/' && i != len(prefix)-1 {
			continue
		}
		end := i + 1
		label := strings.TrimSuffix(prefix[start:end], "/")
		if label == "" {
			label = emptySegment
		}
		out = append(out, Breadcrumb{Label: label, Prefix: prefix[:end]})
		start = end
	}
	return out
}

// ParentPrefix drops the last segment of prefix without touching the rest:
// "a/b/" -> "a/", "a//" -> "a/", "/" -> "". The bucket root has no parent
// and reports ok=false.
func ParentPrefix(prefix string) (parent string, ok bool) {
	if prefix == "" {
		return "", false
	}
	return models.ParentPrefix(prefix), true
}

// CanGoUp reports whether the "up" control should be shown.
func CanGoUp(prefix string) bool {
	_, ok := ParentPrefix(prefix)
	return ok
}

// NormalizePrefix cleans a prefix the user typed (a CLI argument, the URL
// bar): empty segments are removed and non-root prefixes end in a slash,
// "/a//b" -> "a/b/". Folder keys from a listing are used as listed.
func NormalizePrefix(prefix string) string {
	parts := strings.Split(prefix, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return strings.Join(segments, "/") + "/"
}

// folderPrefix makes prefix usable as a listing prefix: non-root prefixes
// end in a slash. Nothing else is changed.
func folderPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
