package browser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/objectdesk/objectdesk/internal/models"
)

// SortField selects the column the view is ordered by.
type SortField string

const (
	SortByName     SortField = "name"
	SortBySize     SortField = "size"
	SortByModified SortField = "modified"
)

// SortConfig is the active ordering. Folders precede files in both directions.
type SortConfig struct {
	Field     SortField
	Ascending bool
}

// DefaultSort orders by name, A to Z.
var DefaultSort = SortConfig{Field: SortByName, Ascending: true}

// ParseSortField accepts "name", "size", "modified" (or "date").
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortByName, nil
	case "size":
		return SortBySize, nil
	case "modified", "date", "time":
		return SortByModified, nil
	default:
		return "", fmt.Errorf("unknown sort field %q (expected name, size or modified)", s)
	}
}

// FileType is a category of the type filter.
type FileType string

const (
	TypeAll       FileType = "all"
	TypeDocuments FileType = "documents"
	TypeData      FileType = "data"
	TypeImages    FileType = "images"
	TypeCode      FileType = "code"
	TypeArchives  FileType = "archives"
	TypeMedia     FileType = "media"
)

var typeExtensions = map[FileType][]string{
	TypeDocuments: {"pdf", "doc", "docx", "odt", "rtf", "txt", "md", "rst", "tex", "xls", "xlsx", "ods", "ppt", "pptx", "odp", "epub"},
	TypeData:      {"csv", "tsv", "json", "jsonl", "ndjson", "yaml", "yml", "xml", "parquet", "avro", "orc", "toml", "ini", "log", "sqlite", "db"},
	TypeImages:    {"png", "jpg", "jpeg", "gif", "bmp", "webp", "svg", "ico", "tif", "tiff", "heic"},
	TypeCode:      {"go", "rs", "py", "js", "ts", "tsx", "jsx", "java", "kt", "c", "h", "cpp", "hpp", "cs", "rb", "php", "sh", "bash", "ps1", "sql", "html", "css", "scss", "swift", "lua", "r", "scala"},
	TypeArchives:  {"zip", "tar", "gz", "tgz", "bz2", "xz", "zst", "7z", "rar", "jar", "war"},
	TypeMedia:     {"mp3", "wav", "flac", "ogg", "m4a", "mp4", "mov", "mkv", "avi", "webm"},
}

var typeSets = func() map[FileType]map[string]struct{} {
	out := make(map[FileType]map[string]struct{}, len(typeExtensions))
	for t, exts := range typeExtensions {
		set := make(map[string]struct{}, len(exts))
		for _, e := range exts {
			set[e] = struct{}{}
		}
		out[t] = set
	}
	return out
}()

// FileTypes lists the catalogue in display order, "all" first.
func FileTypes() []FileType {
	return []FileType{TypeAll, TypeDocuments, TypeData, TypeImages, TypeCode, TypeArchives, TypeMedia}
}

// Extensions returns the extensions a category matches; nil for "all".
func (t FileType) Extensions() []string {
	return append([]string(nil), typeExtensions[t]...)
}

// ParseFileType accepts any catalogue name, case-insensitive. Empty means all.
func ParseFileType(s string) (FileType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeAll, nil
	}
	for _, t := range FileTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// Matches reports whether the entry passes the type filter. Folders always pass.
func (t FileType) Matches(e models.Entry) bool {
	if t == TypeAll || t == "" || e.IsPrefix {
		return true
	}
	_, ok := typeSets[t][e.Extension()]
	return ok
}

// FilterByType keeps folders and files whose extension belongs to t.
func FilterByType(entries []models.Entry, t FileType) []models.Entry {
	if t == TypeAll || t == "" {
		return entries
	}
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if t.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterBySearch keeps entries whose display name under prefix contains query,
// case-insensitively. A blank query keeps everything.
func FilterBySearch(entries []models.Entry, query, prefix string) []models.Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.NameIn(prefix)), q) {
			out = append(out, e)
		}
	}
	return out
}

// SortEntries returns a sorted copy of entries. Folders come first; the
// direction only reverses the comparison inside each group.
func SortEntries(entries []models.Entry, cfg SortConfig) []models.Entry {
	out := append([]models.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsPrefix != b.IsPrefix {
			return a.IsPrefix
		}
		c := compareEntries(a, b, cfg.Field)
		if !cfg.Ascending {
			c = -c
		}
		return c < 0
	})
	return out
}

func compareEntries(a, b models.Entry, field SortField) int {
	switch field {
	case SortBySize:
		return compareInt(a.Size, b.Size)
	case SortByModified:
		return compareInt(a.ModUnixNano(), b.ModUnixNano())
	default:
		return strings.Compare(strings.ToLower(a.Key), strings.ToLower(b.Key))
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ViewOptions are the inputs that shape the displayed list.
type ViewOptions struct {
	Prefix string
	Type   FileType
	Query  string
	Sort   SortConfig
}

// BuildView applies type filter, then text filter, then sort.
func BuildView(entries []models.Entry, opts ViewOptions) []models.Entry {
	filtered := FilterByType(entries, opts.Type)
	filtered = FilterBySearch(filtered, opts.Query, opts.Prefix)
	return SortEntries(filtered, opts.Sort)
}
