package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("my-bucket", "a/b/c/")

	assert.Equal(t, []Breadcrumb{
		{Label: "my-bucket", Prefix: "", IsBucket: true},
		{Label: "a", Prefix: "a/"},
		{Label: "b", Prefix: "a/b/"},
		{Label: "c", Prefix: "a/b/c/"},
	}, crumbs)
}

func TestBreadcrumbs_KeepsEmptySegments(t *testing.T) {
	assert.Equal(t, []Breadcrumb{
		{Label: "bkt", Prefix: "", IsBucket: true},
		{Label: "(empty)", Prefix: "/"},
		{Label: "x", Prefix: "/x/"},
		{Label: "(empty)", Prefix: "/x//"},
		{Label: "y", Prefix: "/x//y/"},
	}, Breadcrumbs("bkt", "/x//y/"))

	crumbs := Breadcrumbs("bkt", "a/b")
	assert.Equal(t, "a/b", crumbs[2].Prefix)
}

func TestBreadcrumbs_Root(t *testing.T) {
	assert.Equal(t, []Breadcrumb{{Label: "bkt", Prefix: "", IsBucket: true}}, Breadcrumbs("bkt", ""))
}

func TestParentPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		parent string
		ok     bool
	}{
		{"", "", false},
		{"/", "", true},
		{"folder/", "", true},
		{"a/b/c/", "a/b/", true},
		{"a/b", "a/", true},
		{"a//", "a/", true},
		{"a//b/", "a//", true},
	}

	for _, tt := range tests {
		parent, ok := ParentPrefix(tt.prefix)
		assert.Equal(t, tt.parent, parent, "prefix %q", tt.prefix)
		assert.Equal(t, tt.ok, ok, "prefix %q", tt.prefix)
		assert.Equal(t, tt.ok, CanGoUp(tt.prefix))
	}
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", NormalizePrefix(""))
	assert.Equal(t, "", NormalizePrefix("//"))
	assert.Equal(t, "a/b/", NormalizePrefix("/a//b"))
	assert.Equal(t, "docs/", NormalizePrefix("docs/"))
	assert.Equal(t, "docs/", NormalizePrefix("docs"))
}
