package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateObjectName(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expectValid bool
	}{
		{"simple", "file.txt", true},
		{"with_dots", "file.v1.2.3.txt", true},
		{"hidden_file", ".hidden", true},
		{"spaces", "my file.txt", true},
		{"double_dot_inside", "data..v2.csv", true},
		{"backslash", `dir\file`, true},
		{"unicode", "résumé.pdf", true},

		{"empty", "", false},
		{"dot", ".", false},
		{"dot_dot", "..", false},
		{"slash", "dir/file", false},
		{"trailing_slash", "folder/", false},
		{"null_byte", "file\x00.txt", false},
		{"bad_utf8", "file\xff.txt", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateObjectName(tc.input)
			if tc.expectValid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	testCases := []struct {
		name        string
		key         string
		expectValid bool
	}{
		{"object", "reports/2024/q1.csv", true},
		{"folder", "reports/2024/", true},
		{"max_length", strings.Repeat("k", MaxKeyBytes), true},

		{"empty", "", false},
		{"leading_slash", "/reports/q1.csv", false},
		{"too_long", strings.Repeat("k", MaxKeyBytes+1), false},
		{"dot_segment", "reports/./q1.csv", false},
		{"parent_segment", "reports/../q1.csv", false},
		{"null_byte", "a\x00b", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateKey(tc.key)
			if tc.expectValid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestValidatePathInDirectory(t *testing.T) {
	testCases := []struct {
		name        string
		path        string
		baseDir     string
		expectValid bool
	}{
		{"simple_file", "file.txt", "/tmp/downloads", true},
		{"subdirectory", "subdir/file.txt", "/tmp/downloads", true},
		{"deep_nesting", "a/b/c/d/file.txt", "/tmp/downloads", true},
		{"parent_then_back", "subdir/../file.txt", "/tmp/downloads", true},
		{"relative_base", "file.txt", "downloads", true},
		{"absolute_inside", "/tmp/downloads/x/y.txt", "/tmp/downloads", true},
		{"dotdot_prefix_name", "..data/file.txt", "/tmp/downloads", true},

		{"escape_one_level", "../file.txt", "/tmp/downloads", false},
		{"escape_multiple", "../../file.txt", "/tmp/downloads", false},
		{"complex_escape", "subdir/../../../etc/passwd", "/tmp/downloads", false},
		{"absolute_outside", "/etc/passwd", "/tmp/downloads", false},
		{"sibling_with_prefix", "/tmp/downloads-evil/x", "/tmp/downloads", false},
		{"empty_path", "", "/tmp/downloads", false},
		{"empty_base", "file.txt", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathInDirectory(tc.path, tc.baseDir)
			if tc.expectValid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
