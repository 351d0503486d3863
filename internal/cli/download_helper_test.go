package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/util/paths"
)

// lineReader hands out one line per Read so every prompt's bufio.Reader
// sees only its own answer.
type lineReader struct {
	lines []string
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.lines[0]+"\n")
	r.lines = r.lines[1:]
	return n, nil
}

// withPromptAnswers feeds answers to the interactive prompts for one test.
func withPromptAnswers(t *testing.T, answers ...string) *bytes.Buffer {
	t.Helper()
	in, out := promptInput, promptOutput
	t.Cleanup(func() { promptInput, promptOutput = in, out })

	var buf bytes.Buffer
	promptInput = &lineReader{lines: answers}
	promptOutput = &buf
	return &buf
}

// plannedFiles plans names under dir; the existing ones are created first.
func plannedFiles(t *testing.T, dir string, names []string, existing ...string) []plannedDownload {
	t.Helper()
	for _, name := range existing {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644))
	}
	var files []plannedDownload
	for _, name := range names {
		files = append(files, plannedDownload{
			bucket: "bucket",
			FileForDownload: paths.FileForDownload{
				Key:       "data/" + name,
				Name:      name,
				LocalPath: filepath.Join(dir, name),
				Size:      3,
			},
		})
	}
	return files
}

func names(files []plannedDownload) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestResolveConflicts_NoConflicts(t *testing.T) {
	out := withPromptAnswers(t)
	files := plannedFiles(t, t.TempDir(), []string{"a.txt", "b.txt"})

	keep, skipped, err := resolveConflicts(files, downloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(keep))
	assert.Zero(t, skipped)
	assert.Empty(t, out.String(), "nothing to ask")
}

func TestResolveConflicts_Modes(t *testing.T) {
	tests := []struct {
		name    string
		opts    downloadOptions
		keep    []string
		skipped int
	}{
		{"overwrite", downloadOptions{overwriteAll: true}, []string{"a.txt", "b.txt", "c.txt"}, 0},
		{"skip existing", downloadOptions{skipAll: true}, []string{"c.txt"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := withPromptAnswers(t)
			files := plannedFiles(t, t.TempDir(), []string{"a.txt", "b.txt", "c.txt"}, "a.txt", "b.txt")

			keep, skipped, err := resolveConflicts(files, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.keep, names(keep))
			assert.Equal(t, tt.skipped, skipped)
			assert.Empty(t, out.String())
		})
	}
}

func TestResolveConflicts_Prompts(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		keep    []string
		skipped int
		prompts int
	}{
		{"skip once then overwrite once", []string{"1", "3", "1"}, []string{"b.txt"}, 2, 3},
		{"skip all", []string{"2"}, nil, 3, 1},
		{"overwrite all after one skip", []string{"1", "4"}, []string{"b.txt", "c.txt"}, 1, 2},
		{"invalid answer asks again", []string{"9", "4"}, []string{"a.txt", "b.txt", "c.txt"}, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := withPromptAnswers(t, tt.answers...)
			files := plannedFiles(t, t.TempDir(), []string{"a.txt", "b.txt", "c.txt"}, "a.txt", "b.txt", "c.txt")

			keep, skipped, err := resolveConflicts(files, downloadOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.keep, names(keep))
			assert.Equal(t, tt.skipped, skipped)
			assert.Equal(t, tt.prompts, strings.Count(out.String(), "Choose [1-5]: "))
		})
	}
}

func TestResolveConflicts_Abort(t *testing.T) {
	withPromptAnswers(t, "5")
	files := plannedFiles(t, t.TempDir(), []string{"a.txt"}, "a.txt")

	keep, _, err := resolveConflicts(files, downloadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aborted")
	assert.Nil(t, keep)
}

func TestResolveConflicts_ClosedInput(t *testing.T) {
	withPromptAnswers(t)
	files := plannedFiles(t, t.TempDir(), []string{"a.txt"}, "a.txt")

	_, _, err := resolveConflicts(files, downloadOptions{})
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[string]bool{"y": true, "YES": true, "n": false, "": false, "maybe": false} {
		withPromptAnswers(t, answer)
		got, err := confirm("Delete?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "answer %q", answer)
	}
}

func TestGetCommand(t *testing.T) {
	cmd := newGetCmd()
	assert.Equal(t, "get <url> [url...]", cmd.Use)
	assert.Error(t, cmd.Args(cmd, nil))

	for _, flag := range []string{"dest", "overwrite", "skip-existing", "include", "exclude"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "--%s", flag)
	}
	assert.Equal(t, ".", cmd.Flags().Lookup("dest").DefValue)
}
