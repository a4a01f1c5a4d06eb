package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaforge-api/internal/operation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// fakeFFmpeg writes an executable script that copies "data" into its last
// argument, or fails with stderr when fail is set.
func fakeFFmpeg(t *testing.T, fail bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	script := "#!/bin/sh\nfor last; do :; done\nprintf data > \"$last\"\n"
	if fail {
		script = "#!/bin/sh\necho 'Invalid data found when processing input' >&2\nexit 1\n"
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeBatch(t *testing.T, dir string) string {
	t.Helper()
	batch := `
[[operations]]
kind = "grayscale"
input = "` + filepath.Join(dir, "in.mp4") + `"
output = "` + filepath.Join(dir, "gray.mp4") + `"

[[operations]]
kind = "cut"
input = "` + filepath.Join(dir, "in.mp4") + `"
output = "` + filepath.Join(dir, "cut.mp4") + `"
start = "00:00:01"
end = "00:00:03"
`
	path := filepath.Join(dir, "batch.toml")
	require.NoError(t, os.WriteFile(path, []byte(batch), 0o600))
	return path
}

func TestOperationsCommand(t *testing.T) {
	out, err := execute(t, "operations")
	require.NoError(t, err)

	for _, s := range operation.Specs() {
		assert.Contains(t, out, string(s.Kind))
	}
	assert.Contains(t, out, "Description")
}

func TestOperationsCommand_JSON(t *testing.T) {
	out, err := execute(t, "operations", "--json")
	require.NoError(t, err)

	var views []operationView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	assert.Len(t, views, len(operation.Specs()))
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "plan", writeBatch(t, dir))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# 1 grayscale", lines[0])
	assert.Contains(t, lines[1], "hue=s=0")
	assert.True(t, strings.HasSuffix(lines[1], filepath.Join(dir, "gray.mp4")))
	assert.Equal(t, "# 2 cut", lines[2])
	assert.Contains(t, lines[3], "-ss 00:00:01")
}

func TestPlanCommand_Errors(t *testing.T) {
	_, err := execute(t, "plan", filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "open batch")

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[operations]]\nkind = \"cut\"\ninput = \"a.mp4\"\noutput = \"b.mp4\"\nstart = \"1\"\n"), 0o600))
	_, err = execute(t, "plan", path)
	assert.ErrorIs(t, err, operation.ErrInvalidArgument)

	_, err = execute(t, "plan")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, false)
	dir := t.TempDir()

	out, err := execute(t, "--ffmpeg", ffmpeg, "run", "--json", writeBatch(t, dir))
	require.NoError(t, err)

	var views []runView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotNil(t, v.Result)
		assert.True(t, v.Result.IsSuccess)
		assert.Equal(t, int64(4), v.SizeBytes)
	}
	assert.FileExists(t, filepath.Join(dir, "gray.mp4"))
}

func TestRunCommand_Table(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, false)

	out, err := execute(t, "--ffmpeg", ffmpeg, "run", writeBatch(t, t.TempDir()))
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "4 B")
}

func TestRunCommand_Failure(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, true)

	out, err := execute(t, "--ffmpeg", ffmpeg, "run", "--json", writeBatch(t, t.TempDir()))
	require.EqualError(t, err, "2 of 2 operations failed")

	var views []runView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Contains(t, views[0].Error, "Invalid data found")
	assert.False(t, views[0].Result.IsSuccess)
}

func TestRunCommand_FailFast(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, true)

	out, err := execute(t, "--ffmpeg", ffmpeg, "run", "--json", "--fail-fast", writeBatch(t, t.TempDir()))
	require.EqualError(t, err, "1 of 2 operations failed")

	var views []runView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	assert.Len(t, views, 1)
}

func TestRenderRuns(t *testing.T) {
	out := renderRuns([]runView{{Index: 1, Kind: "cut", Error: "cut: invalid argument"}}, false)
	assert.Contains(t, out, "invalid")
	assert.Contains(t, out, "cut: invalid argument")
}
