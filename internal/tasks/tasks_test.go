package tasks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExecutor_RunForwardsOutput(t *testing.T) {
	skipWithoutShell(t)
	var out bytes.Buffer
	e := &Executor{Dir: t.TempDir(), Stdout: &out, Stderr: &out}

	require.NoError(t, e.Run(context.Background(), config.Runner{Command: "sh", Args: []string{"-c", "echo hello"}}))
	assert.Equal(t, "hello\n", out.String())
}

func TestExecutor_RunsInDir(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	e := &Executor{Dir: dir, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	require.NoError(t, e.Run(context.Background(), config.Runner{Command: "sh", Args: []string{"-c", "touch marker"}}))
	assert.FileExists(t, filepath.Join(dir, "marker"))
}

func TestExecutor_Failures(t *testing.T) {
	skipWithoutShell(t)
	e := &Executor{Dir: t.TempDir(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := e.Run(context.Background(), config.Runner{Command: "sh", Args: []string{"-c", "exit 3"}})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))

	err = e.Run(context.Background(), config.Runner{Command: "definitely-not-a-real-command-xyz"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryIO))
}

func TestExecutor_RunAllStopsAtFirstFailure(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	e := &Executor{Dir: dir, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := e.RunAll(context.Background(), []config.Runner{
		{Command: "sh", Args: []string{"-c", "exit 1"}},
		{Command: "sh", Args: []string{"-c", "touch never"}},
	})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "never"))
}

func TestCopy(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "fonts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "robots.txt"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "fonts", "a.woff"), []byte("font"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "robots.txt"), []byte("old"), 0o644))

	res, err := Copy(config.Copier{InputDir: src, Output: dst})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Copied)
	assert.Equal(t, 1, res.Skipped)

	b, _ := os.ReadFile(filepath.Join(dst, "robots.txt"))
	assert.Equal(t, "old", string(b))
	b, _ = os.ReadFile(filepath.Join(dst, "fonts", "a.woff"))
	assert.Equal(t, "font", string(b))

	res, err = Copy(config.Copier{InputDir: src, Output: dst, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	b, _ = os.ReadFile(filepath.Join(dst, "robots.txt"))
	assert.Equal(t, "new", string(b))
}

func TestCopy_OverwriteReplacesHardLinks(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	out := filepath.Join(base, "out")
	extra := filepath.Join(base, "extra")
	for _, d := range []string{src, out, extra} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	original := filepath.Join(src, "robots.txt")
	require.NoError(t, os.WriteFile(original, []byte("original source"), 0o644))
	if err := os.Link(original, filepath.Join(out, "robots.txt")); err != nil {
		t.Skipf("hard links unavailable: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(extra, "robots.txt"), []byte("copier"), 0o644))

	res, err := Copy(config.Copier{InputDir: extra, Output: out, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Copied)

	got, err := os.ReadFile(filepath.Join(out, "robots.txt"))
	require.NoError(t, err)
	assert.Equal(t, "copier", string(got))
	got, err = os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "original source", string(got))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestCopy_MissingInput(t *testing.T) {
	_, err := Copy(config.Copier{InputDir: filepath.Join(t.TempDir(), "absent"), Output: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryIO))
}
