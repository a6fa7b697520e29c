package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

func TestWritePage_CreatesParents(t *testing.T) {
	out := t.TempDir()
	p := site.NewPage("blog/2024/post.md", nil, "").WithContent("<p>x</p>", ".html", site.HTML)

	dst, err := WritePage(out, p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "blog", "2024", "post.html"), dst)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(b))
}

func TestPropagate(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(in, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "a", "f.bin"), []byte{0, 1, 2}, 0o644))

	res, err := Propagate(in, out, "a/f.bin")
	require.NoError(t, err)
	assert.Contains(t, []PropagateResult{PropagateLinked, PropagateCopied}, res)

	b, err := os.ReadFile(filepath.Join(out, "a", "f.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, b)

	res, err = Propagate(in, out, "a/f.bin")
	require.NoError(t, err)
	assert.Equal(t, PropagateSkipped, res)
}

func TestPropagate_MissingSource(t *testing.T) {
	_, err := Propagate(t.TempDir(), t.TempDir(), "nope")
	require.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	require.NoError(t, copyFile(src, dst))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	require.Error(t, copyFile(src, dst), "existing destination is never overwritten")
}

func TestClean(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "old", "x"), nil, 0o644))

	require.NoError(t, Clean(out))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
