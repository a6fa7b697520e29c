package data

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoad_AllFormatsSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "site.toml", "title = \"Blog\"\n")
	writeFile(t, dir, "authors.yaml", "alice:\n  name: Alice\n")
	writeFile(t, dir, "nav/main.json", "{\"home\": \"/\"}")
	writeFile(t, dir, "notes.txt", "ignored")

	records, err := Load(context.Background(), dir)
	require.NoError(t, err)

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"authors", "nav/main", "site"}, names)
	assert.Equal(t, "Blog", records[2].Values["title"])
	assert.Equal(t, "/", records[1].Values["home"])
}

func TestLoad_UnparseableFileIsDroppedWithWarning(t *testing.T) {
	logs := captureLogs(t)
	dir := t.TempDir()
	writeFile(t, dir, "good.toml", "a = 1\n")
	writeFile(t, dir, "bad.toml", "a = = 1\n")

	records, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].Name)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "bad.toml")
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	records, err := Load(context.Background(), filepath.Join(t.TempDir(), "_data"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoad_FileInsteadOfDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "_data", "x")
	_, err := Load(context.Background(), filepath.Join(dir, "_data"))
	require.Error(t, err)
}
