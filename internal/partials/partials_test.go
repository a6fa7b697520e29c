package partials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nav"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "footer.html"), []byte("<footer/>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nav", "top.liquid"), []byte("{{ page.path }}"), 0o600))

	reg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"footer.html", "nav/top.liquid"}, reg.Names())
	text, ok := reg.Lookup("nav/top.liquid")
	require.True(t, ok)
	assert.Equal(t, "{{ page.path }}", text)
	_, ok = reg.Lookup("missing.html")
	assert.False(t, ok)
}

func TestLoad_MissingDir(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "_includes"))
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestNew_CopiesInput(t *testing.T) {
	src := map[string]string{"a": "1"}
	reg := New(src)
	src["a"] = "2"
	text, _ := reg.Lookup("a")
	assert.Equal(t, "1", text)

	var nilReg *Registry
	_, ok := nilReg.Lookup("a")
	assert.False(t, ok)
}
