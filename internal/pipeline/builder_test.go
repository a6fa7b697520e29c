package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/stylesheet"
)

type fakeCompiler struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCompiler) Compile(source string, syntax stylesheet.Syntax, _ []string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "/* " + string(syntax) + " */\n" + source, nil
}

func (f *fakeCompiler) Close() error { return nil }

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
}

func readOut(t *testing.T, cfg config.SiteConfig, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func testSite(t *testing.T, files map[string]string) config.SiteConfig {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default().Site
	cfg.InputDir = filepath.Join(base, "src")
	cfg.OutputDir = filepath.Join(base, "out")
	cfg.Workers = 4
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	writeTree(t, cfg.InputDir, files)
	return cfg
}

func runBuild(t *testing.T, cfg config.SiteConfig) (*Report, error) {
	t.Helper()
	return NewBuilder(cfg, Deps{Stylesheet: &fakeCompiler{}}).Run(context.Background())
}

func TestBuilder_MarkdownPageWithLayout(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"post.md":            "---\ntitle = \"Hi\"\nlayout = \"base.html\"\n---\n# Hello {{ page.data.title }}",
		"_layouts/base.html": "<html>{{ page.content }}</html>",
	})

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "<html><h1>Hello Hi</h1>\n</html>", readOut(t, cfg, "post.html"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "post.md"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "_layouts"))
	assert.Equal(t, metrics.BuildSuccess, rep.Outcome)
	require.Len(t, rep.Pages, 1)
	assert.Equal(t, "post.html", rep.Pages[0].Output)
	assert.NotEmpty(t, rep.Pages[0].Fingerprint)
	assert.NotEmpty(t, rep.BuildID)
}

func TestBuilder_PlainFilesPropagateAndPagesShadow(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"index.md":     "---\n---\nfrom page",
		"index.html":   "plain index",
		"img/logo.png": "\x89PNG\x00\x01",
		".hidden":      "secret",
	})

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "<p>from page</p>\n", readOut(t, cfg, "index.html"))
	assert.Equal(t, "\x89PNG\x00\x01", readOut(t, cfg, "img/logo.png"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, ".hidden"))
	assert.Equal(t, 2, rep.PlainFiles)
	assert.Equal(t, 1, rep.Shadowed)
	assert.Equal(t, 1, rep.Linked+rep.Copied)
}

func TestBuilder_SnapshotIsSharedAcrossPages(t *testing.T) {
	list := "---\n---\n{% for p in site.pages %}{{ p.source }},{% endfor %}"
	cfg := testSite(t, map[string]string{
		"a.html": list,
		"b.html": list,
		"c.txt":  "plain",
	})

	_, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "a.html,b.html,", readOut(t, cfg, "a.html"))
	assert.Equal(t, "a.html,b.html,", readOut(t, cfg, "b.html"))
}

func TestBuilder_DataAndIncludes(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"_data/site.toml":       "name = \"Demo\"\n",
		"_data/broken.json":     "{",
		"_includes/footer.html": "(c) {{ site.data.site.name }}",
		"index.html":            "---\n---\n{{ site.data.site.name }}|{% include footer.html %}",
	})

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "Demo|(c) Demo", readOut(t, cfg, "index.html"))
	assert.Equal(t, 1, rep.DataRecords)
	assert.Equal(t, 1, rep.Partials)
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "_data"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "_includes"))
}

func TestBuilder_FragmentsAreSkipped(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"nav.liquid": "---\n---\n<nav></nav>",
		"index.html": "---\n---\nhome",
	})

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "nav.liquid"))
	assert.Equal(t, 1, rep.SkippedPages)
	assert.Len(t, rep.Pages, 1)
}

func TestBuilder_LayoutsDoNotChain(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"page.html":           "---\nlayout = \"inner.html\"\n---\nbody",
		"_layouts/inner.html": "---\nlayout = \"outer.html\"\n---\n[{{ page.content }}]",
		"_layouts/outer.html": "<outer>{{ page.content }}</outer>",
	})

	_, err := runBuild(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, "[body]", readOut(t, cfg, "page.html"))
}

func TestBuilder_StylesheetsCompile(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"css/main.scss": "---\n---\nbody { color: red; }",
	})
	fc := &fakeCompiler{}

	_, err := NewBuilder(cfg, Deps{Stylesheet: fc}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/* scss */\nbody { color: red; }", readOut(t, cfg, "css/main.css"))
	assert.EqualValues(t, 1, fc.calls.Load())
}

func TestBuilder_MissingLayoutWarns(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"page.html": "---\nlayout = \"nope.html\"\n---\nbare",
	})

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "bare", readOut(t, cfg, "page.html"))
	assert.Equal(t, metrics.BuildWarning, rep.Outcome)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, "page.html", rep.Warnings[0].File)
}

func TestBuilder_TemplateSyntaxErrorFails(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"bad.html": "---\n---\n{% if true %}never closed",
	})

	rep, err := runBuild(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryData))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageTemplate, se.Stage)
	assert.Equal(t, "bad.html", se.Page)
	assert.Equal(t, metrics.BuildFailed, rep.Outcome)
}

func TestBuilder_FatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		compile  error
		category errors.ErrorCategory
		stage    string
	}{
		{
			name:     "stylesheet compile error",
			files:    map[string]string{"css/main.scss": "---\n---\nbody {"},
			compile:  stderrors.New("expected \"}\""),
			category: errors.CategoryData,
			stage:    StageMarkup,
		},
		{
			name: "layout syntax error",
			files: map[string]string{
				"page.html":         "---\nlayout = \"bad.html\"\n---\nbody",
				"_layouts/bad.html": "{% if true %}never closed",
			},
			category: errors.CategoryData,
			stage:    StageLayout,
		},
		{
			// foo.html is both a page and the parent directory of another page.
			name: "page write failure",
			files: map[string]string{
				"foo.md":            "---\n---\nfoo",
				"foo.html/bar.html": "---\n---\nbar",
			},
			category: errors.CategoryIO,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSite(t, tt.files)

			rep, err := NewBuilder(cfg, Deps{Stylesheet: &fakeCompiler{err: tt.compile}}).Run(context.Background())
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, tt.category), "got %v", err)
			assert.Equal(t, metrics.BuildFailed, rep.Outcome)
			if tt.stage != "" {
				var se *StageError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.stage, se.Stage)
				assert.Equal(t, StageErrorFatal, se.Kind)
			}
		})
	}
}

func TestBuilder_OutputNestedInInput(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"index.md": "---\n---\nhome",
		"logo.png": "png",
	})
	cfg.OutputDir = filepath.Join(cfg.InputDir, "public")

	for range 2 {
		rep, err := runBuild(t, cfg)
		require.NoError(t, err)
		assert.Len(t, rep.Pages, 1)
		assert.Equal(t, 1, rep.PlainFiles)
	}

	assert.Equal(t, "<p>home</p>\n", readOut(t, cfg, "index.html"))
	assert.Equal(t, "png", readOut(t, cfg, "logo.png"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "public"))
}

func TestBuilder_CleansStaleOutput(t *testing.T) {
	cfg := testSite(t, map[string]string{"index.html": "---\n---\nx"})
	writeTree(t, cfg.OutputDir, map[string]string{"stale.html": "old"})

	_, err := runBuild(t, cfg)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "stale.html"))
}

func TestBuilder_TemplateDisabledMakesEveryFileAPage(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"raw.txt":   "{{ untouched }}",
		"readme.md": "*hi*",
	})
	cfg.Renderers.Template = false

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "{{ untouched }}", readOut(t, cfg, "raw.txt"))
	assert.Equal(t, "<p><em>hi</em></p>\n", readOut(t, cfg, "readme.html"))
	assert.Equal(t, 0, rep.PlainFiles)
}

func TestBuilder_SanitizerStripsScripts(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"index.html": "---\n---\n<p>ok</p><script>alert(1)</script>",
	})
	cfg.Renderers.Sanitizer = true

	_, err := runBuild(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", readOut(t, cfg, "index.html"))
}

func TestBuilder_CheckLinksReportsBroken(t *testing.T) {
	cfg := testSite(t, map[string]string{
		"index.html": "---\n---\n<a href=\"about.html\">a</a><a href=\"gone.html\">g</a>",
		"about.html": "plain",
	})
	cfg.CheckLinks = true

	rep, err := runBuild(t, cfg)
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0].Message, "gone.html")
	assert.Contains(t, rep.PhaseDurations, PhaseLinkCheck)
}

func TestBuilder_CanceledContext(t *testing.T) {
	cfg := testSite(t, map[string]string{"index.html": "---\n---\nx"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := NewBuilder(cfg, Deps{Stylesheet: &fakeCompiler{}}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, metrics.BuildCanceled, rep.Outcome)
}

func TestBuilder_MissingInputDir(t *testing.T) {
	cfg := config.Default().Site
	cfg.InputDir = filepath.Join(t.TempDir(), "absent")
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	_, err := runBuild(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}
