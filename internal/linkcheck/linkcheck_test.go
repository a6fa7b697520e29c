package linkcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	doc := `<html><head><link rel="stylesheet" href="/style.css"><script src="app.js"></script></head>
<body><a href="about.html">About</a><img src="img/logo.png"><a>no href</a></body></html>`

	links, err := ExtractLinks(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, links, 4)
	assert.Equal(t, Link{URL: "/style.css", Tag: "link", Attribute: "href"}, links[0])
	assert.Equal(t, "app.js", links[1].URL)
	assert.Equal(t, "about.html", links[2].URL)
	assert.Equal(t, "img", links[3].Tag)
}

func TestShouldVerify(t *testing.T) {
	cases := map[string]bool{
		"":                    false,
		"#top":                false,
		"https://example.com": false,
		"//cdn.example.com/x": false,
		"mailto:a@b.c":        false,
		"data:image/png;x":    false,
		"about.html":          true,
		"/css/site.css":       true,
		"docs/?q=1#frag":      true,
	}
	for link, want := range cases {
		assert.Equal(t, want, ShouldVerify(link), link)
	}
}

func TestResolve(t *testing.T) {
	got, ok := Resolve("blog/post.html", "../index.html")
	require.True(t, ok)
	assert.Equal(t, "index.html", got)

	got, _ = Resolve("blog/post.html", "/css/a.css?v=2")
	assert.Equal(t, "css/a.css", got)

	got, _ = Resolve("blog/post.html", "img/x.png#frag")
	assert.Equal(t, "blog/img/x.png", got)

	got, _ = Resolve("index.html", "docs/")
	assert.Equal(t, "docs/", got)
}

func TestCheck(t *testing.T) {
	out := t.TempDir()
	write := func(rel, body string) {
		full := filepath.Join(out, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	write("index.html", `<a href="blog/post.html">p</a><a href="missing.html">m</a><a href="docs/">d</a><a href="https://x.org">x</a>`)
	write("blog/post.html", `<a href="../index.html">home</a><img src="gone.png">`)
	write("docs/index.html", `ok`)

	broken, err := Check(out, []string{"index.html", "blog/post.html"})
	require.NoError(t, err)
	assert.Equal(t, []Broken{
		{Page: "blog/post.html", Target: "gone.png"},
		{Page: "index.html", Target: "missing.html"},
	}, broken)
}

func TestCheck_MissingPage(t *testing.T) {
	_, err := Check(t.TempDir(), []string{"nope.html"})
	require.Error(t, err)
}
