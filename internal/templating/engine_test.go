package templating

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/partials"
)

func ctx(page map[string]any) map[string]any {
	return map[string]any{
		"site": map[string]any{"pages": []any{}, "data": map[string]any{"nav": map[string]any{"home": "/"}}},
		"page": page,
	}
}

func TestRender_PageData(t *testing.T) {
	e := New(partials.New(nil), Options{})

	out, err := e.Render("post.md", "# Hello {{ page.data.title }}", ctx(map[string]any{
		"data": map[string]any{"title": "Hi"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "# Hello Hi", out)
}

func TestRender_SiteData(t *testing.T) {
	e := New(partials.New(nil), Options{})
	out, err := e.Render("x", `{{ site.data.nav.home }}`, ctx(nil))
	require.NoError(t, err)
	assert.Equal(t, "/", out)
}

func TestRender_Filters(t *testing.T) {
	e := New(partials.New(nil), Options{})

	tests := []struct {
		src  string
		want string
	}{
		{`{{ "hello world" | title }}`, "Hello World"},
		{`{{ "Hello, World!" | slugify }}`, "hello-world"},
		{`{{ "abc" | upcase }}`, "ABC"},
	}
	for _, tt := range tests {
		out, err := e.Render("f", tt.src, ctx(nil))
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, out, tt.src)
	}
}

func TestRender_SyntaxErrorIsParseError(t *testing.T) {
	e := New(partials.New(nil), Options{})

	_, err := e.Render("bad.md", "{% if true %}unterminated", ctx(nil))
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.md", pe.Name)
}

func TestRender_StrictVariables(t *testing.T) {
	lax := New(partials.New(nil), Options{})
	out, err := lax.Render("a", "[{{ page.nope }}]", ctx(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	strict := New(partials.New(nil), Options{StrictVariables: true})
	_, err = strict.Render("a", "[{{ nope }}]", ctx(map[string]any{}))
	require.Error(t, err)
	var re *RenderError
	assert.True(t, errors.As(err, &re))
}

func TestInclude_FromRegistry(t *testing.T) {
	reg := partials.New(map[string]string{
		"nav.html":   `<nav>{{ page.data.title }}</nav>`,
		"note.html":  `<p>{{ include.text }}</p>`,
		"outer.html": `[{% include "nav.html" %}]`,
	})
	e := New(reg, Options{})
	page := map[string]any{"data": map[string]any{"title": "Hi", "widget": "nav.html"}}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "quoted", src: `{% include "nav.html" %}`, want: "<nav>Hi</nav>"},
		{name: "bare", src: `{% include nav.html %}`, want: "<nav>Hi</nav>"},
		{name: "params", src: `{% include note.html text="yo" %}`, want: "<p>yo</p>"},
		{name: "variable param", src: `{% include note.html text=page.data.title %}`, want: "<p>Hi</p>"},
		{name: "nested", src: `{% include outer.html %}`, want: "[<nav>Hi</nav>]"},
		{name: "dynamic name", src: `{% include page.data.widget %}`, want: "<nav>Hi</nav>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Render(tt.name, tt.src, ctx(page))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestInclude_Missing(t *testing.T) {
	e := New(partials.New(nil), Options{})
	_, err := e.Render("p", `{% include "missing.html" %}`, ctx(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.html")
}

func TestRender_ConcurrentIncludes(t *testing.T) {
	e := New(partials.New(map[string]string{"a.html": "{{ page.n }}"}), Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, err := e.Render("c", `{% include "a.html" %}`, ctx(map[string]any{"n": n}))
			assert.NoError(t, err)
			assert.NotEmpty(t, out)
		}(i)
	}
	wg.Wait()
}

func TestParseIncludeArgs(t *testing.T) {
	name, params, err := parseIncludeArgs(` "my file.html"  a=1 b="x y" `)
	require.NoError(t, err)
	assert.Equal(t, "my file.html", name)
	assert.Equal(t, []includeParam{{key: "a", expr: "1"}, {key: "b", expr: `"x y"`}}, params)

	_, _, err = parseIncludeArgs("")
	assert.Error(t, err)
	_, _, err = parseIncludeArgs(`x.html "unterminated`)
	assert.Error(t, err)
	_, _, err = parseIncludeArgs(`x.html novalue`)
	assert.Error(t, err)
}
