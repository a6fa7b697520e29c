package frontmatter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_SplitsBlockAndBody(t *testing.T) {
	input := []byte("---\ntitle = \"Hi\"\nlayout = \"base.html\"\n---\n# Hello {{ page.data.title }}")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "title = \"Hi\"\nlayout = \"base.html\"\n", string(fm))
	require.Equal(t, "# Hello {{ page.data.title }}", string(body))
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	_, body, had, err := Split(input)
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
	require.Equal(t, input, body)
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\r\nkey: value\r\n---\r\n# Title\r\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyFrontmatterBlock(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\na = 1\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "a = 1\n", string(fm))
	require.Empty(t, body)
}

func TestSplit_DelimiterMustBeExactLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		had   bool
	}{
		{name: "leading blank line", input: "\n---\na = 1\n---\nbody", had: false},
		{name: "dashes with suffix", input: "----\na = 1\n---\nbody", had: false},
		{name: "indented closing is content", input: "---\na = 1\n ---\n---\nbody", had: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, had, _ := Split([]byte(tt.input))
			assert.Equal(t, tt.had, had)
		})
	}
}

// Rendered output must never look like frontmatter to a second pass.
func TestSplit_RenderedHTMLNeverReextracts(t *testing.T) {
	_, body, had, err := Split([]byte("<html><h1>Hello Hi</h1>\n</html>"))
	require.NoError(t, err)
	assert.False(t, had)
	assert.Equal(t, "<html><h1>Hello Hi</h1>\n</html>", string(body))
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name   string
		block  string
		format config.Format
		want   map[string]any
	}{
		{name: "toml", block: "title = \"Hi\"\ncount = 3\n", format: config.FormatTOML, want: map[string]any{"title": "Hi", "count": int64(3)}},
		{name: "yaml", block: "title: Hi\ntags: [a, b]\n", format: config.FormatYAML, want: map[string]any{"title": "Hi", "tags": []any{"a", "b"}}},
		{name: "json", block: "{\"title\": \"Hi\"}", format: config.FormatJSON, want: map[string]any{"title": "Hi"}},
		{name: "empty", block: "  \n", format: config.FormatTOML, want: map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.block), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_TOMLDates(t *testing.T) {
	got, err := Parse([]byte("date = 2024-01-02T03:04:05Z\n"), config.FormatTOML)
	require.NoError(t, err)
	assert.IsType(t, time.Time{}, got["date"])
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("title = \n"), config.FormatTOML)
	require.Error(t, err)

	_, err = Parse([]byte("a: [\n"), config.FormatYAML)
	require.Error(t, err)

	_, err = Parse([]byte("a = 1"), config.Format("ini"))
	require.Error(t, err)
}
