// Package markdown renders markdown bodies to HTML with goldmark.
package markdown

import (
	"bytes"
	"strconv"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/slug"
)

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md   goldmark.Markdown
	opts config.MarkdownOptions
}

// New builds a renderer with GFM, footnotes, definition lists and smart
// punctuation enabled.
func New(opts config.MarkdownOptions) *Renderer {
	var parserOpts []parser.Option
	if opts.HeadingIDs {
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}
	var rendererOpts []renderer.Option
	if opts.UnsafeHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
		),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Renderer{md: md, opts: opts}
}

// Render converts source to HTML.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	var ctxOpts []parser.ContextOption
	if r.opts.HeadingIDs {
		ctxOpts = append(ctxOpts, parser.WithIDs(newPrefixedIDs(r.opts.HeadingIDPrefix)))
	}
	if err := r.md.Convert([]byte(source), &buf, parser.WithContext(parser.NewContext(ctxOpts...))); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// prefixedIDs generates unique slug ids for headings, each carrying a fixed
// prefix. One instance serves one document.
type prefixedIDs struct {
	prefix string
	seen   map[string]bool
}

func newPrefixedIDs(prefix string) *prefixedIDs {
	return &prefixedIDs{prefix: prefix, seen: make(map[string]bool)}
}

func (s *prefixedIDs) Generate(value []byte, kind gmast.NodeKind) []byte {
	id := slug.Make(string(value))
	if id == "" {
		if kind == gmast.KindHeading {
			id = "heading"
		} else {
			id = "id"
		}
	}
	id = s.prefix + id
	if !s.seen[id] {
		s.seen[id] = true
		return []byte(id)
	}
	for i := 1; ; i++ {
		candidate := id + "-" + strconv.Itoa(i)
		if !s.seen[candidate] {
			s.seen[candidate] = true
			return []byte(candidate)
		}
	}
}

func (s *prefixedIDs) Put(value []byte) {
	s.seen[string(value)] = true
}
