package site

import (
	"path"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// Page is one rendered unit of the site.
type Page struct {
	// Source is the slash-separated path relative to the input root.
	Source string
	// Ext is the current output extension including the dot; empty means none.
	Ext     string
	Type    ContentType
	Data    map[string]any
	Content string
}

// NewPage returns a Raw page for source; Ext starts as the source extension.
func NewPage(source string, data map[string]any, content string) Page {
	return Page{
		Source:  source,
		Ext:     path.Ext(source),
		Type:    Raw,
		Data:    data,
		Content: content,
	}
}

// OutputPath is Source with its extension replaced by Ext.
func (p Page) OutputPath() string {
	return strings.TrimSuffix(p.Source, path.Ext(p.Source)) + p.Ext
}

// WithContent returns a copy of p carrying new content, extension and type.
func (p Page) WithContent(content, ext string, typ ContentType) Page {
	p.Content = content
	p.Ext = ext
	p.Type = typ
	return p
}

// Layout returns the scalar "layout" value from the page data.
func (p Page) Layout() string {
	s, _ := p.Data["layout"].(string)
	return strings.TrimSpace(s)
}

// Fingerprint hashes the page data and current content.
func (p Page) Fingerprint() string {
	front := ""
	if len(p.Data) > 0 {
		if b, err := yaml.Marshal(p.Data); err == nil {
			front = strings.TrimSuffix(string(b), "\n")
		}
	}
	return mdfp.CalculateFingerprintFromParts(front, p.Content)
}

// Bindings is the template view of the page.
func (p Page) Bindings() map[string]any {
	return map[string]any{
		"path":    p.OutputPath(),
		"source":  p.Source,
		"ext":     strings.TrimPrefix(p.Ext, "."),
		"data":    p.Data,
		"content": p.Content,
	}
}

// MergeVars layers frontmatter over the default variables; frontmatter wins.
func MergeVars(defaults config.Vars, front map[string]any) map[string]any {
	merged := defaults.Map()
	for k, v := range front {
		merged[k] = v
	}
	return merged
}
