// Package linkcheck verifies that internal links in generated HTML resolve to
// files in the output tree.
package linkcheck

import (
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Link is one URL-bearing attribute found in a document.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// Broken is an internal link whose target does not exist.
type Broken struct {
	Page   string
	Target string
}

// linkAttrs maps element names to the attribute holding their URL.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
	"iframe": "src",
}

// ExtractLinks returns every link in r in document order.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.DataError("failed to parse HTML").WithCause(err).Build()
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ShouldVerify reports whether link points into the generated site.
func ShouldVerify(link string) bool {
	if link == "" || strings.HasPrefix(link, "#") || strings.HasPrefix(link, "//") {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.Path != ""
}

// Resolve maps link, found on the page at slash path page, to a slash path
// relative to the output root. ok is false when the link escapes the root.
func Resolve(page, link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = path.Join("/", path.Dir(page), p)
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return strings.TrimPrefix(clean, "/"), true
}

// Check parses each HTML page (slash paths under outDir) and returns internal
// links that do not resolve, sorted by page then target.
func Check(outDir string, pages []string) ([]Broken, error) {
	var broken []Broken
	for _, page := range pages {
		f, err := os.Open(filepath.Join(outDir, filepath.FromSlash(page)))
		if err != nil {
			return nil, errors.IOError("failed to open HTML file").WithFile(page).WithCause(err).Build()
		}
		links, err := ExtractLinks(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, l := range links {
			if !ShouldVerify(l.URL) || seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			target, ok := Resolve(page, l.URL)
			if !ok || !exists(outDir, target) {
				broken = append(broken, Broken{Page: page, Target: l.URL})
			}
		}
	}
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].Page != broken[j].Page {
			return broken[i].Page < broken[j].Page
		}
		return broken[i].Target < broken[j].Target
	})
	return broken, nil
}

// exists accepts a file, or a directory containing index.html.
func exists(outDir, target string) bool {
	full := filepath.Join(outDir, filepath.FromSlash(target))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	_, err = os.Stat(filepath.Join(full, "index.html"))
	return err == nil
}
