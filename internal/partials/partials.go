// Package partials holds the named template fragments available to includes.
package partials

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Registry maps include names to template text. It is read-only once loaded.
type Registry struct {
	entries map[string]string
}

// New builds a registry from an in-memory table.
func New(entries map[string]string) *Registry {
	r := &Registry{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		r.entries[k] = v
	}
	return r
}

// Load reads every file below dir, keyed by its slash-separated relative path.
// A missing dir yields an empty registry.
func Load(dir string) (*Registry, error) {
	r := New(nil)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return r, nil
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		text, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		r.entries[filepath.ToSlash(rel)] = string(text)
		return nil
	})
	if err != nil {
		return nil, errors.IOError("unable to read includes").WithFile(dir).WithCause(err).Build()
	}
	return r, nil
}

// Lookup returns the text registered under name.
func (r *Registry) Lookup(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	text, ok := r.entries[name]
	return text, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered fragments.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
