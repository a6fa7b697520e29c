package site

// DataRecord is one parsed file from the data directory.
type DataRecord struct {
	Name   string
	Values map[string]any
}

// Snapshot is the read-only aggregate of a build's loaded inputs. It is built
// once after loading completes and shared by every concurrent render without
// locking.
type Snapshot struct {
	pages    []Page
	files    []string
	data     []DataRecord
	bindings map[string]any
}

// NewSnapshot copies its inputs so later changes by the caller are not observed.
func NewSnapshot(pages []Page, files []string, data []DataRecord) *Snapshot {
	s := &Snapshot{
		pages: append([]Page(nil), pages...),
		files: append([]string(nil), files...),
		data:  append([]DataRecord(nil), data...),
	}
	s.bindings = s.buildBindings()
	return s
}

func (s *Snapshot) buildBindings() map[string]any {
	pages := make([]any, len(s.pages))
	for i, p := range s.pages {
		pages[i] = p.Bindings()
	}
	files := make([]any, len(s.files))
	for i, f := range s.files {
		files[i] = f
	}
	data := make(map[string]any, len(s.data))
	for _, d := range s.data {
		data[d.Name] = d.Values
	}
	return map[string]any{
		"pages": pages,
		"files": files,
		"data":  data,
	}
}

// Pages returns a copy of the loaded pages.
func (s *Snapshot) Pages() []Page { return append([]Page(nil), s.pages...) }

// Files returns a copy of the plain file paths.
func (s *Snapshot) Files() []string { return append([]string(nil), s.files...) }

// Bindings returns the "site" template value. Callers must treat it as read-only.
func (s *Snapshot) Bindings() map[string]any { return s.bindings }

// Context builds the {site, page} template context for one render. The top-level
// map is fresh on every call because templates may assign into it.
func (s *Snapshot) Context(p Page) map[string]any {
	return map[string]any{
		"site": s.bindings,
		"page": p.Bindings(),
	}
}
