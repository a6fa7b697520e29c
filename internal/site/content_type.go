package site

// ContentType tracks where a page's content sits in the pipeline.
type ContentType int

const (
	Raw ContentType = iota
	Templated
	HTML
	CSS
	LaidOut
	Sanitized
)

var contentTypeNames = [...]string{
	Raw:       "raw",
	Templated: "templated",
	HTML:      "html",
	CSS:       "css",
	LaidOut:   "laid_out",
	Sanitized: "sanitized",
}

func (t ContentType) String() string {
	if t < 0 || int(t) >= len(contentTypeNames) {
		return "unknown"
	}
	return contentTypeNames[t]
}
