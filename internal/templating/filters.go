package templating

import (
	"github.com/osteele/liquid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitebuilder/internal/slug"
)

func registerFilters(e *liquid.Engine) {
	e.RegisterFilter("title", titleFilter)
	e.RegisterFilter("slugify", slug.Make)
}

func titleFilter(s string) string {
	return cases.Title(language.Und).String(s)
}
