// Package sanitize cleans rendered HTML against an allow-list.
package sanitize

import (
	"fmt"
	"log/slog"

	bm "github.com/microcosm-cc/bluemonday"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Sanitizer never fails: on any internal problem it returns empty output.
type Sanitizer interface {
	Sanitize(html string) string
}

// UGC applies bluemonday's user-generated-content policy.
type UGC struct {
	policy *bm.Policy
}

// NewUGC returns a sanitizer with the UGC policy. Policies are safe for
// concurrent use once built.
func NewUGC() *UGC {
	return &UGC{policy: bm.UGCPolicy()}
}

// Sanitize implements Sanitizer.
func (u *UGC) Sanitize(html string) (out string) {
	defer failClosed(&out)
	return u.policy.Sanitize(html)
}

// Func adapts a function to Sanitizer.
type Func func(string) string

// Sanitize implements Sanitizer.
func (f Func) Sanitize(html string) (out string) {
	defer failClosed(&out)
	return f(html)
}

func failClosed(out *string) {
	if r := recover(); r != nil {
		slog.Error("Sanitizer panicked; emitting empty output", logfields.Error(fmt.Errorf("%v", r)))
		*out = ""
	}
}
