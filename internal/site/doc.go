// Package site holds the build's data model: pages, data records and the
// immutable snapshot every render reads from.
//
// A Page is a value. Stages never mutate one in place; they call WithContent
// and return the copy, so a page's content and its extension always change in
// the same step.
package site
