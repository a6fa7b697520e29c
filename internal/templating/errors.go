package templating

import "fmt"

// ParseError reports template syntax the author must fix.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Name, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// RenderError reports a failure while executing a parsed template.
type RenderError struct {
	Name string
	Err  error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %s: %v", e.Name, e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }
