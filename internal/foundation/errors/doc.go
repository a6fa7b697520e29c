// Package errors provides the classified error primitives used across sitebuilder.
//
// Every fatal condition in a build is surfaced as a ClassifiedError carrying a
// category (which decides the process exit status), a severity, and structured
// context such as the file that caused it. Leaf code never exits the process; the
// CLIErrorAdapter in the command layer makes that single decision.
//
// Key features:
//   - ErrorCategory: Broad error classification (io, data, not_found, config, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: exit status mapping and operator-facing formatting
//
// Example usage:
//
//	err := errors.DataError("template syntax error").
//		WithContext("file", page.Source).
//		WithCause(parseErr).
//		Build()
package errors
