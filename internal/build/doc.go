// Package build runs a complete site build around the pipeline: source sync,
// pre-build runners, the pipeline itself, copiers, post-build runners, build
// history and event publishing. The CLI and watch mode both route through
// BuildService.
package build
