// Package metrics records build and serving metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	b := pipeline.NewBuilder(cfg, deps) // deps.Recorder nil -> NoopRecorder
//
// The serve command swaps in a PrometheusRecorder and exposes it with
// HTTPHandler on server.metrics_bind.
package metrics
