// Package pipeline sequences page stages and drives a complete site build.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// ErrSkipPage drops a page from the output set without failing the build.
var ErrSkipPage = stderrors.New("skip page")

// Stage is one content transform in the per-page pipeline. Apply must treat
// the snapshot as read-only and return a new page value.
type Stage interface {
	Name() string
	Apply(ctx context.Context, p site.Page, snap *site.Snapshot) (site.Page, error)
}

// Stage names.
const (
	StageTemplate = "template"
	StageMarkup   = "markup"
	StageLayout   = "layout"
	StageSanitize = "sanitize"
)

// Identity stands in for a disabled stage.
type Identity struct{ StageName string }

func (i Identity) Name() string { return i.StageName }

func (Identity) Apply(_ context.Context, p site.Page, _ *site.Snapshot) (site.Page, error) {
	return p, nil
}

// StageErrorKind classifies how a stage failure affects the build.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError records which stage failed on which page.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Page  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s (%s): %v", e.Kind, e.Stage, e.Page, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Chain is an ordered list of stages applied to each page.
type Chain struct {
	stages   []Stage
	recorder metrics.Recorder
}

// NewChain returns a chain over stages; rec may be nil.
func NewChain(stages []Stage, rec metrics.Recorder) *Chain {
	return &Chain{stages: stages, recorder: metrics.OrNoop(rec)}
}

// Names lists the stage names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.stages))
	for i, st := range c.stages {
		names[i] = st.Name()
	}
	return names
}

// Apply runs p through the stages in order. A stage returning ErrSkipPage
// stops processing and reports skipped=true.
func (c *Chain) Apply(ctx context.Context, p site.Page, snap *site.Snapshot) (out site.Page, skipped bool, err error) {
	for _, st := range c.stages {
		if ctx.Err() != nil {
			return p, false, &StageError{Kind: StageErrorCanceled, Stage: st.Name(), Page: p.Source, Err: ctx.Err()}
		}
		next, err := st.Apply(observability.WithStage(ctx, st.Name()), p, snap)
		if stderrors.Is(err, ErrSkipPage) {
			c.recorder.IncStageResult(st.Name(), metrics.ResultSkipped)
			return p, true, nil
		}
		if err != nil {
			c.recorder.IncStageResult(st.Name(), metrics.ResultFatal)
			return p, false, &StageError{Kind: StageErrorFatal, Stage: st.Name(), Page: p.Source, Err: err}
		}
		c.recorder.IncStageResult(st.Name(), metrics.ResultSuccess)
		p = next
	}
	return p, false, nil
}
