package pipeline

import (
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Phase names, in execution order.
const (
	PhasePrepare   = "prepare"
	PhaseLoad      = "load"
	PhaseRender    = "render"
	PhaseWrite     = "write"
	PhasePropagate = "propagate"
	PhaseLinkCheck = "linkcheck"
)

// Warning is a recoverable problem recorded during a build.
type Warning struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// PageRecord is one written page.
type PageRecord struct {
	Source      string `json:"source"`
	Output      string `json:"output"`
	Fingerprint string `json:"fingerprint"`
}

// Report summarizes one build.
type Report struct {
	BuildID        string                    `json:"build_id"`
	Start          time.Time                 `json:"start"`
	End            time.Time                 `json:"end"`
	Outcome        metrics.BuildOutcomeLabel `json:"outcome"`
	Error          string                    `json:"error,omitempty"`
	Pages          []PageRecord              `json:"pages"`
	SkippedPages   int                       `json:"skipped_pages"`
	PlainFiles     int                       `json:"plain_files"`
	Linked         int                       `json:"linked"`
	Copied         int                       `json:"copied"`
	Shadowed       int                       `json:"shadowed"`
	DataRecords    int                       `json:"data_records"`
	Partials       int                       `json:"partials"`
	Warnings       []Warning                 `json:"warnings,omitempty"`
	PhaseDurations map[string]time.Duration  `json:"phase_durations"`
}

func newReport(id string) *Report {
	return &Report{
		BuildID:        id,
		Start:          time.Now(),
		PhaseDurations: make(map[string]time.Duration),
	}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

func (r *Report) finish(err error) {
	r.End = time.Now()
	switch {
	case err != nil && isCanceled(err):
		r.Outcome = metrics.BuildCanceled
	case err != nil:
		r.Outcome = metrics.BuildFailed
	case len(r.Warnings) > 0:
		r.Outcome = metrics.BuildWarning
	default:
		r.Outcome = metrics.BuildSuccess
	}
	if err != nil {
		r.Error = err.Error()
	}
}
