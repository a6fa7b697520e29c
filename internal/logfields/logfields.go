package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyPhase      = "phase"
	KeyDurationMS = "duration_ms"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyDataset    = "dataset"
	KeyLayout     = "layout"
	KeyPartial    = "partial"
	KeyCommand    = "command"
	KeyCount      = "count"
	KeyWorkers    = "workers"
	KeyBuildID    = "build_id"
	KeyHost       = "host"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyResponseSz = "response_size"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func File(p string) slog.Attr         { return slog.String(KeyFile, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Dataset(n string) slog.Attr      { return slog.String(KeyDataset, n) }
func Layout(n string) slog.Attr       { return slog.String(KeyLayout, n) }
func Partial(n string) slog.Attr      { return slog.String(KeyPartial, n) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Host(h string) slog.Attr         { return slog.String(KeyHost, h) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func ResponseSize(n int) slog.Attr    { return slog.Int(KeyResponseSz, n) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
