package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextAttributes(t *testing.T) {
	logs := captureLogs(t)
	ctx := WithStage(WithPhase(WithBuildID(context.Background(), "b-1"), "render"), "layout")

	WarnContext(ctx, "layout missing", slog.String("file", "a.md"))

	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "build_id=b-1")
	assert.Contains(t, out, "phase=render")
	assert.Contains(t, out, "stage=layout")
	assert.Contains(t, out, "file=a.md")
	assert.Equal(t, "b-1", BuildID(ctx))
}

func TestEmptyContextAddsNothing(t *testing.T) {
	logs := captureLogs(t)
	InfoContext(context.Background(), "hello")
	DebugContext(context.Background(), "dbg")
	ErrorContext(context.Background(), "err")
	assert.NotContains(t, logs.String(), "build_id=")
	assert.Contains(t, logs.String(), "level=DEBUG")
	assert.Contains(t, logs.String(), "level=ERROR")
}
