package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFanoutHandlerWritesAll(t *testing.T) {
	var a, b bytes.Buffer
	h := &fanoutHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}
	logger := slog.New(h)
	logger.Info("hello", "k", "v")

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("%s handler output: %v", name, err)
		}
		if rec["msg"] != "hello" || rec["k"] != "v" {
			t.Errorf("%s handler record = %v", name, rec)
		}
	}
}

func TestTraceContextHandlerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	h := &traceContextHandler{next: slog.NewJSONHandler(&buf, nil)}
	if err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "plain", 0)); err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Error("no span in context, trace_id must be absent")
	}
}
