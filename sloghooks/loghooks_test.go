package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestKeysAreRedacted(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})

	h.SelfHeal("user:42", "decode_error")
	out := buf.String()
	if strings.Contains(out, "user:42") {
		t.Fatalf("raw key leaked: %q", out)
	}
	if !strings.Contains(out, "key="+h.redact("user:42")) || !strings.Contains(out, "reason=decode_error") {
		t.Fatalf("output = %q", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{Redact: func(string) string { return "x" }})
	h.EventMalformed("k", "srem", "nan")
	if !strings.Contains(buf.String(), "key=x") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestAppliedSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{AppliedEvery: 3})
	for i := 0; i < 9; i++ {
		h.EventApplied("main", "k", "del")
	}
	if n := strings.Count(buf.String(), "nearcache.event_applied"); n != 3 {
		t.Fatalf("logged %d want 3", n)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	h := New(nil, Options{})
	h.FetchFailed("strings.get", 2, errors.New("boom"))
	h.EventDropped("k", "set", "paused")
}
