package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/nearcache"
)

func TestLevelGateAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})
	l := New(stdslog.New(h))

	l.Debug("hidden", nearcache.Fields{"k": 1})
	if buf.Len() != 0 {
		t.Fatalf("debug written below level: %q", buf.String())
	}

	l.Info("listener subscribed", nearcache.Fields{"detailed": "d", "basic": "b"})
	out := buf.String()
	for _, want := range []string{"component=nearcache", "basic=b detailed=d", `msg="listener subscribed"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}
