package memory

import (
	"testing"
	"time"
)

func TestGetSetDel(t *testing.T) {
	p := New(Config{})
	t.Cleanup(func() { _ = p.Close() })

	hash := map[string]string{"f": "v"}
	if !p.Set("h", hash, 0) {
		t.Fatalf("Set refused")
	}
	got, ok := p.Get("h")
	if !ok {
		t.Fatalf("expected hit")
	}
	// values are kept by reference
	got.(map[string]string)["g"] = "w"
	if hash["g"] != "w" {
		t.Fatalf("provider copied the value")
	}

	p.Del("h")
	if _, ok := p.Get("h"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestExpiredEntryReadsAsMiss(t *testing.T) {
	p := New(Config{})
	t.Cleanup(func() { _ = p.Close() })

	p.Set("k", "v", 20*time.Millisecond)
	if _, ok := p.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := p.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if p.Len() != 0 {
		t.Fatalf("lazy expiry should have dropped the entry, len=%d", p.Len())
	}
}

func TestSweepLoopDropsExpired(t *testing.T) {
	p := New(Config{SweepInterval: 10 * time.Millisecond})
	t.Cleanup(func() { _ = p.Close() })

	p.Set("a", 1, 5*time.Millisecond)
	p.Set("b", 2, 0)

	deadline := time.Now().Add(time.Second)
	for p.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not run, len=%d", p.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := p.Get("b"); !ok {
		t.Fatalf("non-expiring entry must survive sweep")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(Config{SweepInterval: time.Millisecond})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
