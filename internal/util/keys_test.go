package util

import "testing"

func TestChannelNames(t *testing.T) {
	if got := KeyspacePrefix(0); got != "__keyspace@0__:" {
		t.Fatalf("KeyspacePrefix = %q", got)
	}
	if got := Pattern(DetailedPrefix(3)); got != "__keyspace_detailed@3__:*" {
		t.Fatalf("pattern = %q", got)
	}
}

func TestKeyFromChannel(t *testing.T) {
	p := KeyspacePrefix(0)
	if k, ok := KeyFromChannel(p, p+"user:1"); !ok || k != "user:1" {
		t.Fatalf("key = %q,%v", k, ok)
	}
	if _, ok := KeyFromChannel(p, "__keyspace@1__:user:1"); ok {
		t.Fatalf("foreign channel accepted")
	}
	if _, ok := KeyFromChannel(p, p); ok {
		t.Fatalf("empty key accepted")
	}
}
