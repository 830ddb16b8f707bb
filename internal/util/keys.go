package util

import (
	"strconv"
	"strings"
)

// KeyspacePrefix is "__keyspace@<db>__:".
func KeyspacePrefix(db int) string {
	return "__keyspace@" + strconv.Itoa(db) + "__:"
}

// DetailedPrefix is "__keyspace_detailed@<db>__:".
func DetailedPrefix(db int) string {
	return "__keyspace_detailed@" + strconv.Itoa(db) + "__:"
}

// Pattern subscribes to every key under prefix.
func Pattern(prefix string) string { return prefix + "*" }

// KeyFromChannel strips prefix from a channel name. ok is false for foreign channels
// or an empty key.
func KeyFromChannel(prefix, channel string) (key string, ok bool) {
	key, ok = strings.CutPrefix(channel, prefix)
	return key, ok && key != ""
}
