package nearcache

// Hooks are callbacks for high-signal events on the invalidation and fetch paths.
// Implementations MUST be cheap and non-blocking: event hooks run on the notification
// delivery goroutine. Wrap slow sinks with hooks/async.
type Hooks interface {
	// An event changed (or tried to change) local state of db.
	EventApplied(db, key, event string)

	// An event was deliberately not applied.
	// reason ∈ {"paused", "self_origin", "unknown_event"}
	EventDropped(key, event, reason string)

	// An event's argument could not be parsed; nothing was invalidated.
	EventMalformed(key, event, arg string)

	// A remote-fetch callback failed. keys is the number of keys requested.
	FetchFailed(op string, keys int, err error)

	// A cached entry was dropped because it could not be decoded.
	SelfHeal(key, reason string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) EventApplied(string, string, string)   {}
func (NopHooks) EventDropped(string, string, string)   {}
func (NopHooks) EventMalformed(string, string, string) {}
func (NopHooks) FetchFailed(string, int, error)        {}
func (NopHooks) SelfHeal(string, string)               {}
