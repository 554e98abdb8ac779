package fetchcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The client calls them on hot paths.
type Hooks interface {
	// An entry was deleted by the client on read.
	// reason ∈ {"corrupt", "kind_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// A fetched value was returned but not written.
	// reason ∈ {"predicate", "encode_error", "store_error"}
	WriteSkipped(storageKey, reason string)

	// A cached value was returned in place of a fresh one.
	// reason ∈ {"fetch_failed", "race_grace", "revalidating"}
	StaleServed(storageKey, reason string)

	// One endpoint of a fallback chain or batch failed.
	FetchFailed(endpoint string, err error)

	// A background refresh was not queued or did not succeed.
	// reason ∈ {"queue_full", "duplicate", "closed"}
	RefreshDropped(key, reason string)
	RefreshFailed(key string, err error)

	// A provider call failed and the client degraded instead of returning it.
	StoreError(op, storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ProviderSetRejected(string)       {}
func (NopHooks) WriteSkipped(string, string)      {}
func (NopHooks) StaleServed(string, string)       {}
func (NopHooks) FetchFailed(string, error)        {}
func (NopHooks) RefreshDropped(string, string)    {}
func (NopHooks) RefreshFailed(string, error)      {}
func (NopHooks) StoreError(string, string, error) {}
