package storage

// Store is the typed key-value interface the parameter registry persists
// through. It mirrors an NVS-style flash store: one typed value per key,
// getters that fall back to a caller-supplied default, and a bounded entry
// budget surfaced via Stats.
//
// The second return value of each getter reports whether the key was
// present in the store; when false, the returned value is the default.
//
// Implementations must be safe for concurrent use.
type Store interface {
	GetBool(key string, def bool) (bool, bool)
	GetInt(key string, def int32) (int32, bool)
	GetFloat(key string, def float32) (float32, bool)
	GetString(key string, def string) (string, bool)
	// GetBytes returns the stored blob, or nil and false if absent.
	GetBytes(key string) ([]byte, bool)

	PutBool(key string, value bool) error
	PutInt(key string, value int32) error
	PutFloat(key string, value float32) error
	PutString(key string, value string) error
	PutBytes(key string, value []byte) error

	// Remove deletes a single key. Removing an absent key is not an error.
	Remove(key string) error

	// Clear deletes every key in the store's namespace.
	Clear() error

	// Stats reports entry usage against the store's capacity budget.
	Stats() (Stats, error)
}

// Stats describes store occupancy, mirroring NVS partition statistics.
type Stats struct {
	UsedEntries  int
	FreeEntries  int
	TotalEntries int
}
