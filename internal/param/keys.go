package param

import "strconv"

// maxStoreKeyLen is the key-length budget of NVS-style persistence layers.
// Names at or under this length are stored verbatim.
const maxStoreKeyLen = 15

// sanitizeKey maps a hierarchical parameter name to a storage key that fits
// the persistence layer's key-length budget.
//
// Names within the budget pass through unchanged. Longer names are hashed
// with a 32-bit polynomial (h = h*31 + byte, left to right) and rendered as
// "p" followed by the decimal hash. The mapping is deterministic; collisions
// between two over-length names are possible and accepted. Callers needing
// guaranteed key uniqueness must keep names within the short-key budget.
func sanitizeKey(name string) string {
	if len(name) <= maxStoreKeyLen {
		return name
	}

	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}

	return "p" + strconv.FormatUint(uint64(h), 10)
}
