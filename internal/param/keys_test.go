package param

import (
	"strings"
	"testing"
)

func TestSanitizeKeyShortNamesVerbatim(t *testing.T) {
	tests := []string{
		"a",
		"pid/kp",
		"exactly15chars_", // 15 characters, the budget boundary
	}

	for _, name := range tests {
		if got := sanitizeKey(name); got != name {
			t.Errorf("sanitizeKey(%q) = %q, want verbatim", name, got)
		}
	}
}

func TestSanitizeKeyLongNamesHashed(t *testing.T) {
	name := "heating/zones/livingRoom/targetTemperature" // 42 chars

	key := sanitizeKey(name)

	if !strings.HasPrefix(key, "p") {
		t.Errorf("sanitized key %q missing hash prefix", key)
	}
	if len(key) > maxStoreKeyLen {
		t.Errorf("sanitized key %q length %d exceeds budget %d", key, len(key), maxStoreKeyLen)
	}
	for i := 1; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			t.Errorf("sanitized key %q contains non-decimal character %q", key, key[i])
		}
	}
}

func TestSanitizeKeyDeterministic(t *testing.T) {
	name := "automation/schedules/weekday/morningRampDuration"

	first := sanitizeKey(name)
	for i := 0; i < 100; i++ {
		if got := sanitizeKey(name); got != first {
			t.Fatalf("sanitizeKey not deterministic: %q then %q", first, got)
		}
	}
}

func TestSanitizeKeyDistinctLongNames(t *testing.T) {
	// Collisions between over-length names are accepted, not defended
	// against; these two simply must each produce a well-formed token.
	a := sanitizeKey("sensors/outdoor/temperature/calibrationOffset")
	b := sanitizeKey("sensors/outdoor/humidity/calibrationOffset")

	if !strings.HasPrefix(a, "p") || !strings.HasPrefix(b, "p") {
		t.Errorf("hashed keys missing prefix: %q, %q", a, b)
	}
}
