package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

// openStores returns one of each Store implementation for conformance tests.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := Open(Config{
		Path:      filepath.Join(t.TempDir(), "params.db"),
		Namespace: "params",
		WALMode:   true,
		Capacity:  64,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if closeErr := sqlite.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	})

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryWithCapacity(64),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.PutBool("enabled", true); err != nil {
				t.Fatalf("PutBool() error = %v", err)
			}
			if err := store.PutInt("count", -42); err != nil {
				t.Fatalf("PutInt() error = %v", err)
			}
			if err := store.PutFloat("target", 23.5); err != nil {
				t.Fatalf("PutFloat() error = %v", err)
			}
			if err := store.PutString("device", "boiler-room"); err != nil {
				t.Fatalf("PutString() error = %v", err)
			}
			if err := store.PutBytes("cal", []byte{0x01, 0x02, 0x03}); err != nil {
				t.Fatalf("PutBytes() error = %v", err)
			}

			if v, found := store.GetBool("enabled", false); !found || !v {
				t.Errorf("GetBool() = %v, %v; want true, true", v, found)
			}
			if v, found := store.GetInt("count", 0); !found || v != -42 {
				t.Errorf("GetInt() = %v, %v; want -42, true", v, found)
			}
			if v, found := store.GetFloat("target", 0); !found || v != 23.5 {
				t.Errorf("GetFloat() = %v, %v; want 23.5, true", v, found)
			}
			if v, found := store.GetString("device", ""); !found || v != "boiler-room" {
				t.Errorf("GetString() = %q, %v; want boiler-room, true", v, found)
			}
			if v, found := store.GetBytes("cal"); !found || !bytes.Equal(v, []byte{0x01, 0x02, 0x03}) {
				t.Errorf("GetBytes() = %v, %v; want [1 2 3], true", v, found)
			}
		})
	}
}

func TestStore_DefaultsWhenAbsent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if v, found := store.GetBool("missing", true); found || !v {
				t.Errorf("GetBool() = %v, %v; want default true, found false", v, found)
			}
			if v, found := store.GetInt("missing", 7); found || v != 7 {
				t.Errorf("GetInt() = %v, %v; want default 7, found false", v, found)
			}
			if v, found := store.GetFloat("missing", 1.5); found || v != 1.5 {
				t.Errorf("GetFloat() = %v, %v; want default 1.5, found false", v, found)
			}
			if v, found := store.GetString("missing", "def"); found || v != "def" {
				t.Errorf("GetString() = %q, %v; want default, found false", v, found)
			}
			if v, found := store.GetBytes("missing"); found || v != nil {
				t.Errorf("GetBytes() = %v, %v; want nil, false", v, found)
			}
		})
	}
}

func TestStore_KindMismatchReadsAsAbsent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.PutString("shape", "round"); err != nil {
				t.Fatalf("PutString() error = %v", err)
			}

			if v, found := store.GetInt("shape", 99); found || v != 99 {
				t.Errorf("GetInt() after PutString = %v, %v; want default 99, false", v, found)
			}
		})
	}
}

func TestStore_RemoveAndClear(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.PutInt("a", 1); err != nil {
				t.Fatalf("PutInt() error = %v", err)
			}
			if err := store.PutInt("b", 2); err != nil {
				t.Fatalf("PutInt() error = %v", err)
			}

			if err := store.Remove("a"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if _, found := store.GetInt("a", 0); found {
				t.Error("GetInt() after Remove: key still present")
			}

			// Removing an absent key is not an error
			if err := store.Remove("a"); err != nil {
				t.Errorf("Remove() of absent key error = %v", err)
			}

			if err := store.Clear(); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if _, found := store.GetInt("b", 0); found {
				t.Error("GetInt() after Clear: key still present")
			}
		})
	}
}

func TestStore_Stats(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.PutBool("one", true); err != nil {
				t.Fatalf("PutBool() error = %v", err)
			}
			if err := store.PutBool("two", false); err != nil {
				t.Fatalf("PutBool() error = %v", err)
			}
			// Overwriting does not consume a new entry
			if err := store.PutBool("one", false); err != nil {
				t.Fatalf("PutBool() overwrite error = %v", err)
			}

			stats, err := store.Stats()
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.UsedEntries != 2 {
				t.Errorf("UsedEntries = %d, want 2", stats.UsedEntries)
			}
			if stats.TotalEntries != 64 {
				t.Errorf("TotalEntries = %d, want 64", stats.TotalEntries)
			}
			if stats.FreeEntries != 62 {
				t.Errorf("FreeEntries = %d, want 62", stats.FreeEntries)
			}
		})
	}
}

func TestStore_CapacityExceeded(t *testing.T) {
	store := NewMemoryWithCapacity(2)

	if err := store.PutInt("a", 1); err != nil {
		t.Fatalf("PutInt() error = %v", err)
	}
	if err := store.PutInt("b", 2); err != nil {
		t.Fatalf("PutInt() error = %v", err)
	}

	err := store.PutInt("c", 3)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("PutInt() beyond capacity error = %v, want ErrCapacityExceeded", err)
	}

	// Overwriting an existing key still works at capacity
	if err := store.PutInt("a", 10); err != nil {
		t.Errorf("PutInt() overwrite at capacity error = %v", err)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.db")

	store, err := Open(Config{Path: path, Namespace: "params", WALMode: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.PutFloat("temp_target", 23.5); err != nil {
		t.Fatalf("PutFloat() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(Config{Path: path, Namespace: "params", WALMode: true})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close() //nolint:errcheck // test cleanup

	if v, found := reopened.GetFloat("temp_target", 0); !found || v != 23.5 {
		t.Errorf("GetFloat() after reopen = %v, %v; want 23.5, true", v, found)
	}
}

func TestSQLiteStore_NamespaceIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.db")

	first, err := Open(Config{Path: path, Namespace: "alpha"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer first.Close() //nolint:errcheck // test cleanup

	second, err := Open(Config{Path: path, Namespace: "beta"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer second.Close() //nolint:errcheck // test cleanup

	if err := first.PutInt("shared", 1); err != nil {
		t.Fatalf("PutInt() error = %v", err)
	}

	if _, found := second.GetInt("shared", 0); found {
		t.Error("key from namespace alpha visible in namespace beta")
	}

	if err := second.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, found := first.GetInt("shared", 0); !found {
		t.Error("Clear() on namespace beta removed keys from alpha")
	}
}
