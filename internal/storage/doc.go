// Package storage provides the persistence layer for ParamCore parameters.
//
// This package manages:
//   - A typed key-value store interface modelled on NVS-style flash storage
//   - A SQLite-backed implementation with WAL mode for durability
//   - An in-memory implementation for tests and transient deployments
//
// Keys are the sanitized short keys produced by the parameter registry;
// the store itself imposes no key-length rules. Each key holds exactly one
// typed value (bool, int32, float32, string, or bytes). Getters take a
// default and report whether the key was actually present, so callers can
// distinguish a stored value from a kept default.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - One row per parameter; the whole store fits comfortably in page cache
//
// Usage:
//
//	store, err := storage.Open(storage.Config{
//	    Path:      "./data/paramcore.db",
//	    Namespace: "params",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	store.PutFloat("temp_target", 22.0)
//	v, found := store.GetFloat("temp_target", 20.0)
package storage
