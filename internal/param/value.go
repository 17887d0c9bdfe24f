package param

import (
	"fmt"

	"github.com/esplan/paramcore/internal/storage"
)

// Type identifies a parameter's value kind.
type Type int

// Parameter value kinds. The set is closed: every registered parameter is
// exactly one of these.
const (
	TypeBool Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBlob
)

// String returns the wire-protocol type tag.
func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Access controls whether a parameter may be set remotely.
type Access int

const (
	// ReadWrite parameters accept remote and local set operations.
	ReadWrite Access = iota

	// ReadOnly parameters reject every set attempt with ErrAccessDenied.
	ReadOnly
)

// String returns the wire-protocol access tag.
func (a Access) String() string {
	if a == ReadOnly {
		return "ro"
	}
	return "rw"
}

// binding is the type-tagged view over caller-owned parameter storage.
//
// The registry never allocates, copies on register, or frees the memory a
// binding points at; the caller guarantees it stays valid for the registry's
// lifetime. Each variant implements constraint checking, wire conversion,
// snapshot/restore for rollback, and persistence, once per kind.
type binding interface {
	kind() Type

	// wire returns the generic wire representation of the current value.
	// Blobs contribute only their byte length, never raw bytes.
	wire() any

	// snapshot captures the current value so a rejected set can be rolled
	// back without any observable partial write.
	snapshot() any

	// restore writes a snapshot back into caller memory.
	restore(snap any)

	// apply validates a decoded wire value and, on success, writes it into
	// caller memory. Returns ErrTypeMismatch, ErrValidationFailed or
	// ErrTooLarge; on error the previous value is untouched.
	apply(value any) error

	// describe adds type-specific bounds and the current value to a
	// parameter status document.
	describe(doc map[string]any)

	// load reads the persisted value into caller memory, reporting whether
	// the store actually had the key (false means the default was kept).
	load(s storage.Store, key string) bool

	// save writes the current value to the store.
	save(s storage.Store, key string) error
}

// asFloat64 coerces the numeric types a generic JSON decode can produce.
func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// boolBinding

type boolBinding struct {
	ptr *bool
}

func (b *boolBinding) kind() Type       { return TypeBool }
func (b *boolBinding) wire() any        { return *b.ptr }
func (b *boolBinding) snapshot() any    { return *b.ptr }
func (b *boolBinding) restore(snap any) { *b.ptr = snap.(bool) }

func (b *boolBinding) describe(map[string]any) {}

func (b *boolBinding) apply(value any) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: expected bool, got %T", ErrTypeMismatch, value)
	}
	*b.ptr = v
	return nil
}

func (b *boolBinding) load(s storage.Store, key string) bool {
	v, found := s.GetBool(key, *b.ptr)
	*b.ptr = v
	return found
}

func (b *boolBinding) save(s storage.Store, key string) error {
	return s.PutBool(key, *b.ptr)
}

// intBinding

type intBinding struct {
	ptr      *int32
	min, max int32
}

func (b *intBinding) kind() Type       { return TypeInt }
func (b *intBinding) wire() any        { return *b.ptr }
func (b *intBinding) snapshot() any    { return *b.ptr }
func (b *intBinding) restore(snap any) { *b.ptr = snap.(int32) }

func (b *intBinding) describe(doc map[string]any) {
	doc["min"] = b.min
	doc["max"] = b.max
}

func (b *intBinding) apply(value any) error {
	f, ok := asFloat64(value)
	if !ok {
		return fmt.Errorf("%w: expected number, got %T", ErrTypeMismatch, value)
	}
	v := int32(f)
	if float64(v) != f {
		return fmt.Errorf("%w: %v is not a 32-bit integer", ErrTypeMismatch, f)
	}
	if v < b.min || v > b.max {
		return fmt.Errorf("%w: %d outside range [%d, %d]", ErrValidationFailed, v, b.min, b.max)
	}
	*b.ptr = v
	return nil
}

func (b *intBinding) load(s storage.Store, key string) bool {
	v, found := s.GetInt(key, *b.ptr)
	*b.ptr = v
	return found
}

func (b *intBinding) save(s storage.Store, key string) error {
	return s.PutInt(key, *b.ptr)
}

// floatBinding

type floatBinding struct {
	ptr      *float32
	min, max float32
}

func (b *floatBinding) kind() Type       { return TypeFloat }
func (b *floatBinding) wire() any        { return *b.ptr }
func (b *floatBinding) snapshot() any    { return *b.ptr }
func (b *floatBinding) restore(snap any) { *b.ptr = snap.(float32) }

func (b *floatBinding) describe(doc map[string]any) {
	doc["min"] = b.min
	doc["max"] = b.max
}

func (b *floatBinding) apply(value any) error {
	f, ok := asFloat64(value)
	if !ok {
		return fmt.Errorf("%w: expected number, got %T", ErrTypeMismatch, value)
	}
	v := float32(f)
	if v < b.min || v > b.max {
		return fmt.Errorf("%w: %g outside range [%g, %g]", ErrValidationFailed, v, b.min, b.max)
	}
	*b.ptr = v
	return nil
}

func (b *floatBinding) load(s storage.Store, key string) bool {
	v, found := s.GetFloat(key, *b.ptr)
	*b.ptr = v
	return found
}

func (b *floatBinding) save(s storage.Store, key string) error {
	return s.PutFloat(key, *b.ptr)
}

// stringBinding

type stringBinding struct {
	ptr *string
	// maxLen is the declared buffer size; stored strings must be strictly
	// shorter, reserving terminator space for flash-compatible layouts.
	maxLen int
}

func (b *stringBinding) kind() Type       { return TypeString }
func (b *stringBinding) wire() any        { return *b.ptr }
func (b *stringBinding) snapshot() any    { return *b.ptr }
func (b *stringBinding) restore(snap any) { *b.ptr = snap.(string) }

func (b *stringBinding) describe(doc map[string]any) {
	doc["maxLength"] = b.maxLen
}

func (b *stringBinding) apply(value any) error {
	v, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: expected string, got %T", ErrTypeMismatch, value)
	}
	if len(v) >= b.maxLen {
		return fmt.Errorf("%w: string length %d exceeds maximum %d", ErrTooLarge, len(v), b.maxLen-1)
	}
	*b.ptr = v
	return nil
}

func (b *stringBinding) load(s storage.Store, key string) bool {
	v, found := s.GetString(key, *b.ptr)
	if found && len(v) >= b.maxLen {
		// Persisted under a previous, larger declaration; keep the default.
		return false
	}
	*b.ptr = v
	return found
}

func (b *stringBinding) save(s storage.Store, key string) error {
	return s.PutString(key, *b.ptr)
}

// blobBinding
//
// Blobs hold large read-mostly configuration (certificates, calibration
// tables). They are mutated host-side only and are never settable through
// the wire; status documents carry their byte length, not their contents.

type blobBinding struct {
	buf []byte
}

func (b *blobBinding) kind() Type { return TypeBlob }
func (b *blobBinding) wire() any  { return len(b.buf) }

func (b *blobBinding) snapshot() any {
	snap := make([]byte, len(b.buf))
	copy(snap, b.buf)
	return snap
}

func (b *blobBinding) restore(snap any) {
	copy(b.buf, snap.([]byte))
}

func (b *blobBinding) describe(doc map[string]any) {
	doc["size"] = len(b.buf)
}

func (b *blobBinding) apply(any) error {
	return fmt.Errorf("%w: blob parameters are not settable remotely", ErrAccessDenied)
}

func (b *blobBinding) load(s storage.Store, key string) bool {
	v, found := s.GetBytes(key)
	if !found || len(v) != len(b.buf) {
		// A size change means the host redefined the blob; keep the default.
		return false
	}
	copy(b.buf, v)
	return true
}

func (b *blobBinding) save(s storage.Store, key string) error {
	return s.PutBytes(key, b.buf)
}
