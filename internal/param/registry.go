package param

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/esplan/paramcore/internal/storage"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// OnChangeFunc is invoked after a successful set, once the new value has
// been persisted. It runs on the goroutine that performed the set.
type OnChangeFunc func(name string, value any)

// ValidatorFunc inspects a candidate value after range checking and before
// it is committed. Returning false rejects the set; the previous value is
// restored bit-for-bit.
type ValidatorFunc func(value any) bool

// RecordFunc receives a change-telemetry event after a successful set.
type RecordFunc func(name string, paramType string, value any)

// Transport is the publish-side interface the registry needs from an MQTT
// client. Publishing is skipped while the transport reports disconnected.
type Transport interface {
	IsConnected() bool
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// PublishFunc is a minimal alternative to a full Transport for simple host
// integrations. When set it is used unconditionally, without a prior
// connectivity check; returning false reports a failed publish.
type PublishFunc func(topic string, payload []byte) bool

// Default tuning, mirroring the constraints of the constrained deployments
// this registry is designed for.
const (
	maxNameLen = 64

	defaultQueueSize = 5
	defaultChunkSize = 5

	// defaultParamDelay paces successive per-parameter publishes within one
	// chunk to avoid bursting the transport.
	defaultParamDelay = 50 * time.Millisecond

	// defaultCommandDelay paces successive commands within one pump call so
	// the pump cannot monopolize its scheduling loop.
	defaultCommandDelay = 10 * time.Millisecond
)

// Options configures a Registry.
type Options struct {
	// Prefix is the MQTT topic prefix for the remote command protocol
	// (e.g., "esplan/params").
	Prefix string

	// QueueSize bounds the inbound command queue. Zero means the default (5).
	QueueSize int

	// ChunkSize bounds parameters published per ContinuePublish step.
	// Zero means the default (5).
	ChunkSize int
}

// parameter is one registered descriptor: metadata plus a non-owning
// binding into caller memory and optional single-slot callback handles.
type parameter struct {
	name        string
	description string
	access      Access
	bind        binding
	storeKey    string

	onChange OnChangeFunc
	validate ValidatorFunc
}

// Registry owns the name-to-parameter map, the inbound command queue, and
// the chunked publisher state. It persists through a storage.Store and
// publishes through an optional Transport or PublishFunc.
//
// Concurrency contract: registration and callback wiring are setup-time
// operations from a single goroutine, before commands flow. HandleCommand
// may run on transport goroutines; it only touches the bounded queue.
// ProcessQueue and the publisher steps run from the host's scheduling loop.
// Publish progress is the one piece of cross-goroutine state and lives
// behind its own try-lock mutex.
type Registry struct {
	params map[string]*parameter
	store  storage.Store
	prefix string
	logger Logger

	transport Transport
	publishFn PublishFunc
	record    RecordFunc

	queue        chan command
	commandDelay time.Duration
	paramDelay   time.Duration

	chunkSize int
	pub       publishProgress
}

// New creates a Registry backed by the given store.
//
// Parameters:
//   - store: Persistence layer for parameter values
//   - opts: Topic prefix and queue/chunk bounds (zero values use defaults)
//
// Returns:
//   - *Registry: Ready for Register* calls
func New(store storage.Store, opts Options) *Registry {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &Registry{
		params:       make(map[string]*parameter),
		store:        store,
		prefix:       opts.Prefix,
		logger:       noopLogger{},
		queue:        make(chan command, queueSize),
		commandDelay: defaultCommandDelay,
		paramDelay:   defaultParamDelay,
		chunkSize:    chunkSize,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetTransport attaches an MQTT transport. Once attached, a successful set
// publishes a single-parameter status message.
func (r *Registry) SetTransport(t Transport) {
	r.transport = t
}

// SetPublishFunc attaches a plain publish function in place of a full
// transport. When set it takes precedence over SetTransport and is used
// without a connectivity check.
func (r *Registry) SetPublishFunc(fn PublishFunc) {
	r.publishFn = fn
}

// SetRecorder attaches a change-telemetry hook invoked after each
// successful set.
func (r *Registry) SetRecorder(fn RecordFunc) {
	r.record = fn
}

// validateName enforces the registration name rules: non-empty, at most 64
// characters, characters restricted to [A-Za-z0-9_/].
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: name length %d exceeds maximum %d", ErrInvalidName, len(name), maxNameLen)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '/':
		default:
			return fmt.Errorf("%w: character %q not allowed", ErrInvalidName, c)
		}
	}
	return nil
}

// register installs a descriptor, silently replacing any previous one under
// the same name. The memory binding may legitimately change across host
// reconfiguration.
func (r *Registry) register(name string, bind binding, description string, access Access) error {
	if err := validateName(name); err != nil {
		return err
	}

	if _, exists := r.params[name]; exists {
		r.logger.Debug("replacing parameter registration", "name", name)
	}

	r.params[name] = &parameter{
		name:        name,
		description: description,
		access:      access,
		bind:        bind,
		storeKey:    sanitizeKey(name),
	}
	return nil
}

// RegisterBool registers a boolean parameter bound to caller memory.
//
// The registry never copies or frees ref; it must stay valid for the
// registry's lifetime.
func (r *Registry) RegisterBool(name string, ref *bool, description string, access Access) error {
	return r.register(name, &boolBinding{ptr: ref}, description, access)
}

// RegisterInt registers a 32-bit integer parameter with an inclusive
// [min, max] range.
func (r *Registry) RegisterInt(name string, ref *int32, min, max int32, description string, access Access) error {
	return r.register(name, &intBinding{ptr: ref, min: min, max: max}, description, access)
}

// RegisterFloat registers a 32-bit float parameter with an inclusive
// [min, max] range.
func (r *Registry) RegisterFloat(name string, ref *float32, min, max float32, description string, access Access) error {
	return r.register(name, &floatBinding{ptr: ref, min: min, max: max}, description, access)
}

// RegisterString registers a string parameter. Values must be strictly
// shorter than maxLen; over-length values are rejected, never truncated.
func (r *Registry) RegisterString(name string, ref *string, maxLen int, description string, access Access) error {
	return r.register(name, &stringBinding{ptr: ref, maxLen: maxLen}, description, access)
}

// RegisterBlob registers a fixed-size binary parameter. Blobs persist and
// appear in status documents by size only; they cannot be set remotely.
func (r *Registry) RegisterBlob(name string, buf []byte, description string, access Access) error {
	return r.register(name, &blobBinding{buf: buf}, description, access)
}

// SetOnChange binds the change callback for a parameter.
// Each parameter has a single slot; a second call replaces the first.
func (r *Registry) SetOnChange(name string, fn OnChangeFunc) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p.onChange = fn
	return nil
}

// SetValidator binds the custom validator for a parameter.
// Each parameter has a single slot; a second call replaces the first.
func (r *Registry) SetValidator(name string, fn ValidatorFunc) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p.validate = fn
	return nil
}

// Get returns the status document for a parameter: name, description,
// access, type, current value (byte length for blobs), and type-specific
// bounds.
func (r *Registry) Get(name string) (map[string]any, error) {
	p, ok := r.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r.statusDoc(p), nil
}

// statusDoc builds the wire status document for one parameter.
func (r *Registry) statusDoc(p *parameter) map[string]any {
	doc := map[string]any{
		"name":        p.name,
		"description": p.description,
		"access":      p.access.String(),
		"type":        p.bind.kind().String(),
	}
	if p.bind.kind() != TypeBlob {
		doc["value"] = p.bind.wire()
	}
	p.bind.describe(doc)
	return doc
}

// Set applies a decoded wire value to a parameter.
//
// The order of effects on success is deliberate: persist first, then
// onChange, then telemetry, then a single-parameter publish — observers
// never see a value the store has not yet accepted. A persistence failure
// is logged but does not fail the set; in-memory state stays the source of
// truth and a later save is the recovery path.
//
// Returns:
//   - error: ErrNotFound, ErrAccessDenied, ErrTypeMismatch, ErrTooLarge,
//     or ErrValidationFailed. On any error the previous value is untouched.
func (r *Registry) Set(name string, value any) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	// Access is checked before any conversion is attempted.
	if p.access == ReadOnly {
		return fmt.Errorf("%w: %s is read-only", ErrAccessDenied, name)
	}

	snap := p.bind.snapshot()

	if err := p.bind.apply(value); err != nil {
		return err
	}

	if p.validate != nil && !p.validate(p.bind.wire()) {
		p.bind.restore(snap)
		return fmt.Errorf("%w: %s rejected by validator", ErrValidationFailed, name)
	}

	if err := p.bind.save(r.store, p.storeKey); err != nil {
		r.logger.Warn("persisting parameter failed", "name", name, "error", err)
	}

	newValue := p.bind.wire()

	if p.onChange != nil {
		p.onChange(name, newValue)
	}

	if r.record != nil {
		r.record(name, p.bind.kind().String(), newValue)
	}

	if r.transportReady() {
		r.PublishUpdate(name)
	}

	r.logger.Debug("parameter set", "name", name, "value", newValue)
	return nil
}

// Save persists a single parameter.
func (r *Registry) Save(name string) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := p.bind.save(r.store, p.storeKey); err != nil {
		return fmt.Errorf("%w: saving %s: %w", ErrStoreFailed, name, err)
	}
	return nil
}

// SaveAll persists every registered parameter. The first failure is
// returned after attempting the rest.
func (r *Registry) SaveAll() error {
	var firstErr error
	saved := 0
	for _, name := range r.sortedNames() {
		p := r.params[name]
		if err := p.bind.save(r.store, p.storeKey); err != nil {
			r.logger.Error("saving parameter failed", "name", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: saving %s: %w", ErrStoreFailed, name, err)
			}
			continue
		}
		saved++
	}
	r.logger.Info("parameters saved", "count", saved, "total", len(r.params))
	return firstErr
}

// Load reads a single parameter's persisted value into caller memory.
// If the store has no value for the key, the in-memory default is kept.
func (r *Registry) Load(name string) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p.bind.load(r.store, p.storeKey)
	return nil
}

// LoadAll reads every parameter's persisted value, counting how many keys
// the store actually returned versus defaults kept.
//
// When autoSaveDefaults is set and the store returned zero keys for a
// non-empty registry, this is treated as first boot and the current
// in-memory defaults are persisted immediately.
func (r *Registry) LoadAll(autoSaveDefaults bool) error {
	found := 0
	for _, p := range r.params {
		if p.bind.load(r.store, p.storeKey) {
			found++
		}
	}

	r.logger.Info("parameters loaded", "found", found, "total", len(r.params))

	if autoSaveDefaults && found == 0 && len(r.params) > 0 {
		r.logger.Info("no persisted parameters found, saving defaults")
		return r.SaveAll()
	}
	return nil
}

// Reset removes a parameter's persisted value. The in-memory value keeps
// its current state until the next save.
func (r *Registry) Reset(name string) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := r.store.Remove(p.storeKey); err != nil {
		return fmt.Errorf("%w: resetting %s: %w", ErrStoreFailed, name, err)
	}
	return nil
}

// ResetAll removes the persisted values of every registered parameter.
// Only keys this registry manages are touched; use EraseNamespace to wipe
// the whole storage namespace.
func (r *Registry) ResetAll() error {
	var firstErr error
	for _, p := range r.params {
		if err := r.store.Remove(p.storeKey); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: resetting %s: %w", ErrStoreFailed, p.name, err)
		}
	}
	return firstErr
}

// EraseNamespace clears every key in the storage namespace, including keys
// left behind by parameters no longer registered. This is a recovery
// operation, not part of normal reset flows.
func (r *Registry) EraseNamespace() error {
	if err := r.store.Clear(); err != nil {
		return fmt.Errorf("%w: clearing namespace: %w", ErrStoreFailed, err)
	}
	return nil
}

// Info describes a registered parameter's metadata.
type Info struct {
	Name        string
	Description string
	Type        Type
	Access      Access
}

// GetInfo returns a parameter's metadata.
func (r *Registry) GetInfo(name string) (Info, error) {
	p, ok := r.params[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Info{
		Name:        p.name,
		Description: p.description,
		Type:        p.bind.kind(),
		Access:      p.access,
	}, nil
}

// ListParameters returns all registered names, sorted.
func (r *Registry) ListParameters() []string {
	return r.sortedNames()
}

// ListByPrefix returns the sorted names starting with the given prefix.
func (r *Registry) ListByPrefix(prefix string) []string {
	var names []string
	for name := range r.params {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered parameters.
func (r *Registry) Count() int {
	return len(r.params)
}

// StoreStats reports entry usage of the backing store.
func (r *Registry) StoreStats() (storage.Stats, error) {
	stats, err := r.store.Stats()
	if err != nil {
		return storage.Stats{}, fmt.Errorf("%w: reading store stats: %w", ErrStoreFailed, err)
	}
	return stats, nil
}

// sortedNames snapshots the registered names in sorted order. Sorting makes
// list responses and chunked publishing deterministic.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// transportReady reports whether an outbound publish can be attempted.
// A publish function counts as always ready; a transport must be connected.
func (r *Registry) transportReady() bool {
	if r.publishFn != nil {
		return true
	}
	return r.transport != nil && r.transport.IsConnected()
}

// emit sends a payload through the publish function if one is set,
// otherwise through the transport. Returns false on failure.
func (r *Registry) emit(topic string, payload []byte) bool {
	if r.publishFn != nil {
		return r.publishFn(topic, payload)
	}
	if r.transport == nil || !r.transport.IsConnected() {
		return false
	}
	if err := r.transport.Publish(topic, payload, 0, false); err != nil {
		r.logger.Warn("publish failed", "topic", topic, "error", err)
		return false
	}
	return true
}
