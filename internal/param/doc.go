// Package param implements the runtime configuration registry at the heart
// of ParamCore.
//
// Callers register named, typed parameters bound to memory they own; the
// registry layers persistence, validation, change notification, and an
// MQTT remote-synchronization protocol on top without ever copying or
// owning the underlying variables.
//
// # Parameter Model
//
// Five value kinds are supported: bool, int32 (with inclusive range),
// float32 (with inclusive range), bounded string, and fixed-size blob.
// Registration binds a name like "heating/targetTemp" to a caller pointer;
// the first path segment acts as the parameter's group for batched
// publishing. Blobs hold large host-managed configuration and are never
// settable over the wire.
//
// # Remote Protocol
//
// Inbound commands arrive as MQTT (topic, payload) pairs:
//
//	<prefix>/set/<name>   {"value": 23.5} or a bare scalar
//	<prefix>/get/<name>   publishes <prefix>/status/<name>
//	<prefix>/get/all      publishes every group plus status/complete
//	<prefix>/list         publishes <prefix>/list/response
//	<prefix>/save         persists all parameters
//
// HandleCommand decodes and enqueues without blocking; ProcessQueue drains
// a bounded batch per call. Full-set publishes are chunked: PublishAll
// starts one, ContinuePublish advances it a few parameters at a time so a
// large registry never monopolizes the scheduling loop.
//
// # Usage
//
//	store, _ := storage.Open(storage.Config{Path: "params.db", Namespace: "params"})
//	reg := param.New(store, param.Options{Prefix: "esplan/params"})
//
//	targetTemp := float32(22.0)
//	reg.RegisterFloat("heating/targetTemp", &targetTemp, 10.0, 30.0,
//	    "Target room temperature", param.ReadWrite)
//	reg.LoadAll(true)
//
//	reg.SetTransport(mqttClient)
//	for _, filter := range mqtt.Topics{}.CommandFilters("esplan/params") {
//	    mqttClient.Subscribe(filter, 0, func(topic string, payload []byte) error {
//	        reg.HandleCommand(topic, payload)
//	        return nil
//	    })
//	}
//
//	// host loop
//	for range ticker.C {
//	    reg.ProcessQueue()
//	    reg.ContinuePublish()
//	}
//
// # Concurrency
//
// Registration and callback wiring happen at setup time from a single
// goroutine. HandleCommand is safe to call from transport goroutines; it
// only touches the bounded command queue. ProcessQueue, PublishAll and
// ContinuePublish are driven from the host's scheduling loop. The publish
// progress state is guarded by a try-lock mutex; contended calls give up
// rather than block, since publishing is best-effort.
//
// # Memory Contract
//
// The registry holds non-owning references into caller memory. Registered
// pointers and blob buffers must remain valid for the registry's lifetime;
// the registry never allocates, copies on register, or frees them.
package param
