package param

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// commandKind classifies a decoded remote command.
type commandKind int

const (
	cmdSet commandKind = iota
	cmdGet
	cmdGetAll
	cmdList
	cmdSave
)

// command is a transient decoded remote request. It is created by
// HandleCommand, consumed exactly once by ProcessQueue, never persisted.
type command struct {
	kind    commandKind
	name    string
	payload []byte
}

// pumpBatchSize caps commands processed per ProcessQueue call.
const pumpBatchSize = 5

// HandleCommand decodes an inbound (topic, payload) pair and enqueues the
// resulting command. It never blocks and never touches the registry state;
// it is safe to call from transport goroutines.
//
// Topic grammar, relative to the configured prefix:
//   - <prefix>/set/<name>  — set a parameter
//   - <prefix>/get/<name>  — publish one parameter (or a whole group)
//   - <prefix>/get/all     — publish every group
//   - <prefix>/list        — publish the full name list
//   - <prefix>/save        — persist all parameters
//
// Returns:
//   - bool: true if the topic was recognized. A recognized command dropped
//     because the queue is full still reports true; queue capacity is an
//     application-level limit, not a transport error.
func (r *Registry) HandleCommand(topic string, payload []byte) bool {
	if !strings.HasPrefix(topic, r.prefix+"/") {
		return false
	}
	rest := topic[len(r.prefix)+1:]

	var cmd command
	switch {
	case rest == "list":
		cmd = command{kind: cmdList}
	case rest == "save":
		cmd = command{kind: cmdSave}
	case rest == "get/all":
		cmd = command{kind: cmdGetAll}
	case strings.HasPrefix(rest, "set/") && len(rest) > len("set/"):
		// Transport clients may reuse payload buffers after the handler
		// returns; the queued command needs its own copy.
		cmd = command{
			kind:    cmdSet,
			name:    rest[len("set/"):],
			payload: append([]byte(nil), payload...),
		}
	case strings.HasPrefix(rest, "get/") && len(rest) > len("get/"):
		cmd = command{kind: cmdGet, name: rest[len("get/"):]}
	default:
		return false
	}

	select {
	case r.queue <- cmd:
	default:
		r.logger.Warn("command queue full, dropping command", "topic", topic)
	}
	return true
}

// ProcessQueue dispatches up to 5 queued commands. It never blocks when
// the queue is empty and pauses briefly between commands, capping the
// pump's duty cycle within the host's scheduling loop.
//
// Call this periodically from a single goroutine.
func (r *Registry) ProcessQueue() {
	for i := 0; i < pumpBatchSize; i++ {
		select {
		case cmd := <-r.queue:
			r.dispatch(cmd)
		default:
			return
		}
		if r.commandDelay > 0 {
			time.Sleep(r.commandDelay)
		}
	}
}

// dispatch executes one dequeued command against the registry.
func (r *Registry) dispatch(cmd command) {
	switch cmd.kind {
	case cmdSet:
		r.handleSet(cmd.name, cmd.payload)

	case cmdGet:
		// A bare group name publishes the whole group; anything else is
		// treated as a single parameter.
		if !strings.Contains(cmd.name, "/") && r.isGroup(cmd.name) {
			r.publishGroup(cmd.name)
			return
		}
		if !r.PublishUpdate(cmd.name) {
			r.publishError(cmd.name, ErrNotFound.Error())
		}

	case cmdGetAll:
		r.PublishAllGrouped()

	case cmdList:
		payload, err := json.Marshal(r.sortedNames())
		if err != nil {
			r.logger.Error("encoding parameter list failed", "error", err)
			return
		}
		r.emit(r.prefix+"/list/response", payload)

	case cmdSave:
		if err := r.SaveAll(); err != nil {
			r.logger.Error("remote save failed", "error", err)
		}
	}
}

// handleSet decodes a set payload and applies it, publishing the updated
// status on success or an error document on failure.
func (r *Registry) handleSet(name string, payload []byte) {
	value := decodeSetPayload(payload)

	if err := r.Set(name, value); err != nil {
		r.logger.Warn("remote set failed", "name", name, "error", err)
		r.publishError(name, err.Error())
		return
	}
	// Set already published the updated status when a transport is attached.
}

// decodeSetPayload extracts the candidate value from a set payload.
//
// Accepted shapes: a JSON object {"value": …}, any bare JSON scalar, or —
// for clients that send unquoted text — a raw string heuristically coerced
// to bool, number, or string.
func decodeSetPayload(payload []byte) any {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err == nil {
		if obj, ok := decoded.(map[string]any); ok {
			if v, exists := obj["value"]; exists {
				return v
			}
			return obj
		}
		return decoded
	}

	s := strings.TrimSpace(string(payload))
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// publishError emits an error document on a parameter's status topic.
func (r *Registry) publishError(name string, message string) {
	payload, err := json.Marshal(map[string]any{
		"name":  name,
		"error": message,
	})
	if err != nil {
		return
	}
	r.emit(r.prefix+"/status/"+name, payload)
}
