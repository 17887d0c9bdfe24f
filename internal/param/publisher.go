package param

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// publishProgress is the resumable state of a full-set publish. It is the
// only registry state shared across goroutines and is always accessed under
// its mutex. Publishing is best-effort, so acquisition uses TryLock: a
// caller that cannot get the lock gives up rather than blocking.
type publishProgress struct {
	mu         sync.Mutex
	inProgress bool
	cursor     int
	total      int

	// names is the sorted snapshot taken when the publish started. Working
	// from a snapshot keeps the cursor stable even if iteration order of
	// the live map would differ between steps.
	names []string
}

// PublishAll starts a chunked publish of every parameter.
//
// It is a no-op when a publish is already in progress (the running publish
// keeps its cursor), when the registry is empty, or when no transport is
// available. On start it emits a summary message to <prefix>/status/summary
// and snapshots the parameter set; ContinuePublish then emits the
// parameters in bounded batches.
func (r *Registry) PublishAll() {
	if !r.pub.mu.TryLock() {
		return
	}

	if r.pub.inProgress {
		r.pub.mu.Unlock()
		return
	}
	if len(r.params) == 0 || !r.transportReady() {
		r.pub.mu.Unlock()
		return
	}

	names := r.sortedNames()

	summary, err := json.Marshal(map[string]any{
		"parameterCount": len(names),
		"timestamp":      time.Now().UnixMilli(),
		"message":        "parameter publish starting",
	})
	if err != nil {
		r.pub.mu.Unlock()
		return
	}
	r.emit(r.prefix+"/status/summary", summary)

	r.pub.inProgress = true
	r.pub.cursor = 0
	r.pub.total = len(names)
	r.pub.names = names
	r.pub.mu.Unlock()

	r.logger.Info("parameter publish started", "count", len(names))
}

// ContinuePublish advances an in-progress publish by one chunk.
//
// Call this periodically from the host's scheduling loop; each call emits
// at most chunkSize parameters with a short pause between them. The cursor
// is advanced before the lock is released, so overlapping step calls can
// never publish the same range twice. A disconnect, detected before or
// mid-batch, aborts the publish back to idle; the remaining parameters stay
// unpublished until the next explicit PublishAll.
func (r *Registry) ContinuePublish() {
	if !r.pub.mu.TryLock() {
		return
	}

	if !r.pub.inProgress {
		r.pub.mu.Unlock()
		return
	}
	if !r.transportReady() {
		r.resetProgressLocked()
		r.pub.mu.Unlock()
		r.logger.Warn("transport lost, aborting parameter publish")
		return
	}
	if r.pub.cursor >= r.pub.total {
		r.resetProgressLocked()
		r.pub.mu.Unlock()
		r.logger.Info("parameter publish complete")
		return
	}

	start := r.pub.cursor
	batch := r.chunkSize
	if remaining := r.pub.total - start; batch > remaining {
		batch = remaining
	}
	r.pub.cursor += batch
	names := r.pub.names[start : start+batch]
	r.pub.mu.Unlock()

	for i, name := range names {
		if !r.PublishUpdate(name) {
			r.abortPublish()
			return
		}
		if r.paramDelay > 0 && i < len(names)-1 {
			time.Sleep(r.paramDelay)
		}
	}

	r.logger.Debug("published parameter chunk", "from", start, "count", len(names))
}

// resetProgressLocked returns the publisher to idle. Callers hold pub.mu.
func (r *Registry) resetProgressLocked() {
	r.pub.inProgress = false
	r.pub.cursor = 0
	r.pub.total = 0
	r.pub.names = nil
}

// abortPublish resets an in-flight publish after a mid-batch failure.
func (r *Registry) abortPublish() {
	r.pub.mu.Lock()
	r.resetProgressLocked()
	r.pub.mu.Unlock()
	r.logger.Warn("parameter publish aborted mid-batch")
}

// PublishUpdate emits one parameter's status document to
// <prefix>/status/<name>.
//
// Returns:
//   - bool: false if the parameter is unknown or the publish failed
func (r *Registry) PublishUpdate(name string) bool {
	p, ok := r.params[name]
	if !ok {
		return false
	}

	payload, err := json.Marshal(r.statusDoc(p))
	if err != nil {
		r.logger.Error("encoding parameter status failed", "name", name, "error", err)
		return false
	}

	return r.emit(r.prefix+"/status/"+name, payload)
}

// PublishAllGrouped emits one message per parameter group followed by a
// completion message on <prefix>/status/complete.
//
// A group is the first segment of a hierarchical name; members are keyed
// by their remaining suffix, with a further slash nesting into a named
// sub-object (e.g. pid/heating/kp lands at {"heating":{"kp":…}} in the
// "pid" group message). Read-only parameters and blobs are excluded.
// Parameters without a slash publish under their own name with a bare
// {"value":…} document.
func (r *Registry) PublishAllGrouped() {
	names := r.sortedNames()

	groups := make(map[string]map[string]any)
	var groupOrder []string

	for _, name := range names {
		p := r.params[name]
		if p.access == ReadOnly || p.bind.kind() == TypeBlob {
			continue
		}

		group := name
		suffix := ""
		if idx := strings.Index(name, "/"); idx > 0 {
			group = name[:idx]
			suffix = name[idx+1:]
		}

		doc, exists := groups[group]
		if !exists {
			doc = make(map[string]any)
			groups[group] = doc
			groupOrder = append(groupOrder, group)
		}

		switch {
		case suffix == "":
			doc["value"] = p.bind.wire()
		case strings.Contains(suffix, "/"):
			// Nest one further level: pid/heating/kp -> {"heating":{"kp":v}}
			idx := strings.Index(suffix, "/")
			sub, leaf := suffix[:idx], suffix[idx+1:]
			nested, ok := doc[sub].(map[string]any)
			if !ok {
				nested = make(map[string]any)
				doc[sub] = nested
			}
			nested[leaf] = p.bind.wire()
		default:
			doc[suffix] = p.bind.wire()
		}
	}

	published := 0
	for _, group := range groupOrder {
		payload, err := json.Marshal(groups[group])
		if err != nil {
			r.logger.Error("encoding group document failed", "group", group, "error", err)
			continue
		}
		if !r.emit(r.prefix+"/status/"+group, payload) {
			r.logger.Warn("publishing group failed", "group", group)
			return
		}
		published++
		if r.paramDelay > 0 {
			time.Sleep(r.paramDelay)
		}
	}

	completion, err := json.Marshal(map[string]any{
		"status":          "complete",
		"timestamp":       time.Now().UnixMilli(),
		"groupsPublished": published,
	})
	if err != nil {
		return
	}
	r.emit(r.prefix+"/status/complete", completion)
}

// isGroup reports whether any registered parameter lives under the given
// first segment.
func (r *Registry) isGroup(name string) bool {
	prefix := name + "/"
	for registered := range r.params {
		if strings.HasPrefix(registered, prefix) {
			return true
		}
	}
	return false
}

// publishGroup emits a single group's document to <prefix>/status/<group>.
func (r *Registry) publishGroup(group string) bool {
	doc := make(map[string]any)
	for _, name := range r.ListByPrefix(group + "/") {
		p := r.params[name]
		if p.access == ReadOnly || p.bind.kind() == TypeBlob {
			continue
		}
		suffix := name[len(group)+1:]
		if idx := strings.Index(suffix, "/"); idx > 0 {
			sub, leaf := suffix[:idx], suffix[idx+1:]
			nested, ok := doc[sub].(map[string]any)
			if !ok {
				nested = make(map[string]any)
				doc[sub] = nested
			}
			nested[leaf] = p.bind.wire()
			continue
		}
		doc[suffix] = p.bind.wire()
	}

	if len(doc) == 0 {
		return false
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		r.logger.Error("encoding group document failed", "group", group, "error", err)
		return false
	}
	return r.emit(r.prefix+"/status/"+group, payload)
}
