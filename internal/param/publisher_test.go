package param

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// fakeTransport is a Transport that records publishes and can simulate a
// disconnect after a fixed number of successful sends.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	topics    []string

	// failAfter disconnects the transport once this many publishes have
	// succeeded. Zero means never.
	failAfter int
	sent      int
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Publish(topic string, _ []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return fmt.Errorf("not connected")
	}
	f.topics = append(f.topics, topic)
	f.sent++
	if f.failAfter > 0 && f.sent >= f.failAfter {
		f.connected = false
	}
	return nil
}

func (f *fakeTransport) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics)
}

// registerFloats registers n writable float parameters with sortable names.
func registerFloats(t *testing.T, r *Registry, n int) []float32 {
	t.Helper()
	values := make([]float32, n)
	for i := range values {
		values[i] = float32(i)
		name := fmt.Sprintf("bulk/param%02d", i)
		mustRegister(t, r.RegisterFloat(name, &values[i], 0, 100, "", ReadWrite))
	}
	return values
}

func TestPublishAllEmptyRegistry(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	pub := &recordingPublisher{}
	r.SetPublishFunc(pub.fn)

	r.PublishAll()

	if len(pub.topics) != 0 {
		t.Errorf("publishes = %v, want none for empty registry", pub.topics)
	}
	if r.pub.inProgress {
		t.Error("publisher left Publishing on empty registry")
	}
}

func TestPublishAllDisconnectedTransport(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	ft := &fakeTransport{connected: false}
	r.SetTransport(ft)
	registerFloats(t, r, 3)

	r.PublishAll()

	if ft.published() != 0 {
		t.Errorf("publishes = %d, want none while disconnected", ft.published())
	}
	if r.pub.inProgress {
		t.Error("publisher left Publishing while disconnected")
	}
}

func TestPublishAllChunking(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	pub := &recordingPublisher{}
	r.SetPublishFunc(pub.fn)
	registerFloats(t, r, 12)

	r.PublishAll()

	if pub.countTopic("esplan/params/status/summary") != 1 {
		t.Fatalf("topics = %v, want one summary", pub.topics)
	}
	var summary map[string]any
	if err := json.Unmarshal([]byte(pub.payloads[0]), &summary); err != nil {
		t.Fatalf("summary not JSON: %v", err)
	}
	if summary["parameterCount"] != float64(12) {
		t.Errorf("summary parameterCount = %v, want 12", summary["parameterCount"])
	}

	// 12 parameters in chunks of 5: 5, 5, 2.
	wantCumulative := []int{6, 11, 13} // including the summary message
	for step, want := range wantCumulative {
		r.ContinuePublish()
		if len(pub.topics) != want {
			t.Fatalf("after step %d: %d messages, want %d", step+1, len(pub.topics), want)
		}
	}
	if r.pub.cursor != 12 {
		t.Errorf("cursor = %d, want 12", r.pub.cursor)
	}

	// The finishing step resets to idle without publishing.
	r.ContinuePublish()
	if r.pub.inProgress {
		t.Error("publisher still Publishing after cursor reached total")
	}
	if len(pub.topics) != 13 {
		t.Errorf("finishing step published %d extra messages", len(pub.topics)-13)
	}

	// Stepping while idle is idempotent.
	r.ContinuePublish()
	if len(pub.topics) != 13 {
		t.Error("idle step published messages")
	}

	// Sorted snapshot order: first chunk starts at bulk/param00.
	if pub.topics[1] != "esplan/params/status/bulk/param00" {
		t.Errorf("first published parameter = %q, want bulk/param00", pub.topics[1])
	}
}

func TestPublishAllReentrantStartIgnored(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	pub := &recordingPublisher{}
	r.SetPublishFunc(pub.fn)
	registerFloats(t, r, 8)

	r.PublishAll()
	r.ContinuePublish()
	cursorBefore := r.pub.cursor

	// A second start while publishing must not reset the cursor or emit
	// another summary.
	r.PublishAll()

	if r.pub.cursor != cursorBefore {
		t.Errorf("cursor = %d after re-entrant start, want %d", r.pub.cursor, cursorBefore)
	}
	if pub.countTopic("esplan/params/status/summary") != 1 {
		t.Errorf("summaries = %d, want 1", pub.countTopic("esplan/params/status/summary"))
	}
}

func TestContinuePublishDisconnectAborts(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	ft := &fakeTransport{connected: true}
	r.SetTransport(ft)
	registerFloats(t, r, 8)

	r.PublishAll()
	ft.mu.Lock()
	ft.connected = false
	ft.mu.Unlock()

	r.ContinuePublish()

	if r.pub.inProgress {
		t.Error("publisher still Publishing after disconnect")
	}
	// Only the summary went out before the disconnect.
	if ft.published() != 1 {
		t.Errorf("publishes = %d, want 1", ft.published())
	}
}

func TestContinuePublishMidBatchDisconnectAborts(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	// Summary plus two parameters succeed, then the transport drops.
	ft := &fakeTransport{connected: true, failAfter: 3}
	r.SetTransport(ft)
	registerFloats(t, r, 8)

	r.PublishAll()
	r.ContinuePublish()

	if r.pub.inProgress {
		t.Error("publisher still Publishing after mid-batch disconnect")
	}
	if ft.published() != 3 {
		t.Errorf("publishes = %d, want 3 (summary + 2 parameters)", ft.published())
	}

	// The aborted publish does not resume; a fresh start is required.
	r.ContinuePublish()
	if ft.published() != 3 {
		t.Error("aborted publish resumed without a new PublishAll")
	}
}

func TestPublishUpdateUnknown(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	pub := &recordingPublisher{}
	r.SetPublishFunc(pub.fn)

	if r.PublishUpdate("missing") {
		t.Error("PublishUpdate(missing) = true, want false")
	}
	if len(pub.topics) != 0 {
		t.Errorf("publishes = %v, want none", pub.topics)
	}
}

func TestPublishAllGrouped(t *testing.T) {
	r, _ := newTestRegistry(Options{Prefix: "esplan/params"})
	pub := &recordingPublisher{}
	r.SetPublishFunc(pub.fn)

	enabled := true
	targetTemp := float32(23.5)
	heatKp := float32(1.5)
	waterKp := float32(0.8)
	uptime := int32(120)
	standalone := false
	blob := []byte{1, 2, 3}

	mustRegister(t, r.RegisterBool("heating/enabled", &enabled, "", ReadWrite))
	mustRegister(t, r.RegisterFloat("heating/targetTemp", &targetTemp, 10, 30, "", ReadWrite))
	mustRegister(t, r.RegisterFloat("pid/spaceHeating/kp", &heatKp, 0, 100, "", ReadWrite))
	mustRegister(t, r.RegisterFloat("pid/waterHeater/kp", &waterKp, 0, 100, "", ReadWrite))
	mustRegister(t, r.RegisterInt("system/uptime", &uptime, 0, 1<<30, "", ReadOnly))
	mustRegister(t, r.RegisterBool("maintenance", &standalone, "", ReadWrite))
	mustRegister(t, r.RegisterBlob("tls/cert", blob, "", ReadWrite))

	r.PublishAllGrouped()

	docs := make(map[string]map[string]any)
	for i, topic := range pub.topics {
		var doc map[string]any
		if err := json.Unmarshal([]byte(pub.payloads[i]), &doc); err != nil {
			t.Fatalf("payload on %s not JSON: %v", topic, err)
		}
		docs[topic] = doc
	}

	heating := docs["esplan/params/status/heating"]
	if heating == nil || heating["enabled"] != true || heating["targetTemp"] != 23.5 {
		t.Errorf("heating group = %v", heating)
	}

	// Second-level segments nest into named sub-objects.
	pid := docs["esplan/params/status/pid"]
	if pid == nil {
		t.Fatalf("no pid group in %v", pub.topics)
	}
	space, _ := pid["spaceHeating"].(map[string]any)
	water, _ := pid["waterHeater"].(map[string]any)
	if space == nil || space["kp"] != 1.5 {
		t.Errorf("pid.spaceHeating = %v", pid["spaceHeating"])
	}
	if water == nil || water["kp"] != 0.8 {
		t.Errorf("pid.waterHeater = %v", pid["waterHeater"])
	}

	// Flat names publish under their own name.
	flat := docs["esplan/params/status/maintenance"]
	if flat == nil || flat["value"] != false {
		t.Errorf("flat parameter doc = %v", flat)
	}

	// Read-only parameters and blobs are excluded entirely.
	if _, exists := docs["esplan/params/status/system"]; exists {
		t.Error("read-only parameter produced a group message")
	}
	if _, exists := docs["esplan/params/status/tls"]; exists {
		t.Error("blob parameter produced a group message")
	}

	complete := docs["esplan/params/status/complete"]
	if complete == nil || complete["status"] != "complete" {
		t.Errorf("completion message = %v", complete)
	}
	if complete["groupsPublished"] != float64(3) {
		t.Errorf("groupsPublished = %v, want 3", complete["groupsPublished"])
	}
}
