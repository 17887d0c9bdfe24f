package influxdb

import (
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteParameterChange records a single parameter change point.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Numeric and boolean values are written as typed fields; strings are
// written as a string field. Blob changes should be recorded with their
// byte length rather than contents.
//
// Parameters:
//   - name: Full hierarchical parameter name (e.g., "heating/targetTemp")
//   - paramType: Type tag ("bool", "int", "float", "string", "blob")
//   - value: The newly applied value
//
// Example:
//
//	client.WriteParameterChange("heating/targetTemp", "float", 23.5)
func (c *Client) WriteParameterChange(name string, paramType string, value any) {
	if !c.IsConnected() {
		return
	}

	group := ""
	if idx := strings.Index(name, "/"); idx > 0 {
		group = name[:idx]
	}

	fields := map[string]interface{}{}
	switch v := value.(type) {
	case bool:
		fields["value_bool"] = v
	case int32:
		fields["value"] = float64(v)
	case float32:
		fields["value"] = float64(v)
	case float64:
		fields["value"] = v
	case string:
		fields["value_str"] = v
	default:
		return
	}

	point := write.NewPoint(
		"parameter_changes",
		map[string]string{
			"parameter": name,
			"type":      paramType,
			"group":     group,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStoreStats records store occupancy, useful for spotting devices
// approaching their persistence entry budget.
//
// Parameters:
//   - used: Entries currently occupied
//   - free: Entries remaining
//   - total: Total entry budget
func (c *Client) WriteStoreStats(used, free, total int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"store_stats",
		map[string]string{},
		map[string]interface{}{
			"used_entries":  used,
			"free_entries":  free,
			"total_entries": total,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
