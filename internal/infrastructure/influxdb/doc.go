// Package influxdb provides InfluxDB connectivity for ParamCore.
//
// It wraps the official influxdb-client-go v2 library with ParamCore-specific
// patterns for connection management and change telemetry.
//
// # Purpose
//
// This package records parameter change history as time-series data:
// every successful remote or local set produces one point, tagged by
// parameter name, type, and group. Fleet operators use this to audit
// configuration drift across devices.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "esplan",
//	    Bucket: "paramcore",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteParameterChange("heating/targetTemp", "float", 23.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a
// callback. Connection and health check errors are returned directly.
package influxdb
