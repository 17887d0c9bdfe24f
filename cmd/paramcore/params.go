package main

import (
	"os"
	"time"

	"github.com/esplan/paramcore/internal/param"
)

// gatewayParams is the caller-owned memory behind the registered parameter
// set. The registry holds non-owning references into these fields, so the
// struct must outlive the registry; run keeps it alive for the process
// lifetime.
type gatewayParams struct {
	heatingEnabled   bool
	targetTemp       float32
	hysteresis       float32
	fanLevel         int32
	zoneLabel        string
	deviceSerial     string
	spaceHeatingKp   float32
	spaceHeatingKi   float32
	spaceHeatingKd   float32
	waterHeaterKp    float32
	waterHeaterKi    float32
	maintenanceMode  bool
	calibrationTable []byte
	startedAt        time.Time
}

func (g *gatewayParams) uptimeSeconds() int64 {
	return int64(time.Since(g.startedAt).Seconds())
}

// registerGatewayParameters binds the gateway's tunable configuration into
// the registry with its defaults, ranges, and access modes.
func registerGatewayParameters(r *param.Registry) (*gatewayParams, error) {
	g := &gatewayParams{
		heatingEnabled:   true,
		targetTemp:       22.0,
		hysteresis:       0.5,
		fanLevel:         2,
		zoneLabel:        "default",
		deviceSerial:     deviceSerial(),
		spaceHeatingKp:   2.0,
		spaceHeatingKi:   0.1,
		spaceHeatingKd:   0.05,
		waterHeaterKp:    1.5,
		waterHeaterKi:    0.2,
		calibrationTable: make([]byte, 64),
		startedAt:        time.Now(),
	}

	// Collect the first registration error; later calls become no-ops.
	var err error
	register := func(e error) {
		if err == nil {
			err = e
		}
	}

	register(r.RegisterBool("heating/enabled", &g.heatingEnabled,
		"Space heating master switch", param.ReadWrite))
	register(r.RegisterFloat("heating/targetTemp", &g.targetTemp, 10.0, 30.0,
		"Target room temperature in celsius", param.ReadWrite))
	register(r.RegisterFloat("heating/hysteresis", &g.hysteresis, 0.1, 5.0,
		"Switching hysteresis in kelvin", param.ReadWrite))
	register(r.RegisterInt("fan/level", &g.fanLevel, 0, 5,
		"Ventilation fan level", param.ReadWrite))
	register(r.RegisterString("zone/label", &g.zoneLabel, 32,
		"Human-readable zone name", param.ReadWrite))
	register(r.RegisterString("device/serial", &g.deviceSerial, 32,
		"Factory-assigned serial number", param.ReadOnly))
	register(r.RegisterFloat("pid/spaceHeating/kp", &g.spaceHeatingKp, 0.0, 100.0,
		"Space heating proportional gain", param.ReadWrite))
	register(r.RegisterFloat("pid/spaceHeating/ki", &g.spaceHeatingKi, 0.0, 10.0,
		"Space heating integral gain", param.ReadWrite))
	register(r.RegisterFloat("pid/spaceHeating/kd", &g.spaceHeatingKd, 0.0, 10.0,
		"Space heating derivative gain", param.ReadWrite))
	register(r.RegisterFloat("pid/waterHeater/kp", &g.waterHeaterKp, 0.0, 100.0,
		"Water heater proportional gain", param.ReadWrite))
	register(r.RegisterFloat("pid/waterHeater/ki", &g.waterHeaterKi, 0.0, 10.0,
		"Water heater integral gain", param.ReadWrite))
	register(r.RegisterBool("maintenance", &g.maintenanceMode,
		"Suspend control loops for servicing", param.ReadWrite))
	register(r.RegisterBlob("calib/table", g.calibrationTable,
		"Sensor calibration table", param.ReadWrite))

	if err != nil {
		return nil, err
	}

	// The target temperature must keep the hysteresis band inside the
	// declared range so the control loop cannot chatter at the limits.
	if err := r.SetValidator("heating/targetTemp", func(value any) bool {
		v := value.(float32)
		return v-g.hysteresis > 10.0 && v+g.hysteresis < 30.0
	}); err != nil {
		return nil, err
	}

	return g, nil
}

// deviceSerial resolves the factory serial, falling back to the hostname
// for development machines.
func deviceSerial() string {
	if serial := os.Getenv("PARAMCORE_SERIAL"); serial != "" {
		return serial
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
