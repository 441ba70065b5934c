package reading

import (
	"fmt"
	"strings"
	"time"
)

// Channels holds the measurement channels of one sample. Every channel is
// optional: a device model may lack a sensor, and the history download
// returns channels independently, so any subset can be present.
type Channels struct {
	CO2PPM      *int64   `json:"co2_ppm,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"` // degrees Celsius
	Humidity    *float64 `json:"humidity,omitempty"`    // percent relative
	PressureHPa *float64 `json:"pressure_hpa,omitempty"`
	BatteryPct  *int64   `json:"battery_pct,omitempty"`
}

// Empty reports whether no channel carries a value.
func (c Channels) Empty() bool {
	return c.CO2PPM == nil && c.Temperature == nil && c.Humidity == nil &&
		c.PressureHPa == nil && c.BatteryPct == nil
}

// Reading is one archived sensor sample.
//
// Seq is the device-assigned sample index, derived by counting backward
// from the device's total-readings counter at fetch time (the device never
// transmits sequence numbers on the wire). Within a (device, epoch) pair
// sequences are unique and strictly increasing; the archive never mutates
// or deletes a reading once written.
type Reading struct {
	Device    string    `json:"device"`
	Epoch     int64     `json:"epoch"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Channels
}

// String renders a compact single-line form used in verbose logging.
func (r Reading) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seq=%d t=%s", r.Seq, r.Timestamp.UTC().Format(time.RFC3339))
	if r.CO2PPM != nil {
		fmt.Fprintf(&b, " co2=%d", *r.CO2PPM)
	}
	if r.Temperature != nil {
		fmt.Fprintf(&b, " temp=%.2f", *r.Temperature)
	}
	if r.Humidity != nil {
		fmt.Fprintf(&b, " hum=%.1f", *r.Humidity)
	}
	if r.PressureHPa != nil {
		fmt.Fprintf(&b, " press=%.1f", *r.PressureHPa)
	}
	if r.BatteryPct != nil {
		fmt.Fprintf(&b, " batt=%d", *r.BatteryPct)
	}
	return b.String()
}

// Int64 returns a pointer to v. Convenience for building Channels literals.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v. Convenience for building Channels literals.
func Float64(v float64) *float64 { return &v }
