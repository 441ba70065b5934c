package aranet

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// Wire scaling. Temperature is transmitted in 1/20 degC units, pressure
// in 1/10 hPa units; CO2, humidity and battery are unscaled.
const (
	temperatureScale = 20.0
	pressureScale    = 10.0
)

// invalidU16 marks a history slot the device considers unset or failed
// (calibration in progress, sensor fault). CO2 additionally uses the top
// bit as an error flag.
const invalidU16 = 0xffff

// currentReadings is the decoded detailed current-readings payload.
type currentReadings struct {
	channels           reading.Channels
	interval           time.Duration
	secondsSinceUpdate time.Duration
}

// decodeCurrent parses the 13-byte detailed current-readings payload:
//
//	offset 0  u16le  co2 ppm
//	offset 2  u16le  temperature, 1/20 degC
//	offset 4  u16le  pressure, 1/10 hPa
//	offset 6  u8     humidity %
//	offset 7  u8     battery %
//	offset 8  u8     status (CO2 traffic light, unused here)
//	offset 9  u16le  sampling interval, seconds
//	offset 11 u16le  seconds since newest sample
func decodeCurrent(buf []byte) (currentReadings, error) {
	if len(buf) < 13 {
		return currentReadings{}, fmt.Errorf("current readings payload too short: %d bytes", len(buf))
	}

	var out currentReadings
	if v := binary.LittleEndian.Uint16(buf[0:2]); v&0x8000 == 0 {
		out.channels.CO2PPM = reading.Int64(int64(v))
	}
	if v := binary.LittleEndian.Uint16(buf[2:4]); v != invalidU16 {
		out.channels.Temperature = reading.Float64(float64(v) / temperatureScale)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != invalidU16 {
		out.channels.PressureHPa = reading.Float64(float64(v) / pressureScale)
	}
	out.channels.Humidity = reading.Float64(float64(buf[6]))
	out.channels.BatteryPct = reading.Int64(int64(buf[7]))
	out.interval = time.Duration(binary.LittleEndian.Uint16(buf[9:11])) * time.Second
	out.secondsSinceUpdate = time.Duration(binary.LittleEndian.Uint16(buf[11:13])) * time.Second
	return out, nil
}

// historyPacket is one notification of a history download: a run of
// consecutive u16 values for a single channel.
type historyPacket struct {
	param byte
	start int // 1-based index of the first value in this packet
	vals  []uint16
}

// decodeHistoryPacket parses a history notification:
//
//	offset 0  u8     channel selector (echoed from the command)
//	offset 1  u16le  1-based start index
//	offset 3  u8     value count
//	offset 4  u16le * count
func decodeHistoryPacket(buf []byte) (historyPacket, error) {
	if len(buf) < 4 {
		return historyPacket{}, fmt.Errorf("history packet too short: %d bytes", len(buf))
	}
	count := int(buf[3])
	if len(buf) < 4+2*count {
		return historyPacket{}, fmt.Errorf("history packet truncated: %d values declared, %d bytes", count, len(buf))
	}

	p := historyPacket{
		param: buf[0],
		start: int(binary.LittleEndian.Uint16(buf[1:3])),
		vals:  make([]uint16, count),
	}
	for i := 0; i < count; i++ {
		p.vals[i] = binary.LittleEndian.Uint16(buf[4+2*i : 6+2*i])
	}
	return p, nil
}

// channelValue maps one raw history value into the channel it belongs
// to. ok is false for the device's invalid-value sentinels; the caller
// marks the slot malformed rather than dropping it, so backward sequence
// counting stays aligned.
func channelValue(param byte, v uint16, ch *reading.Channels) (ok bool) {
	switch param {
	case paramCO2:
		if v&0x8000 != 0 {
			return false
		}
		ch.CO2PPM = reading.Int64(int64(v))
	case paramTemperature:
		if v == invalidU16 {
			return false
		}
		ch.Temperature = reading.Float64(float64(v) / temperatureScale)
	case paramHumidity:
		if v == invalidU16 {
			return false
		}
		ch.Humidity = reading.Float64(float64(v))
	case paramPressure:
		if v == invalidU16 {
			return false
		}
		ch.PressureHPa = reading.Float64(float64(v) / pressureScale)
	default:
		return false
	}
	return true
}

// historyCommand builds the command payload selecting a channel and a
// 1-based start index for the download.
func historyCommand(param byte, start uint16) []byte {
	return []byte{0x82, param, 0x00, 0x00, byte(start), byte(start >> 8)}
}
