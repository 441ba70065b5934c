package aranet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

func TestDecodeCurrent(t *testing.T) {
	// co2=618, temp=21.55 degC (431/20), pressure=1013.9 hPa (10139/10),
	// humidity=42%, battery=91%, status=1, interval=120s, ago=47s.
	buf := []byte{
		0x6a, 0x02, // co2
		0xaf, 0x01, // temperature
		0x9b, 0x27, // pressure
		42, 91, 1,
		0x78, 0x00, // interval
		0x2f, 0x00, // seconds since update
	}

	cur, err := decodeCurrent(buf)
	require.NoError(t, err)

	require.NotNil(t, cur.channels.CO2PPM)
	assert.Equal(t, int64(618), *cur.channels.CO2PPM)
	require.NotNil(t, cur.channels.Temperature)
	assert.InDelta(t, 21.55, *cur.channels.Temperature, 1e-9)
	require.NotNil(t, cur.channels.PressureHPa)
	assert.InDelta(t, 1013.9, *cur.channels.PressureHPa, 1e-9)
	require.NotNil(t, cur.channels.Humidity)
	assert.Equal(t, 42.0, *cur.channels.Humidity)
	require.NotNil(t, cur.channels.BatteryPct)
	assert.Equal(t, int64(91), *cur.channels.BatteryPct)
	assert.Equal(t, 2*time.Minute, cur.interval)
	assert.Equal(t, 47*time.Second, cur.secondsSinceUpdate)
}

func TestDecodeCurrent_ErrorFlags(t *testing.T) {
	buf := []byte{
		0x6a, 0x82, // co2 with error bit set
		0xff, 0xff, // temperature sentinel
		0x9b, 0x27,
		42, 91, 1,
		0x78, 0x00,
		0x2f, 0x00,
	}

	cur, err := decodeCurrent(buf)
	require.NoError(t, err)

	assert.Nil(t, cur.channels.CO2PPM, "flagged co2 must decode as absent")
	assert.Nil(t, cur.channels.Temperature, "sentinel temperature must decode as absent")
	assert.NotNil(t, cur.channels.PressureHPa)
}

func TestDecodeCurrent_ShortPayload(t *testing.T) {
	_, err := decodeCurrent([]byte{0x6a, 0x02, 0xaf})
	assert.Error(t, err)
}

func TestDecodeHistoryPacket(t *testing.T) {
	// param=co2, start=17, three values: 400, 415, 431.
	buf := []byte{
		paramCO2,
		0x11, 0x00,
		3,
		0x90, 0x01,
		0x9f, 0x01,
		0xaf, 0x01,
	}

	p, err := decodeHistoryPacket(buf)
	require.NoError(t, err)

	assert.Equal(t, byte(paramCO2), p.param)
	assert.Equal(t, 17, p.start)
	assert.Equal(t, []uint16{400, 415, 431}, p.vals)
}

func TestDecodeHistoryPacket_Truncated(t *testing.T) {
	// Declares 5 values but carries 1.
	buf := []byte{paramHumidity, 0x01, 0x00, 5, 0x28, 0x00}

	_, err := decodeHistoryPacket(buf)
	assert.Error(t, err)
}

func TestDecodeHistoryPacket_Empty(t *testing.T) {
	p, err := decodeHistoryPacket([]byte{paramPressure, 0x01, 0x00, 0})
	require.NoError(t, err)
	assert.Empty(t, p.vals)
}

func TestChannelValue_Scaling(t *testing.T) {
	var ch reading.Channels

	assert.True(t, channelValue(paramTemperature, 431, &ch))
	assert.True(t, channelValue(paramPressure, 10139, &ch))
	assert.True(t, channelValue(paramHumidity, 42, &ch))
	assert.True(t, channelValue(paramCO2, 618, &ch))

	assert.InDelta(t, 21.55, *ch.Temperature, 1e-9)
	assert.InDelta(t, 1013.9, *ch.PressureHPa, 1e-9)
	assert.Equal(t, 42.0, *ch.Humidity)
	assert.Equal(t, int64(618), *ch.CO2PPM)
}

func TestChannelValue_Sentinels(t *testing.T) {
	var ch reading.Channels

	assert.False(t, channelValue(paramCO2, 0x8000|618, &ch))
	assert.False(t, channelValue(paramTemperature, invalidU16, &ch))
	assert.False(t, channelValue(0x7f, 100, &ch), "unknown channel selector")
	assert.True(t, ch.Empty())
}

func TestHistoryCommand(t *testing.T) {
	cmd := historyCommand(paramCO2, 0x0201)
	assert.Equal(t, []byte{0x82, paramCO2, 0x00, 0x00, 0x01, 0x02}, cmd)
}
