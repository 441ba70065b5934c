package aranet

import "tinygo.org/x/bluetooth"

// Aranet4 vendor GATT UUIDs. The xxx in f0cdxxxx-95da-4f4b-9ac8-aa55d312af0c
// selects the characteristic.
var (
	serviceUUID = mustUUID(0x1400)

	// charCurrent is the detailed current-readings characteristic:
	// co2, temperature, pressure, humidity, battery, status, interval,
	// seconds since the newest sample.
	charCurrent = mustUUID(0x3001)

	// charTotalReadings is the device's cumulative sample counter (u16).
	charTotalReadings = mustUUID(0x2001)

	// charInterval is the sampling period in seconds (u16).
	charInterval = mustUUID(0x2002)

	// charSecondsSince is the age of the newest sample in seconds (u16).
	charSecondsSince = mustUUID(0x2004)

	// charCommand accepts history-download commands.
	charCommand = mustUUID(0x1402)

	// charHistory streams history record packets as notifications.
	charHistory = mustUUID(0x2005)
)

func mustUUID(short uint16) bluetooth.UUID {
	return bluetooth.NewUUID([16]byte{
		0xf0, 0xcd, byte(short >> 8), byte(short), 0x95, 0xda, 0x4f, 0x4b,
		0x9a, 0xc8, 0xaa, 0x55, 0xd3, 0x12, 0xaf, 0x0c,
	})
}

// History channel selectors used in the download command and echoed back
// in every record packet.
const (
	paramTemperature = 1
	paramHumidity    = 2
	paramPressure    = 3
	paramCO2         = 4
)

var historyParams = []byte{paramTemperature, paramHumidity, paramPressure, paramCO2}
