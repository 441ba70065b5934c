// Package aranet implements the sensor.Client interface for Aranet4
// devices over Bluetooth Low Energy.
//
// The device exposes a vendor GATT service. Live values come from a
// single read of the detailed current-readings characteristic; history
// is downloaded one channel at a time: a command write selects the
// channel and start index, then the device streams fixed-layout record
// packets over a notification characteristic. Channels are zipped back
// together by slot index.
//
// The device never transmits timestamps or sequence numbers. It reports
// a total-readings counter, the sampling interval and the age of the
// newest sample; everything else is derived by the reconciler.
package aranet
