package aranet

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"github.com/sensorlog/aranet-archive/internal/reading"
	"github.com/sensorlog/aranet-archive/internal/sensor"
)

// ringCapacity is the maximum number of history slots an Aranet4 retains
// before overwriting the oldest (7 days at the default 2-minute interval).
const ringCapacity = 5040

// notifyIdleTimeout aborts a history download when the notification
// stream stalls.
const notifyIdleTimeout = 15 * time.Second

// Client reads Aranet4 devices over BLE. It implements sensor.Client.
// A Client is not safe for concurrent use; the archiver runs one visit
// at a time.
type Client struct {
	Adapter *bluetooth.Adapter
	Log     zerolog.Logger

	enableOnce sync.Once
	enableErr  error
}

// New returns a Client on the platform's default adapter.
func New(log zerolog.Logger) *Client {
	return &Client{Adapter: bluetooth.DefaultAdapter, Log: log}
}

func (c *Client) enable() error {
	c.enableOnce.Do(func() {
		c.enableErr = c.Adapter.Enable()
	})
	if c.enableErr != nil {
		return fmt.Errorf("enable BLE adapter: %w", c.enableErr)
	}
	return nil
}

// connection bundles the discovered characteristics of one visit.
type connection struct {
	device  bluetooth.Device
	current bluetooth.DeviceCharacteristic
	total   bluetooth.DeviceCharacteristic
	interv  bluetooth.DeviceCharacteristic
	since   bluetooth.DeviceCharacteristic
	command bluetooth.DeviceCharacteristic
	history bluetooth.DeviceCharacteristic
}

func (c *Client) connect(address string) (*connection, error) {
	if err := c.enable(); err != nil {
		return nil, err
	}

	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return nil, fmt.Errorf("parse device address %q: %w", address, err)
	}

	dev, err := c.Adapter.Connect(
		bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}},
		bluetooth.ConnectionParams{},
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	svcs, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(svcs) == 0 {
		dev.Disconnect()
		return nil, fmt.Errorf("discover Aranet service on %s: %w", address, err)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{
		charCurrent, charTotalReadings, charInterval, charSecondsSince, charCommand, charHistory,
	})
	if err != nil || len(chars) < 6 {
		dev.Disconnect()
		return nil, fmt.Errorf("discover characteristics on %s: %w", address, err)
	}

	conn := &connection{device: dev}
	for _, ch := range chars {
		switch {
		case ch.UUID() == charCurrent:
			conn.current = ch
		case ch.UUID() == charTotalReadings:
			conn.total = ch
		case ch.UUID() == charInterval:
			conn.interv = ch
		case ch.UUID() == charSecondsSince:
			conn.since = ch
		case ch.UUID() == charCommand:
			conn.command = ch
		case ch.UUID() == charHistory:
			conn.history = ch
		}
	}
	return conn, nil
}

func (conn *connection) close() {
	conn.device.Disconnect()
}

func readU16(ch bluetooth.DeviceCharacteristic) (uint16, error) {
	buf := make([]byte, 8)
	n, err := ch.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		return 0, fmt.Errorf("short read: %d bytes", n)
	}
	return binary.LittleEndian.Uint16(buf[:2]), nil
}

// ReadCurrent reads the live measurement without touching history.
func (c *Client) ReadCurrent(ctx context.Context, address string) (sensor.Current, error) {
	conn, err := c.connect(address)
	if err != nil {
		return sensor.Current{}, err
	}
	defer conn.close()

	buf := make([]byte, 20)
	n, err := conn.current.Read(buf)
	if err != nil {
		return sensor.Current{}, fmt.Errorf("read current readings: %w", err)
	}
	cur, err := decodeCurrent(buf[:n])
	if err != nil {
		return sensor.Current{}, err
	}

	total, err := readU16(conn.total)
	if err != nil {
		return sensor.Current{}, fmt.Errorf("read total readings: %w", err)
	}

	return sensor.Current{
		Channels:           cur.channels,
		TotalReadings:      int64(total),
		Interval:           cur.interval,
		SecondsSinceUpdate: cur.secondsSinceUpdate,
	}, nil
}

// ReadHistory downloads the device's retained history, one channel at a
// time, and zips the channels into history entries oldest-first.
func (c *Client) ReadHistory(ctx context.Context, address string) (sensor.Snapshot, error) {
	conn, err := c.connect(address)
	if err != nil {
		return sensor.Snapshot{}, err
	}
	defer conn.close()

	total, err := readU16(conn.total)
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("read total readings: %w", err)
	}
	intervalSec, err := readU16(conn.interv)
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("read interval: %w", err)
	}
	sinceSec, err := readU16(conn.since)
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("read seconds since update: %w", err)
	}

	retained := int(total)
	if retained > ringCapacity {
		retained = ringCapacity
	}

	snap := sensor.Snapshot{
		TotalReadings: int64(total),
		Interval:      time.Duration(intervalSec) * time.Second,
		FetchedAt:     time.Now().UTC(),
	}
	if retained == 0 {
		return snap, nil
	}

	// One pass per channel; slot i holds the value at 1-based history
	// index i+1, oldest first.
	type slot struct {
		channels  reading.Channels
		malformed bool
	}
	slots := make([]slot, retained)

	for _, param := range historyParams {
		vals, err := c.downloadChannel(ctx, conn, param, retained)
		if err != nil {
			return sensor.Snapshot{}, fmt.Errorf("download channel %d: %w", param, err)
		}
		for i, v := range vals {
			if !channelValue(param, v, &slots[i].channels) && param == paramCO2 {
				// A CO2 error flag marks the whole slot bad, matching
				// the device's own app behavior. Other channels just
				// stay unset.
				slots[i].malformed = true
			}
		}
	}

	snap.History = make([]sensor.HistoryEntry, retained)
	for i, s := range slots {
		// Newest slot (index retained-1) is sinceSec old; each older
		// slot is one interval further back.
		age := time.Duration(sinceSec)*time.Second +
			time.Duration(retained-1-i)*snap.Interval
		snap.History[i] = sensor.HistoryEntry{
			AgeOffset: age,
			Channels:  s.channels,
			Malformed: s.malformed,
		}
	}

	c.Log.Debug().
		Int("retained", retained).
		Uint16("total", total).
		Uint16("interval_s", intervalSec).
		Msg("history downloaded")

	return snap, nil
}

// downloadChannel requests one channel's history and collects the
// notification stream until expected values arrive, the stream goes
// idle, or the context ends.
func (c *Client) downloadChannel(ctx context.Context, conn *connection, param byte, expected int) ([]uint16, error) {
	packets := make(chan historyPacket, 16)
	err := conn.history.EnableNotifications(func(buf []byte) {
		p, err := decodeHistoryPacket(buf)
		if err != nil {
			c.Log.Warn().Err(err).Msg("dropping undecodable history packet")
			return
		}
		select {
		case packets <- p:
		default:
			// Reader stalled; dropping forces the idle timeout below.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("enable history notifications: %w", err)
	}
	defer conn.history.EnableNotifications(nil)

	if _, err := conn.command.WriteWithoutResponse(historyCommand(param, 1)); err != nil {
		return nil, fmt.Errorf("write history command: %w", err)
	}

	vals := make([]uint16, expected)
	received := 0
	idle := time.NewTimer(notifyIdleTimeout)
	defer idle.Stop()

	for received < expected {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-idle.C:
			return nil, fmt.Errorf("history stream stalled after %d/%d values", received, expected)
		case p := <-packets:
			if p.param != param {
				continue // stale packet from a previous channel
			}
			for i, v := range p.vals {
				idx := p.start - 1 + i // wire index is 1-based
				if idx < 0 || idx >= expected {
					continue
				}
				vals[idx] = v
				received++
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(notifyIdleTimeout)
		}
	}
	return vals, nil
}
