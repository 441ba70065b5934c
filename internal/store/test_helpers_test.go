package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// createTestStore creates a temporary on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testBatch builds n contiguous readings starting at firstSeq, one per
// minute ending at base time.
func testBatch(firstSeq int64, n int, base time.Time) []reading.Reading {
	batch := make([]reading.Reading, n)
	for i := range batch {
		batch[i] = reading.Reading{
			Seq:       firstSeq + int64(i),
			Timestamp: base.Add(time.Duration(i-n+1) * time.Minute),
			Channels: reading.Channels{
				CO2PPM:      reading.Int64(400 + int64(i)),
				Temperature: reading.Float64(21.5),
				Humidity:    reading.Float64(40),
				PressureHPa: reading.Float64(1013.2),
				BatteryPct:  reading.Int64(87),
			},
		}
	}
	return batch
}
