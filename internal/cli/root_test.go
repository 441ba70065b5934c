package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorlog/aranet-archive/internal/reading"
	"github.com/sensorlog/aranet-archive/internal/store"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seedArchive creates a database with a few readings and returns its path.
func seedArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	batch := make([]reading.Reading, 5)
	for i := range batch {
		batch[i] = reading.Reading{
			Seq:       int64(i + 1),
			Timestamp: base.Add(time.Duration(i-4) * time.Minute),
			Channels:  reading.Channels{CO2PPM: reading.Int64(500 + int64(i))},
		}
	}
	_, err = s.InsertBatch(context.Background(), "office", 0, batch)
	require.NoError(t, err)
	return path
}

func TestRoot_RejectsInvalidFormat(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")

	_, err := execute(t, "--format", "xml", "print")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTail_PrintsChronologicallyWithFooter(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	path := seedArchive(t)

	out, err := execute(t, "--db", path, "--device", "office", "tail", "-n", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "device | timestamp |")
	assert.Contains(t, out, "Printed 3 of 5 measurements.")
	// Oldest of the three shown comes first.
	assert.Less(t,
		bytes.Index([]byte(out), []byte("502")),
		bytes.Index([]byte(out), []byte("504")))
}

func TestPrint_NewestFirstByDefault(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	path := seedArchive(t)

	out, err := execute(t, "--db", path, "--device", "office", "print", "-n", "2")
	require.NoError(t, err)

	assert.Less(t,
		bytes.Index([]byte(out), []byte("504")),
		bytes.Index([]byte(out), []byte("503")))
	assert.NotContains(t, out, "Printed", "print has no footer")
}

func TestPrint_JSONFormat(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	path := seedArchive(t)

	out, err := execute(t, "--db", path, "--device", "office", "--format", "json", "print", "-n", "2")
	require.NoError(t, err)

	var rows []reading.Reading
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(5), rows[0].Seq)
}

func TestFetch_RejectsMissingDeviceConfig(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	t.Setenv("DEVICE_NAME", "XXX") // the .env template placeholder
	t.Setenv("DEVICE_MAC", "XXX")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "archive.db"))

	_, err := execute(t, "fetch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "device_name")
}

func TestDevices_EmptyArchive(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	path := filepath.Join(t.TempDir(), "archive.db")

	out, err := execute(t, "--db", path, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "No devices archived yet.")
}

func TestPlot_RendersPNG(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	path := seedArchive(t)
	outPNG := filepath.Join(t.TempDir(), "out.png")

	out, err := execute(t,
		"--db", path, "--device", "office",
		"plot", "--sensors", "co2", "--start", "2026-03-10", "--end", "2026-03-15", "-o", outPNG)
	require.NoError(t, err)
	assert.Contains(t, out, "Plotted 5 measures")
}

func TestPlot_RejectsBadDates(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	path := seedArchive(t)

	_, err := execute(t, "--db", path, "plot", "--start", "14-03-2026")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
