package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// Pipe-separated table, same shape the original printing scripts used:
//
//	device | timestamp | temperature | humidity | pressure | CO2 | battery
//	---------------------------------------------------------------------
var tableColumns = []string{"device", "timestamp", "temperature", "humidity", "pressure", "CO2", "battery"}

// counts renders human-readable integers with grouping ("12,345").
var counts = message.NewPrinter(language.English)

func writeTableHeader(w io.Writer) {
	header := strings.Join(tableColumns, " | ")
	fmt.Fprintln(w, header)

	width := 3 * (len(tableColumns) - 1)
	for _, name := range tableColumns {
		width += len(name)
	}
	fmt.Fprintln(w, strings.Repeat("-", width))
}

func writeTableRow(w io.Writer, r reading.Reading, loc *time.Location) {
	cells := []string{
		r.Device,
		r.Timestamp.In(loc).Format("2006-01-02 15:04:05 -0700"),
		floatCell(r.Temperature, 2),
		floatCell(r.Humidity, 0),
		floatCell(r.PressureHPa, 1),
		intCell(r.CO2PPM),
		intCell(r.BatteryPct),
	}
	fmt.Fprintln(w, strings.Join(cells, " | "))
}

// writeTable renders readings plus an optional "Printed N of M" footer
// (total < 0 suppresses it).
func writeTable(w io.Writer, readings []reading.Reading, loc *time.Location, total int64) {
	writeTableHeader(w)
	for _, r := range readings {
		writeTableRow(w, r, loc)
	}
	if total >= 0 {
		counts.Fprintf(w, "\nPrinted %d of %d measurements.\n", len(readings), total)
	}
}

func floatCell(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func intCell(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
