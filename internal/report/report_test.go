package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/esprit-sim/internal/engine"
	"github.com/cxd309/esprit-sim/internal/vehicle"
)

func runLog() engine.SimulationLog {
	entry := func(id string, speed, rpm float64, gear string) vehicle.Log {
		return vehicle.Log{ID: id, TargetSpeed: 10, Dashboard: vehicle.Dashboard{Speed: speed, RPM: rpm, Gear: gear}}
	}
	return engine.SimulationLog{
		Meta: engine.SimulationMeta{SimulationID: "report", RunTime: 2, TimeStep: 1},
		Output: []engine.SimulationLogRow{
			{Timestamp: 0, VehicleLogs: []vehicle.Log{entry("car", 0, 800, "N"), entry("truck", -1, 1200, "R")}},
			{Timestamp: 1, VehicleLogs: []vehicle.Log{entry("car", 3, 2500, "1"), entry("truck", 0, 900, "N")}},
			{Timestamp: 2, VehicleLogs: []vehicle.Log{entry("car", 6, 2200, "2")}},
		},
	}
}

func TestTraces(t *testing.T) {
	t.Parallel()
	traces := Traces(runLog())
	require.Len(t, traces, 2)

	car := traces[0]
	assert.Equal(t, "car", car.VehicleID)
	assert.Equal(t, []float64{0, 1, 2}, car.Time)
	assert.Equal(t, []float64{0, 3, 6}, car.Speed)
	assert.Equal(t, []float64{800, 2500, 2200}, car.RPM)
	assert.Equal(t, []float64{0, 1, 2}, car.Gear)
	assert.Equal(t, []float64{10, 10, 10}, car.TargetSpeed)

	truck := traces[1]
	assert.Equal(t, 2, truck.Len(), "a vehicle that left has a shorter trace")
	assert.Equal(t, []float64{-1, 0}, truck.Gear)
}

func TestGearNumber(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]float64{"R": -1, "N": 0, "1": 1, "5": 5, "?": 0} {
		assert.Equal(t, want, gearNumber(in), in)
	}
}

func TestWritePNG(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, "report", Traces(runLog())))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, 0)
	assert.Greater(t, cfg.Height, cfg.Width/2, "three stacked panels")
}

func TestWritePNGToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "trace.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WritePNG(f, "report", Traces(runLog())))
	require.NoError(t, f.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(1000))
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, "report", Traces(runLog())))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "echarts")
	for _, s := range []string{"Speed", "Engine speed", "Gear", "car", "truck"} {
		assert.Contains(t, html, s)
	}
}

func TestEmptyRunHasNothingToDraw(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WritePNG(&buf, "empty", nil), ErrNoData)
	assert.ErrorIs(t, WriteHTML(&buf, "empty", []Trace{{VehicleID: "ghost"}}), ErrNoData)
	assert.Zero(t, buf.Len())
}
