package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/engine"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/vehicle"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleLog() engine.SimulationLog {
	entry := func(id string, x, speed float64, gear string) vehicle.Log {
		return vehicle.Log{
			ID:          id,
			Position:    city.Coordinate{X: x, Y: 2},
			DriverState: driver.Driving,
			TargetSpeed: 10,
			Street:      "long",
			Lane:        1,
			Dashboard: vehicle.Dashboard{
				Speed:       speed,
				RPM:         2000 + 100*speed,
				Gear:        gear,
				EngineState: powertrain.EngineOn,
				Accelerator: 0.3,
			},
		}
	}
	return engine.SimulationLog{
		Meta: engine.SimulationMeta{SimulationID: "sim", RunTime: 1, TimeStep: 0.5, ControlInterval: 1, LogInterval: 1},
		Output: []engine.SimulationLogRow{
			{Timestamp: 0, VehicleLogs: []vehicle.Log{entry("a", 0, 5, "2"), entry("b", 50, 8, "3")}},
			{Timestamp: 0.5, VehicleLogs: []vehicle.Log{entry("a", 2.5, 5.5, "2"), entry("b", 54, 8, "3")}},
			{Timestamp: 1, VehicleLogs: []vehicle.Log{entry("a", 5.3, 6, "3")}},
		},
		Departures: []engine.Departure{{VehicleID: "b", Timestamp: 0.75, Position: city.Coordinate{X: 58, Y: 2}}},
	}
}

func TestOpenMigratesToLatest(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	version, dirty, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestReopenKeepsRuns(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(path)
	require.NoError(t, err)
	runID, err := s.SaveRun(sampleLog())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, Run{RunID: runID, SimulationID: "sim", RunTime: 1, TimeStep: 0.5, ControlInterval: 1}, runs[0])
}

func TestSaveRunRoundTrip(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	log := sampleLog()
	runID, err := s.SaveRun(log)
	require.NoError(t, err)

	all, err := s.Samples(runID, "")
	require.NoError(t, err)
	if diff := cmp.Diff(Flatten(log), all); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	a, err := s.Samples(runID, "a")
	require.NoError(t, err)
	require.Len(t, a, 3)
	for i, want := range []float64{5, 5.5, 6} {
		assert.Equal(t, "a", a[i].VehicleID)
		assert.InDelta(t, want, a[i].Speed, 1e-12)
	}
	assert.Equal(t, "3", a[2].Gear)
	assert.Equal(t, "driving", a[2].DriverState)
	assert.Equal(t, "long", a[2].Street)

	deps, err := s.Departures(runID)
	require.NoError(t, err)
	assert.Equal(t, log.Departures, deps)

	none, err := s.Samples("no-such-run", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunsAreKeptApart(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	first, err := s.SaveRun(sampleLog())
	require.NoError(t, err)
	second, err := s.SaveRun(engine.SimulationLog{Meta: engine.SimulationMeta{SimulationID: "empty", TimeStep: 0.1}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].RunID)
	assert.Equal(t, "empty", runs[1].SimulationID)

	samples, err := s.Samples(second, "")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestFlatten(t *testing.T) {
	t.Parallel()
	got := Flatten(sampleLog())
	require.Len(t, got, 5)
	assert.Equal(t, "b", got[1].VehicleID)
	assert.InDelta(t, 0.5, got[2].Timestamp, 1e-12)
	assert.InDelta(t, 2800, got[1].RPM, 1e-9)
	assert.Equal(t, "on", got[0].EngineState)
}
