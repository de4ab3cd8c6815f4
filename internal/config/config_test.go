package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/traffic"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDriverProfilePartialJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "driver.json", `{"upshift_rpm": 6000, "steering_speed": 3}`)

	got, err := LoadDriverProfile(path)
	require.NoError(t, err)

	want := driver.DefaultProfile()
	want.UpshiftRPM = 6000
	want.SteeringSpeed = 3
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadDriverProfile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTrafficProfileYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "traffic.yml", "lane_speeds_mph: [5, 15, 20, 25]\nturn_speed: 3\n")

	got, err := LoadTrafficProfile(path)
	require.NoError(t, err)

	want := traffic.DefaultProfile()
	want.LaneSpeedsMPH = [4]float64{5, 15, 20, 25}
	want.TurnSpeed = 3
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadTrafficProfile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCarSpecificationYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "car.yaml", `
name: hatchback
torque_curve:
  - {rpm: 0, torque: 80}
  - {rpm: 3000, torque: 140}
  - {rpm: 7000, torque: 100}
chassis:
  mass: 1000
`)

	got, err := LoadCarSpecification(path)
	require.NoError(t, err)

	def := powertrain.DefaultSpecification()
	assert.Equal(t, "hatchback", got.Name)
	assert.Equal(t, []powertrain.TorquePoint{{RPM: 0, Torque: 80}, {RPM: 3000, Torque: 140}, {RPM: 7000, Torque: 100}},
		got.TorqueCurve, "a curve in the file replaces the default")
	assert.Equal(t, def.ForwardGearRatios, got.ForwardGearRatios)
	assert.InDelta(t, 1000, got.Chassis.Mass, 1e-12)
	assert.InDelta(t, def.Chassis.WheelRadius, got.Chassis.WheelRadius, 1e-12, "unset chassis fields keep defaults")
}

func TestCarSpecificationRoundTrip(t *testing.T) {
	t.Parallel()
	def := powertrain.DefaultSpecification()
	data, err := json.Marshal(def)
	require.NoError(t, err)
	path := writeFile(t, "car.json", string(data))

	first, err := LoadCarSpecification(path)
	require.NoError(t, err)
	second, err := LoadCarSpecification(path)
	require.NoError(t, err)
	if diff := cmp.Diff(def, first); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, first, second)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	big := filepath.Join(dir, "big.json")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat(" ", maxFileSize+1)), 0o644))

	tests := []struct {
		name    string
		path    string
		load    func(string) error
		wantErr string
	}{
		{
			name:    "wrong extension",
			path:    writeFile(t, "car.toml", "name = 'x'"),
			wantErr: "extension",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "nope.json"),
			wantErr: "failed to stat config file",
		},
		{
			name:    "too large",
			path:    big,
			wantErr: "too large",
		},
		{
			name:    "malformed JSON",
			path:    writeFile(t, "bad.json", `{"upshift_rpm":`),
			wantErr: "failed to parse config JSON",
		},
		{
			name:    "unknown JSON field",
			path:    writeFile(t, "typo.json", `{"upshfit_rpm": 6000}`),
			wantErr: "unknown field",
		},
		{
			name:    "unknown YAML field",
			path:    writeFile(t, "typo.yaml", "upshfit_rpm: 6000\n"),
			wantErr: "failed to parse config YAML",
		},
		{
			name:    "invalid driver profile",
			path:    writeFile(t, "slow.json", `{"downshift_rpm": 9000}`),
			wantErr: "invalid driver profile",
		},
		{
			name: "invalid traffic profile",
			path: writeFile(t, "traffic.json", `{"max_sensing_distance": -1}`),
			load: func(p string) error {
				_, err := LoadTrafficProfile(p)
				return err
			},
			wantErr: "invalid traffic profile",
		},
		{
			name: "invalid car",
			path: writeFile(t, "car.json", `{"torque_curve": [{"rpm": 1000, "torque": 100}]}`),
			load: func(p string) error {
				_, err := LoadCarSpecification(p)
				return err
			},
			wantErr: "invalid car specification",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			load := tc.load
			if load == nil {
				load = func(p string) error {
					_, err := LoadDriverProfile(p)
					return err
				}
			}
			err := load(tc.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
