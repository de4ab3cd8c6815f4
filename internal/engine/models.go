package engine

import (
	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/sensing"
	"github.com/cxd309/esprit-sim/internal/traffic"
	"github.com/cxd309/esprit-sim/internal/vehicle"
)

// DefaultName is the car and driver table entry used by vehicles that do not
// name one. Without such an entry the built-in defaults apply.
const DefaultName = "default"

// SimulationMeta holds the identity and timing parameters for a simulation run.
type SimulationMeta struct {
	SimulationID string  `json:"simulation_id"`
	RunTime      float64 `json:"run_time"`  // seconds
	TimeStep     float64 `json:"time_step"` // seconds, the physics tick
	// ControlInterval is the number of physics ticks between controller
	// updates. Zero means every tick.
	ControlInterval int `json:"control_interval,omitempty"`
	// LogInterval is the number of physics ticks between log rows. Zero means
	// every tick.
	LogInterval int `json:"log_interval,omitempty"`
}

// SimulationInput is the JSON-serialisable input to the engine.
type SimulationInput struct {
	Meta     SimulationMeta                         `json:"simulation_meta"`
	Layout   city.LayoutData                        `json:"layout"`
	Cars     map[string]powertrain.CarSpecification `json:"cars,omitempty"`
	Profiles map[string]driver.Profile              `json:"profiles,omitempty"`
	// Traffic tunes every traffic controller; nil uses traffic.DefaultProfile.
	Traffic   *traffic.Profile     `json:"traffic_profile,omitempty"`
	Vehicles  []vehicle.Definition `json:"vehicles"`
	Obstacles []sensing.Obstacle   `json:"obstacles,omitempty"`
}

// SimulationLogRow is the state of all vehicles at a single simulation timestep.
type SimulationLogRow struct {
	Timestamp   float64       `json:"timestamp"` // seconds
	VehicleLogs []vehicle.Log `json:"vehicle_logs"`
}

// Departure records a vehicle removed from the run after leaving the city.
type Departure struct {
	VehicleID string          `json:"vehicle_id"`
	Timestamp float64         `json:"timestamp"`
	Position  city.Coordinate `json:"position"`
}

// SimulationLog is the complete output of a simulation run.
type SimulationLog struct {
	Meta       SimulationMeta     `json:"simulation_meta"`
	Output     []SimulationLogRow `json:"output"`
	Departures []Departure        `json:"departures,omitempty"`
}

// Sim is the simulation engine state.
type Sim struct {
	meta      SimulationMeta
	layout    *city.Layout
	bounds    city.Rect
	vehicles  []*vehicle.Vehicle
	obstacles []sensing.Obstacle
	tick      int
	log       SimulationLog
}
