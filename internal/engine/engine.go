// Package engine implements the simulation loop.
//
// The simulation advances in fixed physics ticks. Each tick has two passes:
//
//  1. Control pass - on every ControlInterval-th tick, a snapshot of all
//     vehicles and obstacles is taken and every vehicle's driver acts on it.
//     All drivers see the same snapshot, so the order vehicles are listed in
//     never matters.
//
//  2. Physics pass - every vehicle's powertrain and body advance by one tick.
//     Vehicles that have left the city are removed.
package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/logging"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/sensing"
	"github.com/cxd309/esprit-sim/internal/traffic"
	"github.com/cxd309/esprit-sim/internal/vehicle"
)

// departureMargin is how far outside the city a vehicle may stray before it is
// removed.
const departureMargin = 20.0

// NewSim constructs a Sim from a SimulationInput, building the layout and
// placing each vehicle at its initial position.
func NewSim(input SimulationInput) (*Sim, error) {
	meta := input.Meta
	if meta.TimeStep <= 0 {
		return nil, fmt.Errorf("time_step must be positive, got %v", meta.TimeStep)
	}
	if meta.RunTime < 0 {
		return nil, fmt.Errorf("run_time must not be negative, got %v", meta.RunTime)
	}
	if meta.ControlInterval < 0 || meta.LogInterval < 0 {
		return nil, fmt.Errorf("control_interval and log_interval must not be negative")
	}
	meta.ControlInterval = max(meta.ControlInterval, 1)
	meta.LogInterval = max(meta.LogInterval, 1)

	layout, err := city.NewLayout(input.Layout)
	if err != nil {
		return nil, fmt.Errorf("building layout: %w", err)
	}

	tp := traffic.DefaultProfile()
	if input.Traffic != nil {
		tp = *input.Traffic
	}
	if err := tp.Validate(); err != nil {
		return nil, fmt.Errorf("traffic profile: %w", err)
	}

	models := make(map[string]*powertrain.Model)
	seen := make(map[string]bool, len(input.Vehicles))
	vehicles := make([]*vehicle.Vehicle, 0, len(input.Vehicles))
	for i, def := range input.Vehicles {
		name := def.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if def.ID != "" && seen[def.ID] {
			return nil, fmt.Errorf("vehicle %q: duplicate id", def.ID)
		}
		seen[def.ID] = true

		model, err := resolveModel(input.Cars, models, def.Car)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		profile, err := resolveProfile(input.Profiles, def.Profile)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		v, err := vehicle.New(def, model, profile, tp, layout, meta.TimeStep)
		if err != nil {
			return nil, fmt.Errorf("creating vehicle %s: %w", name, err)
		}
		vehicles = append(vehicles, v)
	}

	b := layout.Bounds()
	margin := r2.Vec{X: departureMargin, Y: departureMargin}
	return &Sim{
		meta:      meta,
		layout:    layout,
		bounds:    city.Rect{Min: r2.Sub(b.Min, margin), Max: r2.Add(b.Max, margin)},
		vehicles:  vehicles,
		obstacles: input.Obstacles,
		log:       SimulationLog{Meta: meta},
	}, nil
}

// resolveModel returns the prepared model for a car name, building each one once
// so vehicles of the same car share it.
func resolveModel(cars map[string]powertrain.CarSpecification, models map[string]*powertrain.Model, name string) (*powertrain.Model, error) {
	key := name
	if key == "" {
		key = DefaultName
	}
	if m, ok := models[key]; ok {
		return m, nil
	}
	spec, ok := cars[key]
	switch {
	case !ok && name != "":
		return nil, fmt.Errorf("unknown car %q", name)
	case !ok:
		spec = powertrain.DefaultSpecification()
	}
	m, err := powertrain.NewModel(spec)
	if err != nil {
		return nil, fmt.Errorf("car %q: %w", key, err)
	}
	models[key] = m
	return m, nil
}

func resolveProfile(profiles map[string]driver.Profile, name string) (driver.Profile, error) {
	key := name
	if key == "" {
		key = DefaultName
	}
	p, ok := profiles[key]
	switch {
	case !ok && name != "":
		return driver.Profile{}, fmt.Errorf("unknown driver profile %q", name)
	case !ok:
		p = driver.DefaultProfile()
	}
	if err := p.Validate(); err != nil {
		return driver.Profile{}, fmt.Errorf("driver profile %q: %w", key, err)
	}
	return p, nil
}

// Layout returns the street grid the simulation runs on.
func (s *Sim) Layout() *city.Layout { return s.layout }

// Vehicles returns the vehicles still in the simulation.
func (s *Sim) Vehicles() []*vehicle.Vehicle { return s.vehicles }

// Time returns the current simulation time in seconds.
func (s *Sim) Time() float64 { return float64(s.tick) * s.meta.TimeStep }

// Run executes the full simulation and returns the log.
func (s *Sim) Run() (SimulationLog, error) {
	logging.L().Info("simulation started",
		zap.String("simulation_id", s.meta.SimulationID),
		zap.Int("vehicles", len(s.vehicles)),
		zap.Float64("run_time", s.meta.RunTime))
	// Half a step of slack so the final tick survives float rounding.
	end := s.meta.RunTime + s.meta.TimeStep/2
	for s.Time() <= end {
		if err := s.Step(); err != nil {
			return SimulationLog{}, fmt.Errorf("at t=%.2f: %w", s.Time(), err)
		}
	}
	logging.L().Info("simulation finished",
		zap.String("simulation_id", s.meta.SimulationID),
		zap.Int("rows", len(s.log.Output)),
		zap.Int("departures", len(s.log.Departures)))
	return s.log, nil
}

// Step logs the current state when due, then advances every vehicle by one
// physics tick.
func (s *Sim) Step() error {
	now := s.Time()
	dt := s.meta.TimeStep

	if s.tick%s.meta.LogInterval == 0 {
		s.log.Output = append(s.log.Output, s.row(now))
	}

	// Pass 1: controllers act on a shared snapshot.
	if s.tick%s.meta.ControlInterval == 0 {
		world := s.Snapshot()
		for _, v := range s.vehicles {
			v.Control(now, world, dt*float64(s.meta.ControlInterval))
		}
	}

	// Pass 2: physics.
	for _, v := range s.vehicles {
		v.Step(dt)
		if !finite(v.Body.Position) || math.IsNaN(v.Body.Speed) || math.IsNaN(v.Car.EngineAngularSpeed) {
			return fmt.Errorf("vehicle %q: state is no longer finite", v.ID)
		}
	}
	s.removeDeparted(now + dt)
	s.tick++
	return nil
}

// Snapshot returns what every vehicle can see of the world right now.
func (s *Sim) Snapshot() sensing.Snapshot {
	views := make([]sensing.VehicleView, len(s.vehicles))
	for i, v := range s.vehicles {
		views[i] = v.View()
	}
	return sensing.Snapshot{Vehicles: views, Obstacles: s.obstacles}
}

func (s *Sim) row(now float64) SimulationLogRow {
	logs := make([]vehicle.Log, len(s.vehicles))
	for i, v := range s.vehicles {
		logs[i] = v.GetLog()
	}
	return SimulationLogRow{Timestamp: now, VehicleLogs: logs}
}

// removeDeparted drops vehicles that have driven out of the city.
func (s *Sim) removeDeparted(now float64) {
	kept := s.vehicles[:0]
	for _, v := range s.vehicles {
		if s.bounds.Contains(v.Body.Position) {
			kept = append(kept, v)
			continue
		}
		pos := city.Coordinate{X: v.Body.Position.X, Y: v.Body.Position.Y}
		logging.L().Info("vehicle left the city",
			zap.String("vehicle", v.ID), zap.Float64("x", pos.X), zap.Float64("y", pos.Y))
		s.log.Departures = append(s.log.Departures, Departure{VehicleID: v.ID, Timestamp: now, Position: pos})
	}
	clear(s.vehicles[len(kept):])
	s.vehicles = kept
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// RunJSON is the entry point for the CLI and WASM targets. It accepts a
// JSON-encoded SimulationInput, runs the simulation, and returns a JSON-encoded
// SimulationLog.
func RunJSON(jsonInput string) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	sim, err := NewSim(input)
	if err != nil {
		return "", err
	}

	simLog, err := sim.Run()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(simLog)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
