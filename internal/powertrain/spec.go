// Package powertrain simulates a car's engine, clutch, gearbox and driven wheels.
//
// The model couples engine and drive-axle speeds through proportional
// "equalization" torques rather than a rigid constraint, so the clutch and
// gearbox are allowed to slip. Advance is the only integration entry point and
// runs once per fixed physics tick.
package powertrain

import (
	"errors"
	"fmt"

	"github.com/cxd309/esprit-sim/internal/wheelspeed"
)

// Drivetrain selects which axle the engine drives.
type Drivetrain string

const (
	FrontWheelDrive Drivetrain = "front"
	RearWheelDrive  Drivetrain = "rear"
	AllWheelDrive   Drivetrain = "all"
)

// WheelSpeedFilter selects how raw driven-wheel rates are smoothed.
type WheelSpeedFilter string

const (
	MovingAverageFilter WheelSpeedFilter = "moving_average"
	ExponentialFilter   WheelSpeedFilter = "exponential"
)

// DrivesFront reports whether the front wheels receive motor torque.
func (d Drivetrain) DrivesFront() bool { return d != RearWheelDrive }

// DrivesRear reports whether the rear wheels receive motor torque.
func (d Drivetrain) DrivesRear() bool { return d != FrontWheelDrive }

// DrivenWheels is the number of wheels motor torque is split across.
func (d Drivetrain) DrivenWheels() int {
	if d == AllWheelDrive {
		return 4
	}
	return 2
}

// ChassisSpecification carries the body and wheel parameters the chassis
// integrator needs.
type ChassisSpecification struct {
	Mass              float64 `json:"mass" yaml:"mass"`                             // kg
	WheelRadius       float64 `json:"wheel_radius" yaml:"wheel_radius"`             // m
	WheelAngularMass  float64 `json:"wheel_angular_mass" yaml:"wheel_angular_mass"` // kg·m² per wheel
	Wheelbase         float64 `json:"wheelbase" yaml:"wheelbase"`                   // m
	Length            float64 `json:"length" yaml:"length"`                         // m
	Width             float64 `json:"width" yaml:"width"`                           // m
	RollingResistance float64 `json:"rolling_resistance" yaml:"rolling_resistance"`
}

// CarSpecification is the immutable description of one car model.
type CarSpecification struct {
	Name string `json:"name" yaml:"name"`

	TorqueCurve       []TorquePoint `json:"torque_curve" yaml:"torque_curve"`
	ForwardGearRatios []float64     `json:"forward_gear_ratios" yaml:"forward_gear_ratios"` // index 0 unused
	ReverseGearRatio  float64       `json:"reverse_gear_ratio" yaml:"reverse_gear_ratio"`
	FinalDriveRatio   float64       `json:"final_drive_ratio" yaml:"final_drive_ratio"`
	Drivetrain        Drivetrain    `json:"drivetrain" yaml:"drivetrain"`
	RedlineRPM        float64       `json:"redline_rpm" yaml:"redline_rpm"`

	EngineAngularMass          float64 `json:"engine_angular_mass" yaml:"engine_angular_mass"` // kg·m²
	WheelsToEngineEqualization float64 `json:"wheels_to_engine_equalization" yaml:"wheels_to_engine_equalization"`
	EngineToWheelsEqualization float64 `json:"engine_to_wheels_equalization" yaml:"engine_to_wheels_equalization"`
	EngineBrakingCoefficient   float64 `json:"engine_braking_coefficient" yaml:"engine_braking_coefficient"`

	StarterTorque         float64 `json:"starter_torque" yaml:"starter_torque"`
	StarterStopRPM        float64 `json:"starter_stop_rpm" yaml:"starter_stop_rpm"`
	IdleAirControlStopRPM float64 `json:"idle_air_control_stop_rpm" yaml:"idle_air_control_stop_rpm"`
	RevLimiterStartRPM    float64 `json:"rev_limiter_start_rpm" yaml:"rev_limiter_start_rpm"`
	RevLimiterStopRPM     float64 `json:"rev_limiter_stop_rpm" yaml:"rev_limiter_stop_rpm"`

	MaxSteeringAngleDeg float64 `json:"max_steering_angle_deg" yaml:"max_steering_angle_deg"`
	MaxSteeringRateDeg  float64 `json:"max_steering_rate_deg" yaml:"max_steering_rate_deg"` // deg/s
	MaxBrakingTorque    float64 `json:"max_braking_torque" yaml:"max_braking_torque"`       // N·m per wheel

	DownforceCoefficient float64 `json:"downforce_coefficient" yaml:"downforce_coefficient"`
	DragCoefficient      float64 `json:"drag_coefficient" yaml:"drag_coefficient"`
	FrontalArea          float64 `json:"frontal_area" yaml:"frontal_area"` // m²

	Chassis ChassisSpecification `json:"chassis" yaml:"chassis"`

	// Empty means a moving average; zero window means wheelspeed.DefaultWindow.
	WheelSpeedFilter WheelSpeedFilter `json:"wheel_speed_filter,omitempty" yaml:"wheel_speed_filter"`
	WheelSpeedWindow float64          `json:"wheel_speed_window,omitempty" yaml:"wheel_speed_window"` // s, averaging window or time constant
}

// DefaultSpecification returns the Esprit Turbo used when a scenario names no car.
func DefaultSpecification() CarSpecification {
	return CarSpecification{
		Name: "esprit",
		TorqueCurve: []TorquePoint{
			{RPM: 0, Torque: 0},
			{RPM: 2500, Torque: 320},
			{RPM: 4000, Torque: 350},
			{RPM: 6000, Torque: 310},
			{RPM: 7000, Torque: 260},
		},
		ForwardGearRatios: []float64{0, 2.92, 1.94, 1.32, 0.97, 0.75},
		ReverseGearRatio:  -3.15,
		FinalDriveRatio:   3.88,
		Drivetrain:        RearWheelDrive,
		RedlineRPM:        7200,

		EngineAngularMass:          0.25,
		WheelsToEngineEqualization: 10,
		EngineToWheelsEqualization: 3,
		EngineBrakingCoefficient:   0.5,

		StarterTorque:         60,
		StarterStopRPM:        400,
		IdleAirControlStopRPM: 1200,
		RevLimiterStartRPM:    6800,
		RevLimiterStopRPM:     7200,

		MaxSteeringAngleDeg: 35,
		MaxSteeringRateDeg:  120,
		MaxBrakingTorque:    750,

		DownforceCoefficient: 0.1,
		DragCoefficient:      0.35,
		FrontalArea:          1.8,

		Chassis: ChassisSpecification{
			Mass:              1200,
			WheelRadius:       0.3,
			WheelAngularMass:  1,
			Wheelbase:         2.44,
			Length:            4.2,
			Width:             1.85,
			RollingResistance: 0.012,
		},

		WheelSpeedFilter: MovingAverageFilter,
		WheelSpeedWindow: wheelspeed.DefaultWindow,
	}
}

// Validate reports every inconsistent field, joined, or nil.
func (s CarSpecification) Validate() error {
	var errs []error
	if _, err := NewTorqueCurve(s.TorqueCurve); err != nil {
		errs = append(errs, err)
	}
	if len(s.ForwardGearRatios) < 2 {
		errs = append(errs, errors.New("forward_gear_ratios needs neutral plus at least one gear"))
	} else {
		for i, r := range s.ForwardGearRatios[1:] {
			if r <= 0 {
				errs = append(errs, fmt.Errorf("forward gear %d ratio must be positive, got %g", i+1, r))
			}
		}
	}
	if s.ReverseGearRatio >= 0 {
		errs = append(errs, fmt.Errorf("reverse_gear_ratio must be negative, got %g", s.ReverseGearRatio))
	}

	positive := []struct {
		name string
		v    float64
	}{
		{"final_drive_ratio", s.FinalDriveRatio},
		{"engine_angular_mass", s.EngineAngularMass},
		{"starter_torque", s.StarterTorque},
		{"starter_stop_rpm", s.StarterStopRPM},
		{"idle_air_control_stop_rpm", s.IdleAirControlStopRPM},
		{"max_steering_angle_deg", s.MaxSteeringAngleDeg},
		{"max_steering_rate_deg", s.MaxSteeringRateDeg},
		{"max_braking_torque", s.MaxBrakingTorque},
		{"chassis mass", s.Chassis.Mass},
		{"chassis wheel_radius", s.Chassis.WheelRadius},
		{"chassis wheelbase", s.Chassis.Wheelbase},
	}
	for _, f := range positive {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", f.name, f.v))
		}
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"wheels_to_engine_equalization", s.WheelsToEngineEqualization},
		{"engine_to_wheels_equalization", s.EngineToWheelsEqualization},
		{"engine_braking_coefficient", s.EngineBrakingCoefficient},
		{"chassis wheel_angular_mass", s.Chassis.WheelAngularMass},
		{"chassis rolling_resistance", s.Chassis.RollingResistance},
		{"wheel_speed_window", s.WheelSpeedWindow},
	}
	for _, f := range nonNegative {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", f.name, f.v))
		}
	}
	if s.RevLimiterStopRPM <= s.RevLimiterStartRPM {
		errs = append(errs, fmt.Errorf("rev_limiter_stop_rpm (%g) must exceed rev_limiter_start_rpm (%g)", s.RevLimiterStopRPM, s.RevLimiterStartRPM))
	}

	switch s.Drivetrain {
	case FrontWheelDrive, RearWheelDrive, AllWheelDrive:
	default:
		errs = append(errs, fmt.Errorf("unknown drivetrain %q", s.Drivetrain))
	}
	switch s.WheelSpeedFilter {
	case "", MovingAverageFilter, ExponentialFilter:
	default:
		errs = append(errs, fmt.Errorf("unknown wheel_speed_filter %q", s.WheelSpeedFilter))
	}
	return errors.Join(errs...)
}

// NewWheelSpeedEstimator returns the estimator the car's filter settings call
// for, sampled every dt seconds.
func (s CarSpecification) NewWheelSpeedEstimator(dt float64) wheelspeed.Estimator {
	window := s.WheelSpeedWindow
	if window <= 0 {
		window = wheelspeed.DefaultWindow
	}
	if s.WheelSpeedFilter == ExponentialFilter {
		return wheelspeed.NewExponential(window, dt)
	}
	return wheelspeed.NewMovingAverage(window, dt)
}

// TopGear is the highest forward gear.
func (s CarSpecification) TopGear() Gear { return Gear(len(s.ForwardGearRatios) - 1) }

// TotalDriveRatio is gear ratio × final drive, zero in neutral.
func (s CarSpecification) TotalDriveRatio(g Gear) float64 {
	switch {
	case g == Reverse:
		return s.ReverseGearRatio * s.FinalDriveRatio
	case g == Neutral:
		return 0
	case g > Neutral && int(g) < len(s.ForwardGearRatios):
		return s.ForwardGearRatios[g] * s.FinalDriveRatio
	}
	return 0
}

// Model is a validated CarSpecification with its torque curve prepared for lookup.
// It is immutable and may be shared between vehicles of the same model.
type Model struct {
	Spec  CarSpecification
	curve *TorqueCurve
}

// NewModel validates spec and prepares it for simulation.
func NewModel(spec CarSpecification) (*Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("car %q: %w", spec.Name, err)
	}
	curve, err := NewTorqueCurve(spec.TorqueCurve)
	if err != nil {
		return nil, fmt.Errorf("car %q: %w", spec.Name, err)
	}
	return &Model{Spec: spec, curve: curve}, nil
}

// MaxTorque is the full-throttle combustion torque at rpm.
func (m *Model) MaxTorque(rpm float64) float64 { return m.curve.Torque(rpm) }
