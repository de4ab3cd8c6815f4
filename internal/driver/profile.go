// Package driver turns a target speed and direction into pedal, gearshift,
// ignition and steering-wheel positions, the way a person at the wheel would.
//
// A Controller decides where to go (player input, a timed schedule, or the
// traffic navigator); a Driver composes it with the StateMachine that works the
// pedals and gearbox and the Steering controller that holds the lane.
package driver

import (
	"errors"
	"fmt"

	"github.com/cxd309/esprit-sim/internal/units"
)

// Profile is the driving style. Speeds are m/s, pedal speeds are pedal travel
// per second and angles are degrees.
type Profile struct {
	NormalPedalSpeed    float64 `json:"normal_pedal_speed" yaml:"normal_pedal_speed"`
	ShiftingPedalSpeed  float64 `json:"shifting_pedal_speed" yaml:"shifting_pedal_speed"`
	MovingOffPedalSpeed float64 `json:"moving_off_pedal_speed" yaml:"moving_off_pedal_speed"`
	BrakePressSpeed     float64 `json:"brake_press_speed" yaml:"brake_press_speed"`
	BrakeReleaseSpeed   float64 `json:"brake_release_speed" yaml:"brake_release_speed"`

	// AcceleratorChangeRate is pedal travel per second per m/s² of
	// acceleration error while Driving.
	AcceleratorChangeRate     float64 `json:"accelerator_change_rate" yaml:"accelerator_change_rate"`
	SpeedEqualizationDuration float64 `json:"speed_equalization_duration" yaml:"speed_equalization_duration"`
	MinBrakingSpeedDifference float64 `json:"min_braking_speed_difference" yaml:"min_braking_speed_difference"`
	MaxBrakingSpeedDifference float64 `json:"max_braking_speed_difference" yaml:"max_braking_speed_difference"`

	UpshiftRPM              float64 `json:"upshift_rpm" yaml:"upshift_rpm"`
	UpshiftRPMCloseToTarget float64 `json:"upshift_rpm_close_to_target" yaml:"upshift_rpm_close_to_target"`
	DownshiftRPM            float64 `json:"downshift_rpm" yaml:"downshift_rpm"`
	CloseSpeedDifference    float64 `json:"close_speed_difference" yaml:"close_speed_difference"`
	ShiftingDuration        float64 `json:"shifting_duration" yaml:"shifting_duration"`
	MaxIdlingDuration       float64 `json:"max_idling_duration" yaml:"max_idling_duration"`

	SteeringSpeed               float64 `json:"steering_speed" yaml:"steering_speed"`
	SteeringLimitHalvingSpeed   float64 `json:"steering_limit_halving_speed" yaml:"steering_limit_halving_speed"`
	MaxStraightSteeringAngleDeg float64 `json:"max_straight_steering_angle_deg" yaml:"max_straight_steering_angle_deg"`
	LateralEqualizationDuration float64 `json:"lateral_equalization_duration" yaml:"lateral_equalization_duration"`
	StraightHeadingToleranceDeg float64 `json:"straight_heading_tolerance_deg" yaml:"straight_heading_tolerance_deg"`
	DirectionToleranceDeg       float64 `json:"direction_tolerance_deg" yaml:"direction_tolerance_deg"`
}

// DefaultProfile returns a calm, competent driver.
func DefaultProfile() Profile {
	return Profile{
		NormalPedalSpeed:    2,
		ShiftingPedalSpeed:  5,
		MovingOffPedalSpeed: 1.5,
		BrakePressSpeed:     1.5,
		BrakeReleaseSpeed:   4,

		AcceleratorChangeRate:     0.3,
		SpeedEqualizationDuration: 4,
		MinBrakingSpeedDifference: units.MPH(2),
		MaxBrakingSpeedDifference: units.MPH(10),

		UpshiftRPM:              5500,
		UpshiftRPMCloseToTarget: 3000,
		DownshiftRPM:            1500,
		CloseSpeedDifference:    units.MPH(5),
		ShiftingDuration:        0.3,
		MaxIdlingDuration:       10,

		SteeringSpeed:               2,
		SteeringLimitHalvingSpeed:   10,
		MaxStraightSteeringAngleDeg: 20,
		LateralEqualizationDuration: 2,
		StraightHeadingToleranceDeg: 10,
		DirectionToleranceDeg:       5,
	}
}

// Validate checks that every rate and duration is positive and that the
// braking and shifting windows are ordered.
func (p Profile) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"normal_pedal_speed", p.NormalPedalSpeed},
		{"shifting_pedal_speed", p.ShiftingPedalSpeed},
		{"moving_off_pedal_speed", p.MovingOffPedalSpeed},
		{"brake_press_speed", p.BrakePressSpeed},
		{"brake_release_speed", p.BrakeReleaseSpeed},
		{"accelerator_change_rate", p.AcceleratorChangeRate},
		{"speed_equalization_duration", p.SpeedEqualizationDuration},
		{"max_braking_speed_difference", p.MaxBrakingSpeedDifference},
		{"upshift_rpm", p.UpshiftRPM},
		{"upshift_rpm_close_to_target", p.UpshiftRPMCloseToTarget},
		{"downshift_rpm", p.DownshiftRPM},
		{"shifting_duration", p.ShiftingDuration},
		{"max_idling_duration", p.MaxIdlingDuration},
		{"steering_speed", p.SteeringSpeed},
		{"steering_limit_halving_speed", p.SteeringLimitHalvingSpeed},
		{"max_straight_steering_angle_deg", p.MaxStraightSteeringAngleDeg},
		{"lateral_equalization_duration", p.LateralEqualizationDuration},
		{"straight_heading_tolerance_deg", p.StraightHeadingToleranceDeg},
		{"direction_tolerance_deg", p.DirectionToleranceDeg},
	}
	var errs []error
	for _, f := range positive {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.v))
		}
	}
	if p.MinBrakingSpeedDifference < 0 || p.MinBrakingSpeedDifference >= p.MaxBrakingSpeedDifference {
		errs = append(errs, fmt.Errorf("min_braking_speed_difference must be in [0, %v), got %v",
			p.MaxBrakingSpeedDifference, p.MinBrakingSpeedDifference))
	}
	if p.DownshiftRPM >= p.UpshiftRPMCloseToTarget || p.UpshiftRPMCloseToTarget > p.UpshiftRPM {
		errs = append(errs, errors.New("shift points must satisfy downshift < upshift close to target <= upshift"))
	}
	return errors.Join(errs...)
}
