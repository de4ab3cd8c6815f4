// Package traffic is the controller for computer-driven cars. A Navigator picks
// an exit at every intersection, keeps to the lane its next maneuver needs,
// follows an arc through the intersection, and throttles against whatever its
// forward ray finds ahead.
package traffic

import (
	"errors"
	"fmt"

	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/units"
)

// Profile tunes the navigator. Distances are metres, speeds m/s, times seconds.
type Profile struct {
	// SafeDistanceTime is how long it should take to reach the point where the
	// car ahead is now.
	SafeDistanceTime float64 `json:"safe_distance_time" yaml:"safe_distance_time"`
	MinSafeDistance  float64 `json:"min_safe_distance" yaml:"min_safe_distance"`
	// SpeedMatchingSafeDistanceFactor is the multiple of the safe distance at
	// which the obstacle's speed is matched exactly.
	SpeedMatchingSafeDistanceFactor  float64 `json:"speed_matching_safe_distance_factor" yaml:"speed_matching_safe_distance_factor"`
	MinimumRecognizableObstacleSpeed float64 `json:"minimum_recognizable_obstacle_speed" yaml:"minimum_recognizable_obstacle_speed"`
	MinimumMovingAwayRelativeSpeed   float64 `json:"minimum_moving_away_relative_speed" yaml:"minimum_moving_away_relative_speed"`
	MaxSensingDistance               float64 `json:"max_sensing_distance" yaml:"max_sensing_distance"`
	DistanceSmoothTime               float64 `json:"distance_smooth_time" yaml:"distance_smooth_time"`
	ObstacleSpeedSmoothTime          float64 `json:"obstacle_speed_smooth_time" yaml:"obstacle_speed_smooth_time"`

	// LaneSpeedsMPH is the cruising speed per lane, sidewalk first. Lanes past
	// the end use the last entry.
	LaneSpeedsMPH       [4]float64 `json:"lane_speeds_mph" yaml:"lane_speeds_mph"`
	TurnSpeed           float64    `json:"turn_speed" yaml:"turn_speed"`
	ComfortDeceleration float64    `json:"comfort_deceleration" yaml:"comfort_deceleration"`

	LaneChangeMinDistance  float64 `json:"lane_change_min_distance" yaml:"lane_change_min_distance"`
	LaneChangeBehindFactor float64 `json:"lane_change_behind_factor" yaml:"lane_change_behind_factor"`
	LaneTolerance          float64 `json:"lane_tolerance" yaml:"lane_tolerance"`
	SignalDistance         float64 `json:"signal_distance" yaml:"signal_distance"`
	YieldScanDistance      float64 `json:"yield_scan_distance" yaml:"yield_scan_distance"`
	StopLineDwell          float64 `json:"stop_line_dwell" yaml:"stop_line_dwell"`
	PathLookahead          float64 `json:"path_lookahead" yaml:"path_lookahead"`
}

// DefaultProfile returns the tuning the city's traffic ships with.
func DefaultProfile() Profile {
	return Profile{
		SafeDistanceTime:                 2,
		MinSafeDistance:                  5,
		SpeedMatchingSafeDistanceFactor:  2,
		MinimumRecognizableObstacleSpeed: 0.5,
		MinimumMovingAwayRelativeSpeed:   1,
		MaxSensingDistance:               50,
		DistanceSmoothTime:               0.5,
		ObstacleSpeedSmoothTime:          0.5,

		LaneSpeedsMPH:       [4]float64{5, 20, 25, 30},
		TurnSpeed:           units.MPH(10),
		ComfortDeceleration: 3,

		LaneChangeMinDistance:  20,
		LaneChangeBehindFactor: 0.5,
		LaneTolerance:          0.5,
		SignalDistance:         30,
		YieldScanDistance:      40,
		StopLineDwell:          1,
		PathLookahead:          4,
	}
}

// LaneSpeed returns the cruising speed in m/s for a lane.
func (p Profile) LaneSpeed(lane int) float64 {
	lane = min(max(lane, 0), len(p.LaneSpeedsMPH)-1)
	return units.MPH(p.LaneSpeedsMPH[lane])
}

// SafeDistance returns the following gap to keep at speed.
func (p Profile) SafeDistance(speed float64) float64 {
	return kinematics.SafeDistance(speed, p.SafeDistanceTime, p.MinSafeDistance)
}

// Validate reports every field out of range.
func (p Profile) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"min_safe_distance", p.MinSafeDistance},
		{"max_sensing_distance", p.MaxSensingDistance},
		{"distance_smooth_time", p.DistanceSmoothTime},
		{"obstacle_speed_smooth_time", p.ObstacleSpeedSmoothTime},
		{"turn_speed", p.TurnSpeed},
		{"comfort_deceleration", p.ComfortDeceleration},
		{"lane_tolerance", p.LaneTolerance},
		{"path_lookahead", p.PathLookahead},
	}
	var errs []error
	for _, f := range positive {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.v))
		}
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"safe_distance_time", p.SafeDistanceTime},
		{"minimum_recognizable_obstacle_speed", p.MinimumRecognizableObstacleSpeed},
		{"minimum_moving_away_relative_speed", p.MinimumMovingAwayRelativeSpeed},
		{"lane_change_min_distance", p.LaneChangeMinDistance},
		{"lane_change_behind_factor", p.LaneChangeBehindFactor},
		{"signal_distance", p.SignalDistance},
		{"yield_scan_distance", p.YieldScanDistance},
		{"stop_line_dwell", p.StopLineDwell},
	}
	for _, f := range nonNegative {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", f.name, f.v))
		}
	}
	if p.SpeedMatchingSafeDistanceFactor < 1 {
		errs = append(errs, fmt.Errorf("speed_matching_safe_distance_factor must be at least 1, got %v",
			p.SpeedMatchingSafeDistanceFactor))
	}
	if p.MinSafeDistance*p.SpeedMatchingSafeDistanceFactor >= p.MaxSensingDistance {
		errs = append(errs, errors.New("matching distance must be shorter than max_sensing_distance"))
	}
	for i, mph := range p.LaneSpeedsMPH {
		if mph <= 0 {
			errs = append(errs, fmt.Errorf("lane_speeds_mph[%d] must be positive, got %v", i, mph))
		}
	}
	return errors.Join(errs...)
}
