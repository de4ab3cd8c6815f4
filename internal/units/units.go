// Package units holds the physical constants and unit conversions shared by the
// powertrain, chassis and controllers. All simulation quantities are SI unless a
// name says otherwise (RPM, MPH, Deg).
package units

import "math"

const (
	RPMToAngularSpeed = math.Pi / 30 // rev/min -> rad/s
	AngularSpeedToRPM = 30 / math.Pi // rad/s -> rev/min

	MilesPerHourToMetersPerSecond = 0.44704
	MetersPerSecondToMilesPerHour = 1 / MilesPerHourToMetersPerSecond

	AirDensity = 1.225 // kg/m³ at sea level
	Gravity    = 9.81  // m/s²
)

// MPH converts miles per hour to metres per second.
func MPH(v float64) float64 { return v * MilesPerHourToMetersPerSecond }

// ToMPH converts metres per second to miles per hour.
func ToMPH(v float64) float64 { return v * MetersPerSecondToMilesPerHour }

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return deg * math.Pi / 180 }

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return rad * 180 / math.Pi }
