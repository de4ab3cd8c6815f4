// Package report renders a run log as speed, engine speed and gear traces,
// either as a PNG image or as an interactive HTML page.
package report

import (
	"strconv"

	"github.com/cxd309/esprit-sim/internal/engine"
	"github.com/cxd309/esprit-sim/internal/powertrain"
)

// Trace is one vehicle's dashboard over a run.
type Trace struct {
	VehicleID   string
	Time        []float64 // seconds
	Speed       []float64 // m/s
	TargetSpeed []float64 // m/s
	RPM         []float64
	Gear        []float64 // reverse is -1, neutral 0
}

// Len returns the number of samples.
func (t Trace) Len() int { return len(t.Time) }

// Traces splits a run log into one trace per vehicle, in the order the
// vehicles first appear.
func Traces(log engine.SimulationLog) []Trace {
	index := make(map[string]int)
	var out []Trace
	for _, row := range log.Output {
		for _, v := range row.VehicleLogs {
			i, ok := index[v.ID]
			if !ok {
				i = len(out)
				index[v.ID] = i
				out = append(out, Trace{VehicleID: v.ID})
			}
			tr := &out[i]
			tr.Time = append(tr.Time, row.Timestamp)
			tr.Speed = append(tr.Speed, v.Dashboard.Speed)
			tr.TargetSpeed = append(tr.TargetSpeed, v.TargetSpeed)
			tr.RPM = append(tr.RPM, v.Dashboard.RPM)
			tr.Gear = append(tr.Gear, gearNumber(v.Dashboard.Gear))
		}
	}
	return out
}

func gearNumber(g string) float64 {
	switch g {
	case powertrain.Reverse.String():
		return -1
	case powertrain.Neutral.String():
		return 0
	}
	n, err := strconv.Atoi(g)
	if err != nil {
		return 0
	}
	return float64(n)
}

// metric is one panel of a report.
type metric struct {
	name  string
	unit  string
	value func(Trace) []float64
}

var metrics = []metric{
	{"Speed", "m/s", func(t Trace) []float64 { return t.Speed }},
	{"Engine speed", "rpm", func(t Trace) []float64 { return t.RPM }},
	{"Gear", "", func(t Trace) []float64 { return t.Gear }},
}
