package vehicle

import (
	"encoding/json"
	"fmt"

	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/traffic"
)

// ControllerKind selects who makes the driving decisions for a vehicle.
type ControllerKind string

const (
	ControllerTraffic  ControllerKind = "traffic"
	ControllerSchedule ControllerKind = "schedule"
	ControllerPlayer   ControllerKind = "player"
)

// TrafficController configures a traffic.Navigator.
type TrafficController struct {
	Seed        uint64          `json:"seed"`
	Destination *city.GridPoint `json:"destination,omitempty"`
}

// PlayerController configures a scripted player.
type PlayerController struct {
	Settings *driver.PlayerSettings `json:"settings,omitempty"` // nil uses the defaults
	Script   driver.InputScript     `json:"script"`
}

// ControllerSpec is the static description of a vehicle's controller. Exactly one
// of the variant fields is set, matching Kind.
type ControllerSpec struct {
	Kind     ControllerKind
	Traffic  *TrafficController
	Schedule []driver.SpeedStep
	Player   *PlayerController
}

// controllerDisc is the minimum JSON structure needed to read the discriminator.
type controllerDisc struct {
	Type ControllerKind `json:"type"`
}

type scheduleJSON struct {
	Type  ControllerKind     `json:"type"`
	Steps []driver.SpeedStep `json:"steps"`
}

// UnmarshalJSON implements json.Unmarshaler for ControllerSpec. The "type" key
// selects the variant; the other keys of the object belong to that variant.
//
// Supported types:
//   - "traffic": {"seed", "destination"}
//   - "schedule": {"steps": [{"at", "speed"}]}
//   - "player": {"settings", "script": [{"at", "input"}]}
func (c *ControllerSpec) UnmarshalJSON(data []byte) error {
	var disc controllerDisc
	if err := json.Unmarshal(data, &disc); err != nil {
		return fmt.Errorf("reading controller type: %w", err)
	}
	*c = ControllerSpec{Kind: disc.Type}

	switch disc.Type {
	case ControllerTraffic:
		var t TrafficController
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("parsing traffic controller: %w", err)
		}
		c.Traffic = &t
	case ControllerSchedule:
		var s scheduleJSON
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parsing schedule controller: %w", err)
		}
		if len(s.Steps) == 0 {
			return fmt.Errorf("schedule controller has no steps")
		}
		c.Schedule = s.Steps
	case ControllerPlayer:
		var p PlayerController
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing player controller: %w", err)
		}
		c.Player = &p
	case "":
		return fmt.Errorf("controller is missing \"type\"")
	default:
		return fmt.Errorf("unknown controller type %q", disc.Type)
	}
	return nil
}

// MarshalJSON implements json.Marshaler, writing the same shape UnmarshalJSON reads.
func (c ControllerSpec) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ControllerTraffic:
		t := TrafficController{}
		if c.Traffic != nil {
			t = *c.Traffic
		}
		return json.Marshal(struct {
			Type ControllerKind `json:"type"`
			TrafficController
		}{c.Kind, t})
	case ControllerSchedule:
		return json.Marshal(scheduleJSON{Type: c.Kind, Steps: c.Schedule})
	case ControllerPlayer:
		p := PlayerController{}
		if c.Player != nil {
			p = *c.Player
		}
		return json.Marshal(struct {
			Type ControllerKind `json:"type"`
			PlayerController
		}{c.Kind, p})
	}
	return nil, fmt.Errorf("unknown controller type %q", c.Kind)
}

// Build returns a fresh controller for the spec. Traffic navigators use tp.
func (c ControllerSpec) Build(tp traffic.Profile) (driver.Controller, error) {
	switch c.Kind {
	case ControllerTraffic:
		var t TrafficController
		if c.Traffic != nil {
			t = *c.Traffic
		}
		nav := traffic.NewNavigator(tp, t.Seed)
		if t.Destination != nil {
			nav.SetDestination(*t.Destination)
		}
		return nav, nil
	case ControllerSchedule:
		return driver.NewScheduleController(c.Schedule), nil
	case ControllerPlayer:
		settings := driver.DefaultPlayerSettings()
		var script driver.InputScript
		if c.Player != nil {
			if c.Player.Settings != nil {
				settings = *c.Player.Settings
			}
			script = c.Player.Script
		}
		return driver.NewPlayerController(settings, script), nil
	}
	return nil, fmt.Errorf("unknown controller type %q", c.Kind)
}
