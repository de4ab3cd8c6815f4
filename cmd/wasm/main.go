//go:build js && wasm

// Command wasm exposes the simulator to the browser via WebAssembly.
// After loading, it registers two global JavaScript functions:
//
//	runSimulation(jsonString) -> jsonString
//	defaultTuning() -> jsonString
//
// runSimulation takes a SimulationInput and returns a SimulationLog, the same
// contract as the esprit command. defaultTuning returns the built-in car,
// driver and traffic settings so a page can offer them for editing.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/engine"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/traffic"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("defaultTuning", js.FuncOf(defaultTuning))
	select {} // keep the module alive until the page is closed
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := engine.RunJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}

func defaultTuning(_ js.Value, _ []js.Value) any {
	out, err := json.Marshal(struct {
		Car     powertrain.CarSpecification `json:"car"`
		Profile driver.Profile              `json:"profile"`
		Traffic traffic.Profile             `json:"traffic_profile"`
	}{powertrain.DefaultSpecification(), driver.DefaultProfile(), traffic.DefaultProfile()})
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(out)
}
