// Package config loads the car, driver and traffic tuning records from JSON or
// YAML files. Fields omitted from a file keep their built-in defaults, so
// partial files are safe.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/traffic"
)

// maxFileSize caps how much of a config file is read.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// LoadCarSpecification loads a car over powertrain.DefaultSpecification. A
// torque curve or gear list in the file replaces the default one outright.
func LoadCarSpecification(path string) (powertrain.CarSpecification, error) {
	spec := powertrain.DefaultSpecification()
	spec.TorqueCurve = nil
	spec.ForwardGearRatios = nil
	if err := load(path, &spec); err != nil {
		return powertrain.CarSpecification{}, err
	}
	def := powertrain.DefaultSpecification()
	if spec.TorqueCurve == nil {
		spec.TorqueCurve = def.TorqueCurve
	}
	if spec.ForwardGearRatios == nil {
		spec.ForwardGearRatios = def.ForwardGearRatios
	}
	if err := spec.Validate(); err != nil {
		return powertrain.CarSpecification{}, fmt.Errorf("invalid car specification: %w", err)
	}
	return spec, nil
}

// LoadDriverProfile loads a driver profile over driver.DefaultProfile.
func LoadDriverProfile(path string) (driver.Profile, error) {
	p := driver.DefaultProfile()
	if err := load(path, &p); err != nil {
		return driver.Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return driver.Profile{}, fmt.Errorf("invalid driver profile: %w", err)
	}
	return p, nil
}

// LoadTrafficProfile loads a traffic profile over traffic.DefaultProfile.
func LoadTrafficProfile(path string) (traffic.Profile, error) {
	p := traffic.DefaultProfile()
	if err := load(path, &p); err != nil {
		return traffic.Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return traffic.Profile{}, fmt.Errorf("invalid traffic profile: %w", err)
	}
	return p, nil
}

// load decodes the file at path into dst, choosing the format by extension.
// Unknown keys are rejected so a misspelt field never silently keeps its
// default.
func load(path string, dst any) error {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("failed to parse config JSON: %w", err)
		}
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}
