// Package scenario decodes scenario files into model records, resolves
// presets and builds the live bodies and detectors a simulation runs.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/model"
)

var (
	// ErrUnknownPreset is returned when a record names a preset that does
	// not exist.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrInvalidScenario is returned for structurally valid documents that
	// describe something that cannot be built.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Load decodes a YAML scenario from r. JSON is accepted as YAML. Unknown
// fields are rejected so that typos fail loudly.
func Load(r io.Reader) (*model.Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc model.Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := Validate(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) (*model.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	defer f.Close()

	sc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Validate checks what can be checked without building: IDs, preset names
// and guidance law names.
func Validate(sc *model.Scenario) error {
	if sc.Duration < 0 || sc.Tick < 0 {
		return fmt.Errorf("%w: negative duration or tick", ErrInvalidScenario)
	}

	seen := make(map[string]bool)
	claim := func(kind, id, preset string) error {
		if id == "" {
			id = preset
		}
		if id == "" {
			return fmt.Errorf("%w: %s without id", ErrInvalidScenario, kind)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidScenario, id)
		}
		seen[id] = true
		return nil
	}

	for _, b := range sc.Ballistic {
		if err := claim("ballistic", b.ID, b.Preset); err != nil {
			return err
		}
		if err := checkPreset(ballisticPresets, "ballistic", b.Preset); err != nil {
			return err
		}
		if err := checkSite(b.Site); err != nil {
			return err
		}
	}
	for _, m := range sc.MultiStage {
		if err := claim("multistage", m.ID, m.Preset); err != nil {
			return err
		}
		if err := checkPreset(multiStagePresets, "multistage", m.Preset); err != nil {
			return err
		}
		if err := checkSite(m.Site); err != nil {
			return err
		}
	}
	for _, c := range sc.Cruise {
		if err := claim("cruise", c.ID, c.Preset); err != nil {
			return err
		}
		if err := checkPreset(cruisePresets, "cruise", c.Preset); err != nil {
			return err
		}
		if err := checkGuidance(c.Guidance); err != nil {
			return err
		}
	}
	for _, d := range sc.Detectors {
		if err := claim("detector", d.ID, ""); err != nil {
			return err
		}
		if d.DetectionRadius <= 0 {
			return fmt.Errorf("%w: detector %q needs a positive detection_radius", ErrInvalidScenario, d.ID)
		}
		if err := checkSite(d.Site); err != nil {
			return err
		}
		if d.Interceptor != nil {
			if err := checkPreset(interceptorPresets, "interceptor", d.Interceptor.Preset); err != nil {
				return err
			}
			if err := checkGuidance(d.Interceptor.Guidance); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPreset[V any](presets map[string]V, kind, name string) error {
	if name == "" {
		return nil
	}
	if _, ok := presets[name]; !ok {
		return fmt.Errorf("%w: %s %q", ErrUnknownPreset, kind, name)
	}
	return nil
}

func checkSite(s model.SiteSpec) error {
	if s.Orbital() || s.Position != nil {
		return nil
	}
	return checkPreset(sites, "site", s.Preset)
}

func checkGuidance(g *model.GuidanceSpec) error {
	if g == nil || g.Law == "" {
		return nil
	}
	if _, err := guidance.ParseKind(g.Law); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}
