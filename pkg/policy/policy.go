// Package policy holds the per-region road policy data used during
// resolution: priority tiers, the drivable class set, and fallback speed
// limits for untagged roads. A Policy is immutable after construction and
// safe for unsynchronized concurrent reads.
package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a region policy file
type File struct {
	Tiers       [][]string         `yaml:"tiers"`
	Drivable    []string           `yaml:"drivable"`
	FallbackKMH map[string]float64 `yaml:"fallback_kmh"`
}

// Policy is a compiled region policy. Tiers are ordered highest priority
// first; each tier is a set of mutually-exclusive road classes.
type Policy struct {
	tiers    []map[string]bool
	drivable map[string]bool
	fallback map[string]float64
}

// New compiles a policy from raw table data
func New(f File) *Policy {
	p := &Policy{
		tiers:    make([]map[string]bool, 0, len(f.Tiers)),
		drivable: make(map[string]bool, len(f.Drivable)),
		fallback: make(map[string]float64, len(f.FallbackKMH)),
	}
	for _, tier := range f.Tiers {
		set := make(map[string]bool, len(tier))
		for _, class := range tier {
			set[class] = true
		}
		p.tiers = append(p.tiers, set)
	}
	for _, class := range f.Drivable {
		p.drivable[class] = true
	}
	for class, kmh := range f.FallbackKMH {
		p.fallback[class] = kmh
	}
	return p
}

// FromYAML reads a region policy from YAML
func FromYAML(r io.Reader) (*Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if len(f.Tiers) == 0 && len(f.Drivable) == 0 && len(f.FallbackKMH) == 0 {
		return nil, fmt.Errorf("policy file defines no tables")
	}
	return New(f), nil
}

// LoadFile reads a region policy from a YAML file
func LoadFile(path string) (*Policy, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer file.Close()
	return FromYAML(file)
}

// Tiers returns the priority tiers, highest first. The returned sets are
// shared; callers must not mutate them.
func (p *Policy) Tiers() []map[string]bool {
	return p.tiers
}

// Drivable returns the flat set of drivable road classes
func (p *Policy) Drivable() map[string]bool {
	return p.drivable
}

// FallbackSpeed returns the default speed limit in km/h for a road class.
// An unmapped class yields ok=false; that is expected, not an error.
func (p *Policy) FallbackSpeed(class string) (float64, bool) {
	kmh, ok := p.fallback[class]
	return kmh, ok
}

// Denmark returns the built-in Danish policy: motorway-first priority tiers
// and national default limits for untagged roads.
func Denmark() *Policy {
	return New(File{
		Tiers: [][]string{
			{"motorway", "motorway_link"},
			{"trunk", "trunk_link"},
			{"primary", "primary_link"},
			{"secondary", "secondary_link"},
			{"tertiary", "tertiary_link"},
			{"unclassified", "residential", "service", "living_street"},
		},
		Drivable: []string{
			"motorway", "trunk", "primary", "secondary", "tertiary",
			"unclassified", "residential", "service", "living_street",
			"motorway_link", "trunk_link", "primary_link", "secondary_link", "tertiary_link",
		},
		FallbackKMH: map[string]float64{
			"motorway":      130,
			"trunk":         110,
			"primary":       80,
			"secondary":     80,
			"tertiary":      80,
			"unclassified":  80,
			"residential":   50,
			"service":       30,
			"living_street": 15,
		},
	})
}
