package config

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Scenario describes how a named session is prepared. Every field is
// optional; Hook defaults to the scenario name when a hooks file is
// configured.
type Scenario struct {
	Device       string    `yaml:"device"`
	BaseURL      string    `yaml:"base_url"`
	StorageState string    `yaml:"storage_state"`
	Hook         string    `yaml:"hook"`
	Headless     *bool     `yaml:"headless"`
	Viewport     *Viewport `yaml:"viewport"`
}

// ScenarioCatalog is the set of scenarios loaded from YAML:
//
//	scenarios:
//	  mobile-checkout:
//	    device: iPhone 13
//	    base_url: https://shop.example.com
//	    hook: MobileCheckout
type ScenarioCatalog struct {
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a catalog file. An empty path yields an empty catalog.
func LoadScenarios(path string) (*ScenarioCatalog, error) {
	if path == "" {
		return &ScenarioCatalog{Scenarios: map[string]Scenario{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios file: %w", err)
	}
	c, err := ParseScenarios(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseScenarios decodes and validates a catalog.
func ParseScenarios(raw []byte) (*ScenarioCatalog, error) {
	var c ScenarioCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}
	if c.Scenarios == nil {
		c.Scenarios = map[string]Scenario{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every scenario.
func (c *ScenarioCatalog) Validate() error {
	var err error
	for _, name := range c.Names() {
		s := c.Scenarios[name]
		if s.Viewport != nil && (s.Viewport.Width <= 0 || s.Viewport.Height <= 0) {
			err = multierr.Append(err, fmt.Errorf("scenario %s: viewport must be positive, got %dx%d", name, s.Viewport.Width, s.Viewport.Height))
		}
	}
	return err
}

// Lookup returns the scenario called name.
func (c *ScenarioCatalog) Lookup(name string) (Scenario, bool) {
	if c == nil {
		return Scenario{}, false
	}
	s, ok := c.Scenarios[name]
	return s, ok
}

// Names returns the scenario names, sorted.
func (c *ScenarioCatalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Scenarios))
	for n := range c.Scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
