package universe

import (
	"fmt"
	"os"

	"github.com/aristath/tradepath/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// Catalog is the set of instruments selection draws from
type Catalog struct {
	Instruments []Instrument `yaml:"instruments"`
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Instruments) == 0 {
		return nil, fmt.Errorf("catalog has no instruments")
	}

	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if seen[inst.Symbol] {
			return nil, fmt.Errorf("duplicate instrument %s", inst.Symbol)
		}
		seen[inst.Symbol] = true
	}
	return &c, nil
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = embedded.UniverseCatalog()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Lookup finds the catalog entry for symbol
func (c *Catalog) Lookup(symbol string) (Instrument, bool) {
	for _, inst := range c.Instruments {
		if inst.Symbol == symbol {
			return inst, true
		}
	}
	return Instrument{}, false
}

// Filter returns the instruments eligible for a period.
// Short and long periods take their own class; anything else takes the whole catalog.
func (c *Catalog) Filter(period Classification) []Instrument {
	if period != ClassShort && period != ClassLong {
		return append([]Instrument(nil), c.Instruments...)
	}
	var out []Instrument
	for _, inst := range c.Instruments {
		if inst.Type == period {
			out = append(out, inst)
		}
	}
	return out
}
