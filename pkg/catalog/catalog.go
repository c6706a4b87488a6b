package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry describes one instance type from the reference catalog
type Entry struct {
	InstanceType string  `yaml:"instance_type"`
	VCPU         int     `yaml:"vcpu"`
	MemoryGB     float64 `yaml:"memory_gb"`
	HourlyPrice  float64 `yaml:"hourly_price"`
	Family       string  `yaml:"family"`
}

// Catalog is read-only instance-type reference data. It is the only external
// knowledge the classifier needs to pick a target type.
type Catalog struct {
	entries  map[string]Entry
	families map[string][]Entry
}

type catalogFile struct {
	Instances []Entry `yaml:"instances"`
}

// New builds a catalog from entries. An empty catalog is a configuration
// error: nothing downstream can function without reference data.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("instance catalog is empty")
	}

	c := &Catalog{
		entries:  make(map[string]Entry, len(entries)),
		families: make(map[string][]Entry),
	}

	for _, e := range entries {
		if e.InstanceType == "" {
			return nil, fmt.Errorf("catalog entry with empty instance type")
		}
		if _, exists := c.entries[e.InstanceType]; exists {
			return nil, fmt.Errorf("duplicate catalog entry: %s", e.InstanceType)
		}
		c.entries[e.InstanceType] = e
		c.families[e.Family] = append(c.families[e.Family], e)
	}

	// Keep family members ordered smallest to largest so selection can walk
	// capacity in one direction.
	for family := range c.families {
		members := c.families[family]
		sort.Slice(members, func(i, j int) bool {
			if members[i].VCPU != members[j].VCPU {
				return members[i].VCPU < members[j].VCPU
			}
			return members[i].MemoryGB < members[j].MemoryGB
		})
		c.families[family] = members
	}

	return c, nil
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return New(file.Instances)
}

// Lookup returns the entry for an instance type
func (c *Catalog) Lookup(instanceType string) (Entry, bool) {
	e, ok := c.entries[instanceType]
	return e, ok
}

// Family returns the members of a family ordered smallest to largest
func (c *Catalog) Family(name string) []Entry {
	return c.families[name]
}

// Size returns the number of catalog entries
func (c *Catalog) Size() int {
	return len(c.entries)
}
