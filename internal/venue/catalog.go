package venue

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the full set of venue definitions.
type Catalog struct {
	Venues []*Definition `yaml:"venues"`
}

// Load reads a catalog from a YAML file, or from every *.yaml and *.yml
// file in a directory.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading venues: %w", err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading venues: %w", err)
		}
		return Parse(data)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("listing venues: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	merged := &Catalog{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading venues: %w", err)
		}
		part, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		merged.Venues = append(merged.Venues, part.Venues...)
	}
	if err := merged.normalize(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing venues: %w", err)
	}
	return &c, nil
}

// normalize fills derived fields and validates every definition.
func (c *Catalog) normalize() error {
	seen := make(map[string]bool, len(c.Venues))
	for i, d := range c.Venues {
		if d == nil {
			return fmt.Errorf("venues[%d]: empty definition", i)
		}
		d.Name = strings.TrimSpace(d.Name)
		if d.Place.Name == "" {
			d.Place.Name = d.Name
		}
		if d.Key == "" {
			d.Key = Slug(d.Name)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("venues[%d]: %w", i, err)
		}
		if seen[d.Key] {
			return fmt.Errorf("venues[%d]: duplicate key %q", i, d.Key)
		}
		seen[d.Key] = true
	}
	return nil
}

// Enabled returns every definition not marked disabled.
func (c *Catalog) Enabled() []*Definition {
	out := make([]*Definition, 0, len(c.Venues))
	for _, d := range c.Venues {
		if !d.Disabled {
			out = append(out, d)
		}
	}
	return out
}

// Find returns the named venues in argument order. With no names it returns
// every enabled venue. Naming a disabled venue selects it anyway.
func (c *Catalog) Find(names ...string) ([]*Definition, error) {
	if len(names) == 0 {
		return c.Enabled(), nil
	}
	out := make([]*Definition, 0, len(names))
	for _, name := range names {
		d := c.lookup(name)
		if d == nil {
			return nil, fmt.Errorf("unknown venue %q", name)
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Catalog) lookup(name string) *Definition {
	for _, d := range c.Venues {
		if d.Matches(name) {
			return d
		}
	}
	return nil
}

// ByCity filters defs to venues in city, case-insensitively.
func ByCity(defs []*Definition, city string) []*Definition {
	if city == "" {
		return defs
	}
	out := make([]*Definition, 0, len(defs))
	for _, d := range defs {
		if strings.EqualFold(d.City(), strings.TrimSpace(city)) {
			out = append(out, d)
		}
	}
	return out
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a venue name to a lookup key.
func Slug(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
