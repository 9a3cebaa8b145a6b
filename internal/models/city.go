package models

import (
	"fmt"
	"sort"
	"strings"
)

// Coordinates is a latitude/longitude pair used for provider lookups.
type Coordinates struct {
	Lat float64
	Lon float64
}

// knownCoordinates maps every city this system can be configured with to its
// geo-coordinates. Cities outside this table cannot be enabled.
var knownCoordinates = map[string]Coordinates{
	"Berlin":    {Lat: 52.5200, Lon: 13.4050},
	"Munich":    {Lat: 48.1351, Lon: 11.5820},
	"Hamburg":   {Lat: 53.5511, Lon: 9.9937},
	"Frankfurt": {Lat: 50.1109, Lon: 8.6821},
	"Cologne":   {Lat: 50.9375, Lon: 6.9603},
}

// CityIndex is the immutable set of configured cities. It is built once at
// startup and injected into every component that needs to validate a city
// name or resolve its coordinates.
type CityIndex struct {
	names  []string
	coords map[string]Coordinates
}

// NewCityIndex builds an index from the configured city names, preserving
// their order. Names without a coordinate entry are rejected.
func NewCityIndex(names []string) (*CityIndex, error) {
	if len(names) == 0 {
		return nil, &ValidationError{
			Field:   "cities",
			Message: "at least one city must be configured",
		}
	}

	idx := &CityIndex{
		names:  make([]string, 0, len(names)),
		coords: make(map[string]Coordinates, len(names)),
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		coords, ok := knownCoordinates[name]
		if !ok {
			return nil, &ValidationError{
				Field:   "cities",
				Value:   name,
				Message: fmt.Sprintf("no coordinates known for city %q; supported cities: %s", name, strings.Join(KnownCities(), ", ")),
			}
		}
		if _, dup := idx.coords[name]; dup {
			continue
		}
		idx.names = append(idx.names, name)
		idx.coords[name] = coords
	}

	if len(idx.names) == 0 {
		return nil, &ValidationError{
			Field:   "cities",
			Message: "at least one city must be configured",
		}
	}

	return idx, nil
}

// Contains reports whether the city is part of the configured set.
func (c *CityIndex) Contains(city string) bool {
	_, ok := c.coords[city]
	return ok
}

// Coordinates returns the geo-coordinates for a configured city.
func (c *CityIndex) Coordinates(city string) (Coordinates, bool) {
	coords, ok := c.coords[city]
	return coords, ok
}

// Names returns the configured city names in configuration order.
func (c *CityIndex) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// KnownCities returns all city names the coordinate table supports, sorted.
func KnownCities() []string {
	out := make([]string, 0, len(knownCoordinates))
	for name := range knownCoordinates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
