package main

const unknownProperty = "Unknown"

// defaultProperties maps asset folder names to the property they hold
// photos for.
var defaultProperties = map[string]string{
	"Sky Lounge":                 "Penthouse Sky Lounge",
	"Photos Bandra Cottage":      "Heritage Garden Cottage",
	"Little White Bandra Studio": "Studio Bandra",
	"Bandra Art House":           "Art Loft Bandra",
	"City Zen":                   "Zen Suite",
	"India House":                "India House",
}

type PropertyMap map[string]string

// NewPropertyMap returns the default table with overrides applied on top.
// Blank override values are ignored.
func NewPropertyMap(overrides map[string]string) PropertyMap {
	m := make(PropertyMap, len(defaultProperties)+len(overrides))
	for k, v := range defaultProperties {
		m[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// Lookup returns the property label for folder and whether it was mapped.
func (m PropertyMap) Lookup(folder string) (string, bool) {
	name, ok := m[folder]
	return name, ok
}

// Name returns the property label for folder, or "Unknown".
func (m PropertyMap) Name(folder string) string {
	if name, ok := m[folder]; ok {
		return name
	}
	return unknownProperty
}
