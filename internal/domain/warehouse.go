package domain

import "strings"

// Warehouse identifies a stocking location. Orders and stock queries are
// scoped to one.
type Warehouse string

// Home is the default location used by single-location items.
const Home Warehouse = "home"

// ParseWarehouse normalizes a location token. Empty input resolves to Home.
func ParseWarehouse(s string) Warehouse {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Home
	}
	return Warehouse(s)
}

func (w Warehouse) String() string {
	if w == "" {
		return string(Home)
	}
	return string(w)
}
