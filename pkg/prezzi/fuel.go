package prezzi

import (
	"fmt"
	"strings"
)

// FuelType is a user-facing fuel category.
type FuelType string

const (
	FuelBenzina FuelType = "benzina"
	FuelDiesel  FuelType = "diesel"
	FuelGPL     FuelType = "gpl"
	FuelMetano  FuelType = "metano"
)

// FuelTypes lists every supported fuel in display order.
func FuelTypes() []FuelType {
	return []FuelType{FuelBenzina, FuelDiesel, FuelGPL, FuelMetano}
}

// ParseFuelType validates a user-supplied fuel name.
func ParseFuelType(s string) (FuelType, error) {
	switch FuelType(strings.ToLower(strings.TrimSpace(s))) {
	case FuelBenzina:
		return FuelBenzina, nil
	case FuelDiesel:
		return FuelDiesel, nil
	case FuelGPL:
		return FuelGPL, nil
	case FuelMetano:
		return FuelMetano, nil
	}
	return "", fmt.Errorf("unknown fuel type: %q", s)
}

// APIName maps a fuel type to the vocabulary the provider expects.
func (f FuelType) APIName() string {
	switch f {
	case FuelDiesel:
		return "gasolio"
	case FuelGPL:
		return "GPL"
	default:
		return string(f)
	}
}

func (f FuelType) String() string {
	return string(f)
}
