// Package prezzi provides a typed client for the fuel price provider,
// which returns stations with per-fuel price quotes around a coordinate.
package prezzi

import (
	"strconv"
	"strings"
)

// StationRecord represents a single fuel station as returned by the provider.
// Coordinates and prices arrive as strings and may use comma decimals.
type StationRecord struct {
	ID          string      `json:"id"`
	Gestore     string      `json:"gestore,omitempty"`
	Indirizzo   string      `json:"indirizzo"`
	Latitudine  string      `json:"latitudine"`
	Longitudine string      `json:"longitudine"`
	Carburanti  []FuelQuote `json:"carburanti"`
}

// FuelQuote is one fuel/price pair on a station record.
type FuelQuote struct {
	Tipo   string `json:"tipo"`
	Prezzo string `json:"prezzo"`
}

// QuoteFor returns the raw price string for a provider fuel name.
func (r StationRecord) QuoteFor(apiName string) (string, bool) {
	for _, q := range r.Carburanti {
		if strings.EqualFold(q.Tipo, apiName) {
			return q.Prezzo, true
		}
	}
	return "", false
}

// ParseDecimal parses a decimal string that may use a comma separator.
func ParseDecimal(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return m, nil
}
