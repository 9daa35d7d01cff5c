package translations

var english = map[string]string{
	"station":      "Fuel station",
	"best_price":   "Best price",
	"km_away":      "km away",
	"fuel_benzina": "Petrol",
	"fuel_diesel":  "Diesel",
	"fuel_gpl":     "LPG",
	"fuel_metano":  "CNG",
	"no_results":   "No fuel stations found. Try widening the search radius.",
	"searching":    "Searching...",
}
