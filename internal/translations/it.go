package translations

// italian is the default label table.
var italian = map[string]string{
	"station":      "Distributore",
	"best_price":   "Miglior prezzo",
	"km_away":      "km di distanza",
	"fuel_benzina": "Benzina",
	"fuel_diesel":  "Diesel",
	"fuel_gpl":     "GPL",
	"fuel_metano":  "Metano",
	"no_results":   "Nessun distributore trovato. Prova ad allargare il raggio di ricerca.",
	"searching":    "Ricerca in corso...",
}
