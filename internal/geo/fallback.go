package geo

// fallbackCoords holds coordinates for the largest Italian cities, used when
// the geocoding provider stays unreachable after retries. Keys are
// normalized city names.
var fallbackCoords = map[string]Point{
	"roma":    {Latitude: 41.8933, Longitude: 12.4829},
	"milano":  {Latitude: 45.4641, Longitude: 9.1896},
	"napoli":  {Latitude: 40.8522, Longitude: 14.2681},
	"torino":  {Latitude: 45.0677, Longitude: 7.6825},
	"palermo": {Latitude: 38.1113, Longitude: 13.3524},
	"genova":  {Latitude: 44.4072, Longitude: 8.9339},
	"bologna": {Latitude: 44.4938, Longitude: 11.3426},
	"firenze": {Latitude: 43.7700, Longitude: 11.2577},
	"bari":    {Latitude: 41.1258, Longitude: 16.8620},
	"venezia": {Latitude: 45.4371, Longitude: 12.3327},
}
