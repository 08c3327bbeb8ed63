package models

// GeoResult is the outcome of geocoding a free-text city name. Name is the
// canonical spelling returned by the geocoder and may differ from the input.
type GeoResult struct {
	Latitude    float64
	Longitude   float64
	Name        string
	CountryCode string
}

// AverageWeather is the payload served to clients and stored in the cache.
type AverageWeather struct {
	City                string  `json:"city"`
	Days                int     `json:"days"`
	AverageTemperatureC float64 `json:"average_temperature_c"`
}
