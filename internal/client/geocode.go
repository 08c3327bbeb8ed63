package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"weather-average-service/internal/models"
)

type geocodeResponse struct {
	Results []struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Name        string  `json:"name"`
		CountryCode string  `json:"country_code"`
	} `json:"results"`
}

// GeocodeCity resolves a free-text city name to coordinates and a canonical
// name. The lookup asks for a single result and takes it as the best match;
// no disambiguation is attempted. countryCode, when set, narrows the search
// to that country. Zero results map to ErrCityNotFound.
func (c *OpenMeteoClient) GeocodeCity(ctx context.Context, name, countryCode string) (models.GeoResult, error) {
	base, err := url.Parse(c.geocodeURL)
	if err != nil {
		return models.GeoResult{}, fmt.Errorf("invalid geocode URL: %w", err)
	}

	params := url.Values{}
	params.Set("name", strings.TrimSpace(name))
	params.Set("count", "1")
	params.Set("format", "json")
	if countryCode != "" {
		params.Set("countryCode", strings.ToUpper(countryCode))
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return models.GeoResult{}, fmt.Errorf("create geocode request: %w", err)
	}

	resp, err := c.do(c.geocodeHTTP, "geocode", req)
	if err != nil {
		return models.GeoResult{}, err
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.GeoResult{}, fmt.Errorf("%w: parse geocode response: %v", ErrUpstreamFailure, err)
	}

	if len(decoded.Results) == 0 {
		return models.GeoResult{}, fmt.Errorf("%w: %q", ErrCityNotFound, name)
	}

	first := decoded.Results[0]
	canonical := first.Name
	if canonical == "" {
		canonical = strings.TrimSpace(name)
	}
	return models.GeoResult{
		Latitude:    first.Latitude,
		Longitude:   first.Longitude,
		Name:        canonical,
		CountryCode: first.CountryCode,
	}, nil
}
