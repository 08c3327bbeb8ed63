package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"weather-average-service/internal/models"
	"weather-average-service/internal/observability"
)

// WeatherClient covers the two upstream calls of the aggregation pipeline.
type WeatherClient interface {
	GeocodeCity(ctx context.Context, name, countryCode string) (models.GeoResult, error)
	FetchDailyTemperatures(ctx context.Context, lat, lon float64, days int) ([]float64, error)
}

var (
	// ErrCityNotFound means the geocoder returned zero results for the name.
	ErrCityNotFound = errors.New("city not found")
	// ErrUpstreamFailure covers network errors and non-success HTTP statuses
	// from either upstream service.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrNoData means every day in the requested archive window was unusable.
	ErrNoData = errors.New("no temperature data for requested window")
)

const (
	defaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
)

// OpenMeteoClient talks to the Open-Meteo geocoding and archive services.
// Each service gets its own http.Client so the archive's longer window
// queries do not loosen the geocode timeout. There is no retry logic:
// a timed-out call fails the whole request.
type OpenMeteoClient struct {
	geocodeURL string
	archiveURL string

	geocodeHTTP *http.Client
	archiveHTTP *http.Client

	// now is the clock used to anchor archive windows. Overridden in tests.
	now func() time.Time
}

// NewOpenMeteoClient creates a client for both upstream services. Empty URLs
// fall back to the public Open-Meteo endpoints. geocodeTimeout and
// archiveTimeout bound the whole call; connectTimeout bounds the archive
// client's dial phase only.
func NewOpenMeteoClient(geocodeURL, archiveURL string, geocodeTimeout, archiveTimeout, connectTimeout time.Duration) *OpenMeteoClient {
	if geocodeURL == "" {
		geocodeURL = defaultGeocodeURL
	}
	if archiveURL == "" {
		archiveURL = defaultArchiveURL
	}
	if geocodeTimeout <= 0 {
		geocodeTimeout = 20 * time.Second
	}
	if archiveTimeout <= 0 {
		archiveTimeout = 30 * time.Second
	}
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	return &OpenMeteoClient{
		geocodeURL: geocodeURL,
		archiveURL: archiveURL,
		geocodeHTTP: &http.Client{
			Timeout: geocodeTimeout,
		},
		archiveHTTP: &http.Client{
			Timeout: archiveTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
		now: time.Now,
	}
}

// do executes the request against the named upstream, recording metrics and
// translating transport errors and non-2xx statuses to ErrUpstreamFailure.
// The caller owns the response body on success.
func (c *OpenMeteoClient) do(httpClient *http.Client, service string, req *http.Request) (*http.Response, error) {
	if corrID := extractCorrelationID(req.Context()); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(service, "error").Inc()
		observability.UpstreamCallDuration.WithLabelValues(service, "error").Observe(duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s request timeout: %v", ErrUpstreamFailure, service, err)
		}
		return nil, fmt.Errorf("%w: %s request: %v", ErrUpstreamFailure, service, err)
	}

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(service, status).Inc()
	observability.UpstreamCallDuration.WithLabelValues(service, status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s HTTP %d", ErrUpstreamFailure, service, resp.StatusCode)
	}
	return resp, nil
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}
