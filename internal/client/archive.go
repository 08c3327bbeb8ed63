package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const dateLayout = "2006-01-02"

type archiveResponse struct {
	Daily struct {
		Time []string   `json:"time"`
		Mean []*float64 `json:"temperature_2m_mean"`
		Max  []*float64 `json:"temperature_2m_max"`
		Min  []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// FetchDailyTemperatures returns one temperature per usable day for a window
// of days consecutive calendar days ending yesterday. The current day is
// never included since it is still partial. Days without a usable value are
// dropped; an entirely empty window maps to ErrNoData.
func (c *OpenMeteoClient) FetchDailyTemperatures(ctx context.Context, lat, lon float64, days int) ([]float64, error) {
	end := c.now().UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))

	base, err := url.Parse(c.archiveURL)
	if err != nil {
		return nil, fmt.Errorf("invalid archive URL: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("start_date", start.Format(dateLayout))
	params.Set("end_date", end.Format(dateLayout))
	params.Set("daily", "temperature_2m_mean,temperature_2m_max,temperature_2m_min")
	params.Set("timezone", "auto")
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create archive request: %w", err)
	}

	resp, err := c.do(c.archiveHTTP, "archive", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: parse archive response: %v", ErrUpstreamFailure, err)
	}

	series := reduceDailyValues(decoded.Daily.Mean, decoded.Daily.Max, decoded.Daily.Min)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoData, start.Format(dateLayout), end.Format(dateLayout))
	}
	return series, nil
}
