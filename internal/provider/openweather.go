package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"weather-prediction/internal/models"
	"weather-prediction/pkg/metrics"
)

// OpenWeatherClient implements Client against the OpenWeatherMap One Call API.
// Current readings come from /onecall, historical ones from
// /onecall/timemachine keyed by unix timestamp.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	cities  *models.CityIndex
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

// NewOpenWeatherClient creates a new OpenWeatherMap client.
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration, cities *models.CityIndex, metricsCollector *metrics.Collector) *OpenWeatherClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		cities:  cities,
		client:  &http.Client{Timeout: timeout},
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: cb,
		metrics: metricsCollector,
	}
}

// Current fetches the live reading for a city.
func (c *OpenWeatherClient) Current(ctx context.Context, city string) (Reading, error) {
	coords, ok := c.cities.Coordinates(city)
	if !ok {
		return Reading{}, &FetchError{City: city, Err: fmt.Errorf("city %q is not configured", city)}
	}

	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.4f", coords.Lat))
	values.Set("lon", fmt.Sprintf("%.4f", coords.Lon))
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	values.Set("exclude", "minutely,hourly,daily,alerts")

	resp, err := c.do(ctx, city, c.baseURL+"/onecall?"+values.Encode())
	if err != nil {
		return Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Dt       int64   `json:"dt"`
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.ProviderFetchErrors.WithLabelValues(city).Inc()
		return Reading{}, &FetchError{City: city, Err: fmt.Errorf("decoding response: %w", err)}
	}

	ts := time.Unix(payload.Current.Dt, 0).UTC()
	if payload.Current.Dt == 0 {
		ts = time.Now().UTC()
	}

	return Reading{
		City:        city,
		Timestamp:   ts,
		Temperature: payload.Current.Temp,
		Humidity:    payload.Current.Humidity,
	}, nil
}

// At fetches the reading for a historical instant.
func (c *OpenWeatherClient) At(ctx context.Context, city string, ts time.Time) (Reading, error) {
	coords, ok := c.cities.Coordinates(city)
	if !ok {
		return Reading{}, &FetchError{City: city, Err: fmt.Errorf("city %q is not configured", city)}
	}

	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.4f", coords.Lat))
	values.Set("lon", fmt.Sprintf("%.4f", coords.Lon))
	values.Set("dt", fmt.Sprintf("%d", ts.Unix()))
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")

	resp, err := c.do(ctx, city, c.baseURL+"/onecall/timemachine?"+values.Encode())
	if err != nil {
		return Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data []struct {
			Dt       int64   `json:"dt"`
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.ProviderFetchErrors.WithLabelValues(city).Inc()
		return Reading{}, &FetchError{City: city, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(payload.Data) == 0 {
		c.metrics.ProviderFetchErrors.WithLabelValues(city).Inc()
		return Reading{}, &FetchError{City: city, Err: fmt.Errorf("no data returned for %s", ts.Format(time.RFC3339))}
	}

	// The requested timestamp, not the provider's echo, becomes the
	// observation time so the noon convention survives round-tripping.
	return Reading{
		City:        city,
		Timestamp:   ts,
		Temperature: payload.Data[0].Temp,
		Humidity:    payload.Data[0].Humidity,
	}, nil
}

func (c *OpenWeatherClient) do(ctx context.Context, city, rawURL string) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, &FetchError{City: city, Err: fmt.Errorf("openweathermap api key is not configured")}
	}

	timer := time.Now()
	c.metrics.ProviderFetchesTotal.WithLabelValues(city).Inc()

	resp, err := doRequestWithResilience(ctx, c.client, c.backoff, c.circuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, rawURL, nil)
	})

	c.metrics.ProviderFetchDuration.Observe(time.Since(timer).Seconds())

	if err != nil {
		c.metrics.ProviderFetchErrors.WithLabelValues(city).Inc()
		return nil, &FetchError{City: city, Err: err}
	}

	return resp, nil
}
