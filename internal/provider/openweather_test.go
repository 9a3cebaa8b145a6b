package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"weather-prediction/internal/models"
	"weather-prediction/pkg/metrics"
)

var testMetrics = metrics.NewCollector("weather_provider_test")

func testCities(t *testing.T) *models.CityIndex {
	t.Helper()
	idx, err := models.NewCityIndex([]string{"Berlin"})
	if err != nil {
		t.Fatalf("NewCityIndex() error = %v", err)
	}
	return idx
}

func TestCurrentParsesOneCallResponse(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/onecall" {
			t.Errorf("path = %q, want /onecall", r.URL.Path)
		}
		gotQuery = map[string]string{
			"lat":     r.URL.Query().Get("lat"),
			"lon":     r.URL.Query().Get("lon"),
			"appid":   r.URL.Query().Get("appid"),
			"units":   r.URL.Query().Get("units"),
			"exclude": r.URL.Query().Get("exclude"),
		}
		fmt.Fprint(w, `{"current":{"dt":1700000000,"temp":12.3,"humidity":64}}`)
	}))
	defer server.Close()

	client := NewOpenWeatherClient("test-key", server.URL, 5*time.Second, testCities(t), testMetrics)

	reading, err := client.Current(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if reading.Temperature != 12.3 || reading.Humidity != 64 {
		t.Errorf("reading = %+v, want temp 12.3 humidity 64", reading)
	}
	if !reading.Timestamp.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("Timestamp = %v, want provider dt", reading.Timestamp)
	}

	if gotQuery["lat"] != "52.5200" || gotQuery["lon"] != "13.4050" {
		t.Errorf("coordinates = %s,%s, want 52.5200,13.4050", gotQuery["lat"], gotQuery["lon"])
	}
	if gotQuery["appid"] != "test-key" {
		t.Errorf("appid = %q, want test-key", gotQuery["appid"])
	}
	if gotQuery["units"] != "metric" {
		t.Errorf("units = %q, want metric", gotQuery["units"])
	}
	if gotQuery["exclude"] != "minutely,hourly,daily,alerts" {
		t.Errorf("exclude = %q, want minutely,hourly,daily,alerts", gotQuery["exclude"])
	}
}

func TestAtUsesRequestedTimestamp(t *testing.T) {
	target := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/onecall/timemachine" {
			t.Errorf("path = %q, want /onecall/timemachine", r.URL.Path)
		}
		if got := r.URL.Query().Get("dt"); got != fmt.Sprintf("%d", target.Unix()) {
			t.Errorf("dt = %q, want %d", got, target.Unix())
		}
		// The provider echoes a slightly shifted timestamp; the reading must
		// keep the requested one.
		fmt.Fprintf(w, `{"data":[{"dt":%d,"temp":8.1,"humidity":77}]}`, target.Unix()+3600)
	}))
	defer server.Close()

	client := NewOpenWeatherClient("test-key", server.URL, 5*time.Second, testCities(t), testMetrics)

	reading, err := client.At(context.Background(), "Berlin", target)
	if err != nil {
		t.Fatalf("At() error = %v", err)
	}

	if !reading.Timestamp.Equal(target) {
		t.Errorf("Timestamp = %v, want the requested %v", reading.Timestamp, target)
	}
	if reading.Temperature != 8.1 || reading.Humidity != 77 {
		t.Errorf("reading = %+v, want temp 8.1 humidity 77", reading)
	}
}

func TestAtEmptyDataIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	client := NewOpenWeatherClient("test-key", server.URL, 5*time.Second, testCities(t), testMetrics)

	_, err := client.At(context.Background(), "Berlin", time.Now().UTC())
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("At() error = %v, want FetchError for empty data", err)
	}
}

func TestCurrentRetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"current":{"dt":1700000000,"temp":10,"humidity":50}}`)
	}))
	defer server.Close()

	client := NewOpenWeatherClient("test-key", server.URL, 5*time.Second, testCities(t), testMetrics)

	reading, err := client.Current(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("Current() error = %v after retryable 502", err)
	}
	if reading.Temperature != 10 {
		t.Errorf("Temperature = %v, want 10", reading.Temperature)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestCurrentClientErrorIsPermanent(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewOpenWeatherClient("bad-key", server.URL, 5*time.Second, testCities(t), testMetrics)

	_, err := client.Current(context.Background(), "Berlin")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Current() error = %v, want FetchError", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 401)", got)
	}
}

func TestCurrentMissingAPIKey(t *testing.T) {
	client := NewOpenWeatherClient("", "http://unused.invalid", 5*time.Second, testCities(t), testMetrics)

	_, err := client.Current(context.Background(), "Berlin")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Current() error = %v, want FetchError for missing key", err)
	}
}

func TestCurrentUnconfiguredCity(t *testing.T) {
	client := NewOpenWeatherClient("test-key", "http://unused.invalid", 5*time.Second, testCities(t), testMetrics)

	_, err := client.Current(context.Background(), "Munich")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Current() error = %v, want FetchError for unconfigured city", err)
	}
}
