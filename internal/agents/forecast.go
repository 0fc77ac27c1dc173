package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const weatherAPIBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPIForecaster fetches forecasts from weatherapi.com and renders
// them as a short Polish summary.
type WeatherAPIForecaster struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewWeatherAPIForecaster(apiKey string) *WeatherAPIForecaster {
	return &WeatherAPIForecaster{
		apiKey:  apiKey,
		baseURL: weatherAPIBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type weatherAPIResponse struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		WindKph   float64 `json:"wind_kph"`
		Humidity  int     `json:"humidity"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MinTempC  float64 `json:"mintemp_c"`
				MaxTempC  float64 `json:"maxtemp_c"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (f *WeatherAPIForecaster) Forecast(ctx context.Context, location string, days int) (string, error) {
	if f.apiKey == "" {
		return "", fmt.Errorf("weatherapi: api key not configured")
	}
	if days < 1 {
		days = 1
	}

	q := url.Values{}
	q.Set("key", f.apiKey)
	q.Set("q", location)
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("aqi", "no")
	q.Set("alerts", "no")
	q.Set("lang", "pl")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("weatherapi: building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weatherapi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weatherapi: unexpected status %d", resp.StatusCode)
	}

	var data weatherAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("weatherapi: decoding response: %w", err)
	}

	name := data.Location.Name
	if name == "" {
		name = location
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pogoda dla %s:\n", name)
	fmt.Fprintf(&b, "Aktualna temperatura: %.1f°C, %s\n", data.Current.TempC, data.Current.Condition.Text)
	fmt.Fprintf(&b, "Wiatr: %.0f km/h, wilgotność: %d%%\n", data.Current.WindKph, data.Current.Humidity)
	if len(data.Forecast.ForecastDay) > 0 {
		b.WriteString("Prognoza na najbliższe dni:\n")
		for _, day := range data.Forecast.ForecastDay {
			fmt.Fprintf(&b, "- %s: od %.0f°C do %.0f°C, %s\n", day.Date, day.Day.MinTempC, day.Day.MaxTempC, day.Day.Condition.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
