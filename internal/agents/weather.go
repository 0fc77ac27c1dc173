package agents

import (
	"context"
	"fmt"
)

// Forecaster provides a short textual forecast for a location.
type Forecaster interface {
	Forecast(ctx context.Context, location string, days int) (string, error)
}

const defaultLocation = "Warszawa"

// WeatherAgent answers forecast questions. The location comes from the
// extracted entities when present, otherwise the default city is used.
type WeatherAgent struct {
	forecaster Forecaster
}

func NewWeatherAgent(f Forecaster) *WeatherAgent {
	return &WeatherAgent{forecaster: f}
}

func (a *WeatherAgent) Name() string { return "weather" }

func (a *WeatherAgent) Process(ctx context.Context, req Request) (Response, error) {
	location := defaultLocation
	if v, ok := req.Intent.Entities["lokalizacja"]; ok {
		if s, ok := v.AsString(); ok && s != "" {
			location = s
		}
	}

	text, err := a.forecaster.Forecast(ctx, location, 3)
	if err != nil {
		return Response{
			Success:  false,
			Text:     fmt.Sprintf("Przepraszam, nie mogę obecnie pobrać aktualnej prognozy pogody dla %s.", location),
			Error:    err.Error(),
			Severity: SeverityWarning,
			Data:     map[string]any{"location": location},
		}, nil
	}

	return Response{
		Success:  true,
		Text:     text,
		Data:     map[string]any{"location": location},
		Severity: SeverityInfo,
	}, nil
}
