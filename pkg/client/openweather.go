package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"go.uber.org/zap"
)

const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var errMissingField = errors.New("missing field")

type OpenWeatherClient struct {
	*BaseClient
	apiKey  string
	baseURL string
}

// Pointers let the decoder tell a missing field from a zero value.
type OpenWeatherCurrentResponse struct {
	Weather []struct {
		Description *string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
	} `json:"main"`
}

func NewOpenWeatherClient(apiKey, baseURL string, config ClientConfig, logger *zap.Logger) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherClient{
		BaseClient: NewBaseClient("openweather", config, logger),
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// ConditionsURL builds the request URL for a coordinate.
func (c *OpenWeatherClient) ConditionsURL(lat, lon float64) string {
	return fmt.Sprintf("%s?lat=%s&lon=%s&units=metric&appid=%s",
		c.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		url.QueryEscape(c.apiKey))
}

// FetchConditions issues one GET for the coordinate and decodes the five
// required fields. No partial reading is ever returned.
func (c *OpenWeatherClient) FetchConditions(ctx context.Context, lat, lon float64) (*models.WeatherReading, error) {
	data, err := c.Get(ctx, c.ConditionsURL(lat, lon))
	if err != nil {
		return nil, err
	}

	reading, err := decodeCurrent(data)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformedResponse, Err: err}
	}
	return reading, nil
}

func decodeCurrent(data []byte) (*models.WeatherReading, error) {
	var response OpenWeatherCurrentResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	m := response.Main
	switch {
	case m.Temp == nil:
		return nil, fmt.Errorf("%w: main.temp", errMissingField)
	case m.FeelsLike == nil:
		return nil, fmt.Errorf("%w: main.feels_like", errMissingField)
	case m.TempMin == nil:
		return nil, fmt.Errorf("%w: main.temp_min", errMissingField)
	case m.TempMax == nil:
		return nil, fmt.Errorf("%w: main.temp_max", errMissingField)
	case len(response.Weather) == 0 || response.Weather[0].Description == nil:
		return nil, fmt.Errorf("%w: weather[0].description", errMissingField)
	}

	return &models.WeatherReading{
		TemperatureC: *m.Temp,
		Description:  *response.Weather[0].Description,
		FeelsLikeC:   *m.FeelsLike,
		TempMinC:     *m.TempMin,
		TempMaxC:     *m.TempMax,
	}, nil
}
