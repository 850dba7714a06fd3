package content

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/teslashibe/go-alan/internal/httpc"
)

const (
	weatherURL      = "https://api.openweathermap.org"
	providerWeather = "openweathermap"
)

// Weather is the current weather at a location, in metric units.
type Weather struct {
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Temp        float64 `json:"temp"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Summary is the sentence spoken for the forecast.
func (w Weather) Summary() string {
	return fmt.Sprintf("The weather forecast for %s is: %s with temperature between %d °C and %d °C. "+
		"The humidity rate is equal to %d %% and the wind speed is %d meters per second.",
		w.Location, w.Description, int(w.TempMin), int(w.TempMax), int(w.Humidity), int(w.WindSpeed))
}

type owmResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// OpenWeather fetches current conditions from OpenWeatherMap.
type OpenWeather struct {
	apiKey string
	cfg    *Config
}

// NewOpenWeather creates a weather provider.
func NewOpenWeather(apiKey string, opts ...Option) (*OpenWeather, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &OpenWeather{apiKey: apiKey, cfg: newConfig(weatherURL, opts)}, nil
}

// Current returns the weather at pos.
func (o *OpenWeather) Current(ctx context.Context, pos Position) (Weather, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(pos.Lon, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", o.apiKey)

	var resp owmResponse
	endpoint := strings.TrimRight(o.cfg.BaseURL, "/") + "/data/2.5/weather?" + q.Encode()
	if err := httpc.GetJSON(ctx, o.cfg.HTTPClient, endpoint, &resp); err != nil {
		return Weather{}, WrapError(providerWeather, err)
	}
	if len(resp.Weather) == 0 {
		return Weather{}, WrapError(providerWeather, ErrEmptyResponse)
	}

	location := resp.Name
	if location == "" {
		location = pos.City
	}

	return Weather{
		Location:    location,
		Description: resp.Weather[0].Description,
		Icon:        resp.Weather[0].Icon,
		Temp:        resp.Main.Temp,
		TempMin:     resp.Main.TempMin,
		TempMax:     resp.Main.TempMax,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
	}, nil
}
