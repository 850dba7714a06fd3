package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/teslashibe/go-alan/internal/httpc"
)

const (
	locatorURL      = "http://ip-api.com"
	providerLocator = "ip-api"
)

// Position is a geographic location.
type Position struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	City string  `json:"city"`
}

// FixedLocator always reports the same position.
type FixedLocator struct {
	Position Position
}

// Locate returns the configured position.
func (f FixedLocator) Locate(context.Context) (Position, error) {
	return f.Position, nil
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
}

// IPLocator geolocates the server by its public IP address.
type IPLocator struct {
	cfg *Config
}

// NewIPLocator creates an IP geolocation provider.
func NewIPLocator(opts ...Option) *IPLocator {
	return &IPLocator{cfg: newConfig(locatorURL, opts)}
}

// Locate returns the current position.
func (l *IPLocator) Locate(ctx context.Context) (Position, error) {
	var resp ipAPIResponse
	if err := httpc.GetJSON(ctx, l.cfg.HTTPClient, strings.TrimRight(l.cfg.BaseURL, "/")+"/json/", &resp); err != nil {
		return Position{}, WrapError(providerLocator, err)
	}
	if resp.Status != "success" {
		return Position{}, WrapError(providerLocator, fmt.Errorf("lookup failed: %s", resp.Message))
	}
	return Position{Lat: resp.Lat, Lon: resp.Lon, City: resp.City}, nil
}
