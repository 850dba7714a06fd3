package content

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/teslashibe/go-alan/internal/httpc"
)

const (
	edamamURL      = "https://api.edamam.com"
	providerEdamam = "edamam"
)

// Recipe is the first hit of a recipe search.
type Recipe struct {
	Name        string   `json:"name"`
	ImageURL    string   `json:"image_url"`
	Ingredients []string `json:"ingredients"`
}

type edamamResponse struct {
	Hits []struct {
		Recipe struct {
			Label           string   `json:"label"`
			Image           string   `json:"image"`
			IngredientLines []string `json:"ingredientLines"`
		} `json:"recipe"`
	} `json:"hits"`
}

// Edamam searches recipes on the Edamam API.
type Edamam struct {
	appID  string
	appKey string
	cfg    *Config
}

// NewEdamam creates a recipe provider.
func NewEdamam(appID, appKey string, opts ...Option) (*Edamam, error) {
	if appID == "" || appKey == "" {
		return nil, ErrNoAPIKey
	}
	return &Edamam{appID: appID, appKey: appKey, cfg: newConfig(edamamURL, opts)}, nil
}

// Search returns the best recipe for the dish.
func (e *Edamam) Search(ctx context.Context, dish string) (Recipe, error) {
	dish = strings.TrimSpace(dish)
	if dish == "" {
		return Recipe{}, WrapError(providerEdamam, errors.New("empty dish"))
	}

	q := url.Values{}
	q.Set("q", dish)
	q.Set("app_id", e.appID)
	q.Set("app_key", e.appKey)
	q.Set("from", "0")
	q.Set("to", "1")

	var resp edamamResponse
	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/search?" + q.Encode()
	if err := httpc.GetJSON(ctx, e.cfg.HTTPClient, endpoint, &resp); err != nil {
		return Recipe{}, WrapError(providerEdamam, err)
	}
	if len(resp.Hits) == 0 {
		return Recipe{}, WrapError(providerEdamam, ErrNoRecipe)
	}

	hit := resp.Hits[0].Recipe
	return Recipe{
		Name:        hit.Label,
		ImageURL:    hit.Image,
		Ingredients: hit.IngredientLines,
	}, nil
}
