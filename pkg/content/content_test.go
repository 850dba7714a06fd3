package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func jsonServer(t *testing.T, check func(r *http.Request), body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJokes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/plain" {
			t.Errorf("Accept = %q, want text/plain", got)
		}
		w.Write([]byte("  Why did the scarecrow win an award?\n"))
	}))
	defer srv.Close()

	joke, err := NewJokes(WithBaseURL(srv.URL)).Joke(context.Background())
	if err != nil {
		t.Fatalf("Joke() error = %v", err)
	}
	if joke != "Why did the scarecrow win an award?" {
		t.Errorf("Joke() = %q", joke)
	}
}

func TestJokesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewJokes(WithBaseURL(srv.URL)).Joke(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsRateLimited() {
		t.Errorf("expected rate limited, got %d", apiErr.StatusCode)
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Provider != providerJokes {
		t.Errorf("expected ProviderError for %s, got %v", providerJokes, err)
	}
}

func TestQuoteOfTheDay(t *testing.T) {
	srv := jsonServer(t, func(r *http.Request) {
		if r.URL.Path != "/qod.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
	}, `{"success":{"total":1},"contents":{"quotes":[{"quote":"Stay hungry.","author":"Jobs"}]}}`)

	q, err := NewQuotes(WithBaseURL(srv.URL)).QuoteOfTheDay(context.Background())
	if err != nil {
		t.Fatalf("QuoteOfTheDay() error = %v", err)
	}
	if q.Text != "Stay hungry." || q.Author != "Jobs" {
		t.Errorf("unexpected quote: %+v", q)
	}
}

func TestQuoteOfTheDayEmpty(t *testing.T) {
	srv := jsonServer(t, nil, `{"contents":{"quotes":[]}}`)
	_, err := NewQuotes(WithBaseURL(srv.URL)).QuoteOfTheDay(context.Background())
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestIPLocator(t *testing.T) {
	srv := jsonServer(t, nil, `{"status":"success","lat":45.07,"lon":7.68,"city":"Turin"}`)
	pos, err := NewIPLocator(WithBaseURL(srv.URL)).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if pos.City != "Turin" || pos.Lat != 45.07 || pos.Lon != 7.68 {
		t.Errorf("unexpected position: %+v", pos)
	}

	fail := jsonServer(t, nil, `{"status":"fail","message":"private range"}`)
	if _, err := NewIPLocator(WithBaseURL(fail.URL)).Locate(context.Background()); err == nil {
		t.Error("expected error for failed lookup")
	}
}

func TestFixedLocator(t *testing.T) {
	want := Position{Lat: 1, Lon: 2, City: "Here"}
	got, err := FixedLocator{Position: want}.Locate(context.Background())
	if err != nil || got != want {
		t.Errorf("Locate() = %+v, %v", got, err)
	}
}

func TestOpenWeather(t *testing.T) {
	srv := jsonServer(t, func(r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q.Get("units") != "metric" || q.Get("appid") != "key" || q.Get("lat") != "45.07" {
			t.Errorf("unexpected query: %v", q)
		}
	}, `{"name":"Turin","weather":[{"description":"clear sky","icon":"01d"}],
		"main":{"temp":21.6,"temp_min":18.2,"temp_max":24.9,"humidity":40},"wind":{"speed":3.4}}`)

	ow, err := NewOpenWeather("key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	w, err := ow.Current(context.Background(), Position{Lat: 45.07, Lon: 7.68})
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if w.Location != "Turin" || w.Icon != "01d" || w.TempMax != 24.9 {
		t.Errorf("unexpected weather: %+v", w)
	}

	want := "The weather forecast for Turin is: clear sky with temperature between 18 °C and 24 °C. " +
		"The humidity rate is equal to 40 % and the wind speed is 3 meters per second."
	if got := w.Summary(); got != want {
		t.Errorf("Summary() =\n%q\nwant\n%q", got, want)
	}
}

func TestNewOpenWeatherRequiresKey(t *testing.T) {
	if _, err := NewOpenWeather(""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestCleanExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "parenthetical and two sentences",
			in:   "Turin (Italian: Torino (listen)) is a city in Italy. It is the capital of Piedmont. It has a river.",
			want: "Turin is a city in Italy. It is the capital of Piedmont.",
		},
		{
			name: "escaped brackets",
			in:   "Mount Blanc&#91;1&#93; is high. Very high. Really.",
			want: "Mount Blanc is high. Very high.",
		},
		{
			name: "whitespace",
			in:   "A\n\n  short   text",
			want: "A short text",
		},
		{
			name: "period inside aside not counted",
			in:   "Foo (b. 1900) was a man. He lived. Then died.",
			want: "Foo was a man. He lived.",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanExtract(tt.in); got != tt.want {
				t.Errorf("CleanExtract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWikipediaRandom(t *testing.T) {
	srv := jsonServer(t, func(r *http.Request) {
		if r.URL.Path != "/api/rest_v1/page/random/summary" {
			t.Errorf("path = %q", r.URL.Path)
		}
	}, `{"title":"Turin","extract":"Turin (Torino) is a city. It is in Italy. More."}`)

	text, err := NewWikipedia(WithBaseURL(srv.URL)).Random(context.Background())
	if err != nil {
		t.Fatalf("Random() error = %v", err)
	}
	if text != "Turin is a city. It is in Italy." {
		t.Errorf("Random() = %q", text)
	}
}

func TestEdamamSearch(t *testing.T) {
	srv := jsonServer(t, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "pasta carbonara" || q.Get("from") != "0" || q.Get("to") != "1" {
			t.Errorf("unexpected query: %v", q)
		}
	}, `{"hits":[{"recipe":{"label":"Carbonara","image":"http://img/c.jpg",
		"ingredientLines":["200g spaghetti","2 eggs"]}}]}`)

	e, err := NewEdamam("id", "key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	r, err := e.Search(context.Background(), "pasta carbonara")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if r.Name != "Carbonara" || len(r.Ingredients) != 2 || r.ImageURL != "http://img/c.jpg" {
		t.Errorf("unexpected recipe: %+v", r)
	}
}

func TestEdamamNoHits(t *testing.T) {
	srv := jsonServer(t, nil, `{"hits":[]}`)
	e, _ := NewEdamam("id", "key", WithBaseURL(srv.URL))
	if _, err := e.Search(context.Background(), "unicorn"); !errors.Is(err, ErrNoRecipe) {
		t.Errorf("expected ErrNoRecipe, got %v", err)
	}
}

func TestGoogleCalendarToday(t *testing.T) {
	srv := jsonServer(t, func(r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("singleEvents") != "true" {
			t.Errorf("expected singleEvents=true")
		}
	}, `{"items":[
		{"summary":"Standup","start":{"dateTime":"2026-10-16T09:30:00Z"}},
		{"summary":"Holiday","start":{"date":"2026-10-16"}}
	]}`)

	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")
	data, _ := json.Marshal(&oauth2.Token{AccessToken: "test", TokenType: "Bearer"})
	if err := os.WriteFile(tokenPath, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cal, err := NewGoogleCalendar(CalendarConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenPath:    tokenPath,
		ServiceOptions: []option.ClientOption{
			option.WithHTTPClient(srv.Client()),
			option.WithEndpoint(srv.URL + "/"),
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !cal.IsAuthenticated() {
		t.Fatal("expected stored token to be loaded")
	}

	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	events, err := cal.Today(context.Background(), now)
	if err != nil {
		t.Fatalf("Today() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if got := events[0].Spoken(); got != "At 09:30: Standup." {
		t.Errorf("Spoken() = %q", got)
	}
	if !events[1].AllDay || events[1].Spoken() != "All day: Holiday." {
		t.Errorf("unexpected all-day event: %+v", events[1])
	}
}

func TestGoogleCalendarNotAuthorized(t *testing.T) {
	cal, err := NewGoogleCalendar(CalendarConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenPath:    filepath.Join(t.TempDir(), "missing.json"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cal.IsAuthenticated() {
		t.Fatal("expected no token")
	}
	if _, err := cal.Today(context.Background(), time.Now()); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if u := cal.AuthURL("state-1"); !strings.Contains(u, "access_type=offline") || !strings.Contains(u, "state=state-1") {
		t.Errorf("unexpected auth url: %s", u)
	}
}
