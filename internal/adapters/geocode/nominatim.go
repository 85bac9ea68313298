package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mvarga/waylog/internal/core/domain"
)

// Nominatim implements ports.Geocoder against a Nominatim-compatible search
// endpoint. The usage policy requires an identifying User-Agent.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// New creates a Nominatim geocoder client.
func New(baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Forward resolves a city/country pair to coordinates. The first result is
// taken; Nominatim orders hits by importance.
func (n *Nominatim) Forward(ctx context.Context, city, country string) (domain.GeoPoint, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("country", country)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GeoPoint{}, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("geocoder decode: %w", err)
	}
	if len(hits) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("no results for %s, %s", city, country)
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("parse lat %q: %w", hits[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("parse lon %q: %w", hits[0].Lon, err)
	}

	point := domain.GeoPoint{Lat: lat, Lon: lon}
	if !point.InRange() {
		return domain.GeoPoint{}, fmt.Errorf("out-of-range result (%.4f, %.4f) for %s, %s", lat, lon, city, country)
	}
	return point, nil
}
