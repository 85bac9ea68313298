package http_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/mvarga/waylog/internal/adapters/http"
	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/core/usecases"
	"github.com/mvarga/waylog/internal/mapengine"
)

// ---- Mock repositories ----

type mockTripRepo struct {
	createFn     func(ctx context.Context, trip *domain.Trip) error
	updateFn     func(ctx context.Context, trip *domain.Trip) error
	deleteFn     func(ctx context.Context, id string) error
	getByIDFn    func(ctx context.Context, id string) (*domain.Trip, error)
	getBySlugFn  func(ctx context.Context, slug string) (*domain.Trip, error)
	listFn       func(ctx context.Context) ([]domain.Trip, error)
	listByYearFn func(ctx context.Context, year int) ([]domain.Trip, error)
}

func (m *mockTripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	if m.createFn != nil {
		return m.createFn(ctx, trip)
	}
	return nil
}
func (m *mockTripRepo) Update(ctx context.Context, trip *domain.Trip) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, trip)
	}
	return nil
}
func (m *mockTripRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Trip{ID: id}, nil
}
func (m *mockTripRepo) GetBySlug(ctx context.Context, slug string) (*domain.Trip, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockTripRepo) ListByYear(ctx context.Context, year int) ([]domain.Trip, error) {
	if m.listByYearFn != nil {
		return m.listByYearFn(ctx, year)
	}
	return nil, nil
}
func (m *mockTripRepo) ReplaceDestinations(ctx context.Context, tripID string, dests []domain.Destination) error {
	return nil
}
func (m *mockTripRepo) UpdateDestinationLocation(ctx context.Context, destID string, loc domain.GeoPoint) error {
	return nil
}

type mockSessionRepo struct {
	sessions map[string]*domain.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*domain.Session{}}
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	m.sessions[s.Token] = s
	return nil
}
func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if s, ok := m.sessions[token]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	trips := usecases.NewTripService(&mockTripRepo{}, nil, nil, nil)
	sum := sha256.Sum256([]byte("hunter2"))
	auth, _ := usecases.NewAuthService(newMockSessionRepo(), nil, "admin", hex.EncodeToString(sum[:]))

	d := &handler.Dependencies{
		Trips: trips,
		Stats: usecases.NewStatsService(&mockTripRepo{}, nil),
		Maps: usecases.NewMapService(usecases.MapConfig{
			TileBaseURL: "https://tiles.example.com",
			TileStyle:   "terrain",
			Engine:      mapengine.DefaultConfig(),
		}, trips),
		Auth: auth,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// withTrips rebuilds the trip-dependent services around one repo.
func withTrips(repo *mockTripRepo) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		trips := usecases.NewTripService(repo, nil, nil, nil)
		d.Trips = trips
		d.Stats = usecases.NewStatsService(repo, nil)
		d.Maps = usecases.NewMapService(usecases.MapConfig{
			TileBaseURL: "https://tiles.example.com",
			TileStyle:   "terrain",
			Engine:      mapengine.DefaultConfig(),
		}, trips)
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func sampleTrip() *domain.Trip {
	return &domain.Trip{
		ID:        "t-1",
		Slug:      "basque-coast",
		Title:     "Basque Coast",
		StartDate: time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC),
		Destinations: []domain.Destination{
			{City: "Munich", Country: "Germany", Geocoded: true, Location: domain.GeoPoint{Lat: 48.14, Lon: 11.58}},
			{City: "Bilbao", Country: "Spain", Geocoded: true, Location: domain.GeoPoint{Lat: 43.26, Lon: -2.93}, ArrivalMode: domain.ModePlane, Nights: 4},
			{City: "San Sebastián", Country: "Spain", Geocoded: true, Location: domain.GeoPoint{Lat: 43.32, Lon: -1.98}, ArrivalMode: domain.ModeBus, Nights: 3},
			{City: "Munich", Country: "Germany", Geocoded: true, Location: domain.GeoPoint{Lat: 48.14, Lon: 11.58}, ArrivalMode: domain.ModePlane},
		},
	}
}

// ---- Trip handler tests ----

func TestListTrips_Success(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) {
			return []domain.Trip{*sampleTrip()}, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Trip `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 1 {
		t.Errorf("expected total 1, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 1 || result.Data[0].Slug != "basque-coast" {
		t.Errorf("unexpected trips: %+v", result.Data)
	}
}

func TestListTrips_Pagination(t *testing.T) {
	trips := make([]domain.Trip, 5)
	for i := range trips {
		trips[i] = domain.Trip{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("Trip %d", i)}
	}
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) { return trips, nil },
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Trip `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected page of 2, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestListTrips_YearFilter(t *testing.T) {
	var gotYear int
	deps := makeDeps(withTrips(&mockTripRepo{
		listByYearFn: func(ctx context.Context, year int) ([]domain.Trip, error) {
			gotYear = year
			return []domain.Trip{*sampleTrip()}, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips?year=2024", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotYear != 2024 {
		t.Errorf("expected year 2024 passed through, got %d", gotYear)
	}
}

func TestGetTrip_Success(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Trip, error) {
			return sampleTrip(), nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips/basque-coast", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var trip domain.Trip
	json.NewDecoder(resp.Body).Decode(&trip)
	if trip.Title != "Basque Coast" {
		t.Errorf("expected title, got %q", trip.Title)
	}
	if len(trip.Destinations) != 4 {
		t.Errorf("expected 4 destinations, got %d", len(trip.Destinations))
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips/nope", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), "not_found") {
		t.Errorf("expected structured not_found error, got %s", body)
	}
}

func TestTripLegs_Success(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Trip, error) {
			return sampleTrip(), nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips/basque-coast/legs", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var legs []domain.RouteLeg
	json.NewDecoder(resp.Body).Decode(&legs)
	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(legs))
	}
	if legs[0].Mode != domain.ModePlane {
		t.Errorf("first leg mode: got %s, want plane", legs[0].Mode)
	}
}

// ---- Stats handler tests ----

func TestStats_Success(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) {
			return []domain.Trip{*sampleTrip()}, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/stats", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stats domain.TripStats
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats.Trips != 1 {
		t.Errorf("expected 1 trip, got %d", stats.Trips)
	}
	if stats.Countries != 1 {
		t.Errorf("expected 1 country (home excluded), got %d", stats.Countries)
	}
}

// ---- Map handler tests ----

func TestOverviewMap_Success(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) {
			return []domain.Trip{*sampleTrip()}, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/map?w=800&h=600", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var model usecases.RenderModel
	json.NewDecoder(resp.Body).Decode(&model)
	if len(model.Tiles) == 0 {
		t.Error("expected tiles in render model")
	}
	if len(model.Markers) != 4 {
		t.Errorf("expected 4 markers, got %d", len(model.Markers))
	}
	for _, tile := range model.Tiles {
		if !strings.HasPrefix(tile.URL, "https://tiles.example.com/terrain/") {
			t.Fatalf("unexpected tile URL %q", tile.URL)
		}
	}
}

func TestOverviewMap_BadContainer(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/map?w=10&h=10", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOverviewMap_BadCenter(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/map?lat=120&lon=0&zoom=5", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTripMap_Success(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Trip, error) {
			return sampleTrip(), nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips/basque-coast/map", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var model usecases.RenderModel
	json.NewDecoder(resp.Body).Decode(&model)
	if len(model.Routes) != 3 {
		t.Errorf("expected 3 route legs, got %d", len(model.Routes))
	}
}

// ---- Auth and admin tests ----

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	body := strings.NewReader(`{"user":"admin","password":"hunter2"}`)
	req := httptest.NewRequest("POST", "/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Token == "" {
		t.Fatal("login returned empty token")
	}
	return result.Token
}

func TestLogin_BadCredentials(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	body := strings.NewReader(`{"user":"admin","password":"wrong"}`)
	req := httptest.NewRequest("POST", "/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminCreateTrip_RequiresAuth(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/admin/trips", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestAdminCreateTrip_Success(t *testing.T) {
	var created *domain.Trip
	deps := makeDeps(withTrips(&mockTripRepo{
		createFn: func(ctx context.Context, trip *domain.Trip) error {
			created = trip
			return nil
		},
	}))
	app := setupApp(deps)
	token := login(t, app)

	payload, _ := json.Marshal(sampleTrip())
	req := httptest.NewRequest("POST", "/v1/admin/trips", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		body := readBody(t, resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	if created == nil {
		t.Fatal("repository create was not called")
	}
}

func TestAdminCreateTrip_ValidationError(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	token := login(t, app)

	// Missing title and destinations.
	req := httptest.NewRequest("POST", "/v1/admin/trips", strings.NewReader(`{"title":""}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAdminDeleteTrip_Success(t *testing.T) {
	deleted := ""
	deps := makeDeps(withTrips(&mockTripRepo{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}))
	app := setupApp(deps)
	token := login(t, app)

	req := httptest.NewRequest("DELETE", "/v1/admin/trips/t-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if deleted != "t-1" {
		t.Errorf("expected delete of t-1, got %q", deleted)
	}
}

func TestLogout_InvalidatesToken(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	token := login(t, app)

	req := httptest.NewRequest("POST", "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/v1/admin/trips", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

// ---- System tests ----

func TestHealth_Returns200(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("expected healthy status, got %s", body)
	}
}

func TestReady_NoDB(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if got := resp.Header.Get("X-API-Version"); got != "1.0.0" {
		t.Errorf("expected X-API-Version header, got %q", got)
	}
}

func TestListTrips_LinkHeader(t *testing.T) {
	trips := make([]domain.Trip, 10)
	for i := range trips {
		trips[i] = domain.Trip{ID: fmt.Sprintf("t%d", i)}
	}
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) { return trips, nil },
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)

	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %q", link)
	}
	if !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected prev link, got %q", link)
	}
}

// ---- GraphQL tests ----

func TestGraphQL_Trips(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) {
			return []domain.Trip{*sampleTrip()}, nil
		},
	}))
	app := setupApp(deps)

	body := strings.NewReader(`{"query":"{ trips { slug title } }"}`)
	req := httptest.NewRequest("POST", "/graphql", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	raw := readBody(t, resp.Body)
	if !strings.Contains(string(raw), "basque-coast") {
		t.Errorf("expected trip slug in response, got %s", raw)
	}
	if strings.Contains(string(raw), `"errors"`) {
		t.Errorf("unexpected graphql errors: %s", raw)
	}
}

func TestGraphQL_Stats(t *testing.T) {
	deps := makeDeps(withTrips(&mockTripRepo{
		listFn: func(ctx context.Context) ([]domain.Trip, error) {
			return []domain.Trip{*sampleTrip()}, nil
		},
	}))
	app := setupApp(deps)

	body := strings.NewReader(`{"query":"{ stats { trips countries nights } }"}`)
	req := httptest.NewRequest("POST", "/graphql", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Stats struct {
				Trips  int `json:"trips"`
				Nights int `json:"nights"`
			} `json:"stats"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Data.Stats.Trips != 1 {
		t.Errorf("expected 1 trip in stats, got %d", result.Data.Stats.Trips)
	}
	if result.Data.Stats.Nights != 7 {
		t.Errorf("expected 7 nights, got %d", result.Data.Stats.Nights)
	}
}
