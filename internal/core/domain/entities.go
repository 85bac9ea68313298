package domain

import (
	"time"
)

// TransportMode is how a leg between two destinations was travelled.
type TransportMode string

const (
	ModePlane TransportMode = "plane"
	ModeTrain TransportMode = "train"
	ModeCar   TransportMode = "car"
	ModeBus   TransportMode = "bus"
	ModeBoat  TransportMode = "boat"
	ModeNone  TransportMode = "none"
)

// ValidModes lists every accepted transport mode.
var ValidModes = []TransportMode{ModePlane, ModeTrain, ModeCar, ModeBus, ModeBoat, ModeNone}

// IsValid reports whether m is a known transport mode.
func (m TransportMode) IsValid() bool {
	for _, v := range ValidModes {
		if m == v {
			return true
		}
	}
	return false
}

// Trip is a recorded journey: an ordered sequence of destinations with
// dates, companions, and per-destination expenses. By convention the first
// and last destination are the traveller's home location.
type Trip struct {
	ID           string        `json:"id"`
	Slug         string        `json:"slug"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	Companions   []string      `json:"companions,omitempty"`
	Destinations []Destination `json:"destinations"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Destination is one place visited on a trip, ordered by Seq.
type Destination struct {
	ID          string        `json:"id"`
	TripID      string        `json:"trip_id"`
	Seq         int           `json:"seq"`
	City        string        `json:"city"`
	Country     string        `json:"country"`
	Location    GeoPoint      `json:"location"`
	Geocoded    bool          `json:"geocoded"`
	ArrivalMode TransportMode `json:"arrival_mode"`
	Nights      int           `json:"nights"`
	Expenses    []Expense     `json:"expenses,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Expense is a single cost recorded against a destination.
type Expense struct {
	ID            string  `json:"id"`
	DestinationID string  `json:"destination_id"`
	Category      string  `json:"category"` // lodging, food, transport, activities, other
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// RouteLeg connects two consecutive destinations on a trip.
type RouteLeg struct {
	From GeoPoint      `json:"from"`
	To   GeoPoint      `json:"to"`
	Mode TransportMode `json:"mode"`
}

// Session is an authenticated admin session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TripStats aggregates a loaded list of trips into dashboard figures.
// Home destinations (first and last of each trip) are excluded from the
// visited-places counts.
type TripStats struct {
	Trips            int                   `json:"trips"`
	Countries        int                   `json:"countries"`
	Cities           int                   `json:"cities"`
	Nights           int                   `json:"nights"`
	DistanceKm       float64               `json:"distance_km"`
	ExpensesTotal    float64               `json:"expenses_total"`
	ExpensesByCat    map[string]float64    `json:"expenses_by_category"`
	TripsPerYear     map[int]int           `json:"trips_per_year"`
	ModeUsage        map[TransportMode]int `json:"mode_usage"`
	LongestTripDays  int                   `json:"longest_trip_days"`
	ShortestTripDays int                   `json:"shortest_trip_days"`
	CostliestTrip    string                `json:"costliest_trip,omitempty"` // trip slug
	TopCompanions    []CompanionCount      `json:"top_companions,omitempty"`
}

// CompanionCount is how many trips a companion joined.
type CompanionCount struct {
	Name  string `json:"name"`
	Trips int    `json:"trips"`
}
