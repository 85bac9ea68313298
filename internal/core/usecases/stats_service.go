package usecases

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/core/ports"
	"github.com/mvarga/waylog/internal/pkg/geospatial"
)

// StatsService aggregates a loaded trip list into dashboard figures.
// Everything is computed in memory per request; the result is cached.
type StatsService struct {
	trips ports.TripRepository
	cache ports.CacheService
}

// NewStatsService creates a new StatsService.
func NewStatsService(trips ports.TripRepository, cache ports.CacheService) *StatsService {
	return &StatsService{trips: trips, cache: cache}
}

// Summary computes aggregate statistics over all trips.
func (s *StatsService) Summary(ctx context.Context) (*domain.TripStats, error) {
	cacheKey := "stats:summary"
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var stats domain.TripStats
			if err := json.Unmarshal(data, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := Aggregate(trips)

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return stats, nil
}

// Aggregate folds a trip list into TripStats. Exported so the GraphQL layer
// and tests can aggregate pre-loaded lists directly.
//
// The first and last destination of each trip are the traveller's home and
// are excluded from the visited-places counts; they still contribute to
// distance, since the legs to and from home were travelled.
func Aggregate(trips []domain.Trip) *domain.TripStats {
	stats := &domain.TripStats{
		Trips:         len(trips),
		ExpensesByCat: map[string]float64{},
		TripsPerYear:  map[int]int{},
		ModeUsage:     map[domain.TransportMode]int{},
	}

	countries := map[string]bool{}
	cities := map[string]bool{}
	companions := map[string]int{}
	costliest := 0.0

	for _, trip := range trips {
		if !trip.StartDate.IsZero() {
			stats.TripsPerYear[trip.StartDate.Year()]++
		}

		days := 0
		if !trip.StartDate.IsZero() && !trip.EndDate.IsZero() {
			days = int(trip.EndDate.Sub(trip.StartDate).Hours()/24) + 1
			if days > stats.LongestTripDays {
				stats.LongestTripDays = days
			}
			if stats.ShortestTripDays == 0 || days < stats.ShortestTripDays {
				stats.ShortestTripDays = days
			}
		}

		for _, name := range trip.Companions {
			companions[name]++
		}

		tripCost := 0.0
		for i, dest := range trip.Destinations {
			home := i == 0 || i == len(trip.Destinations)-1
			if !home {
				if dest.Country != "" {
					countries[dest.Country] = true
				}
				if dest.City != "" {
					cities[dest.City+"|"+dest.Country] = true
				}
				stats.Nights += dest.Nights
			}

			if i > 0 {
				mode := dest.ArrivalMode
				if mode == "" {
					mode = domain.ModeNone
				}
				stats.ModeUsage[mode]++

				prev := trip.Destinations[i-1]
				if prev.Geocoded && dest.Geocoded {
					stats.DistanceKm += geospatial.Haversine(
						prev.Location.Lat, prev.Location.Lon,
						dest.Location.Lat, dest.Location.Lon,
					) / 1000
				}
			}

			for _, e := range dest.Expenses {
				stats.ExpensesByCat[e.Category] += e.Amount
				stats.ExpensesTotal += e.Amount
				tripCost += e.Amount
			}
		}

		if tripCost > costliest {
			costliest = tripCost
			stats.CostliestTrip = trip.Slug
		}
	}

	stats.Countries = len(countries)
	stats.Cities = len(cities)

	for name, n := range companions {
		stats.TopCompanions = append(stats.TopCompanions, domain.CompanionCount{Name: name, Trips: n})
	}
	sort.Slice(stats.TopCompanions, func(i, j int) bool {
		if stats.TopCompanions[i].Trips != stats.TopCompanions[j].Trips {
			return stats.TopCompanions[i].Trips > stats.TopCompanions[j].Trips
		}
		return stats.TopCompanions[i].Name < stats.TopCompanions[j].Name
	})
	if len(stats.TopCompanions) > 5 {
		stats.TopCompanions = stats.TopCompanions[:5]
	}

	return stats
}
