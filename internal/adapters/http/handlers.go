package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mvarga/waylog/internal/core/domain"
	"github.com/mvarga/waylog/internal/pkg/metrics"
)

// ListTripsHandler returns all trips, newest first, optionally filtered by
// year (?year=2024). Destinations and expenses are included.
func ListTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			trips []domain.Trip
			err   error
		)
		if year := c.QueryInt("year", 0); year != 0 {
			trips, err = deps.Trips.ListByYear(c.Context(), year)
		} else {
			trips, err = deps.Trips.List(c.Context())
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		// Apply offset/limit pagination on the full list
		offset, limit := pageParams(c)

		total := len(trips)
		if offset >= total {
			trips = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			trips = trips[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: trips, Pagination: pg})
	}
}

// GetTripHandler returns a single trip by slug.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "trip slug is required")
		}
		trip, err := deps.Trips.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "trip not found")
		}
		return c.JSON(trip)
	}
}

// TripLegsHandler returns the route legs connecting a trip's destinations
// in visit order.
func TripLegsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "trip slug is required")
		}
		trip, err := deps.Trips.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "trip not found")
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(deps.Trips.Legs(trip))
	}
}

// StatsHandler returns aggregate travel statistics across all trips.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Stats.Summary(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(stats)
	}
}

// viewportQuery reads the shared map query parameters: container size plus
// an optional explicit center/zoom. A nil center means "fit to content".
func viewportQuery(c *fiber.Ctx) (w, h int, center *domain.GeoPoint, zoom int) {
	w = c.QueryInt("w", 800)
	h = c.QueryInt("h", 600)
	zoom = c.QueryInt("zoom", 0)

	lat := c.QueryFloat("lat", -999)
	lon := c.QueryFloat("lon", -999)
	if lat != -999 && lon != -999 {
		center = &domain.GeoPoint{Lat: lat, Lon: lon}
	}
	return w, h, center, zoom
}

// OverviewMapHandler renders the all-trips map model: visible tiles plus one
// marker per located destination. The viewport is fitted over every marker
// unless lat/lon/zoom are given.
func OverviewMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, h, center, zoom := viewportQuery(c)
		if center != nil && !center.InRange() {
			return errBadRequest(c, "lat/lon out of range")
		}

		model, err := deps.Maps.OverviewRender(c.Context(), w, h, center, zoom)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		metrics.MapRenders.WithLabelValues("overview").Inc()

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(model)
	}
}

// TripMapHandler renders the single-trip map model: tiles, destination
// markers, and the curved route legs between them.
func TripMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "trip slug is required")
		}
		w, h, center, zoom := viewportQuery(c)
		if center != nil && !center.InRange() {
			return errBadRequest(c, "lat/lon out of range")
		}

		model, err := deps.Maps.TripRender(c.Context(), slug, w, h, center, zoom)
		if err != nil {
			return errNotFound(c, "trip not found")
		}
		metrics.MapRenders.WithLabelValues("trip").Inc()

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(model)
	}
}

// LoginHandler validates admin credentials and issues a session token.
func LoginHandler(deps *Dependencies) fiber.Handler {
	type loginRequest struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}

	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Auth.Login(c.Context(), req.User, req.Password)
		if err != nil {
			return errUnauthorized(c, "invalid credentials")
		}

		return c.JSON(fiber.Map{
			"token":      session.Token,
			"expires_at": session.ExpiresAt,
		})
	}
}

// LogoutHandler invalidates the current session.
func LogoutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return errUnauthorized(c, "missing session token")
		}
		if err := deps.Auth.Logout(c.Context(), token); err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "logged out"})
	}
}

// CreateTripHandler creates a new trip (admin only).
func CreateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var trip domain.Trip
		if err := c.BodyParser(&trip); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		created, err := deps.Trips.Create(c.Context(), &trip)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(created)
	}
}

// UpdateTripHandler replaces a trip and its destination sequence (admin only).
func UpdateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "trip id is required")
		}

		var trip domain.Trip
		if err := c.BodyParser(&trip); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		trip.ID = id

		updated, err := deps.Trips.Update(c.Context(), &trip)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(updated)
	}
}

// DeleteTripHandler removes a trip (admin only).
func DeleteTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "trip id is required")
		}
		if err := deps.Trips.Delete(c.Context(), id); err != nil {
			return errNotFound(c, "trip not found")
		}
		return c.SendStatus(204)
	}
}

// YearsHandler returns the distinct years that have trips, newest first,
// with trip counts. Backs the year filter in the trip list UI.
func YearsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		rows, err := deps.DB.Pool.Query(c.Context(), `
			SELECT extract(year FROM start_date)::int AS year, count(*)
			FROM trips
			GROUP BY year
			ORDER BY year DESC
		`)
		if err != nil {
			return errInternal(c, err.Error())
		}
		defer rows.Close()

		type yearCount struct {
			Year  int `json:"year"`
			Trips int `json:"trips"`
		}
		var years []yearCount
		for rows.Next() {
			var y yearCount
			if err := rows.Scan(&y.Year, &y.Trips); err != nil {
				return errInternal(c, err.Error())
			}
			years = append(years, y)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(years)
	}
}
