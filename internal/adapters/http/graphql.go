package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	expenseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Expense",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"category": &graphql.Field{Type: graphql.String},
			"amount":   &graphql.Field{Type: graphql.Float},
			"currency": &graphql.Field{Type: graphql.String},
		},
	})

	destinationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Destination",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"seq":          &graphql.Field{Type: graphql.Int},
			"city":         &graphql.Field{Type: graphql.String},
			"country":      &graphql.Field{Type: graphql.String},
			"location":     &graphql.Field{Type: geoPointType},
			"geocoded":     &graphql.Field{Type: graphql.Boolean},
			"arrival_mode": &graphql.Field{Type: graphql.String},
			"nights":       &graphql.Field{Type: graphql.Int},
			"expenses":     &graphql.Field{Type: graphql.NewList(expenseType)},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"slug":         &graphql.Field{Type: graphql.String},
			"title":        &graphql.Field{Type: graphql.String},
			"description":  &graphql.Field{Type: graphql.String},
			"start_date":   &graphql.Field{Type: graphql.DateTime},
			"end_date":     &graphql.Field{Type: graphql.DateTime},
			"companions":   &graphql.Field{Type: graphql.NewList(graphql.String)},
			"destinations": &graphql.Field{Type: graphql.NewList(destinationType)},
		},
	})

	companionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CompanionCount",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"trips": &graphql.Field{Type: graphql.Int},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripStats",
		Fields: graphql.Fields{
			"trips":              &graphql.Field{Type: graphql.Int},
			"countries":          &graphql.Field{Type: graphql.Int},
			"cities":             &graphql.Field{Type: graphql.Int},
			"nights":             &graphql.Field{Type: graphql.Int},
			"distance_km":        &graphql.Field{Type: graphql.Float},
			"expenses_total":     &graphql.Field{Type: graphql.Float},
			"longest_trip_days":  &graphql.Field{Type: graphql.Int},
			"shortest_trip_days": &graphql.Field{Type: graphql.Int},
			"costliest_trip":     &graphql.Field{Type: graphql.String},
			"top_companions":     &graphql.Field{Type: graphql.NewList(companionType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"trips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "List all trips, optionally filtered by year",
				Args: graphql.FieldConfigArgument{
					"year": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if year, ok := p.Args["year"].(int); ok && year != 0 {
						return deps.Trips.ListByYear(p.Context, year)
					}
					return deps.Trips.List(p.Context)
				},
			},
			"trip": &graphql.Field{
				Type:        tripType,
				Description: "Get a trip by slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["slug"].(string)
					return deps.Trips.GetBySlug(p.Context, slug)
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Aggregate travel statistics across all trips",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stats.Summary(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
