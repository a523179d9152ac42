package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/emberline/faregate/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Position",
		Fields: graphql.Fields{
			"world": &graphql.Field{Type: graphql.String},
			"x":     &graphql.Field{Type: graphql.Float},
			"y":     &graphql.Field{Type: graphql.Float},
			"z":     &graphql.Field{Type: graphql.Float},
		},
	})

	systemType := graphql.NewObject(graphql.ObjectConfig{
		Name: "System",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"max_fare": &graphql.Field{Type: graphql.Float},
			"balance": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sys, ok := p.Source.(domain.TransitSystem)
					if !ok {
						return nil, nil
					}
					return deps.Ledger.BalanceOf(sys.ID), nil
				},
			},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"system_id": &graphql.Field{Type: graphql.String},
			"zone":      &graphql.Field{Type: graphql.String},
			"status":    &graphql.Field{Type: graphql.String},
			"position":  &graphql.Field{Type: positionType},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"system_id": &graphql.Field{Type: graphql.String},
			"stations":  &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	transactionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Transaction",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"rider_id":     &graphql.Field{Type: graphql.String},
			"system_id":    &graphql.Field{Type: graphql.String},
			"from_station": &graphql.Field{Type: graphql.String},
			"to_station":   &graphql.Field{Type: graphql.String},
			"amount":       &graphql.Field{Type: graphql.Float},
			"type":         &graphql.Field{Type: graphql.String},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"kind":         &graphql.Field{Type: graphql.String},
			"id":           &graphql.Field{Type: graphql.String},
			"revenue":      &graphql.Field{Type: graphql.Float},
			"transactions": &graphql.Field{Type: graphql.Int},
			"entries":      &graphql.Field{Type: graphql.Int},
			"exits":        &graphql.Field{Type: graphql.Int},
			"flat_rates":   &graphql.Field{Type: graphql.Int},
			"hourly":       &graphql.Field{Type: graphql.NewList(graphql.Int)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"systems": &graphql.Field{
				Type:        graphql.NewList(systemType),
				Description: "List all configured transit systems",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Systems.List(), nil
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "List stations in a system",
				Args: graphql.FieldConfigArgument{
					"system_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					systemID := p.Args["system_id"].(string)
					return deps.Stations.ListBySystem(systemID), nil
				},
			},
			"station": &graphql.Field{
				Type:        stationType,
				Description: "Get a station by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.Get(p.Args["id"].(string))
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List routes in a system",
				Args: graphql.FieldConfigArgument{
					"system_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					systemID := p.Args["system_id"].(string)
					return deps.Routes.ListBySystem(systemID), nil
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Cumulative statistics for a system, station, or route",
				Args: graphql.FieldConfigArgument{
					"kind": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "system"},
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kind := domain.StatsKind(p.Args["kind"].(string))
					id := p.Args["id"].(string)
					return deps.Stats.Snapshot(kind, id), nil
				},
			},
			"riderTransactions": &graphql.Field{
				Type:        graphql.NewList(transactionType),
				Description: "A rider's transactions, most recent first",
				Args: graphql.FieldConfigArgument{
					"rider_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					riderID := p.Args["rider_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Ledger.ByRider(riderID, limit), nil
				},
			},
			"systemBalance": &graphql.Field{
				Type:        graphql.Float,
				Description: "A system's running revenue balance",
				Args: graphql.FieldConfigArgument{
					"system_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Ledger.BalanceOf(p.Args["system_id"].(string)), nil
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
