package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/tapmap/internal/adapters/http/wire"
	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to the map-view services.
// Field names follow the REST wire rows.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	countType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CountCell",
		Fields: graphql.Fields{
			"result_type":    &graphql.Field{Type: graphql.String},
			"geohash_prefix": &graphql.Field{Type: graphql.String},
			"fountain_count": &graphql.Field{Type: graphql.Int},
			"center_lat":     &graphql.Field{Type: graphql.Float},
			"center_lng":     &graphql.Field{Type: graphql.Float},
		},
	})

	fountainType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Fountain",
		Fields: graphql.Fields{
			"result_type":   &graphql.Field{Type: graphql.String},
			"fountain_id":   &graphql.Field{Type: graphql.String},
			"fountain_name": &graphql.Field{Type: graphql.String},
			"latitude":      &graphql.Field{Type: graphql.Float},
			"longitude":     &graphql.Field{Type: graphql.Float},
			"geohash":       &graphql.Field{Type: graphql.String},
			"status":        &graphql.Field{Type: graphql.String},
			"water_quality": &graphql.Field{Type: graphql.String},
			"accessibility": &graphql.Field{Type: graphql.String},
		},
	})

	mapResultType := graphql.NewUnion(graphql.UnionConfig{
		Name:  "MapResult",
		Types: []*graphql.Object{countType, fountainType},
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			switch p.Value.(type) {
			case wire.CountRow:
				return countType
			case wire.FountainRow:
				return fountainType
			}
			return nil
		},
	})

	viewportArgs := graphql.FieldConfigArgument{
		"min_lat":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"max_lat":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"min_lng":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"max_lng":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"statuses":        &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
		"water_qualities": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
		"accessibilities": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
		"types":           &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
		"force_aggregate": &graphql.ArgumentConfig{Type: graphql.Boolean},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"mapView": &graphql.Field{
				Type:        graphql.NewList(mapResultType),
				Description: "Count cells or individual fountains for a viewport",
				Args:        viewportArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					results, err := deps.MapView.MapView(p.Context, viewportFromArgs(p.Args))
					if err != nil {
						return nil, err
					}
					return wire.Rows(results), nil
				},
			},
			"fountainCounts": &graphql.Field{
				Type:        graphql.NewList(countType),
				Description: "Count cells at an explicit geohash precision",
				Args: withArgs(viewportArgs, graphql.FieldConfigArgument{
					"geohash_precision": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultCountsPrecision},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := viewportFromArgs(p.Args)
					groups, err := deps.Fountains.Counts(p.Context, q.BBox, q.Filters, p.Args["geohash_precision"].(int))
					if err != nil {
						return nil, err
					}
					return wire.CountRows(groups), nil
				},
			},
			"fountain": &graphql.Field{
				Type:        fountainType,
				Description: "Get a fountain by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := deps.Fountains.GetByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return wire.NewFountainRow(*f), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
		Types: []graphql.Type{countType, fountainType},
	})
}

func withArgs(base, extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	out := graphql.FieldConfigArgument{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// viewportFromArgs reads viewport arguments. Bounds are non-null in the schema.
func viewportFromArgs(args map[string]interface{}) domain.ViewportQuery {
	q := domain.ViewportQuery{
		BBox: domain.BoundingBox{
			South: args["min_lat"].(float64),
			North: args["max_lat"].(float64),
			West:  args["min_lng"].(float64),
			East:  args["max_lng"].(float64),
		},
		Filters: domain.Filters{
			Statuses:        stringList(args["statuses"]),
			WaterQualities:  stringList(args["water_qualities"]),
			Accessibilities: stringList(args["accessibilities"]),
			Types:           stringList(args["types"]),
		},
	}
	if v, ok := args["force_aggregate"].(bool); ok {
		q.ForceAggregate = &v
	}
	return q
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
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
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
