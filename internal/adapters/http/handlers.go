package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tapmap/internal/adapters/http/wire"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

// MapViewHandler answers a viewport with either count rows or fountain rows,
// depending on the area of the requested bounds.
func MapViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req wire.MapViewRequest
		if err := wire.DecodeStrict(c.Body(), &req); err != nil {
			return respondError(c, err)
		}
		q, err := req.Query()
		if err != nil {
			return respondError(c, err)
		}

		plan, err := deps.MapView.Plan(c.UserContext(), q)
		if err != nil {
			return respondError(c, err)
		}

		c.Set("X-Map-Mode", plan.Mode())
		c.Set("X-Map-Precision", strconv.Itoa(plan.Decision.Precision))
		return c.JSON(wire.Rows(usecases.Merge(plan)))
	}
}

// CountsHandler aggregates at the precision named in the request.
func CountsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req wire.CountsRequest
		if err := wire.DecodeStrict(c.Body(), &req); err != nil {
			return respondError(c, err)
		}
		q, err := req.Query()
		if err != nil {
			return respondError(c, err)
		}

		precision := usecases.DefaultCountsPrecision
		if req.GeohashPrecision != nil {
			precision = *req.GeohashPrecision
		}

		groups, err := deps.Fountains.Counts(c.UserContext(), q.BBox, q.Filters, precision)
		if err != nil {
			return respondError(c, err)
		}
		c.Set("X-Map-Mode", usecases.ModeAggregate)
		c.Set("X-Map-Precision", strconv.Itoa(precision))
		return c.JSON(wire.CountRows(groups))
	}
}

// BoundsHandler returns individual fountains regardless of viewport size.
func BoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req wire.BoundsRequest
		if err := wire.DecodeStrict(c.Body(), &req); err != nil {
			return respondError(c, err)
		}
		q, err := req.Query()
		if err != nil {
			return respondError(c, err)
		}

		maxResults := usecases.DefaultBoundsResults
		if req.MaxResults != nil {
			if *req.MaxResults <= 0 {
				return errBadRequest(c, "max_results must be positive")
			}
			maxResults = *req.MaxResults
		}

		records, err := deps.Fountains.InBounds(c.UserContext(), q.BBox, q.Filters, maxResults)
		if err != nil {
			return respondError(c, err)
		}
		c.Set("X-Map-Mode", usecases.ModeIndividual)
		return c.JSON(wire.FountainRows(records))
	}
}

// GetFountainHandler returns a single fountain by id.
func GetFountainHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "fountain id is required")
		}
		if len(id) > 128 {
			return errBadRequest(c, "fountain id too long")
		}

		f, err := deps.Fountains.GetByID(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(wire.NewFountainDetail(*f))
	}
}
