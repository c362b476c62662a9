package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern, e.g. /api/fountains/:id
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Successor endpoint (optional)
}

// legacyFountainRoutes are the pre-/v1 fountain endpoints kept as aliases.
var legacyFountainRoutes = []DeprecatedRoute{
	{Path: "/api/fountains/map-view", SunsetDate: legacySunset, Alternative: "/v1/fountains/map-view"},
	{Path: "/api/fountains/counts", SunsetDate: legacySunset, Alternative: "/v1/fountains/counts"},
	{Path: "/api/fountains/bounds", SunsetDate: legacySunset, Alternative: "/v1/fountains/bounds"},
	{Path: "/api/fountains/:id", SunsetDate: legacySunset, Alternative: "/v1/fountains/:id"},
}

var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, d := range deprecated {
			params, ok := matchPattern(path, d.Path)
			if !ok {
				continue
			}

			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, expand(d.Alternative, params)))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}

// matchPattern matches path against a route pattern with :param segments
// and returns the captured parameters.
func matchPattern(path, pattern string) (map[string]string, bool) {
	ps := strings.Split(strings.Trim(path, "/"), "/")
	qs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(qs) {
		return nil, false
	}

	params := map[string]string{}
	for i, seg := range qs {
		if strings.HasPrefix(seg, ":") {
			if ps[i] == "" {
				return nil, false
			}
			params[seg] = ps[i]
			continue
		}
		if seg != ps[i] {
			return nil, false
		}
	}
	return params, true
}

// expand substitutes captured :param values into pattern.
func expand(pattern string, params map[string]string) string {
	for k, v := range params {
		pattern = strings.ReplaceAll(pattern, k, v)
	}
	return pattern
}
