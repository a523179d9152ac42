package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// ParsePagination reads offset/limit query params, clamping limit to
// maxPageLimit. Station lists on big networks run to a few thousand rows;
// anything larger should filter by system first.
func ParsePagination(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", defaultPageLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	return offset, limit
}

// PageBounds returns the [start, end) slice window for the given page.
func PageBounds(offset, limit, total int) (int, int) {
	if offset >= total {
		return 0, 0
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

// SetLinkHeaders adds RFC 8288 Link headers (first/prev/next/last) using the
// current request path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	link := func(off int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, base, off, p.Limit, rel)
	}

	links := []string{link(0, "first")}

	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, link(prev, "prev"))
	}

	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}

	last := p.Total - p.Limit
	if last < 0 {
		last = 0
	}
	links = append(links, link(last, "last"))

	c.Set("Link", strings.Join(links, ", "))
}
