package github

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// Paginate fetches seedURL and every page reachable through rel="next"
// links, returning all object elements in delivery order. Any page failure
// aborts the whole walk.
func (c *Client) Paginate(ctx context.Context, seedURL string) ([]gjson.Result, error) {
	var results []gjson.Result
	seen := make(map[string]bool)

	next := seedURL
	for next != "" {
		if err := ctx.Err(); err != nil {
			return nil, &TransportError{URL: next, Err: err}
		}
		seen[next] = true

		page, err := c.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		results = append(results, page.Items()...)

		if rl := page.RateLimit; rl.Low() {
			c.logger.Warn("GitHub rate limit running low",
				"remaining", rl.Remaining,
				"limit", rl.Limit,
				"resets_in", rl.WaitDuration().Round(time.Second),
			)
		}

		next = ParseLinkHeader(page.Link)["next"]
		if seen[next] {
			c.logger.Warn("pagination loop detected, stopping", "url", next)
			break
		}
	}

	return results, nil
}
