package backend

import (
	"context"
	"net/http"

	"resumelens/internal/types"
)

// Health reports the backend's own health
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	resp, err := c.send(ctx, request{
		op:     "health",
		method: http.MethodGet,
		path:   "/health",
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[types.HealthStatus](resp, "health")
}
