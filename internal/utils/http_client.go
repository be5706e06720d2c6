package utils

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is a wrapper around the resty.Client HTTP client.
// It embeds *resty.Client to expose all of its methods directly.
//
// Example usage:
//
//	client := utils.NewHTTPClient("http://localhost:3000", 15*time.Second)
//	resp, err := client.R().SetContext(ctx).Get("/health")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates a client bound to baseURL (trailing slashes are
// dropped). A non-positive timeout leaves the resty default (none).
//
// Each call returns an independent client instance with its own
// configuration, connection pool, and state.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New()
	if baseURL != "" {
		client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &HTTPClient{Client: client}
}

// WithBearer sets the Authorization header sent with every request.
// An empty token is ignored.
func (c *HTTPClient) WithBearer(token string) *HTTPClient {
	if token = strings.TrimSpace(token); token != "" {
		c.SetAuthToken(token)
	}
	return c
}
