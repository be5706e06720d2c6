package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
)

// HTTPProber probes a health endpoint. Any 2xx answer counts as
// reachable.
type HTTPProber struct {
	client *utils.HTTPClient
	url    string
}

// NewHTTPProber creates a prober for url.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: utils.NewHTTPClient("", timeout), url: url}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("probe %s: status %d", p.url, resp.StatusCode())
	}
	return nil
}

// RemoteProber probes by pinging the remote store itself.
type RemoteProber struct {
	remote adapter.RemoteStore
}

func NewRemoteProber(remote adapter.RemoteStore) *RemoteProber {
	return &RemoteProber{remote: remote}
}

func (p *RemoteProber) Probe(ctx context.Context) error {
	return p.remote.Ping(ctx)
}

// NewProber picks the HTTP prober when a health URL is configured and the
// remote ping otherwise.
func NewProber(healthURL string, timeout time.Duration, remote adapter.RemoteStore) Prober {
	if healthURL != "" {
		return NewHTTPProber(healthURL, timeout)
	}
	return NewRemoteProber(remote)
}
