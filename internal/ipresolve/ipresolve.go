// Package ipresolve looks up the public address of the caller through an
// ipify-style JSON endpoint.
package ipresolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultURL is the public ipify endpoint.
const DefaultURL = "https://api.ipify.org?format=json"

// Resolver queries an endpoint that answers {"ip": "..."}.
type Resolver struct {
	url    string
	client *http.Client
}

// New returns a Resolver. Empty url selects DefaultURL; timeout bounds each call.
func New(url string, timeout time.Duration) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{url: url, client: &http.Client{Timeout: timeout}}
}

// Resolve returns the address reported by the endpoint.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipresolve: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("ipresolve: decode: %w", err)
	}
	if net.ParseIP(body.IP) == nil {
		return "", fmt.Errorf("ipresolve: bad address %q", body.IP)
	}
	return body.IP, nil
}
