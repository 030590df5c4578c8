// Package dexscreener implements the domain.MarketFeed collaborator against
// the DEX Screener public API: REST search for listing discovery and a
// per-pair WebSocket stream for live prices.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// Client is the REST client for DEX Screener listing discovery.
type Client struct {
	apiHost    string
	wsHost     string
	httpClient *http.Client
}

// NewClient creates a DEX Screener client.
//
// apiHost is the REST root, e.g. "https://api.dexscreener.com".
// wsHost is the WebSocket root, e.g. "wss://api.dexscreener.com".
func NewClient(apiHost, wsHost string) *Client {
	return &Client{
		apiHost: apiHost,
		wsHost:  wsHost,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ActiveListings fetches the current pair batch for the given chain via the
// search endpoint and converts it to domain listings. Pairs belonging to
// other chains are dropped. Transport failures, 429, and 5xx responses are
// reported as TransientError so the admission loop logs and resumes.
func (c *Client) ActiveListings(ctx context.Context, chain string) ([]domain.Listing, error) {
	const op = "dexscreener: list pairs"

	params := url.Values{}
	params.Set("q", chain)
	endpoint := c.apiHost + "/latest/dex/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Transient(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transient(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.Transient(op, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, domain.Transient(op, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, truncate(body, 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	listings := make([]domain.Listing, 0, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		if p.ChainID != chain || p.PairAddress == "" {
			continue
		}
		listings = append(listings, p.toDomainListing())
	}
	return listings, nil
}

// truncate limits response bodies quoted in error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
