// Package jupiter implements the domain.SwapRouter collaborator against the
// Jupiter quote router: route discovery via the quote endpoint and swap
// execution via the swap-build endpoint plus an injected chain submitter.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// TxSubmitter signs and sends a base58-encoded unsigned transaction and
// classifies the result. Implemented by the Solana RPC client.
type TxSubmitter interface {
	SubmitBase58Transaction(ctx context.Context, txBase58 string) (domain.SubmissionOutcome, error)
}

// Client is the Jupiter quote router client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	submitter  TxSubmitter
}

// NewClient creates a Jupiter client.
//
// baseURL is the quote API root, e.g. "https://quote-api.jup.ag/v4".
func NewClient(baseURL string, submitter TxSubmitter) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		submitter: submitter,
	}
}

// GetQuote fetches the best route for swapping amount of inputMint into
// outputMint. An empty route list is reported as ErrNoRoute, which is
// definitive for this attempt and never retried. Transport failures, 429,
// and 5xx responses are reported as TransientError.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (domain.Quote, error) {
	const op = "jupiter: get quote"

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))

	body, err := c.doGet(ctx, "/quote?"+params.Encode(), op)
	if err != nil {
		return domain.Quote{}, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(parsed.Data) == 0 {
		return domain.Quote{}, fmt.Errorf("%s: %s -> %s: %w", op, inputMint, outputMint, domain.ErrNoRoute)
	}

	// The quote endpoint orders routes best-first.
	raw := parsed.Data[0]
	var route apiRoute
	if err := json.Unmarshal(raw, &route); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: decode route: %w", op, err)
	}

	return domain.Quote{
		InputMint:  route.InputMint,
		OutputMint: route.OutputMint,
		InAmount:   uint64(route.InAmount),
		OutAmount:  uint64(route.OutAmount),
		Route:      []byte(raw),
	}, nil
}

// SubmitSwap builds the swap transaction for the quoted route and hands it
// to the chain submitter for signing and sending. Failures while building
// the transaction happen strictly before anything reaches the ledger, so
// they are returned as plain errors with no outcome. Once the submitter
// takes over, the result is always a SubmissionOutcome.
func (c *Client) SubmitSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SubmissionOutcome, error) {
	const op = "jupiter: build swap"

	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:    json.RawMessage(quote.Route),
		UserPublicKey:    wallet,
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return domain.SubmissionOutcome{}, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	body, err := c.doPost(ctx, "/swap", reqBody, op)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}

	var parsed swapResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.SubmissionOutcome{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if parsed.SwapTransaction == "" {
		return domain.SubmissionOutcome{}, fmt.Errorf("%s: empty swap transaction", op)
	}

	return c.submitter.SubmitBase58Transaction(ctx, parsed.SwapTransaction)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, op)
}

func (c *Client) doPost(ctx context.Context, path string, body []byte, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, op)
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
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

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
