// Package solana talks to a Solana JSON-RPC node: it signs and sends the
// swap transactions built by the router and answers the signature status
// queries reconciliation depends on.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

const (
	// confirmPollInterval is how often the client polls for confirmation
	// after a successful send.
	confirmPollInterval = 2 * time.Second
)

// Client is a minimal Solana JSON-RPC client.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	signer     *Signer

	// submitTimeout bounds the post-send confirmation wait. Expiry does not
	// mean failure: the submission is reported as unknown and left to the
	// reconciler.
	submitTimeout time.Duration
}

// NewClient creates a Solana RPC client signing with the given keypair.
// signer may be nil for read-only use; only submission requires it.
func NewClient(rpcURL string, signer *Signer, submitTimeout time.Duration) *Client {
	return &Client{
		rpcURL: rpcURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:        signer,
		submitTimeout: submitTimeout,
	}
}

// WalletAddress returns the base58 public key of the signing wallet.
func (c *Client) WalletAddress() string {
	return c.signer.PublicKeyBase58()
}

// SubmitBase58Transaction signs the unsigned transaction and sends it.
//
// Failures before the send (decode, signing) are plain errors: nothing
// reached the ledger and the attempt is safely retryable. From the send
// onward the result is always a SubmissionOutcome. A transport failure
// after the send started, or a confirmation wait that expires, yields
// SubmissionUnknown with the signature attached so the reconciler can
// resolve it against the ledger. An explicit RPC rejection yields
// SubmissionRejected.
func (c *Client) SubmitBase58Transaction(ctx context.Context, txBase58 string) (domain.SubmissionOutcome, error) {
	signed, signature, err := signTransaction(txBase58, c.signer)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}

	var result string
	err = c.call(ctx, "sendTransaction", []any{
		signed,
		map[string]any{"encoding": "base58", "skipPreflight": true},
	}, &result)

	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			// The node looked at the transaction and said no.
			return domain.SubmissionOutcome{
				Status:      domain.SubmissionRejected,
				TxSignature: signature,
				Reason:      rpcErr.Message,
			}, nil
		}
		// Transport failed mid-flight; the transaction may have landed.
		return domain.SubmissionOutcome{
			Status:      domain.SubmissionUnknown,
			TxSignature: signature,
			Reason:      fmt.Sprintf("send failed: %v", err),
		}, nil
	}

	return c.awaitConfirmation(ctx, signature)
}

// awaitConfirmation polls signature status until the transaction is
// confirmed, fails, or the submit timeout expires.
func (c *Client) awaitConfirmation(ctx context.Context, signature string) (domain.SubmissionOutcome, error) {
	deadline := time.NewTimer(c.submitTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.SubmissionOutcome{
				Status:      domain.SubmissionUnknown,
				TxSignature: signature,
				Reason:      "confirmation wait cancelled",
			}, nil
		case <-deadline.C:
			return domain.SubmissionOutcome{
				Status:      domain.SubmissionUnknown,
				TxSignature: signature,
				Reason:      "confirmation wait expired",
			}, nil
		case <-ticker.C:
			status, err := c.SignatureStatus(ctx, signature)
			if err != nil {
				continue // Status polling failures do not decide the outcome.
			}
			switch status {
			case domain.TxStatusConfirmed:
				return domain.SubmissionOutcome{
					Status:      domain.SubmissionConfirmed,
					TxSignature: signature,
				}, nil
			case domain.TxStatusFailed:
				return domain.SubmissionOutcome{
					Status:      domain.SubmissionRejected,
					TxSignature: signature,
					Reason:      "transaction failed on chain",
				}, nil
			case domain.TxStatusNotFound:
				// Not visible yet; keep polling.
			}
		}
	}
}

// SignatureStatus reports the ledger-side state of a submitted transaction.
func (c *Client) SignatureStatus(ctx context.Context, txSignature string) (domain.TxStatus, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}

	err := c.call(ctx, "getSignatureStatuses", []any{
		[]string{txSignature},
		map[string]any{"searchTransactionHistory": true},
	}, &result)
	if err != nil {
		return "", domain.Transient("solana: signature status", err)
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return domain.TxStatusNotFound, nil
	}

	entry := result.Value[0]
	if len(entry.Err) > 0 && !bytes.Equal(entry.Err, []byte("null")) {
		return domain.TxStatusFailed, nil
	}

	switch entry.ConfirmationStatus {
	case "confirmed", "finalized":
		return domain.TxStatusConfirmed, nil
	default:
		// Processed but not yet confirmed.
		return domain.TxStatusNotFound, nil
	}
}

// --------------------------------------------------------------------------
// JSON-RPC plumbing
// --------------------------------------------------------------------------

// rpcError is an error response from the RPC node, as opposed to a
// transport failure reaching it.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC request. RPC-level errors are returned as
// *rpcError; everything else is a transport error.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("solana: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("solana: %s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana: %s: HTTP %d", method, resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("solana: %s: decode response: %w", method, err)
	}
	if parsed.Error != nil {
		return parsed.Error
	}

	if result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("solana: %s: decode result: %w", method, err)
		}
	}
	return nil
}
