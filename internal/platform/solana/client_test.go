package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer, err := NewSigner(base58.Encode(priv))
	require.NoError(t, err)
	return signer
}

// unsignedTx builds a wire transaction with one empty signature slot.
func unsignedTx(message []byte) string {
	raw := make([]byte, 1+ed25519.SignatureSize+len(message))
	raw[0] = 1
	copy(raw[1+ed25519.SignatureSize:], message)
	return base58.Encode(raw)
}

func TestNewSignerKeyFormats(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	full, err := NewSigner(base58.Encode(priv))
	require.NoError(t, err)

	seed, err := NewSigner(base58.Encode(priv.Seed()))
	require.NoError(t, err)

	assert.Equal(t, full.PublicKeyBase58(), seed.PublicKeyBase58())

	_, err = NewSigner(base58.Encode([]byte("short")))
	assert.Error(t, err)

	_, err = NewSigner("not!base58!")
	assert.Error(t, err)
}

func TestSignTransaction(t *testing.T) {
	signer := newTestSigner(t)
	message := []byte("swap message bytes")

	signed, signature, err := signTransaction(unsignedTx(message), signer)
	require.NoError(t, err)

	raw, err := base58.Decode(signed)
	require.NoError(t, err)
	require.Equal(t, byte(1), raw[0])

	sig := raw[1 : 1+ed25519.SignatureSize]
	assert.Equal(t, message, raw[1+ed25519.SignatureSize:])

	pub, err := base58.Decode(signer.PublicKeyBase58())
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), message, sig))

	sigRaw, err := base58.Decode(signature)
	require.NoError(t, err)
	assert.Equal(t, sig, sigRaw)
}

func TestSignTransactionRejectsMalformed(t *testing.T) {
	signer := newTestSigner(t)

	// Zero signature slots.
	_, _, err := signTransaction(base58.Encode([]byte{0}), signer)
	assert.Error(t, err)

	// Declares one slot but is too short to hold it.
	_, _, err = signTransaction(base58.Encode([]byte{1, 2, 3}), signer)
	assert.Error(t, err)
}

func TestDecodeCompactU16(t *testing.T) {
	tests := []struct {
		input    []byte
		value    int
		consumed int
	}{
		{input: []byte{0x00}, value: 0, consumed: 1},
		{input: []byte{0x05}, value: 5, consumed: 1},
		{input: []byte{0x7f}, value: 127, consumed: 1},
		{input: []byte{0x80, 0x01}, value: 128, consumed: 2},
		{input: []byte{0xff, 0x7f}, value: 16383, consumed: 2},
		{input: []byte{0x80, 0x80, 0x03}, value: 49152, consumed: 3},
	}

	for _, tt := range tests {
		value, consumed, err := decodeCompactU16(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.value, value)
		assert.Equal(t, tt.consumed, consumed)
	}

	_, _, err := decodeCompactU16(nil)
	assert.Error(t, err)

	_, _, err = decodeCompactU16([]byte{0x80, 0x80})
	assert.Error(t, err)
}

// rpcHandler routes JSON-RPC methods to per-method handlers.
func rpcHandler(t *testing.T, handlers map[string]func(params []json.RawMessage) (any, *rpcError)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		handler, ok := handlers[req.Method]
		require.True(t, ok, "unexpected RPC method %s", req.Method)

		result, rpcErr := handler(req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": 1}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestSubmitConfirmed(t *testing.T) {
	signer := newTestSigner(t)

	srv := httptest.NewServer(rpcHandler(t, map[string]func([]json.RawMessage) (any, *rpcError){
		"sendTransaction": func(params []json.RawMessage) (any, *rpcError) {
			return "ignored-node-signature", nil
		},
		"getSignatureStatuses": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]any{
				"value": []any{map[string]any{"confirmationStatus": "confirmed", "err": nil}},
			}, nil
		},
	}))
	defer srv.Close()

	client := NewClient(srv.URL, signer, 20*time.Second)
	outcome, err := client.SubmitBase58Transaction(context.Background(), unsignedTx([]byte("msg")))
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionConfirmed, outcome.Status)
	assert.NotEmpty(t, outcome.TxSignature)
}

func TestSubmitRejectedByNode(t *testing.T) {
	signer := newTestSigner(t)

	srv := httptest.NewServer(rpcHandler(t, map[string]func([]json.RawMessage) (any, *rpcError){
		"sendTransaction": func(params []json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32002, Message: "Transaction simulation failed"}
		},
	}))
	defer srv.Close()

	client := NewClient(srv.URL, signer, 20*time.Second)
	outcome, err := client.SubmitBase58Transaction(context.Background(), unsignedTx([]byte("msg")))
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionRejected, outcome.Status)
	assert.Contains(t, outcome.Reason, "simulation failed")
	assert.NotEmpty(t, outcome.TxSignature)
}

func TestSubmitTransportFailureIsUnknown(t *testing.T) {
	signer := newTestSigner(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on.

	client := NewClient(srv.URL, signer, time.Second)
	outcome, err := client.SubmitBase58Transaction(context.Background(), unsignedTx([]byte("msg")))
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionUnknown, outcome.Status)
	assert.NotEmpty(t, outcome.TxSignature)
}

func TestSubmitConfirmationTimeoutIsUnknown(t *testing.T) {
	signer := newTestSigner(t)

	srv := httptest.NewServer(rpcHandler(t, map[string]func([]json.RawMessage) (any, *rpcError){
		"sendTransaction": func(params []json.RawMessage) (any, *rpcError) {
			return "ok", nil
		},
		"getSignatureStatuses": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]any{"value": []any{nil}}, nil
		},
	}))
	defer srv.Close()

	client := NewClient(srv.URL, signer, 100*time.Millisecond)
	outcome, err := client.SubmitBase58Transaction(context.Background(), unsignedTx([]byte("msg")))
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionUnknown, outcome.Status)
	assert.NotEmpty(t, outcome.TxSignature)
}

func TestSubmitMalformedTransactionIsPlainError(t *testing.T) {
	signer := newTestSigner(t)

	client := NewClient("http://unused", signer, time.Second)
	_, err := client.SubmitBase58Transaction(context.Background(), "not!base58!")
	require.Error(t, err)
}

func TestSignatureStatus(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  domain.TxStatus
	}{
		{
			name:  "confirmed",
			value: []any{map[string]any{"confirmationStatus": "confirmed", "err": nil}},
			want:  domain.TxStatusConfirmed,
		},
		{
			name:  "finalized",
			value: []any{map[string]any{"confirmationStatus": "finalized", "err": nil}},
			want:  domain.TxStatusConfirmed,
		},
		{
			name:  "failed",
			value: []any{map[string]any{"confirmationStatus": "confirmed", "err": map[string]any{"InstructionError": []any{0, "Custom"}}}},
			want:  domain.TxStatusFailed,
		},
		{
			name:  "not found",
			value: []any{nil},
			want:  domain.TxStatusNotFound,
		},
		{
			name:  "processed only",
			value: []any{map[string]any{"confirmationStatus": "processed", "err": nil}},
			want:  domain.TxStatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(rpcHandler(t, map[string]func([]json.RawMessage) (any, *rpcError){
				"getSignatureStatuses": func(params []json.RawMessage) (any, *rpcError) {
					return map[string]any{"value": tt.value}, nil
				},
			}))
			defer srv.Close()

			client := NewClient(srv.URL, newTestSigner(t), time.Second)
			status, err := client.SignatureStatus(context.Background(), "sig1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestSignatureStatusTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, newTestSigner(t), time.Second)
	_, err := client.SignatureStatus(context.Background(), "sig1")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err), fmt.Sprintf("want transient, got %v", err))
}
