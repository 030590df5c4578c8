package jupiter

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// looseUint decodes a JSON value that may be a number or a numeric string.
// The quote API reports lamport amounts as strings.
type looseUint uint64

func (u *looseUint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*u = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*u = 0
			return nil
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			*u = 0
			return nil
		}
		*u = looseUint(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		*u = 0
		return nil
	}
	*u = looseUint(v)
	return nil
}

// apiRoute is the subset of a quote route the bot reads. The full route is
// kept raw and echoed back to the swap-build endpoint.
type apiRoute struct {
	InputMint  string    `json:"inputMint"`
	OutputMint string    `json:"outputMint"`
	InAmount   looseUint `json:"inAmount"`
	OutAmount  looseUint `json:"outAmount"`
}

// quoteResponse wraps the route list returned by the quote endpoint.
type quoteResponse struct {
	Data []json.RawMessage `json:"data"`
}

// swapRequest is the payload for the swap-build endpoint.
type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

// swapResponse carries the unsigned transaction built by the router.
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}
