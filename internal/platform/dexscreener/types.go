package dexscreener

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// looseFloat decodes a JSON value that the DEX Screener API serves
// inconsistently as either a number or a numeric string. Missing, null, or
// unparseable values decode to zero rather than failing the whole payload,
// so one malformed pair never aborts a scan.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = looseFloat(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*f = looseFloat(v)
	return nil
}

// apiToken is one side of a pair in the search response.
type apiToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// apiPair is a single pair entry from /latest/dex/search.
type apiPair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   apiToken   `json:"baseToken"`
	QuoteToken  apiToken   `json:"quoteToken"`
	PriceUSD    looseFloat `json:"priceUsd"`
	Liquidity   struct {
		USD looseFloat `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 looseFloat `json:"h24"`
	} `json:"volume"`
	// PairCreatedAt is Unix milliseconds; zero when absent.
	PairCreatedAt int64 `json:"pairCreatedAt"`
}

// searchResponse is the envelope of /latest/dex/search.
type searchResponse struct {
	Pairs []apiPair `json:"pairs"`
}

// toDomainListing converts an API pair to the domain snapshot. Absent
// fields map to zero values, which the filter rejects.
func (p apiPair) toDomainListing() domain.Listing {
	l := domain.Listing{
		PairAddress:  p.PairAddress,
		ChainID:      p.ChainID,
		DexID:        p.DexID,
		BaseToken:    domain.Token{Address: p.BaseToken.Address, Symbol: p.BaseToken.Symbol},
		QuoteToken:   domain.Token{Address: p.QuoteToken.Address, Symbol: p.QuoteToken.Symbol},
		LiquidityUSD: float64(p.Liquidity.USD),
		Volume24hUSD: float64(p.Volume.H24),
		PriceUSD:     float64(p.PriceUSD),
	}
	if p.PairCreatedAt > 0 {
		l.PairCreatedAt = time.UnixMilli(p.PairCreatedAt).UTC()
	}
	return l
}

// wsTick is a single message on a pair price stream.
type wsTick struct {
	PriceUSD looseFloat `json:"priceUsd"`
}

func (t wsTick) price() float64 {
	return float64(t.PriceUSD)
}
