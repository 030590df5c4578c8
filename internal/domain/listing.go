package domain

import "time"

// Token identifies one side of a trading pair on Solana.
type Token struct {
	Address string
	Symbol  string
}

// Listing is an immutable snapshot of a discovered trading pair. It is
// produced by the market feed and consumed once by the filter; fields the
// feed could not parse are left at their zero values, which the filter
// treats as a rejection rather than an error.
type Listing struct {
	PairAddress   string
	ChainID       string
	DexID         string
	BaseToken     Token
	QuoteToken    Token
	LiquidityUSD  float64
	Volume24hUSD  float64
	PriceUSD      float64
	PairCreatedAt time.Time
}

// Age returns how long the pair has existed at the given instant. A zero
// creation timestamp yields an effectively infinite age so the listing
// never passes an age filter.
func (l Listing) Age(now time.Time) time.Duration {
	if l.PairCreatedAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(l.PairCreatedAt)
}

// FilterCriteria are the admission thresholds applied to every discovered
// listing. They are loaded from configuration at process start and never
// change for the lifetime of the process.
type FilterCriteria struct {
	MinLiquidityUSD float64
	MinVolumeUSD    float64
	MaxAge          time.Duration
}

// PriceTick is a single observation from a pair's live price stream.
type PriceTick struct {
	PairAddress string
	PriceUSD    float64
	Timestamp   time.Time
}
