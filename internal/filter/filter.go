// Package filter implements the admission decision for discovered listings.
// Admit is a pure function of its inputs so it can be tested without any
// network machinery.
package filter

import (
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// Admit reports whether a listing passes the configured thresholds at the
// given instant: liquidity and 24h volume at or above the minimums, and the
// pair no older than the maximum age.
//
// Listings with missing or unparseable feed fields arrive with zero
// liquidity/volume and a zero creation timestamp (infinite age), so they
// are rejected here rather than aborting the scan of other listings.
func Admit(l domain.Listing, c domain.FilterCriteria, now time.Time) bool {
	if l.LiquidityUSD < c.MinLiquidityUSD {
		return false
	}
	if l.Volume24hUSD < c.MinVolumeUSD {
		return false
	}
	return l.Age(now) <= c.MaxAge
}
