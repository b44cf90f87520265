// services/reward.go
package services

import "math"

// Fallback reward configuration, applied when an opportunity was created
// without explicit values. Kept here so the defaults exist in exactly one
// place instead of at call sites.
const (
	DefaultCoinsPerHour = 10.0
	DefaultMaxCoins     = 100.0
)

// CoinsForHours maps confirmed volunteer hours to a coin award:
// min(round(hours × coinsPerHour), maxCoins). Negative or missing hours
// count as zero; non-positive rate/cap fall back to the defaults. The
// result is always a non-negative integer ≤ the effective cap.
func CoinsForHours(hours, coinsPerHour, maxCoins float64) int64 {
	if hours < 0 {
		hours = 0
	}
	if coinsPerHour <= 0 {
		coinsPerHour = DefaultCoinsPerHour
	}
	if maxCoins <= 0 {
		maxCoins = DefaultMaxCoins
	}

	coins := math.Round(hours * coinsPerHour)
	if coins > maxCoins {
		coins = math.Round(maxCoins)
	}
	if coins < 0 {
		coins = 0
	}
	return int64(coins)
}
