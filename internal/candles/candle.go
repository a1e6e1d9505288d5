// Package candles folds a stream of incremental price updates into a
// time-ordered OHLC sequence ready for charting.
package candles

// Candle represents one OHLC aggregate over a fixed time bucket.
type Candle struct {
	// Time is the bucket open time in unix seconds.
	Time int64 `json:"time"`

	// Open is the opening price of the bucket.
	Open float64 `json:"open"`

	// High is the highest price during the bucket.
	High float64 `json:"high"`

	// Low is the lowest price during the bucket.
	Low float64 `json:"low"`

	// Close is the latest price in the bucket.
	Close float64 `json:"close"`
}
