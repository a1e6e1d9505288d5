package pricefeed

import (
	"math"
	"strings"

	"fxdash/internal/api"
)

// Change is the estimated session move of a pair, derived from the latest
// quote. Pips and Percent are nil when the quote lacks the data to compute
// them.
type Change struct {
	Pips    *float64 `json:"pips"`
	Percent *float64 `json:"percent"`
}

// CalculateChange estimates the day's move for a quote. The reference open
// is taken as the midpoint of the session high/low and compared to the
// current mid price. Pips are rounded to one decimal, percent to two.
func CalculateChange(q api.Quote) Change {
	if q.High == 0 || q.Low == 0 || q.Bid == 0 || q.Ask == 0 {
		return Change{}
	}

	open := (q.High + q.Low) / 2
	if open == 0 {
		return Change{}
	}
	mid := (q.Bid + q.Ask) / 2

	pips := roundTo((mid-open)/pipSize(q.Pair), 1)
	percent := roundTo((mid-open)/open*100, 2)
	return Change{Pips: &pips, Percent: &percent}
}

// pipSize returns the price increment of one pip. JPY-quoted pairs trade
// with two decimal places, everything else with four.
func pipSize(pair string) float64 {
	if strings.HasSuffix(pair, "_JPY") {
		return 0.01
	}
	return 0.0001
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
