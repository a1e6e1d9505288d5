package api

// Account is the trading account snapshot.
type Account struct {
	// Currency is the account home currency (e.g., "USD").
	Currency string `json:"currency"`

	// Balance is the settled account balance.
	Balance float64 `json:"balance"`

	// NAV is balance plus unrealized P/L.
	NAV float64 `json:"nav"`

	// UnrealizedPL is the floating profit/loss of open trades.
	UnrealizedPL float64 `json:"unrealizedPL"`

	// MarginUsed is the margin currently committed to open trades.
	MarginUsed float64 `json:"marginUsed"`

	// MarginAvailable is the margin still available for new trades.
	MarginAvailable float64 `json:"marginAvailable"`

	// OpenTradeCount is the number of currently open trades.
	OpenTradeCount int `json:"openTradeCount"`
}

// Trade is a single open or closed trade.
type Trade struct {
	ID           string  `json:"id"`
	Pair         string  `json:"pair"`
	Units        int64   `json:"units"`
	Side         string  `json:"side"`
	OpenPrice    float64 `json:"openPrice"`
	ClosePrice   float64 `json:"closePrice,omitempty"`
	CurrentPrice float64 `json:"currentPrice,omitempty"`
	PL           float64 `json:"pl"`
	OpenTime     string  `json:"openTime"`
	CloseTime    string  `json:"closeTime,omitempty"`
}

// BotStatus describes one trading bot.
type BotStatus struct {
	Name       string `json:"name"`
	Pair       string `json:"pair"`
	Strategy   string `json:"strategy"`
	Running    bool   `json:"running"`
	LastSignal string `json:"lastSignal,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// Quote is one entry of the batch spread lookup. One quote per watched
// pair, replaced wholesale each poll cycle.
type Quote struct {
	Pair      string  `json:"pair"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Spread    float64 `json:"spread"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Timestamp int64   `json:"timestamp"`

	// Error marks a pair whose lookup failed inside an otherwise
	// successful batch.
	Error bool `json:"error,omitempty"`
}
