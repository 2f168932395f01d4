package storage

// Candle represents one persisted OHLCV bar.
type Candle struct {
	Symbol    string
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// OrderBookSample represents one depth-imbalance snapshot.
type OrderBookSample struct {
	Symbol    string
	Timestamp int64
	BidVolume float64
	AskVolume float64
}

// OpenInterestSample represents one open-interest observation.
type OpenInterestSample struct {
	Symbol       string
	Timestamp    int64
	OpenInterest float64
}

// FundingRateSample represents one funding-rate observation.
type FundingRateSample struct {
	Symbol    string
	Timestamp int64
	Rate      float64
}

// MacroIndexSample represents one daily macro index close.
type MacroIndexSample struct {
	Symbol    string
	Timestamp int64
	Value     float64
}
