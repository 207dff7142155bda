package processor

import (
	"math"
	"time"

	"optionflow/config"
	"optionflow/models"
)

// Shared fixtures for the processor tests.

func analyticsDefaults() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		Epsilon: 1e-9,
		Weights: config.WeightsConfig{
			PriceOI:     0.4,
			PriceVolume: 0.3,
			OIImbalance: 0.3,
		},
		Thresholds: config.ThresholdsConfig{Strong: 0.7, Moderate: 0.4},
	}
}

func nan() float64 { return math.NaN() }

func at(h, m int) time.Time {
	return time.Date(2026, 8, 25, h, m, 0, 0, time.UTC)
}

type obs struct {
	strike float64
	vol    float64
	oi     float64
	price  float64
	iv     float64
}

func quote(o obs) *models.Quote {
	return &models.Quote{
		Strike:       o.strike,
		Volume:       o.vol,
		OpenInterest: o.oi,
		LastPrice:    o.price,
		ImpliedVol:   o.iv,
	}
}

func row(ts time.Time, call, put *obs) models.Row {
	r := models.Row{Timestamp: ts, OIImbalance: math.NaN()}
	if call != nil {
		r.Call = quote(*call)
	}
	if put != nil {
		r.Put = quote(*put)
	}
	return r
}

func table(rows ...models.Row) models.Table {
	return models.Table{Rows: rows}
}

// callSeries builds a call-only table for one strike from (price, vol, oi,
// iv) tuples captured one minute apart.
func callSeries(strike float64, tuples ...[4]float64) models.Table {
	var rows []models.Row
	for i, tp := range tuples {
		rows = append(rows, row(at(9, 30+i), &obs{strike: strike, price: tp[0], vol: tp[1], oi: tp[2], iv: tp[3]}, nil))
	}
	return table(rows...)
}
