package processor

import (
	"math"

	"optionflow/models"
)

// SeriesMetric names the per-strike series the presentation layer can
// chart: the raw observed fields plus the derived deltas and imbalance.
type SeriesMetric string

const (
	SeriesLastPrice    SeriesMetric = "lastPrice"
	SeriesVolume       SeriesMetric = "totalTradedVolume"
	SeriesOpenInterest SeriesMetric = "openInterest"
	SeriesImpliedVol   SeriesMetric = "impliedVolatility"
	SeriesPriceChange  SeriesMetric = "priceChange"
	SeriesVolChange    SeriesMetric = "volChange"
	SeriesOIChange     SeriesMetric = "oiChange"
	SeriesIVChange     SeriesMetric = "ivChange"
	SeriesOIImbalance  SeriesMetric = "oiImbalance"
)

// Series extracts one strike/side/metric as ordered (time, label, value)
// points for the presentation layer. Rows where the value is unavailable
// (NaN field, missing side, deltas not yet computed) are skipped. The caller
// passes strike and side explicitly on every invocation; the core keeps no
// selection state between calls.
func Series(t models.Table, strike float64, side models.Side, metric SeriesMetric) []models.Point {
	var out []models.Point
	for i := range t.Rows {
		row := &t.Rows[i]
		q := row.Quote(side)
		if q == nil || q.Strike != strike {
			continue
		}
		v, ok := seriesValue(row, q, side, metric)
		if !ok || math.IsNaN(v) {
			continue
		}
		out = append(out, models.Point{Time: row.Timestamp, Label: row.TimeLabel, Value: v})
	}
	return out
}

func seriesValue(row *models.Row, q *models.Quote, side models.Side, metric SeriesMetric) (float64, bool) {
	switch metric {
	case SeriesLastPrice:
		return q.LastPrice, true
	case SeriesVolume:
		return q.Volume, true
	case SeriesOpenInterest:
		return q.OpenInterest, true
	case SeriesImpliedVol:
		return q.ImpliedVol, true
	case SeriesOIImbalance:
		return row.OIImbalance, row.HasImbalance()
	}

	d := row.Deltas(side)
	if d == nil {
		return 0, false
	}
	switch metric {
	case SeriesPriceChange:
		return d.PriceChange, true
	case SeriesVolChange:
		return d.VolChange, true
	case SeriesOIChange:
		return d.OIChange, true
	case SeriesIVChange:
		return d.IVChange, true
	}
	return 0, false
}
