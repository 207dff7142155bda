package processor

import (
	"math"

	"optionflow/logger"
	"optionflow/models"
)

// ComputeDeltas derives row-over-row first differences per side per strike,
// then the open-interest imbalance for rows carrying both sides. The input
// table is never mutated: rows are copied and only derived fields are set on
// the copies. Each side is processed independently from its own time series;
// the sides meet only in the imbalance term.
//
// The first observation of a strike gets zero deltas rather than missing
// values, so single-snapshot strikes stay usable for correlation and
// scoring.
func ComputeDeltas(t models.Table, epsilon float64) models.Table {
	log := logger.GetLogger().WithComponent("delta_engine")

	out := models.Table{Rows: make([]models.Row, len(t.Rows))}
	for i, row := range t.Rows {
		c := row
		if row.Call != nil {
			q := *row.Call
			c.Call = &q
		}
		if row.Put != nil {
			q := *row.Put
			c.Put = &q
		}
		c.CallDeltas = nil
		c.PutDeltas = nil
		c.OIImbalance = math.NaN()
		out.Rows[i] = c
	}

	diffSide(out.Rows, models.SideCall)
	diffSide(out.Rows, models.SidePut)

	imbalanced := 0
	for i := range out.Rows {
		row := &out.Rows[i]
		if row.Call == nil || row.Put == nil {
			continue
		}
		ce, pe := row.Call.OpenInterest, row.Put.OpenInterest
		if math.IsNaN(ce) || math.IsNaN(pe) {
			continue
		}
		row.OIImbalance = (ce - pe) / (ce + pe + epsilon)
		imbalanced++
	}

	logger.RecordStageRecords("delta_engine", len(out.Rows))
	log.WithFields(logger.Fields{
		"rows":            len(out.Rows),
		"imbalanced_rows": imbalanced,
	}).Debug("deltas computed")

	return out
}

// diffSide first-differences one side's metrics, grouping row indices by
// that side's strike. Rows arrive already time-sorted from the merger; the
// scan preserves that order within each group.
func diffSide(rows []models.Row, side models.Side) {
	groups := make(map[float64][]int)
	for i := range rows {
		q := rows[i].Quote(side)
		if q == nil || math.IsNaN(q.Strike) {
			continue
		}
		groups[q.Strike] = append(groups[q.Strike], i)
	}

	for _, idxs := range groups {
		var prev *models.Quote
		for _, i := range idxs {
			q := rows[i].Quote(side)
			d := &models.Deltas{}
			if prev != nil {
				d.VolChange = q.Volume - prev.Volume
				d.OIChange = q.OpenInterest - prev.OpenInterest
				d.PriceChange = q.LastPrice - prev.LastPrice
				d.IVChange = q.ImpliedVol - prev.ImpliedVol
			}
			if side == models.SideCall {
				rows[i].CallDeltas = d
			} else {
				rows[i].PutDeltas = d
			}
			prev = q
		}
	}
}
