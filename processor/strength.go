package processor

import (
	"math"
	"sort"

	"optionflow/config"
	"optionflow/logger"
	"optionflow/models"
)

// StrengthScorer blends the price/OI correlation, price/volume correlation
// and mean open-interest imbalance of each strike into one composite score
// per side, then labels directional bias by comparing the two sides.
type StrengthScorer struct {
	weights config.WeightsConfig
	log     *logger.Log
}

// NewStrengthScorer builds a scorer with the configured weights.
func NewStrengthScorer(cfg config.AnalyticsConfig) *StrengthScorer {
	return &StrengthScorer{weights: cfg.Weights, log: logger.GetLogger()}
}

// Score computes the composite strength for every strike and side present
// in the delta-enriched table. Undefined correlations and absent imbalance
// contribute zero; a missing side scores as zero in the bias comparison, so
// a call-only strike with zero call strength labels Bearish under the
// strict greater-than rule. The aggregate bias compares mean call strength
// to mean put strength over the strikes where each side exists.
func (s *StrengthScorer) Score(t models.Table) models.StrengthSummary {
	strikes := unionStrikes(t)

	summary := models.StrengthSummary{Strikes: make([]models.StrikeStrength, 0, len(strikes))}
	var sumCall, sumPut float64
	var nCall, nPut int

	for _, strike := range strikes {
		ss := models.StrikeStrength{Strike: strike}

		if hasSide(t, strike, models.SideCall) {
			v := s.scoreSide(t, strike, models.SideCall)
			ss.Call = &v
			sumCall += v
			nCall++
		}
		if hasSide(t, strike, models.SidePut) {
			v := s.scoreSide(t, strike, models.SidePut)
			ss.Put = &v
			sumPut += v
			nPut++
		}

		ss.Bias = bias(deref(ss.Call), deref(ss.Put))
		summary.Strikes = append(summary.Strikes, ss)
	}

	var meanCall, meanPut float64
	if nCall > 0 {
		meanCall = sumCall / float64(nCall)
		summary.MeanCall = &meanCall
	}
	if nPut > 0 {
		meanPut = sumPut / float64(nPut)
		summary.MeanPut = &meanPut
	}
	summary.Bias = bias(meanCall, meanPut)

	logger.RecordStageRecords("strength_scorer", len(summary.Strikes))
	s.log.WithComponent("strength_scorer").WithFields(logger.Fields{
		"strikes": len(summary.Strikes),
		"bias":    summary.Bias,
	}).Info("strength scores computed")

	return summary
}

// scoreSide evaluates one side of one strike over the whole table. The
// imbalance term averages the rows of this strike that carry a computed
// imbalance; imbalance is global to the run, not window-local.
func (s *StrengthScorer) scoreSide(t models.Table, strike float64, side models.Side) float64 {
	var price, vol, oi []float64
	var imbSum float64
	var imbN int

	for i := range t.Rows {
		row := &t.Rows[i]
		q := row.Quote(side)
		d := row.Deltas(side)
		if q == nil || d == nil || q.Strike != strike {
			continue
		}
		price = append(price, d.PriceChange)
		vol = append(vol, d.VolChange)
		oi = append(oi, d.OIChange)
		if row.HasImbalance() {
			imbSum += row.OIImbalance
			imbN++
		}
	}

	rhoOI := orZero(pearson(pairValid(price, oi)))
	rhoVol := orZero(pearson(pairValid(price, vol)))
	meanImb := 0.0
	if imbN > 0 {
		meanImb = imbSum / float64(imbN)
	}

	return s.weights.PriceOI*rhoOI + s.weights.PriceVolume*rhoVol + s.weights.OIImbalance*meanImb
}

func orZero(rho float64, ok bool) float64 {
	if !ok {
		return 0
	}
	return rho
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// bias applies the strict greater-than rule: Bullish only when the call
// side strictly outscores the put side.
func bias(call, put float64) string {
	if call > put {
		return models.BiasBullish
	}
	return models.BiasBearish
}

// unionStrikes lists every strike present on either side, ascending.
func unionStrikes(t models.Table) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for i := range t.Rows {
		for _, side := range []models.Side{models.SideCall, models.SidePut} {
			q := t.Rows[i].Quote(side)
			if q == nil || math.IsNaN(q.Strike) {
				continue
			}
			if _, ok := seen[q.Strike]; !ok {
				seen[q.Strike] = struct{}{}
				out = append(out, q.Strike)
			}
		}
	}
	sort.Float64s(out)
	return out
}

func hasSide(t models.Table, strike float64, side models.Side) bool {
	for i := range t.Rows {
		if q := t.Rows[i].Quote(side); q != nil && q.Strike == strike {
			return true
		}
	}
	return false
}
