package processor

import (
	"fmt"
	"math"

	"optionflow/config"
	"optionflow/logger"
	"optionflow/models"
)

// CorrelationEngine computes Pearson correlations between price movement
// and volume/open-interest/IV movement for one strike at a time.
type CorrelationEngine struct {
	strong   float64
	moderate float64
	log      *logger.Log
}

// NewCorrelationEngine builds an engine with the configured strength
// cutoffs.
func NewCorrelationEngine(cfg config.AnalyticsConfig) *CorrelationEngine {
	return &CorrelationEngine{
		strong:   cfg.Thresholds.Strong,
		moderate: cfg.Thresholds.Moderate,
		log:      logger.GetLogger(),
	}
}

// Analyze filters the delta-enriched table to one strike, the selected
// side(s) and an optional inclusive window, and correlates PriceChange
// against each of VolChange, OIChange and IVChange. Metric pairs with fewer
// than two valid rows, or with degenerate variance, are omitted rather than
// reported as zero. When both sides were evaluated the report carries a
// per-metric comparison of correlation magnitudes.
func (e *CorrelationEngine) Analyze(t models.Table, strike float64, sel models.SideSelector, win *models.Window) models.CorrelationReport {
	report := models.CorrelationReport{Strike: strike}

	for _, side := range sel.Sides() {
		report.Sides = append(report.Sides, e.analyzeSide(t, strike, side, win))
	}

	if len(report.Sides) == 2 {
		report.Comparisons = compare(report.Sides[0], report.Sides[1])
	}

	e.log.WithComponent("correlation_engine").WithFields(logger.Fields{
		"strike": strike,
		"side":   string(sel),
		"sides":  len(report.Sides),
	}).Debug("correlation report computed")

	return report
}

func (e *CorrelationEngine) analyzeSide(t models.Table, strike float64, side models.Side, win *models.Window) models.SideReport {
	sr := models.SideReport{Side: side}

	var price, vol, oi, iv []float64
	for i := range t.Rows {
		row := &t.Rows[i]
		q := row.Quote(side)
		d := row.Deltas(side)
		if q == nil || d == nil || q.Strike != strike {
			continue
		}
		if win != nil && !win.Contains(row.Timestamp) {
			continue
		}
		sr.Rows++
		price = append(price, d.PriceChange)
		vol = append(vol, d.VolChange)
		oi = append(oi, d.OIChange)
		iv = append(iv, d.IVChange)
	}

	pairs := []struct {
		metric models.Metric
		series []float64
	}{
		{models.MetricVolume, vol},
		{models.MetricOpenInterest, oi},
		{models.MetricImpliedVol, iv},
	}

	for _, p := range pairs {
		x, y := pairValid(price, p.series)
		rho, ok := pearson(x, y)
		if !ok {
			continue
		}
		mc := models.MetricCorrelation{
			Metric: p.metric,
			Rho:    rho,
			Pairs:  len(x),
		}
		mc.Strength, mc.Direction = e.classify(rho)
		mc.Label = fmt.Sprintf("%s %s", mc.Strength, mc.Direction)
		sr.Metrics = append(sr.Metrics, mc)
	}

	return sr
}

// classify buckets |rho| against the strength cutoffs and picks the
// direction label. An exact zero is already excluded by the variance check
// in pearson; should it ever arrive, the positive direction wins the
// tie-break.
func (e *CorrelationEngine) classify(rho float64) (strength, direction string) {
	abs := math.Abs(rho)
	switch {
	case abs >= e.strong:
		strength = "strongly"
	case abs >= e.moderate:
		strength = "moderately"
	default:
		strength = "weakly"
	}
	if rho < 0 {
		direction = "negatively correlated"
	} else {
		direction = "positively correlated"
	}
	return strength, direction
}

// compare reports, per metric present on both sides, which side tracks
// price movement more tightly. Equal magnitudes are an explicit tie rather
// than favoring either side.
func compare(call, put models.SideReport) []models.Comparison {
	var out []models.Comparison
	for _, metric := range []models.Metric{models.MetricVolume, models.MetricOpenInterest, models.MetricImpliedVol} {
		c := call.Metric(metric)
		p := put.Metric(metric)
		if c == nil || p == nil {
			continue
		}
		cmp := models.Comparison{Metric: metric}
		switch {
		case math.Abs(c.Rho) > math.Abs(p.Rho):
			cmp.Stronger = string(models.SideCall)
		case math.Abs(p.Rho) > math.Abs(c.Rho):
			cmp.Stronger = string(models.SidePut)
		default:
			cmp.Stronger = "tie"
		}
		out = append(out, cmp)
	}
	return out
}

// pairValid drops index positions where either series is NaN, keeping the
// remaining values paired.
func pairValid(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// pearson returns the correlation coefficient of two equal-length series.
// ok is false when fewer than two pairs remain or either variance is zero;
// callers omit the metric in that case instead of reporting zero.
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, false
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxx, syy, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}
