package models

import (
	"math"
	"sort"
	"time"
)

// Side identifies one leg of the option chain.
type Side string

const (
	SideCall Side = "CE"
	SidePut  Side = "PE"
)

// SideSelector picks which sides the correlation engine evaluates.
type SideSelector string

const (
	SelectCall SideSelector = "CE"
	SelectPut  SideSelector = "PE"
	SelectBoth SideSelector = "Both"
)

// Sides expands the selector into the concrete sides it covers.
func (s SideSelector) Sides() []Side {
	switch s {
	case SelectCall:
		return []Side{SideCall}
	case SelectPut:
		return []Side{SidePut}
	default:
		return []Side{SideCall, SidePut}
	}
}

// Quote holds one side's observed fields for a single strike at a single
// capture time. NaN marks a field that could not be parsed from the source.
type Quote struct {
	Strike       float64 `json:"strike"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"open_interest"`
	LastPrice    float64 `json:"last_price"`
	ImpliedVol   float64 `json:"implied_vol"`
}

// Deltas holds row-over-row first differences for one side. The first
// observation of a strike carries zeros rather than missing values so that
// single-snapshot strikes stay usable downstream.
type Deltas struct {
	VolChange   float64 `json:"vol_change"`
	OIChange    float64 `json:"oi_change"`
	PriceChange float64 `json:"price_change"`
	IVChange    float64 `json:"iv_change"`
}

// Row is one observation of the chain: up to two sides captured at one
// timestamp. Delta and imbalance fields stay nil/NaN until the delta engine
// has run; the engine returns enriched copies and never touches its input.
type Row struct {
	Timestamp   time.Time `json:"timestamp"`
	TimeLabel   string    `json:"time_label"`
	Source      string    `json:"source"`
	Call        *Quote    `json:"call,omitempty"`
	Put         *Quote    `json:"put,omitempty"`
	CallDeltas  *Deltas   `json:"call_deltas,omitempty"`
	PutDeltas   *Deltas   `json:"put_deltas,omitempty"`
	OIImbalance float64   `json:"oi_imbalance"`
}

// Quote returns the requested side's quote, nil when absent.
func (r *Row) Quote(side Side) *Quote {
	if side == SideCall {
		return r.Call
	}
	return r.Put
}

// Deltas returns the requested side's delta record, nil when absent.
func (r *Row) Deltas(side Side) *Deltas {
	if side == SideCall {
		return r.CallDeltas
	}
	return r.PutDeltas
}

// HasImbalance reports whether the row carries a computed OI imbalance.
func (r *Row) HasImbalance() bool {
	return !math.IsNaN(r.OIImbalance)
}

// SnapshotBatch is one source file's rows tagged with the timestamp parsed
// from its name. Stamp is empty when the name carried no recognizable
// pattern; the merger drops such batches.
type SnapshotBatch struct {
	Source string `json:"source"`
	Stamp  string `json:"stamp"` // "DD-MM-YYYY HH:MM:SS"
	Label  string `json:"label"` // "HHMM"
	Rows   []Row  `json:"rows"`
}

// Table is the merged, chronologically ordered chain.
type Table struct {
	Rows []Row `json:"rows"`
}

// Strikes lists the distinct strike values present on the given side,
// ascending.
func (t Table) Strikes(side Side) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for i := range t.Rows {
		q := t.Rows[i].Quote(side)
		if q == nil || math.IsNaN(q.Strike) {
			continue
		}
		if _, ok := seen[q.Strike]; !ok {
			seen[q.Strike] = struct{}{}
			out = append(out, q.Strike)
		}
	}
	sort.Float64s(out)
	return out
}

// Window is an inclusive time range. A zero bound means unbounded on that
// end.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	if !w.From.IsZero() && ts.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && ts.After(w.To) {
		return false
	}
	return true
}

// Metric names the delta series the correlation engine pairs against price
// movement.
type Metric string

const (
	MetricVolume       Metric = "volume"
	MetricOpenInterest Metric = "open_interest"
	MetricImpliedVol   Metric = "implied_vol"
)

// MetricCorrelation is one computed pairing for one side of one strike.
type MetricCorrelation struct {
	Metric    Metric  `json:"metric"`
	Rho       float64 `json:"rho"`
	Pairs     int     `json:"pairs"`
	Strength  string  `json:"strength"`  // "strongly" | "moderately" | "weakly"
	Direction string  `json:"direction"` // "positively correlated" | "negatively correlated"
	Label     string  `json:"label"`     // e.g. "strongly negatively correlated"
}

// SideReport holds the correlations computed for one side. Metrics with
// fewer than two valid pairs or degenerate variance are omitted entirely.
type SideReport struct {
	Side    Side                `json:"side"`
	Rows    int                 `json:"rows"`
	Metrics []MetricCorrelation `json:"metrics"`
}

// Metric returns the correlation for the named metric, nil when omitted.
func (s SideReport) Metric(m Metric) *MetricCorrelation {
	for i := range s.Metrics {
		if s.Metrics[i].Metric == m {
			return &s.Metrics[i]
		}
	}
	return nil
}

// Comparison reports which side moves more tightly with price for one
// metric. Stronger is "CE", "PE", or "tie" when the magnitudes match
// exactly.
type Comparison struct {
	Metric   Metric `json:"metric"`
	Stronger string `json:"stronger"`
}

// CorrelationReport is the correlation engine's output for one strike.
type CorrelationReport struct {
	Strike      float64      `json:"strike"`
	Sides       []SideReport `json:"sides"`
	Comparisons []Comparison `json:"comparisons"`
}

// Side returns the report for the given side, nil when it was not evaluated.
func (r CorrelationReport) Side(side Side) *SideReport {
	for i := range r.Sides {
		if r.Sides[i].Side == side {
			return &r.Sides[i]
		}
	}
	return nil
}

// Bias labels for strikes and the aggregate table.
const (
	BiasBullish = "Bullish"
	BiasBearish = "Bearish"
)

// StrikeStrength carries the composite scores for one strike. A nil side
// means that side never appeared at this strike.
type StrikeStrength struct {
	Strike float64  `json:"strike"`
	Call   *float64 `json:"ce_strength,omitempty"`
	Put    *float64 `json:"pe_strength,omitempty"`
	Bias   string   `json:"bias"`
}

// StrengthSummary is the strength scorer's full output.
type StrengthSummary struct {
	Strikes  []StrikeStrength `json:"strikes"`
	MeanCall *float64         `json:"mean_ce_strength,omitempty"`
	MeanPut  *float64         `json:"mean_pe_strength,omitempty"`
	Bias     string           `json:"bias"`
}

// Point is one sample of a per-strike metric series handed to the
// presentation layer.
type Point struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
	Value float64   `json:"value"`
}
