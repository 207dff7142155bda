package processor

import (
	"math"
	"testing"
)

func TestFirstObservationHasZeroDeltas(t *testing.T) {
	in := callSeries(100, [4]float64{10, 1000, 500, 12})
	out := ComputeDeltas(in, 1e-9)

	d := out.Rows[0].CallDeltas
	if d == nil {
		t.Fatalf("expected deltas on first row")
	}
	if d.VolChange != 0 || d.OIChange != 0 || d.PriceChange != 0 || d.IVChange != 0 {
		t.Errorf("first observation must carry zero deltas: %+v", d)
	}
}

func TestFirstDifferences(t *testing.T) {
	// price 10→12, OI 500→400, volume 1000→1200
	in := callSeries(100,
		[4]float64{10, 1000, 500, 12},
		[4]float64{12, 1200, 400, 12.5},
	)
	out := ComputeDeltas(in, 1e-9)

	d := out.Rows[1].CallDeltas
	if d.PriceChange != 2 || d.OIChange != -100 || d.VolChange != 200 {
		t.Errorf("unexpected deltas: %+v", d)
	}
	if math.Abs(d.IVChange-0.5) > 1e-12 {
		t.Errorf("unexpected IV delta: %v", d.IVChange)
	}
}

func TestDeltasGroupedByStrike(t *testing.T) {
	in := table(
		row(at(9, 30), &obs{strike: 100, price: 10}, nil),
		row(at(9, 31), &obs{strike: 105, price: 50}, nil),
		row(at(9, 32), &obs{strike: 100, price: 13}, nil),
		row(at(9, 33), &obs{strike: 105, price: 49}, nil),
	)
	out := ComputeDeltas(in, 1e-9)

	if d := out.Rows[2].CallDeltas; d.PriceChange != 3 {
		t.Errorf("strike 100 delta crossed groups: %+v", d)
	}
	if d := out.Rows[3].CallDeltas; d.PriceChange != -1 {
		t.Errorf("strike 105 delta crossed groups: %+v", d)
	}
	if d := out.Rows[1].CallDeltas; d.PriceChange != 0 {
		t.Errorf("first row of strike 105 must be zero: %+v", d)
	}
}

func TestSidesDoNotInteract(t *testing.T) {
	in := table(
		row(at(9, 30), &obs{strike: 100, price: 10}, &obs{strike: 100, price: 100}),
		row(at(9, 31), &obs{strike: 100, price: 12}, &obs{strike: 100, price: 90}),
	)
	out := ComputeDeltas(in, 1e-9)

	if d := out.Rows[1].CallDeltas; d.PriceChange != 2 {
		t.Errorf("call delta polluted: %+v", d)
	}
	if d := out.Rows[1].PutDeltas; d.PriceChange != -10 {
		t.Errorf("put delta polluted: %+v", d)
	}
}

func TestOIImbalance(t *testing.T) {
	in := table(
		row(at(9, 30), &obs{strike: 100, oi: 300}, &obs{strike: 100, oi: 100}),
	)
	out := ComputeDeltas(in, 1e-9)

	got := out.Rows[0].OIImbalance
	want := (300.0 - 100.0) / (300.0 + 100.0 + 1e-9)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("imbalance = %v, want %v", got, want)
	}
}

func TestOIImbalanceBounded(t *testing.T) {
	cases := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1e12, 0}, {0, 1e12}, {5, 5}}
	for _, c := range cases {
		in := table(row(at(9, 30), &obs{strike: 100, oi: c[0]}, &obs{strike: 100, oi: c[1]}))
		out := ComputeDeltas(in, 1e-9)
		imb := out.Rows[0].OIImbalance
		if !(imb > -1 && imb < 1) {
			t.Errorf("imbalance %v out of (-1, 1) for OI %v", imb, c)
		}
	}
}

func TestNoImbalanceForSingleSide(t *testing.T) {
	in := table(row(at(9, 30), nil, &obs{strike: 100, oi: 100}))
	out := ComputeDeltas(in, 1e-9)

	if out.Rows[0].HasImbalance() {
		t.Errorf("put-only row must not carry imbalance")
	}
	if out.Rows[0].PutDeltas == nil {
		t.Errorf("put deltas must still be computed")
	}
	if out.Rows[0].CallDeltas != nil {
		t.Errorf("absent side must not gain deltas")
	}
}

func TestNoImbalanceWhenOneOIMissing(t *testing.T) {
	in := table(
		row(at(9, 30), &obs{strike: 100, oi: math.NaN()}, &obs{strike: 100, oi: 100}),
	)
	out := ComputeDeltas(in, 1e-9)
	if out.Rows[0].HasImbalance() {
		t.Errorf("row with missing OI on one side must not carry imbalance")
	}
}

func TestComputeDeltasDoesNotMutateInput(t *testing.T) {
	in := callSeries(100,
		[4]float64{10, 1000, 500, 12},
		[4]float64{12, 1200, 400, 12.5},
	)
	_ = ComputeDeltas(in, 1e-9)

	for i, r := range in.Rows {
		if r.CallDeltas != nil || r.PutDeltas != nil {
			t.Fatalf("input row %d gained deltas", i)
		}
		if r.HasImbalance() {
			t.Fatalf("input row %d gained imbalance", i)
		}
	}
	if in.Rows[0].Call.LastPrice != 10 || in.Rows[1].Call.OpenInterest != 400 {
		t.Fatalf("input quotes changed: %+v", in.Rows)
	}
}

func TestComputeDeltasDeterministic(t *testing.T) {
	in := table(
		row(at(9, 30), &obs{strike: 100, price: 10, oi: 500, vol: 100}, &obs{strike: 100, oi: 300}),
		row(at(9, 31), &obs{strike: 100, price: 12, oi: 450, vol: 140}, &obs{strike: 100, oi: 320}),
		row(at(9, 32), &obs{strike: 105, price: 3, oi: 50, vol: 10}, nil),
	)
	a := ComputeDeltas(in, 1e-9)
	b := ComputeDeltas(in, 1e-9)

	for i := range a.Rows {
		da, db := a.Rows[i].CallDeltas, b.Rows[i].CallDeltas
		if (da == nil) != (db == nil) {
			t.Fatalf("row %d: delta presence differs", i)
		}
		if da != nil && *da != *db {
			t.Fatalf("row %d: deltas differ: %+v vs %+v", i, da, db)
		}
		ia, ib := a.Rows[i].OIImbalance, b.Rows[i].OIImbalance
		if (math.IsNaN(ia) != math.IsNaN(ib)) || (!math.IsNaN(ia) && ia != ib) {
			t.Fatalf("row %d: imbalance differs: %v vs %v", i, ia, ib)
		}
	}
}

func TestSingleObservationStrikeStaysUsable(t *testing.T) {
	in := table(
		row(at(9, 30), &obs{strike: 100, price: 10}, nil),
		row(at(9, 31), &obs{strike: 105, price: 20}, nil),
		row(at(9, 32), &obs{strike: 105, price: 21}, nil),
	)
	out := ComputeDeltas(in, 1e-9)

	var found bool
	for i := range out.Rows {
		q := out.Rows[i].Call
		if q != nil && q.Strike == 100 {
			found = true
			if out.Rows[i].CallDeltas == nil {
				t.Fatalf("single-observation strike must still get a delta row")
			}
		}
	}
	if !found {
		t.Fatalf("strike 100 missing from output")
	}
}
