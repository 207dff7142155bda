package writer

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"optionflow/logger"
	"optionflow/models"
)

var enrichedHeader = []string{
	"timestamp", "time", "source",
	"ce_strikePrice", "ce_lastPrice", "ce_totalTradedVolume", "ce_openInterest", "ce_impliedVolatility",
	"ce_priceChange", "ce_volChange", "ce_oiChange", "ce_ivChange",
	"pe_strikePrice", "pe_lastPrice", "pe_totalTradedVolume", "pe_openInterest", "pe_impliedVolatility",
	"pe_priceChange", "pe_volChange", "pe_oiChange", "pe_ivChange",
	"oi_imbalance",
}

var strengthHeader = []string{"Strike", "CE_Strength", "PE_Strength", "Bias"}

// WriteEnrichedCSV renders the merged, delta-enriched table as one wide CSV
// file. Missing sides and NaN fields become empty cells, never zeros.
func WriteEnrichedCSV(t models.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create enriched csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(enrichedHeader); err != nil {
		return fmt.Errorf("failed to write enriched csv header: %w", err)
	}

	for i := range t.Rows {
		row := &t.Rows[i]
		rec := []string{
			row.Timestamp.Format("02-01-2006 15:04:05"),
			row.TimeLabel,
			row.Source,
		}
		rec = append(rec, sideCells(row.Call, row.CallDeltas)...)
		rec = append(rec, sideCells(row.Put, row.PutDeltas)...)
		if row.HasImbalance() {
			rec = append(rec, cell(row.OIImbalance))
		} else {
			rec = append(rec, "")
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write enriched csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush enriched csv: %w", err)
	}

	logger.IncrementOutputWrite(fileSize(f))
	logger.GetLogger().WithComponent("csv_writer").WithFields(logger.Fields{
		"path": path,
		"rows": len(t.Rows),
	}).Info("enriched csv written")
	return nil
}

// WriteStrengthCSV renders the per-strike strength summary. A side absent at
// a strike leaves its cell empty.
func WriteStrengthCSV(s models.StrengthSummary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create strength csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(strengthHeader); err != nil {
		return fmt.Errorf("failed to write strength csv header: %w", err)
	}

	for _, ss := range s.Strikes {
		rec := []string{cell(ss.Strike), cellPtr(ss.Call), cellPtr(ss.Put), ss.Bias}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write strength csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush strength csv: %w", err)
	}

	logger.IncrementOutputWrite(fileSize(f))
	logger.GetLogger().WithComponent("csv_writer").WithFields(logger.Fields{
		"path":    path,
		"strikes": len(s.Strikes),
	}).Info("strength csv written")
	return nil
}

func sideCells(q *models.Quote, d *models.Deltas) []string {
	cells := make([]string, 9)
	if q != nil {
		cells[0] = cell(q.Strike)
		cells[1] = cell(q.LastPrice)
		cells[2] = cell(q.Volume)
		cells[3] = cell(q.OpenInterest)
		cells[4] = cell(q.ImpliedVol)
	}
	if d != nil {
		cells[5] = cell(d.PriceChange)
		cells[6] = cell(d.VolChange)
		cells[7] = cell(d.OIChange)
		cells[8] = cell(d.IVChange)
	}
	return cells
}

func fileSize(f *os.File) int64 {
	if fi, err := f.Stat(); err == nil {
		return fi.Size()
	}
	return 0
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func cellPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return cell(*v)
}
