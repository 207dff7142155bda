package reader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"optionflow/logger"
	"optionflow/models"
)

// sideColumns maps header names (lower-cased, prefix stripped) to quote
// fields. A side is present in a batch only when its strike column exists.
const (
	colStrike = "strikeprice"
	colVolume = "totaltradedvolume"
	colOI     = "openinterest"
	colPrice  = "lastprice"
	colIV     = "impliedvolatility"
)

type sideIndex struct {
	strike int
	volume int
	oi     int
	price  int
	iv     int
}

// CSVReader ingests option chain snapshot files. Each file becomes one
// SnapshotBatch tagged with the timestamp parsed from its name.
type CSVReader struct {
	log *logger.Log
}

// NewCSVReader constructs a reader.
func NewCSVReader() *CSVReader {
	return &CSVReader{log: logger.GetLogger()}
}

// ReadDir ingests every file in dir matching pattern (shell glob, e.g.
// "*.csv"), in lexical order. Files that cannot be opened or parsed are
// skipped with a warning; the returned slice holds the batches that were
// readable.
func (r *CSVReader) ReadDir(dir, pattern string) ([]models.SnapshotBatch, error) {
	log := r.log.WithComponent("csv_reader")

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
	}

	batches := make([]models.SnapshotBatch, 0, len(matches))
	for _, path := range matches {
		batch, err := r.ReadFile(path)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"path": path}).Warn("skipping unreadable snapshot file")
			continue
		}
		batches = append(batches, batch)
	}

	log.WithFields(logger.Fields{
		"dir":     dir,
		"pattern": pattern,
		"batches": len(batches),
	}).Info("snapshot directory ingested")

	return batches, nil
}

// ReadFile ingests a single snapshot file.
func (r *CSVReader) ReadFile(path string) (models.SnapshotBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.SnapshotBatch{}, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	return r.Read(f, filepath.Base(path))
}

// Read ingests CSV content under the given source identifier. The batch's
// timestamp tag comes from the identifier; content rows are parsed from the
// header-driven CE_/PE_ column layout. A side whose strike column is absent
// is absent from the whole batch.
func (r *CSVReader) Read(src io.Reader, source string) (models.SnapshotBatch, error) {
	log := r.log.WithComponent("csv_reader").WithFields(logger.Fields{"source": source})

	stamp, label, ok := TimeFromName(source)
	if !ok {
		log.Warn("source name has no timestamp pattern; rows will be dropped at merge")
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return models.SnapshotBatch{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return models.SnapshotBatch{Source: source, Stamp: stamp, Label: label}, nil
	}

	callIdx := indexSide(records[0], "ce_")
	putIdx := indexSide(records[0], "pe_")
	if callIdx == nil && putIdx == nil {
		log.Warn("no CE_ or PE_ strike columns found; batch is empty")
		logger.IncrementRowsDropped(len(records) - 1)
		return models.SnapshotBatch{Source: source, Stamp: stamp, Label: label}, nil
	}

	batch := models.SnapshotBatch{
		Source: source,
		Stamp:  stamp,
		Label:  label,
		Rows:   make([]models.Row, 0, len(records)-1),
	}

	for _, rec := range records[1:] {
		row := models.Row{
			TimeLabel:   label,
			Source:      source,
			OIImbalance: math.NaN(),
		}
		if callIdx != nil {
			row.Call = parseQuote(rec, callIdx)
		}
		if putIdx != nil {
			row.Put = parseQuote(rec, putIdx)
		}
		if row.Call == nil && row.Put == nil {
			logger.IncrementRowsDropped(1)
			continue
		}
		batch.Rows = append(batch.Rows, row)
	}

	logger.IncrementRowsRead(len(batch.Rows))
	log.WithFields(logger.Fields{"rows": len(batch.Rows), "stamp": stamp}).Debug("snapshot file parsed")

	return batch, nil
}

// indexSide locates a side's columns in the header. Returns nil when the
// side's strike column is missing, which marks the whole side absent for
// this batch.
func indexSide(header []string, prefix string) *sideIndex {
	idx := sideIndex{strike: -1, volume: -1, oi: -1, price: -1, iv: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		switch strings.TrimPrefix(name, prefix) {
		case colStrike:
			idx.strike = i
		case colVolume:
			idx.volume = i
		case colOI:
			idx.oi = i
		case colPrice:
			idx.price = i
		case colIV:
			idx.iv = i
		}
	}
	if idx.strike == -1 {
		return nil
	}
	return &idx
}

// parseQuote extracts one side's quote from a record. A row whose strike
// cannot be parsed carries no quote for that side.
func parseQuote(rec []string, idx *sideIndex) *models.Quote {
	strike := parseField(rec, idx.strike)
	if math.IsNaN(strike) {
		return nil
	}
	return &models.Quote{
		Strike:       strike,
		Volume:       parseField(rec, idx.volume),
		OpenInterest: parseField(rec, idx.oi),
		LastPrice:    parseField(rec, idx.price),
		ImpliedVol:   parseField(rec, idx.iv),
	}
}

// parseField converts one cell to float64, NaN when missing or
// unparseable. NSE-style exports carry thousands separators and "-" for
// empty cells; both are tolerated.
func parseField(rec []string, i int) float64 {
	if i < 0 || i >= len(rec) {
		return math.NaN()
	}
	s := strings.TrimSpace(strings.ReplaceAll(rec[i], ",", ""))
	if s == "" || s == "-" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
