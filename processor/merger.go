package processor

import (
	"sort"
	"time"

	"optionflow/logger"
	"optionflow/models"
)

// stampLayout matches the tag produced by reader.TimeFromName.
const stampLayout = "02-01-2006 15:04:05"

// Merge concatenates tagged snapshot batches into one chronologically
// ordered table. Batches without a timestamp tag, and batches whose tag does
// not parse, are silently excluded; merging never fails on malformed input.
func Merge(batches []models.SnapshotBatch) models.Table {
	log := logger.GetLogger().WithComponent("merger")

	var table models.Table
	dropped := 0

	for _, batch := range batches {
		if batch.Stamp == "" {
			dropped += len(batch.Rows)
			log.WithFields(logger.Fields{"source": batch.Source}).Debug("dropping untagged batch")
			continue
		}
		ts, err := time.Parse(stampLayout, batch.Stamp)
		if err != nil {
			dropped += len(batch.Rows)
			log.WithFields(logger.Fields{"source": batch.Source, "stamp": batch.Stamp}).Debug("dropping batch with unparseable stamp")
			continue
		}
		for _, row := range batch.Rows {
			row.Timestamp = ts
			row.TimeLabel = batch.Label
			row.Source = batch.Source
			table.Rows = append(table.Rows, row)
		}
	}

	// Stable so rows from one snapshot keep their file order at equal
	// timestamps.
	sort.SliceStable(table.Rows, func(i, j int) bool {
		return table.Rows[i].Timestamp.Before(table.Rows[j].Timestamp)
	})

	if dropped > 0 {
		logger.IncrementRowsDropped(dropped)
	}
	logger.RecordStageRecords("merger", len(table.Rows))
	log.WithFields(logger.Fields{
		"batches":      len(batches),
		"rows":         len(table.Rows),
		"rows_dropped": dropped,
	}).Info("batches merged")

	return table
}
