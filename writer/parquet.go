package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"optionflow/logger"
	"optionflow/models"
)

// ParquetRecord is one side of one enriched row, flattened for columnar
// storage. Missing sides produce no record; NaN fields are stored as-is and
// read back as nulls by downstream engines.
type ParquetRecord struct {
	Timestamp    int64   `parquet:"name=timestamp, type=INT64"`
	TimeLabel    string  `parquet:"name=time_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	Source       string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side         string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Strike       float64 `parquet:"name=strike, type=DOUBLE"`
	LastPrice    float64 `parquet:"name=last_price, type=DOUBLE"`
	Volume       float64 `parquet:"name=volume, type=DOUBLE"`
	OpenInterest float64 `parquet:"name=open_interest, type=DOUBLE"`
	ImpliedVol   float64 `parquet:"name=implied_vol, type=DOUBLE"`
	PriceChange  float64 `parquet:"name=price_change, type=DOUBLE"`
	VolChange    float64 `parquet:"name=vol_change, type=DOUBLE"`
	OIChange     float64 `parquet:"name=oi_change, type=DOUBLE"`
	IVChange     float64 `parquet:"name=iv_change, type=DOUBLE"`
	OIImbalance  float64 `parquet:"name=oi_imbalance, type=DOUBLE"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory
// writing.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// parquetRecords flattens the table into one record per present side per
// row.
func parquetRecords(t models.Table) []ParquetRecord {
	records := make([]ParquetRecord, 0, len(t.Rows)*2)
	for i := range t.Rows {
		row := &t.Rows[i]
		for _, side := range []models.Side{models.SideCall, models.SidePut} {
			q := row.Quote(side)
			if q == nil {
				continue
			}
			rec := ParquetRecord{
				Timestamp:    row.Timestamp.UnixMilli(),
				TimeLabel:    row.TimeLabel,
				Source:       row.Source,
				Side:         string(side),
				Strike:       q.Strike,
				LastPrice:    q.LastPrice,
				Volume:       q.Volume,
				OpenInterest: q.OpenInterest,
				ImpliedVol:   q.ImpliedVol,
				OIImbalance:  row.OIImbalance,
			}
			if d := row.Deltas(side); d != nil {
				rec.PriceChange = d.PriceChange
				rec.VolChange = d.VolChange
				rec.OIChange = d.OIChange
				rec.IVChange = d.IVChange
			}
			records = append(records, rec)
		}
	}
	return records
}

// createParquetFile serializes the table to parquet bytes in memory with
// the configured compression.
func createParquetFile(t models.Table, compression string) ([]byte, error) {
	records := parquetRecords(t)

	log := logger.GetLogger().WithComponent("parquet_writer").WithFields(logger.Fields{
		"records":     len(records),
		"compression": compression,
	})

	fw := newMemoryFileWriter()
	pw, err := pqwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "lzo":
		pw.CompressionType = parquet.CompressionCodec_LZO
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := fw.Bytes()
	log.WithFields(logger.Fields{"file_size": len(data)}).Info("parquet file created")
	return data, nil
}
