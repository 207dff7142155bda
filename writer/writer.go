package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	appconfig "optionflow/config"
	"optionflow/logger"
	"optionflow/models"
)

// OutputWriter persists one pipeline run: CSV and parquet files under the
// configured output directory, plus an optional S3 upload of the parquet
// output. All writes happen synchronously after the run completes.
type OutputWriter struct {
	cfg      *appconfig.Config
	s3Client s3PutObjectClient
	log      *logger.Log
}

// NewOutputWriter validates the output directory and, when S3 storage is
// enabled, establishes the S3 client up front so credential problems
// surface before any processing.
func NewOutputWriter(ctx context.Context, cfg *appconfig.Config) (*OutputWriter, error) {
	log := logger.GetLogger()

	w := &OutputWriter{cfg: cfg, log: log}

	if cfg.Writer.OutputDir != "" {
		if err := os.MkdirAll(cfg.Writer.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if cfg.Storage.S3.Enabled {
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		w.s3Client = client
	}

	log.WithComponent("output_writer").WithFields(logger.Fields{
		"output_dir": cfg.Writer.OutputDir,
		"csv":        cfg.Writer.Formats.CSV,
		"parquet":    cfg.Writer.Formats.Parquet.Enabled,
		"s3":         cfg.Storage.S3.Enabled,
	}).Info("output writer initialized")

	return w, nil
}

// Write persists the enriched table and strength summary in each enabled
// format. A failure in one format aborts the remaining ones.
func (w *OutputWriter) Write(ctx context.Context, runID string, t models.Table, s models.StrengthSummary) error {
	log := w.log.WithComponent("output_writer").WithFields(logger.Fields{
		"run_id": runID,
		"rows":   len(t.Rows),
	})
	log.Info("writing run outputs")

	if w.cfg.Writer.Formats.CSV {
		if err := WriteEnrichedCSV(t, w.outputPath(runID, "enriched.csv")); err != nil {
			return err
		}
		if err := WriteStrengthCSV(s, w.outputPath(runID, "strength.csv")); err != nil {
			return err
		}
	}

	if w.cfg.Writer.Formats.Parquet.Enabled {
		data, err := createParquetFile(t, w.cfg.Writer.Formats.Parquet.Compression)
		if err != nil {
			return err
		}

		path := w.outputPath(runID, "enriched.parquet")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write parquet file: %w", err)
		}
		logger.IncrementOutputWrite(int64(len(data)))
		log.WithFields(logger.Fields{"path": path, "file_size": len(data)}).Info("parquet file written")

		if w.cfg.Storage.S3.Enabled {
			key := generateS3Key(w.cfg, runID, time.Now().UTC())
			if err := w.uploadToS3(ctx, key, data); err != nil {
				return err
			}
		}
	}

	logger.RecordStageRecords("output_writer", len(t.Rows))
	log.Info("run outputs written")
	return nil
}

func (w *OutputWriter) outputPath(runID, name string) string {
	return filepath.Join(w.cfg.Writer.OutputDir, fmt.Sprintf("%s_%s", runID, name))
}
