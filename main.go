package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"optionflow/config"
	"optionflow/logger"
	"optionflow/models"
	"optionflow/processor"
	"optionflow/reader"
	"optionflow/writer"
)

const windowLayout = "02-01-2006 15:04:05"

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	inputDir := flag.String("input", "", "Snapshot directory (overrides reader.input_dir)")
	outputDir := flag.String("output", "", "Output directory (overrides writer.output_dir)")
	strike := flag.Float64("strike", 0, "Strike to correlate (0 skips the correlation report)")
	side := flag.String("side", "Both", "Correlation side: CE, PE or Both")
	from := flag.String("from", "", "Window start, \"DD-MM-YYYY HH:MM:SS\"")
	to := flag.String("to", "", "Window end, \"DD-MM-YYYY HH:MM:SS\"")

	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolvePath(*configPath, "config/config.yml"))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *inputDir != "" {
		cfg.Reader.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Writer.OutputDir = *outputDir
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Optionflow.Name,
		"version": cfg.Optionflow.Version,
	}).Info("starting optionflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		interval := cfg.Metrics.ReportInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		logger.StartReport(ctx, log, interval)
	}

	win, err := parseWindow(*from, *to)
	if err != nil {
		log.WithError(err).Error("invalid time window")
		os.Exit(1)
	}

	batches, err := reader.NewCSVReader().ReadDir(cfg.Reader.InputDir, cfg.Reader.Pattern)
	if err != nil {
		log.WithError(err).Error("failed to read snapshot directory")
		os.Exit(1)
	}
	if len(batches) == 0 {
		log.WithFields(logger.Fields{"input_dir": cfg.Reader.InputDir}).Warn("no snapshot files found")
	}

	outputWriter, err := writer.NewOutputWriter(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize output writer")
		os.Exit(1)
	}

	runner := processor.NewRunner(cfg)
	result, err := runner.Run(ctx, batches)
	if err != nil {
		log.WithError(err).Error("pipeline run failed")
		os.Exit(1)
	}

	if *strike != 0 {
		report := runner.Correlate(result.Table, *strike, parseSide(*side), win)
		printReport(report)
	}

	if err := outputWriter.Write(ctx, result.RunID, result.Table, result.Strength); err != nil {
		log.WithError(err).Error("failed to write run outputs")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"run_id":  result.RunID,
		"rows":    len(result.Table.Rows),
		"strikes": len(result.Strength.Strikes),
		"bias":    result.Strength.Bias,
	}).Info("optionflow finished")
}

func parseSide(s string) models.SideSelector {
	switch strings.ToUpper(s) {
	case "CE":
		return models.SelectCall
	case "PE":
		return models.SelectPut
	default:
		return models.SelectBoth
	}
}

func parseWindow(from, to string) (*models.Window, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	var win models.Window
	var err error
	if from != "" {
		if win.From, err = time.Parse(windowLayout, from); err != nil {
			return nil, fmt.Errorf("invalid -from value %q: %w", from, err)
		}
	}
	if to != "" {
		if win.To, err = time.Parse(windowLayout, to); err != nil {
			return nil, fmt.Errorf("invalid -to value %q: %w", to, err)
		}
	}
	return &win, nil
}

func printReport(report models.CorrelationReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.GetLogger().WithError(err).Warn("failed to render correlation report")
		return
	}
	fmt.Println(string(data))
}
