package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "optionflow/config"
	"optionflow/logger"
)

// s3PutObjectClient is the slice of the S3 API the writer needs.
type s3PutObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// newS3Client builds an S3 client from the storage configuration. Static
// credentials take precedence over the default chain when both keys are
// set.
func newS3Client(ctx context.Context, cfg *appconfig.Config) (*s3.Client, error) {
	log := logger.GetLogger()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_uploader").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 uploader initialized")

	return client, nil
}

// generateS3Key builds the partitioned object key for one run's parquet
// output. Additional keys come first, then the time partition, then the
// file name.
func generateS3Key(cfg *appconfig.Config, runID string, ts time.Time) string {
	var parts []string
	for _, k := range cfg.Writer.Partitioning.AdditionalKeys {
		switch k {
		case "app":
			parts = append(parts, fmt.Sprintf("app=%s", cfg.Optionflow.Name))
		case "version":
			parts = append(parts, fmt.Sprintf("version=%s", cfg.Optionflow.Version))
		case "run":
			parts = append(parts, fmt.Sprintf("run=%s", runID))
		}
	}

	timeFormat := cfg.Writer.Partitioning.TimeFormat
	if timeFormat == "" {
		timeFormat = "year={year}/month={month}/day={day}"
	}
	timePath := strings.ReplaceAll(timeFormat, "{year}", fmt.Sprintf("%04d", ts.Year()))
	timePath = strings.ReplaceAll(timePath, "{month}", fmt.Sprintf("%02d", ts.Month()))
	timePath = strings.ReplaceAll(timePath, "{day}", fmt.Sprintf("%02d", ts.Day()))
	timePath = strings.ReplaceAll(timePath, "{hour}", fmt.Sprintf("%02d", ts.Hour()))

	parts = append(parts, timePath)

	filename := fmt.Sprintf("chain_%s_%s.parquet", runID, ts.UTC().Format("20060102150405"))
	key := filepath.Join(append(parts, filename)...)

	// S3 keys use forward slashes regardless of the host OS.
	return filepath.ToSlash(key)
}

func (w *OutputWriter) uploadToS3(ctx context.Context, key string, data []byte) error {
	log := w.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"s3_key":    key,
		"data_size": len(data),
	})
	log.Info("uploading to S3")

	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":       "parquet",
			"compression":        w.cfg.Writer.Formats.Parquet.Compression,
			"optionflow-version": w.cfg.Optionflow.Version,
		},
	}

	if _, err := w.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.cfg.Storage.S3.Bucket, err)
	}

	logger.IncrementOutputWrite(int64(len(data)))
	log.Info("successfully uploaded to S3")
	return nil
}
