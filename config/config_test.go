package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `optionflow:
  name: "TestApp"
  version: "1.0"
reader:
  input_dir: "./snapshots"
writer:
  output_dir: "./out"
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Optionflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Optionflow.Name)
	}
	if cfg.Reader.InputDir != "./snapshots" {
		t.Errorf("unexpected input dir: %s", cfg.Reader.InputDir)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analytics.Epsilon != 1e-9 {
		t.Errorf("unexpected epsilon: %v", cfg.Analytics.Epsilon)
	}
	w := cfg.Analytics.Weights
	if w.PriceOI != 0.4 || w.PriceVolume != 0.3 || w.OIImbalance != 0.3 {
		t.Errorf("unexpected weights: %+v", w)
	}
	th := cfg.Analytics.Thresholds
	if th.Strong != 0.7 || th.Moderate != 0.4 {
		t.Errorf("unexpected thresholds: %+v", th)
	}
	if !cfg.Writer.Formats.CSV {
		t.Errorf("csv output should default to enabled")
	}
	if cfg.Reader.Pattern != "*.csv" {
		t.Errorf("unexpected pattern: %s", cfg.Reader.Pattern)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("optionflow:\n  version: \"1.0\"\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for missing name")
	}
}

func TestLoadConfigS3Validation(t *testing.T) {
	content := `optionflow:
  name: "TestApp"
  version: "1.0"
storage:
  s3:
    enabled: true
    bucket: "Bad_Bucket"
    region: "us-east-1"
    access_key_id: "id"
    secret_access_key: "secret"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for invalid bucket name")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	valid := []string{"my-bucket", "data.lake.01"}
	invalid := []string{"ab", "UPPER", ".leading", "trailing.", "has..dots"}

	for _, name := range valid {
		if !isValidS3Bucket(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}
	for _, name := range invalid {
		if isValidS3Bucket(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}
