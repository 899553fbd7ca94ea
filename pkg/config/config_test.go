package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kelseyhightower/envconfig"
)

type sampleConfig struct {
	Endpoint string `envconfig:"ENDPOINT"`
	Region   string `envconfig:"REGION" default:"eastus"`
}

func TestExportEnvironmentKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "CIVICTEST_ENDPOINT=https://file.example\nCIVICTEST_REGION=westeurope\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("CIVICTEST_REGION", "brazilsouth")
	t.Setenv("CIVICTEST_ENDPOINT", "")
	os.Unsetenv("CIVICTEST_ENDPOINT")

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}

	var got sampleConfig
	if err := envconfig.Process("CIVICTEST", &got); err != nil {
		t.Fatalf("envconfig.Process() error = %v", err)
	}
	if got.Endpoint != "https://file.example" {
		t.Fatalf("Endpoint = %q, want value from file", got.Endpoint)
	}
	if got.Region != "brazilsouth" {
		t.Fatalf("Region = %q, want value from environment", got.Region)
	}
}

func TestExportEnvironmentIfExistsIgnoresMissingFile(t *testing.T) {
	t.Parallel()

	if err := exportEnvironmentIfExists(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("exportEnvironmentIfExists() error = %v", err)
	}
}
