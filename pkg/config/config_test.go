package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Name    string        `envconfig:"NAME" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

type validatedConfig struct {
	Mode string `envconfig:"MODE" default:"ok"`
}

var errBadMode = errors.New("bad mode")

func (c validatedConfig) Validate() error {
	if c.Mode != "ok" {
		return errBadMode
	}
	return nil
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "sales")

	cfg, err := New[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Name != "sales" || cfg.Timeout != 5*time.Second {
		t.Fatalf("New() = %+v", cfg)
	}
}

func TestNewRequiredMissing(t *testing.T) {
	if _, err := New[sampleConfig]("MISSINGPREFIX"); err == nil {
		t.Fatal("expected error for missing required variable")
	}
}

func TestNewRunsValidate(t *testing.T) {
	t.Setenv("CHECKED_MODE", "broken")

	if _, err := New[validatedConfig]("CHECKED"); !errors.Is(err, errBadMode) {
		t.Fatalf("New() error = %v, want errBadMode", err)
	}

	t.Setenv("CHECKED_MODE", "ok")
	if _, err := New[validatedConfig]("CHECKED"); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

func TestExportEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("DOTENV_NAME=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_NAME") })

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("DOTENV_NAME"); got != "from-file" {
		t.Fatalf("DOTENV_NAME = %q", got)
	}
}

func TestExportEnvironmentIfExistsSkipsMissing(t *testing.T) {
	if err := exportEnvironmentIfExists(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("exportEnvironmentIfExists() error = %v", err)
	}
}
