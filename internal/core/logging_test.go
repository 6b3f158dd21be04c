package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger_ParsesLevel(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("GetLevel() = %v, want %v", logger.GetLevel(), logrus.WarnLevel)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{LogLevel: "not-a-level"}
	if _, err := NewLogger(cfg); err == nil {
		t.Fatalf("NewLogger() error = nil, want a parse error")
	}
}

func TestNewLogger_WritesToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archon.log")
	cfg := &Config{LogLevel: "info", LogFilePath: path}

	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file = %q, want it to contain %q", data, "hello")
	}
}
