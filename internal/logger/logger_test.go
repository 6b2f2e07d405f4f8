package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "volumes.log")

	log, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With(String("component", "test")).Info("hello", Int("n", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "hello") || !strings.Contains(out, `"component":"test"`) {
		t.Fatalf("log output = %q, want message and component field", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volumes.log")

	log, err := New(Options{Level: "error", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("quiet")
	log.Error("loud")
	_ = log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "quiet") {
		t.Fatalf("info line written at error level: %q", data)
	}
	if !strings.Contains(string(data), "loud") {
		t.Fatalf("error line missing: %q", data)
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(lvl) {
			t.Fatalf("ValidLevel(%q) = false, want true", lvl)
		}
	}
	if ValidLevel("verbose") {
		t.Fatalf("ValidLevel(verbose) = true, want false")
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("ignored")
	log.With(String("k", "v")).Errorf("ignored %d", 1)
}
