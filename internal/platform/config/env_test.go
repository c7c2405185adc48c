package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int    `env:"GATEHOUSE_TEST_PORT" envDefault:"123"`
	Mode string `env:"GATEHOUSE_TEST_MODE" envDefault:"development"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("Port = %d, want %d", cfg.Port, 123)
	}
	if cfg.Mode != "development" {
		t.Fatalf("Mode = %q, want %q", cfg.Mode, "development")
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("GATEHOUSE_TEST_MODE", "production")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Mode != "production" {
		t.Fatalf("Mode = %q, want %q", cfg.Mode, "production")
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("GATEHOUSE_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
