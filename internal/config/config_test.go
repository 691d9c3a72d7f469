package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PIPELINE_REQUEST_TIMEOUT", "")
	t.Setenv("PIPELINE_ANALYZER_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Pipeline.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected request timeout %s", cfg.Pipeline.RequestTimeout)
	}
	if cfg.Pipeline.AnalyzerTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected analyzer timeout %s", cfg.Pipeline.AnalyzerTimeout)
	}
	if cfg.Sessions.TTL != 30*time.Minute || cfg.Sessions.MaxActive != 100 || cfg.Sessions.SweepSchedule != "@every 1m" {
		t.Fatalf("unexpected session defaults %+v", cfg.Sessions)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PIPELINE_REQUEST_TIMEOUT", "2s")
	t.Setenv("PIPELINE_ANALYZER_TIMEOUT", "250")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" && !strings.HasSuffix(cfg.Server.Addr(), ":9090") {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr())
	}
	if cfg.Pipeline.RequestTimeout != 2*time.Second {
		t.Fatalf("unexpected request timeout %s", cfg.Pipeline.RequestTimeout)
	}
	if cfg.Pipeline.AnalyzerTimeout != 250*time.Millisecond {
		t.Fatalf("plain integers are milliseconds, got %s", cfg.Pipeline.AnalyzerTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestValidateRejectsAnalyzerBudgetAboveRequestBudget(t *testing.T) {
	t.Setenv("PIPELINE_REQUEST_TIMEOUT", "100ms")
	t.Setenv("PIPELINE_ANALYZER_TIMEOUT", "1s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRejectsBadSessionLimits(t *testing.T) {
	t.Setenv("SESSION_TTL", "0s")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero session ttl")
	}

	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("SESSION_MAX_ACTIVE", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative session limit")
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Database: "d", SSLMode: "disable", Password: "p"}.DSN()
	for _, part := range []string{"host=db", "port=5432", "user=u", "dbname=d", "sslmode=disable", "password=p"} {
		if !strings.Contains(dsn, part) {
			t.Fatalf("dsn %q missing %q", dsn, part)
		}
	}
}
