package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "PUBLIC_ORIGIN", "QR_PRIMARY_ENDPOINT", "QR_DOTS_ENDPOINT", "CACHE_BACKEND", "FETCH_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.PublicOrigin != "http://localhost:8080" {
		t.Errorf("origin = %s", cfg.PublicOrigin)
	}
	e := cfg.Endpoints()
	if e.Primary != qrrequest.DefaultPrimaryEndpoint {
		t.Errorf("primary = %s", e.Primary)
	}
	if e.Dots != "http://localhost:8080/qrserver/v1/styled-qr-code/" {
		t.Errorf("dots = %s", e.Dots)
	}
	if cfg.CacheBackend != "memory" || cfg.FetchTimeout != 15*time.Second || !cfg.QRServerEnabled {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PUBLIC_ORIGIN", "https://cards.example/")
	t.Setenv("QR_DOTS_ENDPOINT", "")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("FETCH_TIMEOUT", "3")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("QRSERVER_ENABLED", "false")

	cfg := Load()
	if cfg.PublicOrigin != "https://cards.example" {
		t.Errorf("origin = %s", cfg.PublicOrigin)
	}
	if cfg.DotsEndpoint != "https://cards.example/qrserver/v1/styled-qr-code/" {
		t.Errorf("dots = %s", cfg.DotsEndpoint)
	}
	if cfg.CacheBackend != "redis" || cfg.FetchTimeout != 3*time.Second || cfg.RedisDB != 0 || cfg.QRServerEnabled {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatal("debug not parsed")
	}
	cfg.LogLevel = "chatty"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	for _, k := range []string{"PUBLIC_ORIGIN", "QR_CACHE_TTL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("CACHE_BACKEND", "none")

	path := filepath.Join(t.TempDir(), ".env")
	env := "PUBLIC_ORIGIN=https://dotenv.example\nQR_CACHE_TTL=60\nCACHE_BACKEND=redis\n"
	if err := os.WriteFile(path, []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := godotenv.Load(path); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.PublicOrigin != "https://dotenv.example" || cfg.CacheTTL != time.Minute {
		t.Fatalf("origin = %s ttl = %s", cfg.PublicOrigin, cfg.CacheTTL)
	}
	if cfg.CacheBackend != "none" {
		t.Fatalf("process env should win over .env, backend = %s", cfg.CacheBackend)
	}
}
