package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DISAGREEMENT_WATCH_FIELDS", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("RATING_MIN_VOTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.WatchFields) != 3 || cfg.WatchFields[0] != "dosage" {
		t.Fatalf("unexpected default watch fields: %v", cfg.WatchFields)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("expected default cache ttl 10m, got %v", cfg.CacheTTL)
	}
	if cfg.RatingMinVotes != 3 || cfg.RatingHideThreshold != -0.5 {
		t.Fatalf("unexpected rating defaults: %d %v", cfg.RatingMinVotes, cfg.RatingHideThreshold)
	}
	if !cfg.Sources["rxnorm"].Enabled || cfg.Sources["rxnorm"].BaseURL == "" {
		t.Fatalf("expected rxnorm enabled by default, got %+v", cfg.Sources["rxnorm"])
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DISAGREEMENT_WATCH_FIELDS", " warnings , , mechanism ")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("QUERY_MIN_SCORE", "0.65")
	t.Setenv("DRUGBANK_ENABLED", "false")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.WatchFields) != 2 || cfg.WatchFields[1] != "mechanism" {
		t.Fatalf("unexpected watch fields: %v", cfg.WatchFields)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Fatalf("expected cache ttl 90s, got %v", cfg.CacheTTL)
	}
	if cfg.QueryMinScore != 0.65 {
		t.Fatalf("expected min score 0.65, got %v", cfg.QueryMinScore)
	}
	if cfg.Sources["drugbank"].Enabled {
		t.Fatalf("expected drugbank disabled")
	}
	if cfg.RateLimitBurst != 40 {
		t.Fatalf("expected invalid burst to fall back to 40, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rxverify.yaml")
	overlay := `
watch_fields: [dosage, adverseEvents]
sources:
  openfda:
    enabled: false
  DrugBank:
    base_url: http://drugbank.local
    api_key: secret
cache:
  dir: /var/cache/rxverify
  ttl: 5m
`
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DISAGREEMENT_WATCH_FIELDS", "")
	t.Setenv("CACHE_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.WatchFields) != 2 || cfg.WatchFields[1] != "adverseEvents" {
		t.Fatalf("unexpected watch fields: %v", cfg.WatchFields)
	}
	if cfg.Sources["openfda"].Enabled {
		t.Fatalf("expected openfda disabled by overlay")
	}
	drugbank := cfg.Sources["drugbank"]
	if drugbank.BaseURL != "http://drugbank.local" || drugbank.APIKey != "secret" || !drugbank.Enabled {
		t.Fatalf("unexpected drugbank config: %+v", drugbank)
	}
	if cfg.CacheDir != "/var/cache/rxverify" || cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected cache config: %q %v", cfg.CacheDir, cfg.CacheTTL)
	}
}

func TestLoadRejectsUnknownOverlaySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rxverify.yaml")
	if err := os.WriteFile(path, []byte("sources:\n  medline:\n    enabled: true\n"), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestLoadMissingOverlayFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected read error")
	}
}
