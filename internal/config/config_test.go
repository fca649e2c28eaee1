package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("LAVA_CATALOG_BASE_URL", "http://localhost:3000")
	t.Setenv("LAVA_ENV", "development")
	t.Setenv("LAVA_DEFAULT_VOLUME", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CatalogBaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected catalog base url: %q", cfg.CatalogBaseURL)
	}
	if cfg.DefaultVolume != 0.5 {
		t.Fatalf("unexpected default volume: %v", cfg.DefaultVolume)
	}
}

func TestLoadRequiresACatalogSource(t *testing.T) {
	t.Setenv("LAVA_CATALOG_BASE_URL", "")
	t.Setenv("LAVA_STATION_SEED", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a catalog source")
	}

	t.Setenv("LAVA_STATION_SEED", "stations.yaml")
	if _, err := Load(); err != nil {
		t.Fatalf("expected seed-only config to load: %v", err)
	}
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	t.Setenv("LAVA_CATALOG_BASE_URL", "http://localhost:3000")

	t.Setenv("LAVA_DEFAULT_VOLUME", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to reject volume above 1")
	}
	t.Setenv("LAVA_DEFAULT_VOLUME", "0.8")

	t.Setenv("LAVA_AUTOPLAY_PRESET", "6")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to reject preset slot outside 1-5")
	}
}
