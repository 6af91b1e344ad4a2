package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.Listen == nil || *cfg.Listen != ":8080" {
		t.Errorf("Expected Listen ':8080', got %v", cfg.Listen)
	}
	if cfg.GetDefaultCylFormat() != units.Minus {
		t.Errorf("GetDefaultCylFormat() = %q, want minus", cfg.GetDefaultCylFormat())
	}
	if cfg.GetSaveTimeout() != 10*time.Second {
		t.Errorf("GetSaveTimeout() = %v, want 10s", cfg.GetSaveTimeout())
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if got := cfg.GetListen(); got != DefaultListen {
		t.Errorf("GetListen() = %q, want %q", got, DefaultListen)
	}
	if got := cfg.GetDBPath(); got != DefaultDBPath {
		t.Errorf("GetDBPath() = %q, want %q", got, DefaultDBPath)
	}
	if got := cfg.GetDefaultCylFormat(); got != units.Minus {
		t.Errorf("GetDefaultCylFormat() = %q, want minus", got)
	}
	want := stockgrid.Diameters{60, 65, 70, 75, 80}
	got := cfg.GetCommonDiameters()
	if len(got) != len(want) {
		t.Fatalf("GetCommonDiameters() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetCommonDiameters()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	got[0] = 1
	if stockgrid.CommonDiameters[0] != 60 {
		t.Error("GetCommonDiameters must return a copy")
	}
	if cfg.GetSaveTimeout() != DefaultSaveTimeout {
		t.Errorf("GetSaveTimeout() = %v, want %v", cfg.GetSaveTimeout(), DefaultSaveTimeout)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "stockgrid.json", `{
  "listen": "127.0.0.1:9000",
  "db_path": "/var/lib/stockgrid/grid.db",
  "default_cyl_format": "plus",
  "common_diameters": [55, 60, 65],
  "save_timeout": "2s"
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.GetListen(); got != "127.0.0.1:9000" {
		t.Errorf("GetListen() = %q", got)
	}
	if got := cfg.GetDBPath(); got != "/var/lib/stockgrid/grid.db" {
		t.Errorf("GetDBPath() = %q", got)
	}
	if got := cfg.GetDefaultCylFormat(); got != units.Plus {
		t.Errorf("GetDefaultCylFormat() = %q, want plus", got)
	}
	if got := cfg.GetCommonDiameters(); len(got) != 3 || got[0] != 55 {
		t.Errorf("GetCommonDiameters() = %v", got)
	}
	if got := cfg.GetSaveTimeout(); got != 2*time.Second {
		t.Errorf("GetSaveTimeout() = %v, want 2s", got)
	}
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"db_path": "other.db"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetDBPath() != "other.db" {
		t.Errorf("GetDBPath() = %q, want other.db", cfg.GetDBPath())
	}
	if cfg.GetListen() != DefaultListen {
		t.Errorf("GetListen() = %q, want default", cfg.GetListen())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "config.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"listen":`, "failed to parse"},
		{"bad notation", "n.json", `{"default_cyl_format": "cross"}`, "default_cyl_format"},
		{"duplicate diameters", "d.json", `{"common_diameters": [60, 60]}`, "common_diameters"},
		{"negative diameter", "d.json", `{"common_diameters": [-5]}`, "common_diameters"},
		{"bad timeout", "t.json", `{"save_timeout": "soon"}`, "save_timeout"},
		{"zero timeout", "t.json", `{"save_timeout": "0s"}`, "save_timeout"},
		{"empty listen", "l.json", `{"listen": ""}`, "listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTooLarge(t *testing.T) {
	body := `{"listen": ":8080", "pad": "` + strings.Repeat("x", 1024*1024) + `"}`
	path := writeConfig(t, "big.json", body)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too large error, got %v", err)
	}
}
