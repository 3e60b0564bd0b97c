package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockmapper.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("blockmapper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

const sampleConfig = `
world = "/srv/worlds/alpha"
geometry = "-100:-100+200+200"
min_y = -64

[log]
verbose = true
file = "/var/log/blockmapper.log"

[retry]
backoff = "25ms"
max_attempts = 40
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World != "/srv/worlds/alpha" || cfg.Geometry != "-100:-100+200+200" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MinY != -64 || cfg.MaxY != DefaultMaxY {
		t.Errorf("y range = %d..%d", cfg.MinY, cfg.MaxY)
	}
	if !cfg.Log.Verbose || cfg.Log.MaxBackups != 3 {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Retry.Backoff != 25*time.Millisecond || cfg.Retry.MaxAttempts != 40 {
		t.Errorf("retry = %+v", cfg.Retry)
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name, body, want string
	}{
		{"unknown key", "wrold = \"x\"\n", "unknown keys: wrold"},
		{"bad type", "min_y = \"low\"\n", "min_y"},
		{"inverted range", "min_y = 10\nmax_y = 0\n", "above max_y"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestParseFlagsOnly(t *testing.T) {
	cfg, err := Parse(newFlagSet(), []string{"-i", "world", "-max-y", "100", "-v"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.World != "world" || cfg.MaxY != 100 || cfg.MinY != DefaultMinY || !cfg.Log.Verbose {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	fs := newFlagSet()
	extent := fs.Bool("extent", false, "")
	cfg, err := Parse(fs, []string{"-config", path, "-i", "other", "-busy-attempts", "2", "-extent"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.World != "other" {
		t.Errorf("World = %q, flag should win", cfg.World)
	}
	if cfg.Retry.MaxAttempts != 2 || cfg.Retry.Backoff != 25*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.MinY != -64 || cfg.Geometry != "-100:-100+200+200" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if !*extent {
		t.Error("extra flag not parsed")
	}
}
