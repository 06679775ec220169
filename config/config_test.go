package config

import (
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/freekieb7/tinyhttp/test"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	test.NoError(t, err)

	test.Equal(t, "127.0.0.1:7878", cfg.Addr)
	test.Equal(t, runtime.NumCPU(), cfg.Workers)
	test.Equal(t, "public", cfg.Root)
	test.Equal(t, "", cfg.IndexTemplate)
	test.Equal(t, "tinyhttp", cfg.ServerName)
	test.Equal(t, "", cfg.OTLPEndpoint)
	test.Equal(t, true, cfg.OTLPInsecure)
	test.Equal(t, time.Duration(0), cfg.ReadTimeout)
	test.Equal(t, 0, cfg.MaxHeaderBytes)
	test.Equal(t, int64(0), cfg.MaxBodyBytes)

	level, err := cfg.Level()
	test.NoError(t, err)
	test.Equal(t, slog.LevelInfo, level)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load([]string{
		"-addr", ":8080",
		"-workers", "2",
		"-root", "/srv/www",
		"-index-template", "listing.html",
		"-server-name", "edge",
		"-otlp-endpoint", "collector:4317",
		"-otlp-insecure=false",
		"-log-level", "debug",
		"-read-timeout", "5s",
		"-max-header-bytes", "8192",
		"-max-body-bytes", "1048576",
	})
	test.NoError(t, err)

	test.Equal(t, ":8080", cfg.Addr)
	test.Equal(t, 2, cfg.Workers)
	test.Equal(t, "/srv/www", cfg.Root)
	test.Equal(t, "listing.html", cfg.IndexTemplate)
	test.Equal(t, "edge", cfg.ServerName)
	test.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	test.Equal(t, false, cfg.OTLPInsecure)
	test.Equal(t, 5*time.Second, cfg.ReadTimeout)
	test.Equal(t, 8192, cfg.MaxHeaderBytes)
	test.Equal(t, int64(1048576), cfg.MaxBodyBytes)

	level, err := cfg.Level()
	test.NoError(t, err)
	test.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string][]string{
		"zero workers":     {"-workers", "0"},
		"negative workers": {"-workers", "-3"},
		"empty addr":       {"-addr", ""},
		"empty root":       {"-root", ""},
		"negative timeout": {"-read-timeout", "-1s"},
		"negative header":  {"-max-header-bytes", "-1"},
		"negative body":    {"-max-body-bytes", "-1"},
		"unknown level":    {"-log-level", "loud"},
		"extra arguments":  {"serve"},
	}

	for name, args := range tests {
		if _, err := Load(args); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	if _, err := Load([]string{"-port", "80"}); err == nil {
		t.Error("expected an error for an unknown flag")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Workers = 0
	cfg.Root = ""

	err := cfg.Validate()
	test.ErrorIs(t, err, ErrInvalidConfig)

	if !strings.Contains(err.Error(), "workers") || !strings.Contains(err.Error(), "root") {
		t.Errorf("error %q must report every problem", err)
	}
}
