package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Addr          string
	Workers       int
	Root          string
	IndexTemplate string
	ServerName    string

	OTLPEndpoint string
	OTLPInsecure bool
	LogLevel     string

	ReadTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

func Default() Config {
	return Config{
		Addr:         "127.0.0.1:7878",
		Workers:      runtime.NumCPU(),
		Root:         "public",
		ServerName:   "tinyhttp",
		OTLPInsecure: true,
		LogLevel:     "info",
	}
}

// Load parses command line arguments, without the program name, on top of Default.
func Load(args []string) (Config, error) {
	cfg := Default()

	flags := flag.NewFlagSet("tinyhttp", flag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of worker goroutines")
	flags.StringVar(&cfg.Root, "root", cfg.Root, "directory served by the static and index middleware")
	flags.StringVar(&cfg.IndexTemplate, "index-template", cfg.IndexTemplate, "directory listing template, empty for the built-in one")
	flags.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "value of the server response header")
	flags.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP gRPC collector address, empty disables export")
	flags.BoolVar(&cfg.OTLPInsecure, "otlp-insecure", cfg.OTLPInsecure, "connect to the collector without TLS")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "time a client has to send its request, 0 waits forever")
	flags.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", cfg.MaxHeaderBytes, "request line and header size limit, 0 is unlimited")
	flags.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "request body size limit, 0 is unlimited")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if flags.NArg() > 0 {
		return Config{}, fmt.Errorf("%w: unexpected arguments %s", ErrInvalidConfig, strings.Join(flags.Args(), " "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.Addr == "" {
		errs = append(errs, fmt.Errorf("%w: addr is empty", ErrInvalidConfig))
	}
	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, cfg.Workers))
	}
	if cfg.Root == "" {
		errs = append(errs, fmt.Errorf("%w: root is empty", ErrInvalidConfig))
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: read timeout is negative", ErrInvalidConfig))
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: max header bytes is negative", ErrInvalidConfig))
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: max body bytes is negative", ErrInvalidConfig))
	}
	if _, err := cfg.Level(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

func (cfg Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}

	return level, nil
}
