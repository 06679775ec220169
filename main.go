package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/tinyhttp/config"
	"github.com/freekieb7/tinyhttp/filesystem"
	"github.com/freekieb7/tinyhttp/http"
	"github.com/freekieb7/tinyhttp/middleware"
	"github.com/freekieb7/tinyhttp/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalln(err)
	}
}

func run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServerName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		LogLevel:    level,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Println("telemetry shutdown:", err)
		}
	}()

	logger := tel.Logger

	fs, err := filesystem.NewLocalFileSystem(cfg.Root)
	if err != nil {
		return err
	}

	http.ServerName = cfg.ServerName

	chain := http.NewChain(middleware.Default(fs, cfg.IndexTemplate)...)
	if err := chain.Init(); err != nil {
		return err
	}

	pool, err := http.NewWorkerPool(cfg.Workers, logger)
	if err != nil {
		return err
	}

	server := http.NewServer(cfg.ServerName, chain,
		http.WithLogger(logger),
		http.WithWorkerPool(pool),
		http.WithTracerProvider(tel.TracerProvider),
		http.WithMeterProvider(tel.MeterProvider),
		http.WithReadTimeout(cfg.ReadTimeout),
		http.WithMaxHeaderBytes(cfg.MaxHeaderBytes),
		http.WithMaxBodyBytes(uint64(cfg.MaxBodyBytes)),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe(ctx, cfg.Addr)
	}()

	select {
	case err := <-serverErrCh:
		if !errors.Is(err, http.ErrServerClosed) {
			pool.Stop()
			return err
		}
	case <-ctx.Done():
		stop()
	}

	logger.Info("shutting down", "server", cfg.ServerName)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
