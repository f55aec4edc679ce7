// Package main Let's Write 页面服务入口
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/wire"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if Version != "dev" {
		cfg.App.Version = Version
	}

	logger.Init(logger.Options{
		Level:      cfg.Observability.Logging.Level,
		Format:     cfg.Observability.Logging.Format,
		Output:     cfg.Observability.Logging.Output,
		MaxSizeMB:  cfg.Observability.Logging.MaxSizeMB,
		MaxBackups: cfg.Observability.Logging.MaxBackups,
		MaxAgeDays: cfg.Observability.Logging.MaxAgeDays,
		Compress:   cfg.Observability.Logging.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting lets-write",
		"version", cfg.App.Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
		"generation_endpoint", cfg.Generation.Endpoint,
	)

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.Error(ctx, "failed to shutdown tracer", err)
		}
	}()

	app, cleanupApp, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize app", err)
	}
	defer cleanupApp()

	srv := &http.Server{
		Addr:         cfg.Server.HTTP.Addr(),
		Handler:      app.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", err)
		return
	}
	logger.Info(ctx, "server exited")
}
