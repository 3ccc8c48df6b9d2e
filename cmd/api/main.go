package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/adapter/handler"
	"github.com/johnquangdev/minutemaestro/internal/bootstrap"
	httpmw "github.com/johnquangdev/minutemaestro/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/minutemaestro/pkg/config"
	"github.com/johnquangdev/minutemaestro/pkg/logger"
)

// @title           MinuteMaestro API
// @version         1.0
// @description     Live meeting session control, transcript feed and minutes generation
// @BasePath        /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Server.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		zlog.Warn("⚠️ Missing credentials, connect and minutes will fail", zap.Strings("missing", missing))
	}

	// Initialize dependencies
	zlog.Info("🔧 Initializing dependencies...")
	services, err := bootstrap.Build(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to build services", zap.Error(err))
	}

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(httpmw.RequestLogger(zlog.Named("http")))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	sessionHandler := handler.NewSessionHandler(services.Controller, zlog.Named("handler"))
	eventsHandler := handler.NewEventsHandler(services.Controller, cfg.Server.AllowedOrigins, zlog.Named("events"))
	metricsHandler := promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})

	router := handler.NewRouter(cfg, sessionHandler, eventsHandler, metricsHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := cfg.GetServerAddr()
		zlog.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("stream_url", services.Dialer.URL()),
		)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zlog.Info("🛑 Shutting down server...")

	// release the microphone before the listener goes away
	services.Controller.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		zlog.Fatal("❌ Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("✅ Server stopped gracefully")
}
