// webdump serves the contents of a local directory as a single browsable
// HTML page: every file gets a download link plus, where the content type
// allows it, an inline text, image or video preview.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/webdump/webdump/internal/api"
	"github.com/webdump/webdump/internal/classify"
	"github.com/webdump/webdump/internal/config"
	"github.com/webdump/webdump/internal/logging"
	"github.com/webdump/webdump/internal/metrics"
	"github.com/webdump/webdump/internal/page"
	"github.com/webdump/webdump/internal/preview"
	"github.com/webdump/webdump/internal/scan"
)

func main() {
	// Environment first, flags override.
	cfg := config.Load()
	flag.StringVar(&cfg.Dir, "d", cfg.Dir, "directory to serve")
	flag.StringVar(&cfg.Dir, "directory", cfg.Dir, "directory to serve")
	flag.BoolVar(&cfg.Recursive, "r", cfg.Recursive, "recurse into subdirectories")
	flag.BoolVar(&cfg.Recursive, "recursive", cfg.Recursive, "recurse into subdirectories")
	flag.StringVar(&cfg.IP, "i", cfg.IP, "IP address to listen on")
	flag.StringVar(&cfg.IP, "ip-address", cfg.IP, "IP address to listen on")
	flag.IntVar(&cfg.Port, "p", cfg.Port, "port to listen on")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")
	flag.Parse()

	if err := logging.Init(logging.Config{
		Level:  cfg.EffectiveLogLevel(),
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	root, err := cfg.ResolveDir()
	if err != nil {
		logging.Fatal("invalid directory", zap.Error(err))
	}

	logging.Info("webdump starting",
		zap.String("root", root),
		zap.Bool("recursive", cfg.Recursive),
		zap.String("listen", cfg.ListenAddr()),
		zap.String("metrics", cfg.MetricsAddr))

	scanner := scan.New(logging.L())
	classifier := classify.New()
	renderer := preview.NewRenderer(logging.L(), cfg.MaxPreviewBytes)
	builder := page.NewBuilder(logging.L(), scanner, classifier, renderer)

	srv := api.NewServer(logging.L(), root, cfg.Recursive, builder, classifier)

	// Metrics server on its own listener; empty addr disables it.
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		}
		go func() {
			logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv.Handler(),
	}

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	if useTLS {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Error("server shutdown error", zap.Error(err))
		}
		if metricsServer != nil {
			metricsServer.Shutdown(ctx)
		}
	}()

	if useTLS {
		logging.Info("server listening (TLS 1.3)",
			zap.String("addr", cfg.ListenAddr()),
			zap.String("cert", cfg.TLSCertFile))
		if err := httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	} else {
		logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr()))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	}
}
