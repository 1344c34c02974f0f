package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kroma-labs/courier-go/example/client/internal/config"
	"github.com/kroma-labs/courier-go/example/client/internal/probe"
	"github.com/kroma-labs/courier-go/example/client/internal/telemetry"
	"github.com/kroma-labs/courier-go/httpclient"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func main() {
	ctx := context.Background()

	// 1. Setup OpenTelemetry (Tracing + Metrics)
	shutdownTracing, shutdownMetrics, err := telemetry.Setup(ctx)
	if err != nil {
		log.Fatalf("Failed to setup OTel: %v", err)
	}
	defer func() {
		shutdownTracing(ctx)
		shutdownMetrics(ctx)
	}()

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort}
	go func() {
		log.Printf("Starting Prometheus metrics server on %s", config.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Metrics server failed: %v", err)
		}
	}()

	// 3. Build the Courier Client
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	client := httpclient.New(
		httpclient.WithRetryCount(config.DefaultRetryCount),
		httpclient.WithRetryBackOff(httpclient.NewLinearBackOff()),
		httpclient.WithRedirectCount(config.DefaultRedirectCount),
		httpclient.WithDefaultTimeout(config.DefaultTimeoutSec*time.Second),
		httpclient.WithCookieJar(httpclient.NewJar()),
		httpclient.WithRateLimit(rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)),
		httpclient.WithLogger(logger),
		httpclient.WithDebug(true),
	)
	defer client.Close()

	// Register Connection Pool Metrics
	prometheus.MustRegister(httpclient.PoolCollector(client))

	// 4. Probe Endpoints in a Loop
	// This generates continuous metrics for demonstration
	targets := config.DefaultTargets
	if env := os.Getenv(config.DefaultTargetsEnv); env != "" {
		targets = strings.Split(env, ",")
	}
	prober := probe.New(client, targets, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(config.ProbeInterval * time.Second)
	defer ticker.Stop()

	fmt.Println("✅ Courier monitor example started!")
	fmt.Println("📊 Prometheus metrics: http://localhost:2112/metrics")
	fmt.Println("🔍 Grafana UI: http://localhost:3000")
	fmt.Println("Press Ctrl+C to stop...")

	for {
		select {
		case <-ticker.C:
			prober.Run(ctx)

			stats := client.PoolStats()
			log.Printf("Pool: %d dials, %d reuses", stats.Dials, stats.Reuses)

		case <-sigChan:
			fmt.Println("\n🛑 Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
			return
		}
	}
}
