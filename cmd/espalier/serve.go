package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	espalier "github.com/espalier-io/espalier"
	httpadapter "github.com/espalier-io/espalier/pkg/adapters/http"
	"github.com/espalier-io/espalier/pkg/adapters/memory"
	redisadapter "github.com/espalier-io/espalier/pkg/adapters/redis"
	"github.com/espalier-io/espalier/pkg/observability"
	"github.com/espalier-io/espalier/pkg/persistence/middleware"
	"github.com/espalier-io/espalier/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the form runtime in server mode, exposing a JSON API over HTTP plus Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		var store ports.SubmissionStore = memory.NewStore()
		var locker ports.DistributedLocker
		if redisAddr != "" {
			rstore := redisadapter.New(redisAddr, "", 0)
			defer rstore.Close()
			store = rstore
			locker = redisadapter.NewLocker(rstore.Client(), "espalier:lock:")
		}

		var mws []middleware.Middleware
		if maskPatterns, _ := cmd.Flags().GetStringSlice("mask"); len(maskPatterns) > 0 {
			pii, err := middleware.NewPIIMiddleware(maskPatterns)
			if err != nil {
				exitErr("Invalid --mask pattern: %v", err)
			}
			mws = append(mws, pii)
		}
		if key := os.Getenv("ESPALIER_ENCRYPTION_KEY"); key != "" {
			if len(key) != 32 {
				exitErr("ESPALIER_ENCRYPTION_KEY must be exactly 32 bytes")
			}
			mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
				ActiveKey: []byte(key),
			}))
		}
		if len(mws) > 0 {
			store = middleware.Chain(store, mws...)
		}

		reg := prometheus.NewRegistry()
		sink := observability.NewMultiSink(
			observability.NewLogSink(logger),
			observability.NewPrometheusSink(reg),
		)

		opts := []espalier.Option{
			espalier.WithFormRepository(formRepo(cmd)),
			espalier.WithSubmissionStore(store),
			espalier.WithAnalytics(sink),
			espalier.WithLogger(logger),
		}
		if locker != nil {
			opts = append(opts, espalier.WithDistributedLocker(locker))
		}
		engine := espalier.New(opts...)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/", httpadapter.NewHandler(engine, logger))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Espalier server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			exitErr("Server error: %v", err)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Espalier server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for submission storage and session locking (e.g. localhost:6379)")
	serveCmd.Flags().StringSlice("mask", nil, "Answer id patterns to mask before storage (regular expressions)")
}
