// Command websidesim serves an in-memory Smalltalk image over the Webside API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/guillermoamaral/VSCside/internal/imagesim"
)

func main() {
	// Flags override env
	listen := flag.String("listen", getEnv("WEBSIDESIM_LISTEN", ":9001"), "Address to listen on")
	dialect := flag.String("dialect", getEnv("WEBSIDESIM_DIALECT", "Pharo"), "Dialect reported by GET /dialect")
	changes := flag.Bool("changes", getEnvBool("WEBSIDESIM_CHANGES", true), "Serve the /changes endpoints")
	empty := flag.Bool("empty", false, "Start with an empty image instead of the sample one")
	debug := flag.Bool("debug", getEnvBool("WEBSIDESIM_DEBUG", false), "Log every request")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	img := imagesim.Sample()
	if *empty {
		img = imagesim.NewImage()
	}
	sim := imagesim.NewServer(img,
		imagesim.WithChanges(*changes),
		imagesim.WithDialect(*dialect),
		imagesim.WithLogger(logger),
	)

	logger.Info("websidesim starting",
		slog.String("listen", *listen),
		slog.String("dialect", *dialect),
		slog.Bool("changes", *changes),
		slog.Bool("empty", *empty),
	)

	srv := &http.Server{
		Addr:         *listen,
		Handler:      sim.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}

		close(done)
	}()

	logger.Info("websidesim listening", slog.String("addr", *listen))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	<-done
	logger.Info("websidesim stopped")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
