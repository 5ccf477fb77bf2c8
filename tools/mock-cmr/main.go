// Package main runs an in-memory CMR for local development. It serves the
// token, search, validate and ingest endpoints cmrctl uses, seeded from a
// directory of metadata files, so no Earthdata account is needed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/cmr-client/internal/cmrtest"
	"github.com/donaldgifford/cmr-client/pkg/cmr"
	"github.com/donaldgifford/cmr-client/pkg/logger"
)

func main() {
	port := flag.Int("port", 3003, "port to listen on")
	seedDir := flag.String("seed", "tools/mock-cmr/testdata", "directory of <provider>/<collections|granules>/<file> metadata to load")
	username := flag.String("user", "", "username accepted by the token endpoint")
	password := flag.String("password", "", "password accepted by the token endpoint")
	requireToken := flag.Bool("require-token", false, "reject writes without a token")
	logLevel := flag.String("log-level", "debug", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Options{Level: *logLevel, Format: "text"})

	opts := []cmrtest.Option{cmrtest.WithLogger(log)}
	if *username != "" {
		opts = append(opts, cmrtest.WithUser(*username, *password))
	}
	if *requireToken {
		opts = append(opts, cmrtest.WithRequireToken())
	}
	mock := cmrtest.New(opts...)

	if *seedDir != "" {
		n, err := seed(mock, *seedDir)
		if err != nil {
			log.Error("failed to load seed metadata", "dir", *seedDir, "error", err)
			os.Exit(1)
		}
		log.Info("loaded seed metadata", "concepts", n)
	}
	mock.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mock.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("starting mock CMR", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// seed loads every metadata file under dir. The first path element names the
// provider and the second the concept type; .json files are UMM-JSON and
// everything else ECHO10.
func seed(mock *cmrtest.Server, dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return fmt.Errorf("%s: want <provider>/<concept type>/<file>", rel)
		}

		conceptType, err := cmr.ParseConceptType(parts[1])
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		format := cmr.FormatEcho10
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = cmr.FormatUMMJSON
		}

		data, err := os.ReadFile(path) //nolint:gosec // seed path from trusted CLI flag
		if err != nil {
			return fmt.Errorf("reading seed file: %w", err)
		}
		if _, err := mock.Seed(parts[0], cmr.Concept{Type: conceptType, Format: format, Metadata: data}); err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		n++
		return nil
	})
	return n, err
}
