// Command dapd serves OPeNDAP DAP/2 requests over a directory of
// HDF5/NetCDF-4 containers and NcML join-existing aggregations, and can
// inspect a single container file from the command line.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scigolib/dapd/dataset"
	"github.com/scigolib/dapd/internal/config"
	"github.com/scigolib/dapd/internal/server"
)

var logger = logrus.StandardLogger()

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dapd",
		Short: "An OPeNDAP DAP/2 server for HDF5/NetCDF-4 containers",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DAP/2 HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to the TOML server configuration")
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.WithError(err).Fatal("failed to register flag")
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the DAS and DDS of a single container file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}

	rootCmd.AddCommand(serveCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("dapd failed")
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor returns 2 for a usageError (the config file could not be
// loaded) and 1 for every other failure. Errors cobra reports itself, such
// as a missing --config flag or a wrong argument count, are not
// usageErrors and exit with 1.
func exitCodeFor(err error) int {
	if _, ok := err.(usageError); ok {
		return 2
	}
	return 1
}

type usageError struct{ error }

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return usageError{fmt.Errorf("loading config: %w", err)}
	}

	registry, err := server.Build(cfg)
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.WithError(err).Error("error closing registry")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":   cfg.Addr,
		"routes": len(registry.Routes()),
	}).Info("dapd starting")

	handler := server.New(registry, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}

func runInspect(path string) error {
	ds, err := dataset.Open(path, path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer ds.Close()

	fmt.Print(ds.Das().Render())
	fmt.Print(ds.Dds().All())
	return nil
}
