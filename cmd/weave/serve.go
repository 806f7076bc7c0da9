package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/internal/presentation/tui"
	"github.com/aretw0/weave/internal/workflowfile"
	httpAdapter "github.com/aretw0/weave/pkg/adapters/http"
	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/editor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor HTTP server",
	Long: `Starts the workflow editor exposing a JSON API over HTTP, server-sent events
per workflow and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}

		// The server is created after the editor, so async notifications go through a late-bound hook.
		var notify atomic.Pointer[httpAdapter.Server]
		ctx := cmd.Context()
		rt, err := cli.Build(ctx, cfg, logger, func(slot string, e asyncprop.Entry) {
			if s := notify.Load(); s != nil {
				s.NotifyAsync(slot, e)
			}
		})
		if err != nil {
			return err
		}
		defer rt.Close()

		files, _ := cmd.Flags().GetStringSlice("open")
		if err := openFiles(ctx, rt.Editor, files); err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		server := httpAdapter.NewServer(rt.Editor, httpAdapter.WithRegistry(reg), httpAdapter.WithLogger(logger))
		notify.Store(server)

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				tui.PrintBanner(cmd.ErrOrStderr())
			}
			logger.Info("Starting Weave server", "addr", srv.Addr, "backend", cfg.Storage.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("Weave server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().StringSlice("open", nil, "Workflow files to open at startup")
	serveCmd.Flags().Bool("quiet", false, "Do not print the banner")
}

// openFiles loads each workflow file into the editor under its base name.
func openFiles(ctx context.Context, ed *editor.Editor, files []string) error {
	for _, path := range files {
		g, err := workflowfile.Read(path)
		if err != nil {
			return err
		}
		if err := ed.Open(ctx, workflowID(path), g); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
