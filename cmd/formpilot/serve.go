package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/formpilot/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing the form pipeline.

Endpoints:
  POST /analyze   - List the fields of an uploaded PDF
  POST /fill      - Fill an uploaded PDF from a profile
  POST /translate - Translate field names
  GET  /health    - Health check
  GET  /metrics   - Prometheus metrics

Examples:
  formpilot serve
  formpilot serve --port 9000
  formpilot serve --host 0.0.0.0 --cors-origin https://forms.example.ch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("host", "H", "127.0.0.1", "server host")
	serveCmd.Flags().IntP("port", "p", 8088, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int64("max-upload-size", 25, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("analyze", false, "ask the LLM for context-aware labels when filling")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	corsOrigin := cfg.Server.CORSOrigin
	if cmd.Flags().Changed("cors-origin") {
		corsOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	maxUpload := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUpload, _ = cmd.Flags().GetInt64("max-upload-size")
	}
	timeout, _ := cmd.Flags().GetInt("timeout")
	shutdownTimeout, _ := cmd.Flags().GetInt("shutdown-timeout")

	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	contextAnalysis, _ := cmd.Flags().GetBool("analyze")
	comps, err := buildComponents(ctx, cfg, log, contextAnalysis)
	if err != nil {
		return err
	}
	defer comps.Close()

	// Load the OCR engine before the first request arrives
	if err := comps.adapter.Init(ctx); err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		Pipeline:    comps.service,
		Labeler:     comps.translator,
		Logger:      log,
		CORSOrigin:  corsOrigin,
		MaxUploadMB: maxUpload,
		Version:     Version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	cfg.Server.Host = host
	cfg.Server.Port = port
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(timeout) * time.Second,
		WriteTimeout:      time.Duration(timeout) * time.Second,
	}

	go func() {
		log.WithFields("addr", httpServer.Addr, "engine", comps.adapter.EngineName()).Info("Starting form server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server error")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.WithFields("signal", sig.String()).Info("Received shutdown signal")
	case <-ctx.Done():
		log.Info("Context cancelled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
		return err
	}
	log.Info("Graceful shutdown completed")
	return nil
}
