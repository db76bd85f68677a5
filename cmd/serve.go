package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/photos"
	"github.com/joeypohie/photorank/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the photorank web server.
The web server provides a browser-based interface for uploading photos,
running the clustering and reviewing which shot of each group to keep.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 5001)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("upload-dir", "", "Directory for uploaded photos (default from UPLOAD_FOLDER)")
}

// applyServeFlags overrides config values with the flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if dir := mustGetString(cmd, "upload-dir"); dir != "" {
		cfg.Upload.Dir = dir
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	if c.cache != nil {
		fmt.Printf("Embedding cache enabled\n")
	}

	store, err := photos.NewStore(cfg.Upload.Dir)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, store, c.pipeline, c.cache != nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting photorank web UI on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Printf("Embedding provider: %s, quality scorer: %s\n", c.provider.Name(), c.scorer.Name())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
