package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SK3CHI3/REX-sub000/internal/app"
	"github.com/SK3CHI3/REX-sub000/internal/config"
	"github.com/SK3CHI3/REX-sub000/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "rexscraper",
	Short: "Background scraper that discovers and extracts police brutality incident reports",
	Long: `rexscraper discovers candidate articles from configured news sources,
extracts structured incident records through an external extraction service,
deduplicates them against published cases, and routes results into the
review queue or directly to publication.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scheduler, run an immediate full scrape, and serve the admin API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration: %w", err)
		}

		logger := logging.New(cfg.Logging.Level)
		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return application.Run(ctx)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run one full scrape synchronously and report the job count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration: %w", err)
		}

		logger := logging.New(cfg.Logging.Level)
		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		count, err := application.RunOnce(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("started %d scraping job(s)\n", count)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running scraper for status and stats",
	RunE: func(cmd *cobra.Command, _ []string) error {
		body, err := adminRequest(cmd.Context(), http.MethodGet, "/status")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all scheduled triggers on a running scraper",
	RunE: func(cmd *cobra.Command, _ []string) error {
		body, err := adminRequest(cmd.Context(), http.MethodPost, "/scheduler/stop")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

// adminRequest calls the admin API of a locally running serve process.
func adminRequest(ctx context.Context, method, path string) (string, error) {
	cfg := config.Load()

	base := cfg.Server.Addr
	if strings.HasPrefix(base, ":") {
		base = "localhost" + base
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, "http://"+base+path, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("is the scraper running? %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("admin api %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return strings.TrimSpace(string(payload)), nil
}

func main() {
	rootCmd.AddCommand(serveCmd, testCmd, statusCmd, stopCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
