// Newszoid is the news aggregation backend.
//
// Usage:
//
//	newszoid serve                         # run the HTTP API
//	newszoid news --category technology    # one-shot aggregation to stdout
//	newszoid version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vickykunwar/newszoid-backend/internal/api"
	"github.com/Vickykunwar/newszoid-backend/internal/config"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "newszoid",
		Short:         "News aggregation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "newszoid.yaml", "path to the YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(newsCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Log))
	return cfg, nil
}

func serveCmd(configPath *string) *cobra.Command {
	var noWarm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if noWarm {
				cfg.News.WarmSchedule = ""
			}
			return serve(cfg)
		},
	}

	cmd.Flags().BoolVar(&noWarm, "no-warm", false, "disable the scheduled news cache warmer")
	return cmd
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(api.Deps{
		Users:          a.users,
		News:           a.news,
		Fallback:       a.fallback,
		Library:        a.library,
		Weather:        a.weather,
		Market:         a.market,
		JWTSecret:      a.jwtSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         slog.Default(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting REST API server", "addr", srv.Addr, "version", version,
			"providers", a.news.Providers(), "ai_enabled", a.news.AIEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.scheduler.Start()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	a.scheduler.Stop()
	a.enricher.Wait()
	return nil
}

func newsCmd(configPath *string) *cobra.Command {
	var (
		category string
		location string
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Aggregate one page of news and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			get := a.news.GetNews
			key := category
			if location != "" {
				get, key = a.news.GetLocalNews, location
			}
			res, err := get(ctx, key, page, pageSize)
			if err != nil {
				return err
			}
			// Let in-flight summaries land before the process exits.
			a.enricher.Wait()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&category, "category", "general", "news category")
	cmd.Flags().StringVar(&location, "location", "", "city for local news (overrides --category)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "articles per page")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newszoid %s\n", version)
		},
	}
}
