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
	"go.uber.org/zap"

	"github.com/shrine-timeline/timeline-web/internal/images"
	"github.com/shrine-timeline/timeline-web/internal/observability"
	"github.com/shrine-timeline/timeline-web/internal/pages"
	"github.com/shrine-timeline/timeline-web/internal/prerender"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(baseLogger.Named("web")).ExecuteContext(ctx); err != nil {
		baseLogger.Error("command failed", zap.Error(err))
		stop()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

// devModeFromEnv prefers TIMELINE_WEB_DEV and falls back to DEV.
func devModeFromEnv() bool {
	return os.Getenv("TIMELINE_WEB_DEV") != "" || os.Getenv("DEV") != ""
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	cfg := appConfig{dev: devModeFromEnv()}
	root := &cobra.Command{
		Use:           "web",
		Short:         "Interactive historical timeline: dev server and static prerenderer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfg.siteFile, "site", os.Getenv("TIMELINE_SITE_FILE"), "site identity YAML file (optional)")
	pf.StringVar(&cfg.templatesDir, "templates", "", "templates directory; empty uses the embedded templates")
	pf.StringVar(&cfg.staticDir, "static", "static", "static assets directory (images/, icons/, favicon.png)")
	pf.StringVar(&cfg.contentDir, "content", "", "markdown intro override directory")
	pf.BoolVar(&cfg.dev, "dev", cfg.dev, "dev mode: serve from the root path and reload templates and content")

	root.AddCommand(newServeCmd(&cfg, logger), newBuildCmd(&cfg, logger), newFetchImagesCmd(&cfg, logger))
	return root
}

func newServeCmd(cfg *appConfig, logger *zap.Logger) *cobra.Command {
	// Port resolution: prefer TIMELINE_WEB_PORT, then PORT, else 8080
	port := os.Getenv("TIMELINE_WEB_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfg, logger)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a, addr, cfg.dev)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":"+port, "HTTP listen address")
	return cmd
}

func serve(ctx context.Context, a *app, addr string, dev bool) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if dev && a.intros.Dir() != "" {
		a.logger.Info("watching content", zap.String("dir", a.intros.Dir()))
		go func() {
			if err := a.intros.Watch(ctx, a.logger); err != nil {
				a.logger.Warn("content watch stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	serverLogger := a.logger.Named("http").With(zap.String("addr", addr))
	go func() {
		serverLogger.Info("web listening",
			zap.Bool("dev", dev),
			zap.String("site", a.site.ID),
			zap.String("base_path", a.site.BasePath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	serverLogger.Info("shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newBuildCmd(cfg *appConfig, logger *zap.Logger) *cobra.Command {
	var (
		outDir      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Prerender every route into a static directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfg, logger)
			if err != nil {
				return err
			}
			return build(cmd.Context(), a, outDir, concurrency)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "docs", "output directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel renders; 0 uses GOMAXPROCS")
	return cmd
}

func build(ctx context.Context, a *app, outDir string, concurrency int) error {
	entries := make([]string, 0, len(pages.All()))
	for _, r := range pages.All() {
		entries = append(entries, string(r))
	}
	b := &prerender.Builder{
		Handler:     a.routes(),
		Site:        a.site,
		OutDir:      outDir,
		StaticDir:   a.staticDir,
		Entries:     entries,
		Concurrency: concurrency,
		Logger:      a.logger.Named("prerender"),
	}
	report, err := b.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("build finished",
		zap.String("site", a.site.ID),
		zap.String("base_path", a.site.BasePath),
		zap.Int("files", len(report.Written)),
		zap.Int("missing_assets", len(report.Tolerated)),
	)
	return nil
}

func newFetchImagesCmd(cfg *appConfig, logger *zap.Logger) *cobra.Command {
	var (
		manifests   []string
		overrides   string
		concurrency int
		delay       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch-images",
		Short: "Download missing portraits, covers and artwork images into the static directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(manifests) == 0 {
				return errors.New("fetch-images: at least one --manifest is required")
			}
			var entries []images.Entry
			for _, m := range manifests {
				e, err := images.LoadManifest(m)
				if err != nil {
					return err
				}
				entries = append(entries, e...)
			}
			o, err := images.LoadOverrides(overrides)
			if err != nil {
				return err
			}
			f := &images.Fetcher{
				Client:      images.NewClient(images.DefaultEndpoints(), nil),
				Dir:         cfg.staticDir,
				Overrides:   o,
				Concurrency: concurrency,
				Delay:       delay,
				Logger:      logger.Named("images"),
			}
			_, err = f.Run(cmd.Context(), entries)
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&manifests, "manifest", "m", nil, "dataset JSON file (people.json, books.json, artworks.json); repeatable")
	cmd.Flags().StringVar(&overrides, "overrides", "", "YAML file with title and direct URL overrides")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "parallel downloads")
	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "pause after each download, per worker")
	return cmd
}
