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

	"github.com/JetpackDuba/NyaaParser/app/api"
	"github.com/JetpackDuba/NyaaParser/app/cfg"
	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/dispatch"
	"github.com/JetpackDuba/NyaaParser/app/feed"
	"github.com/JetpackDuba/NyaaParser/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	cfg.SetupLogger(appCfg.Debug)

	slog.Info("Starting NyaaParser",
		"version", appCfg.Version,
		"feeds", len(appCfg.FeedURLs),
		"workers", appCfg.WorkerCount,
		"interval", appCfg.SchedulerInterval,
		"dry_run", appCfg.DryRun)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, _, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version)

	configCache := feed.NewConfigCache(appCfg.ShowsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load show configurations", "dir", appCfg.ShowsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Show configurations loaded", "dir", appCfg.ShowsDir, "shows", configCache.GetConfigCount())

	feedRepo := database.NewFeedRepository(db)
	episodeRepo := database.NewEpisodeRepository(db)

	for _, feedURL := range appCfg.FeedURLs {
		if err := feedRepo.UpsertFeed(feedURL); err != nil {
			slog.Warn("Failed to register feed", "feed", feedURL, "error", err)
		}
	}

	submitter := dispatch.NewTransmissionRemote(appCfg.TransmissionRemote, appCfg.TransmissionHost, appCfg.TransmissionAuth)
	httpClient := &http.Client{}

	scheduler := tasks.NewScheduler(configCache, feedRepo, episodeRepo, httpClient,
		feed.NewParser(), feed.NewSelector(), submitter, tasks.SchedulerOptions{
			FeedURLs:    appCfg.FeedURLs,
			Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
			WorkerCount: appCfg.WorkerCount,
			FeedCheck: tasks.FeedCheckOptions{
				UserAgent: appCfg.UserAgent,
				Timeout:   time.Duration(appCfg.FetchTimeout) * time.Second,
				DryRun:    appCfg.DryRun,
			},
		})
	scheduler.Start()
	defer scheduler.Stop()

	selfLink := fmt.Sprintf("http://localhost:%s/feeds/downloads", appCfg.Port)
	if appCfg.BaseUrl != "" {
		selfLink = appCfg.BaseUrl + "/feeds/downloads"
	}

	handler := api.NewHandler(configCache, feedRepo, episodeRepo,
		feed.NewGenerator(selfLink, appCfg.Version), scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and database are closed via defer
	slog.Info("Shutdown complete")
}
