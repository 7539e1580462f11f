package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/analysis"
	"github.com/ssss81511-cloud/news-insight-parser/app/api"
	"github.com/ssss81511-cloud/news-insight-parser/app/automation"
	"github.com/ssss81511-cloud/news-insight-parser/app/cfg"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/ingest"
	"github.com/ssss81511-cloud/news-insight-parser/app/selection"
	"github.com/ssss81511-cloud/news-insight-parser/app/sources"
	"github.com/ssss81511-cloud/news-insight-parser/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting News Insight Parser", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	sourceConfigs, err := sources.LoadDir(appCfg.SourcesDir)
	if err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded source configurations", "count", len(sourceConfigs))

	postRepo := database.NewPostRepository(db)
	groupRepo := database.NewGroupRepository(db)
	usedTopicRepo := database.NewUsedTopicRepository(db)
	contentRepo := database.NewContentRepository(db)
	runRepo := database.NewRunRepository(db)

	fingerprinter := ingest.NewFingerprinter()
	fetcher := sources.NewFetcher(fingerprinter, appCfg.UserAgent)
	extractor := sources.NewExtractor(appCfg.UserAgent)
	linker := ingest.NewLinker(postRepo, groupRepo, ingest.LinkerOptions{
		Threshold:   appCfg.DuplicateThreshold,
		TitleWeight: appCfg.TitleWeight,
		BodyWeight:  appCfg.BodyWeight,
		TimeWeight:  appCfg.TimeWeight,
		Window:      time.Duration(appCfg.DuplicateWindowHours) * time.Hour,
	})

	topicModel := analysis.NewTopicModel(analysis.NewKMeans(appCfg.ClusterSeed))
	engine := analysis.NewEngine(postRepo, topicModel, analysis.NewSignalScorer(), analysis.EngineOptions{
		LookbackDays:  appCfg.LookbackDays,
		TopicCount:    appCfg.TopicCount,
		WordsPerTopic: appCfg.WordsPerTopic,
		MinPosts:      appCfg.MinPosts,
	})

	selector := selection.NewSelector(engine, usedTopicRepo, selection.SelectorOptions{
		ExcludeDays:    appCfg.ExcludeDays,
		PreferTrending: appCfg.PreferTrending,
	})

	generator := automation.NewLLMGenerator(appCfg.LLMEndpoint, appCfg.LLMAPIKey, appCfg.LLMModel)

	var renderer automation.Renderer
	if appCfg.RenderEndpoint != "" {
		renderer = automation.NewHTTPRenderer(appCfg.RenderEndpoint)
	}

	var publisher automation.Publisher
	if appCfg.EnablePublish && appCfg.TelegramToken != "" && appCfg.TelegramChannel != "" {
		telegramPublisher, err := automation.NewTelegramPublisher(
			appCfg.TelegramToken, appCfg.TelegramChannel, appCfg.PublishRetries)
		if err != nil {
			slog.Error("Failed to create telegram publisher", "error", err)
			os.Exit(1)
		}
		publisher = telegramPublisher
	} else {
		slog.Info("Publishing disabled")
	}

	orchestrator := automation.NewOrchestrator(selector, postRepo, contentRepo,
		generator, renderer, publisher, automation.OrchestratorOptions{
			Format:   appCfg.ContentFormat,
			Tone:     appCfg.ContentTone,
			Language: appCfg.ContentLanguage,
		})

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(sourceConfigs, fetcher, extractor, linker,
		orchestrator, postRepo, groupRepo, usedTopicRepo, runRepo)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(sourceConfigs, postRepo, groupRepo, usedTopicRepo,
		contentRepo, runRepo, engine, orchestrator)
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
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
