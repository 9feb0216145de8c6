package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/castarr/internal/assets"
	"github.com/jmylchreest/castarr/internal/config"
	"github.com/jmylchreest/castarr/internal/database"
	"github.com/jmylchreest/castarr/internal/database/migrations"
	"github.com/jmylchreest/castarr/internal/ffmpeg"
	"github.com/jmylchreest/castarr/internal/filler"
	internalhttp "github.com/jmylchreest/castarr/internal/http"
	"github.com/jmylchreest/castarr/internal/http/handlers"
	"github.com/jmylchreest/castarr/internal/httpclient"
	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/observability"
	"github.com/jmylchreest/castarr/internal/playback"
	"github.com/jmylchreest/castarr/internal/repository"
	"github.com/jmylchreest/castarr/internal/scheduler"
	"github.com/jmylchreest/castarr/internal/service"
	"github.com/jmylchreest/castarr/internal/stream"
	"github.com/jmylchreest/castarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the castarr server",
	Long: `Start the castarr HTTP server.

The server provides:
- Live channel streams (/video, /stream, /playlist, /m3u8)
- HDHomeRun tuner emulation for DVR discovery
- XMLTV guide at /xmltv.xml
- Management REST API with OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "host to bind to (overrides config)")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().String("data-dir", "", "data directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)
	observability.SetRequestLogging(cfg.Logging.EnableRequestLogging)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database and schema.
	dbCfg := cfg.Database
	if dbCfg.Driver == "sqlite" && dbCfg.DSN == "" {
		dbCfg.DSN = cfg.SQLitePath()
	}
	db, err := database.New(dbCfg, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	store := repository.NewStore(db.DB)

	// Playback cache warm start, so filler cooldowns survive restarts.
	cache := playback.NewCache()
	if records, err := store.Playback.GetAll(ctx); err != nil {
		logger.Warn("loading playback records", slog.Any("error", err))
	} else {
		cache.WarmStart(records)
		logger.Info("playback cache warmed", slog.Int("records", len(records)))
	}

	offlinePic, err := assets.EnsureOfflinePicture(cfg.DataDir)
	if err != nil {
		logger.Warn("materializing offline picture", slog.Any("error", err))
	}

	// Encoder binaries. Explicit paths from persisted settings win; env vars
	// and PATH lookup cover the rest. Missing ffmpeg is not fatal here, every
	// stream request re-detects.
	settings, err := store.Settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading encoder settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultFFmpegSettings()
	}
	detector := ffmpeg.NewBinaryDetector(settings.BinaryPath, settings.ProbePath)

	var prober *ffmpeg.Prober
	detectCtx, cancelDetect := context.WithTimeout(ctx, 10*time.Second)
	if info, err := detector.Detect(detectCtx); err != nil {
		logger.Warn("ffmpeg not found at startup; streams will fail until it is installed",
			slog.Any("error", err))
	} else {
		logger.Info("encoder detected",
			slog.String("ffmpeg", info.FFmpegPath),
			slog.String("version", info.Version))
		if info.FFprobePath != "" {
			prober = ffmpeg.NewProber(info.FFprobePath)
		} else {
			logger.Warn("ffprobe not found; sources stream without probe stats")
		}
	}
	cancelDetect()

	// Icon cache with a resilient fetcher.
	iconClientCfg := httpclient.DefaultConfig()
	iconClientCfg.Timeout = cfg.Icons.FetchTimeout
	iconClientCfg.UserAgent = version.UserAgent()
	iconClientCfg.Logger = logger
	icons, err := service.NewIconCache(cfg.IconCacheDir(), httpclient.New(iconClientCfg), logger)
	if err != nil {
		return fmt.Errorf("initializing icon cache: %w", err)
	}

	guide := service.NewGuideService(store.Channels, nil, guideBaseURL(cfg), logger)
	if cfg.Guide.Days > 0 {
		guide.SetWindow(time.Duration(cfg.Guide.Days) * 24 * time.Hour)
	}

	registry := stream.NewRegistry(cfg.Streaming.AttemptLimit, cfg.Streaming.AttemptWindow)

	ctrlCfg := stream.ControllerConfig{
		Store:                 store,
		Cache:                 cache,
		Picker:                filler.NewPicker(cache, nil),
		Detector:              detector,
		Sessions:              registry,
		SegmentDir:            cfg.SegmentDir(),
		DefaultOfflinePicture: offlinePic,
		Logger:                logger,
	}
	if prober != nil {
		ctrlCfg.Prober = prober
	}
	controller := stream.NewController(ctrlCfg)

	// HTTP server and handlers.
	server := internalhttp.NewServer(internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}, logger, version.Version)

	streamHandler := handlers.NewStreamHandler(controller, store.Settings, cfg.SegmentDir()).
		WithLogger(logger)
	streamHandler.RegisterChiRoutes(server.Router())
	streamHandler.Register(server.API())

	handlers.NewDiscoveryHandler(store.Channels).
		WithLogger(logger).
		RegisterChiRoutes(server.Router())

	handlers.NewGuideHandler(guide, icons).
		WithLogger(logger).
		RegisterChiRoutes(server.Router())

	handlers.NewChannelHandler(store.Channels).WithLogger(logger).Register(server.API())
	handlers.NewSettingsHandler(store.Settings).WithLogger(logger).Register(server.API())
	handlers.NewFillerHandler(store.Fillers).WithLogger(logger).Register(server.API())
	handlers.NewSessionHandler(registry).Register(server.API())
	handlers.NewVersionHandler().Register(server.API())
	handlers.NewHealthHandler(version.Version).WithDB(db.DB).Register(server.API())

	// Background maintenance.
	sched := scheduler.New(logger)
	jobs := []scheduler.Job{
		scheduler.PlaybackFlushJob(cache, store.Playback),
		pruneJob(cfg, store, logger),
		scheduler.SessionSweepJob(registry, cfg.SegmentDir(), logger),
		scheduler.IconPruneJob(icons, logger),
	}
	if cfg.Guide.Enabled {
		jobs = append(jobs, guideJob(cfg, guide))
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return fmt.Errorf("registering job: %w", err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	logger.Info("starting castarr",
		slog.String("address", cfg.Server.Address()),
		slog.String("version", version.Version),
		slog.String("data_dir", cfg.DataDir))

	serveErr := server.ListenAndServe(ctx)

	// Shutdown: stop jobs, then flush the playback cache so cooldown state is
	// not lost with the process.
	sched.Stop()
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if records := cache.Snapshot(); len(records) > 0 {
		if err := store.Playback.UpsertBatch(flushCtx, records); err != nil {
			logger.Warn("flushing playback records on shutdown", slog.Any("error", err))
		}
	}

	return serveErr
}

// applyFlagOverrides lets explicit serve flags win over config and env.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.Logging.Level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		cfg.Logging.Format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}
}

// guideBaseURL is the externally reachable root used in guide stream URLs.
func guideBaseURL(cfg *config.Config) string {
	if cfg.Server.BaseURL != "" {
		return strings.TrimRight(cfg.Server.BaseURL, "/")
	}
	host := cfg.Server.Host
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

func pruneJob(cfg *config.Config, store *repository.Store, logger *slog.Logger) scheduler.Job {
	job := scheduler.PlaybackPruneJob(store.Playback, cfg.Scheduler.PlaybackRetention, logger)
	if cfg.Scheduler.PruneCron != "" {
		job.Spec = cfg.Scheduler.PruneCron
	}
	return job
}

func guideJob(cfg *config.Config, guide *service.GuideService) scheduler.Job {
	job := scheduler.GuideRefreshJob(guide)
	if cfg.Guide.RefreshCron != "" {
		job.Spec = cfg.Guide.RefreshCron
	}
	return job
}
