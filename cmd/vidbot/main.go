package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/api"
	"github.com/yourusername/vidbot/internal/app"
	"github.com/yourusername/vidbot/internal/domain"
	"github.com/yourusername/vidbot/internal/infrastructure"
	"github.com/yourusername/vidbot/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "vidbot",
		Short: "vidbot - WhatsApp video download bot",
		Long:  `Watches WhatsApp chats for YouTube, Facebook and Instagram links, downloads the videos and sends them back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		Service:    "vidbot",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting vidbot",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("group", config.Scope.GroupName),
		zap.Int("concurrent_limit", config.Download.ConcurrentLimit))

	if err := createDirectories(config); err != nil {
		return err
	}

	bus, err := logger.NewLogBus(config.BusFilePath(), log.Named("bus"))
	if err != nil {
		return fmt.Errorf("failed to open log feed: %w", err)
	}
	defer bus.Close()

	repo, err := infrastructure.NewSQLiteJobRepository(config.Download.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	store := infrastructure.NewFileStore(config.Download.IncomingDir, config.Download.VideosDir)

	downloaders := map[domain.Platform]domain.Downloader{
		domain.PlatformYouTube: infrastructure.NewYouTubeDownloader(store, &config.Messages, log.Named("youtube")),
		domain.PlatformFacebook: infrastructure.NewFacebookScraper(
			&config.Facebook,
			infrastructure.NewHTTPClient(config.Facebook.InsecureSkipVerify, 0),
			store,
			&config.Messages,
			log.Named("facebook"),
		),
		domain.PlatformGeneric: infrastructure.NewGenericHeadlessScraper(
			&config.Browser,
			infrastructure.NewHTTPClient(false, 0),
			store,
			&config.Messages,
			log.Named("generic"),
		),
	}

	whatsapp := infrastructure.NewWhatsAppClient(&config.Session, repo, log.Named("whatsapp"))
	notifier := infrastructure.NewChatNotifier(whatsapp, &config.Messages, log.Named("notifier"))
	sender := infrastructure.NewMediaSender(whatsapp, bus, log.Named("sender"))

	dispatcher := app.NewDownloadDispatcher(repo, downloaders, notifier, sender, bus, &config.Download, log.Named("dispatcher"))

	var terminal io.Writer
	if config.Session.PrintQRTerminal {
		terminal = os.Stdout
	}
	qr := infrastructure.NewQRWriter(config.Session.QRFile, terminal)
	session := app.NewSessionManager(whatsapp, qr, bus, &config.Session, log.Named("session"))

	bot := app.NewBot(
		session,
		app.NewMessageFilter(config.Scope),
		app.NewUrlExtractor(),
		dispatcher,
		repo,
		bus,
		&config.Download,
		log.Named("bot"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Dependencies{
		Bot:      bot,
		Session:  session,
		Activity: dispatcher,
		QR:       qr,
		Jobs:     repo,
		LogBus:   bus,
		Logger:   log.Named("http"),
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		bus.Info("Server is running on port %d", config.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// In-flight jobs are cancelled rather than awaited for their full timeout.
	cancel()
	if err := bot.Stop(); err != nil {
		log.Error("Error stopping bot", zap.Error(err))
	}

	log.Info("Shutdown complete")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.VideosDir,
		config.Download.IncomingDir,
		config.Download.LogsDir,
		filepath.Dir(config.Download.DatabasePath),
		filepath.Dir(config.Session.StorePath),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
