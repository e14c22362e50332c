package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"jobportal/internal/app"
	"jobportal/internal/config"
	"jobportal/internal/notify"
	"jobportal/internal/server"
	"jobportal/internal/storage"
	"jobportal/internal/store"
	"jobportal/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}

	var blobs storage.BlobStore
	if cfg.MinioEndpoint != "" {
		blobs, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init minio store: %v", err)
		}
	} else {
		blobs, err = storage.NewFileStore(cfg.UploadDir)
		if err != nil {
			log.Fatalf("failed to init file store: %v", err)
		}
	}

	notifier := notify.New(
		notify.NewSheetSink(cfg.GoogleSheetID, cfg.GoogleCredentialsFile),
		notify.NewEmailSink(cfg.SendgridAPIKey, cfg.SendgridFromEmail, cfg.SendgridFromName, cfg.NotifyEmail, cfg.CCEmail),
	)

	appCore, err := app.New(app.Config{
		Store:        dataStore,
		Blobs:        blobs,
		Notifier:     notifier,
		BaseURL:      cfg.PortalBaseURL,
		MaxFileBytes: cfg.MaxUploadBytes,
		MaxFiles:     cfg.MaxFilesPerRequest,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxFiles:       cfg.MaxFilesPerRequest,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("job portal listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
