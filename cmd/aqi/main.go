package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/air-quality-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/air-quality-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-service/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-service/internal/adapter/smtp"
	"github.com/couchcryptid/air-quality-service/internal/adapter/sqlite"
	"github.com/couchcryptid/air-quality-service/internal/advice"
	"github.com/couchcryptid/air-quality-service/internal/alerts"
	"github.com/couchcryptid/air-quality-service/internal/config"
	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/model"
	"github.com/couchcryptid/air-quality-service/internal/observability"
	"github.com/couchcryptid/air-quality-service/internal/pipeline"
	"github.com/couchcryptid/air-quality-service/internal/prediction"
)

func main() {
	// A missing .env is fine; the environment alone is enough.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Training pipeline.
	modelCfg := model.DefaultConfig()
	modelCfg.TestSize = cfg.ModelTestSize
	modelCfg.Forest.Trees = cfg.ModelTrees
	modelCfg.Forest.Seed = cfg.ModelSeed
	modelCfg.Forest.MaxDepth = cfg.ModelMaxDepth
	modelCfg.Forest.MinSamplesSplit = cfg.ModelMinSamplesSplit
	modelCfg.Forest.Workers = cfg.ModelWorkers

	p := pipeline.New(
		dataset.NewFetcher(cfg.DatasetURL, cfg.DatasetFetchTimeout, logger),
		dataset.NewLoader(logger),
		model.NewTrainer(modelCfg, logger),
		pipeline.Config{
			DatasetPath:      cfg.DatasetPath,
			StartYear:        cfg.DatasetStartYear,
			HistoryStartYear: cfg.HistoryStartYear,
		},
		logger, metrics,
	)

	// Prediction sinks (feature-flagged via KAFKA_BROKERS / PREDICTION_LOG_PATH).
	var opts []prediction.Option
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, prediction.WithPublisher(publisher))
		logger.Info("kafka prediction events enabled", "topic", cfg.KafkaPredictionTopic)
	}
	var recorder *sqlite.Recorder
	var predictionLog httpadapter.PredictionLog
	if cfg.PredictionLogPath != "" {
		recorder, err = sqlite.Open(ctx, cfg.PredictionLogPath)
		if err != nil {
			logger.Error("failed to open prediction log", "path", cfg.PredictionLogPath, "error", err)
			os.Exit(1)
		}
		opts = append(opts, prediction.WithRecorder(recorder))
		predictionLog = recorder
		logger.Info("prediction log enabled", "path", cfg.PredictionLogPath)
	}

	models := prediction.ModelSourceFunc(func() (prediction.Model, error) {
		m, err := p.Model()
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	predictions := prediction.NewService(models, prediction.NewSession(), logger, metrics, opts...)

	// Advisor (feature-flagged via GEMINI_API_KEY).
	var advisor advice.Advisor
	if cfg.GeminiAPIKey != "" {
		client := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger)
		advisor = gemini.NewCachedAdvisor(client, cfg.AdviceCacheSize, metrics)
		logger.Info("gemini advisor enabled", "model", cfg.GeminiModel, "cache_size", cfg.AdviceCacheSize)
	} else {
		logger.Info("gemini advisor disabled")
	}

	// Email alerts (feature-flagged via SENDER_EMAIL / SENDER_PASS).
	var sender alerts.Sender
	smtpCfg := smtp.Config{Server: cfg.SMTPServer, Port: cfg.SMTPPort, Username: cfg.SenderEmail, Password: cfg.SenderPass}
	if smtpCfg.Configured() {
		s, err := smtp.NewSender(smtpCfg, logger)
		if err != nil {
			logger.Error("failed to configure smtp", "error", err)
			os.Exit(1)
		}
		sender = s
		logger.Info("email alerts enabled", "server", cfg.SMTPServer, "port", cfg.SMTPPort)
	} else {
		logger.Info("email alerts disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:            p,
		Snapshots:        p,
		Predictions:      predictions,
		Advice:           advice.NewService(advisor, logger, metrics),
		Alerts:           alerts.NewBroadcaster(sender, logger, metrics),
		Log:              predictionLog,
		HistoryStartYear: cfg.HistoryStartYear,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Train the model.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error("prediction log close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
