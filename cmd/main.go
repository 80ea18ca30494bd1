package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-interviewer/config"
	"ai-interviewer/infrastructure"
	"ai-interviewer/interfaces"
	"ai-interviewer/logging"
	"ai-interviewer/repository"
	"ai-interviewer/service"
)

func main() {
	cfg := config.Load()

	logger, err := logging.Init(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := infrastructure.NewMySQLConnection(cfg.DBDSN)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	store := repository.NewGormStore(db)

	rmq, err := infrastructure.NewRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("RabbitMQ setup failed", zap.Error(err))
	}
	defer rmq.Close()

	storage, err := infrastructure.NewLocalStorage(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		logger.Fatal("media storage setup failed", zap.Error(err))
	}

	svc := service.NewInterview(service.Deps{
		Store:        store,
		Generator:    infrastructure.NewGeminiClient(cfg),
		Scanner:      infrastructure.NewStubScanner(),
		Dispatcher:   rmq,
		Logger:       logger,
		MaxQuestions: cfg.MaxQuestions,
	})

	// Worker: consume queued units of work and route them into the engine.
	err = rmq.ConsumeTasks(func(task service.Task) {
		logger.Info("worker processing task",
			zap.String("kind", string(task.Kind)),
			zap.Uint("session_id", task.SessionID))
		if err := svc.RunTask(context.Background(), task); err != nil {
			logger.Error("task failed",
				zap.String("kind", string(task.Kind)), zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to start task consumer", zap.Error(err))
	}

	router := gin.Default()
	// Media is served by this process only when the base URL is a route path;
	// an absolute URL means the files live behind another server.
	if strings.HasPrefix(cfg.MediaBaseURL, "/") {
		router.Static(cfg.MediaBaseURL, cfg.MediaDir)
	}
	interfaces.NewHTTPHandler(router, svc, store,
		infrastructure.NewResumeExtractor(logger), storage, logger)

	logger.Info("server starting", zap.String("port", cfg.HTTPPort))
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
