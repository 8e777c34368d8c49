package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"goban/internal/bootstrap"
	repo "goban/internal/repository"
	katagoUC "goban/internal/usecase/katago"
	katago "goban/microservices/proto"
	"goban/microservices/usecase"
)

func main() {
	logger := NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
	if err != nil {
		logger.Fatalw("cant listen port", "port", cfg.GrpcPort, "error", err)
	}

	engine := NewRegistry(cfg, logger)
	defer engine.Close()

	server := grpc.NewServer()
	katago.RegisterKatagoServiceServer(server, usecase.NewKatagoUseCase(logger, engine))

	go func() {
		<-ctx.Done()
		logger.Info("Received shutdown signal")
		server.GracefulStop()
	}()

	logger.Infof("starting engine service at :%s", cfg.GrpcPort)
	if err := server.Serve(lis); err != nil {
		logger.Errorw("engine service stopped", "error", err)
	}
}

// NewRegistry starts KataGo processes on demand, one per board size.
func NewRegistry(cfg *bootstrap.Config, log *zap.SugaredLogger) *katagoUC.Registry {
	engineCfg := repo.EngineConfig{
		Path:       cfg.KatagoPath,
		ConfigPath: cfg.KatagoConfigPath,
		ModelPath:  cfg.KatagoModelPath,
	}
	factory := func(onFailure func(error)) katagoUC.Transport {
		return repo.NewKatagoTransport(engineCfg, log, onFailure)
	}
	settings := katagoUC.LoadSettings(log, cfg.KatagoSettingsPath)
	return katagoUC.NewRegistry(log, factory, settings, cfg.Rules, cfg.Komi)
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	return logger.Sugar()
}
