package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goban/internal/adapters"
	"goban/internal/bootstrap"
	"goban/internal/delivery"
	gameDelivery "goban/internal/delivery/game"
	katagoDelivery "goban/internal/delivery/katago"
	"goban/internal/domain/game"
	repo "goban/internal/repository"
	"goban/internal/usecase/analysis"
	gameUC "goban/internal/usecase/game"
	katagoUC "goban/internal/usecase/katago"
	remote "goban/microservices/repository"
)

const (
	analysisQueueSize = 16
	shutdownTimeout   = 5 * time.Second
)

type engine interface {
	katagoUC.Analyzer
	Close() error
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	databaseAdapters := initDatabaseAdapters(ctx, logger, cfg)
	defer databaseAdapters.close(context.Background())

	var store gameUC.LogStore
	var archive gameUC.Archive
	if databaseAdapters.redisAdapter != nil {
		store = repo.NewGameLogRepository(logger, databaseAdapters.redisAdapter.GetClient())
	}
	if databaseAdapters.mongoAdapter != nil {
		archive = repo.NewArchiveRepository(logger, databaseAdapters.mongoAdapter.Database)
	}
	games := gameUC.NewGameUseCase(logger, store, archive)

	var analyzer katagoUC.Analyzer
	var worker *analysis.Worker
	if cfg.EngineEnabled {
		eng, err := initEngine(cfg, logger)
		if err != nil {
			logger.Errorw("engine disabled", "error", err)
		} else {
			defer eng.Close()
			analyzer = eng
			worker = analysis.NewWorker(logger, eng, analysisQueueSize)
		}
	} else {
		logger.Info("engine disabled by configuration")
	}

	handlers := &delivery.Handlers{
		Game:   gameDelivery.NewGameHandler(logger, games, worker),
		Katago: katagoDelivery.NewKatagoHandler(logger, games, analyzer),
	}
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handlers.Router(cfg.IsLocalCors),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	g.Go(func() error {
		logger.Infof("Server is running on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorw("server stopped", "error", err)
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

// initEngine connects to the engine service when ENGINE_REMOTE_ADDR is set and
// otherwise runs KataGo locally.
func initEngine(cfg *bootstrap.Config, log *zap.SugaredLogger) (engine, error) {
	if cfg.EngineRemoteAddr != "" {
		log.Infof("using engine service at %s", cfg.EngineRemoteAddr)
		return remote.DialRemoteAnalyzer(cfg.EngineRemoteAddr, log)
	}

	engineCfg := repo.EngineConfig{
		Path:       cfg.KatagoPath,
		ConfigPath: cfg.KatagoConfigPath,
		ModelPath:  cfg.KatagoModelPath,
	}
	factory := func(onFailure func(error)) katagoUC.Transport {
		return repo.NewKatagoTransport(engineCfg, log, onFailure)
	}
	settings := katagoUC.LoadSettings(log, cfg.KatagoSettingsPath)
	registry := katagoUC.NewRegistry(log, factory, settings, cfg.Rules, cfg.Komi)

	// the default board size is started right away so a broken install shows up in the log
	if size, err := game.ParseBoardSize(cfg.BoardSize); err == nil {
		if _, err := registry.Client(size); err != nil {
			log.Warnw("failed to start engine", "board_size", size, "error", err)
		}
	}
	return registry, nil
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *dataBaseAdapters {
	dbs := &dataBaseAdapters{}

	if cfg.RedisUrl != "" {
		redisAdapter := adapters.NewAdapterRedis(cfg, log)
		if err := redisAdapter.Init(ctx); err != nil {
			log.Errorw("Не удалось инициализировать Redis, игры хранятся в памяти", "error", err)
		} else {
			dbs.redisAdapter = redisAdapter
		}
	}

	if cfg.MongoUri != "" {
		mongoAdapter := adapters.NewAdapterMongo(cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			log.Errorw("Не удалось инициализировать MongoDB, архив отключен", "error", err)
		} else {
			dbs.mongoAdapter = mongoAdapter
		}
	}

	log.Info("Адаптеры баз данных инициализированы")
	return dbs
}

func (d *dataBaseAdapters) close(ctx context.Context) {
	if d.redisAdapter != nil {
		_ = d.redisAdapter.Close(ctx)
	}
	if d.mongoAdapter != nil {
		_ = d.mongoAdapter.Close(ctx)
	}
}
