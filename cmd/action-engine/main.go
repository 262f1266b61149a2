// cmd/action-engine/main.go
package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"action-engine/internal/actions/audit"
	"action-engine/internal/actions/classifier"
	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/engine"
	"action-engine/internal/actions/planner"
	"action-engine/internal/actions/session"
	"action-engine/internal/actions/slots"
	"action-engine/internal/actions/store"
	"action-engine/internal/api"
	"action-engine/internal/common/camunda"
	"action-engine/internal/common/circuitbreaker"
	"action-engine/internal/common/config"
	"action-engine/internal/common/database"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/observability"
	roc "action-engine/internal/workers/ai-conversation/resolve-operator-command"
)

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	zapLog.Info("Starting action engine...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(cfg.App.Name, cfg.App.Version, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio); err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var readyChecks []api.Check

	// --- Pending store & turn lock ---
	redisClient := database.NewRedis(cfg.Database.Redis)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		zapLog.Warn("redis not reachable at startup", zap.Error(err))
	}
	pending := store.NewRedisPendingStore(redisClient.Client, config.GetDuration(cfg.Store.PendingTTL), log)
	locker := store.NewTurnLock(redisClient.Client, config.GetDuration(cfg.Store.LockTTL))
	readyChecks = append(readyChecks, api.Check{Name: "redis", Probe: redisClient.Ping})

	// --- Audit log ---
	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres init failed", zap.Error(err))
		}
		defer pg.Close()
		repo := audit.NewRepository(pg.DB, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			zapLog.Warn("audit schema not ensured", zap.Error(err))
		}
		recorder = repo
		readyChecks = append(readyChecks, api.Check{Name: "postgres", Probe: pg.Ping})
	}

	// --- Engine ---
	dispatcher := dispatch.NewExecutor(&dispatch.Config{
		BaseURL:     cfg.APIs.Actions.BaseURL,
		ExecutePath: cfg.APIs.Actions.ExecutePath,
		PreviewPath: cfg.APIs.Actions.PreviewPath,
		APIKey:      cfg.APIs.Actions.APIKey,
		Timeout:     config.GetDuration(cfg.APIs.Actions.Timeout),
	}, log)

	var remote classifier.Classifier
	if cfg.APIs.Classifier.Enabled {
		remote = classifier.NewClient(&classifier.Config{
			BaseURL:    cfg.APIs.Classifier.BaseURL,
			Path:       cfg.APIs.Classifier.Path,
			APIKey:     cfg.APIs.Classifier.APIKey,
			Timeout:    config.GetDuration(cfg.APIs.Classifier.Timeout),
			MaxRetries: cfg.APIs.Classifier.MaxRetries,
		}, log)
	}
	resolver := classifier.NewResolver(remote, circuitbreaker.New(circuitbreaker.DefaultConfig()), log)

	var replyPlanner planner.Planner
	if cfg.APIs.Planner.Enabled {
		replyPlanner = planner.NewClient(&planner.Config{
			BaseURL: cfg.APIs.Planner.BaseURL,
			Path:    cfg.APIs.Planner.Path,
			APIKey:  cfg.APIs.Planner.APIKey,
			Timeout: config.GetDuration(cfg.APIs.Planner.Timeout),
		}, log)
	}

	eng := engine.New(engine.Config{
		Policy:          slots.Policy{ReplaceRequiresPersona: cfg.Engine.ReplaceRequiresPersona},
		DefaultPlatform: cfg.Engine.DefaultPlatform,
	}, engine.Dependencies{
		Resolver:      resolver,
		Dispatcher:    dispatcher,
		Planner:       replyPlanner,
		Observability: obs,
	}, log)

	sessions := session.NewService(session.Options{
		Engine:  eng,
		Pending: pending,
		Locker:  locker,
		Audit:   recorder,
		Logger:  log,
	})

	// --- Zeebe worker ---
	var (
		zeebeClient zbc.Client
		jobWorker   worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		zeebeClient, err = camunda.Connect(ctx, cfg.Camunda, log)
		if err != nil {
			zapLog.Fatal("zeebe connect failed", zap.Error(err))
		}
		handler := roc.NewHandler(roc.LoadConfig(cfg), sessions, log)
		jobWorker = camunda.StartWorker(zeebeClient, roc.TaskType, config.GetWorkerConfig(cfg, roc.TaskType), handler.Handle, log)
	}

	// --- HTTP API ---
	if cfg.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr: cfg.Server.Address,
		Handler: api.NewServer(api.Options{
			Sessions:        sessions,
			Dispatcher:      dispatcher,
			ReadyChecks:     readyChecks,
			DefaultPlatform: cfg.Engine.DefaultPlatform,
			Logger:          log,
		}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Action engine stopped gracefully")
}
