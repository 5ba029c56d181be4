package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/planloop/planloop/internal/adapter/discord"
	plhttp "github.com/planloop/planloop/internal/adapter/http"
	"github.com/planloop/planloop/internal/adapter/mcp"
	"github.com/planloop/planloop/internal/adapter/memqueue"
	plnats "github.com/planloop/planloop/internal/adapter/nats"
	plotel "github.com/planloop/planloop/internal/adapter/otel"
	"github.com/planloop/planloop/internal/adapter/ristretto"
	"github.com/planloop/planloop/internal/adapter/tools/canvas"
	"github.com/planloop/planloop/internal/adapter/tools/events"
	"github.com/planloop/planloop/internal/adapter/tools/guilds"
	"github.com/planloop/planloop/internal/adapter/tools/photos"
	"github.com/planloop/planloop/internal/adapter/tools/rsvp"
	"github.com/planloop/planloop/internal/adapter/ws"
	"github.com/planloop/planloop/internal/config"
	"github.com/planloop/planloop/internal/domain/agent"
	"github.com/planloop/planloop/internal/logger"
	"github.com/planloop/planloop/internal/port/messagequeue"
	"github.com/planloop/planloop/internal/service"
)

const version = "0.1.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"nats_url", cfg.NATS.URL,
		"mcp_addr", cfg.MCP.Addr,
		"poll_interval", cfg.Agent.PollInterval)

	// --- Observability ---

	shutdownTracer := plotel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := plotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		nq, err := plnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nq.Close() }()
		log.Info("nats connected", "url", cfg.NATS.URL)
		queue = nq
	} else {
		log.Info("no nats url configured, using in-process queue")
		queue = memqueue.New(log)
	}

	dedupeCache, err := ristretto.New(cfg.Cache.MaxBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer dedupeCache.Close()

	// --- Services ---

	eventsSvc := events.New()
	gateway := service.NewGatewayService(
		service.NewRBACService(log), log,
		eventsSvc, rsvp.New(), guilds.New(), photos.New(), canvas.New(),
	)
	gateway.SetMetrics(metrics)

	scheduler := service.NewSchedulerService(cfg.Rate, discord.NewSender(cfg.Discord), log)
	scheduler.SetMetrics(metrics)

	registry := service.NewTaskRegistry()
	reasoner := service.NewReasoner(dedupeCache, log)

	agentSvc := service.NewAgentService(agent.Config{
		MaxRetryAttempts: cfg.Agent.MaxRetryAttempts,
		MaxIterations:    cfg.Agent.MaxIterations,
		IdleCycleLimit:   cfg.Agent.IdleCycleLimit,
		DebugMode:        cfg.Agent.DebugMode,
		PollInterval:     cfg.Agent.PollInterval,
	}, reasoner, gateway, scheduler, registry, queue, log)
	agentSvc.SetMetrics(metrics)

	hub := ws.NewHub()
	agentSvc.OnSnapshot(func(snap agent.Snapshot) {
		hub.BroadcastEvent(context.Background(), ws.EventAgentStatus, ws.AgentStatusEvent{
			AgentID:         snap.AgentID,
			Status:          string(snap.Status),
			ProcessingStep:  snap.ProcessingStep,
			IterationCount:  snap.IterationCount,
			PendingEvents:   snap.PendingEvents,
			PendingMessages: snap.PendingMessages,
		})
	})

	ingest := service.NewIngestService(queue, registry, agentSvc, log)
	ingest.SetMetrics(metrics)
	cancelIngest, err := ingest.Start(ctx)
	if err != nil {
		return fmt.Errorf("ingest subscriber: %w", err)
	}
	defer cancelIngest()

	reminders := service.NewReminderService(
		eventsSvc, agentSvc, cfg.Agent.ReminderScan, cfg.Agent.ReminderOffset, log)

	// --- HTTP ---

	handlers := plhttp.NewHandlers(ingest, registry, agentSvc, hub, queue)

	r := chi.NewRouter()
	r.Use(plhttp.RequestID)
	r.Use(plhttp.SecurityHeaders)
	r.Use(plhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(plhttp.Logger)
	plhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- MCP ---

	var mcpSrv *mcp.Server
	if cfg.MCP.Addr != "" {
		mcpSrv = mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "planloop",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{
			Gateway: gateway,
			Status:  agentSvc,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		log.Info("mcp server listening", "addr", cfg.MCP.Addr)
	}

	// --- Run ---

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Agent loop ending for any reason takes the process down.
		defer stop()
		return agentSvc.Run(gctx)
	})

	g.Go(func() error {
		if err := reminders.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		agentSvc.Stop()
		if mcpSrv != nil {
			_ = mcpSrv.Stop(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
