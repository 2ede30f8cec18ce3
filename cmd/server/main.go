package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/micro-ha/airplane-scheduler/internal/app"
	"github.com/micro-ha/airplane-scheduler/internal/config"
	httpapi "github.com/micro-ha/airplane-scheduler/internal/http"
	"github.com/micro-ha/airplane-scheduler/internal/http/handlers"
	"github.com/micro-ha/airplane-scheduler/internal/logging"
	"github.com/micro-ha/airplane-scheduler/internal/poller"
	"github.com/micro-ha/airplane-scheduler/internal/reporting"
	"github.com/micro-ha/airplane-scheduler/internal/scheduler"
	"github.com/micro-ha/airplane-scheduler/internal/services/actuator"
	"github.com/micro-ha/airplane-scheduler/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
		logger.Error("failed to create db directory", "err", err)
		os.Exit(1)
	}
	repo, err := storage.New(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	core, err := app.NewCore(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to initialize backend", "err", err)
		os.Exit(1)
	}
	logger.Info("backend ready",
		"backend", core.Name,
		"root_backend", core.Executor.Name(),
		"gate_mode", actuator.ParseGateMode(cfg.GateMode),
	)

	hub := reporting.NewHub(logger)
	defer hub.Close()
	statePoller := poller.New(core.Settings, hub, cfg.StatePollInterval, logger)

	reporter := reporting.Multi{
		reporting.LogReporter{Logger: logger},
		reporting.NewNotifier(repo, logger),
		hub,
	}
	toggler := actuator.NewPipeline(core.Gate, reporter, statePoller)

	sched := scheduler.New(toggler, afero.NewOsFs(), cfg.SchedulesPath, logger)
	if err := sched.Reload(ctx); err != nil {
		logger.Warn("initial schedules load failed; starting with none", "path", cfg.SchedulesPath, "err", err)
	}

	api := handlers.New(handlers.Dependencies{
		State:         core.Settings,
		Capabilities:  core.Probe,
		Toggler:       toggler,
		Surface:       core.Surface,
		Schedules:     sched,
		StateCache:    statePoller,
		Notifications: repo,
		Logger:        logger,
	})
	rpc := handlers.NewRPCServer(api)
	defer rpc.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(api, httpapi.Options{Events: hub, RPC: rpc, RPCToken: cfg.RPCToken}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sched.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		if err := sched.Watch(groupCtx); err != nil {
			logger.Warn("schedules watcher disabled", "err", err)
		}
		return nil
	})
	group.Go(func() error {
		statePoller.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		runInboxPrune(groupCtx, repo, cfg.NotificationKeep, logger)
		return nil
	})
	group.Go(func() error {
		logger.Info("server starting", "addr", httpServer.Addr)
		return httpapi.RunServer(groupCtx, httpServer)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
