package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genshin_assistant/internal/config"
	"genshin_assistant/internal/delivery"
	"genshin_assistant/internal/httpapi"
	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/metrics"
	"genshin_assistant/internal/notify"
	"genshin_assistant/internal/scheduler"
	"genshin_assistant/internal/service"
	"genshin_assistant/internal/storage"
	"genshin_assistant/internal/store/sqlite"
	"genshin_assistant/internal/upstream"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bus := logbus.New(200)
	bus.Log("info", "assistant starting", map[string]any{"addr": cfg.Server.Addr})

	ctx := context.Background()
	history, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer history.Close()

	creds := storage.OpenCredentialStore(cfg.Storage.DataDir, bus)
	tracker := storage.OpenUsageTracker(cfg.Storage.DataDir, bus)
	subs := storage.OpenSubscriptionStore(cfg.Storage.DataDir, bus)
	bus.Log("info", "tables loaded", map[string]any{"users": creds.Len()})

	collector := metrics.NewCollector()
	factory := upstream.NewHTTPFactory(cfg.Upstream, bus).WithMetrics(collector)

	accounts := service.NewAccountService(creds, tracker, factory, bus)
	queries := service.NewQueryService(accounts, factory, bus, cfg.Schedule.ResinThreshold)
	actions := service.NewActionService(accounts, factory, history, bus)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Email.Enabled {
		email := notify.NewEmailNotifier(cfg.Email, bus)
		defer email.Close()
		notifier = email
	}

	sched := scheduler.New(cfg.Schedule, scheduler.Deps{
		Accounts:      accounts,
		Queries:       queries,
		Actions:       actions,
		Credentials:   creds,
		Subscriptions: subs,
		Tracker:       tracker,
		History:       history,
		Resolver:      delivery.NewWebhookResolver(cfg.Delivery),
		Notifier:      notifier,
		Metrics:       collector,
		Bus:           bus,
	})

	api := httpapi.New(httpapi.Options{
		Cfg:           cfg,
		Bus:           bus,
		Accounts:      accounts,
		Queries:       queries,
		Actions:       actions,
		Subscriptions: subs,
		History:       history,
		Metrics:       collector,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// The scheduler holds until the server is accepting; a sweep fired
	// before that could deliver into the void.
	ready := make(chan struct{})
	go sched.Run(runCtx, ready)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	close(ready)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		bus.Log("info", "shutdown signal received", map[string]any{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			bus.Log("error", "http server error", map[string]any{"error": err.Error()})
		}
	}

	cancelRun()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)
	tracker.Persist()
	bus.Log("info", "assistant stopped", nil)
	bus.Close()
}
