// junie-webhook is the long-running server mode: it accepts GitHub webhook
// deliveries, queues triggered tasks, and serves a small status UI.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/juniehq/junie-agent/internal/config"
	"github.com/juniehq/junie-agent/internal/dispatcher"
	"github.com/juniehq/junie-agent/internal/githubapp"
	"github.com/juniehq/junie-agent/internal/run"
	"github.com/juniehq/junie-agent/internal/taskstore"
	"github.com/juniehq/junie-agent/internal/trigger"
	"github.com/juniehq/junie-agent/internal/web"
	"github.com/juniehq/junie-agent/internal/webhook"
)

var (
	loadDotEnv         = godotenv.Load
	loadConfig         = config.LoadServer
	newTaskStore       = taskstore.NewStore
	newDispatcher      = dispatcher.New
	newWebHandler      = web.NewHandler
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := runServer(context.Background(), defaultListenServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func runServer(ctx context.Context, serve func(string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting junie-webhook server...")
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Trigger phrase: %s", cfg.TriggerPhrase)
	log.Printf("GitHub App ID: %s", cfg.GitHubAppID)
	log.Printf("Dispatcher workers: %d, queue size: %d, max attempts: %d",
		cfg.DispatcherWorkers, cfg.DispatcherQueueSize, cfg.DispatcherMaxAttempts)

	taskStore := newTaskStore()

	auth := &githubapp.AppAuth{
		AppID:      cfg.GitHubAppID,
		PrivateKey: cfg.GitHubPrivateKey,
	}

	runner := run.New(cfg, auth)
	executor := run.NewTaskExecutor(runner, taskStore)

	taskDispatcher := newDispatcher(executor, dispatcher.Config{
		Workers:           cfg.DispatcherWorkers,
		QueueSize:         cfg.DispatcherQueueSize,
		MaxAttempts:       cfg.DispatcherMaxAttempts,
		InitialBackoff:    cfg.DispatcherRetryInitial,
		BackoffMultiplier: cfg.DispatcherBackoffMultiplier,
		MaxBackoff:        cfg.DispatcherRetryMax,
	})
	defer taskDispatcher.Shutdown(ctx)

	triggers := trigger.Config{
		Phrase:          cfg.TriggerPhrase,
		AssigneeTrigger: cfg.AssigneeTrigger,
		LabelTrigger:    cfg.LabelTrigger,
	}
	handler := webhook.NewHandler(cfg.GitHubWebhookSecret, triggers, taskDispatcher, taskStore)

	webHandler, err := newWebHandler(taskStore)
	if err != nil {
		return fmt.Errorf("failed to initialize web handler: %w", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/webhook", handler.Handle).Methods("POST")
	webHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"service":"junie-agent","status":"running","trigger":"%s"}`, cfg.TriggerPhrase)
	}).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Webhook endpoint: http://localhost%s/webhook", addr)
	log.Printf("Tasks UI: http://localhost%s/tasks", addr)

	if err := serve(addr, r); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}
