package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalog.app/health-tracker/internal/api"
	"vitalog.app/health-tracker/internal/config"
	"vitalog.app/health-tracker/internal/core"
	"vitalog.app/health-tracker/internal/store"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.Open(context.Background(), cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM client
	generator, err := newGenerator(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s language model client: %v", cfg.LLMProvider, err)
	}
	defer generator.Close()
	log.Printf("Using %s language model provider", generator.Name())

	observer := core.NewLogObserver()
	validator := core.NewValidator(cfg.ValidationPolicy)
	history := core.NewHistoryLoader(dbStore)
	annotator := core.NewAnnotator(generator, observer, cfg.LLMTimeout())

	apiHandler := api.NewAPIHandler(api.Services{
		Users:    core.NewUserService(dbStore, cfg.JWTSecret, cfg.JWTTTL()),
		Moods:    core.NewMoodService(dbStore, validator, annotator, history, cfg.HistoryTurns),
		Symptoms: core.NewSymptomService(dbStore, validator, annotator, history, cfg.HistoryTurns),
		Triage:   core.NewTriageService(dbStore, history, generator, observer, cfg.LLMTimeout(), cfg.HistoryTurns),
		Chat:     core.NewChatService(dbStore),
		Workouts: core.NewRecordService(dbStore, store.KindWorkout, validator, core.ValidateWorkout),
		Meals:    core.NewRecordService(dbStore, store.KindMeal, validator, core.ValidateMeal).WithNormalize(core.MealTotals),
		Metrics:  core.NewRecordService(dbStore, store.KindMetric, validator, core.ValidateMetric),
		Routines: core.NewRecordService(dbStore, store.KindRoutine, validator, core.ValidateRoutine),
		Store:    dbStore,
		Observer: observer,
		Provider: generator.Name(),
	})
	router := api.NewRouter(apiHandler, cfg.JWTSecret, cfg.MaxConcurrentRequests)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout() + 30*time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// generator.Close() and dbStore.Close() will be called by their defers.
	log.Println("Server exiting gracefully")
}

// newGenerator builds the client for the configured provider.
func newGenerator(ctx context.Context, cfg config.Config) (core.TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return core.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.ProviderOpenAI:
		return core.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case config.ProviderLocal:
		return core.NewLocalGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
