package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mumbai-meal-planner/internal/app"
	"mumbai-meal-planner/internal/config"
	"mumbai-meal-planner/internal/database"
	"mumbai-meal-planner/internal/images"
	"mumbai-meal-planner/internal/llm"
	"mumbai-meal-planner/internal/menu"
	"mumbai-meal-planner/internal/metrics"
	"mumbai-meal-planner/internal/planner"
	"mumbai-meal-planner/internal/prefs"
	"mumbai-meal-planner/internal/speech"
	"mumbai-meal-planner/internal/telegram"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required for the bot")
	}

	ctx := context.Background()

	var provider llm.Provider
	switch cfg.Provider {
	case "openai":
		provider = llm.NewOpenAIProvider(cfg.CompletionAPIURL, cfg.CompletionAPIKey)
	default:
		gemini, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		provider = gemini
	}
	if c, ok := provider.(llm.Closer); ok {
		defer c.Close()
	}

	waterfall, err := llm.NewWaterfall(provider, cfg.Models, cfg.CompletionTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize completion client: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	prefStore, err := prefs.NewStore(cfg.MemoryFile)
	if err != nil {
		log.Fatalf("Failed to load preferences: %v", err)
	}

	metricsStore := metrics.NewStore(db.SQL)
	sessions := telegram.NewSessionRepository(db.SQL)

	plans := menu.NewPlanStore()
	cal := planner.NewCalendar(cfg.Location(), cfg.WeekStartDay(), cfg.PlanDays)
	mealPlanner := planner.NewPlanner(waterfall, prefStore, plans, cal, cfg)

	application := app.NewApp(
		mealPlanner,
		prefStore,
		plans,
		cal,
		images.NewCache(cfg.ImageCacheTTL),
		speech.NewTTS(cfg.AudioDir),
		metricsStore,
	)

	bot, err := telegram.NewBot(cfg, application, sessions, metricsStore, "data")
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
