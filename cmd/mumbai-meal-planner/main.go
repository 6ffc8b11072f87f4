package main

import (
	"context"
	"flag"
	"fmt"
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
	"mumbai-meal-planner/internal/server"
	"mumbai-meal-planner/internal/speech"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(ctx, cfg)
	case "plan":
		runPlan(ctx, cfg, os.Args[2:])
	case "dislikes":
		runDislikes(cfg, os.Args[2:])
	case "metrics-cleanup":
		runMetricsCleanup(cfg, os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mumbai-meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Start the web server")
	fmt.Println("  plan               Generate and print a menu for a date")
	fmt.Println("  dislikes           List, add or remove disliked ingredients")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}

// buildApp wires the planner stack shared by all commands.
func buildApp(ctx context.Context, cfg *config.Config) (*app.App, *metrics.Store, func()) {
	var provider llm.Provider
	var closers []func()

	switch cfg.Provider {
	case "openai":
		provider = llm.NewOpenAIProvider(cfg.CompletionAPIURL, cfg.CompletionAPIKey)
	default:
		gemini, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		provider = gemini
	}
	if c, ok := provider.(llm.Closer); ok {
		closers = append(closers, func() { c.Close() })
	}

	waterfall, err := llm.NewWaterfall(provider, cfg.Models, cfg.CompletionTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize completion client: %v", err)
	}

	prefStore, err := prefs.NewStore(cfg.MemoryFile)
	if err != nil {
		log.Fatalf("Failed to load preferences: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	closers = append(closers, func() { db.Close() })

	metricsStore := metrics.NewStore(db.SQL)

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

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return application, metricsStore, cleanup
}

func runServe(ctx context.Context, cfg *config.Config) {
	application, metricsStore, cleanup := buildApp(ctx, cfg)
	defer cleanup()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.New(application, metricsStore, "data"),
	}

	go func() {
		log.Printf("Meal planner listening on port %s", port)
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

func runPlan(ctx context.Context, cfg *config.Config, args []string) {
	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	date := planCmd.String("date", "", "Date to plan (YYYY-MM-DD, default today)")
	planCmd.Parse(args)

	application, _, cleanup := buildApp(ctx, cfg)
	defer cleanup()

	target := *date
	if target == "" {
		target = application.Today()
	}

	fmt.Printf("Generating menu for %s...\n\n", target)
	dm, err := application.GenerateDay(ctx, target)
	if err != nil {
		log.Fatalf("Failed to generate menu: %v", err)
	}

	for _, slot := range []struct {
		name  string
		entry menu.MealEntry
	}{
		{"Breakfast", dm.Breakfast},
		{"Lunch", dm.Lunch},
		{"Dinner", dm.Dinner},
	} {
		e := slot.entry.Rendered()
		fmt.Printf("%-10s %s (%s)\n", slot.name+":", e.Dish, e.Calories)
		if e.Desc != "" {
			fmt.Printf("           %s\n", e.Desc)
		}
	}
	if dm.Message != "" {
		fmt.Printf("\nNote: %s\n", dm.Message)
	}
	if len(dm.Ingredients) > 0 {
		fmt.Println("\nShopping list:")
		for _, item := range dm.Ingredients {
			fmt.Printf("- %s\n", item)
		}
	}
}

func runDislikes(cfg *config.Config, args []string) {
	dislikesCmd := flag.NewFlagSet("dislikes", flag.ExitOnError)
	add := dislikesCmd.String("add", "", "Ingredient to add to the dislikes list")
	remove := dislikesCmd.String("remove", "", "Ingredient to remove from the dislikes list")
	dislikesCmd.Parse(args)

	prefStore, err := prefs.NewStore(cfg.MemoryFile)
	if err != nil {
		log.Fatalf("Failed to load preferences: %v", err)
	}

	switch {
	case *add != "":
		added, err := prefStore.AddDislike(*add)
		if err != nil {
			log.Fatalf("Failed to add dislike: %v", err)
		}
		if added {
			fmt.Printf("Added '%s'.\n", *add)
		} else {
			fmt.Printf("'%s' was already on the list.\n", *add)
		}
	case *remove != "":
		removed, err := prefStore.RemoveDislike(*remove)
		if err != nil {
			log.Fatalf("Failed to remove dislike: %v", err)
		}
		if removed {
			fmt.Printf("Removed '%s'.\n", *remove)
		} else {
			fmt.Printf("'%s' was not on the list.\n", *remove)
		}
	}

	p := prefStore.Preferences()
	fmt.Printf("Diet: %s\nDislikes:\n", p.Diet)
	for _, d := range p.Dislikes {
		fmt.Printf("- %s\n", d)
	}
}

func runMetricsCleanup(cfg *config.Config, args []string) {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	cleanupCmd.Parse(args)

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	affected, err := metrics.NewStore(db.SQL).Cleanup(*days)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
}
