package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Source revisions disagreed on the week convention and the anchor offset,
// so both are configuration, never hard-coded.
const (
	DefaultUTCOffsetMinutes = 330 // UTC+5:30, Mumbai
	DefaultWeekStart        = "monday"
	DefaultPlanDays         = 5
	DefaultVarietyWindow    = 5

	// DefaultCompletionTimeout bounds a single model attempt in the
	// waterfall.
	DefaultCompletionTimeout = 45 * time.Second
)

// DefaultModels is the model waterfall tried in order when none is configured.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}

// Config holds the configuration for the application.
type Config struct {
	// Completion provider: "gemini" (default) or "openai" for any
	// OpenAI-compatible endpoint.
	Provider          string
	GeminiAPIKey      string
	CompletionAPIURL  string
	CompletionAPIKey  string
	Models            []string
	CompletionTimeout time.Duration

	MemoryFile   string
	DatabasePath string
	AudioDir     string

	PlanDays          int
	UTCOffsetMinutes  int
	WeekStart         string
	VarietyWindowDays int
	RichIngredient    string
	RichAlternatives  []string
	ImageCacheTTL     time.Duration

	// Telegram Config (optional for the web server, required for the bot)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// fileConfig is the optional planner.toml shape. Only the knobs that vary
// per deployment live here; secrets stay in the environment.
type fileConfig struct {
	LLM struct {
		Provider              string   `toml:"provider"`
		Models                []string `toml:"models"`
		AttemptTimeoutSeconds int      `toml:"attempt_timeout_seconds"`
	} `toml:"llm"`
	Calendar struct {
		WeekStart        string `toml:"week_start"`
		UTCOffsetMinutes *int   `toml:"utc_offset_minutes"`
		PlanDays         int    `toml:"plan_days"`
	} `toml:"calendar"`
	Variety struct {
		WindowDays       int      `toml:"window_days"`
		RichIngredient   string   `toml:"rich_ingredient"`
		RichAlternatives []string `toml:"rich_alternatives"`
	} `toml:"variety"`
}

// NewFromEnv builds the configuration from defaults, an optional
// planner.toml, and environment variables, in that order of precedence.
// A .env file is honoured if present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Provider:          "gemini",
		Models:            append([]string(nil), DefaultModels...),
		CompletionTimeout: DefaultCompletionTimeout,
		MemoryFile:        "memory.json",
		DatabasePath:      "data/planner.db",
		AudioDir:          "data/audio",
		PlanDays:          DefaultPlanDays,
		UTCOffsetMinutes:  DefaultUTCOffsetMinutes,
		WeekStart:         DefaultWeekStart,
		VarietyWindowDays: DefaultVarietyWindow,
		RichIngredient:    "paneer",
		RichAlternatives:  []string{"soya", "tofu", "legumes"},
		ImageCacheTTL:     time.Hour,
	}

	if err := applyFile(cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case "openai":
		if cfg.CompletionAPIURL == "" {
			return nil, fmt.Errorf("COMPLETION_API_URL environment variable not set")
		}
		if cfg.CompletionAPIKey == "" {
			return nil, fmt.Errorf("COMPLETION_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown provider %q (expected gemini|openai)", cfg.Provider)
	}

	if cfg.WeekStart != "monday" && cfg.WeekStart != "sunday" {
		return nil, fmt.Errorf("invalid week start %q (expected monday|sunday)", cfg.WeekStart)
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("model candidate list is empty")
	}

	return cfg, nil
}

func applyFile(cfg *Config) error {
	path := os.Getenv("PLANNER_CONFIG")
	if path == "" {
		path = "planner.toml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.LLM.Provider != "" {
		cfg.Provider = strings.ToLower(fc.LLM.Provider)
	}
	if len(fc.LLM.Models) > 0 {
		cfg.Models = fc.LLM.Models
	}
	if fc.LLM.AttemptTimeoutSeconds > 0 {
		cfg.CompletionTimeout = time.Duration(fc.LLM.AttemptTimeoutSeconds) * time.Second
	}
	if fc.Calendar.WeekStart != "" {
		cfg.WeekStart = strings.ToLower(fc.Calendar.WeekStart)
	}
	if fc.Calendar.UTCOffsetMinutes != nil {
		cfg.UTCOffsetMinutes = *fc.Calendar.UTCOffsetMinutes
	}
	if fc.Calendar.PlanDays > 0 {
		cfg.PlanDays = fc.Calendar.PlanDays
	}
	if fc.Variety.WindowDays > 0 {
		cfg.VarietyWindowDays = fc.Variety.WindowDays
	}
	if fc.Variety.RichIngredient != "" {
		cfg.RichIngredient = fc.Variety.RichIngredient
	}
	if len(fc.Variety.RichAlternatives) > 0 {
		cfg.RichAlternatives = fc.Variety.RichAlternatives
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if v := os.Getenv("COMPLETION_API_URL"); v != "" {
		cfg.CompletionAPIURL = v
	}
	if v := os.Getenv("COMPLETION_API_KEY"); v != "" {
		cfg.CompletionAPIKey = v
	}
	if v := os.Getenv("MODEL_CANDIDATES"); v != "" {
		cfg.Models = splitList(v)
	}
	if v := os.Getenv("COMPLETION_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid COMPLETION_TIMEOUT_SECONDS %q", v)
		}
		cfg.CompletionTimeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("MEMORY_FILE"); v != "" {
		cfg.MemoryFile = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv("WEEK_START"); v != "" {
		cfg.WeekStart = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("UTC_OFFSET_MINUTES"); v != "" {
		off, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid UTC_OFFSET_MINUTES %q: %w", v, err)
		}
		cfg.UTCOffsetMinutes = off
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramWebhookURL = os.Getenv("TELEGRAM_WEBHOOK_URL")
	for _, raw := range splitList(os.Getenv("TELEGRAM_ALLOW_USER_IDS")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", raw, err)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", v, err)
		}
		cfg.AdminTelegramID = id
	}
	return nil
}

// Location returns the fixed offset zone that anchors "today".
func (c *Config) Location() *time.Location {
	name := fmt.Sprintf("UTC%+03d:%02d", c.UTCOffsetMinutes/60, abs(c.UTCOffsetMinutes%60))
	return time.FixedZone(name, c.UTCOffsetMinutes*60)
}

// WeekStartDay maps the configured convention to a weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
