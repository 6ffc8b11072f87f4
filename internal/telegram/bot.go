package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"mumbai-meal-planner/internal/app"
	"mumbai-meal-planner/internal/config"
	"mumbai-meal-planner/internal/menu"
	"mumbai-meal-planner/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UsageReader reports aggregated call metrics for the /metrics command.
type UsageReader interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Bot wraps the Telegram API around the planner operations.
type Bot struct {
	api      *tgbotapi.BotAPI
	app      *app.App
	sessions *SessionRepository
	usage    UsageReader
	cfg      *config.Config
	dataDir  string
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App, sessions *SessionRepository, usage UsageReader, dataDir string) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{api: bot, app: a, sessions: sessions, usage: usage, cfg: cfg, dataDir: dataDir}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	cmd, arg := splitCommand(text)

	switch cmd {
	case "/start", "/help":
		b.reply(msg.Chat.ID, helpText)
	case "/plan":
		b.handlePlan(msg.Chat.ID, arg)
	case "/menu":
		b.handleMenu(msg.Chat.ID, arg)
	case "/swap":
		b.handleSwap(msg.Chat.ID, arg)
	case "/dislike":
		b.handleDislike(msg.Chat.ID, arg, true)
	case "/forget":
		b.handleDislike(msg.Chat.ID, arg, false)
	case "/prefs":
		b.handlePrefs(msg.Chat.ID)
	case "/metrics":
		b.handleMetricsRequest(msg)
	default:
		// Plain text is feedback on the chat's active menu.
		b.handleFeedback(msg.Chat.ID, text)
	}
}

const helpText = `🍛 *Mumbai Meal Planner*

/plan [date] — generate a menu (today by default)
/menu [date] — show the stored menu
/swap <breakfast|lunch|dinner> — replace one meal
/dislike <item> — never suggest this again
/forget <item> — remove a dislike
/prefs — show preferences

Any other message is treated as feedback on the current menu.`

func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	parts := strings.SplitN(text, " ", 2)
	cmd := parts[0]
	// Strip the @botname suffix used in group chats.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	if len(parts) == 2 {
		return cmd, strings.TrimSpace(parts[1])
	}
	return cmd, ""
}

func (b *Bot) resolveDate(arg string) (string, error) {
	if arg == "" {
		return b.app.Today(), nil
	}
	if _, err := time.Parse(menu.DateLayout, arg); err != nil {
		return "", fmt.Errorf("dates look like 2026-08-24, got %q", arg)
	}
	return arg, nil
}

func (b *Bot) handlePlan(chatID int64, arg string) {
	date, err := b.resolveDate(arg)
	if err != nil {
		b.reply(chatID, "❌ "+err.Error())
		return
	}

	sent := b.reply(chatID, "🧑‍🍳 *Thinking...* \n(Putting together the menu for "+date+")")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dm, err := b.app.GenerateDay(ctx, date)
	if err != nil {
		log.Printf("Error generating menu: %v", err)
		b.edit(chatID, sent, "❌ Could not generate the menu right now. Please try again in a bit.")
		return
	}

	if err := b.sessions.Upsert(ctx, chatID, "menu_shown", date); err != nil {
		log.Printf("Warning: failed to save session: %v", err)
	}
	b.edit(chatID, sent, formatMenuMarkdown(date, dm))
}

func (b *Bot) handleMenu(chatID int64, arg string) {
	date, err := b.resolveDate(arg)
	if err != nil {
		b.reply(chatID, "❌ "+err.Error())
		return
	}

	dm, ok := b.app.Menu(date)
	if !ok {
		b.reply(chatID, "No menu for *"+date+"* yet. Use /plan to create one.")
		return
	}

	if err := b.sessions.Upsert(context.Background(), chatID, "menu_shown", date); err != nil {
		log.Printf("Warning: failed to save session: %v", err)
	}
	b.reply(chatID, formatMenuMarkdown(date, dm))
}

func (b *Bot) handleSwap(chatID int64, arg string) {
	slot, err := menu.ParseSlot(arg)
	if err != nil {
		b.reply(chatID, "Usage: /swap breakfast|lunch|dinner")
		return
	}

	date := b.activeDate(chatID)
	sent := b.reply(chatID, fmt.Sprintf("🔄 *Swapping %s...*", slot))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dm, err := b.app.SwapMeal(ctx, date, slot)
	if err != nil {
		log.Printf("Error swapping meal: %v", err)
		b.edit(chatID, sent, "❌ Could not swap that meal. Generate a menu first with /plan.")
		return
	}
	b.edit(chatID, sent, formatMenuMarkdown(date, dm))
}

func (b *Bot) handleFeedback(chatID int64, text string) {
	if text == "" {
		return
	}

	date := b.activeDate(chatID)
	sent := b.reply(chatID, "🧑‍🍳 *Adjusting the menu...*")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dm, learned, err := b.app.ApplyFeedback(ctx, date, text)
	if err != nil {
		log.Printf("Error applying feedback: %v", err)
		b.edit(chatID, sent, "❌ Could not adjust the menu. Generate one first with /plan.")
		return
	}

	out := formatMenuMarkdown(date, dm)
	if len(learned) > 0 {
		out += "\n📝 Noted for next time: " + strings.Join(learned, ", ")
	}
	b.edit(chatID, sent, out)
}

func (b *Bot) handleDislike(chatID int64, item string, add bool) {
	if item == "" {
		b.reply(chatID, "Tell me the ingredient, e.g. /dislike karela")
		return
	}

	var changed bool
	var err error
	if add {
		changed, err = b.app.AddDislike(item)
	} else {
		changed, err = b.app.RemoveDislike(item)
	}
	if err != nil {
		log.Printf("Error updating dislikes: %v", err)
		b.reply(chatID, "❌ Could not update preferences.")
		return
	}

	switch {
	case add && changed:
		b.reply(chatID, fmt.Sprintf("Got it. *%s* is off the menu.", item))
	case add:
		b.reply(chatID, fmt.Sprintf("*%s* was already on the list.", item))
	case changed:
		b.reply(chatID, fmt.Sprintf("*%s* is back in rotation.", item))
	default:
		b.reply(chatID, fmt.Sprintf("*%s* was not on the list.", item))
	}
}

func (b *Bot) handlePrefs(chatID int64) {
	p := b.app.Preferences()
	var sb strings.Builder
	sb.WriteString("⚙️ *Preferences*\n\n")
	sb.WriteString("Diet: " + p.Diet + "\n")
	sb.WriteString("Avoiding:\n")
	if len(p.Dislikes) == 0 {
		sb.WriteString("_nothing yet_\n")
	}
	for _, d := range p.Dislikes {
		sb.WriteString("• " + d + "\n")
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.usage.GetDailyUsage(7)
	if err != nil {
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(b.dataDir)

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d calls, %d failed)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.Calls, d.Failures))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDirSize))

	b.reply(chatID, sb.String())
}

// activeDate is the date the chat last looked at, falling back to today.
func (b *Bot) activeDate(chatID int64) string {
	s, err := b.sessions.Get(context.Background(), chatID)
	if err != nil {
		log.Printf("Warning: failed to load session: %v", err)
	}
	if s != nil && s.MenuDate != "" {
		return s.MenuDate
	}
	return b.app.Today()
}

func formatMenuMarkdown(date string, dm menu.DayMenu) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Menu for %s*\n\n", date))

	for _, slot := range []struct {
		emoji string
		name  string
		entry menu.MealEntry
	}{
		{"🌅", "Breakfast", dm.Breakfast},
		{"🍛", "Lunch", dm.Lunch},
		{"🌙", "Dinner", dm.Dinner},
	} {
		e := slot.entry.Rendered()
		sb.WriteString(fmt.Sprintf("%s *%s*: %s (%s)\n", slot.emoji, slot.name, e.Dish, e.Calories))
		if e.Desc != "" {
			sb.WriteString(fmt.Sprintf("_%s_\n", e.Desc))
		}
		sb.WriteString("\n")
	}

	if dm.Message != "" {
		sb.WriteString("💡 " + dm.Message + "\n")
	}
	if len(dm.Ingredients) > 0 {
		sb.WriteString("\n🛒 *Shopping List*\n")
		for _, item := range dm.Ingredients {
			sb.WriteString("• " + item + "\n")
		}
	}
	return sb.String()
}

func (b *Bot) reply(chatID int64, text string) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send message: %v", err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.reply(chatID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}
