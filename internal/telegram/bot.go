package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"mealmatch/internal/app"
	"mealmatch/internal/config"
	"mealmatch/internal/logging"
	"mealmatch/internal/metrics"
	"mealmatch/internal/pantry"
	"mealmatch/internal/planner"
	"mealmatch/internal/recipe"
)

const helpText = `🥕 *MealMatch*

/plan - this week's meal plan
/regenerate - rebuild it from your current pantry
/pantry - list your ingredients
/add 6 eggs - add or update an ingredient
/remove eggs - remove an ingredient
/recipes - list the catalog

Send a recipe link to add it to the catalog.`

// botAPI is the part of the Telegram client the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Bot answers Telegram chats with meal plans and pantry management.
type Bot struct {
	api     botAPI
	app     *app.App
	cfg     *config.Config
	log     zerolog.Logger
	timeout time.Duration
}

// NewBot initializes the Telegram client and registers the webhook.
func NewBot(cfg *config.Config, a *app.App) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.Telegram.WebhookURL, err)
	}

	b := newBot(api, a, cfg)
	b.log.Info().
		Str("account", api.Self.UserName).
		Str("webhook", resp.Description).
		Msg("telegram bot authorized")
	return b, nil
}

func newBot(api botAPI, a *app.App, cfg *config.Config) *Bot {
	return &Bot{
		api:     api,
		app:     a,
		cfg:     cfg,
		log:     logging.With().Str("component", "telegram").Logger(),
		timeout: time.Minute,
	}
}

// Handler returns the webhook and health routes.
func (b *Bot) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhook", b.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warn().Err(err).Msg("failed to parse update")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	go b.handleUpdate(*update)
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.cfg.IsAllowedTelegramUser(msg.From.ID) {
		b.log.Warn().
			Int64("telegram_id", msg.From.ID).
			Str("username", msg.From.UserName).
			Msg("unauthorized access attempt")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.respond(ctx, msg))
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("failed to send reply")
	}
}

// respond runs a command or recipe import and returns the Markdown reply.
func (b *Bot) respond(ctx context.Context, msg *tgbotapi.Message) string {
	userID := strconv.FormatInt(msg.From.ID, 10)
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return b.importRecipe(ctx, userID, text)
	}
	if !msg.IsCommand() {
		return helpText
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "plan":
		plan, err := b.app.Planner.GetOrCreate(ctx, userID)
		if err != nil {
			return b.failure("generating plan", err)
		}
		return formatPlanMarkdown(plan)
	case "regenerate":
		plan, err := b.app.Planner.Regenerate(ctx, userID)
		if err != nil {
			return b.failure("regenerating plan", err)
		}
		return formatPlanMarkdown(plan)
	case "pantry":
		items, err := b.app.Pantry.List(ctx, userID)
		if err != nil {
			return b.failure("listing pantry", err)
		}
		return formatPantryMarkdown(items)
	case "add":
		return b.addIngredient(ctx, userID, args)
	case "remove":
		if args == "" {
			return "Usage: /remove eggs"
		}
		if err := b.app.Pantry.Delete(ctx, userID, args); err != nil {
			return b.failure("removing ingredient", err)
		}
		return fmt.Sprintf("🗑 Removed *%s*. Use /regenerate to update this week's plan.", escape(args))
	case "recipes":
		recipes, err := b.app.Recipes.List(ctx)
		if err != nil {
			return b.failure("listing recipes", err)
		}
		return formatRecipesMarkdown(recipes)
	case "metrics":
		if msg.From.ID != b.cfg.Telegram.AdminID {
			return "⛔ *Access Denied*: Admin only."
		}
		return b.metricsReport(ctx)
	default:
		return helpText
	}
}

func (b *Bot) addIngredient(ctx context.Context, userID, args string) string {
	req, ok := recipe.ParseIngredientText(args)
	if !ok || req.IngredientName == "" {
		return "Usage: /add 6 eggs, /add 2 cups flour or /add olive oil|1|bottle"
	}

	item := pantry.Item{UserID: userID, Name: req.IngredientName, Quantity: req.Quantity, Unit: req.Unit}
	if err := b.app.Pantry.Upsert(ctx, item); err != nil {
		return b.failure("saving ingredient", err)
	}
	return fmt.Sprintf("✅ *%s*: %s %s. Use /regenerate to update this week's plan.",
		escape(item.Name), formatQuantity(item.Quantity), escape(item.Unit))
}

func (b *Bot) importRecipe(ctx context.Context, userID, url string) string {
	rec, err := b.app.ImportRecipeURL(ctx, url, userID)
	if err != nil {
		return b.failure("importing recipe", err)
	}
	return fmt.Sprintf("✅ *Recipe saved:* %s (%d ingredients)", escape(rec.Title), len(rec.Requirements))
}

func (b *Bot) metricsReport(ctx context.Context) string {
	usage, err := b.app.Usage.GetDailyUsage(ctx, 7)
	if err != nil {
		return b.failure("fetching metrics", err)
	}
	return formatMetricsMarkdown(usage, metrics.GetSysHealth(b.cfg.Database.Path))
}

func (b *Bot) failure(action string, err error) string {
	b.log.Error().Err(err).Str("action", action).Msg("telegram command failed")
	return fmt.Sprintf("❌ *Error %s:*\n```\n%s\n```", action, strings.ReplaceAll(err.Error(), "`", "'"))
}

var weekdays = [planner.DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func formatPlanMarkdown(plan *planner.WeeklyPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 *Meal plan for the week of %s*\n\n", planner.FormatWeek(plan.WeekStart))

	if len(plan.Days) == 0 {
		sb.WriteString("_This plan could not be read. Use /regenerate to build a new one._\n")
		return sb.String()
	}

	for _, d := range plan.Days {
		name := fmt.Sprintf("Day %d", d.Day)
		if d.Day >= 1 && d.Day <= len(weekdays) {
			name = weekdays[d.Day-1]
		}
		if d.IsPlaceholder() {
			fmt.Fprintf(&sb, "*%s*: _%s_\n", name, escape(d.Title))
			continue
		}
		fmt.Fprintf(&sb, "*%s*: %s (%.0f%%)\n", name, escape(d.Title), d.MatchPercent)
	}

	if len(plan.Candidates) == 0 {
		sb.WriteString("\nNo recipe matches at least half of your pantry. Try /add.\n")
		return sb.String()
	}
	sb.WriteString("\n🥇 *Candidates*\n")
	for _, c := range plan.Candidates {
		fmt.Fprintf(&sb, "• %s: %d/%d ingredients\n", escape(c.Title), c.Available, c.Total)
	}
	return sb.String()
}

func formatPantryMarkdown(items []pantry.Item) string {
	if len(items) == 0 {
		return "🧺 Your pantry is empty. Add something with /add 6 eggs."
	}
	var sb strings.Builder
	sb.WriteString("🧺 *Pantry*\n\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s: %s %s\n", escape(it.Name), formatQuantity(it.Quantity), escape(it.Unit))
	}
	return sb.String()
}

func formatRecipesMarkdown(recipes []recipe.Recipe) string {
	if len(recipes) == 0 {
		return "📖 The catalog is empty. Send a recipe link to add one."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 *Recipes* (%d)\n\n", len(recipes))
	for _, r := range recipes {
		fmt.Fprintf(&sb, "• %s\n", escape(r.Title))
	}
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Plans generated*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d plans (%d users)\n", d.Date, d.Plans, d.Users)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	fmt.Fprintf(&sb, "• RAM: %dMB (Heap) / %dMB (Sys)\n", health.HeapMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Database: %s\n", health.DatabaseSize)
	return sb.String()
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
