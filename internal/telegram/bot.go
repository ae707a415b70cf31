// Package telegram hosts the meal skill as a Telegram webhook bot.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"meal-skill/internal/config"
	"meal-skill/internal/dialog"
	"meal-skill/internal/intent"
	"meal-skill/internal/logger"
	"meal-skill/internal/metrics"
)

const (
	callbackYesNo = "yesno"
	sendAttempts  = 3
	sendDelay     = 200 * time.Millisecond
)

// sender is the part of tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot hosts the skill on Telegram. It runs one dialog at a time: while a
// handler waits for an answer, messages from that chat are its replies.
type Bot struct {
	api          sender
	cfg          *config.Config
	dispatcher   *intent.Dispatcher
	metricsStore *metrics.Store
	vocab        *dialog.Vocabulary

	// ctx bounds every dialog; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	busy    bool
	chatID  int64
	pending chan string
	wg      sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg *config.Config, dispatcher *intent.Dispatcher, metricsStore *metrics.Store, vocab *dialog.Vocabulary) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init telegram api")
	}
	log := logger.L.WithField("account", api.Self.UserName)
	log.Info("authorized on telegram")

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid webhook url %s", cfg.TelegramWebhookURL)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to set webhook to %s", cfg.TelegramWebhookURL)
	}
	log.WithField("response", resp.Description).Info("webhook set")

	return newBot(api, cfg, dispatcher, metricsStore, vocab), nil
}

func newBot(api sender, cfg *config.Config, dispatcher *intent.Dispatcher, metricsStore *metrics.Store, vocab *dialog.Vocabulary) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		ctx:          ctx,
		cancel:       cancel,
		api:          api,
		cfg:          cfg,
		dispatcher:   dispatcher,
		metricsStore: metricsStore,
		vocab:        vocab,
	}
}

// Handler routes the webhook and health endpoints.
func (b *Bot) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/webhook", b.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	return r
}

// Wait blocks until running dialogs have finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// Shutdown cancels running dialogs, so prompts stop waiting for replies,
// and blocks until they have returned.
func (b *Bot) Shutdown() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.G(r.Context()).WithError(err).Warn("error parsing update")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	b.handleUpdate(update)
	w.WriteHeader(http.StatusOK)
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) isAllowed(user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if user.ID == id {
			return true
		}
	}
	logger.L.WithField("user_id", user.ID).WithField("username", user.UserName).Warn("unauthorized access attempt")
	return false
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !b.isAllowed(msg.From) {
		return
	}
	ctx := logger.WithField(b.ctx, "chat_id", msg.Chat.ID)

	switch msg.Text {
	case "/metrics":
		b.handleMetricsRequest(ctx, msg)
		return
	case "/start", "/help":
		b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, b.vocab.Render("welcome", nil)))
		return
	}

	b.mu.Lock()
	if b.busy {
		replied := b.pending != nil && b.chatID == msg.Chat.ID
		if replied {
			select {
			case b.pending <- msg.Text:
			default:
			}
		}
		b.mu.Unlock()
		if !replied {
			b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, b.vocab.Render("busy", nil)))
		}
		return
	}
	b.busy = true
	b.chatID = msg.Chat.ID
	b.mu.Unlock()

	b.wg.Add(1)
	go b.runDialog(ctx, msg.Text)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if !b.isAllowed(query.From) {
		return
	}
	ctx := b.ctx
	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to answer callback")
	}

	action, answer, ok := strings.Cut(query.Data, "|")
	if !ok || action != callbackYesNo || query.Message == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil && b.chatID == query.Message.Chat.ID {
		select {
		case b.pending <- answer:
		default:
		}
	}
}

func (b *Bot) runDialog(ctx context.Context, text string) {
	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		b.busy = false
		b.pending = nil
		b.mu.Unlock()
	}()

	err := b.dispatcher.Dispatch(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, intent.ErrUnknownIntent):
		b.Speak(ctx, b.vocab.Render("not.understood", nil))
	default:
		logger.G(ctx).WithError(err).Error("dialog failed")
		b.Speak(ctx, b.vocab.Render("skill.failed", nil))
	}
}

func (b *Bot) currentChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chatID
}

// Speak sends utterance to the chat of the running dialog.
func (b *Bot) Speak(ctx context.Context, utterance string) error {
	return b.send(ctx, tgbotapi.NewMessage(b.currentChat(), utterance))
}

// GetResponse sends prompt and waits for the next message from the chat.
// No reply within the prompt timeout is "".
func (b *Bot) GetResponse(ctx context.Context, prompt string) (string, error) {
	return b.ask(ctx, tgbotapi.NewMessage(b.currentChat(), prompt))
}

// AskYesNo sends question with Yes/No buttons. A typed reply works too.
func (b *Bot) AskYesNo(ctx context.Context, question string) (dialog.Answer, error) {
	msg := tgbotapi.NewMessage(b.currentChat(), question)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍 Yes", callbackYesNo+"|yes"),
			tgbotapi.NewInlineKeyboardButtonData("👎 No", callbackYesNo+"|no"),
		),
	)
	reply, err := b.ask(ctx, msg)
	if err != nil {
		return dialog.Unknown, err
	}
	return b.vocab.ParseYesNo(reply), nil
}

func (b *Bot) ask(ctx context.Context, msg tgbotapi.MessageConfig) (string, error) {
	replies := make(chan string, 1)
	b.mu.Lock()
	b.pending = replies
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.pending = nil
		b.mu.Unlock()
	}()

	if err := b.send(ctx, msg); err != nil {
		return "", err
	}

	timer := time.NewTimer(b.cfg.PromptTimeout)
	defer timer.Stop()
	select {
	case reply := <-replies:
		return strings.TrimSpace(reply), nil
	case <-timer.C:
		logger.G(ctx).Info("no response before timeout")
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	err := retry.Do(
		func() error {
			_, err := b.api.Send(c)
			return err
		},
		retry.Attempts(sendAttempts),
		retry.Delay(sendDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logger.G(ctx).WithError(err).Error("failed to send telegram message")
		return errors.Wrap(err, "failed to send telegram message")
	}
	return nil
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "⛔ *Access Denied*: Admin only."))
		return
	}
	if b.metricsStore == nil {
		b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "❌ Metrics are disabled."))
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		logger.G(ctx).WithError(err).Error("failed to fetch metrics")
		b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "❌ Error fetching metrics."))
		return
	}
	counts, err := b.metricsStore.IntentCounts(ctx, 7)
	if err != nil {
		logger.G(ctx).WithError(err).Error("failed to fetch intent counts")
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, formatMetricsReport(usage, counts, metrics.GetSysHealth(b.cfg.DataDir)))
	reply.ParseMode = "Markdown"
	b.send(ctx, reply)
}

func formatMetricsReport(usage []metrics.DailyUsage, counts map[string]int, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d intents (%d failed, %d declined, %.0fms avg)\n",
			d.Date, d.Executions, d.Failures, d.Declined, d.AvgLatencyMS))
	}

	if len(counts) > 0 {
		sb.WriteString("\n🍽 *By Intent*\n")
		for _, name := range []string{"plan.meal", "add.meal", "remove.meal", "list.meal"} {
			if n, ok := counts[name]; ok {
				sb.WriteString(fmt.Sprintf("• %s: %d\n", name, n))
			}
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
