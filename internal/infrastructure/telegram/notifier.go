package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const maxBodyRunes = 600

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts a short HTML message per published article to a chat.
type Notifier struct {
	bot    messageSender
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot token against endpoint (tgbotapi.APIEndpoint in production).
func NewNotifier(botToken, chatID, endpoint string, client *http.Client) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: id}, nil
}

// Notify sends one message. Telegram calls are not cancellable, so ctx is only checked up front.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(note))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatMessage renders the notification as Telegram HTML.
func FormatMessage(note domain.Notification) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(strings.TrimSpace(note.Title)))
	b.WriteString("</b>")

	if body := truncate(strings.TrimSpace(note.Body), maxBodyRunes); body != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(body))
	}
	if note.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(note.URL))
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
