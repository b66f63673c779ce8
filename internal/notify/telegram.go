package notify

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"stockflow/internal/types"
)

// TelegramSender delivers alerts through the Telegram Bot API.
type TelegramSender struct {
	bot *tele.Bot
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b}, nil
}

func (t *TelegramSender) SendAlert(ctx context.Context, w types.Watcher, symbol, message string) error {
	body := fmt.Sprintf("🔔 *StockFlow Alert*\n\n📊 *%s*\n\n%s\n\n_Powered by StockFlow_", symbol, message)

	chat := &tele.Chat{ID: w.TelegramChatID}
	_, err := t.bot.Send(chat, body, &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send to chat %d failed: %w", w.TelegramChatID, err)
	}
	return nil
}
