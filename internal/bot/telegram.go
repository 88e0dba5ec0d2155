package bot

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Telegram sends outbound chat actions through the Bot API.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// NewTelegram rate limits outbound calls to perSecond (burst of the same size).
func NewTelegram(api *tgbotapi.BotAPI, perSecond float64) *Telegram {
	if perSecond <= 0 {
		perSecond = 25
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Telegram{api: api, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// SendDocument uploads a local file. A missing file wraps fs.ErrNotExist.
func (t *Telegram) SendDocument(ctx context.Context, chatID int64, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("document %q: %w", path, err)
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := t.api.Send(doc); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	return nil
}

func (t *Telegram) Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	fwd := tgbotapi.NewForward(toChatID, fromChatID, messageID)
	if _, err := t.api.Send(fwd); err != nil {
		return fmt.Errorf("forward message %d to %d: %w", messageID, toChatID, err)
	}
	return nil
}

func (t *Telegram) Typing(ctx context.Context, chatID int64) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("chat action: %w", err)
	}
	return nil
}

// RegisterWebhook points Telegram at url for all update types.
func RegisterWebhook(api *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
