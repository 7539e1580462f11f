package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

const (
	telegramMessageLimit = 4096
	telegramCaptionLimit = 1024
	telegramTruncateAt   = 4000
)

// botAPI is the subset of tgbotapi.BotAPI the publisher uses. Kept as an
// interface so tests can fake the Telegram backend.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramPublisher posts generated content to a Telegram channel,
// retrying with the server-provided delay when rate limited.
type TelegramPublisher struct {
	bot     botAPI
	channel string
	retries int
}

func NewTelegramPublisher(token, channel string, retries int) (*TelegramPublisher, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("Telegram publisher ready", "bot", bot.Self.UserName, "channel", channel)

	return &TelegramPublisher{bot: bot, channel: channel, retries: retries}, nil
}

func (p *TelegramPublisher) Platform() string {
	return "telegram"
}

// Publish sends the content as a photo with caption when an image is
// given, or as a plain message otherwise. Returns the telegram message id.
func (p *TelegramPublisher) Publish(ctx context.Context, content *database.GeneratedContent, image []byte) (int64, error) {
	var msg tgbotapi.Chattable
	if len(image) > 0 {
		msg = p.photoMessage(content, image)
	} else {
		msg = p.textMessage(content)
	}

	for attempt := 0; ; attempt++ {
		sent, err := p.bot.Send(msg)
		if err == nil {
			return int64(sent.MessageID), nil
		}

		retryAfter, limited := rateLimitDelay(err)
		if !limited {
			return 0, fmt.Errorf("failed to send telegram message: %w", err)
		}
		if attempt >= p.retries {
			return 0, fmt.Errorf("%w: gave up after %d attempts", ErrRateLimited, attempt+1)
		}

		slog.Warn("Telegram rate limit hit, backing off",
			"retry_after", retryAfter, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(retryAfter):
		}
	}
}

func (p *TelegramPublisher) textMessage(content *database.GeneratedContent) tgbotapi.Chattable {
	text := truncateMessage(composeMessage(content), telegramMessageLimit)

	if chatID, err := strconv.ParseInt(p.channel, 10, 64); err == nil {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		return msg
	}

	msg := tgbotapi.NewMessageToChannel(p.channel, text)
	msg.DisableWebPagePreview = true
	return msg
}

func (p *TelegramPublisher) photoMessage(content *database.GeneratedContent, image []byte) tgbotapi.Chattable {
	file := tgbotapi.FileBytes{Name: content.ID + ".png", Bytes: image}
	caption := truncateMessage(composeMessage(content), telegramCaptionLimit)

	if chatID, err := strconv.ParseInt(p.channel, 10, 64); err == nil {
		msg := tgbotapi.NewPhoto(chatID, file)
		msg.Caption = caption
		return msg
	}

	msg := tgbotapi.NewPhotoToChannel(p.channel, file)
	msg.Caption = caption
	return msg
}

func composeMessage(content *database.GeneratedContent) string {
	var parts []string
	parts = append(parts, content.Title, content.Body)
	if len(content.Hashtags) > 0 {
		parts = append(parts, strings.Join(content.Hashtags, " "))
	}
	return strings.Join(parts, "\n\n")
}

// truncateMessage cuts the text below the telegram limit, breaking at a
// word boundary where possible.
func truncateMessage(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cutoff := min(telegramTruncateAt, limit-10)
	cut := string(runes[:cutoff])
	if idx := strings.LastIndexByte(cut, ' '); idx > cutoff/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func rateLimitDelay(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second, true
	}
	return 0, false
}
