package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/net/html"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

// TelegramMaxLen is the Telegram Bot API limit on message text.
const TelegramMaxLen = 4096

// TelegramBlockTags are the reopenable elements Telegram's HTML parse mode
// accepts. Use them as block tags when splitting for Telegram.
const TelegramBlockTags = "b,strong,i,em,u,ins,s,strike,del,blockquote"

// telegramTags is every element Telegram's HTML parse mode accepts. span is
// only allowed as a spoiler.
var telegramTags = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "u": true, "ins": true,
	"s": true, "strike": true, "del": true, "a": true, "code": true, "pre": true,
	"blockquote": true, "tg-spoiler": true, "tg-emoji": true, "span": true,
}

// checkTelegramMarkup rejects tags the Bot API would refuse with a 400.
func checkTelegramMarkup(markup string) error {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return err
			}
			return nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if !telegramTags[tok.Data] {
				return fmt.Errorf("unsupported tag <%s> in HTML mode", tok.Data)
			}
			if tok.Data == "span" && !hasClass(tok, "tg-spoiler") {
				return fmt.Errorf("<span> needs class \"tg-spoiler\" in HTML mode")
			}
		}
	}
}

func hasClass(tok html.Token, class string) bool {
	for _, a := range tok.Attr {
		if a.Key == "class" && a.Val == class {
			return true
		}
	}
	return false
}

// botSender is the subset of tgbotapi.BotAPI used by TelegramSink.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts each fragment as an HTML-formatted message to one chat.
type TelegramSink struct {
	bot    botSender
	chatID int64
}

// NewTelegramSink connects to the Bot API. endpoint is a format string such
// as tgbotapi.APIEndpoint; empty selects the public API.
func NewTelegramSink(token string, chatID int64, endpoint string, timeout time.Duration) (*TelegramSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, f doctree.Fragment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTelegramMarkup(f.Markup); err != nil {
		return fmt.Errorf("telegram: fragment #%d: %w", f.Index, err)
	}
	msg := tgbotapi.NewMessage(s.chatID, f.Markup)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return classifyTelegram(err)
	}
	return nil
}

// classifyTelegram marks rate limits, server errors and transport failures retryable.
func classifyTelegram(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return &RetryableError{
				Err:        fmt.Errorf("telegram: %w", err),
				RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
			}
		}
		return fmt.Errorf("telegram: %w", err)
	}
	return &RetryableError{Err: fmt.Errorf("telegram: %w", err)}
}
