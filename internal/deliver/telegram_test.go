package deliver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestTelegramSink_SendsHTML(t *testing.T) {
	bot := &fakeBot{}
	sink := &TelegramSink{bot: bot, chatID: 42}

	if err := sink.Send(context.Background(), doctree.Fragment{Index: 1, Markup: "<b>hi</b>"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(bot.sent))
	}
	m := bot.sent[0]
	if m.ChatID != 42 || m.Text != "<b>hi</b>" || m.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("unexpected message: chat=%d text=%q mode=%q", m.ChatID, m.Text, m.ParseMode)
	}
}

func TestTelegramSink_RejectsUnsupportedTags(t *testing.T) {
	tests := []struct {
		markup string
		ok     bool
	}{
		{`<b>bold</b> <a href="https://example.com">link</a>`, true},
		{`<blockquote><i>quoted</i></blockquote>`, true},
		{`<span class="tg-spoiler">hidden</span>`, true},
		{`<pre><code>x &lt; y</code></pre>`, true},
		{`plain text`, true},
		{`<div><p>Hello</p></div>`, false},
		{`<ul><li>one</li></ul>`, false},
		{`line<br>break`, false},
		{`<span>plain span</span>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			bot := &fakeBot{}
			sink := &TelegramSink{bot: bot, chatID: 42}
			err := sink.Send(context.Background(), doctree.Fragment{Index: 3, Markup: tt.markup})
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error for unsupported markup")
			}
			if IsRetryable(err) {
				t.Errorf("expected a permanent error, got %v", err)
			}
			if !strings.Contains(err.Error(), "fragment #3") {
				t.Errorf("expected fragment index in error, got %v", err)
			}
			if len(bot.sent) != 0 {
				t.Errorf("expected nothing sent, got %d messages", len(bot.sent))
			}
		})
	}
}

func TestClassifyTelegram(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		after     time.Duration
	}{
		{"rate limited", &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}}, true, 7 * time.Second},
		{"server error", &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}, true, 0},
		{"bad request", &tgbotapi.Error{Code: 400, Message: "can't parse entities"}, false, 0},
		{"transport", errors.New("connection reset"), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyTelegram(tt.err)
			if IsRetryable(err) != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, err)
			}
			var re *RetryableError
			if errors.As(err, &re) && re.RetryAfter != tt.after {
				t.Errorf("expected retry after %v, got %v", tt.after, re.RetryAfter)
			}
		})
	}
}

func TestNewTelegramSink_AgainstFakeAPI(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "splitter", "username": "splitter_bot"},
			})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			r.ParseForm()
			mu.Lock()
			texts = append(texts, r.Form.Get("text"))
			mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"message_id": 1, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sink, err := NewTelegramSink("TOKEN", 42, srv.URL+"/bot%s/%s", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Send(context.Background(), doctree.Fragment{Index: 1, Markup: "<i>x</i>"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 || texts[0] != "<i>x</i>" {
		t.Errorf("unexpected texts: %q", texts)
	}
}

func TestNewTelegramSink_RequiresToken(t *testing.T) {
	if _, err := NewTelegramSink("", 1, "", time.Second); err == nil {
		t.Error("expected error for empty token")
	}
}
