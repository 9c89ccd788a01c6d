package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dgallion1/msgsplit/internal/config"
	"github.com/dgallion1/msgsplit/internal/deliver"
)

func newSendCmd(flags *splitFlags, log *slog.Logger) *cobra.Command {
	var (
		to     string
		chatID int64
		url    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "send INPUT_FILE",
		Short: "Split a document and deliver the fragments in order",
		Long: `send splits INPUT_FILE and posts each fragment to Telegram or a webhook.

Telegram reads TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID; the webhook reads
WEBHOOK_URL and WEBHOOK_API_KEY. Flags override the environment.

Telegram's HTML mode only accepts b, strong, i, em, u, ins, s, strike, del,
a, code, pre, blockquote, tg-spoiler and span class="tg-spoiler". Elements
such as div, p, ul or br are refused before anything is sent. Unless block
tags are set by --blocks, BLOCK_TAGS or a profile, --to telegram splits
with ` + deliver.TelegramBlockTags + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			split := *flags
			if to == "telegram" {
				split.fallbackBlocks = deliver.TelegramBlockTags
			}
			seq, cfg, err := splitFile(cmd, args[0], split, log)
			if err != nil {
				return err
			}
			if chatID != 0 {
				cfg.TelegramChatID = chatID
			}
			if url != "" {
				cfg.WebhookURL = url
			}
			if dryRun {
				writeFragments(cmd.OutOrStdout(), seq)
				return nil
			}

			sink, err := newSink(to, cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sent, err := deliver.Deliver(ctx, sink, seq, log)
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d of %d fragments to %s\n", sent, len(seq), sink.Name())
			return err
		},
	}

	cmd.Flags().StringVar(&to, "to", "telegram", "Destination: telegram or webhook")
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Telegram chat ID (overrides TELEGRAM_CHAT_ID)")
	cmd.Flags().StringVar(&url, "url", "", "Webhook URL (overrides WEBHOOK_URL)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the fragments instead of sending them")
	return cmd
}

func newSink(to string, cfg config.Config) (deliver.Sink, error) {
	switch to {
	case "telegram":
		if cfg.TelegramChatID == 0 {
			return nil, fmt.Errorf("telegram chat id is not configured")
		}
		return deliver.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramAPIURL, cfg.DeliveryTimeout)
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook url is not configured")
		}
		return deliver.NewWebhookSink(cfg.WebhookURL, cfg.WebhookAPIKey, cfg.DeliveryTimeout), nil
	default:
		return nil, fmt.Errorf("unknown destination %q (want telegram or webhook)", to)
	}
}
