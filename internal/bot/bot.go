package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"

	"github.com/quarterpin/oraclebot/internal/crypto"
	"github.com/quarterpin/oraclebot/internal/domain"
)

// SportsProvider exposes the odds catalogue to the menu flows.
type SportsProvider interface {
	ListSports(ctx context.Context) ([]domain.Sport, error)
	GetEvents(ctx context.Context, sportKey string) ([]domain.Event, error)
	GetEvent(ctx context.Context, sportKey, eventID string) (domain.Event, error)
}

// AnalysisEnqueuer queues a full AI analysis for one event.
type AnalysisEnqueuer interface {
	Enqueue(ctx context.Context, eventID, sportKey string, chatID int64) (domain.AnalysisJob, error)
}

// ScanRunner triggers a manual arbitrage scan.
type ScanRunner interface {
	ScanSports(ctx context.Context, sportKeys []string) ([]domain.Opportunity, error)
}

// Config carries the presentation limits for the bot.
type Config struct {
	HistoryPageSize   int
	MaxEventsPerSport int
	ScanSports        []string
}

// Bot is the Telegram front-end. It serves the command and inline-menu
// flows and doubles as the ChatSender the background workers use to push
// prediction and settlement messages to users.
type Bot struct {
	api      *telego.Bot
	sports   SportsProvider
	analysis AnalysisEnqueuer
	scanner  ScanRunner
	history  domain.HistoryStore
	admins   domain.AdminStore
	settings domain.SettingsStore
	vault    *crypto.Vault
	cfg      Config
	logger   *slog.Logger
}

// New creates a Bot from an already-validated token. The vault may be nil
// when no passphrase is configured, which disables the /setapikey flow.
func New(
	token string,
	sports SportsProvider,
	analysis AnalysisEnqueuer,
	scanner ScanRunner,
	history domain.HistoryStore,
	admins domain.AdminStore,
	settings domain.SettingsStore,
	vault *crypto.Vault,
	cfg Config,
	logger *slog.Logger,
) (*Bot, error) {
	api, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("bot: creating telegram client: %w", err)
	}
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = 10
	}
	if cfg.MaxEventsPerSport <= 0 {
		cfg.MaxEventsPerSport = 8
	}
	return &Bot{
		api:      api,
		sports:   sports,
		analysis: analysis,
		scanner:  scanner,
		history:  history,
		admins:   admins,
		settings: settings,
		vault:    vault,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "bot")),
	}, nil
}

// Run starts long polling and dispatches updates until the context is
// cancelled. Handler panics are not recovered; handlers must not panic.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("bot: starting long polling: %w", err)
	}
	b.logger.Info("update loop started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("update loop stopped")
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				b.logger.Info("update channel closed")
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

// SendMessage delivers plain text to a chat. It satisfies the ChatSender
// contract used by the analysis and results workers.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("bot: sending message to chat %d: %w", chatID, err)
	}
	return nil
}

// reply is SendMessage with an optional inline keyboard; send errors are
// logged, not propagated, so one failed delivery does not kill a handler.
func (b *Bot) reply(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) {
	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.api.SendMessage(ctx, params); err != nil {
		b.logger.Error("send failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) isAdmin(ctx context.Context, chatID int64) bool {
	ok, err := b.admins.IsAdmin(ctx, chatID)
	if err != nil {
		b.logger.Error("admin lookup failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}
