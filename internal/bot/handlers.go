package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/quarterpin/oraclebot/internal/arbitrage"
	"github.com/quarterpin/oraclebot/internal/domain"
)

const welcomeText = `Welcome to OracleBot.

I scan bookmaker odds for arbitrage and run AI match analysis.

/sports - browse sports and matches
/history - your past predictions
/help - this message`

func (b *Bot) handleUpdate(ctx context.Context, upd telego.Update) {
	switch {
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		b.handleCommand(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *telego.Message) {
	chatID := msg.Chat.ID
	fields := strings.Fields(msg.Text)
	// Group chats address commands as /command@botname.
	command, _, _ := strings.Cut(fields[0], "@")

	b.logger.Debug("command received",
		slog.String("command", command),
		slog.Int64("chat_id", chatID),
	)

	switch command {
	case "/start", "/help":
		b.reply(ctx, chatID, welcomeText, mainMenu())
	case "/sports":
		b.showSports(ctx, chatID)
	case "/history":
		b.showHistory(ctx, chatID, 0)
	case "/scan":
		b.requireAdmin(ctx, chatID, func() { b.runScan(ctx, chatID) })
	case "/setapikey":
		b.requireAdmin(ctx, chatID, func() { b.setAPIKey(ctx, chatID, fields[1:]) })
	case "/addadmin":
		b.requireAdmin(ctx, chatID, func() { b.changeAdmin(ctx, chatID, fields[1:], true) })
	case "/removeadmin":
		b.requireAdmin(ctx, chatID, func() { b.changeAdmin(ctx, chatID, fields[1:], false) })
	default:
		b.reply(ctx, chatID, "Unknown command. Try /help.", nil)
	}
}

func (b *Bot) requireAdmin(ctx context.Context, chatID int64, fn func()) {
	if !b.isAdmin(ctx, chatID) {
		b.reply(ctx, chatID, "This command is restricted to admins.", nil)
		return
	}
	fn()
}

func (b *Bot) handleCallback(ctx context.Context, q *telego.CallbackQuery) {
	// Acknowledge early so the client stops showing the spinner.
	if err := b.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: q.ID,
	}); err != nil {
		b.logger.Debug("callback ack failed", slog.String("error", err.Error()))
	}

	chatID := q.From.ID
	if q.Message != nil {
		chatID = q.Message.GetChat().ID
	}

	cb, err := decodeCallback(q.Data)
	if err != nil {
		b.logger.Warn("bad callback data",
			slog.String("data", q.Data),
			slog.String("error", err.Error()),
		)
		return
	}

	switch cb.Action {
	case cbSports:
		b.showSports(ctx, chatID)
	case cbSport:
		b.showEvents(ctx, chatID, cb.SportKey)
	case cbEvent:
		b.showEventMenu(ctx, chatID, cb.SportKey, cb.EventID)
	case cbOdds:
		b.showOdds(ctx, chatID, cb.SportKey, cb.EventID)
	case cbArb:
		b.checkArbitrage(ctx, chatID, cb.SportKey, cb.EventID)
	case cbAnalyze:
		b.enqueueAnalysis(ctx, chatID, cb.SportKey, cb.EventID)
	case cbHistory:
		b.showHistory(ctx, chatID, cb.Offset)
	}
}

func (b *Bot) showSports(ctx context.Context, chatID int64) {
	sports, err := b.sports.ListSports(ctx)
	if err != nil {
		b.logger.Error("listing sports failed", slog.String("error", err.Error()))
		b.reply(ctx, chatID, "Could not load the sports catalogue, try again later.", nil)
		return
	}
	if len(sports) == 0 {
		b.reply(ctx, chatID, "No active sports right now.", nil)
		return
	}
	b.reply(ctx, chatID, "Pick a sport:", sportsKeyboard(sports))
}

func (b *Bot) showEvents(ctx context.Context, chatID int64, sportKey string) {
	events, err := b.sports.GetEvents(ctx, sportKey)
	if err != nil {
		b.logger.Error("listing events failed",
			slog.String("sport", sportKey),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Could not load matches for that sport, try again later.", nil)
		return
	}
	if len(events) == 0 {
		b.reply(ctx, chatID, "No upcoming matches with odds for that sport.", nil)
		return
	}
	if len(events) > b.cfg.MaxEventsPerSport {
		events = events[:b.cfg.MaxEventsPerSport]
	}
	b.reply(ctx, chatID, "Pick a match:", eventsKeyboard(sportKey, events))
}

func (b *Bot) showEventMenu(ctx context.Context, chatID int64, sportKey, eventID string) {
	event, err := b.sports.GetEvent(ctx, sportKey, eventID)
	if err != nil {
		b.logger.Error("loading event failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Could not load that match, it may have started already.", nil)
		return
	}
	text := event.Match() + "\nKickoff: " + event.CommenceTime.UTC().Format("2006-01-02 15:04 MST")
	b.reply(ctx, chatID, text, eventMenuKeyboard(sportKey, eventID))
}

func (b *Bot) showOdds(ctx context.Context, chatID int64, sportKey, eventID string) {
	event, err := b.sports.GetEvent(ctx, sportKey, eventID)
	if err != nil {
		b.reply(ctx, chatID, "Could not load odds for that match.", nil)
		return
	}
	b.reply(ctx, chatID, formatBestOdds(event), nil)
}

func (b *Bot) checkArbitrage(ctx context.Context, chatID int64, sportKey, eventID string) {
	event, err := b.sports.GetEvent(ctx, sportKey, eventID)
	if err != nil {
		b.reply(ctx, chatID, "Could not load odds for that match.", nil)
		return
	}
	opps := arbitrage.Scan([]domain.Event{event})
	if len(opps) == 0 {
		b.reply(ctx, chatID, "No arbitrage on "+event.Match()+" right now.", nil)
		return
	}
	b.reply(ctx, chatID, formatArbitrage(opps[0]), nil)
}

func (b *Bot) enqueueAnalysis(ctx context.Context, chatID int64, sportKey, eventID string) {
	job, err := b.analysis.Enqueue(ctx, eventID, sportKey, chatID)
	if err != nil {
		b.logger.Error("enqueue failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Could not queue the analysis, try again later.", nil)
		return
	}
	b.logger.Info("analysis queued",
		slog.String("job_id", job.ID),
		slog.String("event_id", eventID),
		slog.Int64("chat_id", chatID),
	)
	b.reply(ctx, chatID, "Analysis queued. I will message you when the prediction is ready.", nil)
}

func (b *Bot) showHistory(ctx context.Context, chatID int64, offset int) {
	records, err := b.history.ListByChat(ctx, chatID, domain.ListOpts{
		Limit:  b.cfg.HistoryPageSize + 1,
		Offset: offset,
	})
	if err != nil {
		b.logger.Error("history lookup failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Could not load your history, try again later.", nil)
		return
	}
	if len(records) == 0 && offset == 0 {
		b.reply(ctx, chatID, "No predictions yet. Pick a match under /sports to get one.", nil)
		return
	}

	hasMore := len(records) > b.cfg.HistoryPageSize
	if hasMore {
		records = records[:b.cfg.HistoryPageSize]
	}

	var keyboard *telego.InlineKeyboardMarkup
	if hasMore {
		keyboard = historyKeyboard(offset + b.cfg.HistoryPageSize)
	}
	b.reply(ctx, chatID, formatHistory(records, offset), keyboard)
}

func (b *Bot) runScan(ctx context.Context, chatID int64) {
	if b.scanner == nil {
		b.reply(ctx, chatID, "Scanning is not enabled in this deployment.", nil)
		return
	}
	b.reply(ctx, chatID, "Scanning "+strconv.Itoa(len(b.cfg.ScanSports))+" sports...", nil)

	opps, err := b.scanner.ScanSports(ctx, b.cfg.ScanSports)
	if err != nil {
		b.logger.Error("manual scan failed", slog.String("error", err.Error()))
		b.reply(ctx, chatID, "Scan failed: "+err.Error(), nil)
		return
	}
	b.reply(ctx, chatID, formatScanResult(opps), nil)
}

func (b *Bot) setAPIKey(ctx context.Context, chatID int64, args []string) {
	if b.vault == nil {
		b.reply(ctx, chatID, "No vault passphrase is configured, keys cannot be stored.", nil)
		return
	}
	if len(args) != 2 {
		b.reply(ctx, chatID, "Usage: /setapikey <odds|gemini|apify|sportsdb> <key>", nil)
		return
	}

	settingKey, ok := settingKeyFor(args[0])
	if !ok {
		b.reply(ctx, chatID, "Unknown provider. Use odds, gemini, apify or sportsdb.", nil)
		return
	}

	sealed, err := b.vault.Seal(args[1])
	if err != nil {
		b.logger.Error("sealing api key failed", slog.String("error", err.Error()))
		b.reply(ctx, chatID, "Could not encrypt the key.", nil)
		return
	}
	if err := b.settings.Set(ctx, domain.Setting{
		Key:       settingKey,
		Value:     sealed,
		Encrypted: true,
	}); err != nil {
		b.logger.Error("storing api key failed", slog.String("error", err.Error()))
		b.reply(ctx, chatID, "Could not store the key.", nil)
		return
	}

	b.logger.Info("api key updated", slog.String("setting", settingKey), slog.Int64("chat_id", chatID))
	b.reply(ctx, chatID, "Stored. The new key is used for the next request.", nil)
}

func (b *Bot) changeAdmin(ctx context.Context, chatID int64, args []string, add bool) {
	if len(args) != 1 {
		b.reply(ctx, chatID, "Usage: /addadmin <chat_id> or /removeadmin <chat_id>", nil)
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(ctx, chatID, "Chat IDs are numeric.", nil)
		return
	}

	if add {
		err = b.admins.Add(ctx, target)
	} else {
		if target == chatID {
			b.reply(ctx, chatID, "You cannot remove yourself.", nil)
			return
		}
		err = b.admins.Remove(ctx, target)
	}
	if err != nil {
		b.logger.Error("admin change failed",
			slog.Int64("target", target),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Could not update the admin list.", nil)
		return
	}
	b.reply(ctx, chatID, "Admin list updated.", nil)
}

// settingKeyFor maps the short provider names used in chat to settings keys.
func settingKeyFor(provider string) (string, bool) {
	switch strings.ToLower(provider) {
	case "odds", "oddsapi", "odds_api":
		return domain.SettingOddsAPIKey, true
	case "gemini":
		return domain.SettingGeminiKey, true
	case "apify":
		return domain.SettingApifyKey, true
	case "sportsdb":
		return domain.SettingSportsDBKey, true
	default:
		return "", false
	}
}
