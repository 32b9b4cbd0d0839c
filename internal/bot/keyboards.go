package bot

import (
	"github.com/mymmrac/telego"

	"github.com/quarterpin/oraclebot/internal/domain"
)

func mainMenu() *telego.InlineKeyboardMarkup {
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{
				{Text: "⚽ Sports", CallbackData: cbSports},
				{Text: "📜 History", CallbackData: encodeHistory(0)},
			},
		},
	}
}

func sportsKeyboard(sports []domain.Sport) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(sports))
	for _, s := range sports {
		rows = append(rows, []telego.InlineKeyboardButton{
			{Text: s.Title, CallbackData: encodeSport(cbSport, s.Key)},
		})
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func eventsKeyboard(sportKey string, events []domain.Event) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []telego.InlineKeyboardButton{
			{Text: ev.Match(), CallbackData: encodeEvent(cbEvent, sportKey, ev.ID)},
		})
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func eventMenuKeyboard(sportKey, eventID string) *telego.InlineKeyboardMarkup {
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{
				{Text: "📊 Best odds", CallbackData: encodeEvent(cbOdds, sportKey, eventID)},
				{Text: "💰 Arbitrage", CallbackData: encodeEvent(cbArb, sportKey, eventID)},
			},
			{
				{Text: "🔮 AI analysis", CallbackData: encodeEvent(cbAnalyze, sportKey, eventID)},
			},
		},
	}
}

func historyKeyboard(nextOffset int) *telego.InlineKeyboardMarkup {
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{{Text: "More ▸", CallbackData: encodeHistory(nextOffset)}},
		},
	}
}
