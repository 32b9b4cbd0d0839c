package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback actions routed through inline-keyboard callback data. Telegram
// caps callback data at 64 bytes, so the payload stays "action|field|field"
// with the short action names below.
const (
	cbSports  = "sports"
	cbSport   = "sport"
	cbEvent   = "ev"
	cbOdds    = "odds"
	cbArb     = "arb"
	cbAnalyze = "ai"
	cbHistory = "hist"
)

// callback is a decoded inline-button payload.
type callback struct {
	Action   string
	SportKey string
	EventID  string
	Offset   int
}

func encodeSport(action, sportKey string) string {
	return action + "|" + sportKey
}

func encodeEvent(action, sportKey, eventID string) string {
	return action + "|" + sportKey + "|" + eventID
}

func encodeHistory(offset int) string {
	return cbHistory + "|" + strconv.Itoa(offset)
}

// decodeCallback parses callback data back into its action and fields.
func decodeCallback(data string) (callback, error) {
	parts := strings.Split(data, "|")
	switch parts[0] {
	case cbSports:
		return callback{Action: cbSports}, nil
	case cbSport:
		if len(parts) != 2 || parts[1] == "" {
			return callback{}, fmt.Errorf("bot: malformed sport callback %q", data)
		}
		return callback{Action: cbSport, SportKey: parts[1]}, nil
	case cbEvent, cbOdds, cbArb, cbAnalyze:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return callback{}, fmt.Errorf("bot: malformed event callback %q", data)
		}
		return callback{Action: parts[0], SportKey: parts[1], EventID: parts[2]}, nil
	case cbHistory:
		if len(parts) != 2 {
			return callback{}, fmt.Errorf("bot: malformed history callback %q", data)
		}
		offset, err := strconv.Atoi(parts[1])
		if err != nil || offset < 0 {
			return callback{}, fmt.Errorf("bot: malformed history offset %q", data)
		}
		return callback{Action: cbHistory, Offset: offset}, nil
	default:
		return callback{}, fmt.Errorf("bot: unknown callback action %q", data)
	}
}
