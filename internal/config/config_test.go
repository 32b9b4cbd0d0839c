package config

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given the built-in defaults", t, func() {
		cfg := Defaults()

		Convey("the scan loop is configured out of the box", func() {
			So(cfg.Scan.Sports, ShouldResemble, []string{"upcoming"})
			So(cfg.Scan.Interval.Duration, ShouldEqual, 10*time.Minute)
		})

		Convey("the provider base URLs are set", func() {
			So(cfg.OddsAPI.BaseURL, ShouldNotBeEmpty)
			So(cfg.Gemini.BaseURL, ShouldNotBeEmpty)
			So(cfg.SportsDB.BaseURL, ShouldNotBeEmpty)
		})

		Convey("mode and log level are sane", func() {
			So(cfg.Mode, ShouldEqual, "full")
			So(cfg.LogLevel, ShouldEqual, "info")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a default config", t, func() {
		cfg := Defaults()

		Convey("scan mode passes validation without a bot token", func() {
			cfg.Mode = "scan"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("bot mode requires a telegram token", func() {
			cfg.Mode = "bot"
			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "bot_token")
		})

		Convey("an unknown mode is rejected", func() {
			cfg.Mode = "turbo"
			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown mode")
		})

		Convey("an empty sports list is rejected", func() {
			cfg.Mode = "scan"
			cfg.Scan.Sports = nil
			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "sport key")
		})

		Convey("a bad postgres port is rejected", func() {
			cfg.Mode = "scan"
			cfg.Postgres.Port = -1
			err := cfg.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "postgres: port")
		})

		Convey("a DSN bypasses the host/port checks", func() {
			cfg.Mode = "scan"
			cfg.Postgres.DSN = "postgres://u:p@db:5432/oracle"
			cfg.Postgres.Host = ""
			So(cfg.Validate(), ShouldBeNil)
		})
	})
}

func TestEnvOverrides(t *testing.T) {
	Convey("Given ORACLEBOT_* environment variables", t, func() {
		cfg := Defaults()

		t.Setenv("ORACLEBOT_ODDS_API_KEY", "k-123")
		t.Setenv("ORACLEBOT_SCAN_SPORTS", "soccer_epl, basketball_nba")
		t.Setenv("ORACLEBOT_SCAN_INTERVAL", "5m")
		t.Setenv("ORACLEBOT_TELEGRAM_ADMIN_CHAT_IDS", "100, 200")
		t.Setenv("ORACLEBOT_SERVER_ENABLED", "false")

		applyEnvOverrides(&cfg)

		Convey("strings, slices, durations and bools all apply", func() {
			So(cfg.OddsAPI.ApiKey, ShouldEqual, "k-123")
			So(cfg.Scan.Sports, ShouldResemble, []string{"soccer_epl", "basketball_nba"})
			So(cfg.Scan.Interval.Duration, ShouldEqual, 5*time.Minute)
			So(cfg.Telegram.AdminChatIDs, ShouldResemble, []int64{100, 200})
			So(cfg.Server.Enabled, ShouldBeFalse)
		})
	})
}

func TestRedactedConfig(t *testing.T) {
	Convey("Given a config holding secrets", t, func() {
		cfg := Defaults()
		cfg.OddsAPI.ApiKey = "secret-odds"
		cfg.Gemini.ApiKey = "secret-gemini"
		cfg.Telegram.BotToken = "123:abc"
		cfg.Postgres.Password = "hunter2"

		red := RedactedConfig(&cfg)

		Convey("secrets are masked", func() {
			So(red.OddsAPI.ApiKey, ShouldEqual, "***")
			So(red.Gemini.ApiKey, ShouldEqual, "***")
			So(red.Telegram.BotToken, ShouldEqual, "***")
			So(red.Postgres.Password, ShouldEqual, "***")
		})

		Convey("non-secret fields survive", func() {
			So(red.OddsAPI.BaseURL, ShouldEqual, cfg.OddsAPI.BaseURL)
			So(red.Mode, ShouldEqual, cfg.Mode)
		})

		Convey("empty secrets stay empty", func() {
			So(red.Apify.ApiKey, ShouldBeEmpty)
		})

		Convey("the original is untouched", func() {
			So(cfg.OddsAPI.ApiKey, ShouldEqual, "secret-odds")
		})
	})
}
