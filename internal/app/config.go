package app

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	EventLogRedis  = "redis"
	EventLogSQLite = "sqlite"
)

type AppConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	LogLevel          string        `json:"log_level"`
	MembersLimit      int           `json:"members_limit"`
	PlaylistLimit     int           `json:"playlist_limit"`
	RedisHost         string        `json:"redis_host"`
	RedisPort         int           `json:"redis_port"`
	RedisPassword     string        `json:"-"`
	RedisDB           int           `json:"redis_db"`
	EventLog          string        `json:"event_log"`
	SQLitePath        string        `json:"sqlite_path"`
	Stream            string        `json:"stream"`
	StreamMaxLen      int64         `json:"stream_max_len"`
	Group             string        `json:"group"`
	Consumer          string        `json:"consumer"`
	MaterializerLanes int           `json:"materializer_lanes"`
	RoomTTL           time.Duration `json:"room_ttl"`
	YoutubeAPIKey     string        `json:"-"`
}

var PortRule = []validation.Rule{
	validation.Required,
	validation.Min(1),
	validation.Max(65535),
}

var LimitRule = []validation.Rule{
	validation.Required,
	validation.Min(1),
}

var LogLevelRule = []validation.Rule{
	validation.Required,
	validation.By(func(value any) error {
		s, _ := value.(string)
		_, err := ParseLogLevel(s)
		return err
	}),
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Port, PortRule...),
		validation.Field(&cfg.LogLevel, LogLevelRule...),
		validation.Field(&cfg.MembersLimit, LimitRule...),
		validation.Field(&cfg.PlaylistLimit, LimitRule...),
		validation.Field(&cfg.RedisHost, validation.Required),
		validation.Field(&cfg.RedisPort, PortRule...),
		validation.Field(&cfg.RedisDB, validation.Min(0)),
		validation.Field(&cfg.EventLog, validation.Required, validation.In(EventLogRedis, EventLogSQLite)),
		validation.Field(&cfg.SQLitePath, validation.When(cfg.EventLog == EventLogSQLite, validation.Required)),
		validation.Field(&cfg.StreamMaxLen, validation.Min(int64(0))),
		validation.Field(&cfg.MaterializerLanes, LimitRule...),
		validation.Field(&cfg.RoomTTL, validation.Min(time.Duration(0))),
	)
}

var ErrInvalidLogLevel = errors.New("invalid log level")

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, ErrInvalidLogLevel
	}

	return level, nil
}
