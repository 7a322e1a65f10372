package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/jukebox/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	configPath = configVar[string]{
		envKey:       "SERVER_CONFIG",
		flagKey:      "config",
		defaultValue: "",
		usage:        "Optional config file, log level changes in it apply without restart",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
		usage:        "Maximum number of connections in the room",
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 25,
		usage:        "Maximum number of songs in the queue",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	redisDB = configVar[int]{
		envKey:       "REDIS_DB",
		flagKey:      "redis-db",
		defaultValue: 0,
		usage:        "Redis database",
	}
	eventLog = configVar[string]{
		envKey:       "EVENT_LOG",
		flagKey:      "event-log",
		defaultValue: app.EventLogRedis,
		usage:        "Event log backend: redis or sqlite",
	}
	sqlitePath = configVar[string]{
		envKey:       "EVENT_LOG_SQLITE_PATH",
		flagKey:      "sqlite-path",
		defaultValue: "/var/lib/jukebox/events.db",
		usage:        "SQLite event log file",
	}
	stream = configVar[string]{
		envKey:       "EVENT_LOG_STREAM",
		flagKey:      "stream",
		defaultValue: "song-events",
		usage:        "Redis stream holding room events",
	}
	streamMaxLen = configVar[int64]{
		envKey:       "EVENT_LOG_STREAM_MAX_LEN",
		flagKey:      "stream-max-len",
		defaultValue: 0,
		usage:        "Approximate stream length cap, 0 keeps every event",
	}
	group = configVar[string]{
		envKey:       "EVENT_LOG_GROUP",
		flagKey:      "group",
		defaultValue: "socket-group",
		usage:        "Reader group name",
	}
	consumer = configVar[string]{
		envKey:       "EVENT_LOG_CONSUMER",
		flagKey:      "consumer",
		defaultValue: "materializer",
		usage:        "Reader name inside the group",
	}
	materializerLanes = configVar[int]{
		envKey:       "MATERIALIZER_LANES",
		flagKey:      "materializer-lanes",
		defaultValue: 4,
		usage:        "Number of rooms applied in parallel",
	}
	roomTTL = configVar[time.Duration]{
		envKey:       "ROOM_TTL",
		flagKey:      "room-ttl",
		defaultValue: 14 * 24 * time.Hour,
		usage:        "Idle time after which a room queue expires",
	}
	youtubeAPIKey = configVar[string]{
		envKey:       "YOUTUBE_API_KEY",
		flagKey:      "youtube-api-key",
		defaultValue: "",
		usage:        "YouTube Data API key used by search",
	}
)

func bind[T any](v configVar[T], define func(name string, value T, usage string) *T) {
	define(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	bind(configPath, pflag.String)
	bind(port, pflag.Int)
	bind(host, pflag.String)
	bind(logLevel, pflag.String)
	bind(membersLimit, pflag.Int)
	bind(playlistLimit, pflag.Int)
	bind(redisPort, pflag.Int)
	bind(redisHost, pflag.String)
	bind(redisPassword, pflag.String)
	bind(redisDB, pflag.Int)
	bind(eventLog, pflag.String)
	bind(sqlitePath, pflag.String)
	bind(stream, pflag.String)
	bind(streamMaxLen, pflag.Int64)
	bind(group, pflag.String)
	bind(consumer, pflag.String)
	bind(materializerLanes, pflag.Int)
	bind(roomTTL, pflag.Duration)
	bind(youtubeAPIKey, pflag.String)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	if path := viper.GetString(configPath.flagKey); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("failed to read config file: %v", err)
		}
	}

	return &app.AppConfig{
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		MembersLimit:      viper.GetInt(membersLimit.flagKey),
		PlaylistLimit:     viper.GetInt(playlistLimit.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
		RedisDB:           viper.GetInt(redisDB.flagKey),
		EventLog:          viper.GetString(eventLog.flagKey),
		SQLitePath:        viper.GetString(sqlitePath.flagKey),
		Stream:            viper.GetString(stream.flagKey),
		StreamMaxLen:      viper.GetInt64(streamMaxLen.flagKey),
		Group:             viper.GetString(group.flagKey),
		Consumer:          viper.GetString(consumer.flagKey),
		MaterializerLanes: viper.GetInt(materializerLanes.flagKey),
		RoomTTL:           viper.GetDuration(roomTTL.flagKey),
		YoutubeAPIKey:     viper.GetString(youtubeAPIKey.flagKey),
	}
}

// watchLogLevel applies log level edits of the config file to the running process.
func watchLogLevel(level *slog.LevelVar) {
	if viper.ConfigFileUsed() == "" {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		l, err := app.ParseLogLevel(viper.GetString(logLevel.flagKey))
		if err != nil {
			slog.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}

		level.Set(l)
		slog.Info("log level changed", "file", e.Name, "level", l.String())
	})
	viper.WatchConfig()
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	level := new(slog.LevelVar)
	l, _ := app.ParseLogLevel(appConfig.LogLevel)
	level.Set(l)
	watchLogLevel(level)

	if err := app.Run(ctx, appConfig, level); err != nil {
		log.Fatal(err)
	}
}
