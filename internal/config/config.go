package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database  *dbConfig
	Worker    *workerConfig
	Companion *companionConfig
}

type dbConfig struct {
	Path string `envconfig:"TRENDSCOUT_DB_PATH" default:"data/trendscout.db"`
}

type workerConfig struct {
	LogLevel          string `envconfig:"TRENDSCOUT_LOG_LEVEL" default:"info"`
	LeaderboardSize   int    `envconfig:"TRENDSCOUT_LEADERBOARD_SIZE" default:"4"`
	LeaderboardPath   string `envconfig:"TRENDSCOUT_LEADERBOARD_PATH" default:"data/leaderboard.json"`
	RankMetric        string `envconfig:"TRENDSCOUT_RANK_METRIC" default:"avg_sharpe"`
	HeartbeatInterval int    `envconfig:"TRENDSCOUT_HEARTBEAT_INTERVAL_SECONDS" default:"5"`
}

type companionConfig struct {
	// Address the companion server binds to. Port 0 picks an ephemeral port;
	// the bound address is handed to the child process via
	// TRENDSCOUT_COMPANION_SOCKET.
	Address string `envconfig:"TRENDSCOUT_COMPANION_ADDRESS" default:"127.0.0.1:0"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
