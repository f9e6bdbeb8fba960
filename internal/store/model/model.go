package model

import "time"

// Bar is one daily OHLCV record of the local market-data cache.
type Bar struct {
	Symbol    string    `json:"symbol" gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"primaryKey"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// SweepResult is one persisted backtest outcome, keyed by the research
// session it belongs to and the configuration that produced it.
type SweepResult struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID   string    `json:"session_id" gorm:"index"`
	ConfigID    string    `json:"config_id" gorm:"index"`
	Symbol      string    `json:"symbol"`
	Sharpe      float64   `json:"sharpe"`
	CAGR        float64   `json:"cagr"`
	MaxDrawdown float64   `json:"max_drawdown"`
	HitRate     float64   `json:"hit_rate"`
	Trades      int       `json:"trades"`
	CreatedAt   time.Time `json:"created_at"`
}
