package store

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trendscout/trendscout/internal/config"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	newLogger := logger.New(
		zapWriter{zap.S().Named("gorm")},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	newDB, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{Logger: newLogger, TranslateError: true})
	if err != nil {
		zap.S().Named("gorm").Errorf("failed to open database: %v", err)
		return nil, err
	}

	sqlDB, err := newDB.DB()
	if err != nil {
		zap.S().Named("gorm").Errorf("failed to configure connections: %v", err)
		return nil, err
	}
	// sqlite serializes writers, keep the pool small
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	return newDB, nil
}

type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(format, args...)
}
