package store

import (
	"gorm.io/gorm"

	"github.com/trendscout/trendscout/internal/store/model"
)

type Store interface {
	Bar() Bar
	SweepResult() SweepResult
	Seed() error
	Close() error
}

type DataStore struct {
	bar         Bar
	sweepResult SweepResult
	db          *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		bar:         NewBarStore(db),
		sweepResult: NewSweepResultStore(db),
		db:          db,
	}
}

func (s *DataStore) Bar() Bar {
	return s.bar
}

func (s *DataStore) SweepResult() SweepResult {
	return s.sweepResult
}

// Seed runs the schema migration for all persisted entities.
func (s *DataStore) Seed() error {
	return s.db.AutoMigrate(&model.Bar{}, &model.SweepResult{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
