package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/trendscout/trendscout/internal/store/model"
)

type SweepResult interface {
	Save(ctx context.Context, results []model.SweepResult) error
	BySession(ctx context.Context, sessionID string) ([]model.SweepResult, error)
	BestBySession(ctx context.Context, sessionID string, limit int) ([]model.SweepResult, error)
}

type sweepResultStore struct {
	db *gorm.DB
}

func NewSweepResultStore(db *gorm.DB) SweepResult {
	return &sweepResultStore{db: db}
}

func (s *sweepResultStore) Save(ctx context.Context, results []model.SweepResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&results).Error
}

func (s *sweepResultStore) BySession(ctx context.Context, sessionID string) ([]model.SweepResult, error) {
	var results []model.SweepResult
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&results).Error
	return results, err
}

func (s *sweepResultStore) BestBySession(ctx context.Context, sessionID string, limit int) ([]model.SweepResult, error) {
	var results []model.SweepResult
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sharpe desc").
		Limit(limit).
		Find(&results).Error
	return results, err
}
