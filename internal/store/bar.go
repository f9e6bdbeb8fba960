package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trendscout/trendscout/internal/store/model"
)

type Bar interface {
	Write(ctx context.Context, bars []model.Bar) error
	Read(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
	ReadAll(ctx context.Context, symbol string) ([]model.Bar, error)
	Has(ctx context.Context, symbol string, start, end time.Time) (bool, error)
	CachedSymbols(ctx context.Context) ([]string, error)
	DeleteBySymbol(ctx context.Context, symbol string) error
}

type barStore struct {
	db *gorm.DB
}

func NewBarStore(db *gorm.DB) Bar {
	return &barStore{db: db}
}

// Write upserts the bars, replacing any cached record for the same
// symbol and timestamp so a forced refetch overwrites stale data.
func (b *barStore) Write(ctx context.Context, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&bars).Error
}

func (b *barStore) Read(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	var bars []model.Bar
	result := b.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ? AND timestamp <= ?", symbol, start, end).
		Order("timestamp asc").
		Find(&bars)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(bars) == 0 {
		return nil, ErrRecordNotFound
	}
	return bars, nil
}

func (b *barStore) ReadAll(ctx context.Context, symbol string) ([]model.Bar, error) {
	var bars []model.Bar
	result := b.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp asc").
		Find(&bars)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(bars) == 0 {
		return nil, ErrRecordNotFound
	}
	return bars, nil
}

// Has reports whether the cache already covers the requested range for the
// symbol, meaning at least one bar at or before start and one at or after end.
func (b *barStore) Has(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	var first, last model.Bar

	err := b.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp asc").
		First(&first).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := b.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp desc").
		First(&last).Error; err != nil {
		return false, err
	}

	return !first.Timestamp.After(start) && !last.Timestamp.Before(end), nil
}

func (b *barStore) CachedSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	result := b.db.WithContext(ctx).
		Model(&model.Bar{}).
		Distinct("symbol").
		Order("symbol asc").
		Pluck("symbol", &symbols)
	return symbols, result.Error
}

func (b *barStore) DeleteBySymbol(ctx context.Context, symbol string) error {
	return b.db.WithContext(ctx).Where("symbol = ?", symbol).Delete(&model.Bar{}).Error
}
