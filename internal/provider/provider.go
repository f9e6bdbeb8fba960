package provider

import (
	"context"
	"time"

	"github.com/trendscout/trendscout/internal/store/model"
)

// Provider fetches market data from an upstream source and resolves symbol
// searches. Implementations must be safe for use from a single worker
// goroutine; they are never called concurrently.
type Provider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
	Search(ctx context.Context, query string) ([]string, error)
}
