package resolver

import (
	"context"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/cache"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/internal/scan"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Pager interface {
		Page(ctx context.Context, first, skip int) ([]model.EventSummary, error)
	}
	Scanner interface {
		Scan(ctx context.Context, cursor model.ScanCursor, id model.Identifier) (scan.Result, error)
	}
	Cache interface {
		Lookup(id model.Identifier) (model.TierResolution, cache.Status)
		Put(id model.Identifier, res model.TierResolution) error
	}
	Sink interface {
		Add(ctx context.Context, res model.TierResolution) error
	}
	Metrics interface {
		ObservePage(err error, started time.Time)
		ObserveResolution(tier, reason string, started time.Time)
		ObserveCache(result string)
	}
)
