package scan

import (
	"context"
	"time"

	"github.com/goodnatureofminers/tierwatch-backend/internal/decode"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	LogRetrieval interface {
		GetLogs(ctx context.Context, from, to uint64) ([]model.LogRecord, error)
	}
	Engine interface {
		Infer(words []model.Word, positions []int) decode.Inference
	}
	Metrics interface {
		ObserveChunk(err error, logs int, started time.Time)
		ObserveSplit()
		ObserveScan(outcome string, evaluated int, started time.Time)
	}
)
