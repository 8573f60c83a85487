package evm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Backend is the subset of *ethclient.Client used for log retrieval.
	Backend interface {
		FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
		BlockNumber(ctx context.Context) (uint64, error)
	}
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
