// Package evm retrieves contract logs from an EVM JSON-RPC node.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// Client wraps an EVM node with metrics instrumentation and serves logs of
// a single contract.
type Client struct {
	backend    Backend
	address    common.Address
	topics     [][]common.Hash
	rpcMetrics RPCMetrics
	close      func()
}

// Dial connects to url and returns a Client for the contract at address.
func Dial(ctx context.Context, url, address string, rpcMetrics RPCMetrics, topic0 ...string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c, err := NewClient(ec, address, rpcMetrics, topic0...)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.close = ec.Close
	return c, nil
}

// NewClient constructs an instrumented Client. When topic0 values are given
// the node filters logs by event signature.
func NewClient(backend Backend, address string, rpcMetrics RPCMetrics, topic0 ...string) (*Client, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	c := &Client{
		backend:    backend,
		address:    common.HexToAddress(address),
		rpcMetrics: rpcMetrics,
	}
	if len(topic0) > 0 {
		sigs := make([]common.Hash, 0, len(topic0))
		for _, t := range topic0 {
			b, err := hexutil.Decode(t)
			if err != nil || len(b) != common.HashLength {
				return nil, fmt.Errorf("invalid topic0 %q", t)
			}
			sigs = append(sigs, common.BytesToHash(b))
		}
		c.topics = [][]common.Hash{sigs}
	}
	return c, nil
}

// GetLogs returns the contract logs in [from, to]. Logs removed by a reorg are dropped.
func (c *Client) GetLogs(ctx context.Context, from, to uint64) (records []model.LogRecord, err error) {
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("eth_getLogs", err, started)
	}()

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.address},
		Topics:    c.topics,
	})
	if err != nil {
		return nil, fmt.Errorf("get logs %d-%d: %w", from, to, err)
	}

	records = make([]model.LogRecord, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		records = append(records, ToLogRecord(l))
	}
	return records, nil
}

// LatestBlock returns the current head block number.
func (c *Client) LatestBlock(ctx context.Context) (n uint64, err error) {
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("eth_blockNumber", err, started)
	}()
	return c.backend.BlockNumber(ctx)
}

// Close releases the underlying connection when the client was dialed.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

// ToLogRecord converts a go-ethereum log into the wire-level LogRecord.
func ToLogRecord(l types.Log) model.LogRecord {
	topics := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t.Hex()
	}
	return model.LogRecord{
		Address:     strings.ToLower(l.Address.Hex()),
		Topics:      topics,
		Data:        hexutil.Encode(l.Data),
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash.Hex(),
		LogIndex:    l.Index,
	}
}
