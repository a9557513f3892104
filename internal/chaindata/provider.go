package chaindata

import (
	"context"

	"github.com/shopspring/decimal"
)

// WalletDataProvider supplies on-chain facts about a wallet. The core only
// depends on this capability, never on a live chain connection, so scoring
// and audit logic stay deterministic under test.
type WalletDataProvider interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	ActiveApprovals(ctx context.Context, address string) (int, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

// StaticProvider returns fixed values. Used by tests and the simulate
// command.
type StaticProvider struct {
	BalanceETH decimal.Decimal
	Approvals  int
	Block      uint64
}

func (p *StaticProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return p.BalanceETH, nil
}

func (p *StaticProvider) ActiveApprovals(ctx context.Context, address string) (int, error) {
	return p.Approvals, nil
}

func (p *StaticProvider) LatestBlock(ctx context.Context) (uint64, error) {
	return p.Block, nil
}

var _ WalletDataProvider = (*StaticProvider)(nil)
