package app

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Wallet prints on-chain facts about an address: ether balance, active
// approvals, and the latest block the node has seen.
func (a *App) Wallet(ctx context.Context, address string) error {
	provider := a.newProvider()
	if provider == nil {
		return errors.New("ethereum.rpc_url not configured; cannot query wallet")
	}

	balance, err := provider.Balance(ctx, address)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}

	approvals, err := provider.ActiveApprovals(ctx, address)
	if err != nil {
		return fmt.Errorf("fetch approvals: %w", err)
	}

	block, err := provider.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest block: %w", err)
	}

	fmt.Fprintf(os.Stdout, "address:          %s\n", address)
	fmt.Fprintf(os.Stdout, "balance:          %s ETH\n", balance.StringFixed(6))
	fmt.Fprintf(os.Stdout, "active approvals: %d\n", approvals)
	fmt.Fprintf(os.Stdout, "latest block:     %d\n", block)
	return nil
}
