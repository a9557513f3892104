package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/theeagle2407/Vigil/internal/chaindata"
	"github.com/theeagle2407/Vigil/internal/risk"
)

// Simulate evaluates a synthetic transaction through the full analysis
// pipeline and prints the verdict. Nothing is archived.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	registry := a.newRegistry(nil)
	mon := a.newMonitor(registry, &chaindata.StaticProvider{}, nil, nil)

	tx := risk.Transaction{
		From:            opts.From,
		To:              opts.To,
		Value:           opts.Value,
		Data:            opts.Data,
		ContractAddress: opts.ContractAddress,
	}

	res := mon.Evaluate(tx)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))

	if res.ShouldBlock {
		fmt.Fprintln(os.Stdout, "verdict: transaction would be BLOCKED")
	} else {
		fmt.Fprintln(os.Stdout, "verdict: transaction would be allowed")
	}
	return nil
}
