package chaindata

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// approvalTopic is the ERC-20/721 Approval event signature.
var approvalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))

// EthOptions parameterise the on-chain provider.
type EthOptions struct {
	RPCURL string
	// ApprovalLookback is how many blocks back to scan for Approval events.
	ApprovalLookback uint64
	Timeout          time.Duration
}

// EthProvider reads wallet data over Ethereum RPC. The client is dialled
// lazily on first use.
type EthProvider struct {
	opts      EthOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewEthProvider builds an RPC-backed wallet data provider.
func NewEthProvider(opts EthOptions, logger zerolog.Logger) *EthProvider {
	return &EthProvider{opts: opts, logger: logger.With().Str("component", "eth_provider").Logger()}
}

// Balance returns the wallet balance in ether.
func (p *EthProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	client, err := p.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	wei, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

// ActiveApprovals counts Approval events emitted by the wallet over the
// configured lookback window.
func (p *EthProvider) ActiveApprovals(ctx context.Context, address string) (int, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	client, err := p.getClient(ctx)
	if err != nil {
		return 0, err
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	lookback := p.opts.ApprovalLookback
	if lookback == 0 {
		lookback = 5000
	}
	from := uint64(0)
	if head > lookback {
		from = head - lookback
	}

	owner := common.HexToAddress(address)
	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Topics: [][]common.Hash{
			{approvalTopic},
			{common.BytesToHash(owner.Bytes())},
		},
	})
	if err != nil {
		return 0, err
	}
	return len(logs), nil
}

// LatestBlock returns the current head block number.
func (p *EthProvider) LatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	client, err := p.getClient(ctx)
	if err != nil {
		return 0, err
	}
	return client.BlockNumber(ctx)
}

func (p *EthProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (p *EthProvider) getClient(ctx context.Context) (*ethclient.Client, error) {
	p.clientMux.Lock()
	defer p.clientMux.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.opts.RPCURL == "" {
		return nil, errors.New("ethereum rpc url not configured")
	}

	client, err := ethclient.DialContext(ctx, p.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

var _ WalletDataProvider = (*EthProvider)(nil)
