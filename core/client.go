package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is the part of a JSON-RPC client the voting session relies on. *ethclient.Client satisfies it.
type Client interface {
	bind.ContractBackend
	bind.DeployBackend

	ChainID(ctx context.Context) (*big.Int, error)

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)

	BlockNumber(ctx context.Context) (uint64, error)

	Close()
}

var _ Client = (*ethclient.Client)(nil)

// Dialer opens a Client for an RPC endpoint.
type Dialer func(ctx context.Context, url string) (Client, error)

func DialEthClient(ctx context.Context, url string) (Client, error) {
	return ethclient.DialContext(ctx, url)
}

// Signer produces transaction options for the connected account.
type Signer interface {
	Address() common.Address

	Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}
