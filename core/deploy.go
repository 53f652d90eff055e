package core

import (
	"context"
	"time"

	"github.com/axiomesh/ballot/contract"
	"github.com/axiomesh/ballot/repo"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Deployer publishes the VotingSystem contract from a compiled artifact.
type Deployer struct {
	Config *repo.Config
	Client Client
	Signer Signer
	Logger logrus.FieldLogger
}

// Deploy sends the creation transaction, waits until the code is on chain and returns the
// record to hand to clients. The client must already serve the configured network.
func (d *Deployer) Deploy(ctx context.Context, artifact *contract.Artifact) (*repo.DeploymentInfo, error) {
	chainID, err := d.Client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get chain id")
	}
	if network := d.Config.Network; chainID.Uint64() != network.ChainID {
		return nil, errors.Wrapf(ErrChainMismatch, "provider serves chain %s, %s is %s", chainID, network.Name, network.HexChainID())
	}

	opts, err := d.Signer.Transactor(ctx, chainID)
	if err != nil {
		return nil, err
	}

	_, tx, _, err := contract.Deploy(opts, d.Client, artifact)
	if err != nil {
		return nil, errors.Wrap(err, "deploy contract")
	}
	d.Logger.Infof("deployment transaction %s sent", tx.Hash().Hex())

	waitCtx := ctx
	if d.Config.Tx.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, d.Config.Tx.ReceiptTimeout)
		defer cancel()
	}

	address, err := bind.WaitDeployed(waitCtx, d.Client, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for deployment %s", tx.Hash().Hex())
	}

	block, err := d.Client.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get block number")
	}

	rpcUrl := d.Config.DialUrl
	if len(d.Config.Network.RpcUrls) > 0 {
		rpcUrl = d.Config.Network.RpcUrls[0]
	}

	info := &repo.DeploymentInfo{
		Network:         d.Config.Network.Name,
		ChainID:         chainID.Uint64(),
		RpcUrl:          rpcUrl,
		ContractAddress: address.Hex(),
		DeployedBy:      d.Signer.Address().Hex(),
		DeployedAt:      time.Now().UTC().Truncate(time.Second),
		BlockNumber:     block,
	}
	d.Logger.WithField("contract", info.ContractAddress).Info("contract deployed")

	return info, nil
}
