package main

import (
	"fmt"

	"github.com/axiomesh/ballot/contract"
	"github.com/axiomesh/ballot/core"
	"github.com/axiomesh/ballot/repo"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var deployCMD = &cli.Command{
	Name:  "deploy",
	Usage: "Deploy the VotingSystem contract and write the deployment info",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "artifact",
			Usage:    "Compiled contract artifact (json with abi and bytecode)",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Store the deployed address as contract_address in the config",
		},
	},
	Action: deploy,
}

func deploy(ctx *cli.Context) error {
	s, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()
	r := s.repo

	artifact, err := contract.LoadArtifact(ctx.String("artifact"))
	if err != nil {
		return err
	}

	// same chain negotiation as the voting client, so the contract lands where sessions look for it
	account, err := s.ConnectNetwork(ctx.Context)
	if err != nil {
		return err
	}

	fmt.Println("Deploying the VotingSystem contract...")
	fmt.Println()
	fmt.Println("Deployer:", account.Hex())

	balance, err := s.Balance(ctx.Context)
	if err != nil {
		return errors.Wrap(err, "get balance")
	}
	currency := r.Config.Network.Currency
	fmt.Println("Balance: ", core.FormatUnits(balance, currency.Decimals), currency.Symbol)
	fmt.Println()

	d := &core.Deployer{Config: r.Config, Client: s.Client(), Signer: s.wallet, Logger: s.Logger}
	info, err := d.Deploy(ctx.Context, artifact)
	if err != nil {
		return errors.Wrap(err, "deployment failed")
	}
	fmt.Println("VotingSystem deployed to:", info.ContractAddress)
	fmt.Println()

	if err := repo.WriteDeploymentInfo(r.DeploymentPath(), info); err != nil {
		return err
	}
	fmt.Println("Deployment info saved to:", r.DeploymentPath())

	if ctx.Bool("save") {
		r.Config.ContractAddress = info.ContractAddress
		if err := r.Flush(); err != nil {
			return err
		}
		fmt.Println("contract_address saved to the config")
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("Deployment Summary")
	fmt.Println(separator)
	fmt.Println("Contract Address:", info.ContractAddress)
	fmt.Println("Network:         ", info.Network)
	fmt.Println("Chain ID:        ", info.ChainID)
	fmt.Println("RPC:             ", info.RpcUrl)
	fmt.Println("Deployed by:     ", info.DeployedBy)
	fmt.Println("Block:           ", info.BlockNumber)
	fmt.Println(separator)
	fmt.Println()
	fmt.Println("Next steps:")
	if ctx.Bool("save") {
		fmt.Println("1. Run `ballot start` or `ballot forum create` to open a forum")
	} else {
		fmt.Println("1. Copy the contract address above")
		fmt.Println("2. Run `ballot config set-contract <address>` or export BALLOT_CONTRACT_ADDRESS")
		fmt.Println("3. Run `ballot start` to open the voting client")
	}
	fmt.Println()
	return nil
}
