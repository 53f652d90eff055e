package main

import (
	"fmt"

	"github.com/axiomesh/ballot/repo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "The config manage commands",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate default config",
			Action: generate,
		},
		{
			Name:   "show",
			Usage:  "Show the complete config processed by the environment variable",
			Action: show,
		},
		{
			Name:   "check",
			Usage:  "Check that the config file parses and its network and contract settings are usable",
			Action: check,
		},
		{
			Name:      "set-contract",
			Usage:     "Point the client at a deployed VotingSystem contract",
			ArgsUsage: "<address>",
			Action:    setContract,
		},
		{
			Name:   "rewrite-with-env",
			Usage:  "Rewrite config with env",
			Action: rewriteWithEnv,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}

	if _, err := repo.Init(p); err != nil {
		if errors.Is(err, repo.ErrRepoExists) {
			fmt.Println("ballot repo already exists")
			return nil
		}
		return err
	}

	fmt.Printf("initializing ballot at %s\n", p)
	return nil
}

// loadExisting loads the repo without creating a default one.
func loadExisting(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !repo.Exist(p) {
		return nil, errors.Errorf("ballot repo not exist at %s, run `ballot config generate`", p)
	}
	return repo.Load(p)
}

func show(ctx *cli.Context) error {
	r, err := loadExisting(ctx)
	if err != nil {
		return err
	}
	str, err := repo.MarshalConfig(r.Config)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func check(ctx *cli.Context) error {
	r, err := loadExisting(ctx)
	if err != nil {
		return errors.Wrap(err, "config file format error")
	}
	if err := r.Config.Validate(); err != nil {
		return err
	}

	fmt.Printf("%s is valid\n", r.ConfigPath())
	fmt.Printf("network:  %s (chain %s)\n", r.Config.Network.Name, r.Config.Network.HexChainID())
	if r.Config.ContractAddress == "" {
		fmt.Println("contract: not set, run `ballot deploy --save` or `ballot config set-contract`")
	} else {
		fmt.Println("contract:", r.Config.ContractAddress)
	}
	return nil
}

func rewriteWithEnv(ctx *cli.Context) error {
	r, err := loadExisting(ctx)
	if err != nil {
		return err
	}
	return r.Flush()
}

func setContract(ctx *cli.Context) error {
	address := ctx.Args().First()
	if !common.IsHexAddress(address) {
		return errors.Wrapf(repo.ErrInvalidConfig, "contract address %q", address)
	}

	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	r.Config.ContractAddress = common.HexToAddress(address).Hex()
	if err := r.Flush(); err != nil {
		return err
	}
	fmt.Printf("contract address set to %s\n", r.Config.ContractAddress)
	return nil
}

func getRootPath(ctx *cli.Context) (string, error) {
	return repo.LoadRepoRootFromEnv(ctx.String("repo"))
}
