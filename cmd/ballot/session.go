package main

import (
	"fmt"
	"path/filepath"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/axiomesh/ballot/core"
	"github.com/axiomesh/ballot/repo"
	"github.com/axiomesh/ballot/wallet"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func loadRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(filepath.Join(r.Config.RepoRoot, repo.LogsDirName)),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("log initialize: %w", err)
	}

	return r, nil
}

// loadWallet prefers an explicit private key, then the configured keystore. A missing keystore
// is not an error, the session reports ErrNoWallet when it needs one.
func loadWallet(ctx *cli.Context, config *repo.Config) (*wallet.Wallet, error) {
	if key := ctx.String("private-key"); key != "" {
		return wallet.FromHex(key)
	}

	p := repo.ExpandPath(config.RepoRoot, config.Wallet.Keystore)
	if !repo.Exist(p) {
		return nil, nil
	}
	return wallet.FromKeystore(p, config.Wallet.Address, ctx.String("password"))
}

type cliSession struct {
	*core.Session
	repo   *repo.Repo
	wallet *wallet.Wallet
	db     storage.Storage
}

func (s *cliSession) Close() {
	s.Session.Close()
	if err := s.db.Close(); err != nil {
		s.Logger.Warnf("close storage: %s", err)
	}
}

// newSession builds a session over the repo storage. The contract address falls back to the
// deployment info file. connect attaches the wallet right away.
func newSession(ctx *cli.Context, connect bool) (*cliSession, error) {
	r, err := loadRepo(ctx)
	if err != nil {
		return nil, err
	}

	if r.Config.ContractAddress == "" && repo.Exist(r.DeploymentPath()) {
		info, err := repo.ReadDeploymentInfo(r.DeploymentPath())
		if err != nil {
			return nil, err
		}
		r.Config.ContractAddress = info.ContractAddress
	}

	w, err := loadWallet(ctx, r.Config)
	if err != nil {
		return nil, err
	}

	db, err := leveldb.New(r.StoragePath())
	if err != nil {
		return nil, errors.Wrapf(err, "open storage %s", r.StoragePath())
	}

	var signer core.Signer
	if w != nil {
		signer = w
	}
	s := &cliSession{Session: core.NewSession(r.Config, signer, nil, db), repo: r, wallet: w, db: db}

	if connect {
		account, err := s.Connect(ctx.Context)
		if err != nil {
			s.Close()
			return nil, err
		}
		fmt.Printf("Connected %s on %s (chain %s)\n", account.Hex(), r.Config.Network.Name, r.Config.Network.HexChainID())
	}
	return s, nil
}
