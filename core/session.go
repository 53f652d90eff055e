package core

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/ballot/contract"
	"github.com/axiomesh/ballot/repo"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Session sequences wallet connection, network negotiation and the forum actions of one account.
// Every action is a single request/await round trip; failures are returned to the caller as is.
type Session struct {
	Config   *repo.Config
	Logger   *logrus.Logger
	Networks *NetworkRegistry
	History  *History

	signer Signer
	dial   Dialer

	client   Client
	contract *contract.VotingSystem
	chainID  *big.Int
	account  common.Address
}

// NewSession prepares a disconnected session. signer may be nil, Connect then fails with ErrNoWallet.
func NewSession(config *repo.Config, signer Signer, dial Dialer, db storage.Storage) *Session {
	logger := log.New()
	logger.SetLevel(log.ParseLevel(config.Log.Level))

	if dial == nil {
		dial = DialEthClient
	}

	return &Session{
		Config:   config,
		Logger:   logger,
		Networks: NewNetworkRegistry(db),
		History:  NewHistory(db),
		signer:   signer,
		dial:     dial,
	}
}

func (s *Session) action(name string) *logrus.Entry {
	return s.Logger.WithFields(logrus.Fields{
		"action":    name,
		"action_id": uuid.NewString(),
	})
}

func (s *Session) Connected() bool {
	return s.client != nil && s.contract != nil
}

func (s *Session) Account() common.Address {
	return s.account
}

func (s *Session) ChainID() *big.Int {
	return s.chainID
}

// Client returns the connected client, nil before Connect.
func (s *Session) Client() Client {
	return s.client
}

// Contract returns the bound contract, nil before Connect.
func (s *Session) Contract() *contract.VotingSystem {
	return s.contract
}

// Connect attaches the signer to the configured network and binds the voting contract.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	if s.signer == nil {
		return common.Address{}, ErrNoWallet
	}
	if s.Config.ContractAddress == "" || !common.IsHexAddress(s.Config.ContractAddress) {
		return common.Address{}, errors.Wrapf(ErrContractAddressUnset, "got %q", s.Config.ContractAddress)
	}

	account, err := s.ConnectNetwork(ctx)
	if err != nil {
		return common.Address{}, err
	}
	s.contract = contract.NewVotingSystem(common.HexToAddress(s.Config.ContractAddress), s.client)

	s.action("connect").WithFields(logrus.Fields{
		"account":  account.Hex(),
		"chain_id": s.chainID.String(),
		"contract": s.contract.Address().Hex(),
	}).Info("wallet connected")

	return account, nil
}

// ConnectNetwork attaches the signer to the configured network, switching chains (and registering
// the network first when the wallet does not know it) until the provider serves the configured
// chain id. No contract is bound; deploy uses it before a contract exists.
func (s *Session) ConnectNetwork(ctx context.Context) (common.Address, error) {
	entry := s.action("connect_network")

	if s.signer == nil {
		return common.Address{}, ErrNoWallet
	}

	client, chainID, err := s.dialWithRetry(ctx, s.Config.DialUrl)
	if err != nil {
		entry.Errorf("dial %s: %s", s.Config.DialUrl, err)
		return common.Address{}, errors.Wrapf(err, "connect to %s", s.Config.DialUrl)
	}

	target := s.Config.Network
	if chainID.Uint64() != target.ChainID {
		entry.Infof("provider is on chain %s, switching to %s (%s)", chainID, target.HexChainID(), target.Name)
		client.Close()

		client, err = s.switchChain(ctx, target.ChainID)
		if errors.Is(err, ErrUnrecognizedChain) {
			entry.Infof("chain %s unknown to the wallet, adding %s", target.HexChainID(), target.Name)
			if err := s.addChain(target); err != nil {
				return common.Address{}, err
			}
			client, err = s.switchChain(ctx, target.ChainID)
		}
		if err != nil {
			entry.Errorf("switch chain: %s", err)
			return common.Address{}, err
		}
		chainID = new(big.Int).SetUint64(target.ChainID)
	}

	if s.client != nil {
		s.client.Close()
	}
	s.client = client
	s.contract = nil
	s.chainID = chainID
	s.account = s.signer.Address()

	entry.WithField("chain_id", chainID.String()).Debug("network connected")
	return s.account, nil
}

func (s *Session) dialWithRetry(ctx context.Context, url string) (Client, *big.Int, error) {
	var (
		client  Client
		chainID *big.Int
	)

	attempts := s.Config.Tx.DialRetries
	if attempts == 0 {
		attempts = 1
	}
	wait := s.Config.Tx.DialBackoff
	if wait <= 0 {
		wait = time.Second
	}

	action := func(attempt uint) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := s.dial(ctx, url)
		if err != nil {
			return err
		}
		id, err := c.ChainID(ctx)
		if err != nil {
			c.Close()
			return err
		}
		client, chainID = c, id
		return nil
	}

	err := retry.Retry(action, strategy.Limit(attempts), backoffUntilDone(ctx, backoff.Fibonacci(wait)))
	if ctxErr := ctx.Err(); ctxErr != nil {
		if client != nil {
			client.Close()
		}
		return nil, nil, ctxErr
	}
	if err != nil {
		return nil, nil, err
	}
	return client, chainID, nil
}

// switchChain moves to a chain the registry knows, trying its rpc urls in order.
func (s *Session) switchChain(ctx context.Context, chainID uint64) (Client, error) {
	network, ok := s.Networks.Get(chainID)
	if !ok {
		return nil, errors.Wrapf(ErrUnrecognizedChain, "code %d, chain 0x%x", UnrecognizedChainCode, chainID)
	}

	var lastErr error
	for _, url := range network.RpcUrls {
		client, id, err := s.dialWithRetry(ctx, url)
		if err != nil {
			lastErr = err
			s.Logger.Warnf("switch chain: dial %s: %s", url, err)
			continue
		}
		if id.Uint64() != chainID {
			client.Close()
			lastErr = errors.Errorf("%s serves chain %s", url, id)
			s.Logger.Warnf("switch chain: %s", lastErr)
			continue
		}
		return client, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no rpc url")
	}
	return nil, errors.Wrapf(ErrSwitchChainFailed, "chain 0x%x: %s", chainID, lastErr)
}

func (s *Session) addChain(network repo.Network) error {
	if err := s.Networks.Add(network); err != nil {
		return errors.Wrap(err, "add chain")
	}
	return nil
}

func (s *Session) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: s.account}
}

// sendAndWait signs and sends one transaction and blocks until it is mined.
func (s *Session) sendAndWait(ctx context.Context, entry *logrus.Entry, send func(opts *bind.TransactOpts) (*types.Transaction, error)) (*types.Receipt, error) {
	opts, err := s.signer.Transactor(ctx, s.chainID)
	if err != nil {
		return nil, err
	}

	tx, err := send(opts)
	if err != nil {
		return nil, err
	}
	entry = entry.WithField("tx", tx.Hash().Hex())
	entry.Info("transaction sent")

	waitCtx := ctx
	if s.Config.Tx.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.Config.Tx.ReceiptTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, s.client, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s", tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, errors.Wrapf(ErrTxReverted, "tx %s", tx.Hash().Hex())
	}

	entry.WithField("block", receipt.BlockNumber).Info("transaction mined")
	return receipt, nil
}

// CreateForum opens a new forum administered by the connected account. Blank candidate names are dropped.
func (s *Session) CreateForum(ctx context.Context, title string, candidates []string) (*CreatedForum, error) {
	entry := s.action("create_forum")

	if !s.Connected() {
		return nil, ErrNotConnected
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	valid := ValidCandidates(candidates)
	if len(valid) < 2 {
		return nil, ErrTooFewCandidates
	}

	receipt, err := s.sendAndWait(ctx, entry, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.contract.CreateVotingForum(opts, title, valid)
	})
	if err != nil {
		entry.Errorf("create forum: %s", err)
		return nil, err
	}

	event, err := s.contract.FindForumCreated(receipt)
	if err != nil {
		return nil, errors.Wrapf(ErrForumEventMissing, "tx %s", receipt.TxHash.Hex())
	}

	s.History.SetLastCreated(event.ForumID)
	entry.WithField("forum", event.ForumID).Info("forum created")

	return &CreatedForum{
		ID:          event.ForumID,
		Title:       event.Title,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// ValidCandidates trims names and drops the empty ones.
func ValidCandidates(candidates []string) []string {
	valid := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			valid = append(valid, c)
		}
	}
	return valid
}

// LoadForum reads a forum. As admin (and only when the account is the forum admin) the voters'
// choices and reasons are included; as voter the account's voting status is included.
func (s *Session) LoadForum(ctx context.Context, id string, asAdmin bool) (*Forum, error) {
	entry := s.action("load_forum").WithField("forum", id)

	if !s.Connected() {
		return nil, ErrNotConnected
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyForumID
	}

	opts := s.callOpts(ctx)
	details, err := s.contract.GetForumDetails(opts, id)
	if err != nil {
		entry.Errorf("get forum details: %s", err)
		return nil, errors.Wrapf(ErrForumNotFound, "%s: %s", id, err)
	}
	if details.Admin == (common.Address{}) {
		return nil, errors.Wrap(ErrForumNotFound, id)
	}

	candidates, err := s.contract.GetCandidates(opts, id)
	if err != nil {
		entry.Errorf("get candidates: %s", err)
		return nil, errors.Wrapf(ErrForumNotFound, "%s: %s", id, err)
	}

	forum := &Forum{
		ID:          id,
		Title:       details.Title,
		Admin:       details.Admin,
		IsActive:    details.IsActive,
		TotalVoters: details.TotalVoters.Uint64(),
		Candidates:  make([]Candidate, len(candidates.Names)),
	}
	for i, name := range candidates.Names {
		forum.Candidates[i] = Candidate{Name: name}
		if i < len(candidates.VoteCounts) {
			forum.Candidates[i].Votes = candidates.VoteCounts[i].Uint64()
		}
	}

	if asAdmin && details.Admin == s.account {
		reasons, err := s.contract.GetAllVotersWithReasons(opts, id)
		if err != nil {
			entry.Warnf("not admin or no voters yet: %s", err)
		} else {
			for i, voter := range reasons.Voters {
				record := VoterRecord{Address: voter}
				if i < len(reasons.Choices) {
					record.Choice = int(reasons.Choices[i].Int64())
				}
				if i < len(reasons.Reasons) {
					record.Reason = reasons.Reasons[i]
				}
				forum.Voters = append(forum.Voters, record)
			}
		}
	}

	if !asAdmin {
		voted, err := s.contract.HasVoted(opts, id, s.account)
		if err != nil {
			entry.Errorf("has voted: %s", err)
			return nil, errors.Wrapf(ErrForumNotFound, "%s: %s", id, err)
		}
		forum.HasVoted = voted
	}

	entry.Debugf("forum loaded: %+v", forum)
	return forum, nil
}

// SubmitVote casts the account's vote for the candidate at index and reloads the forum as voter.
// The index is checked against the forum's candidates before anything is sent.
func (s *Session) SubmitVote(ctx context.Context, id string, candidate int, reason string) (*Forum, error) {
	entry := s.action("vote").WithField("forum", id)

	if !s.Connected() {
		return nil, ErrNotConnected
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyForumID
	}
	if candidate < 0 {
		return nil, ErrNoCandidateSelected
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	candidates, err := s.contract.GetCandidates(s.callOpts(ctx), id)
	if err != nil {
		entry.Errorf("get candidates: %s", err)
		return nil, errors.Wrapf(ErrForumNotFound, "%s: %s", id, err)
	}
	if candidate >= len(candidates.Names) {
		return nil, errors.Wrapf(ErrUnknownCandidate, "index %d out of 0..%d", candidate, len(candidates.Names)-1)
	}

	_, err = s.sendAndWait(ctx, entry, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.contract.Vote(opts, id, big.NewInt(int64(candidate)), reason)
	})
	if err != nil {
		entry.Errorf("vote: %s", err)
		return nil, err
	}

	s.History.SetLastVoted(id)
	entry.WithField("candidate", candidate).Info("vote recorded")

	return s.LoadForum(ctx, id, false)
}

// EndVoting closes the forum; the contract only allows its admin to do so.
func (s *Session) EndVoting(ctx context.Context, id string) (*Forum, error) {
	entry := s.action("end_voting").WithField("forum", id)

	if !s.Connected() {
		return nil, ErrNotConnected
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyForumID
	}

	_, err := s.sendAndWait(ctx, entry, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.contract.EndVoting(opts, id)
	})
	if err != nil {
		entry.Errorf("end voting: %s", err)
		return nil, err
	}

	entry.Info("voting ended")
	return s.LoadForum(ctx, id, true)
}

// Balance returns the connected account's balance in wei.
func (s *Session) Balance(ctx context.Context) (*big.Int, error) {
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client.BalanceAt(ctx, s.account, nil)
}

func (s *Session) Close() {
	if s.client != nil {
		s.client.Close()
		s.client = nil
		s.contract = nil
	}
}

// IsRevert reports whether err carries an execution revert.
func IsRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}
