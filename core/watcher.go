package core

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/ballot/contract"
	"github.com/axiomesh/ballot/repo"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	LogChanMaxSize = 1000

	EventKindForumCreated = "forum_created"
	EventKindVoteCast     = "vote_cast"
	EventKindVotingEnded  = "voting_ended"
)

// Event is a decoded contract event.
type Event struct {
	Kind        string
	ForumID     string
	Title       string
	Admin       common.Address
	Voter       common.Address
	Candidate   int
	BlockNumber uint64
	TxHash      common.Hash
}

type EventHandler func(Event)

// Watcher replays a contract's past events from the last checkpoint and then follows new ones,
// over a subscription when the endpoint supports it and by polling otherwise.
type Watcher struct {
	ctx    context.Context
	cancel context.CancelFunc

	Client   Client
	Logger   logrus.FieldLogger
	History  *History
	Contract *contract.VotingSystem
	Config   *repo.Config

	// ForumID restricts delivered events to one forum, empty means all
	ForumID string
	Handler EventHandler

	FromBlock *big.Int
	ToBlock   *big.Int

	LogChan chan types.Log
	LogSub  ethereum.Subscription

	// position of the last handled log
	seen      bool
	lastBlock uint64
	lastIndex uint

	wg sync.WaitGroup
}

func NewWatcher(ctx context.Context, config *repo.Config, client Client, vs *contract.VotingSystem, history *History, logger logrus.FieldLogger, forumID string, handler EventHandler) *Watcher {
	var fromBlock, toBlock *big.Int
	if config.Watch.FromBlock != 0 {
		fromBlock = new(big.Int).SetUint64(config.Watch.FromBlock)
	}
	if config.Watch.ToBlock != 0 {
		toBlock = new(big.Int).SetUint64(config.Watch.ToBlock)
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Watcher{
		ctx:       ctx,
		cancel:    cancel,
		Client:    client,
		Logger:    logger,
		History:   history,
		Contract:  vs,
		Config:    config,
		ForumID:   forumID,
		Handler:   handler,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		LogChan:   make(chan types.Log, LogChanMaxSize),
	}
}

func (w *Watcher) Start() error {
	if w.ToBlock != nil {
		// a bounded range is fully served by the history
		return w.fetchHistoryLog()
	}

	// subscribe before reading the history so that nothing mined in between is missed,
	// handleLog drops the overlap
	err := w.subscribeLog()
	switch {
	case err == nil:
		if err := w.fetchHistoryLog(); err != nil {
			w.LogSub.Unsubscribe()
			w.LogSub = nil
			return err
		}
		w.wg.Add(1)
		go w.listenEvents()
	case errors.Is(err, rpc.ErrNotificationsUnsupported):
		w.Logger.Info("endpoint has no subscriptions, polling for logs")
		if err := w.fetchHistoryLog(); err != nil {
			return err
		}
		w.wg.Add(1)
		go w.pollEvents()
	default:
		return err
	}

	return nil
}

func (w *Watcher) getNewestFromBlock() *big.Int {
	next := w.History.NextFromBlock(w.Contract.Address(), w.ForumID)
	if w.FromBlock == nil || next > w.FromBlock.Uint64() {
		if next > 0 {
			return new(big.Int).SetUint64(next)
		}
	}
	return w.FromBlock
}

func (w *Watcher) fetchHistoryLog() error {
	fromBlock := w.getNewestFromBlock()

	logs, err := w.Client.FilterLogs(w.ctx, w.Contract.EventQuery(fromBlock, w.ToBlock))
	if err != nil {
		return errors.Wrap(err, "filter history logs")
	}

	w.Logger.Debugf("fetched %d history logs from block %v", len(logs), fromBlock)

	for _, log := range logs {
		w.handleLog(log)
	}

	return nil
}

func (w *Watcher) subscribeLog() error {
	var err error
	w.LogSub, err = w.Client.SubscribeFilterLogs(w.ctx, w.Contract.EventQuery(nil, nil), w.LogChan)
	return err
}

func (w *Watcher) listenEvents() {
	defer w.wg.Done()
	w.Logger.Info("listen events")

	for {
		select {
		case <-w.ctx.Done():
			w.Logger.Info("context done")
			return
		case err, ok := <-w.LogSub.Err():
			if !ok {
				return
			}
			w.Logger.Errorf("subscription dropped: %s", err)
			if err := w.resubscribe(); err != nil {
				w.Logger.Errorf("resubscribe: %s", err)
				return
			}
		case log := <-w.LogChan:
			w.handleLog(log)
		}
	}
}

func (w *Watcher) resubscribe() error {
	if w.LogSub != nil {
		w.LogSub.Unsubscribe()
	}

	action := func(attempt uint) error {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if err := w.subscribeLog(); err != nil {
			return err
		}
		if err := w.fetchHistoryLog(); err != nil {
			w.LogSub.Unsubscribe()
			return err
		}
		return nil
	}

	return retry.Retry(action, strategy.Limit(5), backoffUntilDone(w.ctx, backoff.Fibonacci(time.Second)))
}

func (w *Watcher) pollEvents() {
	defer w.wg.Done()

	interval := w.Config.Watch.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.Logger.Info("context done")
			return
		case <-ticker.C:
			if err := w.fetchHistoryLog(); err != nil {
				w.Logger.Errorf("poll logs: %s", err)
			}
		}
	}
}

func (w *Watcher) handleLog(log types.Log) {
	if w.seen && (log.BlockNumber < w.lastBlock || (log.BlockNumber == w.lastBlock && log.Index <= w.lastIndex)) {
		// already handled, the history and the subscription overlap
		return
	}
	w.seen, w.lastBlock, w.lastIndex = true, log.BlockNumber, log.Index

	ev, err := w.Contract.ParseEvent(log)
	if err != nil {
		w.Logger.Errorf("parse log %s: %s", log.TxHash.Hex(), err)
		return
	}

	event := Event{BlockNumber: log.BlockNumber, TxHash: log.TxHash}
	switch e := ev.(type) {
	case *contract.ForumCreated:
		event.Kind, event.ForumID, event.Title, event.Admin = EventKindForumCreated, e.ForumID, e.Title, e.Admin
	case *contract.VoteCast:
		event.Kind, event.ForumID, event.Voter = EventKindVoteCast, e.ForumID, e.Voter
		event.Candidate = int(e.CandidateIndex.Int64())
	case *contract.VotingEnded:
		event.Kind, event.ForumID = EventKindVotingEnded, e.ForumID
	}

	if w.ForumID == "" || w.ForumID == event.ForumID {
		w.Handler(event)
	}

	if next := log.BlockNumber + 1; next > w.History.NextFromBlock(w.Contract.Address(), w.ForumID) {
		w.History.SetNextFromBlock(w.Contract.Address(), w.ForumID, next)
	}
}

func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()

	if w.LogSub != nil {
		w.LogSub.Unsubscribe()
	}

	return nil
}
