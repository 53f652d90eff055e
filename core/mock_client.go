package core

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/axiomesh/ballot/contract"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

var _ Client = (*MockClient)(nil)

// MockClient is an in-memory chain that executes VotingSystem calls against every address
// holding code. Reverts surface from EstimateGas and CallContract like a real node.
type MockClient struct {
	mu sync.Mutex

	// NoSubscriptions makes SubscribeFilterLogs behave like an http endpoint
	NoSubscriptions bool
	// OmitLogs mines transactions without emitting their event logs
	OmitLogs bool

	chainID   *big.Int
	block     uint64
	code      map[common.Address][]byte
	nonces    map[common.Address]uint64
	balances  map[common.Address]*big.Int
	contracts map[common.Address]*mockVoting
	receipts  map[common.Hash]*types.Receipt
	logs      []types.Log
	subs      []*MockSubscription
	closed    bool
}

type mockForum struct {
	title      string
	admin      common.Address
	active     bool
	candidates []string
	votes      []*big.Int
	voters     []common.Address
	choices    []*big.Int
	reasons    []string
	voted      map[common.Address]bool
}

type mockVoting struct {
	seq    uint64
	forums map[string]*mockForum
}

type revertError string

func (e revertError) Error() string {
	return "execution reverted: " + string(e)
}

func NewMockClient(chainID uint64) *MockClient {
	return &MockClient{
		chainID:   new(big.Int).SetUint64(chainID),
		code:      make(map[common.Address][]byte),
		nonces:    make(map[common.Address]uint64),
		balances:  make(map[common.Address]*big.Int),
		contracts: make(map[common.Address]*mockVoting),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
}

// InstallContract places a fresh VotingSystem at addr.
func (mc *MockClient) InstallContract(addr common.Address) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.code[addr] = []byte{0x60, 0x80}
	mc.contracts[addr] = &mockVoting{forums: make(map[string]*mockForum)}
}

func (mc *MockClient) Fund(addr common.Address, wei *big.Int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.balances[addr] = new(big.Int).Set(wei)
}

func (mc *MockClient) Closed() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.closed
}

func (mc *MockClient) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(mc.chainID), nil
}

func (mc *MockClient) BlockNumber(ctx context.Context) (uint64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.block, nil
}

func (mc *MockClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if b, ok := mc.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (mc *MockClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.code[account], nil
}

func (mc *MockClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return mc.CodeAt(ctx, account, nil)
}

func (mc *MockClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.nonces[account], nil
}

func (mc *MockClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return &types.Header{Number: new(big.Int).SetUint64(mc.block)}, nil
}

func (mc *MockClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (mc *MockClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (mc *MockClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if call.To == nil {
		return 3_000_000, nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, _, err := mc.execute(call.From, *call.To, call.Data, false); err != nil {
		return 0, err
	}
	return 200_000, nil
}

func (mc *MockClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if call.To == nil {
		return nil, fmt.Errorf("call without destination")
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.contracts[*call.To]; !ok {
		return nil, nil
	}
	out, _, err := mc.execute(call.From, *call.To, call.Data, false)
	return out, err
}

func (mc *MockClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(mc.chainID), tx)
	if err != nil {
		return err
	}

	mc.mu.Lock()

	if tx.Nonce() != mc.nonces[from] {
		mc.mu.Unlock()
		return fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), mc.nonces[from])
	}
	mc.nonces[from]++
	mc.block++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: new(big.Int).SetUint64(mc.block),
	}

	if tx.To() == nil {
		addr := crypto.CreateAddress(from, tx.Nonce())
		mc.code[addr] = tx.Data()
		mc.contracts[addr] = &mockVoting{forums: make(map[string]*mockForum)}
		receipt.ContractAddress = addr
	} else if _, logs, err := mc.execute(from, *tx.To(), tx.Data(), true); err != nil {
		receipt.Status = types.ReceiptStatusFailed
	} else if !mc.OmitLogs {
		for i, l := range logs {
			l.BlockNumber = mc.block
			l.TxHash = tx.Hash()
			l.Index = uint(len(mc.logs) + i)
		}
		receipt.Logs = logs
	}
	mc.receipts[tx.Hash()] = receipt

	var deliveries []func()
	for _, l := range receipt.Logs {
		mc.logs = append(mc.logs, *l)
		for _, sub := range mc.subs {
			if sub.matches(*l) {
				s, entry := sub, *l
				deliveries = append(deliveries, func() { s.deliver(entry) })
			}
		}
	}
	mc.mu.Unlock()

	for _, d := range deliveries {
		d()
	}
	return nil
}

func (mc *MockClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	receipt, ok := mc.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (mc *MockClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var logs []types.Log
	for _, l := range mc.logs {
		if matchLog(q, l) {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (mc *MockClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if mc.NoSubscriptions {
		return nil, rpc.ErrNotificationsUnsupported
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	// the range only applies to history, a subscription sees every new block
	q.FromBlock, q.ToBlock = nil, nil
	sub := &MockSubscription{query: q, ch: ch, errCh: make(chan error, 1), done: make(chan struct{})}
	mc.subs = append(mc.subs, sub)
	return sub, nil
}

func (mc *MockClient) Close() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.closed = true
}

func (mc *MockClient) execute(from, to common.Address, data []byte, commit bool) ([]byte, []*types.Log, error) {
	state, ok := mc.contracts[to]
	if !ok {
		return nil, nil, nil
	}
	if len(data) < 4 {
		return nil, nil, revertError("no method selector")
	}

	method, err := contract.VotingSystemABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, revertError("unknown method")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, revertError(err.Error())
	}

	forum := func() (*mockForum, error) {
		f, ok := state.forums[args[0].(string)]
		if !ok {
			return nil, revertError("Forum not found")
		}
		return f, nil
	}

	switch method.Name {
	case contract.MethodCreateVotingForum:
		title, names := args[0].(string), args[1].([]string)
		if len(names) < 2 {
			return nil, nil, revertError("At least 2 candidates required")
		}
		id := mockForumID(from, state.seq)
		if !commit {
			out, err := method.Outputs.Pack(id)
			return out, nil, err
		}
		state.seq++
		votes := make([]*big.Int, len(names))
		for i := range votes {
			votes[i] = big.NewInt(0)
		}
		state.forums[id] = &mockForum{
			title:      title,
			admin:      from,
			active:     true,
			candidates: names,
			votes:      votes,
			voted:      make(map[common.Address]bool),
		}
		l, err := mockEventLog(to, contract.EventForumCreated, []common.Hash{common.BytesToHash(from.Bytes())}, id, title)
		if err != nil {
			return nil, nil, err
		}
		out, err := method.Outputs.Pack(id)
		return out, []*types.Log{l}, err

	case contract.MethodVote:
		f, err := forum()
		if err != nil {
			return nil, nil, err
		}
		idx, reason := args[1].(*big.Int), args[2].(string)
		switch {
		case !f.active:
			return nil, nil, revertError("Voting has ended")
		case f.voted[from]:
			return nil, nil, revertError("Already voted")
		case !idx.IsUint64() || idx.Uint64() >= uint64(len(f.candidates)):
			return nil, nil, revertError("Invalid candidate")
		}
		if !commit {
			return nil, nil, nil
		}
		f.voted[from] = true
		f.votes[idx.Uint64()] = new(big.Int).Add(f.votes[idx.Uint64()], big.NewInt(1))
		f.voters = append(f.voters, from)
		f.choices = append(f.choices, new(big.Int).Set(idx))
		f.reasons = append(f.reasons, reason)
		l, err := mockEventLog(to, contract.EventVoteCast, []common.Hash{common.BytesToHash(from.Bytes())}, args[0].(string), idx)
		if err != nil {
			return nil, nil, err
		}
		return nil, []*types.Log{l}, nil

	case contract.MethodEndVoting:
		f, err := forum()
		if err != nil {
			return nil, nil, err
		}
		if f.admin != from {
			return nil, nil, revertError("Only admin can end voting")
		}
		if !f.active {
			return nil, nil, revertError("Voting already ended")
		}
		if !commit {
			return nil, nil, nil
		}
		f.active = false
		l, err := mockEventLog(to, contract.EventVotingEnded, nil, args[0].(string))
		if err != nil {
			return nil, nil, err
		}
		return nil, []*types.Log{l}, nil

	case contract.MethodGetForumDetails:
		f, err := forum()
		if err != nil {
			return nil, nil, err
		}
		out, err := method.Outputs.Pack(f.title, f.admin, f.active, big.NewInt(int64(len(f.voters))))
		return out, nil, err

	case contract.MethodGetCandidates:
		f, err := forum()
		if err != nil {
			return nil, nil, err
		}
		out, err := method.Outputs.Pack(f.candidates, f.votes)
		return out, nil, err

	case contract.MethodGetAllVotersWithReasons:
		f, err := forum()
		if err != nil {
			return nil, nil, err
		}
		if f.admin != from {
			return nil, nil, revertError("Only admin can view reasons")
		}
		voters, choices, reasons := f.voters, f.choices, f.reasons
		if voters == nil {
			voters, choices, reasons = []common.Address{}, []*big.Int{}, []string{}
		}
		out, err := method.Outputs.Pack(voters, choices, reasons)
		return out, nil, err

	case contract.MethodHasVoted:
		voted := false
		if f, ok := state.forums[args[0].(string)]; ok {
			voted = f.voted[args[1].(common.Address)]
		}
		out, err := method.Outputs.Pack(voted)
		return out, nil, err
	}

	return nil, nil, revertError("unsupported method " + method.Name)
}

func mockForumID(from common.Address, seq uint64) string {
	h := crypto.Keccak256(from.Bytes(), new(big.Int).SetUint64(seq).Bytes())
	return common.Bytes2Hex(h[:6])
}

func mockEventLog(addr common.Address, name string, indexed []common.Hash, args ...any) (*types.Log, error) {
	event := contract.VotingSystemABI.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(args...)
	if err != nil {
		return nil, err
	}
	return &types.Log{
		Address: addr,
		Topics:  append([]common.Hash{event.ID}, indexed...),
		Data:    data,
	}, nil
}

func matchLog(q ethereum.FilterQuery, l types.Log) bool {
	if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type MockSubscription struct {
	query ethereum.FilterQuery
	ch    chan<- types.Log
	errCh chan error
	done  chan struct{}
	once  sync.Once
}

func (ms *MockSubscription) matches(l types.Log) bool {
	select {
	case <-ms.done:
		return false
	default:
		return matchLog(ms.query, l)
	}
}

func (ms *MockSubscription) deliver(l types.Log) {
	select {
	case ms.ch <- l:
	case <-ms.done:
	}
}

// Drop ends the subscription with err, the way a node does when the connection breaks.
func (ms *MockSubscription) Drop(err error) {
	ms.once.Do(func() {
		close(ms.done)
		ms.errCh <- err
		close(ms.errCh)
	})
}

func (ms *MockSubscription) Unsubscribe() {
	ms.once.Do(func() {
		close(ms.done)
		close(ms.errCh)
	})
}

func (ms *MockSubscription) Err() <-chan error {
	return ms.errCh
}
