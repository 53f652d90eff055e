package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const (
	MethodCreateVotingForum       = "createVotingForum"
	MethodVote                    = "vote"
	MethodEndVoting               = "endVoting"
	MethodGetForumDetails         = "getForumDetails"
	MethodGetCandidates           = "getCandidates"
	MethodGetAllVotersWithReasons = "getAllVotersWithReasons"
	MethodHasVoted                = "hasVoted"

	EventForumCreated = "ForumCreated"
	EventVoteCast     = "VoteCast"
	EventVotingEnded  = "VotingEnded"
)

var ErrEventNotFound = errors.New("event not found in receipt")

type ForumDetails struct {
	Title       string
	Admin       common.Address
	IsActive    bool
	TotalVoters *big.Int
}

type Candidates struct {
	Names      []string
	VoteCounts []*big.Int
}

type VoterReasons struct {
	Voters  []common.Address
	Choices []*big.Int
	Reasons []string
}

type ForumCreated struct {
	ForumID string `abi:"forumId"`
	Title   string
	Admin   common.Address
	Raw     types.Log
}

type VoteCast struct {
	ForumID        string `abi:"forumId"`
	Voter          common.Address
	CandidateIndex *big.Int
	Raw            types.Log
}

type VotingEnded struct {
	ForumID string `abi:"forumId"`
	Raw     types.Log
}

// VotingSystem is a binding to a deployed VotingSystem contract.
type VotingSystem struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

func NewVotingSystem(address common.Address, backend bind.ContractBackend) *VotingSystem {
	return &VotingSystem{
		address:  address,
		abi:      VotingSystemABI,
		contract: bind.NewBoundContract(address, VotingSystemABI, backend, backend, backend),
	}
}

// Deploy sends the creation transaction for artifact. The returned binding is usable once the
// transaction is mined.
func Deploy(opts *bind.TransactOpts, backend bind.ContractBackend, artifact *Artifact) (common.Address, *types.Transaction, *VotingSystem, error) {
	code := artifact.Code()
	if len(code) == 0 {
		return common.Address{}, nil, nil, ErrEmptyBytecode
	}
	parsed, err := artifact.ABI()
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	address, tx, bound, err := bind.DeployContract(opts, parsed, code, backend)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	return address, tx, &VotingSystem{address: address, abi: parsed, contract: bound}, nil
}

func (v *VotingSystem) Address() common.Address {
	return v.address
}

func (v *VotingSystem) CreateVotingForum(opts *bind.TransactOpts, title string, candidateNames []string) (*types.Transaction, error) {
	return v.contract.Transact(opts, MethodCreateVotingForum, title, candidateNames)
}

func (v *VotingSystem) Vote(opts *bind.TransactOpts, forumID string, candidateIndex *big.Int, reason string) (*types.Transaction, error) {
	return v.contract.Transact(opts, MethodVote, forumID, candidateIndex, reason)
}

func (v *VotingSystem) EndVoting(opts *bind.TransactOpts, forumID string) (*types.Transaction, error) {
	return v.contract.Transact(opts, MethodEndVoting, forumID)
}

func (v *VotingSystem) GetForumDetails(opts *bind.CallOpts, forumID string) (ForumDetails, error) {
	var out []interface{}
	err := v.contract.Call(opts, &out, MethodGetForumDetails, forumID)

	details := ForumDetails{}
	if err != nil {
		return details, err
	}

	details.Title = *abi.ConvertType(out[0], new(string)).(*string)
	details.Admin = *abi.ConvertType(out[1], new(common.Address)).(*common.Address)
	details.IsActive = *abi.ConvertType(out[2], new(bool)).(*bool)
	details.TotalVoters = *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)

	return details, nil
}

func (v *VotingSystem) GetCandidates(opts *bind.CallOpts, forumID string) (Candidates, error) {
	var out []interface{}
	err := v.contract.Call(opts, &out, MethodGetCandidates, forumID)

	candidates := Candidates{}
	if err != nil {
		return candidates, err
	}

	candidates.Names = *abi.ConvertType(out[0], new([]string)).(*[]string)
	candidates.VoteCounts = *abi.ConvertType(out[1], new([]*big.Int)).(*[]*big.Int)

	return candidates, nil
}

func (v *VotingSystem) GetAllVotersWithReasons(opts *bind.CallOpts, forumID string) (VoterReasons, error) {
	var out []interface{}
	err := v.contract.Call(opts, &out, MethodGetAllVotersWithReasons, forumID)

	reasons := VoterReasons{}
	if err != nil {
		return reasons, err
	}

	reasons.Voters = *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	reasons.Choices = *abi.ConvertType(out[1], new([]*big.Int)).(*[]*big.Int)
	reasons.Reasons = *abi.ConvertType(out[2], new([]string)).(*[]string)

	return reasons, nil
}

func (v *VotingSystem) HasVoted(opts *bind.CallOpts, forumID string, voter common.Address) (bool, error) {
	var out []interface{}
	err := v.contract.Call(opts, &out, MethodHasVoted, forumID, voter)
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (v *VotingSystem) ParseForumCreated(log types.Log) (*ForumCreated, error) {
	event := new(ForumCreated)
	if err := v.contract.UnpackLog(event, EventForumCreated, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

func (v *VotingSystem) ParseVoteCast(log types.Log) (*VoteCast, error) {
	event := new(VoteCast)
	if err := v.contract.UnpackLog(event, EventVoteCast, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

func (v *VotingSystem) ParseVotingEnded(log types.Log) (*VotingEnded, error) {
	event := new(VotingEnded)
	if err := v.contract.UnpackLog(event, EventVotingEnded, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// ParseEvent decodes any of the contract's events, dispatching on the signature topic.
func (v *VotingSystem) ParseEvent(log types.Log) (any, error) {
	if len(log.Topics) == 0 {
		return nil, errors.New("log has no topics")
	}

	switch log.Topics[0] {
	case v.abi.Events[EventForumCreated].ID:
		return v.ParseForumCreated(log)
	case v.abi.Events[EventVoteCast].ID:
		return v.ParseVoteCast(log)
	case v.abi.Events[EventVotingEnded].ID:
		return v.ParseVotingEnded(log)
	default:
		return nil, errors.Errorf("unknown event topic %s", log.Topics[0].Hex())
	}
}

// FindForumCreated returns the first ForumCreated event in the receipt, skipping logs that do not parse.
func (v *VotingSystem) FindForumCreated(receipt *types.Receipt) (*ForumCreated, error) {
	id := v.abi.Events[EventForumCreated].ID
	for _, log := range receipt.Logs {
		if log == nil || log.Address != v.address || len(log.Topics) == 0 || log.Topics[0] != id {
			continue
		}
		event, err := v.ParseForumCreated(*log)
		if err != nil {
			continue
		}
		return event, nil
	}

	return nil, ErrEventNotFound
}

// EventQuery matches every event the contract emits in [fromBlock, toBlock]; nil bounds are open.
func (v *VotingSystem) EventQuery(fromBlock, toBlock *big.Int) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{v.address},
		Topics: [][]common.Hash{{
			v.abi.Events[EventForumCreated].ID,
			v.abi.Events[EventVoteCast].ID,
			v.abi.Events[EventVotingEnded].ID,
		}},
	}
}
