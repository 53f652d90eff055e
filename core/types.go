package core

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrNoWallet             = errors.New("no wallet configured")
	ErrNotConnected         = errors.New("wallet is not connected")
	ErrContractAddressUnset = errors.New("contract address is not configured")
	ErrUnrecognizedChain    = errors.New("unrecognized chain")
	ErrSwitchChainFailed    = errors.New("switch chain failed")
	ErrInvalidNetwork       = errors.New("invalid network")
	ErrEmptyTitle           = errors.New("forum title is empty")
	ErrTooFewCandidates     = errors.New("at least 2 candidates are required")
	ErrForumEventMissing    = errors.New("ForumCreated event not found in receipt")
	ErrEmptyForumID         = errors.New("forum code is empty")
	ErrForumNotFound        = errors.New("forum not found")
	ErrNoCandidateSelected  = errors.New("no candidate selected")
	ErrUnknownCandidate     = errors.New("unknown candidate")
	ErrEmptyReason          = errors.New("vote reason is empty")
	ErrVotingClosed         = errors.New("voting has ended")
	ErrAlreadyVoted         = errors.New("account has already voted")
	ErrTxReverted           = errors.New("transaction reverted")
	ErrChainMismatch        = errors.New("provider is on another chain")
)

// UnrecognizedChainCode is the wallet error code for a chain the provider has not been told about.
const UnrecognizedChainCode = 4902

type Candidate struct {
	Name  string
	Votes uint64
}

type VoterRecord struct {
	Address common.Address
	Choice  int
	Reason  string
}

type Forum struct {
	ID          string
	Title       string
	Admin       common.Address
	IsActive    bool
	TotalVoters uint64
	Candidates  []Candidate

	// Voters is only filled for the forum admin
	Voters []VoterRecord

	// HasVoted is only filled when loading as voter
	HasVoted bool
}

// Percent is the share of voters that chose candidate i, 0 while nobody voted.
func (f *Forum) Percent(i int) float64 {
	if f.TotalVoters == 0 || i < 0 || i >= len(f.Candidates) {
		return 0
	}
	return float64(f.Candidates[i].Votes) / float64(f.TotalVoters) * 100
}

// Winner returns the candidate with the most votes; ties go to the lowest index.
func (f *Forum) Winner() (Candidate, bool) {
	if len(f.Candidates) == 0 {
		return Candidate{}, false
	}

	winner := f.Candidates[0]
	for _, c := range f.Candidates[1:] {
		if c.Votes > winner.Votes {
			winner = c
		}
	}
	return winner, true
}

// Votable returns why the loading account cannot vote in f, nil when it can.
func (f *Forum) Votable() error {
	switch {
	case !f.IsActive:
		return errors.Wrap(ErrVotingClosed, f.ID)
	case f.HasVoted:
		return errors.Wrap(ErrAlreadyVoted, f.ID)
	}
	return nil
}

// CandidateName returns the name of the candidate at index i, empty when out of range.
func (f *Forum) CandidateName(i int) string {
	if i < 0 || i >= len(f.Candidates) {
		return ""
	}
	return f.Candidates[i].Name
}

type CreatedForum struct {
	ID          string
	Title       string
	TxHash      common.Hash
	BlockNumber uint64
}

// ShortAddress renders an address as 0x1234...abcd.
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

// FormatUnits renders an integer amount with the given number of decimals, trimming trailing zeros.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	sign := ""
	v := new(big.Int).Set(amount)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, unit, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := frac.String()
	fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr, "0")

	return sign + whole.String() + "." + fracStr
}
