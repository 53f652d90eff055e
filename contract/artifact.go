package contract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

//go:embed VotingSystem.json
var votingSystemArtifact []byte

// VotingSystemABI is the interface clients bind against when no artifact is supplied.
var VotingSystemABI = mustParseABI(votingSystemArtifact)

var ErrEmptyBytecode = errors.New("artifact carries no bytecode")

// Artifact is the subset of a compiler artifact (hardhat/truffle layout) needed to bind and deploy.
type Artifact struct {
	ContractName string          `json:"contractName"`
	RawABI       json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

func LoadArtifact(p string) (*Artifact, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "read artifact %s", p)
	}

	return ParseArtifact(data)
}

func ParseArtifact(data []byte) (*Artifact, error) {
	a := &Artifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, errors.Wrap(err, "unmarshal artifact")
	}
	if len(a.RawABI) == 0 {
		return nil, errors.New("artifact carries no abi")
	}

	return a, nil
}

func (a *Artifact) ABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.RawABI))
	if err != nil {
		return abi.ABI{}, errors.Wrapf(err, "parse abi of %s", a.ContractName)
	}
	return parsed, nil
}

func (a *Artifact) Code() []byte {
	return common.FromHex(a.Bytecode)
}

func mustParseABI(data []byte) abi.ABI {
	a, err := ParseArtifact(data)
	if err != nil {
		panic(err)
	}
	parsed, err := a.ABI()
	if err != nil {
		panic(err)
	}
	return parsed
}
