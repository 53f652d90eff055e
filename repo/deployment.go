package repo

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// DeploymentInfo is the record the deploy command leaves behind for clients.
type DeploymentInfo struct {
	Network         string    `json:"network"`
	ChainID         uint64    `json:"chainId"`
	RpcUrl          string    `json:"rpcUrl"`
	ContractAddress string    `json:"contractAddress"`
	DeployedBy      string    `json:"deployedBy"`
	DeployedAt      time.Time `json:"deployedAt"`
	BlockNumber     uint64    `json:"blockNumber"`
}

func WriteDeploymentInfo(p string, info *DeploymentInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal deployment info")
	}

	if err := os.WriteFile(p, data, 0644); err != nil {
		return errors.Wrapf(err, "write deployment info to %s", p)
	}

	return nil
}

func ReadDeploymentInfo(p string) (*DeploymentInfo, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "read deployment info from %s", p)
	}

	info := &DeploymentInfo{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, errors.Wrapf(err, "unmarshal deployment info from %s", p)
	}

	return info, nil
}
