package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	root := t.TempDir()

	r, err := Load(root)
	require.Nil(t, err)
	assert.Equal(t, root, r.Config.RepoRoot)
	assert.Equal(t, uint64(SepoliaChainID), r.Config.Network.ChainID)
	assert.Equal(t, "0xaa36a7", r.Config.Network.HexChainID())
	assert.True(t, Exist(filepath.Join(root, cfgFileName)))

	raw, err := os.ReadFile(filepath.Join(root, cfgFileName))
	require.Nil(t, err)
	assert.Contains(t, string(raw), "dial_url")
	assert.Contains(t, string(raw), "Sepolia Test Network")
}

func TestFlushAndReload(t *testing.T) {
	root := t.TempDir()

	r, err := Load(root)
	require.Nil(t, err)

	r.Config.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	r.Config.Tx.ReceiptTimeout = 42 * time.Second
	r.Config.Network.RpcUrls = []string{"http://localhost:8545", "http://localhost:8546"}
	require.Nil(t, r.Flush())

	loaded, err := Load(root)
	require.Nil(t, err)
	assert.Equal(t, r.Config.ContractAddress, loaded.Config.ContractAddress)
	assert.Equal(t, 42*time.Second, loaded.Config.Tx.ReceiptTimeout)
	assert.Equal(t, r.Config.Network.RpcUrls, loaded.Config.Network.RpcUrls)
}

func TestEnvOverridesContractAddress(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root)
	require.Nil(t, err)

	t.Setenv("BALLOT_CONTRACT_ADDRESS", "0x00000000000000000000000000000000000000aa")

	r, err := Load(root)
	require.Nil(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", r.Config.ContractAddress)
}

func TestLoadRepoRootFromEnv(t *testing.T) {
	p, err := LoadRepoRootFromEnv("/explicit")
	require.Nil(t, err)
	assert.Equal(t, "/explicit", p)

	t.Setenv(rootPathEnvVar, "/from/env")
	p, err = LoadRepoRootFromEnv("")
	require.Nil(t, err)
	assert.Equal(t, "/from/env", p)
}

func TestPaths(t *testing.T) {
	r := &Repo{Config: DefaultConfig("/data/ballot")}
	assert.Equal(t, "/data/ballot/leveldb", r.StoragePath())
	assert.Equal(t, "/data/ballot/deployment-info.json", r.DeploymentPath())

	r.Config.DeploymentFile = "/tmp/deploy.json"
	assert.Equal(t, "/tmp/deploy.json", r.DeploymentPath())
	assert.Equal(t, "/data/ballot/keystore", ExpandPath("/data/ballot", r.Config.Wallet.Keystore))
}

func TestDeploymentInfo(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deployment-info.json")
	info := &DeploymentInfo{
		Network:         "Sepolia Test Network",
		ChainID:         SepoliaChainID,
		RpcUrl:          "https://rpc.sepolia.org",
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		DeployedBy:      "0x3e8e877b88f0fa014421abf6954aabb1ee2d51be",
		DeployedAt:      time.Date(2025, 10, 28, 13, 42, 23, 0, time.UTC),
		BlockNumber:     12,
	}
	require.Nil(t, WriteDeploymentInfo(p, info))

	raw, err := os.ReadFile(p)
	require.Nil(t, err)
	assert.Contains(t, string(raw), `"contractAddress": "0x5FbDB2315678afecb367f032d93F642f64180aa3"`)
	assert.Contains(t, string(raw), `"deployedAt": "2025-10-28T13:42:23Z"`)

	read, err := ReadDeploymentInfo(p)
	require.Nil(t, err)
	assert.Equal(t, info, read)

	_, err = ReadDeploymentInfo(filepath.Join(t.TempDir(), "missing.json"))
	assert.NotNil(t, err)
}

func TestInitRefusesExistingRepo(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ballot")

	r, err := Init(root)
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(root, cfgFileName), r.ConfigPath())
	assert.True(t, Exist(r.ConfigPath()))

	_, err = Init(root)
	assert.ErrorIs(t, err, ErrRepoExists)
}

func TestConfigValidate(t *testing.T) {
	assert.Nil(t, DefaultConfig("/data/ballot").Validate())

	tests := map[string]func(c *Config){
		"dial_url":         func(c *Config) { c.DialUrl = "" },
		"contract_address": func(c *Config) { c.ContractAddress = "0x1234" },
		"chain_id":         func(c *Config) { c.Network.ChainID = 0 },
		"rpc_urls":         func(c *Config) { c.Network.RpcUrls = nil },
		"symbol":           func(c *Config) { c.Network.Currency.Symbol = "" },
		"no scheme":        func(c *Config) { c.Network.RpcUrls = []string{"rpc.sepolia.org"} },
		"to_block":         func(c *Config) { c.Watch.FromBlock, c.Watch.ToBlock = 10, 5 },
		"log.level":        func(c *Config) { c.Log.Level = "loud" },
	}
	for name, broken := range tests {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig("/data/ballot")
			broken(c)
			err := c.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), name)
		})
	}

	c := DefaultConfig("/data/ballot")
	c.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	assert.Nil(t, c.Validate())
}
