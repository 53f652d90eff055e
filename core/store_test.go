package core

import (
	"testing"

	"github.com/axiomesh/ballot/repo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkRegistry(t *testing.T) {
	c := testConfig(t)
	registry := NewNetworkRegistry(testDB(t, c))

	_, ok := registry.Get(repo.SepoliaChainID)
	assert.False(t, ok)

	assert.ErrorIs(t, registry.Add(repo.Network{Name: "zero", RpcUrls: []string{"http://localhost:8545"}}), ErrInvalidNetwork)
	assert.ErrorIs(t, registry.Add(repo.Network{Name: "no urls", ChainID: 1337}), ErrInvalidNetwork)

	network := repo.DefaultNetwork()
	require.Nil(t, registry.Add(network))

	got, ok := registry.Get(repo.SepoliaChainID)
	require.True(t, ok)
	assert.Equal(t, network, got)

	network.RpcUrls = []string{"https://ethereum-sepolia.publicnode.com"}
	require.Nil(t, registry.Add(network))
	got, _ = registry.Get(repo.SepoliaChainID)
	assert.Equal(t, network.RpcUrls, got.RpcUrls)
}

func TestHistory(t *testing.T) {
	c := testConfig(t)
	db := testDB(t, c)
	history := NewHistory(db)

	assert.Empty(t, history.LastCreated())
	assert.Empty(t, history.LastVoted())

	history.SetLastCreated("a1b2c3")
	history.SetLastVoted("d4e5f6")
	assert.Equal(t, "a1b2c3", history.LastCreated())
	assert.Equal(t, "d4e5f6", NewHistory(db).LastVoted())

	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	other := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	assert.Equal(t, uint64(0), history.NextFromBlock(addr, ""))

	history.SetNextFromBlock(addr, "", 4_200_000)
	assert.Equal(t, uint64(4_200_000), history.NextFromBlock(addr, ""))
	assert.Equal(t, uint64(0), history.NextFromBlock(other, ""))

	// each forum keeps its own checkpoint
	assert.Equal(t, uint64(0), history.NextFromBlock(addr, "a1b2c3"))
	history.SetNextFromBlock(addr, "a1b2c3", 4_200_100)
	assert.Equal(t, uint64(4_200_100), history.NextFromBlock(addr, "a1b2c3"))
	assert.Equal(t, uint64(0), history.NextFromBlock(addr, "d4e5f6"))
	assert.Equal(t, uint64(4_200_000), history.NextFromBlock(addr, ""))
}
