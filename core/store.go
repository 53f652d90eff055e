package core

import (
	"encoding/binary"
	"encoding/json"
	"strconv"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/ballot/repo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	networkKeyPrefix       = "network/"
	lastCreatedForumKey    = "forum/lastCreated"
	lastVotedForumKey      = "forum/lastVoted"
	nextFromBlockKeyPrefix = "watch/nextFromBlock/"
)

// NetworkRegistry is the set of chains the local wallet knows how to reach, keyed by chain id.
type NetworkRegistry struct {
	db storage.Storage
}

func NewNetworkRegistry(db storage.Storage) *NetworkRegistry {
	return &NetworkRegistry{db: db}
}

func networkKey(chainID uint64) []byte {
	return []byte(networkKeyPrefix + strconv.FormatUint(chainID, 10))
}

func (r *NetworkRegistry) Get(chainID uint64) (repo.Network, bool) {
	data := r.db.Get(networkKey(chainID))
	if data == nil {
		return repo.Network{}, false
	}

	var n repo.Network
	if err := json.Unmarshal(data, &n); err != nil {
		return repo.Network{}, false
	}
	return n, true
}

func (r *NetworkRegistry) Add(n repo.Network) error {
	if n.ChainID == 0 {
		return errors.Wrap(ErrInvalidNetwork, "chain id is zero")
	}
	if len(n.RpcUrls) == 0 {
		return errors.Wrapf(ErrInvalidNetwork, "chain %d has no rpc url", n.ChainID)
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	r.db.Put(networkKey(n.ChainID), data)
	return nil
}

// History remembers forum codes across runs.
type History struct {
	db storage.Storage
}

func NewHistory(db storage.Storage) *History {
	return &History{db: db}
}

func (h *History) LastCreated() string {
	return string(h.db.Get([]byte(lastCreatedForumKey)))
}

func (h *History) SetLastCreated(id string) {
	h.db.Put([]byte(lastCreatedForumKey), []byte(id))
}

func (h *History) LastVoted() string {
	return string(h.db.Get([]byte(lastVotedForumKey)))
}

func (h *History) SetLastVoted(id string) {
	h.db.Put([]byte(lastVotedForumKey), []byte(id))
}

// nextFromBlockKey scopes a checkpoint to the forum a watcher follows, forumID is empty for all forums.
func nextFromBlockKey(contract common.Address, forumID string) []byte {
	key := nextFromBlockKeyPrefix + contract.Hex()
	if forumID != "" {
		key += "/" + forumID
	}
	return []byte(key)
}

// NextFromBlock is the first block the watcher of contract (and forumID, when set) has not processed yet.
func (h *History) NextFromBlock(contract common.Address, forumID string) uint64 {
	data := h.db.Get(nextFromBlockKey(contract, forumID))
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func (h *History) SetNextFromBlock(contract common.Address, forumID string, block uint64) {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, block)
	h.db.Put(nextFromBlockKey(contract, forumID), data)
}
