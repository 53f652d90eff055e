package wallet

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestFromHex(t *testing.T) {
	w, err := FromHex(testKey)
	require.Nil(t, err)

	prefixed, err := FromHex("0x" + testKey)
	require.Nil(t, err)
	assert.Equal(t, w.Address(), prefixed.Address())
	assert.Equal(t, "0x"+testKey, w.PrivateKeyHex())

	_, err = FromHex("not-a-key")
	assert.NotNil(t, err)
}

func TestFromKeystore(t *testing.T) {
	dir := t.TempDir()

	account, err := keystore.StoreKey(dir, "000", keystore.LightScryptN, keystore.LightScryptP)
	require.Nil(t, err)

	// by file
	w, err := FromKeystore(account.URL.Path, "", "000")
	require.Nil(t, err)
	assert.Equal(t, account.Address, w.Address())
	assert.True(t, strings.HasPrefix(w.PrivateKeyHex(), "0x"))

	// by directory, newest file
	w, err = FromKeystore(dir, "", "000")
	require.Nil(t, err)
	assert.Equal(t, account.Address, w.Address())

	// by directory and address
	w, err = FromKeystore(dir, account.Address.Hex(), "000")
	require.Nil(t, err)
	assert.Equal(t, account.Address, w.Address())

	_, err = FromKeystore(dir, "0x00000000000000000000000000000000000000aa", "000")
	assert.ErrorIs(t, err, ErrNoKeystoreFile)

	_, err = FromKeystore(dir, "", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestResolveKeystoreFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ResolveKeystoreFile(dir, "")
	assert.ErrorIs(t, err, ErrNoKeystoreFile)

	_, err = ResolveKeystoreFile(filepath.Join(dir, "missing"), "")
	assert.NotNil(t, err)

	older := "UTC--2025-10-28T13-42-23.094421100Z--3e8e877b88f0fa014421abf6954aabb1ee2d51be"
	newer := "UTC--2025-11-01T08-00-00.000000000Z--00000000000000000000000000000000000000aa"
	for _, name := range []string{older, newer, "README"} {
		require.Nil(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0600))
	}

	p, err := ResolveKeystoreFile(dir, "")
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(dir, newer), p)

	p, err = ResolveKeystoreFile(dir, "0x3E8E877B88F0FA014421ABF6954AABB1EE2D51BE")
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(dir, older), p)
}

func TestTransactor(t *testing.T) {
	w, err := FromHex(testKey)
	require.Nil(t, err)

	chainID := big.NewInt(11155111)
	opts, err := w.Transactor(context.Background(), chainID)
	require.Nil(t, err)
	assert.Equal(t, w.Address(), opts.From)

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Gas: 21000, GasPrice: big.NewInt(1)})
	signed, err := opts.Signer(opts.From, tx)
	require.Nil(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.Nil(t, err)
	assert.Equal(t, w.Address(), sender)
}
