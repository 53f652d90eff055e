package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const keystoreFilePrefix = "UTC--"

var (
	ErrNoKeystoreFile = errors.New("no keystore file found")
	ErrWrongPassword  = errors.New("could not decrypt key with given password")
)

// Wallet is a local signer holding a decrypted secp256k1 key.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func New(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// FromHex imports a raw private key, with or without the 0x prefix.
func FromHex(hexKey string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return New(key), nil
}

// FromKeystore decrypts a keystore file. When p is a directory the file for address is used,
// or the newest one if address is empty.
func FromKeystore(p, address, password string) (*Wallet, error) {
	file, err := ResolveKeystoreFile(p, address)
	if err != nil {
		return nil, err
	}

	keyJSON, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read keystore %s", file)
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, errors.Wrapf(ErrWrongPassword, "keystore %s", file)
		}
		return nil, errors.Wrapf(err, "decrypt keystore %s", file)
	}

	return &Wallet{key: key.PrivateKey, address: key.Address}, nil
}

func ResolveKeystoreFile(p, address string) (string, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return "", errors.Wrapf(err, "stat keystore %s", p)
	}
	if !fi.IsDir() {
		return p, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return "", errors.Wrapf(err, "read keystore dir %s", p)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), keystoreFilePrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", errors.Wrapf(ErrNoKeystoreFile, "in %s", p)
	}

	// file names start with a UTC timestamp, so lexical order is creation order
	sort.Strings(names)

	if address == "" {
		return filepath.Join(p, names[len(names)-1]), nil
	}

	suffix := strings.ToLower(strings.TrimPrefix(common.HexToAddress(address).Hex(), "0x"))
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			return filepath.Join(p, name), nil
		}
	}

	return "", errors.Wrapf(ErrNoKeystoreFile, "for %s in %s", address, p)
}

func (w *Wallet) Address() common.Address {
	return w.address
}

// PrivateKeyHex returns the 0x-prefixed private key.
func (w *Wallet) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(w.key))
}

// Transactor returns signing options bound to chainID.
func (w *Wallet) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
