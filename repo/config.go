package repo

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	RepoRoot string `mapstructure:"-" toml:"-"`
	// DialUrl is the endpoint the wallet is currently attached to, it may serve another chain than Network
	DialUrl         string  `mapstructure:"dial_url" toml:"dial_url"`
	ContractAddress string  `mapstructure:"contract_address" toml:"contract_address"`
	DeploymentFile  string  `mapstructure:"deployment_file" toml:"deployment_file"`
	Network         Network `mapstructure:"network" toml:"network"`
	Wallet          Wallet  `mapstructure:"wallet" toml:"wallet"`
	Tx              Tx      `mapstructure:"tx" toml:"tx"`
	Watch           Watch   `mapstructure:"watch" toml:"watch"`
	Log             Log     `mapstructure:"log" toml:"log"`
}

type Network struct {
	Name     string   `mapstructure:"name" toml:"name" json:"chainName"`
	ChainID  uint64   `mapstructure:"chain_id" toml:"chain_id" json:"chainId"`
	RpcUrls  []string `mapstructure:"rpc_urls" toml:"rpc_urls" json:"rpcUrls"`
	Currency Currency `mapstructure:"currency" toml:"currency" json:"nativeCurrency"`
}

type Currency struct {
	Name     string `mapstructure:"name" toml:"name" json:"name"`
	Symbol   string `mapstructure:"symbol" toml:"symbol" json:"symbol"`
	Decimals uint8  `mapstructure:"decimals" toml:"decimals" json:"decimals"`
}

// HexChainID returns the chain id in the 0x-prefixed form wallets exchange.
func (n Network) HexChainID() string {
	return fmt.Sprintf("0x%x", n.ChainID)
}

type Wallet struct {
	// Keystore is either a keystore file or a keystore directory
	Keystore string `mapstructure:"keystore" toml:"keystore"`
	// Address selects the account when Keystore is a directory, empty means the newest file
	Address string `mapstructure:"address" toml:"address"`
}

type Tx struct {
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout" toml:"receipt_timeout"`
	DialRetries    uint          `mapstructure:"dial_retries" toml:"dial_retries"`
	DialBackoff    time.Duration `mapstructure:"dial_backoff" toml:"dial_backoff"`
}

type Watch struct {
	// beginning of the queried range, 0 means genesis block
	FromBlock uint64 `mapstructure:"from_block" toml:"from_block"`
	// end of the range, 0 means latest block and keep following new ones
	ToBlock uint64 `mapstructure:"to_block" toml:"to_block"`
	// used when the endpoint cannot push logs
	PollInterval time.Duration `mapstructure:"poll_interval" toml:"poll_interval"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

func DefaultNetwork() Network {
	return Network{
		Name:    "Sepolia Test Network",
		ChainID: SepoliaChainID,
		RpcUrls: []string{"https://rpc.sepolia.org"},
		Currency: Currency{
			Name:     "Sepolia ETH",
			Symbol:   "SEP",
			Decimals: 18,
		},
	}
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot:        repoRoot,
		DialUrl:         "https://rpc.sepolia.org",
		ContractAddress: "",
		DeploymentFile:  "deployment-info.json",
		Network:         DefaultNetwork(),
		Wallet: Wallet{
			Keystore: "keystore",
		},
		Tx: Tx{
			ReceiptTimeout: 5 * time.Minute,
			DialRetries:    5,
			DialBackoff:    time.Second,
		},
		Watch: Watch{
			FromBlock:    0,
			ToBlock:      0,
			PollInterval: 5 * time.Second,
		},
		Log: Log{
			Level:        "info",
			Filename:     "ballot.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
	}
}

// Validate reports the first setting the client cannot work with. An empty contract_address is
// fine, deploy or set-contract fills it in later.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(ErrInvalidConfig, format, args...)
	}

	if err := checkUrl(c.DialUrl); err != nil {
		return invalid("dial_url: %s", err)
	}
	if c.ContractAddress != "" && !common.IsHexAddress(c.ContractAddress) {
		return invalid("contract_address %q is not an address", c.ContractAddress)
	}

	n := c.Network
	switch {
	case n.Name == "":
		return invalid("network.name is empty")
	case n.ChainID == 0:
		return invalid("network.chain_id is zero")
	case len(n.RpcUrls) == 0:
		return invalid("network %s has no rpc_urls", n.Name)
	case n.Currency.Symbol == "":
		return invalid("network.currency.symbol is empty")
	}
	for _, u := range n.RpcUrls {
		if err := checkUrl(u); err != nil {
			return invalid("network.rpc_urls: %s", err)
		}
	}

	if c.Watch.ToBlock != 0 && c.Watch.ToBlock < c.Watch.FromBlock {
		return invalid("watch.to_block %d is before from_block %d", c.Watch.ToBlock, c.Watch.FromBlock)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %s", err)
	}
	return nil
}

func checkUrl(raw string) error {
	if raw == "" {
		return errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return errors.Errorf("%q has no scheme", raw)
	}
	return nil
}
