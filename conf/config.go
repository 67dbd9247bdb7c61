package conf

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownNetwork = errors.New("unknown network")
)

type Config struct {
	DefaultNetwork string `toml:"default_network"`

	Networks map[string]Network `toml:"networks"`

	Solidity Solidity `toml:"solidity"`

	Paths Paths `toml:"paths"`

	Deploy Deploy `toml:"deploy"`

	Etherscan Etherscan `toml:"etherscan"`

	ContractSizer ContractSizer `toml:"contract_sizer"`

	GasReporter GasReporter `toml:"gas_reporter"`

	CoinMarketCapAPI struct {
		Url    string `toml:"url"`
		ApiKey string `toml:"api_key"`
	} `toml:"coinmarketcap"`

	Log Log `toml:"log"`

	Repositories map[string]map[string]interface{} `toml:"repositories"`
}

// Network describes one deployment target. Zero values mean "let the node decide".
type Network struct {
	Name string `toml:"-"`

	Url      string   `toml:"url"`
	ChainId  uint64   `toml:"chain_id"`
	GasPrice uint64   `toml:"gas_price"`
	Gas      uint64   `toml:"gas"`
	Accounts []string `toml:"accounts"`
	// Timeout bounds every RPC request, in milliseconds.
	Timeout int64 `toml:"timeout"`

	BlockGasLimit              uint64  `toml:"block_gas_limit"`
	AllowUnlimitedContractSize bool    `toml:"allow_unlimited_contract_size"`
	Forking                    Forking `toml:"forking"`
}

type Forking struct {
	Url         string `toml:"url"`
	BlockNumber uint64 `toml:"block_number"`
}

// IsLocal reports whether the network is run by the tool itself instead of being dialed.
func (n *Network) IsLocal() bool {
	return n.Url == ""
}

type Solidity struct {
	Version   string    `toml:"version"`
	Optimizer Optimizer `toml:"optimizer"`
	// EvmVersion is left to the compiler default when empty.
	EvmVersion string `toml:"evm_version"`
}

type Optimizer struct {
	Enabled bool `toml:"enabled"`
	Runs    int  `toml:"runs"`
}

type Paths struct {
	Root        string `toml:"root"`
	Sources     string `toml:"sources"`
	Artifacts   string `toml:"artifacts"`
	Cache       string `toml:"cache"`
	NodeModules string `toml:"node_modules"`
}

type Deploy struct {
	Contract string   `toml:"contract"`
	Args     []string `toml:"args"`
}

type Etherscan struct {
	ApiUrl string            `toml:"api_url"`
	ApiKey map[string]string `toml:"api_key"`
}

type ContractSizer struct {
	AlphaSort         bool `toml:"alpha_sort"`
	RunOnCompile      bool `toml:"run_on_compile"`
	DisambiguatePaths bool `toml:"disambiguate_paths"`
}

type GasReporter struct {
	Enabled  bool   `toml:"enabled"`
	Currency string `toml:"currency"`
	Token    string `toml:"token"`
}

type Log struct {
	Terminal struct {
		Use       bool `toml:"use"`
		Verbosity int  `toml:"verbosity"`
	} `toml:"terminal"`
	File struct {
		Use       bool   `toml:"use"`
		Verbosity int    `toml:"verbosity"`
		FileName  string `toml:"file_name"`
	} `toml:"file"`
}

func (c *Config) Network(name string) (*Network, error) {
	if name == "" {
		name = c.DefaultNetwork
	}
	n, ok := c.Networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	n.Name = name
	return &n, nil
}

func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
