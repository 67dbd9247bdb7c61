package conf

const (
	InfuraSepoliaUrl = "https://sepolia.infura.io/v3/${INFURA_KEY}"
	InfuraMainnetUrl = "https://mainnet.infura.io/v3/${INFURA_KEY}"

	EtherscanApiUrl     = "https://api.etherscan.io/v2/api"
	CoinMarketCapApiUrl = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest"

	// LocalDevKey is the first account of the well-known development mnemonic, funded by anvil and hardhat.
	LocalDevKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

// Default returns the project configuration used when no config file overrides it.
func Default() *Config {
	c := &Config{
		DefaultNetwork: "hardhat",
		Networks: map[string]Network{
			"hardhat": {
				Gas:                        12000000,
				BlockGasLimit:              0x1fffffffffffff,
				AllowUnlimitedContractSize: true,
				Forking: Forking{
					Url: InfuraSepoliaUrl,
				},
			},
			"sepolia": {
				Url:      InfuraSepoliaUrl,
				Accounts: []string{"${PRIVATE_KEY}"},
			},
			"ethereum": {
				ChainId:  1,
				GasPrice: 18000000000,
				Url:      InfuraMainnetUrl,
				Accounts: []string{"${PRIVATE_KEY}"},
				Timeout:  20000,
			},
		},
		Solidity: Solidity{
			Version: "0.8.24",
			Optimizer: Optimizer{
				Enabled: true,
				Runs:    200,
			},
		},
		Paths: Paths{
			Root:        ".",
			Sources:     "contracts",
			Artifacts:   "artifacts",
			Cache:       "cache",
			NodeModules: "node_modules",
		},
		Deploy: Deploy{
			Contract: "Flashloan",
			Args:     []string{"${ADDRESS_PROVIDER}"},
		},
		Etherscan: Etherscan{
			ApiUrl: EtherscanApiUrl,
			ApiKey: map[string]string{
				"sepolia": "${ETHEREUM_API_KEY}",
			},
		},
		ContractSizer: ContractSizer{
			AlphaSort:         true,
			RunOnCompile:      true,
			DisambiguatePaths: false,
		},
		GasReporter: GasReporter{
			Currency: "USD",
			Token:    "ETH",
		},
	}
	c.CoinMarketCapAPI.Url = CoinMarketCapApiUrl
	c.CoinMarketCapAPI.ApiKey = "${COINMARKETCAP_API_KEY}"
	c.Log.Terminal.Use = true
	c.Log.Terminal.Verbosity = 2
	return c
}
