package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func testCredentials() *Credentials {
	return &Credentials{
		PrivateKey:      testKey,
		InfuraKeys:      []string{"infura-1", "infura-2"},
		EthereumApiKey:  "scan",
		AddressProvider: "0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A",
	}
}

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "0.8.24", c.Solidity.Version)
	assert.True(t, c.Solidity.Optimizer.Enabled)
	assert.Equal(t, 200, c.Solidity.Optimizer.Runs)
	assert.Equal(t, []string{"ethereum", "hardhat", "sepolia"}, c.NetworkNames())

	eth, err := c.Network("ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), eth.ChainId)
	assert.Equal(t, uint64(18000000000), eth.GasPrice)
	assert.Equal(t, int64(20000), eth.Timeout)
	assert.False(t, eth.IsLocal())

	local, err := c.Network("")
	require.NoError(t, err)
	assert.Equal(t, "hardhat", local.Name)
	assert.True(t, local.IsLocal())
	assert.True(t, local.AllowUnlimitedContractSize)
	assert.Equal(t, uint64(0x1fffffffffffff), local.BlockGasLimit)
}

func TestNetworkUnknown(t *testing.T) {
	_, err := Default().Network("goerli")
	require.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployer.toml")
	data := `
default_network = "sepolia"

[solidity]
version = "0.8.20"

[solidity.optimizer]
enabled = true
runs = 1000

[networks.sepolia]
url = "https://rpc.sepolia.example/${INFURA_KEY}"
chain_id = 11155111
accounts = ["${PRIVATE_KEY}"]

[networks.arbitrum]
url = "https://arb.example"
chain_id = 42161
accounts = ["${PRIVATE_KEY}"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", c.DefaultNetwork)
	assert.Equal(t, "0.8.20", c.Solidity.Version)
	assert.Equal(t, 1000, c.Solidity.Optimizer.Runs)
	assert.Equal(t, []string{"arbitrum", "ethereum", "hardhat", "sepolia"}, c.NetworkNames())

	sepolia, err := c.Network("")
	require.NoError(t, err)
	assert.Equal(t, uint64(11155111), sepolia.ChainId)
	assert.Equal(t, "https://rpc.sepolia.example/${INFURA_KEY}", sepolia.Url)

	eth, err := c.Network("ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), eth.ChainId)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADDRESS_PROVIDER=0xabc\nINFURA_KEY=a,b\n"), 0o600))

	t.Setenv("PRIVATE_KEY", testKey)
	t.Setenv("ADDRESS_PROVIDER", "")
	t.Setenv("INFURA_KEY", "")
	t.Setenv("REPORT_GAS", "")
	require.NoError(t, os.Unsetenv("ADDRESS_PROVIDER"))
	require.NoError(t, os.Unsetenv("INFURA_KEY"))

	cred, err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, testKey, cred.PrivateKey)
	assert.Equal(t, "0xabc", cred.AddressProvider)
	assert.Equal(t, []string{"a", "b"}, cred.InfuraKeys)
	assert.True(t, cred.ReportGas)
}

func TestExpand(t *testing.T) {
	cred := testCredentials()

	url, err := Expand(InfuraSepoliaUrl, cred.Lookup)
	require.NoError(t, err)
	assert.Equal(t, "https://sepolia.infura.io/v3/infura-1", url)

	cred.InfuraKeys = nil
	_, err = Expand(InfuraSepoliaUrl, cred.Lookup)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "INFURA_KEY")
}

func TestValidate(t *testing.T) {
	c := Default()
	cred := testCredentials()

	for _, name := range c.NetworkNames() {
		require.NoError(t, c.Validate(name, cred), name)
	}
}

func TestValidateMissingConstructorArg(t *testing.T) {
	cred := testCredentials()
	cred.AddressProvider = ""

	err := Default().Validate("sepolia", cred)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "ADDRESS_PROVIDER")

	cred.AddressProvider = "0x1234"
	err = Default().Validate("sepolia", cred)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "is not an address")
}

func TestValidateRemoteNetwork(t *testing.T) {
	cred := testCredentials()
	cred.PrivateKey = "not-a-key"
	cred.InfuraKeys = nil

	err := Default().Validate("ethereum", cred)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "INFURA_KEY")
	assert.Contains(t, err.Error(), "invalid private key")
	assert.NotContains(t, err.Error(), "not-a-key")
}

func TestValidateCompiler(t *testing.T) {
	c := Default()
	c.Solidity.Version = "latest"
	c.Solidity.Optimizer.Runs = 0

	err := c.Validate("hardhat", testCredentials())
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "solidity version")
	assert.Contains(t, err.Error(), "optimizer runs")
}
