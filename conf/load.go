package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/naoina/toml"
)

// Credentials holds the secrets read from the environment at startup.
type Credentials struct {
	PrivateKey          string   `env:"PRIVATE_KEY"`
	InfuraKeys          []string `env:"INFURA_KEY" envSeparator:","`
	EthereumApiKey      string   `env:"ETHEREUM_API_KEY"`
	AddressProvider     string   `env:"ADDRESS_PROVIDER"`
	CoinMarketCapApiKey string   `env:"COINMARKETCAP_API_KEY"`

	// ReportGas is set when REPORT_GAS is present, whatever its value.
	ReportGas bool
}

// Load reads a TOML config file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	defaults := c.Networks
	c.Networks = nil
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	merged := make(map[string]Network, len(defaults)+len(c.Networks))
	for name, n := range defaults {
		merged[name] = n
	}
	for name, n := range c.Networks {
		merged[name] = n
	}
	c.Networks = merged

	return c, nil
}

// LoadEnv loads the given dotenv files into the process environment, skipping missing ones,
// and reads the credential set once.
func LoadEnv(files ...string) (*Credentials, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cred := &Credentials{}
	if err := env.Parse(cred); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	_, cred.ReportGas = os.LookupEnv("REPORT_GAS")

	return cred, nil
}

// Lookup resolves a variable referenced from the config. Known credentials come from the snapshot,
// anything else from the process environment.
func (c *Credentials) Lookup(name string) (string, bool) {
	switch name {
	case "PRIVATE_KEY":
		return c.PrivateKey, c.PrivateKey != ""
	case "INFURA_KEY":
		if len(c.InfuraKeys) == 0 {
			return "", false
		}
		return c.InfuraKeys[0], c.InfuraKeys[0] != ""
	case "ETHEREUM_API_KEY":
		return c.EthereumApiKey, c.EthereumApiKey != ""
	case "ADDRESS_PROVIDER":
		return c.AddressProvider, c.AddressProvider != ""
	case "COINMARKETCAP_API_KEY":
		return c.CoinMarketCapApiKey, c.CoinMarketCapApiKey != ""
	}
	return os.LookupEnv(name)
}

// Expand substitutes ${VAR} references. Unset or empty variables are an error.
func Expand(s string, lookup func(string) (string, bool)) (string, error) {
	var missing []string
	out := os.Expand(s, func(name string) string {
		v, ok := lookup(name)
		if !ok || v == "" {
			missing = append(missing, name)
			return ""
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: unset variable %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return out, nil
}
