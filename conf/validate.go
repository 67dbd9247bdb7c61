package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Validate checks everything a deployment to the named network needs before any network I/O happens.
func (c *Config) Validate(network string, cred *Credentials) error {
	n, err := c.Network(network)
	if err != nil {
		return err
	}

	var problems []error
	if _, err := semver.StrictNewVersion(c.Solidity.Version); err != nil {
		problems = append(problems, fmt.Errorf("solidity version %q: %w", c.Solidity.Version, err))
	}
	if c.Solidity.Optimizer.Enabled && c.Solidity.Optimizer.Runs <= 0 {
		problems = append(problems, fmt.Errorf("optimizer runs must be positive, got %d", c.Solidity.Optimizer.Runs))
	}
	if c.Deploy.Contract == "" {
		problems = append(problems, errors.New("deploy contract is not set"))
	}
	for i, arg := range c.Deploy.Args {
		v, err := Expand(arg, cred.Lookup)
		if err != nil {
			problems = append(problems, fmt.Errorf("deploy argument %d: %w", i, err))
		} else if strings.TrimSpace(v) == "" {
			problems = append(problems, fmt.Errorf("deploy argument %d is empty", i))
		} else if strings.Contains(arg, "${ADDRESS_PROVIDER}") && !common.IsHexAddress(v) {
			problems = append(problems, fmt.Errorf("deploy argument %d: ADDRESS_PROVIDER %q is not an address", i, v))
		}
	}

	problems = append(problems, n.validate(cred)...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}

func (n *Network) validate(cred *Credentials) []error {
	var problems []error
	if n.IsLocal() {
		if n.Forking.Url != "" {
			if _, err := Expand(n.Forking.Url, cred.Lookup); err != nil {
				problems = append(problems, fmt.Errorf("network %s forking url: %w", n.Name, err))
			}
		}
	} else {
		if _, err := Expand(n.Url, cred.Lookup); err != nil {
			problems = append(problems, fmt.Errorf("network %s url: %w", n.Name, err))
		}
		if len(n.Accounts) == 0 {
			problems = append(problems, fmt.Errorf("network %s has no accounts", n.Name))
		}
	}

	for i, account := range n.Accounts {
		key, err := Expand(account, cred.Lookup)
		if err != nil {
			problems = append(problems, fmt.Errorf("network %s account %d: %w", n.Name, i, err))
			continue
		}
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x")); err != nil {
			problems = append(problems, fmt.Errorf("network %s account %d: invalid private key", n.Name, i))
		}
	}
	if n.Timeout < 0 {
		problems = append(problems, fmt.Errorf("network %s timeout must not be negative", n.Name))
	}
	return problems
}
