package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	model "github.com/coinmeca/flashloan-deployer"
	"github.com/coinmeca/flashloan-deployer/artifact"
	"github.com/coinmeca/flashloan-deployer/compiler"
	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/contractdb"
	"github.com/coinmeca/flashloan-deployer/deployer"
	"github.com/coinmeca/flashloan-deployer/key"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/coinmeca/flashloan-deployer/network"
	"github.com/coinmeca/flashloan-deployer/verify"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (rc *RootCommand) verifyCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "verify <address>",
		Short: "Verify the deployed contract source on the block explorer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.verify(cmd.Context(), args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Status polling interval")
	return cmd
}

func (rc *RootCommand) verify(ctx context.Context, address string, interval time.Duration) error {
	c := rc.config
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q is not an address", conf.ErrInvalidConfig, address)
	}
	n, err := c.Network(rc.network)
	if err != nil {
		return err
	}
	if n.IsLocal() {
		return fmt.Errorf("network %s is local and has no explorer", n.Name)
	}
	apiKeyTemplate, ok := c.Etherscan.ApiKey[n.Name]
	if !ok {
		return fmt.Errorf("%w: no etherscan api key for network %s", conf.ErrInvalidConfig, n.Name)
	}
	apiKey, err := conf.Expand(apiKeyTemplate, rc.cred.Lookup)
	if err != nil {
		return err
	}

	cache := rc.path(c.Paths.Cache)
	in, err := compiler.ReadInput(cache)
	if err != nil {
		return fmt.Errorf("read compiler input, compile first: %w", err)
	}
	version, err := compiler.ReadVersion(cache)
	if err != nil {
		return err
	}
	source, err := json.Marshal(in)
	if err != nil {
		return err
	}

	a, err := artifact.Find(rc.path(c.Paths.Artifacts), c.Deploy.Contract)
	if err != nil {
		return err
	}
	constructorArgs, err := rc.constructorArgs(a)
	if err != nil {
		return err
	}

	chainId, err := rc.chainId(ctx, n)
	if err != nil {
		return err
	}

	client := verify.NewClient(c.Etherscan.ApiUrl, apiKey)
	guid, err := client.Submit(ctx, &verify.Request{
		ChainId:         chainId,
		Address:         common.HexToAddress(address).Hex(),
		ContractName:    a.SourceName + ":" + a.ContractName,
		CompilerVersion: "v" + version,
		SourceCode:      string(source),
		ConstructorArgs: constructorArgs,
	})
	if errors.Is(err, verify.ErrAlreadyVerified) {
		fmt.Fprintf(rc.stdout, "Contract %s is already verified\n", address)
		rc.markVerified(ctx, chainId.String(), c.Deploy.Contract, address)
		return nil
	}
	if err != nil {
		return err
	}

	status, err := client.Wait(ctx, chainId, guid, interval)
	if err != nil && !errors.Is(err, verify.ErrAlreadyVerified) {
		return err
	}
	fmt.Fprintf(rc.stdout, "%s: %s\n", address, status)
	rc.markVerified(ctx, chainId.String(), c.Deploy.Contract, address)
	return nil
}

// markVerified flags the recorded deployment at address as verified. The contract is verified whatever
// happens here, so failures are only logged.
func (rc *RootCommand) markVerified(ctx context.Context, chainId, name, address string) {
	if _, ok := rc.config.Repositories[contractdb.Name]; !ok {
		return
	}
	repos, err := model.NewRepositories(rc.config)
	if err != nil {
		logger.Logger.Error("record verification", zap.Error(err))
		return
	}
	defer repos.Close(ctx)

	var db *contractdb.ContractDB
	if !repos.Has(&db) {
		return
	}
	if err := repos.Get(&db); err != nil {
		logger.Logger.Error("record verification", zap.Error(err))
		return
	}

	contract, err := db.GetContract(ctx, chainId, name)
	if err != nil {
		logger.Logger.Warn("verified contract is not recorded",
			zap.String("chainId", chainId),
			zap.String("name", name),
			zap.Error(err),
		)
		return
	}
	if !contract.MarkVerified(address) {
		return
	}
	if err := db.SaveContract(ctx, contract); err == nil {
		logger.Logger.Info("verification recorded", zap.String("name", name), zap.String("address", contract.Address))
	}
}

func (rc *RootCommand) constructorArgs(a *artifact.Artifact) (string, error) {
	args, err := rc.deployArgs()
	if err != nil {
		return "", err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return "", err
	}
	packed, err := deployer.PackArgs(parsed, args)
	if err != nil {
		return "", err
	}
	return verify.EncodeConstructorArgs(parsed, packed...)
}

// chainId uses the configured chain id and asks the node only when none is set.
func (rc *RootCommand) chainId(ctx context.Context, n *conf.Network) (*big.Int, error) {
	if n.ChainId != 0 {
		return new(big.Int).SetUint64(n.ChainId), nil
	}
	registry := network.NewRegistry(rc.cred, key.NewKeyManager(map[string][]string{
		"INFURA_KEY": rc.cred.InfuraKeys,
	}))
	defer registry.Close()

	client, err := registry.Dial(ctx, n)
	if err != nil {
		return nil, err
	}
	return client.ChainId, nil
}
