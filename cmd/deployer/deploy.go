package main

import (
	"context"
	"fmt"

	model "github.com/coinmeca/flashloan-deployer"
	"github.com/coinmeca/flashloan-deployer/artifact"
	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/contractdb"
	"github.com/coinmeca/flashloan-deployer/deployer"
	"github.com/coinmeca/flashloan-deployer/gasreport"
	"github.com/coinmeca/flashloan-deployer/historydb"
	"github.com/coinmeca/flashloan-deployer/key"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/coinmeca/flashloan-deployer/network"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (rc *RootCommand) deployCommand() *cobra.Command {
	var noCompile bool
	var port int

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the configured contract to the selected network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.deploy(cmd.Context(), noCompile, port)
		},
	}
	cmd.Flags().BoolVar(&noCompile, "no-compile", false, "Use the existing artifacts instead of compiling first")
	cmd.Flags().IntVar(&port, "port", network.DefaultForkPort, "Port of the local node started for local networks")
	return cmd
}

// deploy sends one creation transaction for the configured contract and waits for it. Every input is checked
// before the first request reaches a node.
func (rc *RootCommand) deploy(ctx context.Context, noCompile bool, port int) error {
	c := rc.config
	if err := c.Validate(rc.network, rc.cred); err != nil {
		return err
	}
	n, err := c.Network(rc.network)
	if err != nil {
		return err
	}
	args, err := rc.deployArgs()
	if err != nil {
		return err
	}
	signer, err := deployer.Signer(rc.account(n))
	if err != nil {
		return err
	}

	if !noCompile {
		out, err := rc.compile(ctx)
		if err != nil {
			return err
		}
		if err := compiled(out, c.Deploy.Contract); err != nil {
			return err
		}
	}
	a, err := artifact.Find(rc.path(c.Paths.Artifacts), c.Deploy.Contract)
	if err != nil {
		return err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return err
	}
	packed, err := deployer.PackArgs(parsed, args)
	if err != nil {
		return fmt.Errorf("%w: constructor arguments: %w", conf.ErrInvalidConfig, err)
	}

	registry := network.NewRegistry(rc.cred, key.NewKeyManager(map[string][]string{
		"INFURA_KEY": rc.cred.InfuraKeys,
	}))
	defer registry.Close()

	if n.IsLocal() {
		fork, err := rc.startFork(ctx, n, port)
		if err != nil {
			return err
		}
		defer fork.Stop()
		registry.UseEndpoint(n.Name, fork.Url())
	}

	client, err := registry.Dial(ctx, n)
	if err != nil {
		return err
	}

	res, err := deployer.New(client, signer, client.ChainId, n).Deploy(ctx, a, packed...)
	if err != nil {
		return err
	}

	fmt.Fprintf(rc.stdout, "Transaction hash: %s\n", res.TxHash.Hex())
	fmt.Fprintf(rc.stdout, "Contract address: %s\n", res.Address.Hex())

	if c.GasReporter.Enabled || rc.cred.ReportGas {
		rc.reportGas(ctx, res)
	}
	if len(c.Repositories) > 0 {
		rc.record(ctx, n, client.ChainId.String(), res, args)
	}
	return nil
}

func (rc *RootCommand) deployArgs() ([]string, error) {
	args := make([]string, len(rc.config.Deploy.Args))
	for i, arg := range rc.config.Deploy.Args {
		v, err := conf.Expand(arg, rc.cred.Lookup)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// account returns the signing key of the network. Local networks fall back to the funded development account.
func (rc *RootCommand) account(n *conf.Network) string {
	if len(n.Accounts) == 0 {
		return conf.LocalDevKey
	}
	v, _ := conf.Expand(n.Accounts[0], rc.cred.Lookup)
	return v
}

func (rc *RootCommand) startFork(ctx context.Context, n *conf.Network, port int) (*network.Fork, error) {
	var forkUrl string
	if n.Forking.Url != "" {
		var err error
		if forkUrl, err = conf.Expand(n.Forking.Url, rc.cred.Lookup); err != nil {
			return nil, err
		}
	}
	fork := network.NewFork(n, forkUrl, port)
	if err := fork.Start(ctx); err != nil {
		return nil, err
	}
	return fork, nil
}

// reportGas prints the gas table. A missing price only drops the fiat column.
func (rc *RootCommand) reportGas(ctx context.Context, res *deployer.Result) {
	c := rc.config
	report := gasreport.New(c.GasReporter.Currency, c.GasReporter.Token)
	report.Add(res.Contract, res.GasUsed, res.EffectiveGasPrice)

	if apiKey, err := conf.Expand(c.CoinMarketCapAPI.ApiKey, rc.cred.Lookup); err == nil && apiKey != "" {
		src := &gasreport.CoinMarketCap{Url: c.CoinMarketCapAPI.Url, ApiKey: apiKey}
		if err := report.FetchPrice(ctx, src); err != nil {
			logger.Logger.Warn("gas price quote unavailable", zap.Error(err))
		}
	}

	if err := report.Render(rc.stdout); err != nil {
		logger.Logger.Warn("gas report", zap.Error(err))
	}
}

// record stores the deployment in the configured repositories. The contract is already on chain, so a storage
// failure is reported without failing the command.
func (rc *RootCommand) record(ctx context.Context, n *conf.Network, chainId string, res *deployer.Result, args []string) {
	repos, err := model.NewRepositories(rc.config)
	if err != nil {
		logger.Logger.Error("record deployment", zap.Error(err))
		return
	}
	defer repos.Close(ctx)

	var db *contractdb.ContractDB
	if repos.Get(&db) == nil {
		contract := &contractdb.Contract{
			ChainId:     chainId,
			Name:        res.Contract,
			Address:     res.Address.Hex(),
			TxHash:      res.TxHash.Hex(),
			BlockNumber: res.BlockNumber,
			Deployer:    res.Deployer.Hex(),
			Args:        args,
			DeployedAt:  res.DeployedAt,
		}
		if err := db.SaveContract(ctx, contract); err == nil {
			if err := db.SaveCheckpoint(ctx, chainId, res.BlockNumber); err != nil {
				logger.Logger.Error("SaveCheckpoint", zap.String("chainId", chainId), zap.Error(err))
			}
		}
	}

	var history *historydb.HistoryDB
	if repos.Get(&history) == nil {
		tx := &historydb.Tx{
			Hash:        res.TxHash.Hex(),
			ChainId:     chainId,
			Network:     n.Name,
			Contract:    res.Contract,
			Address:     res.Address.Hex(),
			From:        res.Deployer.Hex(),
			BlockNumber: res.BlockNumber,
			GasUsed:     res.GasUsed,
			Time:        res.DeployedAt,
		}
		if res.EffectiveGasPrice != nil {
			tx.EffectiveGasPrice = res.EffectiveGasPrice.String()
		}
		if err := history.SaveTransactionRecord(ctx, tx); err != nil {
			logger.Logger.Error("SaveTransactionRecord", zap.String("hash", tx.Hash), zap.Error(err))
		}
	}

	logger.Logger.Info("deployment recorded",
		zap.String("chainId", chainId),
		zap.String("contract", res.Contract),
		zap.Uint64("block", res.BlockNumber),
	)
}
