package deployer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/coinmeca/flashloan-deployer/artifact"
	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrDeploymentFailed is the single failure category of a deployment; the cause is wrapped.
var ErrDeploymentFailed = errors.New("deployment failed")

var ErrNoCode = errors.New("no contract code after deployment")

type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type Result struct {
	Contract          string
	Address           common.Address
	TxHash            common.Hash
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Deployer          common.Address
	DeployedAt        time.Time
}

// Deployer sends contract-creation transactions signed by one account.
type Deployer struct {
	backend Backend
	key     *ecdsa.PrivateKey
	chainId *big.Int
	network *conf.Network
}

func New(backend Backend, key *ecdsa.PrivateKey, chainId *big.Int, n *conf.Network) *Deployer {
	return &Deployer{
		backend: backend,
		key:     key,
		chainId: chainId,
		network: n,
	}
}

func (d *Deployer) From() common.Address {
	return crypto.PubkeyToAddress(d.key.PublicKey)
}

// Deploy submits exactly one creation transaction and waits for it to be mined. Nothing is retried.
func (d *Deployer) Deploy(ctx context.Context, a *artifact.Artifact, args ...interface{}) (*Result, error) {
	res, err := d.deploy(ctx, a, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeploymentFailed, a.ContractName, err)
	}
	return res, nil
}

func (d *Deployer) deploy(ctx context.Context, a *artifact.Artifact, args ...interface{}) (*Result, error) {
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	code, err := a.Code()
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(d.key, d.chainId)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	if d.network != nil {
		if d.network.GasPrice != 0 {
			opts.GasPrice = new(big.Int).SetUint64(d.network.GasPrice)
		}
		if d.network.Gas != 0 {
			opts.GasLimit = d.network.Gas
		}
	}

	address, tx, _, err := bind.DeployContract(opts, parsed, code, d.backend, args...)
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("deployment submitted",
		zap.String("contract", a.ContractName),
		zap.String("txHash", tx.Hash().Hex()),
		zap.String("address", address.Hex()),
	)

	receipt, err := bind.WaitMined(ctx, d.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}

	deployed, err := d.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("read deployed code: %w", err)
	}
	if len(deployed) == 0 {
		return nil, ErrNoCode
	}

	res := &Result{
		Contract:          a.ContractName,
		Address:           receipt.ContractAddress,
		TxHash:            tx.Hash(),
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
		Deployer:          opts.From,
		DeployedAt:        time.Now().UTC(),
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if res.EffectiveGasPrice == nil {
		res.EffectiveGasPrice = tx.GasPrice()
	}

	logger.Logger.Info("deployment confirmed",
		zap.String("contract", a.ContractName),
		zap.String("address", res.Address.Hex()),
		zap.Uint64("block", res.BlockNumber),
		zap.Uint64("gasUsed", res.GasUsed),
	)
	return res, nil
}

// Signer parses a hex private key with or without the 0x prefix.
func Signer(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.New("invalid private key")
	}
	return key, nil
}
