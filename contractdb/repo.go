package contractdb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coinmeca/flashloan-deployer/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Contract is one deployed contract on one chain.
type Contract struct {
	ChainId     string    `bson:"chainId" json:"chainId"`
	Name        string    `bson:"name" json:"name"`
	Address     string    `bson:"address" json:"address"`
	TxHash      string    `bson:"txHash" json:"txHash"`
	BlockNumber uint64    `bson:"blockNumber" json:"blockNumber"`
	Deployer    string    `bson:"deployer" json:"deployer"`
	Args        []string  `bson:"args" json:"args"`
	Verified    bool      `bson:"verified" json:"verified"`
	DeployedAt  time.Time `bson:"deployedAt" json:"deployedAt"`
}

var ErrContractNotFound = errors.New("contract not found")

// MarkVerified flags the contract as verified when address is its recorded deployment. It reports whether the
// record changed.
func (c *Contract) MarkVerified(address string) bool {
	if c.Verified || !strings.EqualFold(c.Address, address) {
		return false
	}
	c.Verified = true
	return true
}

func (c *ContractDB) BsonForContract(contract *Contract) (bson.M, bson.M) {
	filter := bson.M{
		"chainId": contract.ChainId,
		"name":    contract.Name,
	}

	update := bson.M{
		"$set": bson.M{
			"address":     contract.Address,
			"txHash":      contract.TxHash,
			"blockNumber": contract.BlockNumber,
			"deployer":    contract.Deployer,
			"args":        contract.Args,
			"verified":    contract.Verified,
			"deployedAt":  contract.DeployedAt,
		},
		"$setOnInsert": bson.M{
			"chainId": contract.ChainId,
			"name":    contract.Name,
		},
	}

	return filter, update
}

// SaveContract upserts the latest deployment of a contract name on its chain.
func (c *ContractDB) SaveContract(ctx context.Context, contract *Contract) error {
	filter, update := c.BsonForContract(contract)
	option := options.Update().SetUpsert(true)

	if _, err := c.ColContract.UpdateOne(ctx, filter, update, option); err != nil {
		logger.Logger.Error("SaveContract",
			zap.String("chainId", contract.ChainId),
			zap.String("name", contract.Name),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (c *ContractDB) GetContract(ctx context.Context, chainId, name string) (*Contract, error) {
	contract := &Contract{}
	err := c.ColContract.FindOne(ctx, bson.M{"chainId": chainId, "name": name}).Decode(contract)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (c *ContractDB) GetContracts(ctx context.Context, chainId string) ([]*Contract, error) {
	findOptions := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := c.ColContract.Find(ctx, bson.M{"chainId": chainId}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*Contract
	for cursor.Next(ctx) {
		contract := &Contract{}
		if err := cursor.Decode(contract); err != nil {
			logger.Logger.Error("GetContracts",
				zap.String("Cannot decode", err.Error()),
			)
			continue
		}
		result = append(result, contract)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
