package contractdb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Chain holds the highest block a deployment on the chain was confirmed in.
type Chain struct {
	ChainId    string `bson:"chainId"`
	Checkpoint int64  `bson:"checkpoint"`
}

func (c *ContractDB) BsonForCheckpoint(chainId string, blockNumber uint64) (bson.M, bson.M) {
	filter := bson.M{
		"chainId": chainId,
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"chainId": chainId,
		},
		"$max": bson.M{
			"checkpoint": int64(blockNumber),
		},
	}

	return filter, update
}

func (c *ContractDB) SaveCheckpoint(ctx context.Context, chainId string, blockNumber uint64) error {
	filter, update := c.BsonForCheckpoint(chainId, blockNumber)
	option := options.Update().SetUpsert(true)

	_, err := c.ColChain.UpdateOne(ctx, filter, update, option)
	return err
}

// GetCheckpoint returns 0 for a chain that has never been recorded.
func (c *ContractDB) GetCheckpoint(ctx context.Context, chainId string) (uint64, error) {
	chain := &Chain{}
	err := c.ColChain.FindOne(ctx, bson.M{"chainId": chainId}).Decode(chain)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(chain.Checkpoint), nil
}
