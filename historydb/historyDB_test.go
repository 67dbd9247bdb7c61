package historydb

import (
	"testing"
	"time"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseOptions(t *testing.T) {
	config := conf.Default()
	_, err := ParseOptions(config)
	assert.ErrorIs(t, err, ErrNotConfigured)

	config.Repositories = map[string]map[string]interface{}{
		Name: {"datasource": "mongodb://localhost:27017", "db": "deployments"},
	}
	opts, err := ParseOptions(config)
	require.NoError(t, err)
	assert.Equal(t, "deployments", opts.DB)
	assert.Empty(t, opts.Username)
}

func TestBsonForTx(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	filter, update := (&HistoryDB{}).BsonForTx(&Tx{
		Hash:              "0xaa",
		ChainId:           "1",
		Network:           "ethereum",
		Contract:          "Flashloan",
		BlockNumber:       19000000,
		GasUsed:           1200000,
		EffectiveGasPrice: "18000000000",
		Time:              at,
	})

	assert.Equal(t, bson.M{"chainId": "1", "hash": "0xaa"}, filter)
	set := update["$set"].(bson.M)
	assert.Equal(t, "ethereum", set["network"])
	assert.Equal(t, uint64(1200000), set["gasUsed"])
	assert.Equal(t, at, set["time"])
	assert.Equal(t, bson.M{"chainId": "1", "hash": "0xaa"}, update["$setOnInsert"])
}
