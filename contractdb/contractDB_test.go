package contractdb

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
		Name: {
			"datasource": "mongodb://localhost:27017",
			"username":   "admin",
			"pass":       "secret",
			"db":         "deployments",
		},
	}
	opts, err := ParseOptions(config)
	require.NoError(t, err)
	assert.Equal(t, Options{
		Datasource: "mongodb://localhost:27017",
		Username:   "admin",
		Pass:       "secret",
		DB:         "deployments",
	}, opts)

	config.Repositories[Name] = map[string]interface{}{"datasource": "mongodb://localhost:27017"}
	_, err = ParseOptions(config)
	assert.ErrorContains(t, err, "datasource and db are required")

	config.Repositories[Name] = map[string]interface{}{"datasource": 42}
	_, err = ParseOptions(config)
	assert.Error(t, err)
}

func TestBsonForContract(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	contract := &Contract{
		ChainId:     "11155111",
		Name:        "Flashloan",
		Address:     "0x01",
		TxHash:      "0x02",
		BlockNumber: 7,
		Deployer:    "0x03",
		Args:        []string{"0x04"},
		DeployedAt:  at,
	}

	filter, update := (&ContractDB{}).BsonForContract(contract)
	assert.Equal(t, bson.M{"chainId": "11155111", "name": "Flashloan"}, filter)

	set := update["$set"].(bson.M)
	assert.Equal(t, "0x01", set["address"])
	assert.Equal(t, uint64(7), set["blockNumber"])
	assert.Equal(t, at, set["deployedAt"])
	assert.NotContains(t, set, "chainId")
	assert.Equal(t, bson.M{"chainId": "11155111", "name": "Flashloan"}, update["$setOnInsert"])
}

func TestBsonForCheckpoint(t *testing.T) {
	filter, update := (&ContractDB{}).BsonForCheckpoint("1", 19000000)
	assert.Equal(t, bson.M{"chainId": "1"}, filter)
	assert.Equal(t, bson.M{"checkpoint": int64(19000000)}, update["$max"])
	assert.Equal(t, bson.M{"chainId": "1"}, update["$setOnInsert"])
}

func TestMarkVerified(t *testing.T) {
	contract := &Contract{ChainId: "11155111", Name: "Flashloan", Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}

	assert.False(t, contract.MarkVerified("0x0000000000000000000000000000000000000001"))
	assert.False(t, contract.Verified)

	assert.True(t, contract.MarkVerified("0x5fbdb2315678afecb367f032d93f642f64180aa3"))
	assert.True(t, contract.Verified)

	assert.False(t, contract.MarkVerified(contract.Address))
}
