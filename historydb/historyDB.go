package historydb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const Name = "historyDB"

var ErrNotConfigured = errors.New("historyDB is not configured")

// Tx is one confirmed deployment transaction. Unlike the contract repository, which keeps the latest
// deployment per name, every transaction is kept.
type Tx struct {
	Hash              string    `bson:"hash"`
	ChainId           string    `bson:"chainId"`
	Network           string    `bson:"network"`
	Contract          string    `bson:"contract"`
	Address           string    `bson:"address"`
	From              string    `bson:"from"`
	BlockNumber       uint64    `bson:"blockNumber"`
	GasUsed           uint64    `bson:"gasUsed"`
	EffectiveGasPrice string    `bson:"effectiveGasPrice"`
	Time              time.Time `bson:"time"`
}

type HistoryDB struct {
	client       *mongo.Client
	colTxHistory *mongo.Collection
}

type Options struct {
	Datasource string `mapstructure:"datasource"`
	Username   string `mapstructure:"username"`
	Pass       string `mapstructure:"pass"`
	DB         string `mapstructure:"db"`
}

func ParseOptions(config *conf.Config) (Options, error) {
	var opts Options
	raw, ok := config.Repositories[Name]
	if !ok {
		return opts, ErrNotConfigured
	}
	if err := mapstructure.Decode(raw, &opts); err != nil {
		return opts, fmt.Errorf("%s: %w", Name, err)
	}
	if opts.Datasource == "" || opts.DB == "" {
		return opts, fmt.Errorf("%s: datasource and db are required", Name)
	}
	return opts, nil
}

func NewDB(config *conf.Config) (*HistoryDB, error) {
	opts, err := ParseOptions(config)
	if err != nil {
		return nil, err
	}

	r := &HistoryDB{}

	clientOptions := options.Client().ApplyURI(opts.Datasource)
	if opts.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Pass,
		})
	}
	if r.client, err = mongo.Connect(context.Background(), clientOptions); err != nil {
		return nil, err
	}

	if err = r.client.Ping(context.Background(), nil); err == nil {
		db := r.client.Database(opts.DB)
		r.colTxHistory = db.Collection("tx_history")
	} else {
		r.client.Disconnect(context.Background())
		return nil, err
	}

	logger.Logger.Debug("load repository",
		zap.String(Name, opts.DB),
	)
	return r, nil
}

// Start creates the transaction index.
func (h *HistoryDB) Start() error {
	return func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("%s: %v", Name, v)
			}
		}()
		return txIndex(h.colTxHistory)
	}()
}

func (h *HistoryDB) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}

func txIndex(col *mongo.Collection) error {
	index := mongo.IndexModel{
		Keys: bson.D{
			{Key: "chainId", Value: 1},
			{Key: "hash", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	_, err := col.Indexes().CreateOne(context.Background(), index)
	return err
}

func (h *HistoryDB) BsonForTx(tx *Tx) (bson.M, bson.M) {
	filter := bson.M{"chainId": tx.ChainId, "hash": tx.Hash}
	update := bson.M{
		"$set": bson.M{
			"network":           tx.Network,
			"contract":          tx.Contract,
			"address":           tx.Address,
			"from":              tx.From,
			"blockNumber":       tx.BlockNumber,
			"gasUsed":           tx.GasUsed,
			"effectiveGasPrice": tx.EffectiveGasPrice,
			"time":              tx.Time,
		},
		"$setOnInsert": bson.M{
			"chainId": tx.ChainId,
			"hash":    tx.Hash,
		},
	}
	return filter, update
}

func (h *HistoryDB) SaveTransactionRecord(ctx context.Context, tx *Tx) error {
	filter, update := h.BsonForTx(tx)
	opts := options.Update().SetUpsert(true)

	_, err := h.colTxHistory.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetTransactions returns the deployments of a contract on a chain, newest first. An empty contract matches all.
func (h *HistoryDB) GetTransactions(ctx context.Context, chainId, contract string) ([]*Tx, error) {
	query := bson.M{"chainId": chainId}
	if contract != "" {
		query["contract"] = contract
	}
	opts := options.Find().SetSort(bson.D{{Key: "blockNumber", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := h.colTxHistory.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*Tx
	for cursor.Next(ctx) {
		tx := &Tx{}
		if err := cursor.Decode(tx); err != nil {
			logger.Logger.Error("GetTransactions", zap.Error(err))
			continue
		}
		result = append(result, tx)
	}
	return result, cursor.Err()
}
