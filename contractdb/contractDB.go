package contractdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Name is the key of this repository under [repositories] in the config file.
const Name = "contractDB"

var ErrNotConfigured = errors.New("contractDB is not configured")

type Options struct {
	Datasource string `mapstructure:"datasource"`
	Username   string `mapstructure:"username"`
	Pass       string `mapstructure:"pass"`
	DB         string `mapstructure:"db"`
}

type ContractDB struct {
	opts Options

	client      *mongo.Client
	ColContract *mongo.Collection
	ColChain    *mongo.Collection
}

// ParseOptions decodes the contractDB section of the repositories table.
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

func NewDB(config *conf.Config) (*ContractDB, error) {
	opts, err := ParseOptions(config)
	if err != nil {
		return nil, err
	}

	r := &ContractDB{
		opts: opts,
	}

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
		r.ColContract = db.Collection("contract")
		r.ColChain = db.Collection("chain")
	} else {
		r.client.Disconnect(context.Background())
		return nil, err
	}

	logger.Logger.Debug("load repository",
		zap.String(Name, opts.DB),
	)
	return r, nil
}

// Start creates the indexes the repository relies on.
func (c *ContractDB) Start() error {
	return func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("%s: %v", Name, v)
			}
		}()
		_, err = c.ColContract.Indexes().CreateOne(context.Background(), mongo.IndexModel{
			Keys:    bson.D{{Key: "chainId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		return
	}()
}

func (c *ContractDB) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
