package model

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/contractdb"
	"github.com/coinmeca/flashloan-deployer/historydb"
	"github.com/coinmeca/flashloan-deployer/logger"
	"go.uber.org/zap"
)

type Repository interface {
	Start() error
}

type RepositoryConstructor func(config *conf.Config) (Repository, error)

type Repositories struct {
	lock  sync.RWMutex
	conf  *conf.Config
	elems map[reflect.Type]reflect.Value
}

// NewRepositories builds and starts every repository that has a section under [repositories].
func NewRepositories(c *conf.Config) (*Repositories, error) {
	r := &Repositories{
		conf:  c,
		elems: make(map[reflect.Type]reflect.Value),
	}

	if err := r.initializeRepositories(); err != nil {
		return nil, err
	}

	if err := r.startAll(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Repositories) initializeRepositories() error {
	repoInitializers := map[string]RepositoryConstructor{
		contractdb.Name: func(c *conf.Config) (Repository, error) {
			return contractdb.NewDB(c)
		},
		historydb.Name: func(c *conf.Config) (Repository, error) {
			return historydb.NewDB(c)
		},
	}

	for name, initializer := range repoInitializers {
		if _, ok := r.conf.Repositories[name]; !ok {
			logger.Logger.Debug("skip repository", zap.String("name", name))
			continue
		}
		if err := r.Register(initializer, r.conf); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repositories) startAll() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, elem := range r.elems {
		if err := elem.Interface().(Repository).Start(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repositories) Register(constructor RepositoryConstructor, config *conf.Config) error {
	p, err := constructor(config)
	if err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.elems[reflect.TypeOf(p)]; ok {
		return fmt.Errorf("duplicated instance of %v", reflect.TypeOf(p))
	}
	r.elems[reflect.TypeOf(p)] = reflect.ValueOf(p)
	return nil
}

// Get fills each pointer in rs with the registered repository of the pointed-to type.
func (r *Repositories) Get(rs ...interface{}) error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var notFounds []error
	for _, v := range rs {
		elem := reflect.ValueOf(v).Elem()
		if e, ok := r.elems[elem.Type()]; ok {
			elem.Set(e)
		} else {
			notFounds = append(notFounds, fmt.Errorf("unknown repository %v", elem.Type()))
		}
	}

	return errors.Join(notFounds...)
}

// Has reports whether a repository of the same type as v is registered.
func (r *Repositories) Has(v interface{}) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.elems[reflect.TypeOf(v).Elem()]
	return ok
}

// Close disconnects every registered repository that holds a connection.
func (r *Repositories) Close(ctx context.Context) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for t, elem := range r.elems {
		c, ok := elem.Interface().(interface{ Close(context.Context) error })
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			logger.Logger.Warn("close repository", zap.Stringer("type", t), zap.Error(err))
		}
	}
}
