package model

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/contractdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	started bool
	err     error
}

func (f *fakeRepo) Start() error {
	f.started = true
	return f.err
}

type closingRepo struct {
	fakeRepo
	closed bool
}

func (c *closingRepo) Close(context.Context) error {
	c.closed = true
	return errors.New("already disconnected")
}

func TestClose(t *testing.T) {
	r := &Repositories{conf: conf.Default(), elems: make(map[reflect.Type]reflect.Value)}
	closing := &closingRepo{}
	require.NoError(t, r.Register(func(*conf.Config) (Repository, error) { return closing, nil }, r.conf))
	require.NoError(t, r.Register(func(*conf.Config) (Repository, error) { return &fakeRepo{}, nil }, r.conf))

	r.Close(context.Background())
	assert.True(t, closing.closed)
}

func TestNewRepositoriesWithoutConfig(t *testing.T) {
	r, err := NewRepositories(conf.Default())
	require.NoError(t, err)

	var db *contractdb.ContractDB
	assert.False(t, r.Has(&db))
	assert.ErrorContains(t, r.Get(&db), "unknown repository")
	assert.Nil(t, db)
}

func TestRegisterAndGet(t *testing.T) {
	r := &Repositories{conf: conf.Default(), elems: make(map[reflect.Type]reflect.Value)}

	repo := &fakeRepo{}
	constructor := func(*conf.Config) (Repository, error) { return repo, nil }
	require.NoError(t, r.Register(constructor, r.conf))
	assert.ErrorContains(t, r.Register(constructor, r.conf), "duplicated instance")

	require.NoError(t, r.startAll())
	assert.True(t, repo.started)

	var got *fakeRepo
	require.NoError(t, r.Get(&got))
	assert.Same(t, repo, got)
	assert.True(t, r.Has(&got))
}

func TestRegisterConstructorError(t *testing.T) {
	r := &Repositories{conf: conf.Default(), elems: make(map[reflect.Type]reflect.Value)}
	boom := errors.New("boom")
	err := r.Register(func(*conf.Config) (Repository, error) { return nil, boom }, r.conf)
	assert.ErrorIs(t, err, boom)
}

func TestStartAllError(t *testing.T) {
	r := &Repositories{conf: conf.Default(), elems: make(map[reflect.Type]reflect.Value)}
	boom := errors.New("index")
	require.NoError(t, r.Register(func(*conf.Config) (Repository, error) { return &fakeRepo{err: boom}, nil }, r.conf))
	assert.ErrorIs(t, r.startAll(), boom)
}
