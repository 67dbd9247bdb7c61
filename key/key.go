package key

import (
	"errors"
	"sync"
	"time"

	"github.com/coinmeca/flashloan-deployer/logger"
	"go.uber.org/zap"
)

var ErrUnknownCategory = errors.New("unknown key category")

// APIKey is one provider credential. Expired keys are not handed out again.
type APIKey struct {
	Key     string
	Active  bool
	Start   int64
	Expired int64
}

// KeyManager hands out provider API keys per category (the env var that supplies them)
// and rotates to the next key when an endpoint rejects the current one.
type KeyManager struct {
	lock    sync.RWMutex
	keys    map[string][]*APIKey
	Current map[string]*APIKey
}

func NewKeyManager(keys map[string][]string) *KeyManager {
	k := &KeyManager{
		keys:    make(map[string][]*APIKey),
		Current: make(map[string]*APIKey),
	}
	for cate, list := range keys {
		for _, v := range list {
			if v == "" {
				continue
			}
			k.keys[cate] = append(k.keys[cate], &APIKey{Key: v})
		}
	}
	return k
}

func (k *KeyManager) InitKey(cate string) (*APIKey, error) {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.initKey(cate)
}

func (k *KeyManager) initKey(cate string) (*APIKey, error) {
	list, ok := k.keys[cate]
	if !ok {
		return nil, ErrUnknownCategory
	}
	for _, key := range list {
		if key.Expired == 0 {
			k.setKey(cate, key)
			return key, nil
		}
	}
	logger.Logger.Error("no usable key", zap.String("cate", cate))
	return nil, errors.New("all keys expired")
}

// GetCurrentKey returns the active key of the category, activating the first unexpired one if needed.
func (k *KeyManager) GetCurrentKey(cate string) (*APIKey, bool) {
	k.lock.Lock()
	defer k.lock.Unlock()

	if current, ok := k.Current[cate]; ok {
		return current, true
	}
	current, err := k.initKey(cate)
	if err != nil {
		return nil, false
	}
	return current, true
}

// GetNewKeys returns the unexpired keys of the category other than the current one.
func (k *KeyManager) GetNewKeys(cate string) ([]*APIKey, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	list, ok := k.keys[cate]
	if !ok {
		return nil, ErrUnknownCategory
	}
	current := k.Current[cate]

	var keys []*APIKey
	for _, key := range list {
		if key.Expired == 0 && key != current {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (k *KeyManager) SetKey(cate, key string) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	found := k.find(cate, key)
	if found == nil {
		logger.Logger.Error("SetKey: not found key", zap.String("cate", cate))
		return errors.New("not found key")
	}
	k.setKey(cate, found)
	return nil
}

func (k *KeyManager) setKey(cate string, key *APIKey) {
	if prev, ok := k.Current[cate]; ok {
		prev.Active = false
	}
	key.Active = true
	key.Start = time.Now().Unix()
	k.Current[cate] = key

	logger.Logger.Debug("SetKey", zap.String("cate", cate))
}

// ExpiredKey marks a key unusable. Expiring the current key clears it.
func (k *KeyManager) ExpiredKey(cate, key string) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	found := k.find(cate, key)
	if found == nil {
		logger.Logger.Error("ExpiredKey: not found key", zap.String("cate", cate))
		return errors.New("not found key")
	}
	found.Active = false
	found.Expired = time.Now().Unix()
	if k.Current[cate] == found {
		delete(k.Current, cate)
	}
	return nil
}

// Lookup resolves a category to its current key so config templates can reference it by name.
func (k *KeyManager) Lookup(cate string) (string, bool) {
	current, ok := k.GetCurrentKey(cate)
	if !ok {
		return "", false
	}
	return current.Key, true
}

func (k *KeyManager) Has(cate string) bool {
	k.lock.RLock()
	defer k.lock.RUnlock()
	_, ok := k.keys[cate]
	return ok
}

func (k *KeyManager) find(cate, key string) *APIKey {
	for _, v := range k.keys[cate] {
		if v.Key == key {
			return v
		}
	}
	return nil
}
