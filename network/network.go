package network

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/key"
	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

var ErrChainMismatch = errors.New("chain id mismatch")

// Client is a connection to one named network whose chain id has been checked.
type Client struct {
	*ethclient.Client

	Network *conf.Network
	ChainId *big.Int
}

// Registry dials networks by descriptor and keeps one client per network name.
type Registry struct {
	lock sync.Mutex

	cred      *conf.Credentials
	key       *key.KeyManager
	endpoints map[string]string
	clients   map[string]*Client
}

func NewRegistry(cred *conf.Credentials, key *key.KeyManager) *Registry {
	return &Registry{
		cred:      cred,
		key:       key,
		endpoints: make(map[string]string),
		clients:   make(map[string]*Client),
	}
}

// UseEndpoint points a network at a concrete endpoint, as done for locally launched nodes.
func (r *Registry) UseEndpoint(name, url string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.endpoints[name] = url
}

func (r *Registry) Endpoint(n *conf.Network) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.endpoint(n)
}

func (r *Registry) endpoint(n *conf.Network) (string, error) {
	if url, ok := r.endpoints[n.Name]; ok {
		return url, nil
	}
	if n.IsLocal() {
		return "", fmt.Errorf("network %s is local and has not been started", n.Name)
	}
	return conf.Expand(n.Url, r.lookup)
}

// Dial connects to the network and probes its chain id. When the endpoint is parameterised by a rotating
// API key and the provider rejects that key, the key is expired and the next one is tried. Any other failure
// is returned at once.
func (r *Registry) Dial(ctx context.Context, n *conf.Network) (*Client, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if c, ok := r.clients[n.Name]; ok {
		return c, nil
	}

	cate := r.rotatingCategory(n)
	for {
		url, err := r.endpoint(n)
		if err != nil {
			return nil, err
		}

		c, err := dial(ctx, n, url)
		if err == nil {
			r.clients[n.Name] = c
			logger.Logger.Debug("dial network",
				zap.String("network", n.Name),
				zap.String("chainId", c.ChainId.String()),
			)
			return c, nil
		}

		err = &DialError{Network: n.Name, url: url, template: n.Url, err: err}
		if cate == "" || ctx.Err() != nil || !keyRejected(err) {
			return nil, err
		}

		logger.Logger.Warn("endpoint rejected, rotating key",
			zap.String("network", n.Name),
			zap.String("cate", cate),
			zap.Error(err),
		)
		if current, ok := r.key.GetCurrentKey(cate); ok {
			_ = r.key.ExpiredKey(cate, current.Key)
		}
		keys, kerr := r.key.GetNewKeys(cate)
		if kerr != nil || len(keys) == 0 {
			return nil, err
		}
		if kerr := r.key.SetKey(cate, keys[0].Key); kerr != nil {
			return nil, err
		}
	}
}

func (r *Registry) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()
	for name, c := range r.clients {
		c.Close()
		delete(r.clients, name)
	}
}

func (r *Registry) lookup(name string) (string, bool) {
	if r.key != nil && r.key.Has(name) {
		return r.key.Lookup(name)
	}
	return r.cred.Lookup(name)
}

// rotatingCategory returns the first variable of the url template managed by the key manager.
func (r *Registry) rotatingCategory(n *conf.Network) string {
	if r.key == nil {
		return ""
	}
	if _, ok := r.endpoints[n.Name]; ok {
		return ""
	}
	var cate string
	os.Expand(n.Url, func(name string) string {
		if cate == "" && r.key.Has(name) {
			cate = name
		}
		return ""
	})
	return cate
}

// keyRejected reports whether the provider refused the request because of its API key.
func keyRejected(err error) bool {
	var httpErr rpc.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

func dial(ctx context.Context, n *conf.Network, url string) (*Client, error) {
	httpClient := &http.Client{Timeout: time.Duration(n.Timeout) * time.Millisecond}

	rpcClient, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	ec := ethclient.NewClient(rpcClient)
	chainId, err := ec.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if n.ChainId != 0 && chainId.Uint64() != n.ChainId {
		ec.Close()
		return nil, fmt.Errorf("%w: expected %d, got %s", ErrChainMismatch, n.ChainId, chainId)
	}

	return &Client{Client: ec, Network: n, ChainId: chainId}, nil
}

// DialError reports a failed connection without leaking the API key embedded in the endpoint.
type DialError struct {
	Network  string
	url      string
	template string
	err      error
}

func (e *DialError) Error() string {
	msg := e.err.Error()
	if e.url != "" && e.template != "" {
		msg = strings.ReplaceAll(msg, e.url, e.template)
	}
	return fmt.Sprintf("dial %s: %s", e.Network, msg)
}

func (e *DialError) Unwrap() error {
	return e.err
}
