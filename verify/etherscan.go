package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coinmeca/flashloan-deployer/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"
)

var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrAlreadyVerified    = errors.New("contract source code already verified")
)

const (
	statusPending = "Pending in queue"
	statusPass    = "Pass - Verified"
)

// Request is one verifysourcecode submission.
type Request struct {
	ChainId         *big.Int
	Address         string
	ContractName    string // "<source path>:<Name>"
	CompilerVersion string // "v0.8.24+commit.e11b9ed9"
	SourceCode      string // standard-json input
	ConstructorArgs string // hex without 0x
}

type Client struct {
	Url    string
	ApiKey string
	Client *http.Client
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		Url:    url,
		ApiKey: apiKey,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (r *response) result() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return string(r.Result)
	}
	return s
}

// Submit posts the source and returns the guid to poll.
func (c *Client) Submit(ctx context.Context, req *Request) (string, error) {
	form := url.Values{}
	form.Set("apikey", c.ApiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address)
	form.Set("sourceCode", req.SourceCode)
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	// the misspelling is the api's
	form.Set("constructorArguements", req.ConstructorArgs)

	u, err := c.endpoint(req.ChainId, nil)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if resp.Status != "1" {
		if strings.Contains(strings.ToLower(resp.result()), "already verified") {
			return "", ErrAlreadyVerified
		}
		return "", fmt.Errorf("etherscan: %s: %s", resp.Message, resp.result())
	}

	guid := resp.result()
	logger.Logger.Info("verification submitted", zap.String("address", req.Address), zap.String("guid", guid))
	return guid, nil
}

// Status returns the raw verification status for guid. done is false while etherscan still has it queued.
func (c *Client) Status(ctx context.Context, chainId *big.Int, guid string) (status string, done bool, err error) {
	u, err := c.endpoint(chainId, url.Values{
		"apikey": {c.ApiKey},
		"module": {"contract"},
		"action": {"checkverifystatus"},
		"guid":   {guid},
	})
	if err != nil {
		return "", false, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return "", false, err
	}
	status = resp.result()
	switch {
	case status == statusPending:
		return status, false, nil
	case resp.Status == "1", strings.HasPrefix(status, statusPass):
		return status, true, nil
	case strings.Contains(strings.ToLower(status), "already verified"):
		return status, true, ErrAlreadyVerified
	default:
		return status, true, fmt.Errorf("%w: %s", ErrVerificationFailed, status)
	}
}

// Wait polls Status every interval until etherscan settles on a result.
func (c *Client) Wait(ctx context.Context, chainId *big.Int, guid string, interval time.Duration) (string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, done, err := c.Status(ctx, chainId, guid)
		if done || err != nil {
			return status, err
		}
		logger.Logger.Debug("verification pending", zap.String("guid", guid))

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) endpoint(chainId *big.Int, q url.Values) (string, error) {
	u, err := url.Parse(c.Url)
	if err != nil {
		return "", err
	}
	values := u.Query()
	for k, v := range q {
		values[k] = v
	}
	if chainId != nil {
		values.Set("chainid", chainId.String())
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func (c *Client) do(req *http.Request) (*response, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan: unexpected status %s", resp.Status)
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("etherscan: decode response: %w", err)
	}
	return &out, nil
}

// EncodeConstructorArgs returns the abi-encoded constructor arguments as hex without the 0x prefix.
func EncodeConstructorArgs(parsed abi.ABI, args ...interface{}) (string, error) {
	packed, err := parsed.Pack("", args...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(packed), nil
}
