package verify

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etherscan(t *testing.T, pendingPolls int32) *httptest.Server {
	var polls atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "11155111", r.URL.Query().Get("chainid"))
		switch r.Method {
		case http.MethodPost:
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "verifysourcecode", r.PostForm.Get("action"))
			assert.Equal(t, "solidity-standard-json-input", r.PostForm.Get("codeformat"))
			assert.Equal(t, "contracts/Flashloan.sol:Flashloan", r.PostForm.Get("contractname"))
			assert.Equal(t, "abcd", r.PostForm.Get("constructorArguements"))
			if r.PostForm.Get("contractaddress") == "0xverified" {
				w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Contract source code already verified"}`))
				return
			}
			w.Write([]byte(`{"status":"1","message":"OK","result":"guid-1"}`))
		case http.MethodGet:
			assert.Equal(t, "checkverifystatus", r.URL.Query().Get("action"))
			switch r.URL.Query().Get("guid") {
			case "guid-1":
				if polls.Add(1) <= pendingPolls {
					w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Pending in queue"}`))
					return
				}
				w.Write([]byte(`{"status":"1","message":"OK","result":"Pass - Verified"}`))
			default:
				w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Fail - Unable to verify"}`))
			}
		}
	}))
}

func request(address string) *Request {
	return &Request{
		ChainId:         big.NewInt(11155111),
		Address:         address,
		ContractName:    "contracts/Flashloan.sol:Flashloan",
		CompilerVersion: "v0.8.24+commit.e11b9ed9",
		SourceCode:      `{"language":"Solidity"}`,
		ConstructorArgs: "abcd",
	}
}

func TestSubmitAndWait(t *testing.T) {
	srv := etherscan(t, 2)
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	guid, err := c.Submit(context.Background(), request("0x01"))
	require.NoError(t, err)
	assert.Equal(t, "guid-1", guid)

	status, err := c.Wait(context.Background(), big.NewInt(11155111), guid, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Pass - Verified", status)
}

func TestSubmitAlreadyVerified(t *testing.T) {
	srv := etherscan(t, 0)
	defer srv.Close()

	_, err := NewClient(srv.URL, "key").Submit(context.Background(), request("0xverified"))
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestStatusFailed(t *testing.T) {
	srv := etherscan(t, 0)
	defer srv.Close()

	status, done, err := NewClient(srv.URL, "key").Status(context.Background(), big.NewInt(11155111), "guid-2")
	assert.True(t, done)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, "Fail - Unable to verify", status)
}

func TestWaitCancelled(t *testing.T) {
	srv := etherscan(t, 1000)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL, "key").Wait(ctx, big.NewInt(11155111), "guid-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEncodeConstructorArgs(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"constructor","inputs":[{"name":"provider","type":"address"}]}]`))
	require.NoError(t, err)

	encoded, err := EncodeConstructorArgs(parsed, common.HexToAddress("0x0496275d34753A48320CA58103d5220d394FF77F"))
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000000000000496275d34753a48320ca58103d5220d394ff77f", encoded)

	_, err = EncodeConstructorArgs(parsed)
	assert.Error(t, err)
}
