package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/coinmeca/flashloan-deployer/contractdb"
	"github.com/coinmeca/flashloan-deployer/historydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DeploymentsWithoutRepository(t *testing.T) {
	isolateEnv(t, map[string]string{"PRIVATE_KEY": testKey})
	root := project(t, "http://127.0.0.1:1", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"deployments", "--root", root}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "listing deployments failed")
	assert.Contains(t, stderr.String(), "no repository is configured")
	assert.Empty(t, stdout.String())
}

func TestRenderContracts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderContracts(&buf, 0, nil))
	assert.Equal(t, "Checkpoint: 0\nNo contracts recorded\n", buf.String())

	buf.Reset()
	require.NoError(t, renderContracts(&buf, 5123456, []*contractdb.Contract{{
		ChainId:     "11155111",
		Name:        "Flashloan",
		Address:     "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		BlockNumber: 5123456,
		Verified:    true,
		DeployedAt:  time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}}))
	out := buf.String()
	assert.Contains(t, out, "Checkpoint: 5123456")
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `Flashloan\s+0x5FbDB2315678afecb367f032d93F642f64180aa3\s+5123456\s+yes\s+2024-03-01 12:30:00`, out)
}

func TestRenderTransactions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTransactions(&buf, nil))
	assert.Equal(t, "No transactions recorded\n", buf.String())

	buf.Reset()
	require.NoError(t, renderTransactions(&buf, []*historydb.Tx{
		{Hash: "0xaa", Contract: "Flashloan", Address: "0x01", BlockNumber: 9, GasUsed: 21000, EffectiveGasPrice: "1000000000"},
		{Hash: "0xbb", Contract: "Flashloan", Address: "0x02", BlockNumber: 7, GasUsed: 22000},
	}))
	out := buf.String()
	assert.Regexp(t, `0xaa\s+Flashloan\s+0x01\s+9\s+21000\s+1000000000`, out)
	assert.Regexp(t, `0xbb\s+Flashloan\s+0x02\s+7\s+22000\s+-`, out)
}
