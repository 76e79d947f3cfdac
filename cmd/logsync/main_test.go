package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devblac/logsync/internal/source/evm"
	"github.com/devblac/logsync/internal/spec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestLag(t *testing.T) {
	require.Equal(t, uint64(0), Lag(101, 100))
	require.Equal(t, uint64(1), Lag(100, 100))
	require.Equal(t, uint64(51), Lag(50, 100))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	require.True(t, strings.HasPrefix(buf.String(), "logsync dev"))
}

func TestLoadAppGroupsSpecs(t *testing.T) {
	dir := t.TempDir()
	specsDir := filepath.Join(dir, "specs")
	require.NoError(t, os.MkdirAll(filepath.Join(specsDir, "usdc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(specsDir, "usdc", "transfers.json"), []byte(`{
  "event_name": "Transfer",
  "event_signature": "Transfer(address,address,uint256)",
  "start_block": 10,
  "indexed_fields": [
    {"name": "from", "solidity_type": "address", "indexed": true},
    {"name": "to", "solidity_type": "address", "indexed": true},
    {"name": "value", "solidity_type": "uint256", "indexed": false}
  ],
  "table_schema": {"table_name": "usdc_transfers", "columns": []}
}`), 0o644))

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`version: 1
database:
  driver: sqlite
  dsn: `+filepath.Join(dir, "db.sqlite")+`
chains:
  - name: mainnet
    rpc_url: http://127.0.0.1:8545
paths:
  specs_dir: `+specsDir+`
  schema: `+filepath.Join(dir, "schema.json")+`
contracts:
  - name: usdc
    chain: mainnet
    address: "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    specs:
      - name: transfers
        start_block: 500
`), 0o644))

	a, err := loadApp(cfgFile, spec.Filter{})
	require.NoError(t, err)
	require.Len(t, a.groups, 1)
	require.Equal(t, "mainnet", a.groups[0].Chain)
	require.Equal(t, uint64(500), a.groups[0].MinStartBlock)
	require.Equal(t, "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", a.specs[0].ContractAddress)
	require.Empty(t, a.schema.Tables)

	_, err = loadApp(cfgFile, spec.Filter{Contract: "dai"})
	require.Error(t, err)
}

func TestPrintMatchers(t *testing.T) {
	r, err := evm.NewRouter([]spec.Specification{{
		ContractName:    "usdc",
		SpecName:        "transfers",
		ContractAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		EventSignature:  "Transfer(address,address,uint256)",
	}})
	require.NoError(t, err)

	var buf bytes.Buffer
	printMatchers(&buf, r)
	addr := common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48").Hex()
	topic0 := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")).Hex()
	require.Equal(t, "    usdc/transfers: "+addr+" topic0 "+topic0+"\n", buf.String())
}
