package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/app"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := app.DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "wss://clearnet-sandbox.yellow.com/ws", cfg.Node.URL)
	require.Equal(t, uint64(11155111), cfg.Chain.ChainID)
	require.Equal(t, common.HexToAddress("0x019B65A265EB3363822f2752141b3dF16131b262"), cfg.Chain.Custody)
	require.Equal(t, time.Hour, cfg.Auth.TTL)
	require.Len(t, cfg.AuthAllowances(), 1)
	require.EqualValues(t, "ytest.usd", cfg.AuthAllowances()[0].Asset)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	cfg, err := app.Load([]byte(`
[Node]
URL = "ws://127.0.0.1:8080/ws"
RequestTimeout = "5s"

[Auth]
Application = "FluxPay"
Allowances = [ { Asset = "usdc", Amount = "500" } ]

[Chain]
Token = "0x00000000000000000000000000000000000000aa"

[Logging]
Level = "debug"
Format = "json"
`))
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8080/ws", cfg.Node.URL)
	require.Equal(t, 5*time.Second, cfg.Node.RequestTimeout)
	require.Equal(t, 10*time.Second, cfg.Node.DialTimeout)
	require.Equal(t, "FluxPay", cfg.Auth.Application)
	require.Equal(t, "test.app", cfg.Auth.Scope)
	require.Equal(t, []app.Allowance{{Asset: "usdc", Amount: "500"}}, cfg.Auth.Allowances)
	require.Equal(t, common.HexToAddress("0xaa"), cfg.Chain.Token)
	require.Equal(t, uint64(11155111), cfg.Chain.ChainID)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"empty url":      "[Node]\nURL = \"\"",
		"zero chain":     "[Chain]\nChainID = 0",
		"bad allowance":  "[Auth]\nAllowances = [ { Asset = \"usdc\", Amount = \"1.5\" } ]",
		"bad level":      "[Logging]\nLevel = \"loud\"",
		"bad format":     "[Logging]\nFormat = \"xml\"",
		"not toml":       "this is = = not toml",
		"negative ttl":   "[Auth]\nTTL = \"-1h\"",
		"no asset":       "[Auth]\nAllowances = [ { Amount = \"1\" } ]",
	} {
		_, err := app.Load([]byte(doc))
		require.Error(t, err, name)
	}
}

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	cfg, err := app.LoadFile(filepath.Join(t.TempDir(), "fluxpay.toml"))
	require.NoError(t, err)
	require.Equal(t, app.DefaultConfig().Node.URL, cfg.Node.URL)

	path := filepath.Join(t.TempDir(), "fluxpay.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Metrics]\nAddr = \":9100\"\n"), 0o600))
	cfg, err = app.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, app.ConfigureLogging(app.Logging{Level: "warn", Format: "json"}))
	require.Error(t, app.ConfigureLogging(app.Logging{Level: "nope"}))
}
