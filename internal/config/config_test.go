// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/config"
)

func TestLoadRequiresRPCCredentials(t *testing.T) {
	_, err := config.Load(nil)
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load([]string{"--rpcuser=u", "--rpcpass=p"})
	require.NoError(t, err)
	require.Equal(t, int64(779832), cfg.StartingBlockHeight)
	require.Equal(t, "127.0.0.1:8332", cfg.RPCHost)
	require.Equal(t, "mongodb://127.0.0.1:27017", cfg.MongoURI)
	require.Equal(t, "brc20", cfg.MongoDatabase)
	require.Equal(t, "info", cfg.DebugLevel)
	require.Equal(t, "127.0.0.1:9100", cfg.MetricsListen)
}

func TestLoadCommandLineOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "brc20indexer.conf")
	require.NoError(t, os.WriteFile(confPath, []byte(
		"rpcuser=fileuser\nrpcpass=filepass\nstartheight=500000\n",
	), 0o600))

	cfg, err := config.Load([]string{
		"--configfile=" + confPath,
		"--rpcuser=clioverride",
		"--startheight=600000",
	})
	require.NoError(t, err)
	require.Equal(t, "clioverride", cfg.RPCUser)
	require.Equal(t, "filepass", cfg.RPCPass)
	require.Equal(t, int64(600000), cfg.StartingBlockHeight)
}
