//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"reconcile", "classify", "tables", "import", "report", "runs", "migrate", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "partner-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestReconcileCommand_Flags(t *testing.T) {
	for _, name := range []string{"dry-run", "only-unzoned", "concurrency", "limit", "verbose", "json"} {
		assert.NotNil(t, reconcileCmd.Flags().Lookup(name), "reconcile should have --%s", name)
	}
	assert.Equal(t, "0", reconcileCmd.Flags().Lookup("concurrency").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestTablesCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range tablesCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"validate", "dump", "lookup"} {
		assert.True(t, names[name], "expected tables subcommand %q", name)
	}
}

func TestInitStore_UnknownDriver(t *testing.T) {
	useSQLiteConfig(t)
	cfg.Store.Driver = "mysql"

	_, err := initStore(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitStore_PostgREST(t *testing.T) {
	useSQLiteConfig(t)
	cfg.Store.Driver = "postgrest"
	cfg.PostgREST.BaseURL = "https://example.supabase.co/rest/v1"
	cfg.PostgREST.APIKey = "anon"
	cfg.PostgREST.RatePerSec = 10
	cfg.PostgREST.PageSize = 100

	st, err := initStore(t.Context())
	require.NoError(t, err)
	assert.NoError(t, st.Close())
}

func TestOpenStore_ValidatesConfig(t *testing.T) {
	useSQLiteConfig(t)
	cfg.Store.DatabaseURL = ""

	_, err := openStore(t.Context(), "reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}
