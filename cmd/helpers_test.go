//go:build !integration

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/partner-cli/internal/config"
)

// useSQLiteConfig points the global config at a fresh SQLite database.
func useSQLiteConfig(t *testing.T) {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "partners.db")
	c.Store.Table = "marketing_partners"
	c.Reconcile.Concurrency = 1
	c.Server.Port = 8080
	c.Log = config.LogConfig{Level: "error", Format: "json"}
	cfg = c
	require.NoError(t, config.InitLogger(cfg.Log))
}

// execute runs cmd's RunE with the given flags and captures stdout. Flags
// are reset to their defaults afterwards.
func execute(t *testing.T, cmd *cobra.Command, args []string, flags map[string]string) (string, error) {
	t.Helper()
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	t.Cleanup(func() {
		for name := range flags {
			f := cmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })

	err := cmd.RunE(cmd, args)
	return out.String(), err
}
