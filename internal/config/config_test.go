package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("listen", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().Bool("dev-mode", false, "")
	cmd.Flags().String("identity-mode", "", "")
	return cmd
}

func TestLoadRejectsEmptyProxyHostsOutsideDevMode(t *testing.T) {
	cmd := newTestCmd(t)
	_, err := Load(cmd)
	assert.Error(t, err)
}

func TestLoadDevModeInjectsDevHost(t *testing.T) {
	cmd := newTestCmd(t)
	require.NoError(t, cmd.Flags().Set("dev-mode", "true"))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	assert.Contains(t, cfg.ProxyHosts, "s3-proxy.dev")
}

func TestLoadRejectsUnknownIdentityMode(t *testing.T) {
	cmd := newTestCmd(t)
	require.NoError(t, cmd.Flags().Set("dev-mode", "true"))
	require.NoError(t, cmd.Flags().Set("identity-mode", "bogus"))

	_, err := Load(cmd)
	assert.Error(t, err)
}

func TestLoadDefaultsIdentityModeToAccountSuffix(t *testing.T) {
	cmd := newTestCmd(t)
	require.NoError(t, cmd.Flags().Set("dev-mode", "true"))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	assert.Equal(t, AccountSuffixMode, cfg.IdentityMode)
	assert.Equal(t, 5*time.Minute, cfg.StateUpdateInterval)
}

func TestFeaturesReportsIdentityMode(t *testing.T) {
	cfg := &Config{IdentityMode: UniKeyMode}
	assert.Equal(t, "mode=uni-key", cfg.Features())
}
