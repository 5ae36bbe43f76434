package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, ":9090", c.EndpointAddrGRPC)
	assert.Empty(t, c.DatabaseDSN, "accounts stay in memory by default")
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, time.Hour, c.RefreshTokenValidityDuration)
	assert.True(t, c.RotateRefreshTokens)
	assert.False(t, c.SingleSession)
	assert.Equal(t, "info", c.LogLevel)
}

// file < env < flags
func TestLoadConfig_Layering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"endpoint_addr_http: \":7000\"\n"+
			"access_token_validity_duration: 2m\n"+
			"log_level: warn\n"), 0o600))

	t.Setenv("DEVSERVER_ACCESS_TTL", "45s")
	t.Setenv("DEVSERVER_LOG_LEVEL", "error")

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"devserver", "-c", path, "-v", "debug"}

	c := LoadConfig()
	require.NotNil(t, c)

	assert.Equal(t, ":7000", c.EndpointAddrHTTP)
	assert.Equal(t, 45*time.Second, c.AccessTokenValidityDuration)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, time.Hour, c.RefreshTokenValidityDuration)
}
